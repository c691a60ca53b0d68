// Package timing finds entry/exit timing from technical indicators, similar
// historical patterns and forward-return labels.
package timing

import (
	"context"
	"errors"
	"math"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/indicators"
	"github.com/wonny/quantlab/internal/risk"
	"github.com/wonny/quantlab/internal/stats"
)

// ErrInsufficientData is returned when the series is shorter than a window
var ErrInsufficientData = errors.New("not enough bars")

// Frame holds the timing indicators aligned with the bars
type Frame struct {
	Closes []float64
	MA20   []float64
	RSI    []float64
	MACD   []float64 // 히스토그램 (MACD - signal)
	OBV    []float64
}

// maWindow is the MA length; bars before it are warm-up and emit no signal
const maWindow = 20

// Compute builds the indicator frame for a series
func Compute(s *contracts.Series) Frame {
	closes := s.Closes()
	return Frame{
		Closes: closes,
		MA20:   indicators.SMA(closes, maWindow),
		RSI:    indicators.RSI(closes, 14),
		MACD:   indicators.MACD(closes, 12, 26, 9).Histogram,
		OBV:    indicators.OBV(closes, s.Volumes()),
	}
}

// Signal marks entry and exit conditions for one bar
type Signal struct {
	Entry bool `json:"entry"`
	Exit  bool `json:"exit"`
}

// Signals evaluates every bar once MA20 has a full window:
//   - entry: RSI<30, MACD>0, close>MA20
//   - exit: RSI>70, MACD<0 or close<MA20
//
// The first maWindow-1 bars stay zero.
func (f Frame) Signals() []Signal {
	out := make([]Signal, len(f.Closes))
	for i, c := range f.Closes {
		if i < maWindow-1 {
			continue
		}
		out[i] = Signal{
			Entry: f.RSI[i] < 30 && f.MACD[i] > 0 && c > f.MA20[i],
			Exit:  f.RSI[i] > 70 || f.MACD[i] < 0 || c < f.MA20[i],
		}
	}
	return out
}

// Confidence is the historical success rate (%) of entry and exit signals
type Confidence struct {
	Entry float64 `json:"entry"`
	Exit  float64 `json:"exit"`
}

// SignalConfidence measures how often signals were followed by the expected
// move over horizon bars: up for entries, down for exits
func SignalConfidence(closes []float64, signals []Signal, horizon int) Confidence {
	var entries, entryHits, exits, exitHits int
	for i, s := range signals {
		if i+horizon >= len(closes) {
			break
		}
		fwd := closes[i+horizon]/closes[i] - 1
		if s.Entry {
			entries++
			if fwd > 0 {
				entryHits++
			}
		}
		if s.Exit {
			exits++
			if fwd < 0 {
				exitHits++
			}
		}
	}
	return Confidence{Entry: pct(entryHits, entries), Exit: pct(exitHits, exits)}
}

func pct(hit, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(hit)/float64(total)*10000) / 100
}

// RiskForecast holds the risk outlook in percent. VaR and CVaR follow
// risk.VaRConvention: a loss is a positive number (VaR95 3.1 = 3.1% loss)
// and 0 means no loss at that level. MDD is a drawdown and stays negative.
type RiskForecast struct {
	VaR95           float64 `json:"var_95"`            // 일간 historical, 손실 양수
	CVaR95          float64 `json:"cvar_95"`           // 일간 historical, 손실 양수
	ParametricVaR95 float64 `json:"parametric_var_95"` // 일간 정규분포 가정, 손실 양수
	SimulatedVaR95  float64 `json:"simulated_var_95"`  // 보유기간 Monte Carlo, 손실 양수 (표본 부족 시 0)
	SimulatedCVaR95 float64 `json:"simulated_cvar_95"`
	HoldingDays     int     `json:"holding_days,omitempty"`
	MDD             float64 `json:"mdd"` // 음수
}

// forecastSeed fixes the Monte Carlo draw so the same closes give the same report
const forecastSeed = 42

// ForecastRisk computes historical and parametric daily VaR/CVaR, a
// holding-period Monte Carlo VaR and the close-to-close MDD. The simulation
// is skipped when there are fewer returns than its minimum sample.
func ForecastRisk(ctx context.Context, closes []float64) (RiskForecast, error) {
	if len(closes) < 2 {
		return RiskForecast{}, ErrInsufficientData
	}
	returns := contracts.PctChange(closes)
	engine := risk.NewEngine()

	v := engine.VaR(returns, 0.95)
	p := risk.CalculateParametricVaR(stats.StdDev(returns), 0.95)
	mdd := stats.MaxDrawdown(contracts.Equity(returns))
	rf := RiskForecast{
		VaR95:           round2(v.VaR * 100),
		CVaR95:          round2(v.CVaR * 100),
		ParametricVaR95: round2(p.VaR * 100),
		MDD:             round2(mdd * 100),
	}

	cfg := risk.DefaultMonteCarloConfig()
	cfg.Seed = forecastSeed
	mc, err := engine.MonteCarlo(ctx, returns, cfg)
	switch {
	case err == nil:
		rf.SimulatedVaR95 = round2(mc.VaR95 * 100)
		rf.SimulatedCVaR95 = round2(mc.CVaR95 * 100)
		rf.HoldingDays = cfg.HoldingPeriod
	case errors.Is(err, risk.ErrInsufficientData):
	default:
		return RiskForecast{}, err
	}
	return rf, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Phase is a market regime label
type Phase string

const (
	PhaseBull    Phase = "Bull"
	PhaseBear    Phase = "Bear"
	PhaseNeutral Phase = "Neutral"
)

// PhaseWeights returns indicator weights per regime
func PhaseWeights(p Phase) map[string]float64 {
	switch p {
	case PhaseBull:
		return map[string]float64{"RSI": 0.4, "MACD": 0.3, "MA": 0.2, "OBV": 0.1}
	case PhaseBear:
		return map[string]float64{"RSI": 0.1, "MACD": 0.2, "MA": 0.4, "OBV": 0.3}
	default:
		return map[string]float64{"RSI": 0.25, "MACD": 0.25, "MA": 0.25, "OBV": 0.25}
	}
}
