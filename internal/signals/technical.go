package signals

import (
	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/indicators"
	"github.com/wonny/quantlab/pkg/logger"
)

// TechnicalSnapshot is the latest indicator state of a series
type TechnicalSnapshot struct {
	MAShort    float64 `json:"ma_short"`
	MALong     float64 `json:"ma_long"`
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	Cross      int     `json:"cross"` // 1 골든크로스, -1 데드크로스
}

// CrossLabel returns the Korean label for the MA cross
func (t TechnicalSnapshot) CrossLabel() string {
	switch t.Cross {
	case 1:
		return "골든크로스"
	case -1:
		return "데드크로스"
	default:
		return "없음"
	}
}

// TechnicalConfig holds indicator periods
type TechnicalConfig struct {
	ShortMA    int
	LongMA     int
	RSIPeriod  int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultTechnicalConfig uses MA 20/60, RSI 14 and MACD 12/26/9
func DefaultTechnicalConfig() TechnicalConfig {
	return TechnicalConfig{ShortMA: 20, LongMA: 60, RSIPeriod: 14, MACDFast: 12, MACDSlow: 26, MACDSignal: 9}
}

// TechnicalCalculator scores price action
// ⭐ SSOT: 기술적 점수 계산은 여기서만
type TechnicalCalculator struct {
	cfg    TechnicalConfig
	logger *logger.Logger
}

// NewTechnicalCalculator creates a technical calculator
func NewTechnicalCalculator(cfg TechnicalConfig, log *logger.Logger) *TechnicalCalculator {
	if log == nil {
		log = logger.Nop()
	}
	return &TechnicalCalculator{cfg: cfg, logger: log}
}

// Snapshot computes the indicators on the closes of s
func (c *TechnicalCalculator) Snapshot(s *contracts.Series) (TechnicalSnapshot, error) {
	if s.Len() == 0 {
		return TechnicalSnapshot{}, contracts.ErrEmptySeries
	}
	closes := s.Closes()

	short := indicators.SMA(closes, c.cfg.ShortMA)
	long := indicators.SMA(closes, c.cfg.LongMA)
	rsi := indicators.RSI(closes, c.cfg.RSIPeriod)
	macd := indicators.MACD(closes, c.cfg.MACDFast, c.cfg.MACDSlow, c.cfg.MACDSignal)

	snap := TechnicalSnapshot{
		MAShort:    indicators.Last(short, 0),
		MALong:     indicators.Last(long, 0),
		RSI:        indicators.Last(rsi, indicators.NeutralRSI),
		MACD:       indicators.Last(macd.MACD, 0),
		MACDSignal: indicators.Last(macd.Signal, 0),
		Cross:      indicators.Cross(short, long),
	}

	c.logger.WithFields(map[string]interface{}{
		"code":  s.Code,
		"rsi":   snap.RSI,
		"macd":  snap.MACD,
		"cross": snap.Cross,
	}).Debug("Calculated technical snapshot")

	return snap, nil
}

// Score turns a snapshot into 0..100.
// 기본 50, 크로스 ±20, RSI 과매도 +10 / 과매수 -10,
// MACD > 시그널이면 +10, 아니면 (같을 때 포함) -10
func (c *TechnicalCalculator) Score(snap TechnicalSnapshot) float64 {
	score := 50.0

	score += 20 * float64(snap.Cross)

	switch {
	case snap.RSI < 30:
		score += 10
	case snap.RSI > 70:
		score -= 10
	}

	if snap.MACD-snap.MACDSignal > 0 {
		score += 10
	} else {
		score -= 10
	}

	return contracts.Clip(score, 0, 100)
}
