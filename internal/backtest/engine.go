// Package backtest replays strategies over price series, single runs through
// Engine and large randomised scenario sweeps through MassiveBacktester.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/performance"
	"github.com/wonny/quantlab/internal/stats"
	"github.com/wonny/quantlab/pkg/logger"
)

// ErrNoData is returned when a series is too short to trade
var ErrNoData = errors.New("backtest needs at least two bars")

// baseAllocation is the invested share of equity for a mid-risk user
const baseAllocation = 0.6

var sqrtTradingDays = math.Sqrt(performance.TradingDays)

// UserProfile sizes positions by risk appetite
type UserProfile struct {
	Name      string              `json:"name"`
	RiskLevel contracts.RiskLevel `json:"risk_level"`
}

// RiskMultiplier maps low/mid/high to 0.6/1.0/1.5
func (u UserProfile) RiskMultiplier() float64 {
	switch u.RiskLevel {
	case contracts.RiskLow:
		return 0.6
	case contracts.RiskHigh:
		return 1.5
	default:
		return 1.0
	}
}

// Allocation is the share of equity committed on a buy signal
func (u UserProfile) Allocation() float64 {
	return contracts.Clip(baseAllocation*u.RiskMultiplier(), 0, 1)
}

// Config holds backtest configuration
type Config struct {
	InitialCapital float64
	Commission     float64 // 수수료율 (예: 0.00015)
	Slippage       float64 // 슬리피지율 (예: 0.001)
	Profile        UserProfile
}

// DefaultConfig mirrors the BACKTEST_* defaults
func DefaultConfig() Config {
	return Config{
		InitialCapital: 10_000_000,
		Commission:     0.00015,
		Slippage:       0.001,
		Profile:        UserProfile{RiskLevel: contracts.RiskMid},
	}
}

// Result holds backtest results
type Result struct {
	Strategy    string              `json:"strategy"`
	Code        string              `json:"code"`
	StartDate   time.Time           `json:"start_date"`
	EndDate     time.Time           `json:"end_date"`
	Duration    time.Duration       `json:"duration"`
	FinalEquity float64             `json:"final_equity"`
	Metrics     performance.Metrics `json:"metrics"`
	Stats       Stats               `json:"stats"`
	Equity      []performance.Point `json:"equity"`
	Trades      []Trade             `json:"trades"`
}

// Engine runs single-strategy backtests
// ⭐ SSOT: 백테스팅 실행은 여기서만
type Engine struct {
	config Config
	logger *logger.Logger
}

// NewEngine creates a new backtest engine
func NewEngine(config Config, logger *logger.Logger) *Engine {
	return &Engine{config: config, logger: logger}
}

// Run replays strategy over series. Buy signals commit Allocation of
// equity, sell signals close the position.
func (e *Engine) Run(ctx context.Context, series *contracts.Series, strategy Strategy) (*Result, error) {
	if series == nil || series.Len() < 2 {
		return nil, ErrNoData
	}
	start := time.Now()

	sim := NewSimulator(e.config.InitialCapital, e.config.Commission, e.config.Slippage)
	signals := strategy.Signals(series)
	alloc := decimal.NewFromFloat(e.config.Profile.Allocation())

	res := &Result{
		Strategy:  strategy.Name(),
		Code:      series.Code,
		StartDate: series.Bars[0].Date,
		EndDate:   series.Bars[series.Len()-1].Date,
		Equity:    make([]performance.Point, 0, series.Len()),
	}

	for i, bar := range series.Bars {
		if i%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		prices := map[string]float64{series.Code: bar.Close}

		switch signals[i] {
		case SignalBuy:
			if _, held := sim.Position(series.Code); !held {
				budget := sim.Equity(prices).Mul(alloc)
				if qty := sim.MaxShares(bar.Close, budget); qty > 0 {
					if _, err := sim.Buy(bar.Date, series.Code, bar.Close, qty); err != nil {
						e.logger.WithError(err).Debug("Buy skipped")
					}
				}
			}
		case SignalSell:
			if pos, held := sim.Position(series.Code); held {
				if _, err := sim.Sell(bar.Date, series.Code, bar.Close, pos.Shares); err != nil {
					e.logger.WithError(err).Debug("Sell skipped")
				}
			}
		}

		eq, _ := sim.Equity(prices).Float64()
		res.Equity = append(res.Equity, performance.Point{Date: bar.Date, Value: eq})
	}

	m, err := performance.ComputePoints(res.Equity)
	if err != nil {
		return nil, fmt.Errorf("compute metrics: %w", err)
	}
	res.Metrics = m
	res.Stats = sim.Stats()
	res.Trades = sim.Trades()
	res.FinalEquity = res.Equity[len(res.Equity)-1].Value
	res.Duration = time.Since(start)

	e.logger.WithFields(map[string]interface{}{
		"strategy":     res.Strategy,
		"code":         res.Code,
		"total_return": m.CumulativeReturn,
		"sharpe":       m.Sharpe,
		"mdd":          m.MaxDrawdown,
		"trades":       res.Stats.TotalTrades,
	}).Info("Backtest completed")

	return res, nil
}

// UniverseSummary averages buy-and-hold statistics across tickers:
// mean daily return ×252, daily std ×√252 and MDD
type UniverseSummary struct {
	Strategy   string  `json:"strategy"`
	Return     float64 `json:"return"`
	Volatility float64 `json:"volatility"`
	MDD        float64 `json:"mdd"`
	Tickers    int     `json:"tickers"`
}

// SummarizeUniverse computes UniverseSummary; series shorter than two bars are skipped
func SummarizeUniverse(strategy string, universe []*contracts.Series) (UniverseSummary, error) {
	var rets, vols, mdds []float64
	for _, s := range universe {
		if s == nil || s.Len() < 2 {
			continue
		}
		r := s.Returns()
		rets = append(rets, stats.Mean(r)*performance.TradingDays)
		vols = append(vols, stats.StdDev(r)*sqrtTradingDays)
		mdds = append(mdds, stats.MaxDrawdown(s.Closes()))
	}
	if len(rets) == 0 {
		return UniverseSummary{}, ErrNoData
	}
	return UniverseSummary{
		Strategy:   strategy,
		Return:     stats.Mean(rets),
		Volatility: stats.Mean(vols),
		MDD:        stats.Mean(mdds),
		Tickers:    len(rets),
	}, nil
}
