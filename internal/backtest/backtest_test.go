package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/risk"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func seriesOf(closes ...float64) *contracts.Series {
	s := &contracts.Series{Code: "005930"}
	for i, c := range closes {
		s.Bars = append(s.Bars, contracts.Bar{Date: day0.AddDate(0, 0, i), Close: c, Volume: 1000})
	}
	return s
}

func TestSimulatorBuySell(t *testing.T) {
	sim := NewSimulator(1_000_000, 0.001, 0)

	_, err := sim.Buy(day0, "A", 10_000, 50)
	require.NoError(t, err)
	// 500,000 + 수수료 500
	assert.True(t, sim.Cash().Equal(decimal.NewFromInt(499_500)), "cash = %s", sim.Cash())

	pos, ok := sim.Position("A")
	require.True(t, ok)
	assert.True(t, pos.AvgPrice().Equal(decimal.NewFromInt(10_010)))

	tr, err := sim.Sell(day0.AddDate(0, 0, 1), "A", 11_000, 50)
	require.NoError(t, err)
	// 550,000 - 550 - 500,500
	assert.True(t, tr.PnL.Equal(decimal.NewFromInt(48_950)), "pnl = %s", tr.PnL)
	_, ok = sim.Position("A")
	assert.False(t, ok)

	st := sim.Stats()
	assert.Equal(t, 2, st.TotalTrades)
	assert.Equal(t, 1, st.WinningTrades)
	assert.InDelta(t, 1050, st.TotalCommission, 1e-9)

	_, err = sim.Sell(day0, "A", 1, 1)
	assert.True(t, errors.Is(err, ErrInsufficientShares))
	_, err = sim.Buy(day0, "B", 1_000_000, 10)
	assert.True(t, errors.Is(err, ErrInsufficientCash))
}

func TestSimulatorSlippageAndMaxShares(t *testing.T) {
	sim := NewSimulator(100_000, 0, 0.01)
	assert.Equal(t, int64(9), sim.MaxShares(10_000, decimal.NewFromInt(100_000)))

	tr, err := sim.Buy(day0, "A", 10_000, 9)
	require.NoError(t, err)
	assert.True(t, tr.Price.Equal(decimal.NewFromInt(10_100)))
	assert.True(t, sim.Equity(map[string]float64{"A": 10_000}).Equal(decimal.NewFromInt(100_000-90_900+90_000)))
}

func TestUserProfile(t *testing.T) {
	tests := []struct {
		level contracts.RiskLevel
		mult  float64
	}{
		{contracts.RiskLow, 0.6},
		{contracts.RiskMid, 1.0},
		{contracts.RiskHigh, 1.5},
		{"unknown", 1.0},
	}
	for _, tt := range tests {
		u := UserProfile{RiskLevel: tt.level}
		assert.Equal(t, tt.mult, u.RiskMultiplier(), string(tt.level))
		assert.LessOrEqual(t, u.Allocation(), 1.0)
	}
}

func TestEngineRun(t *testing.T) {
	cfg := Config{InitialCapital: 1_000_000, Profile: UserProfile{RiskLevel: contracts.RiskHigh}}
	e := NewEngine(cfg, logger.Nop())

	res, err := e.Run(context.Background(), seriesOf(100, 110, 121, 133.1), BuyAndHold{})
	require.NoError(t, err)
	assert.Equal(t, "buy_and_hold", res.Strategy)
	assert.Len(t, res.Equity, 4)
	assert.Equal(t, 1, res.Stats.TotalTrades)
	// 90% 투자 (0.6×1.5), 9000주 @100
	assert.InDelta(t, 100_000+9000*133.1, res.FinalEquity, 1e-6)
	assert.Greater(t, res.Metrics.CumulativeReturn, 0.2)

	_, err = e.Run(context.Background(), seriesOf(100), BuyAndHold{})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestMACrossoverSignals(t *testing.T) {
	closes := []float64{10, 10, 10, 10, 10, 10, 12, 14, 16, 14, 10, 8, 6}
	sig := MACrossover{Short: 2, Long: 4}.Signals(seriesOf(closes...))

	var buys, sells int
	for _, s := range sig {
		switch s {
		case SignalBuy:
			buys++
		case SignalSell:
			sells++
		}
	}
	assert.Equal(t, 1, buys)
	assert.Equal(t, 1, sells)

	_, err := StrategyByName("nope")
	assert.Error(t, err)
	s, err := StrategyByName("모멘텀")
	require.NoError(t, err)
	assert.Equal(t, "ma_cross_5_20", s.Name())
}

func TestSummarizeUniverse(t *testing.T) {
	sum, err := SummarizeUniverse("기본전략", []*contracts.Series{
		seriesOf(100, 110, 99),
		seriesOf(50, 50, 50),
		seriesOf(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Tickers)
	assert.InDelta(t, -0.05, sum.MDD, 1e-12)

	_, err = SummarizeUniverse("x", nil)
	assert.ErrorIs(t, err, ErrNoData)
}

func history() []float64 {
	out := make([]float64, 120)
	for i := range out {
		if i%3 == 0 {
			out[i] = -0.01
		} else {
			out[i] = 0.008
		}
	}
	return out
}

func TestMassiveBacktester(t *testing.T) {
	reg := metrics.New()
	engine := NewEngine(DefaultConfig(), logger.Nop())
	mb := NewMassiveBacktester(engine, BuyAndHold{}, history(), 4, reg, logger.Nop())

	scenarios := GenerateScenarios(40, 7, risk.MethodBootstrap)
	results, err := mb.Run(context.Background(), scenarios)
	require.NoError(t, err)
	require.Len(t, results, 40)
	for i, r := range results {
		assert.Equal(t, i, r.Scenario.ID, "results keep scenario order")
		assert.Contains(t, ScenarioDays, r.Scenario.Days)
		assert.Empty(t, r.Err)
		assert.Equal(t, Stability(r.Volatility, r.Return), r.Stability, "cv uses the cumulative return")
	}
	assert.Equal(t, 40.0, testutil.ToFloat64(reg.ScenariosTotal.WithLabelValues("ok")))

	again, err := NewMassiveBacktester(engine, BuyAndHold{}, history(), 1, nil, logger.Nop()).Run(context.Background(), scenarios)
	require.NoError(t, err)
	assert.Equal(t, results[3].Return, again[3].Return, "seeded scenarios are reproducible")

	sum := Summarize(results)
	assert.Equal(t, 40, sum.Runs)
	assert.LessOrEqual(t, sum.P5Return, sum.MedianReturn)

	top := Survival(results, 10)
	assert.LessOrEqual(t, len(top), 10)
	for i := 1; i < len(top); i++ {
		assert.GreaterOrEqual(t, top[i-1].Stability, top[i].Stability)
	}

	run := NewRun(BuyAndHold{}.Name(), results, 10)
	assert.NotEqual(t, run.ID.String(), "")
	assert.Equal(t, 40, run.Scenarios)
}

func TestMassiveBacktesterCancelled(t *testing.T) {
	engine := NewEngine(DefaultConfig(), logger.Nop())
	mb := NewMassiveBacktester(engine, BuyAndHold{}, history(), 2, nil, logger.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := mb.Run(ctx, GenerateScenarios(10, 1, risk.MethodGBM))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMassiveBacktesterRecordsFailures(t *testing.T) {
	engine := NewEngine(DefaultConfig(), logger.Nop())
	mb := NewMassiveBacktester(engine, BuyAndHold{}, []float64{0.01}, 2, nil, logger.Nop())

	results, err := mb.Run(context.Background(), GenerateScenarios(3, 1, risk.MethodBootstrap))
	require.NoError(t, err)
	assert.Len(t, Valid(results), 0)
	assert.Equal(t, 3, Summarize(results).Failed)
}

func TestStability(t *testing.T) {
	assert.InDelta(t, 0.5, Stability(0.2, 0.2-1e-6), 1e-9)
	assert.InDelta(t, 1.0, Stability(0, 0.1), 1e-12)
}
