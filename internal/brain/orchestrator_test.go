package brain

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/internal/backtest"
	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/external/dart"
	"github.com/wonny/quantlab/internal/external/krx"
	"github.com/wonny/quantlab/internal/portfolio"
	"github.com/wonny/quantlab/internal/store"
	"github.com/wonny/quantlab/internal/timing"
	"github.com/wonny/quantlab/pkg/config"
)

var now = time.Date(2025, 7, 1, 16, 0, 0, 0, time.UTC)

type fakeSources struct{}

func wave(code string, n int, phase float64) *contracts.Series {
	s := &contracts.Series{Code: code}
	start := now.AddDate(0, 0, -n)
	for i := 0; i < n; i++ {
		c := 10000 * (1 + 0.001*float64(i) + 0.03*math.Sin(float64(i)/7+phase))
		s.Bars = append(s.Bars, contracts.Bar{
			Date: start.AddDate(0, 0, i), Open: c, High: c * 1.01, Low: c * 0.99, Close: c, Volume: 1000 + float64(i%10)*100,
		})
	}
	return s
}

func (f *fakeSources) FetchSeries(ctx context.Context, code string, from, to time.Time) (*contracts.Series, error) {
	if code == "BAD" {
		return nil, errors.New("no such stock")
	}
	return wave(code, 300, float64(len(code))), nil
}

func (f *fakeSources) FetchStockInfo(ctx context.Context, code string) (*contracts.StockInfo, error) {
	if code == "BAD" {
		return nil, errors.New("no such stock")
	}
	return &contracts.StockInfo{Code: code, Name: "종목" + code, Market: "KOSPI", MarketCap: 1500, DividendYield: 0.02}, nil
}

func (f *fakeSources) FetchFinancials(ctx context.Context, code string, fromYear, toYear int) ([]contracts.Financials, error) {
	return []contracts.Financials{
		{Year: toYear - 1, Revenue: 900, NetIncome: 90, TotalEquity: 900, TotalAssets: 1500, TotalLiabilities: 600},
		{Year: toYear, Revenue: 1000, NetIncome: 100, TotalEquity: 1000, TotalAssets: 1600, TotalLiabilities: 600,
			CurrentAssets: 500, CurrentLiabilities: 250},
	}, nil
}

func (f *fakeSources) FetchDisclosures(ctx context.Context, code string, from, to time.Time) ([]dart.Disclosure, error) {
	return []dart.Disclosure{{CorpName: "종목" + code, ReportNm: "무상증자결정(성장 재원 확보)"}}, nil
}

func (f *fakeSources) FetchIndexQuote(ctx context.Context, index string) (*krx.IndexQuote, error) {
	return &krx.IndexQuote{Index: index, Close: 2500, ChangePct: -1.5}, nil
}

// rangeRecorder remembers the lookback (months) of every price fetch
type rangeRecorder struct {
	fakeSources
	mu     sync.Mutex
	months map[int]bool
}

func (r *rangeRecorder) FetchSeries(ctx context.Context, code string, from, to time.Time) (*contracts.Series, error) {
	r.mu.Lock()
	for m := 1; m <= 120; m++ {
		if to.AddDate(0, -m, 0).Equal(from) {
			r.months[m] = true
		}
	}
	r.mu.Unlock()
	return r.fakeSources.FetchSeries(ctx, code, from, to)
}

func newOrchestrator(t *testing.T, st *store.Store) *Orchestrator {
	t.Helper()
	f := &fakeSources{}
	src := Sources{Prices: f, Info: f, Financials: f, Disclosures: f, Index: f}
	o := NewOrchestrator(src, st, config.BacktestConfig{Workers: 2, Scenarios: 4}, nil, nil)
	o.now = func() time.Time { return now }
	return o
}

func TestFundamentalFillsMultiples(t *testing.T) {
	o := newOrchestrator(t, nil)

	rep, err := o.Fundamental(context.Background(), "005930", 2)
	require.NoError(t, err)
	assert.InDelta(t, 15, rep.PER, 1e-9, "market cap / net income")
	assert.InDelta(t, 1.5, rep.PBR, 1e-9)
	assert.InDelta(t, 0.1, rep.ROE, 1e-9)
}

func TestSignalsAndTiming(t *testing.T) {
	o := newOrchestrator(t, nil)
	ctx := context.Background()

	sig, err := o.Signals(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, "005930", sig.Code)
	assert.Greater(t, sig.Sentiment, 0.0, "growth filing reads positive")

	tr, err := o.Timing(ctx, "005930", "")
	require.NoError(t, err)
	assert.Equal(t, "005930", tr.Code)
	assert.NotEmpty(t, tr.Weights)

	_, err = o.Timing(ctx, "BAD", timing.PhaseBull)
	assert.Error(t, err)
}

func TestSeriesReadsWarmedWindows(t *testing.T) {
	rec := &rangeRecorder{months: map[int]bool{}}
	src := Sources{Prices: rec, Info: rec, Financials: rec}
	o := NewOrchestrator(src, nil, config.BacktestConfig{Workers: 2, Scenarios: 2}, nil, nil)
	o.now = func() time.Time { return now }
	ctx := context.Background()

	_, err := o.Signals(ctx, "005930")
	require.NoError(t, err)
	_, err = o.Timing(ctx, "005930", "")
	require.NoError(t, err)
	for _, years := range []int{0, 1, 2, 3} {
		_, err = o.Backtest(ctx, "005930", "buy_and_hold", years, "")
		require.NoError(t, err)
	}
	_, err = o.MassiveBacktest(ctx, MassiveRequest{Code: "005930", Seed: 1})
	require.NoError(t, err)

	warm := map[int]bool{}
	for _, w := range contracts.WarmWindows {
		warm[w] = true
	}
	require.NotEmpty(t, rec.months)
	for m := range rec.months {
		assert.True(t, warm[m], "lookback %d months is not warmed", m)
	}
}

func TestBacktestMonths(t *testing.T) {
	tests := []struct {
		years int
		want  int
	}{
		{0, contracts.BacktestWindow},
		{1, contracts.SignalsWindow},
		{2, contracts.TimingWindow},
		{3, contracts.BacktestWindow},
		{5, 60},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, backtestMonths(tt.years), "years %d", tt.years)
	}
}

func TestBacktestUnknownStrategy(t *testing.T) {
	o := newOrchestrator(t, nil)

	res, err := o.Backtest(context.Background(), "005930", "buy_and_hold", 1, contracts.RiskHigh)
	require.NoError(t, err)
	assert.Equal(t, "005930", res.Code)

	_, err = o.Backtest(context.Background(), "005930", "nope", 1, "")
	assert.ErrorContains(t, err, "unknown strategy")
}

func TestUniverse(t *testing.T) {
	o := newOrchestrator(t, nil)
	ctx := context.Background()

	sum, err := o.Universe(ctx, "buy_and_hold", []string{"005930", "BAD", "000660"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Tickers, "failed code is skipped")
	assert.Equal(t, "buy_and_hold", sum.Strategy)
	assert.LessOrEqual(t, sum.MDD, 0.0)

	_, err = o.Universe(ctx, "buy_and_hold", []string{"BAD"}, 1)
	assert.ErrorIs(t, err, backtest.ErrNoData)

	_, err = o.Universe(ctx, "nope", []string{"005930"}, 1)
	assert.ErrorContains(t, err, "unknown strategy")
}

func TestMassiveBacktestSavesRun(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO quantlab.backtest_runs").
		WithArgs(pgxmock.AnyArg(), "buy_and_hold", 4, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	o := newOrchestrator(t, store.New(mock))
	run, err := o.MassiveBacktest(context.Background(), MassiveRequest{Code: "005930", Seed: 7, Top: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, run.Scenarios, "config default")
	assert.LessOrEqual(t, len(run.Survivors), 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecommendPortfolioSkipsBadCodes(t *testing.T) {
	o := newOrchestrator(t, nil)

	p, err := o.RecommendPortfolio(context.Background(), PortfolioRequest{
		Mode:      portfolio.ModeAIOpt,
		Codes:     []string{"005930", "BAD", "000660"},
		Weighting: portfolio.WeightCorrelation,
	})
	require.NoError(t, err)
	require.Len(t, p.Positions, 2)
	for _, pos := range p.Positions {
		assert.NotEqual(t, "BAD", pos.Code)
		assert.LessOrEqual(t, pos.Weight, 0.2+1e-9)
	}

	_, err = o.RecommendPortfolio(context.Background(), PortfolioRequest{Codes: []string{"BAD"}})
	assert.ErrorContains(t, err, "no candidate could be scored")
}

func TestReading(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("FROM quantlab.user_history").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"recorded_at", "strategy", "value", "return_pct"}).
			AddRow(now.AddDate(0, 0, -2), "momentum", 100.0, 0.0).
			AddRow(now.AddDate(0, 0, -1), "momentum", 110.0, 10.0).
			AddRow(now, "momentum", 99.0, -10.0))
	mock.ExpectQuery("FROM quantlab.backtest_runs").
		WithArgs("momentum", 1).
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "strategy", "scenarios", "summary", "survivors", "created_at"}).
			AddRow(uuid.New(), "momentum", 10, []byte(`{"median_return":0.05}`), []byte(`[]`), now))

	o := newOrchestrator(t, store.New(mock))
	r, err := o.Reading(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, -10.0, r.ReturnPct)
	assert.InDelta(t, -10, r.ExpectedMDD, 1e-9)
	assert.InDelta(t, -10, r.DrawdownPct, 1e-9)
	assert.InDelta(t, -6, r.BacktestGap, 1e-9)
	assert.Equal(t, -1.5, r.KOSPIChangePct)
	assert.InDelta(t, 0.085, r.TrackingError, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadingWithoutStore(t *testing.T) {
	o := newOrchestrator(t, nil)
	_, err := o.Reading(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestAlignTails(t *testing.T) {
	got := alignTails([][]float64{{1, 2, 3}, {4, 5}})
	assert.Equal(t, [][]float64{{2, 3}, {4, 5}}, got)
}
