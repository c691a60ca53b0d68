package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/internal/brain"
	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/monitor"
	"github.com/wonny/quantlab/internal/portfolio"
	"github.com/wonny/quantlab/pkg/logger"
)

var now = time.Date(2025, 7, 1, 16, 0, 0, 0, time.UTC)

type fakeUniverse struct {
	stocks map[string][]string
	err    error
}

func (f *fakeUniverse) Universe(ctx context.Context, market string, n int) ([]contracts.StockInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []contracts.StockInfo
	for _, c := range f.stocks[market] {
		out = append(out, contracts.StockInfo{Code: c, Market: market})
	}
	return out, nil
}

type fakePrices struct {
	mu    sync.Mutex
	calls map[string][]time.Time // code → from
}

func (f *fakePrices) FetchSeries(ctx context.Context, code string, from, to time.Time) (*contracts.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string][]time.Time)
	}
	f.calls[code] = append(f.calls[code], from)
	if code == "BAD" {
		return nil, errors.New("no data")
	}
	return &contracts.Series{Code: code}, nil
}

func TestPriceCollectionJob(t *testing.T) {
	u := &fakeUniverse{stocks: map[string][]string{
		"KOSPI":  {"005930", "000660", "BAD"},
		"KOSDAQ": {"247540", "005930"},
	}}
	p := &fakePrices{}
	job := NewPriceCollectionJob(u, p, []string{"KOSPI", "KOSDAQ"}, 10, 3, logger.Nop())
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	assert.Len(t, p.calls, 4, "duplicates collapse")
	assert.Len(t, p.calls["005930"], len(DefaultWindows))
	assert.Len(t, p.calls["BAD"], 1, "stops at the first failed window")
	assert.Equal(t, now.AddDate(0, -6, 0), p.calls["000660"][0])
	assert.Equal(t, "price_collection", job.Name())
	assert.Equal(t, "0 0 16 * * 1-5", job.Schedule())
}

func TestPriceCollectionJobFailures(t *testing.T) {
	tests := []struct {
		name    string
		u       *fakeUniverse
		wantErr string
	}{
		{"universe error", &fakeUniverse{err: errors.New("naver down")}, "universe KOSPI"},
		{"empty universe", &fakeUniverse{}, "empty universe"},
		{"all fetches fail", &fakeUniverse{stocks: map[string][]string{"KOSPI": {"BAD"}}}, "failed for all 1 stocks"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := NewPriceCollectionJob(tt.u, &fakePrices{}, []string{"KOSPI"}, 10, 0, nil)
			assert.ErrorContains(t, job.Run(context.Background()), tt.wantErr)
		})
	}
}

type fakeReadings struct {
	r   monitor.Reading
	err error
}

func (f *fakeReadings) Reading(ctx context.Context, userID string) (monitor.Reading, error) {
	return f.r, f.err
}

type recordingNotifier struct {
	got []contracts.Alert
}

func (r *recordingNotifier) Notify(_ context.Context, a contracts.Alert) error {
	r.got = append(r.got, a)
	return nil
}

func TestMonitorJobHedge(t *testing.T) {
	n := &recordingNotifier{}
	m := monitor.New(monitor.ModeBeginner, nil, nil, nil, n)
	job := NewMonitorJob(&fakeReadings{r: monitor.Reading{At: now, KOSPIChangePct: -4}}, m, "u1", nil)

	assert.Nil(t, job.Last())
	require.NoError(t, job.Run(context.Background()))

	rep := job.Last()
	require.NotNil(t, rep)
	assert.Equal(t, "emergency", rep.Status)
	require.NotEmpty(t, n.got)
	assert.Equal(t, "hedge", n.got[0].Kind)
}

func TestMonitorJobReadingError(t *testing.T) {
	m := monitor.New(monitor.ModeExpert, nil, nil, nil)
	job := NewMonitorJob(&fakeReadings{err: brain.ErrNoStore}, m, "u1", nil)

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, brain.ErrNoStore)
	assert.Nil(t, job.Last())
}

type fakePortfolios struct {
	calls int
	err   error
}

func (f *fakePortfolios) RecommendPortfolio(ctx context.Context, req brain.PortfolioRequest) (*portfolio.Portfolio, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &portfolio.Portfolio{
		Mode:      req.Mode,
		Positions: []portfolio.Position{{Code: req.Codes[0], Weight: 0.5}, {Code: req.Codes[1], Weight: 0.45}},
		Cash:      0.05,
	}, nil
}

func staticCodes(codes ...string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) { return codes, nil }
}

func TestRebalanceJob(t *testing.T) {
	fp := &fakePortfolios{}
	rb := monitor.NewRebalancer(true, 7*24*time.Hour)
	job := NewRebalanceJob(fp, rb, portfolio.ModeStable, staticCodes("005930", "000660"), nil)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, map[string]float64{"005930": 0.5, "000660": 0.45, "CASH": 0.05}, job.Weights())

	// 같은 날 재실행: 주기 미도래
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 1, fp.calls)

	job.now = func() time.Time { return now.AddDate(0, 0, 7) }
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 2, fp.calls)
}

type fakeTargets struct {
	saved []*portfolio.Portfolio
	err   error
}

func (f *fakeTargets) Save(ctx context.Context, p *portfolio.Portfolio) error {
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, p)
	return nil
}

func TestRebalanceJobSavesTargets(t *testing.T) {
	ft := &fakeTargets{}
	rb := monitor.NewRebalancer(true, 7*24*time.Hour)
	job := NewRebalanceJob(&fakePortfolios{}, rb, portfolio.ModeAggressive, staticCodes("005930", "000660"), nil).
		WithTargets(ft)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, ft.saved, 1)
	assert.Equal(t, portfolio.ModeAggressive, ft.saved[0].Mode)

	// 저장 실패는 작업 실패로 보고
	ft.err = errors.New("db down")
	job.now = func() time.Time { return now.AddDate(0, 0, 7) }
	assert.ErrorContains(t, job.Run(context.Background()), "save target")
}

func TestRebalanceJobFailureKeepsWeights(t *testing.T) {
	fp := &fakePortfolios{err: errors.New("no candidate could be scored")}
	rb := monitor.NewRebalancer(true, 0)
	job := NewRebalanceJob(fp, rb, portfolio.ModeBalanced, staticCodes("005930", "000660"), nil)
	job.now = func() time.Time { return now }

	assert.Error(t, job.Run(context.Background()))
	assert.Empty(t, job.Weights())
	assert.True(t, rb.Due(now), "failed run does not advance the schedule")

	empty := NewRebalanceJob(fp, rb, portfolio.ModeBalanced, staticCodes(), nil)
	assert.ErrorContains(t, empty.Run(context.Background()), "no candidates")

	off := NewRebalanceJob(fp, monitor.NewRebalancer(false, 0), portfolio.ModeBalanced, staticCodes("005930"), nil)
	assert.NoError(t, off.Run(context.Background()))
}
