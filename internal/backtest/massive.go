package backtest

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/risk"
	"github.com/wonny/quantlab/internal/stats"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

// ScenarioDays are the horizons a scenario may draw (1~3년)
var ScenarioDays = []int{252, 504, 756}

// Scenario is one randomised market path
type Scenario struct {
	ID   int             `json:"id"`
	Seed int64           `json:"seed"`
	Days int             `json:"days"`
	Mode risk.PathMethod `json:"mode"`
}

// ScenarioResult is the outcome of one scenario
type ScenarioResult struct {
	Scenario   Scenario `json:"scenario"`
	Return     float64  `json:"return"`     // 누적 수익률
	Annualized float64  `json:"annualized"` // 연환산
	Volatility float64  `json:"volatility"`
	MDD        float64  `json:"mdd"`
	Sharpe     float64  `json:"sharpe"`
	Stability  float64  `json:"stability"`
	Err        string   `json:"error,omitempty"`
}

// GenerateScenarios draws n scenarios from seed
func GenerateScenarios(n int, seed int64, mode risk.PathMethod) []Scenario {
	rng := rand.New(rand.NewSource(seed))
	out := make([]Scenario, n)
	for i := range out {
		out[i] = Scenario{
			ID:   i,
			Seed: rng.Int63n(1_000_000),
			Days: ScenarioDays[rng.Intn(len(ScenarioDays))],
			Mode: mode,
		}
	}
	return out
}

// MassiveBacktester replays a strategy over many synthetic paths in parallel
type MassiveBacktester struct {
	engine   *Engine
	strategy Strategy
	history  []float64 // 기준 일간 수익률
	workers  int
	metrics  *metrics.Registry
	logger   *logger.Logger
}

// NewMassiveBacktester creates a runner. workers <= 0 uses the CPU count.
func NewMassiveBacktester(engine *Engine, strategy Strategy, history []float64, workers int, reg *metrics.Registry, log *logger.Logger) *MassiveBacktester {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &MassiveBacktester{
		engine:   engine,
		strategy: strategy,
		history:  history,
		workers:  workers,
		metrics:  reg,
		logger:   log,
	}
}

// Run executes scenarios on a bounded pool. Results keep the scenario order;
// a failing scenario is recorded with Err and does not stop the run.
// ctx 취소 시 남은 시나리오는 실행하지 않고 ctx 에러 반환
func (m *MassiveBacktester) Run(ctx context.Context, scenarios []Scenario) ([]ScenarioResult, error) {
	start := time.Now()
	results := make([]ScenarioResult, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)

	for i, sc := range scenarios {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t0 := time.Now()
			res, err := m.runOne(gctx, sc)
			m.metrics.ObserveScenario(time.Since(t0), err)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res = ScenarioResult{Scenario: sc, Err: err.Error()}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.logger.WithFields(map[string]interface{}{
		"scenarios": len(scenarios),
		"valid":     len(Valid(results)),
		"workers":   m.workers,
		"elapsed":   time.Since(start).String(),
	}).Info("Massive backtest completed")

	return results, nil
}

func (m *MassiveBacktester) runOne(ctx context.Context, sc Scenario) (ScenarioResult, error) {
	gen, err := risk.NewPathGenerator(sc.Mode, m.history)
	if err != nil {
		return ScenarioResult{}, err
	}
	rng := rand.New(rand.NewSource(sc.Seed))
	series := SyntheticSeries(fmt.Sprintf("SC%06d", sc.ID), gen.Path(rng, sc.Days), time.Date(2000, 1, 3, 0, 0, 0, 0, time.UTC))

	res, err := m.engine.Run(ctx, series, m.strategy)
	if err != nil {
		return ScenarioResult{}, err
	}
	out := ScenarioResult{
		Scenario:   sc,
		Return:     res.Metrics.CumulativeReturn,
		Annualized: res.Metrics.AnnualizedReturn,
		Volatility: res.Metrics.Volatility,
		MDD:        res.Metrics.MaxDrawdown,
		Sharpe:     res.Metrics.Sharpe,
	}
	out.Stability = Stability(out.Volatility, out.Return)
	return out, nil
}

// SyntheticSeries compounds daily returns from a 100 base into a weekday-dated Series
func SyntheticSeries(code string, returns []float64, start time.Time) *contracts.Series {
	s := &contracts.Series{Code: code, Bars: make([]contracts.Bar, 0, len(returns)+1)}
	price := 100.0
	date := start
	s.Bars = append(s.Bars, contracts.Bar{Date: date, Open: price, High: price, Low: price, Close: price, Volume: 1})
	for _, r := range returns {
		date = nextWeekday(date)
		price *= 1 + r
		s.Bars = append(s.Bars, contracts.Bar{Date: date, Open: price, High: price, Low: price, Close: price, Volume: 1})
	}
	return s
}

func nextWeekday(d time.Time) time.Time {
	d = d.AddDate(0, 0, 1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// Stability is 1/(1+cv) with cv = vol/(ret+1e-6). ret is the cumulative
// return of the run, not the annualized one.
func Stability(vol, ret float64) float64 {
	return 1 / (1 + vol/(ret+1e-6))
}

// Valid drops failed scenarios
func Valid(results []ScenarioResult) []ScenarioResult {
	out := make([]ScenarioResult, 0, len(results))
	for _, r := range results {
		if r.Err == "" {
			out = append(out, r)
		}
	}
	return out
}

// Summary describes the distribution of scenario outcomes
type Summary struct {
	Runs           int     `json:"runs"`
	Failed         int     `json:"failed"`
	MeanReturn     float64 `json:"mean_return"`
	MedianReturn   float64 `json:"median_return"`
	MeanMDD        float64 `json:"mean_mdd"`
	MeanVolatility float64 `json:"mean_volatility"`
	MeanStability  float64 `json:"mean_stability"`
	P5Return       float64 `json:"p5_return"` // VaR 관점의 하위 5% 수익률
	CVaR           float64 `json:"cvar"`      // 하위 5% 평균 손실 (양수)
}

// Summarize aggregates valid results
func Summarize(results []ScenarioResult) Summary {
	valid := Valid(results)
	s := Summary{Runs: len(valid), Failed: len(results) - len(valid)}
	if len(valid) == 0 {
		return s
	}

	var rets, mdds, vols, stab []float64
	for _, r := range valid {
		rets = append(rets, r.Return)
		mdds = append(mdds, r.MDD)
		vols = append(vols, r.Volatility)
		stab = append(stab, r.Stability)
	}
	s.MeanReturn = stats.Mean(rets)
	s.MedianReturn = stats.Median(rets)
	s.MeanMDD = stats.Mean(mdds)
	s.MeanVolatility = stats.Mean(vols)
	s.MeanStability = stats.Mean(stab)
	s.P5Return = stats.Percentile(stats.Sorted(rets), 5)
	s.CVaR = risk.CalculateVaR(rets, 0.95).CVaR
	return s
}

// Survival keeps scenarios with a positive return and MDD above -50% and
// returns the top n by stability
func Survival(results []ScenarioResult, n int) []ScenarioResult {
	var out []ScenarioResult
	for _, r := range Valid(results) {
		if r.Return > 0 && r.MDD > -0.5 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Stability > out[j].Stability })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Run is a persisted massive backtest
type Run struct {
	ID        uuid.UUID        `json:"id"`
	Strategy  string           `json:"strategy"`
	Scenarios int              `json:"scenarios"`
	Summary   Summary          `json:"summary"`
	Survivors []ScenarioResult `json:"survivors"`
	CreatedAt time.Time        `json:"created_at"`
}

// NewRun packages results for storage
func NewRun(strategy string, results []ScenarioResult, top int) Run {
	return Run{
		ID:        uuid.New(),
		Strategy:  strategy,
		Scenarios: len(results),
		Summary:   Summarize(results),
		Survivors: Survival(results, top),
		CreatedAt: time.Now(),
	}
}
