package risk

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/quantlab/internal/stats"
)

// PathGenerator draws synthetic daily return paths from a historical sample
type PathGenerator struct {
	method  PathMethod
	history []float64
	mu      float64 // 일간 log 수익률 평균
	sigma   float64 // 일간 log 수익률 표준편차
}

// NewPathGenerator prepares a generator for method over history (daily simple returns)
func NewPathGenerator(method PathMethod, history []float64) (*PathGenerator, error) {
	if len(history) < 2 {
		return nil, fmt.Errorf("%w: got %d returns", ErrInsufficientData, len(history))
	}
	g := &PathGenerator{method: method, history: history}
	switch method {
	case MethodBootstrap:
	case MethodGBM:
		logs := make([]float64, len(history))
		for i, r := range history {
			logs[i] = math.Log1p(r)
		}
		g.mu, g.sigma = stats.Mean(logs), stats.StdDev(logs)
	default:
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidConfig, method)
	}
	return g, nil
}

// Path returns days simple returns drawn with rng
func (g *PathGenerator) Path(rng *rand.Rand, days int) []float64 {
	out := make([]float64, days)
	for i := range out {
		if g.method == MethodGBM {
			// log 수익률 ~ N(μ, σ²)
			out[i] = math.Expm1(g.mu + g.sigma*rng.NormFloat64())
		} else {
			out[i] = g.history[rng.Intn(len(g.history))]
		}
	}
	return out
}

// MonteCarloSimulator simulates holding-period returns
type MonteCarloSimulator struct {
	config MonteCarloConfig
	rng    *rand.Rand
}

// NewMonteCarloSimulator 새 시뮬레이터 생성
func NewMonteCarloSimulator(config MonteCarloConfig) *MonteCarloSimulator {
	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MonteCarloSimulator{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Simulate compounds HoldingPeriod draws NumSimulations times
func (mc *MonteCarloSimulator) Simulate(ctx context.Context, returns []float64) (*MonteCarloResult, error) {
	gen, err := NewPathGenerator(mc.config.Method, returns)
	if err != nil {
		return nil, err
	}

	results := make([]float64, mc.config.NumSimulations)
	for i := range results {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cum := 1.0
		for _, r := range gen.Path(mc.rng, mc.config.HoldingPeriod) {
			cum *= 1 + r
		}
		results[i] = cum - 1
	}

	res := summarize(results)
	res.Config = mc.config
	res.Samples = len(returns)
	return res, nil
}

func summarize(results []float64) *MonteCarloResult {
	v95 := CalculateVaR(results, 0.95)
	v99 := CalculateVaR(results, 0.99)
	sorted := stats.Sorted(results)

	pct := map[int]float64{}
	for _, p := range []int{1, 5, 25, 50, 75, 95, 99} {
		pct[p] = stats.Percentile(sorted, float64(p))
	}

	return &MonteCarloResult{
		RunID:       uuid.New().String(),
		MeanReturn:  stats.Mean(results),
		StdDev:      stats.StdDev(results),
		VaR95:       v95.VaR,
		VaR99:       v99.VaR,
		CVaR95:      v95.CVaR,
		CVaR99:      v99.CVaR,
		Percentiles: pct,
	}
}
