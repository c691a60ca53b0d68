package scenario

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/performance"
	"github.com/wonny/quantlab/internal/risk"
)

var (
	// ErrNoStrategies is returned when a mix has nothing to combine
	ErrNoStrategies = errors.New("no strategies to mix")
	// ErrBadStep is returned when the grid step does not divide 1
	ErrBadStep = errors.New("grid step must divide 1 into 2..100 parts")
)

// DefaultGridStep is the weight increment used by Optimize
const DefaultGridStep = 0.1

// MixResult is one weighted combination of strategies
type MixResult struct {
	Weights    map[string]float64  `json:"weights"`
	Cumulative []float64           `json:"cumulative"` // 누적 수익률, 0 시작
	Metrics    performance.Metrics `json:"metrics"`
}

// MixSimulator combines strategy return series with weights
type MixSimulator struct {
	returns map[string][]float64
	names   []string
}

// NewMixSimulator creates a simulator over per-strategy daily returns
func NewMixSimulator(returns map[string][]float64) (*MixSimulator, error) {
	if len(returns) == 0 {
		return nil, ErrNoStrategies
	}
	names := make([]string, 0, len(returns))
	for n, r := range returns {
		if len(r) < 2 {
			return nil, fmt.Errorf("strategy %s: %w", n, performance.ErrInsufficientData)
		}
		names = append(names, n)
	}
	sort.Strings(names)
	return &MixSimulator{returns: returns, names: names}, nil
}

// Names returns the strategy names in sorted order
func (m *MixSimulator) Names() []string {
	return append([]string(nil), m.names...)
}

// Simulate combines the series with the given weights over their common length
func (m *MixSimulator) Simulate(weights map[string]float64) (*MixResult, error) {
	for n := range weights {
		if _, ok := m.returns[n]; !ok {
			return nil, fmt.Errorf("unknown strategy %q", n)
		}
	}
	combined := risk.PortfolioReturns(weights, m.returns)
	if len(combined) < 2 {
		return nil, performance.ErrInsufficientData
	}

	equity := contracts.Equity(combined)
	metrics, err := performance.Compute(equity)
	if err != nil {
		return nil, err
	}
	cum := make([]float64, len(equity))
	for i, v := range equity {
		cum[i] = v - 1
	}
	return &MixResult{Weights: copyWeights(weights), Cumulative: cum, Metrics: metrics}, nil
}

// Equal is the 1/n allocation
func (m *MixSimulator) Equal() map[string]float64 {
	w := make(map[string]float64, len(m.names))
	for _, n := range m.names {
		w[n] = 1 / float64(len(m.names))
	}
	return w
}

// Optimize grid-searches weights in multiples of step (summing to 1) and
// returns the mix with the highest Sharpe. Ties keep the first grid point.
func (m *MixSimulator) Optimize(step float64) (*MixResult, error) {
	if step <= 0 {
		return nil, ErrBadStep
	}
	parts := int(math.Round(1 / step))
	if parts < 2 || parts > 100 || math.Abs(float64(parts)*step-1) > 1e-9 {
		return nil, ErrBadStep
	}

	var best *MixResult
	units := make([]int, len(m.names))
	var walk func(i, left int) error
	walk = func(i, left int) error {
		if i == len(m.names)-1 {
			units[i] = left
			w := make(map[string]float64, len(m.names))
			for k, n := range m.names {
				w[n] = float64(units[k]) / float64(parts)
			}
			res, err := m.Simulate(w)
			if err != nil {
				return err
			}
			if best == nil || res.Metrics.Sharpe > best.Metrics.Sharpe {
				best = res
			}
			return nil
		}
		for u := 0; u <= left; u++ {
			units[i] = u
			if err := walk(i+1, left-u); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(0, parts); err != nil {
		return nil, err
	}
	return best, nil
}

func copyWeights(w map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}
