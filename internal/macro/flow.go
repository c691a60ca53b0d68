package macro

import (
	"sort"
)

// Regime is a forward-looking market direction
type Regime string

const (
	RegimeUp   Regime = "up"
	RegimeFlat Regime = "flat"
	RegimeDown Regime = "down"
)

// Regimes lists regimes in display order
var Regimes = []Regime{RegimeUp, RegimeFlat, RegimeDown}

// DefaultRegimeThreshold separates up/down from flat returns
const DefaultRegimeThreshold = 0.01

// Classify labels each return as up (> thr), down (< -thr) or flat
func Classify(returns []float64, threshold float64) []Regime {
	out := make([]Regime, len(returns))
	for i, r := range returns {
		switch {
		case r > threshold:
			out[i] = RegimeUp
		case r < -threshold:
			out[i] = RegimeDown
		default:
			out[i] = RegimeFlat
		}
	}
	return out
}

// Probabilities holds the frequency of each regime; they sum to 1
type Probabilities struct {
	Up   float64 `json:"up"`
	Flat float64 `json:"flat"`
	Down float64 `json:"down"`
}

// Of returns the probability of r
func (p Probabilities) Of(r Regime) float64 {
	switch r {
	case RegimeUp:
		return p.Up
	case RegimeDown:
		return p.Down
	default:
		return p.Flat
	}
}

// Most returns the most likely regime (ties resolve up, flat, down)
func (p Probabilities) Most() Regime {
	best := RegimeUp
	for _, r := range Regimes[1:] {
		if p.Of(r) > p.Of(best) {
			best = r
		}
	}
	return best
}

// ScenarioProbabilities estimates up/flat/down probabilities from the
// empirical frequency of forward returns beyond ±threshold
func ScenarioProbabilities(returns []float64, threshold float64) (Probabilities, error) {
	if len(returns) == 0 {
		return Probabilities{}, ErrInsufficientData
	}
	var up, down int
	for _, r := range Classify(returns, threshold) {
		switch r {
		case RegimeUp:
			up++
		case RegimeDown:
			down++
		}
	}
	n := float64(len(returns))
	p := Probabilities{Up: float64(up) / n, Down: float64(down) / n}
	p.Flat = 1 - p.Up - p.Down
	return p, nil
}

// ScenarioStrategy is the strategy suggested for one regime
type ScenarioStrategy struct {
	Regime     Regime   `json:"regime"`
	Name       string   `json:"name"`
	Components []string `json:"components"`
}

// ⭐ SSOT: 시나리오별 전략 구성
var scenarioStrategies = map[Regime]ScenarioStrategy{
	RegimeUp:   {RegimeUp, "고성장 + 모멘텀 전략", []string{"Growth Stocks", "Momentum Leaders"}},
	RegimeFlat: {RegimeFlat, "균형형 전략", []string{"Low Volatility", "High ROE"}},
	RegimeDown: {RegimeDown, "고배당 + 변동성 헷징 전략", []string{"Dividend Stocks", "Inverse ETFs", "Volatility Hedge"}},
}

// StrategyForScenario returns the strategy for r; ok is false for unknown regimes
func StrategyForScenario(r Regime) (ScenarioStrategy, bool) {
	s, ok := scenarioStrategies[r]
	if !ok {
		return ScenarioStrategy{}, false
	}
	s.Components = append([]string(nil), s.Components...)
	return s, true
}

// RemoveOverlap drops components already used by an earlier strategy in the
// slice, so each component is recommended once. The input is not modified.
func RemoveOverlap(strategies []ScenarioStrategy) []ScenarioStrategy {
	seen := make(map[string]bool)
	out := make([]ScenarioStrategy, len(strategies))
	for i, s := range strategies {
		var kept []string
		for _, c := range s.Components {
			if !seen[c] {
				kept = append(kept, c)
			}
		}
		for _, c := range kept {
			seen[c] = true
		}
		s.Components = kept
		out[i] = s
	}
	return out
}

// minSegment is the shortest segment ChangePoints will produce
const minSegment = 2

// ChangePoints finds up to n change points with binary segmentation under
// an L2 (squared deviation from segment mean) cost. Returned indices are
// the first index of each new segment, ascending.
func ChangePoints(series []float64, n int) []int {
	if n <= 0 || len(series) < 2*minSegment {
		return nil
	}

	// prefix sums for O(1) segment cost
	sum := make([]float64, len(series)+1)
	sq := make([]float64, len(series)+1)
	for i, v := range series {
		sum[i+1] = sum[i] + v
		sq[i+1] = sq[i] + v*v
	}
	cost := func(a, b int) float64 {
		m := float64(b - a)
		s := sum[b] - sum[a]
		return sq[b] - sq[a] - s*s/m
	}

	type segment struct{ start, end int }
	segments := []segment{{0, len(series)}}
	var points []int

	for len(points) < n {
		bestGain, bestSeg, bestSplit := 0.0, -1, 0
		for si, seg := range segments {
			if seg.end-seg.start < 2*minSegment {
				continue
			}
			total := cost(seg.start, seg.end)
			for k := seg.start + minSegment; k <= seg.end-minSegment; k++ {
				if gain := total - cost(seg.start, k) - cost(k, seg.end); gain > bestGain {
					bestGain, bestSeg, bestSplit = gain, si, k
				}
			}
		}
		if bestSeg < 0 || bestGain <= 1e-12 {
			break
		}
		seg := segments[bestSeg]
		segments[bestSeg] = segment{seg.start, bestSplit}
		segments = append(segments, segment{bestSplit, seg.end})
		points = append(points, bestSplit)
	}

	sort.Ints(points)
	return points
}

// FlowMap is a Markov transition matrix between regimes; each non-empty
// row sums to 1
type FlowMap map[Regime]map[Regime]float64

// NewFlowMap counts consecutive regime transitions and row-normalizes them
func NewFlowMap(regimes []Regime) FlowMap {
	counts := make(map[Regime]map[Regime]int)
	for i := 1; i < len(regimes); i++ {
		from, to := regimes[i-1], regimes[i]
		if counts[from] == nil {
			counts[from] = make(map[Regime]int)
		}
		counts[from][to]++
	}

	fm := make(FlowMap, len(counts))
	for from, row := range counts {
		var total int
		for _, c := range row {
			total += c
		}
		fm[from] = make(map[Regime]float64, len(row))
		for to, c := range row {
			fm[from][to] = float64(c) / float64(total)
		}
	}
	return fm
}

// Next returns the most likely next regime from r, or r itself if unseen
func (f FlowMap) Next(r Regime) Regime {
	best, bestP := r, -1.0
	for _, to := range Regimes {
		if p, ok := f[r][to]; ok && p > bestP {
			best, bestP = to, p
		}
	}
	return best
}

// Branching is the full scenario branching read-out
type Branching struct {
	Probabilities Probabilities      `json:"probabilities"`
	Strategies    []ScenarioStrategy `json:"strategies"`
	LastShift     int                `json:"last_shift"` // -1 when none detected
	Flow          FlowMap            `json:"flow"`
}

// Branch runs probabilities, de-duplicated strategies, shift detection and
// the transition map over a return series
func Branch(returns []float64, threshold float64) (*Branching, error) {
	probs, err := ScenarioProbabilities(returns, threshold)
	if err != nil {
		return nil, err
	}

	strategies := make([]ScenarioStrategy, 0, len(Regimes))
	for _, r := range Regimes {
		s, _ := StrategyForScenario(r)
		strategies = append(strategies, s)
	}

	b := &Branching{
		Probabilities: probs,
		Strategies:    RemoveOverlap(strategies),
		LastShift:     -1,
		Flow:          NewFlowMap(Classify(returns, threshold)),
	}
	if cps := ChangePoints(returns, 3); len(cps) > 0 {
		b.LastShift = cps[len(cps)-1]
	}
	return b, nil
}
