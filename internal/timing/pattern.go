package timing

import (
	"math"
	"sort"
)

// DefaultWindow is the pattern length in bars
const DefaultWindow = 60

// Match is a historical window similar to the current one
type Match struct {
	Start      int     `json:"start"`
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"` // 1 - d/max(d)
}

// SimilarPatterns compares the last window closes of current against every
// window of reference. Both are scaled with the current window's min/max.
// Returns up to top matches, most similar first.
func SimilarPatterns(current, reference []float64, window, top int) ([]Match, error) {
	if window <= 0 {
		window = DefaultWindow
	}
	if len(current) < window || len(reference) <= window {
		return nil, ErrInsufficientData
	}

	cur := current[len(current)-window:]
	lo, hi := cur[0], cur[0]
	for _, v := range cur {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	scale := func(xs []float64) []float64 {
		out := make([]float64, len(xs))
		if hi == lo {
			return out
		}
		for i, v := range xs {
			out[i] = (v - lo) / (hi - lo)
		}
		return out
	}

	target := scale(cur)
	band := max(window/10, 1)

	matches := make([]Match, 0, len(reference)-window)
	var maxD float64
	for start := 0; start < len(reference)-window; start++ {
		d := DTW(target, scale(reference[start:start+window]), band)
		matches = append(matches, Match{Start: start, Distance: d})
		maxD = math.Max(maxD, d)
	}
	for i := range matches {
		if maxD > 0 {
			matches[i].Similarity = 1 - matches[i].Distance/maxD
		} else {
			matches[i].Similarity = 1
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if top > 0 && len(matches) > top {
		matches = matches[:top]
	}
	return matches, nil
}

// DTW is the dynamic time warping distance with |a-b| cost, constrained to a
// Sakoe-Chiba band of the given radius. The band widens to cover any length gap.
func DTW(a, b []float64, band int) float64 {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return math.Inf(1)
	}
	if gap := n - m; gap > band || -gap > band {
		band = max(gap, -gap)
	}

	inf := math.Inf(1)
	prev := make([]float64, m+1)
	cur := make([]float64, m+1)
	for j := range prev {
		prev[j] = inf
	}
	prev[0] = 0

	for i := 1; i <= n; i++ {
		for j := range cur {
			cur[j] = inf
		}
		lo, hi := max(1, i-band), min(m, i+band)
		for j := lo; j <= hi; j++ {
			cost := math.Abs(a[i-1] - b[j-1])
			cur[j] = cost + math.Min(prev[j-1], math.Min(prev[j], cur[j-1]))
		}
		prev, cur = cur, prev
	}
	return prev[m]
}
