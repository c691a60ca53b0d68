// Package stats holds the small numeric helpers shared by the analytics packages.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean returns the arithmetic mean (0 for empty input)
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}

// StdDev returns the sample standard deviation (ddof=1)
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Median returns the median (0 for empty input)
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Percentile(Sorted(values), 50)
}

// Sorted returns an ascending copy
func Sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Percentile returns the p-th percentile (0..100) of ascending data with
// linear interpolation between ranks (numpy 의 linear 방식, stat.Quantile 과 다름)
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	idx := p / 100 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	w := idx - float64(lower)
	return sorted[lower]*(1-w) + sorted[upper]*w
}

// PercentileRank returns the share (0..100) of values <= v, averaging ties
func PercentileRank(values []float64, v float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var below, equal float64
	for _, x := range values {
		switch {
		case x < v:
			below++
		case x == v:
			equal++
		}
	}
	// pandas rank(pct=True) 의 average 방식
	rank := below + (equal+1)/2
	if equal == 0 {
		rank = below
	}
	return rank / float64(len(values)) * 100
}

// MinMax scales values into [0,1]. A constant input maps to 0.
func MinMax(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if hi == lo {
		return out
	}
	for i, v := range values {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// Correlation returns the Pearson correlation of x and y (0 if undefined)
func Correlation(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return 0
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return 0
	}
	return stat.Correlation(x, y, nil)
}

// Cosine returns the cosine similarity of a and b (0 if either is zero)
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

// MaxDrawdown returns the most negative peak-to-trough change of an equity curve
func MaxDrawdown(equity []float64) float64 {
	var peak, mdd float64
	for i, v := range equity {
		if i == 0 || v > peak {
			peak = v
		}
		if peak > 0 {
			if dd := v/peak - 1; dd < mdd {
				mdd = dd
			}
		}
	}
	return mdd
}

// Normalize scales non-negative weights to sum to 1. All-zero input stays zero.
func Normalize(weights []float64) []float64 {
	out := make([]float64, len(weights))
	sum := floats.Sum(weights)
	if sum == 0 {
		return out
	}
	for i, w := range weights {
		out[i] = w / sum
	}
	return out
}

// PopStdDev returns the population standard deviation (ddof=0)
func PopStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.PopStdDev(values, nil)
}
