// Package indicators computes technical indicators as full-length slices
// aligned with the input bars. SMA and OBV adapt cinar/indicator streams;
// EMA, RSI and MACD follow the pandas rolling/ewm definitions the scores
// were calibrated on.
package indicators

import (
	"math"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
	"github.com/cinar/indicator/v2/volume"
)

// NeutralRSI fills the RSI warm-up window
const NeutralRSI = 50.0

// alignRight places out at the end of an n-length slice and fills the head with fill
func alignRight(out []float64, n int, fill func(i int) float64) []float64 {
	res := make([]float64, n)
	offset := n - len(out)
	if offset < 0 {
		out = out[-offset:]
		offset = 0
	}
	for i := 0; i < offset; i++ {
		res[i] = fill(i)
	}
	copy(res[offset:], out)
	return res
}

// SMA returns the simple moving average. The warm-up uses an expanding mean
// (min_periods=1), so every bar has a value.
func SMA(values []float64, period int) []float64 {
	n := len(values)
	if n == 0 || period <= 0 {
		return make([]float64, n)
	}

	var computed []float64
	if n >= period {
		computed = helper.ChanToSlice(trend.NewSmaWithPeriod[float64](period).Compute(helper.SliceToChan(values)))
	}

	var running float64
	prefix := make([]float64, n)
	for i, v := range values {
		running += v
		prefix[i] = running / float64(i+1)
	}
	return alignRight(computed, n, func(i int) float64 { return prefix[i] })
}

// EMA returns the recursive exponential moving average with α = 2/(span+1),
// seeded with the first value (pandas ewm(span, adjust=False)). Every bar
// has a value.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 || span <= 0 {
		return out
	}
	alpha := 2 / (float64(span) + 1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// rsiEpsilon keeps the RS ratio finite when no bar in the window fell
const rsiEpsilon = 1e-9

// RSI returns the relative strength index from simple rolling means of gains
// and losses. The warm-up averages whatever diffs exist (min_periods=1), so an
// all-gain start reads 100. The first bar has no diff and reads NeutralRSI.
func RSI(values []float64, period int) []float64 {
	n := len(values)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = NeutralRSI
	if n == 1 || period <= 0 {
		for i := range out {
			out[i] = NeutralRSI
		}
		return out
	}

	gains := make([]float64, n-1)
	losses := make([]float64, n-1)
	for i := 1; i < n; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gains[i-1] = d
		} else {
			losses[i-1] = -d
		}
	}
	up, down := SMA(gains, period), SMA(losses, period)
	for i := 1; i < n; i++ {
		rs := up[i-1] / (down[i-1] + rsiEpsilon)
		v := 100 - 100/(1+rs)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = NeutralRSI
		}
		out[i] = v
	}
	return out
}

// MACDResult holds aligned MACD, signal and histogram lines
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes EMA(fast) - EMA(slow), its EMA(signal) and the histogram.
// All legs are recursive EMAs, so values exist from the first bar.
func MACD(values []float64, fast, slow, signal int) MACDResult {
	n := len(values)
	res := MACDResult{
		MACD:      make([]float64, n),
		Signal:    make([]float64, n),
		Histogram: make([]float64, n),
	}
	if n == 0 {
		return res
	}

	ef, es := EMA(values, fast), EMA(values, slow)
	for i := range values {
		res.MACD[i] = ef[i] - es[i]
	}
	res.Signal = EMA(res.MACD, signal)
	for i := range values {
		res.Histogram[i] = res.MACD[i] - res.Signal[i]
	}
	return res
}

// OBV returns on-balance volume aligned to closes
func OBV(closes, volumes []float64) []float64 {
	n := len(closes)
	if n == 0 || len(volumes) != n {
		return make([]float64, n)
	}
	computed := helper.ChanToSlice(volume.NewObv[float64]().Compute(helper.SliceToChan(closes), helper.SliceToChan(volumes)))
	return alignRight(computed, n, func(int) float64 { return 0 })
}

// Cross compares the last two bars of a short and long line.
// 1 = golden cross, -1 = dead cross, 0 = none.
func Cross(short, long []float64) int {
	n := len(short)
	if n < 2 || len(long) != n {
		return 0
	}
	prev := short[n-2] - long[n-2]
	cur := short[n-1] - long[n-1]
	switch {
	case prev <= 0 && cur > 0:
		return 1
	case prev >= 0 && cur < 0:
		return -1
	default:
		return 0
	}
}

// RollingStd returns the sample standard deviation over a trailing window.
// Entries before the first full window are NaN.
func RollingStd(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		if i+1 < window || window < 2 {
			out[i] = math.NaN()
			continue
		}
		seg := values[i+1-window : i+1]
		var mean float64
		for _, v := range seg {
			mean += v
		}
		mean /= float64(window)
		var ss float64
		for _, v := range seg {
			ss += (v - mean) * (v - mean)
		}
		out[i] = math.Sqrt(ss / float64(window-1))
	}
	return out
}

// Last returns the final element, or def when empty
func Last(values []float64, def float64) float64 {
	if len(values) == 0 {
		return def
	}
	return values[len(values)-1]
}

// Bollinger returns the upper and lower bands (SMA ± k·std). Before the first
// full window both bands equal the SMA.
func Bollinger(values []float64, period int, k float64) (upper, lower []float64) {
	mid := SMA(values, period)
	std := RollingStd(values, period)
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))
	for i := range values {
		d := 0.0
		if !math.IsNaN(std[i]) {
			d = k * std[i]
		}
		upper[i], lower[i] = mid[i]+d, mid[i]-d
	}
	return upper, lower
}
