package indicators

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ramp(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	require.Len(t, got, 5)
	// warm-up 은 expanding mean
	assert.InDelta(t, 1.0, got[0], 1e-9)
	assert.InDelta(t, 1.5, got[1], 1e-9)
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 3.0, got[3], 1e-9)
	assert.InDelta(t, 4.0, got[4], 1e-9)

	short := SMA([]float64{2, 4}, 5)
	assert.Equal(t, []float64{2, 3}, short)
}

func TestRSIBounds(t *testing.T) {
	up := RSI(ramp(40, 100, 1), 14)
	require.Len(t, up, 40)
	assert.Equal(t, NeutralRSI, up[0])
	assert.Greater(t, up[39], 70.0, "steady rally should be overbought")

	down := RSI(ramp(40, 200, -1), 14)
	assert.Less(t, down[39], 30.0, "steady decline should be oversold")

	for _, v := range append(up, down...) {
		assert.True(t, v >= 0 && v <= 100, "RSI out of range: %v", v)
	}

	two := RSI([]float64{1, 2}, 14)
	assert.Equal(t, NeutralRSI, two[0])
	assert.InDelta(t, 100.0, two[1], 1e-6, "warm-up averages the single gain")
}

func TestRSIValues(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		period int
		want   []float64
	}{
		{"warm-up all gains", []float64{10, 11, 12}, 14, []float64{50, 100, 100}},
		{"rolling mean", []float64{10, 11, 12, 11}, 2, []float64{50, 100, 100, 50}},
		{"window drops gains", []float64{10, 11, 12, 11, 10}, 2, []float64{50, 100, 100, 50, 0}},
		{"flat", []float64{5, 5, 5}, 14, []float64{50, 0, 0}},
		{"single bar", []float64{5}, 14, []float64{50}},
		{"empty", nil, 14, []float64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RSI(tt.closes, tt.period)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-6, "bar %d", i)
			}
		})
	}
}

// rollingRSI recomputes RSI bar by bar from the window of diffs ending there
func rollingRSI(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	out[0] = NeutralRSI
	for i := 1; i < len(closes); i++ {
		var up, down float64
		from := max(1, i-period+1)
		for j := from; j <= i; j++ {
			d := closes[j] - closes[j-1]
			up += max(d, 0)
			down += max(-d, 0)
		}
		n := float64(i - from + 1)
		out[i] = 100 - 100/(1+(up/n)/(down/n+1e-9))
	}
	return out
}

func zigzag(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 8*math.Sin(float64(i)/5) + 3*math.Cos(float64(i)/2) + 0.1*float64(i)
	}
	return out
}

func TestRSIMatchesRollingMean(t *testing.T) {
	closes := zigzag(80)
	want := rollingRSI(closes, 14)
	got := RSI(closes, 14)
	for _, i := range []int{1, 5, 13, 14, 20, 40, 79} {
		assert.InDelta(t, want[i], got[i], 1e-6, "bar %d", i)
	}
}

func TestMACDMatchesRecursiveEMA(t *testing.T) {
	closes := zigzag(60)
	ema := func(x []float64, span int) []float64 {
		a := 2 / (float64(span) + 1)
		out := []float64{x[0]}
		for i := 1; i < len(x); i++ {
			out = append(out, a*x[i]+(1-a)*out[i-1])
		}
		return out
	}
	fast, slow := ema(closes, 12), ema(closes, 26)
	line := make([]float64, len(closes))
	for i := range line {
		line[i] = fast[i] - slow[i]
	}
	signal := ema(line, 9)

	res := MACD(closes, 12, 26, 9)
	for _, i := range []int{1, 20, 34, 40, 59} {
		assert.InDelta(t, line[i]-signal[i], res.Histogram[i], 1e-9, "bar %d", i)
	}
	assert.NotZero(t, res.Histogram[20], "no zero-filled warm-up")
}

func TestEMA(t *testing.T) {
	// α = 2/(3+1) = 0.5, seeded with the first value
	assert.Equal(t, []float64{10, 12, 13}, EMA([]float64{10, 14, 14}, 3))
	assert.Empty(t, EMA(nil, 3))
}

func TestMACD(t *testing.T) {
	prices := ramp(80, 100, 0.5)
	res := MACD(prices, 12, 26, 9)
	require.Len(t, res.MACD, 80)
	require.Len(t, res.Signal, 80)
	require.Len(t, res.Histogram, 80)

	assert.Equal(t, 0.0, res.MACD[0])
	assert.Greater(t, res.MACD[79], 0.0, "uptrend has fast EMA above slow EMA")
	assert.InDelta(t, res.MACD[79]-res.Signal[79], res.Histogram[79], 1e-9)

	short := MACD(ramp(10, 1, 1), 12, 26, 9)
	assert.Len(t, short.MACD, 10)
	assert.Greater(t, short.Histogram[1], 0.0, "histogram is live from the second bar")
}

func TestMACDValues(t *testing.T) {
	// fast α 0.5, slow α 0.25, signal α 0.5
	res := MACD([]float64{10, 14, 14}, 3, 7, 3)

	tests := []struct {
		name string
		got  []float64
		want []float64
	}{
		{"macd", res.MACD, []float64{0, 1, 1.25}},
		{"signal", res.Signal, []float64{0, 0.5, 0.875}},
		{"histogram", res.Histogram, []float64{0, 0.5, 0.375}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, tt.got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], tt.got[i], 1e-9, "bar %d", i)
			}
		})
	}
}

func TestOBV(t *testing.T) {
	obv := OBV([]float64{10, 11, 10, 12}, []float64{100, 200, 300, 400})
	require.Len(t, obv, 4)
	assert.Greater(t, obv[3], obv[2], "up day adds volume")
	assert.Len(t, OBV([]float64{1, 2}, []float64{1}), 2)
}

func TestCross(t *testing.T) {
	tests := []struct {
		name        string
		short, long []float64
		want        int
	}{
		{"golden", []float64{9, 11}, []float64{10, 10}, 1},
		{"dead", []float64{11, 9}, []float64{10, 10}, -1},
		{"none", []float64{11, 12}, []float64{10, 10}, 0},
		{"short input", []float64{1}, []float64{1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cross(tt.short, tt.long))
		})
	}
}

func TestRollingStd(t *testing.T) {
	got := RollingStd([]float64{1, 2, 3, 4}, 3)
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 1.0, got[2], 1e-9)
	assert.InDelta(t, 1.0, got[3], 1e-9)
	assert.Equal(t, 7.0, Last([]float64{1, 7}, 0))
	assert.Equal(t, -1.0, Last(nil, -1))
}

func TestBollinger(t *testing.T) {
	up, lo := Bollinger([]float64{1, 2, 3, 4}, 3, 2)
	assert.Equal(t, up[0], lo[0], "warm-up bands collapse to the mean")
	assert.InDelta(t, 2+2, up[2], 1e-9)
	assert.InDelta(t, 2-2, lo[2], 1e-9)
	assert.InDelta(t, 3+2, up[3], 1e-9)
}
