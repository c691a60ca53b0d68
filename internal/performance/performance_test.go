package performance

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daily(start time.Time, values ...float64) []Point {
	out := make([]Point, len(values))
	for i, v := range values {
		out[i] = Point{Date: start.AddDate(0, 0, i), Value: v}
	}
	return out
}

func TestCompute(t *testing.T) {
	values := []float64{100, 110, 99, 120, 115}
	m, err := Compute(values)
	require.NoError(t, err)

	assert.InDelta(t, 0.15, m.CumulativeReturn, 1e-12)
	assert.InDelta(t, math.Pow(1.15, 252.0/5)-1, m.AnnualizedReturn, 1e-6)
	assert.InDelta(t, -0.1, m.MaxDrawdown, 1e-12)
	assert.InDelta(t, m.AnnualizedReturn/math.Abs(-0.1+1e-6), m.Calmar, 1e-6)
	assert.InDelta(t, 0.5, m.WinRate, 1e-12)
	assert.Greater(t, m.Sharpe, 0.0)
	assert.Greater(t, m.Sortino, 0.0)
	assert.Equal(t, 5, m.Days)

	_, err = Compute([]float64{1})
	assert.True(t, errors.Is(err, ErrInsufficientData))
	_, err = Compute([]float64{0, 1})
	assert.Error(t, err)
}

func TestDrawdownSeries(t *testing.T) {
	got := DrawdownSeries([]float64{100, 120, 90, 130})
	assert.Equal(t, 0.0, got[0])
	assert.Equal(t, 0.0, got[1])
	assert.InDelta(t, -0.25, got[2], 1e-12)
	assert.Equal(t, 0.0, got[3])
}

func TestMonthlyAndYearlyReturns(t *testing.T) {
	points := []Point{
		{time.Date(2023, 12, 29, 0, 0, 0, 0, time.UTC), 100},
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 104},
		{time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 110},
		{time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), 99},
	}

	grid := MonthlyReturns(points)
	assert.Equal(t, []int{2024}, grid.Years())
	assert.InDelta(t, 0.10, grid[2024][time.January], 1e-12)
	assert.InDelta(t, -0.10, grid[2024][time.February], 1e-12)
	_, hasDec := grid[2023]
	assert.False(t, hasDec, "first month has no prior month end")

	yearly := YearlyReturns(points)
	assert.Equal(t, 0.0, yearly[2023])
	assert.InDelta(t, -0.01, yearly[2024], 1e-12)
}

func TestSummaryAndReport(t *testing.T) {
	points := daily(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	v := 100.0
	for i := 0; i < 90; i++ {
		v *= 1.002
		if i%10 == 0 {
			v *= 0.99
		}
		points = append(points, Point{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i), Value: v})
	}
	m, err := ComputePoints(points)
	require.NoError(t, err)

	summary := Summary(m, YearlyReturns(points))
	assert.Contains(t, summary, "1년 중 1년")

	out, err := RenderReport(ReportInput{
		Title:        "AI 전략 보고서",
		Summary:      summary,
		Radar:        map[string]float64{"수익성": 82, "안정성": 75},
		Metrics:      m,
		Points:       points,
		SwitchPoints: []time.Time{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		GeneratedAt:  time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	for _, want := range []string{
		"# AI 전략 보고서",
		"- 수익성: 82 ████████",
		"2024-02-01",
		"| 2024 |",
		"생성: 2024-04-01 09:00",
	} {
		assert.True(t, strings.Contains(out, want), "report missing %q", want)
	}

	s := m.ToStrategyMetrics("모멘텀")
	assert.Equal(t, "모멘텀", s.Name)
	assert.Equal(t, m.MaxDrawdown, s.MDD)
}
