package performance

import (
	"errors"
	"math"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// TradingDays is the annualisation base
const TradingDays = 252

// ErrInsufficientData is returned for curves with fewer than two points
var ErrInsufficientData = errors.New("equity curve needs at least two points")

// Point is one mark-to-market observation
type Point struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Metrics are the headline statistics of an equity curve
type Metrics struct {
	CumulativeReturn float64 `json:"cumulative_return"`
	AnnualizedReturn float64 `json:"annualized_return"`
	Volatility       float64 `json:"volatility"`
	Sharpe           float64 `json:"sharpe"`
	Sortino          float64 `json:"sortino"`
	MaxDrawdown      float64 `json:"max_drawdown"` // 음수
	Calmar           float64 `json:"calmar"`
	WinRate          float64 `json:"win_rate"` // 상승일 비율
	Days             int     `json:"days"`
}

// Compute derives Metrics from equity values.
// 연환산 = (1+누적)^(252/n) - 1, Sharpe = mean/(std+1e-6)·√252
func Compute(values []float64) (Metrics, error) {
	if len(values) < 2 {
		return Metrics{}, ErrInsufficientData
	}
	if values[0] <= 0 {
		return Metrics{}, errors.New("equity curve must start positive")
	}

	returns := contracts.PctChange(values)
	m := Metrics{Days: len(values)}

	m.CumulativeReturn = values[len(values)-1]/values[0] - 1
	m.AnnualizedReturn = math.Pow(1+m.CumulativeReturn, float64(TradingDays)/float64(len(values))) - 1

	std := stats.StdDev(returns)
	m.Volatility = std * math.Sqrt(TradingDays)
	m.Sharpe = stats.Mean(returns) / (std + 1e-6) * math.Sqrt(TradingDays)

	var downside []float64
	var wins int
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
		if r > 0 {
			wins++
		}
	}
	if dd := stats.StdDev(downside); dd > 0 {
		m.Sortino = stats.Mean(returns) / dd * math.Sqrt(TradingDays)
	}
	if len(returns) > 0 {
		m.WinRate = float64(wins) / float64(len(returns))
	}

	m.MaxDrawdown = stats.MaxDrawdown(values)
	m.Calmar = Calmar(m.AnnualizedReturn, m.MaxDrawdown)
	return m, nil
}

// Calmar is annualized / |MDD + 1e-6|
func Calmar(annualized, mdd float64) float64 {
	return annualized / math.Abs(mdd+1e-6)
}

// ComputePoints is Compute over dated points
func ComputePoints(points []Point) (Metrics, error) {
	return Compute(Values(points))
}

// Values extracts the equity values
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

// ToStrategyMetrics converts to the shared comparison shape
func (m Metrics) ToStrategyMetrics(name string) contracts.StrategyMetrics {
	return contracts.StrategyMetrics{
		Name:       name,
		CAGR:       m.AnnualizedReturn,
		Volatility: m.Volatility,
		Sharpe:     m.Sharpe,
		Sortino:    m.Sortino,
		MDD:        m.MaxDrawdown,
		Calmar:     m.Calmar,
		WinRate:    m.WinRate,
	}
}

// DrawdownSeries returns value/peak-1 for every point
func DrawdownSeries(values []float64) []float64 {
	out := make([]float64, len(values))
	var peak float64
	for i, v := range values {
		if i == 0 || v > peak {
			peak = v
		}
		if peak > 0 {
			out[i] = v/peak - 1
		}
	}
	return out
}
