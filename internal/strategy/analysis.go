package strategy

import (
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// NormalizedMetrics holds min-max scaled CAGR, Sharpe, Calmar, MDD and volatility
type NormalizedMetrics struct {
	Name       string  `json:"name"`
	CAGR       float64 `json:"cagr"`
	Sharpe     float64 `json:"sharpe"`
	Calmar     float64 `json:"calmar"`
	MDD        float64 `json:"mdd"`
	Volatility float64 `json:"volatility"`
}

func (n NormalizedMetrics) vector() []float64 {
	return []float64{n.CAGR, n.Sharpe, n.Calmar, n.MDD, n.Volatility}
}

// NormalizeMetrics scales each metric column into [0,1] across strategies
func NormalizeMetrics(metrics []contracts.StrategyMetrics) []NormalizedMetrics {
	var cagr, sharpe, calmar, mdd, vol []float64
	for _, m := range metrics {
		cagr = append(cagr, m.CAGR)
		sharpe = append(sharpe, m.Sharpe)
		calmar = append(calmar, m.Calmar)
		mdd = append(mdd, m.MDD)
		vol = append(vol, m.Volatility)
	}
	cagr, sharpe, calmar, mdd, vol = stats.MinMax(cagr), stats.MinMax(sharpe), stats.MinMax(calmar), stats.MinMax(mdd), stats.MinMax(vol)

	out := make([]NormalizedMetrics, len(metrics))
	for i, m := range metrics {
		out[i] = NormalizedMetrics{Name: m.Name, CAGR: cagr[i], Sharpe: sharpe[i], Calmar: calmar[i], MDD: mdd[i], Volatility: vol[i]}
	}
	return out
}

// Interpret explains raw metrics in plain language. Empty when nothing stands out.
func Interpret(m contracts.StrategyMetrics) string {
	var parts []string
	if m.Sharpe < 0.3 {
		parts = append(parts, "Sharpe가 낮은 이유는 변동성 분모가 크기 때문입니다.")
	}
	if m.CAGR > 0.7 {
		parts = append(parts, "최근 3년 평균 수익률이 매우 높습니다.")
	}
	if math.Abs(m.MDD) > 0.6 {
		parts = append(parts, "최대 낙폭이 큰 고위험 전략입니다.")
	}
	return strings.Join(parts, " / ")
}

// CorrelationMatrix returns the names (sorted) and the pairwise return correlation
func CorrelationMatrix(returns map[string][]float64) ([]string, [][]float64) {
	names := make([]string, 0, len(returns))
	for n := range returns {
		names = append(names, n)
	}
	sort.Strings(names)
	cols := make([][]float64, len(names))
	for i, n := range names {
		cols[i] = returns[n]
	}
	return names, stats.CorrelationMatrix(cols)
}

// ParetoFront returns strategies that no other strategy dominates on
// higher CAGR and lower volatility
func ParetoFront(metrics []contracts.StrategyMetrics) []string {
	var front []string
	for i, a := range metrics {
		dominated := false
		for j, b := range metrics {
			if i == j {
				continue
			}
			if b.CAGR >= a.CAGR && b.Volatility <= a.Volatility &&
				(b.CAGR > a.CAGR || b.Volatility < a.Volatility) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, a.Name)
		}
	}
	return front
}

// Point2D is a strategy projected onto the first two principal components
type Point2D struct {
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// ErrTooFewStrategies is returned by PCA with fewer than two strategies
var ErrTooFewStrategies = errors.New("PCA needs at least two strategies")

// PCA projects normalised metrics onto the two leading eigenvectors of their covariance
func PCA(metrics []NormalizedMetrics) ([]Point2D, error) {
	if len(metrics) < 2 {
		return nil, ErrTooFewStrategies
	}
	dims := len(metrics[0].vector())
	cols := make([][]float64, dims)
	for _, m := range metrics {
		for d, v := range m.vector() {
			cols[d] = append(cols[d], v)
		}
	}
	means := make([]float64, dims)
	for d := range cols {
		means[d] = stats.Mean(cols[d])
	}

	_, vectors := stats.SymmetricEigen(stats.Covariance(cols))

	out := make([]Point2D, len(metrics))
	for i, m := range metrics {
		v := m.vector()
		var x, y float64
		for d := range v {
			c := v[d] - means[d]
			x += c * vectors[0][d]
			y += c * vectors[1][d]
		}
		out[i] = Point2D{Name: m.Name, X: x, Y: y}
	}
	return out, nil
}
