package portfolio

import (
	"errors"

	"github.com/wonny/quantlab/internal/stats"
)

// ErrDimensionMismatch is returned when weights and the correlation matrix disagree
var ErrDimensionMismatch = errors.New("weights and correlation matrix size differ")

// ScoreRiskWeights returns w ∝ score² / (risk + 1e-5), normalised
func ScoreRiskWeights(picks []Pick) []float64 {
	raw := make([]float64, len(picks))
	for i, p := range picks {
		raw[i] = p.Score * p.Score / (p.Risk + 1e-5)
	}
	return stats.Normalize(raw)
}

// CorrelationAdjusted returns pinv(C)·w with negatives clipped to zero, normalised.
// All-zero 결과면 원래 비중 유지.
func CorrelationAdjusted(weights []float64, corr [][]float64) ([]float64, error) {
	if len(corr) != len(weights) {
		return nil, ErrDimensionMismatch
	}
	for _, row := range corr {
		if len(row) != len(weights) {
			return nil, ErrDimensionMismatch
		}
	}

	adj := stats.MatVec(stats.PseudoInverse(corr, 1e-10), weights)
	var total float64
	for i, w := range adj {
		if w < 0 {
			adj[i] = 0
		}
		total += adj[i]
	}
	if total == 0 {
		return append([]float64(nil), weights...), nil
	}
	return stats.Normalize(adj), nil
}
