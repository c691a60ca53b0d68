// Package strategy picks, compares and routes investment strategies.
package strategy

import (
	"errors"
	"math"
	"strings"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// Suggested styles
const (
	SuggestGrowth   = "📈 성장형"
	SuggestValue    = "🏦 가치형"
	SuggestStable   = "🛡 안정형"
	SuggestMomentum = "⚡ 모멘텀형"
)

// ErrInsufficientHistory is returned by DetectShift for short windows
var ErrInsufficientHistory = errors.New("strategy shift needs 30 observations")

// SuggestInput gathers the fundamentals, performance and macro context for Suggest.
// Zero values fall back to neutral defaults.
type SuggestInput struct {
	PER           float64
	PEG           float64
	RevenueGrowth float64 // 0.15 = 15%
	ROE           float64 // %
	Volatility    float64 // 연환산
	Sentiment     float64 // 0..100
	InterestRate  float64 // %
}

func (in SuggestInput) withDefaults() SuggestInput {
	if in.PER == 0 {
		in.PER = 10
	}
	if in.PEG == 0 {
		in.PEG = 1.2
	}
	if in.InterestRate == 0 {
		in.InterestRate = 3.0
	}
	if in.Volatility == 0 {
		in.Volatility = 0.15
	}
	return in
}

// Suggest applies the style rules in priority order
func Suggest(in SuggestInput) string {
	in = in.withDefaults()
	switch {
	case in.Sentiment > 65 && in.RevenueGrowth > 0.15:
		return SuggestGrowth
	case in.PER < 10 && in.PEG < 1.0 && in.InterestRate > 3.0:
		return SuggestValue
	case in.ROE > 8 && in.Volatility > 0.2 && in.Sentiment < 40:
		return SuggestStable
	default:
		return SuggestMomentum
	}
}

// Shift is the outcome of DetectShift
type Shift struct {
	Triggered bool     `json:"triggered"`
	Stability float64  `json:"stability"`
	Reasons   []string `json:"reasons"`
}

// Reason joins the trigger reasons
func (s Shift) Reason() string {
	return strings.Join(s.Reasons, " + ")
}

const shiftWindow = 30

// DetectShift checks whether the current strategy should be reconsidered.
// equity is the cumulative return path, sentiment the daily score and macro
// one column per variable.
func DetectShift(equity, sentiment []float64, macro [][]float64) (Shift, error) {
	if len(equity) < shiftWindow {
		return Shift{}, ErrInsufficientHistory
	}
	recent := equity[len(equity)-shiftWindow:]

	var variation float64
	if m := stats.Mean(recent); m != 0 {
		variation = stats.PopStdDev(recent) / m
	}
	stability := 1 - variation

	sentimentDelta := rollingDiffMean(sentiment, 3)
	macroJump := meanAbsChange(macro)

	var s Shift
	s.Stability = math.Round(stability*100) / 100
	if stability < 0.35 {
		s.Reasons = append(s.Reasons, "전략 안정성 저하")
	}
	if math.Abs(sentimentDelta) > 10 {
		s.Reasons = append(s.Reasons, "시장 심리 급변")
	}
	if macroJump > 0.03 {
		s.Reasons = append(s.Reasons, "매크로 변수 급등락")
	}
	s.Triggered = len(s.Reasons) > 0
	return s, nil
}

// rollingDiffMean is the mean of the last n first differences
func rollingDiffMean(values []float64, n int) float64 {
	if len(values) <= n {
		return 0
	}
	var sum float64
	for i := len(values) - n; i < len(values); i++ {
		sum += values[i] - values[i-1]
	}
	return sum / float64(n)
}

func meanAbsChange(columns [][]float64) float64 {
	var means []float64
	for _, col := range columns {
		changes := contracts.PctChange(col)
		for i, c := range changes {
			changes[i] = math.Abs(c)
		}
		if len(changes) > 0 {
			means = append(means, stats.Mean(changes))
		}
	}
	return stats.Mean(means)
}
