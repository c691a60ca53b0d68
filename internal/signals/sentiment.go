package signals

import (
	"math"
	"strings"
)

var (
	positiveWords = []string{"상승", "호재", "강세", "이익", "성장"}
	negativeWords = []string{"하락", "악재", "약세", "손실", "위험"}
)

// NewsSentiment scores headlines in [-1, 1] as tanh(Σ(pos-neg) / n).
// No headlines gives 0.
func NewsSentiment(headlines []string) float64 {
	if len(headlines) == 0 {
		return 0
	}

	var score int
	for _, h := range headlines {
		for _, w := range positiveWords {
			if strings.Contains(h, w) {
				score++
			}
		}
		for _, w := range negativeWords {
			if strings.Contains(h, w) {
				score--
			}
		}
	}
	return math.Tanh(float64(score) / float64(len(headlines)))
}

// SentimentToScore maps [-1, 1] onto 0..100
func SentimentToScore(s float64) float64 {
	return (s + 1) / 2 * 100
}
