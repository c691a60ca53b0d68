package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/quantlab/internal/stats"
)

// Candidate is one strategy entering a comparison
type Candidate struct {
	Name             string  `json:"name"`
	CumulativeReturn float64 `json:"cumulative_return"`
	MDD              float64 `json:"mdd"` // 음수
	Sharpe           float64 `json:"sharpe"`
	SentimentFit     float64 `json:"sentiment_fit"`
	Stability        float64 `json:"stability"`
}

// Ranked is a Candidate with its composite score (0..1)
type Ranked struct {
	Candidate
	Composite float64 `json:"composite"`
}

// Compare min-max normalises every metric and ranks by the mean.
// MDD 은 낙폭 크기로 정규화 후 반전 (얕을수록 높은 점수)
func Compare(cands []Candidate) []Ranked {
	n := len(cands)
	if n == 0 {
		return nil
	}
	cols := make([][]float64, 5)
	for _, c := range cands {
		cols[0] = append(cols[0], c.CumulativeReturn)
		cols[1] = append(cols[1], math.Abs(c.MDD))
		cols[2] = append(cols[2], c.Sharpe)
		cols[3] = append(cols[3], c.SentimentFit)
		cols[4] = append(cols[4], c.Stability)
	}
	for i := range cols {
		cols[i] = stats.MinMax(cols[i])
	}
	for i := range cols[1] {
		cols[1][i] = 1 - cols[1][i]
	}

	out := make([]Ranked, n)
	for i, c := range cands {
		var sum float64
		for _, col := range cols {
			sum += col[i]
		}
		out[i] = Ranked{Candidate: c, Composite: sum / float64(len(cols))}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Composite > out[j].Composite })
	return out
}

// Explain describes one ranked strategy
func Explain(r Ranked) string {
	verdict := "위험 요소 존재"
	if r.Composite > 0.6 {
		verdict = "잘 적합"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🔍 %s 전략 해설\n", r.Name)
	fmt.Fprintf(&b, "- 누적 수익률: %.2f%%\n", r.CumulativeReturn*100)
	fmt.Fprintf(&b, "- 최대 낙폭: %.2f%%\n", r.MDD*100)
	fmt.Fprintf(&b, "- Sharpe: %.2f, 심리 적합도: %.2f\n", r.Sharpe, r.SentimentFit)
	fmt.Fprintf(&b, "- 전략 안정성 지표: %.2f\n\n", r.Stability)
	fmt.Fprintf(&b, "👉 종합 판단: 이 전략은 현재 시장에 %s합니다.", verdict)
	return b.String()
}
