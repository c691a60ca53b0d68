// Package portfolio recommends stock baskets and sizes their weights.
package portfolio

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/quantlab/internal/stats"
)

// Mode selects how a basket is picked
type Mode string

const (
	ModeStable     Mode = "STABLE"
	ModeBalanced   Mode = "BALANCED"
	ModeAggressive Mode = "AGGRESSIVE"
	ModeAIOpt      Mode = "AI_OPT"
)

// defaultSizes ⭐ SSOT: 모드별 기본 종목 수
var defaultSizes = map[Mode]int{
	ModeStable:     8,
	ModeBalanced:   10,
	ModeAggressive: 12,
	ModeAIOpt:      10,
}

// ParseMode validates a mode string (case-insensitive)
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(s))
	if _, ok := defaultSizes[m]; !ok {
		return "", fmt.Errorf("unknown portfolio mode %q", s)
	}
	return m, nil
}

// Candidate is a stock eligible for a basket
type Candidate struct {
	Code          string  `json:"code"`
	Name          string  `json:"name"`
	Score         float64 `json:"score"`          // 성과스코어 0..100
	Risk          float64 `json:"risk"`           // 0..100
	Growth        float64 `json:"growth"`         // 성장성 0..100
	DividendYield float64 `json:"dividend_yield"` // 배당성향 %
}

// Pick is a selected candidate and why
type Pick struct {
	Candidate
	AIScore float64 `json:"ai_score,omitempty"`
	Reason  string  `json:"reason"`
}

// Recommend selects up to n candidates for mode. n <= 0 uses the mode default.
//   - STABLE: 낮은 리스크, 높은 배당 순
//   - BALANCED: 성과스코어 순
//   - AGGRESSIVE: 성장성 순
//   - AI_OPT: 0.4·score + 0.3·growth − 0.2·risk (각각 min-max)
func Recommend(cands []Candidate, mode Mode, n int) ([]Pick, error) {
	size, ok := defaultSizes[mode]
	if !ok {
		return nil, fmt.Errorf("unknown portfolio mode %q", mode)
	}
	if n <= 0 {
		n = size
	}

	picks := make([]Pick, len(cands))
	for i, c := range cands {
		picks[i] = Pick{Candidate: c}
	}

	switch mode {
	case ModeStable:
		sort.SliceStable(picks, func(i, j int) bool {
			if picks[i].Risk != picks[j].Risk {
				return picks[i].Risk < picks[j].Risk
			}
			return picks[i].DividendYield > picks[j].DividendYield
		})
	case ModeBalanced:
		sort.SliceStable(picks, func(i, j int) bool { return picks[i].Score > picks[j].Score })
	case ModeAggressive:
		sort.SliceStable(picks, func(i, j int) bool { return picks[i].Growth > picks[j].Growth })
	case ModeAIOpt:
		var score, growth, risk []float64
		for _, p := range picks {
			score = append(score, p.Score)
			growth = append(growth, p.Growth)
			risk = append(risk, p.Risk)
		}
		score, growth, risk = stats.MinMax(score), stats.MinMax(growth), stats.MinMax(risk)
		for i := range picks {
			picks[i].AIScore = 0.4*score[i] + 0.3*growth[i] - 0.2*risk[i]
		}
		sort.SliceStable(picks, func(i, j int) bool { return picks[i].AIScore > picks[j].AIScore })
	}

	if len(picks) > n {
		picks = picks[:n]
	}
	for i := range picks {
		picks[i].Reason = Explain(picks[i].Candidate)
	}
	return picks, nil
}

// Explain lists up to three reasons a candidate stands out
func Explain(c Candidate) string {
	var reasons []string
	if c.Score > 80 {
		reasons = append(reasons, "성과스코어가 높음")
	}
	if c.DividendYield > 3 {
		reasons = append(reasons, "꾸준한 배당주")
	}
	if c.Growth > 70 {
		reasons = append(reasons, "최근 성장성이 우수함")
	}
	if c.Risk < 30 {
		reasons = append(reasons, "리스크가 낮아 안정적임")
	}
	text := "AI 종합 판단에 따라 추천됨"
	if len(reasons) > 0 {
		if len(reasons) > 3 {
			reasons = reasons[:3]
		}
		text = strings.Join(reasons, ", ")
	}
	return fmt.Sprintf("%s은(는) %s.", c.Name, text)
}
