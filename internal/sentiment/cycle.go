package sentiment

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/quantlab/internal/stats"
)

// Phase is a fear/greed cycle phase
type Phase string

const (
	PhaseFear    Phase = "공포"
	PhaseNeutral Phase = "중립"
	PhaseGreed   Phase = "탐욕"
)

// ErrNoHistory is returned when no readings have been recorded
var ErrNoHistory = errors.New("no sentiment history")

// PhaseOf classifies a Fear-Greed index: <30 fear, <60 neutral, otherwise greed
func PhaseOf(index float64) Phase {
	switch {
	case index < 30:
		return PhaseFear
	case index < 60:
		return PhaseNeutral
	default:
		return PhaseGreed
	}
}

// phaseStrategies ⭐ SSOT: 국면별 추천 전략
var phaseStrategies = map[Phase][]string{
	PhaseFear:    {"방어형", "절대수익형"},
	PhaseNeutral: {"중립형", "퀀트모멘텀"},
	PhaseGreed:   {"모멘텀", "초단타형"},
}

// StrategiesFor returns the strategy styles that suit a phase
func StrategiesFor(p Phase) []string {
	return append([]string(nil), phaseStrategies[p]...)
}

// Reading is one day of sentiment indicators
type Reading struct {
	Date          time.Time `json:"date"`
	FearGreed     float64   `json:"fear_greed"`
	VIX           float64   `json:"vix"`
	ShortRatio    float64   `json:"short_ratio"`
	NewsSentiment float64   `json:"news_sentiment"`
}

// PhaseState is the current phase plus the latest change in the index
type PhaseState struct {
	Phase Phase   `json:"phase"`
	Index float64 `json:"index"`
	Delta float64 `json:"delta"`
}

// String renders the state the way the dashboard labels it
func (s PhaseState) String() string {
	if s.Phase == PhaseGreed {
		return fmt.Sprintf("현재 심리 국면: 중립 → 탐욕 이행 중 (%.0f점, 변화율 %.2f)", s.Index, s.Delta)
	}
	return fmt.Sprintf("현재 심리 국면: %s (%.0f점)", s.Phase, s.Index)
}

// Cycle keeps a history of readings
type Cycle struct {
	history []Reading
}

// NewCycle creates an empty Cycle
func NewCycle() *Cycle {
	return &Cycle{}
}

// Update appends a reading
func (c *Cycle) Update(r Reading) {
	c.history = append(c.history, r)
}

// History returns the readings in insertion order
func (c *Cycle) History() []Reading {
	return append([]Reading(nil), c.history...)
}

// Current classifies the latest reading
func (c *Cycle) Current() (PhaseState, error) {
	n := len(c.history)
	if n == 0 {
		return PhaseState{}, ErrNoHistory
	}
	last := c.history[n-1].FearGreed
	st := PhaseState{Phase: PhaseOf(last), Index: last}
	if n > 1 {
		st.Delta = last - c.history[n-2].FearGreed
	}
	return st, nil
}

// FitScores scores every mapped strategy against the history.
// FearGreed, VIX, ShortRatio 를 각각 min-max 스케일 후 전체 평균(avg) 사용
func (c *Cycle) FitScores() (map[string]float64, error) {
	if len(c.history) == 0 {
		return nil, ErrNoHistory
	}
	var fg, vix, short []float64
	for _, r := range c.history {
		fg = append(fg, r.FearGreed)
		vix = append(vix, r.VIX)
		short = append(short, r.ShortRatio)
	}
	avg := (stats.Mean(stats.MinMax(fg)) + stats.Mean(stats.MinMax(vix)) + stats.Mean(stats.MinMax(short))) / 3

	return map[string]float64{
		"방어형":   1 - avg,
		"절대수익형": 0.9 - avg*0.5,
		"중립형":   1 - math.Abs(avg-0.5),
		"퀀트모멘텀": avg * 0.8,
		"모멘텀":   avg,
		"초단타형":  min(1.0, avg*1.2),
	}, nil
}

// SurgeThreshold is the default day-over-day keyword ratio that signals a surge
const SurgeThreshold = 2.0

// KeywordSurge compares the last two keyword count snapshots and returns the
// keywords whose count ratio exceeds threshold, sorted
func KeywordSurge(prev, cur map[string]int, threshold float64) []string {
	var out []string
	for k, c := range cur {
		ratio := float64(c) / (float64(prev[k]) + 1e-6)
		if ratio > threshold {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// SuspensionAdvice recommends pausing strategies in overheated or fearful markets.
// newsSentiment is 0..1.
func SuspensionAdvice(newsSentiment, vix float64) string {
	switch {
	case newsSentiment > 0.8 && vix < 15:
		return "⚠️ 시장 과열: 단타 전략 보류 권고"
	case newsSentiment < 0.2 && vix > 30:
		return "⚠️ 시장 공포: 위험 전략 리밸런싱 권고"
	default:
		return "전략 유지 가능"
	}
}
