package monitor

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/sentiment"
)

const (
	// HistoryLimit is how many performance entries a tracker keeps
	HistoryLimit = 30
	// DefaultDropThreshold fires a drop alert (5%p 하락)
	DefaultDropThreshold = 0.05
	// VolatilityWarning adds a risk line to the action guide
	VolatilityWarning = 0.07
)

// Market mood labels used by ActionGuide
const (
	MoodOverheated = "과열"
	MoodDepressed  = "침체"
	MoodNormal     = "보통"
)

// Entry is one day of portfolio performance
type Entry struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"` // 누적 수익 지수 (1.0 = 원금)
	Score float64   `json:"score,omitempty"`
}

// Tracker keeps a rolling window of performance entries keyed by date
type Tracker struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	threshold float64
}

// NewTracker creates a tracker. threshold <= 0 uses DefaultDropThreshold.
func NewTracker(threshold float64) *Tracker {
	if threshold <= 0 {
		threshold = DefaultDropThreshold
	}
	return &Tracker{entries: make(map[string]Entry), threshold: threshold}
}

// Track merges new entries (same date overwrites) and trims to the last
// HistoryLimit dates
func (t *Tracker) Track(entries ...Entry) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, e := range entries {
		t.entries[dateKey(e.Date)] = e
	}
	keys := t.sortedKeys()
	if len(keys) > HistoryLimit {
		for _, k := range keys[:len(keys)-HistoryLimit] {
			delete(t.entries, k)
		}
	}
	return t.snapshot()
}

// Entries returns the window oldest first
func (t *Tracker) Entries() []Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshot()
}

// Check compares the two latest entries and returns an alert when the value
// fell by at least the threshold
func (t *Tracker) Check(now time.Time) (*contracts.Alert, bool) {
	entries := t.Entries()
	if len(entries) < 2 {
		return nil, false
	}
	prev, latest := entries[len(entries)-2], entries[len(entries)-1]
	drop := prev.Value - latest.Value
	if drop < t.threshold {
		return nil, false
	}
	return &contracts.Alert{
		ID:      uuid.NewString(),
		FiredAt: now,
		Kind:    "drop",
		Level:   contracts.LevelWarning,
		Message: fmt.Sprintf("⚠️ 경고: 최근 하루 수익률이 %.2f%% 하락했습니다.", drop*100),
		Details: map[string]interface{}{
			"date": dateKey(latest.Date),
			"drop": drop,
		},
	}, true
}

func (t *Tracker) sortedKeys() []string {
	keys := make([]string, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (t *Tracker) snapshot() []Entry {
	keys := t.sortedKeys()
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = t.entries[k]
	}
	return out
}

func dateKey(d time.Time) string {
	return d.Format("2006-01-02")
}

// State is the current reading ActionGuide turns into advice
type State struct {
	StrategyScore float64 `json:"strategy_score"`
	Mood          string  `json:"mood"` // 과열, 침체, 보통
	Volatility    float64 `json:"volatility"`
}

// ActionGuide renders market mood and recent volatility as action lines
func ActionGuide(s State) string {
	var b strings.Builder
	b.WriteString("📊 현재 시장 상황 분석 결과:\n")
	switch s.Mood {
	case MoodOverheated:
		b.WriteString("- 매수 자제 권고, 위험 분산 필요\n")
	case MoodDepressed:
		b.WriteString("- 매수 기회, 포트 확대 고려\n")
	default:
		b.WriteString("- 관망 권고, 추가 신호 대기\n")
	}
	if s.Volatility > VolatilityWarning {
		b.WriteString("- 변동성 증가 주의, 리스크 관리 강화\n")
	}
	return b.String()
}

// MoodFromSentiment maps a fear/greed phase to a market mood
func MoodFromSentiment(index float64) string {
	switch sentiment.PhaseOf(index) {
	case sentiment.PhaseGreed:
		return MoodOverheated
	case sentiment.PhaseFear:
		return MoodDepressed
	default:
		return MoodNormal
	}
}
