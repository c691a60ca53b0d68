package psychology

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/quantlab/internal/stats"
)

// RoutineProfile is how the investor wants to operate
type RoutineProfile struct {
	Style          string `json:"style" yaml:"style"`                     // 보수형, 중립형, 공격형
	RebalanceCycle string `json:"rebalance_cycle" yaml:"rebalance_cycle"` // 일간, 주간, 월간
	AvailableTime  string `json:"available_time" yaml:"available_time"`   // 30분, 1시간 ...
}

// Routine is a suggested schedule plus the fixed four-step structure
type Routine struct {
	Suggestions []string `json:"suggestions"`
	Structure   []string `json:"structure"`
}

// routineSteps ⭐ SSOT: 루틴 4단계
var routineSteps = []string{
	"1️⃣ 시장 점검",
	"2️⃣ 전략 진단",
	"3️⃣ 감정 점검",
	"4️⃣ 포트 점검",
}

// RoutinePlanner suggests a daily/weekly routine from a profile
type RoutinePlanner struct {
	profile RoutineProfile
}

// NewRoutinePlanner creates a planner
func NewRoutinePlanner(p RoutineProfile) *RoutinePlanner {
	return &RoutinePlanner{profile: p}
}

// Suggest returns routine slots matching the profile
func (p *RoutinePlanner) Suggest() Routine {
	var s []string
	switch p.profile.RebalanceCycle {
	case "주간":
		s = append(s, "📆 매주 수요일 오전 9시: 전략 리밸런싱 검토")
	case "월간":
		s = append(s, "📆 매월 첫 영업일 오전 9시: 전략 리밸런싱 검토")
	case "일간":
		s = append(s, "📆 매일 장 마감 후: 포지션 리밸런싱 점검")
	}
	if p.profile.AvailableTime == "30분" {
		s = append(s, "⏱️ 매일 오전 8시 30분: 시장 점검 (뉴스/선물/VIX)")
	}
	if p.profile.Style == "보수형" {
		s = append(s, "🔍 매주 금요일 오후 6시: 감정 점검 + 포트 리뷰")
	}
	return Routine{Suggestions: s, Structure: append([]string(nil), routineSteps...)}
}

// HabitDay is one day of routine adherence
type HabitDay struct {
	Date            time.Time `json:"date"`
	StrategyChanged bool      `json:"strategy_changed"`
	Reviewed        bool      `json:"reviewed"`
	GainLoss        float64   `json:"gain_loss"`
}

// HabitEvaluator scores how consistently a routine is followed
type HabitEvaluator struct {
	days []HabitDay
}

// NewHabitEvaluator creates an evaluator over daily logs
func NewHabitEvaluator(days []HabitDay) *HabitEvaluator {
	return &HabitEvaluator{days: days}
}

// Consistency is the share of days without a strategy change
func (h *HabitEvaluator) Consistency() float64 {
	if len(h.days) == 0 {
		return 0
	}
	var changes int
	for _, d := range h.days {
		if d.StrategyChanged {
			changes++
		}
	}
	return 1 - float64(changes)/float64(len(h.days))
}

// Alignment correlates reviewing the routine with the day's result
func (h *HabitEvaluator) Alignment() float64 {
	reviewed := make([]float64, len(h.days))
	gains := make([]float64, len(h.days))
	for i, d := range h.days {
		if d.Reviewed {
			reviewed[i] = 1
		}
		gains[i] = d.GainLoss
	}
	return stats.Correlation(reviewed, gains)
}

// Report renders the habit evaluation
func (h *HabitEvaluator) Report() []string {
	c, a := h.Consistency(), h.Alignment()
	out := []string{fmt.Sprintf("📊 전략 유지율: %.1f%%", c*100)}
	if c < 0.7 {
		out = append(out, "⚠️ 전략 변경 빈도 높음 → 감정 투자 우려")
	}
	out = append(out, fmt.Sprintf("📈 행동 vs 성과 상관도: %.3f", a))
	if a < 0.3 {
		out = append(out, "⚠️ 루틴과 성과 간 일치도 낮음 → 점검 필요")
	}
	return out
}

// DiaryEntry is one emotion diary record
type DiaryEntry struct {
	Date    time.Time `json:"date"`
	Emotion string    `json:"emotion"`
	Entry   string    `json:"entry"`
}

// GrowthCoach turns diary entries into challenges and feedback
type GrowthCoach struct {
	diary []DiaryEntry
}

// NewGrowthCoach creates a coach
func NewGrowthCoach(diary []DiaryEntry) *GrowthCoach {
	return &GrowthCoach{diary: diary}
}

// Challenges lists growth challenges; the diary-count goal shows progress
func (g *GrowthCoach) Challenges() []string {
	return []string{
		"🎯 30일 연속 전략 유지",
		fmt.Sprintf("🧠 감정 기록 20회 이상 달성 (%d/20)", min(len(g.diary), 20)),
		"📒 리밸런싱 주기 지키기",
	}
}

// Feedback flags chasing and anxious entries
func (g *GrowthCoach) Feedback() []string {
	var tips []string
	for _, e := range g.diary {
		if strings.Contains(e.Entry, "급등 따라잡기") {
			tips = append(tips, "📌 과열 시 조급 진입은 수익률 저하로 이어질 수 있습니다.")
		}
		if e.Emotion == "불안" {
			tips = append(tips, "🧘 감정이 격해질 때는 진입보다 관망을 고려해보세요.")
		}
	}
	if len(tips) == 0 {
		tips = append(tips, "✅ 감정 일지에서 특별한 이상은 감지되지 않았습니다.")
	}
	return tips
}
