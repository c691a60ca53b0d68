package psychology

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// GhostDays is how far back the ghost replay looks by default
const GhostDays = 14

// ghostLimit 재현할 최대 판단 수
const ghostLimit = 10

// ActionLog is an in-memory, time-ordered log of investor actions.
// It is safe for concurrent use.
type ActionLog struct {
	mu      sync.RWMutex
	actions []contracts.Action
}

// NewActionLog seeds a log, e.g. from the action_log table
func NewActionLog(actions ...contracts.Action) *ActionLog {
	l := &ActionLog{}
	for _, a := range actions {
		l.Record(a)
	}
	return l
}

// Record appends an action, keeping the log ordered by ActedAt
func (l *ActionLog) Record(a contracts.Action) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := sort.Search(len(l.actions), func(i int) bool {
		return l.actions[i].ActedAt.After(a.ActedAt)
	})
	l.actions = append(l.actions, contracts.Action{})
	copy(l.actions[i+1:], l.actions[i:])
	l.actions[i] = a
}

// Actions returns a copy of the log
func (l *ActionLog) Actions() []contracts.Action {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]contracts.Action(nil), l.actions...)
}

// Len returns the number of logged actions
func (l *ActionLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.actions)
}

// Bias quantifies behavioral tendencies, each in percent except Frequency
type Bias struct {
	Overconfidence float64 `json:"overconfidence"` // 수익 중 추가매수 비율 %
	LossAversion   float64 `json:"loss_aversion"`  // 손실 중 매도 비율 %
	Frequency      float64 `json:"frequency"`      // 하루 평균 행동 수
}

// BiasMetrics measures overconfidence (adding while in profit), loss
// aversion (selling while at a loss) and daily action frequency
func BiasMetrics(actions []contracts.Action) Bias {
	var b Bias
	var wins, adds, losses, sells int
	for _, a := range actions {
		switch {
		case a.PnL() > 0:
			wins++
			if a.Type == contracts.ActionAddBuy {
				adds++
			}
		case a.PnL() < 0:
			losses++
			if a.Type == contracts.ActionSell {
				sells++
			}
		}
	}
	if wins > 0 {
		b.Overconfidence = round2(float64(adds) / float64(wins) * 100)
	}
	if losses > 0 {
		b.LossAversion = round2(float64(sells) / float64(losses) * 100)
	}

	if len(actions) > 1 {
		span := actions[len(actions)-1].ActedAt.Sub(actions[0].ActedAt)
		if gap := span.Seconds() / float64(len(actions)-1); gap > 0 {
			b.Frequency = round2(86400 / gap)
		}
	}
	return b
}

// Heatmap holds the success rate of decisions by weekday and hour
type Heatmap struct {
	Success [7][24]float64 `json:"success"` // [time.Weekday][hour]
	Count   [7][24]int     `json:"count"`
}

// Rate returns the success rate of a cell and whether it has data
func (h *Heatmap) Rate(day time.Weekday, hour int) (float64, bool) {
	if h.Count[day][hour] == 0 {
		return 0, false
	}
	return h.Success[day][hour], true
}

// BuildHeatmap groups settled actions by weekday × hour; a decision is a
// success when its return is positive
func BuildHeatmap(actions []contracts.Action) *Heatmap {
	h := &Heatmap{}
	var wins [7][24]int
	for _, a := range actions {
		if !a.Settled() {
			continue
		}
		d, hr := a.ActedAt.Weekday(), a.ActedAt.Hour()
		h.Count[d][hr]++
		if a.PnL() > 0 {
			wins[d][hr]++
		}
	}
	for d := range h.Count {
		for hr, n := range h.Count[d] {
			if n > 0 {
				h.Success[d][hr] = float64(wins[d][hr]) / float64(n)
			}
		}
	}
	return h
}

// InvestorType names the investor style implied by the bias metrics
func InvestorType(b Bias) string {
	switch {
	case b.Overconfidence > 70 && b.Frequency > 5:
		return "짐 사이먼스형 (공격적 + 고빈도)"
	case b.LossAversion > 70:
		return "변동성 회피형 (보수적 + 손실 회피)"
	case b.Frequency < 2:
		return "워렌 버핏형 (저빈도 + 장기 보유)"
	default:
		return "중립형 투자자"
	}
}

// EmotionStats relates behavior to results
type EmotionStats struct {
	// 일별 전략 변경 수 ↔ 일별 수익 상관계수
	ChangeReturnCorr float64 `json:"change_return_corr"`
	// 감정별 평균 수익률
	ByEmotion map[string]float64 `json:"by_emotion"`
}

// EmotionCorrelation correlates the number of distinct strategies used per
// day with that day's summed return, and averages returns per emotion
func EmotionCorrelation(actions []contracts.Action) EmotionStats {
	type day struct {
		strategies map[string]bool
		pnl        float64
	}
	days := make(map[string]*day)
	var keys []string
	sum := make(map[string]float64)
	cnt := make(map[string]int)

	for _, a := range actions {
		k := a.ActedAt.Format("2006-01-02")
		d, ok := days[k]
		if !ok {
			d = &day{strategies: make(map[string]bool)}
			days[k] = d
			keys = append(keys, k)
		}
		d.strategies[a.Strategy] = true
		d.pnl += a.PnL()

		if a.Emotion != "" && a.Settled() {
			sum[a.Emotion] += a.PnL()
			cnt[a.Emotion]++
		}
	}

	changes := make([]float64, len(keys))
	pnls := make([]float64, len(keys))
	for i, k := range keys {
		changes[i] = float64(len(days[k].strategies))
		pnls[i] = days[k].pnl
	}

	es := EmotionStats{
		ChangeReturnCorr: stats.Correlation(changes, pnls),
		ByEmotion:        make(map[string]float64, len(sum)),
	}
	for e, s := range sum {
		es.ByEmotion[e] = s / float64(cnt[e])
	}
	return es
}

// RecommendFromMistakes suggests a control strategy from repeated mistakes
func RecommendFromMistakes(actions []contracts.Action) string {
	if len(actions) == 0 {
		return "추천 불가: 로그 없음"
	}
	var entryLoss, wins int
	for _, a := range actions {
		if a.Type == contracts.ActionEntry && a.PnL() < 0 {
			entryLoss++
		}
		if a.PnL() > 0 {
			wins++
		}
	}
	n := float64(len(actions))
	switch {
	case float64(entryLoss)/n > 0.5:
		return "과도한 조기 진입 경향 → '분할매수 전략' 추천"
	case float64(wins)/n < 0.3:
		return "전략 신뢰도 낮음 → '저변동 자산 비중 확대' 추천"
	default:
		return "현재 전략 유지 가능"
	}
}

// GhostTrade compares what a past decision earned with simply holding
type GhostTrade struct {
	Action contracts.Action `json:"action"`
	Actual float64          `json:"actual"` // 실제 결과 수익률
	Held   float64          `json:"held"`   // 계속 보유했을 때 수익률
	Regret float64          `json:"regret"` // Held - Actual
}

// GhostReplay replays up to ten decisions made more than days ago and
// compares their realized return with holding until the latest price.
// Actions without a latest price are skipped.
func GhostReplay(actions []contracts.Action, now time.Time, days int, latest map[string]float64) []GhostTrade {
	cutoff := now.AddDate(0, 0, -days)
	var past []contracts.Action
	for _, a := range actions {
		if a.ActedAt.Before(cutoff) {
			past = append(past, a)
		}
	}
	if len(past) > ghostLimit {
		past = past[len(past)-ghostLimit:]
	}

	var out []GhostTrade
	for _, a := range past {
		p, ok := latest[a.Code]
		if !ok || a.Price <= 0 {
			continue
		}
		held := p/a.Price - 1
		out = append(out, GhostTrade{Action: a, Actual: a.PnL(), Held: held, Regret: held - a.PnL()})
	}
	return out
}

// GhostSummary is a one-line read-out of a ghost replay
func GhostSummary(trades []GhostTrade) string {
	if len(trades) == 0 {
		return "재현할 과거 판단이 없습니다."
	}
	var better int
	for _, t := range trades {
		if t.Regret > 0 {
			better++
		}
	}
	return fmt.Sprintf("%d건 중 %d건은 그대로 보유했다면 더 나은 결과였습니다.", len(trades), better)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
