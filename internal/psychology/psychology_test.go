package psychology

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/internal/contracts"
)

func ret(v float64) *float64 { return &v }

var base = time.Date(2025, 7, 7, 9, 0, 0, 0, time.UTC) // 월요일

func act(hours int, typ contracts.ActionType, strategy string, pnl *float64) contracts.Action {
	return contracts.Action{
		UserID:    "u1",
		ActedAt:   base.Add(time.Duration(hours) * time.Hour),
		Code:      "005930",
		Type:      typ,
		Strategy:  strategy,
		Price:     70000,
		Quantity:  10,
		ReturnPct: pnl,
	}
}

func TestActionLogOrdering(t *testing.T) {
	log := NewActionLog(
		act(48, contracts.ActionSell, "A", nil),
		act(0, contracts.ActionEntry, "A", nil),
	)
	log.Record(act(24, contracts.ActionAddBuy, "A", nil))

	got := log.Actions()
	require.Equal(t, 3, log.Len())
	assert.Equal(t, contracts.ActionEntry, got[0].Type)
	assert.Equal(t, contracts.ActionAddBuy, got[1].Type)
	assert.Equal(t, contracts.ActionSell, got[2].Type)
}

func TestBiasMetrics(t *testing.T) {
	actions := []contracts.Action{
		act(0, contracts.ActionAddBuy, "A", ret(0.02)),
		act(12, contracts.ActionEntry, "A", ret(0.01)),
		act(24, contracts.ActionSell, "A", ret(-0.03)),
		act(36, contracts.ActionSell, "A", ret(-0.01)),
		act(48, contracts.ActionEntry, "A", ret(-0.02)),
	}
	b := BiasMetrics(actions)
	assert.Equal(t, 50.0, b.Overconfidence)
	assert.InDelta(t, 66.67, b.LossAversion, 1e-9)
	assert.Equal(t, 2.0, b.Frequency, "one action every 12 hours")

	assert.Equal(t, Bias{}, BiasMetrics(nil))
}

func TestInvestorType(t *testing.T) {
	tests := []struct {
		name string
		bias Bias
		want string
	}{
		{"simons", Bias{Overconfidence: 80, Frequency: 6}, "짐 사이먼스형 (공격적 + 고빈도)"},
		{"averse", Bias{LossAversion: 75, Frequency: 3}, "변동성 회피형 (보수적 + 손실 회피)"},
		{"buffett", Bias{Frequency: 1}, "워렌 버핏형 (저빈도 + 장기 보유)"},
		{"neutral", Bias{Overconfidence: 40, Frequency: 3}, "중립형 투자자"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InvestorType(tt.bias); got != tt.want {
				t.Errorf("InvestorType() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildHeatmap(t *testing.T) {
	actions := []contracts.Action{
		act(0, contracts.ActionEntry, "A", ret(0.02)),
		act(0, contracts.ActionEntry, "A", ret(-0.01)),
		act(1, contracts.ActionEntry, "A", nil),
	}
	h := BuildHeatmap(actions)
	rate, ok := h.Rate(time.Monday, 9)
	require.True(t, ok)
	assert.Equal(t, 0.5, rate)
	_, ok = h.Rate(time.Monday, 10)
	assert.False(t, ok, "unsettled actions are ignored")
}

func TestEmotionCorrelation(t *testing.T) {
	a := act(0, contracts.ActionEntry, "A", ret(0.03))
	a.Emotion = "확신"
	b := act(1, contracts.ActionEntry, "B", ret(-0.01))
	b.Emotion = "불안"
	c := act(2, contracts.ActionEntry, "C", ret(-0.02))
	c.Emotion = "불안"
	d := act(24, contracts.ActionEntry, "A", ret(0.02))
	e := act(48, contracts.ActionEntry, "A", ret(0.01))
	f := act(49, contracts.ActionEntry, "B", ret(-0.04))

	es := EmotionCorrelation([]contracts.Action{a, b, c, d, e, f})
	assert.InDelta(t, 0.03, es.ByEmotion["확신"], 1e-9)
	assert.InDelta(t, -0.015, es.ByEmotion["불안"], 1e-9)
	assert.Less(t, es.ChangeReturnCorr, 0.0, "more strategy hopping, worse days")
}

func TestRecommendFromMistakes(t *testing.T) {
	assert.Equal(t, "추천 불가: 로그 없음", RecommendFromMistakes(nil))
	assert.Contains(t, RecommendFromMistakes([]contracts.Action{
		act(0, contracts.ActionEntry, "A", ret(-0.01)),
		act(1, contracts.ActionEntry, "A", ret(-0.02)),
		act(2, contracts.ActionSell, "A", ret(0.01)),
	}), "분할매수")
	assert.Contains(t, RecommendFromMistakes([]contracts.Action{
		act(0, contracts.ActionSell, "A", ret(-0.01)),
		act(1, contracts.ActionHold, "A", nil),
		act(2, contracts.ActionSell, "A", ret(0.01)),
		act(3, contracts.ActionHold, "A", nil),
	}), "저변동")
	assert.Equal(t, "현재 전략 유지 가능", RecommendFromMistakes([]contracts.Action{
		act(0, contracts.ActionSell, "A", ret(0.01)),
	}))
}

func TestGhostReplay(t *testing.T) {
	old := act(0, contracts.ActionSell, "A", ret(0.05))
	recent := act(24*20, contracts.ActionEntry, "A", ret(0.01))
	other := act(1, contracts.ActionEntry, "A", ret(0.0))
	other.Code = "000660"
	now := base.AddDate(0, 0, 21)

	trades := GhostReplay([]contracts.Action{old, other, recent}, now, GhostDays, map[string]float64{"005930": 84000})
	require.Len(t, trades, 1, "recent actions and unknown prices are skipped")
	assert.InDelta(t, 0.2, trades[0].Held, 1e-9)
	assert.InDelta(t, 0.15, trades[0].Regret, 1e-9)
	assert.Contains(t, GhostSummary(trades), "1건 중 1건")
	assert.Contains(t, GhostSummary(nil), "없습니다")
}

func TestRoutinePlanner(t *testing.T) {
	r := NewRoutinePlanner(RoutineProfile{Style: "보수형", RebalanceCycle: "주간", AvailableTime: "30분"}).Suggest()
	assert.Len(t, r.Suggestions, 3)
	assert.Len(t, r.Structure, 4)

	r = NewRoutinePlanner(RoutineProfile{Style: "공격형"}).Suggest()
	assert.Empty(t, r.Suggestions)
}

func TestHabitEvaluator(t *testing.T) {
	days := []HabitDay{
		{StrategyChanged: false, Reviewed: true, GainLoss: 0.02},
		{StrategyChanged: true, Reviewed: false, GainLoss: -0.01},
		{StrategyChanged: false, Reviewed: true, GainLoss: 0.01},
		{StrategyChanged: true, Reviewed: false, GainLoss: -0.02},
	}
	h := NewHabitEvaluator(days)
	assert.Equal(t, 0.5, h.Consistency())
	assert.Greater(t, h.Alignment(), 0.8)

	report := h.Report()
	assert.Contains(t, report[0], "50.0%")
	assert.Contains(t, report[1], "감정 투자")
	assert.Len(t, report, 3)
}

func TestGrowthCoach(t *testing.T) {
	g := NewGrowthCoach([]DiaryEntry{
		{Emotion: "불안", Entry: "급락에 당황"},
		{Emotion: "흥분", Entry: "급등 따라잡기 매수"},
	})
	assert.Len(t, g.Feedback(), 2)
	assert.Contains(t, g.Challenges()[1], "2/20")
	assert.Len(t, NewGrowthCoach(nil).Feedback(), 1)
}

func TestMeta(t *testing.T) {
	js := []Judgment{
		{Time: base, EmotionScore: 0.9, IndicatorScore: 0.2, Outcome: -0.05, DecisionQuality: 0.3},
		{Time: base.Add(30 * time.Minute), EmotionScore: -0.8, IndicatorScore: 0.6, Outcome: 0.04, DecisionQuality: 0.7},
		{Time: base.Add(3 * time.Hour), EmotionScore: 0.5, IndicatorScore: 0.1, Outcome: -0.02, DecisionQuality: 0.5},
		{Time: base.Add(5 * time.Hour), EmotionScore: -0.6, IndicatorScore: 0.8, Outcome: 0.03, DecisionQuality: 0.9},
	}
	r, err := Meta(js)
	require.NoError(t, err)
	assert.Less(t, r.Correlations.EmotionOutcome, 0.0)
	assert.Equal(t, 1.0, r.Bias.Overconfidence)
	assert.Equal(t, 0.5, r.Bias.Avoidance)
	assert.InDelta(t, 0.333, r.Bias.ShortTermFixation, 1e-9)
	assert.Equal(t, 0.4, r.Bias.UncertaintyAvoidance)
	assert.Len(t, r.Interpretation, 3)

	_, err = Meta(nil)
	assert.ErrorIs(t, err, ErrNoJudgments)
}

func TestGrowthTracker(t *testing.T) {
	g := NewGrowthTracker()
	_, ok := g.Latest()
	assert.False(t, ok)

	g.Record(GrowthPoint{Time: base, Consistency: 0.3, StrategyAdherence: 0.3, EmotionControl: 0.3})
	g.Record(GrowthPoint{Time: base.AddDate(0, 0, 7), Consistency: 0.6, StrategyAdherence: 0.6, EmotionControl: 0.6})
	latest, ok := g.Latest()
	require.True(t, ok)
	assert.InDelta(t, 0.6, latest.Index(), 1e-9)
	assert.InDelta(t, 0.3, g.Trend(), 1e-9)
}

func TestSelfLearningLoop(t *testing.T) {
	l := NewSelfLearningLoop(contracts.RiskLow)
	outcomes := []LoopOutcome{
		{Strategy: "momentum", SuccessRate: 0.5, Drawdown: 0.1},
		{Strategy: "value", SuccessRate: 0.7, Drawdown: 0.2},
		{Strategy: "quality", SuccessRate: 0.8, Drawdown: 0.05},
	}
	imps := l.Recommend(outcomes)
	require.Len(t, imps, 2)
	assert.Equal(t, "진입 조건 완화 권장", imps[0].Recommendation)
	assert.Equal(t, "손절 기준 강화 권장", imps[1].Recommendation)

	th := l.Learn(outcomes)
	assert.InDelta(t, 0.61, th.MinSuccessRate, 1e-9)
	assert.InDelta(t, 0.145, th.MaxDrawdown, 1e-9)
	assert.Equal(t, th, l.Thresholds())

	card := l.Cardify(outcomes)
	assert.Contains(t, card.Content, "보수형")
}
