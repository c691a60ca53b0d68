package strategy

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/internal/contracts"
)

func TestSuggest(t *testing.T) {
	tests := []struct {
		name string
		in   SuggestInput
		want string
	}{
		{"hot growth", SuggestInput{Sentiment: 70, RevenueGrowth: 0.2}, SuggestGrowth},
		{"cheap in high rates", SuggestInput{PER: 8, PEG: 0.8, InterestRate: 3.5, Sentiment: 50}, SuggestValue},
		{"quality in fear", SuggestInput{ROE: 12, Volatility: 0.25, Sentiment: 30}, SuggestStable},
		{"default", SuggestInput{Sentiment: 55}, SuggestMomentum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggest(tt.in))
		})
	}
}

func TestDetectShift(t *testing.T) {
	_, err := DetectShift(make([]float64, 10), nil, nil)
	assert.True(t, errors.Is(err, ErrInsufficientHistory))

	flat := make([]float64, 40)
	for i := range flat {
		flat[i] = 1.0
	}
	s, err := DetectShift(flat, []float64{50, 50, 50, 50}, [][]float64{{3, 3, 3}})
	require.NoError(t, err)
	assert.False(t, s.Triggered)
	assert.Equal(t, 1.0, s.Stability)

	s, err = DetectShift(flat, []float64{50, 62, 75, 90}, [][]float64{{3.0, 3.3, 3.0}})
	require.NoError(t, err)
	assert.True(t, s.Triggered)
	assert.Equal(t, "시장 심리 급변 + 매크로 변수 급등락", s.Reason())
}

func TestCompare(t *testing.T) {
	ranked := Compare([]Candidate{
		{Name: "A-성장형", CumulativeReturn: 0.42, MDD: -0.25, Sharpe: 1.05, SentimentFit: 75, Stability: 0.72},
		{Name: "B-가치형", CumulativeReturn: 0.33, MDD: -0.15, Sharpe: 0.88, SentimentFit: 62, Stability: 0.81},
		{Name: "C-모멘텀형", CumulativeReturn: 0.39, MDD: -0.21, Sharpe: 1.12, SentimentFit: 58, Stability: 0.64},
	})
	require.Len(t, ranked, 3)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].Composite, ranked[i].Composite)
	}
	// B has the shallowest drawdown, so its MDD leg is 1
	for _, r := range ranked {
		assert.True(t, r.Composite >= 0 && r.Composite <= 1)
	}
	assert.Contains(t, Explain(ranked[0]), "전략 해설")
	assert.Nil(t, Compare(nil))
}

func TestScoreByProfileAndBias(t *testing.T) {
	metrics := []contracts.StrategyMetrics{
		{Name: "safe", CAGR: 0.08, MDD: -0.05, Sharpe: 1.2},
		{Name: "wild", CAGR: 0.35, MDD: -0.40, Sharpe: 0.9},
	}

	conservative := ScoreByProfile(metrics, contracts.RiskLow)
	best, ok := Best(conservative)
	require.True(t, ok)
	assert.Equal(t, "safe", best.Name)

	aggressive := BehavioralAdjust(ScoreByProfile(metrics, contracts.RiskHigh), BiasOverconfidence)
	best, _ = Best(aggressive)
	assert.Equal(t, "wild", best.Name)

	averse := BehavioralAdjust(conservative, BiasLossAversion)
	assert.InDelta(t, conservative[1].Score-0.12, averse[1].Score, 1e-12)

	assert.Equal(t, UserTypeWeights(contracts.RiskMid), UserTypeWeights("unknown"))
	assert.Equal(t, "safe 전략은 수익 대비 리스크가 우수하며 낙폭이 작아 안정적입니다.", ExplainComparison(conservative[0]))
	assert.InDelta(t, 0.5/(0.25+1e-6), Calmar(0.5, -0.25), 1e-9)
}

func TestRollingLeader(t *testing.T) {
	got := RollingLeader(map[string][]float64{
		"a": {0.03, 0.03, 0.00, 0.00},
		"b": {0.00, 0.00, 0.04, 0.04},
	}, 2)
	assert.Equal(t, []string{"", "a", "b", "b"}, got)
}

func TestAnalysis(t *testing.T) {
	metrics := []contracts.StrategyMetrics{
		{Name: "A", CAGR: 0.12, Volatility: 0.10, Sharpe: 1.1, Calmar: 0.9, MDD: -0.12},
		{Name: "B", CAGR: 0.18, Volatility: 0.20, Sharpe: 0.8, Calmar: 0.7, MDD: -0.25},
		{Name: "C", CAGR: 0.10, Volatility: 0.15, Sharpe: 0.2, Calmar: 0.3, MDD: -0.65},
		{Name: "D", CAGR: 0.80, Volatility: 0.30, Sharpe: 1.5, Calmar: 1.2, MDD: -0.30},
	}

	assert.Equal(t, []string{"A", "B", "D"}, ParetoFront(metrics))

	norm := NormalizeMetrics(metrics)
	assert.Equal(t, 1.0, norm[3].CAGR)
	assert.Equal(t, 0.0, norm[2].CAGR)

	assert.Contains(t, Interpret(metrics[2]), "고위험")
	assert.Contains(t, Interpret(metrics[3]), "매우 높습니다")
	assert.Empty(t, Interpret(metrics[0]))

	pts, err := PCA(norm)
	require.NoError(t, err)
	require.Len(t, pts, 4)
	var sumX float64
	for _, p := range pts {
		sumX += p.X
	}
	assert.InDelta(t, 0, sumX, 1e-9, "projections are centred")

	_, err = PCA(norm[:1])
	assert.ErrorIs(t, err, ErrTooFewStrategies)

	names, corr := CorrelationMatrix(map[string][]float64{"x": {1, 2, 3}, "y": {3, 2, 1}})
	assert.Equal(t, []string{"x", "y"}, names)
	assert.InDelta(t, -1, corr[0][1], 1e-12)
}

func TestRouter(t *testing.T) {
	r := NewRouter(nil)
	tests := []struct {
		prob float64
		want string
	}{
		{0.2, RouteConservative},
		{0.4, RouteConservative},
		{0.55, RouteNeutral},
		{0.9, RouteAggressive},
		{1.2, RouteAggressive},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Route(tt.prob), "prob %v", tt.prob)
	}

	base := map[string]float64{RouteConservative: 0.3, RouteNeutral: 0.4, RouteAggressive: 0.3}
	w := AdjustUserWeights(base, RouteConservative)
	assert.Equal(t, 0.3, base[RouteConservative], "input untouched")
	var total float64
	for _, v := range w {
		total += v
	}
	assert.InDelta(t, 1, total, 1e-12)
	assert.Greater(t, w[RouteConservative], w[RouteAggressive])
	assert.InDelta(t, 0.39/1.0, w[RouteConservative], 1e-12)

	ft := NewFlowTracker()
	tr := ft.Record(r.Route(0.7), 0.7, 0.8)
	assert.Len(t, tr.ID, 8)
	assert.Equal(t, []string{"전략 aggressive (예측 상승확률 0.70, 신뢰도 0.80)"}, ft.Explain())
	assert.False(t, math.IsNaN(tr.Prob))
}
