package macro

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/internal/contracts"
)

func snapshots(n int) []contracts.MacroSnapshot {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]contracts.MacroSnapshot, n)
	for i := range out {
		out[i] = contracts.MacroSnapshot{
			Date: start.AddDate(0, 0, i),
			Rate: float64(i),
			CPI:  3.0,
			Oil:  float64(n - i),
			FX:   1300,
		}
	}
	return out
}

func TestScore(t *testing.T) {
	s, err := Score(snapshots(40), Profile{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s.Rate, 1e-9, "latest rate is the window max")
	assert.Equal(t, 0.0, s.CPI, "constant series scales to 0")
	assert.Equal(t, 0.0, s.Oil, "latest oil is the window min")

	s, err = Score(snapshots(40), Profile{RiskAversion: "high", Sensitivity: "inflation"})
	require.NoError(t, err)
	assert.InDelta(t, 1.2, s.Rate, 1e-9)

	_, err = Score(nil, Profile{})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestInterpretAndRecommend(t *testing.T) {
	tests := []struct {
		name     string
		scores   Scores
		scenario string
		strategy string
	}{
		{"tightening", Scores{Rate: 0.9, CPI: 0.8}, "긴축 시나리오", "가치주 전략"},
		{"limited", Scores{Rate: 0.8, CPI: 0.2}, "제한적 긴축", "중립 전략"},
		{"inflation", Scores{Rate: 0.1, CPI: 0.75, Oil: 0.7}, "인플레이션 위험", "원자재 중심 전략"},
		{"export", Scores{Rate: 0.5, CPI: 0.5, FX: 0.9}, "중립 또는 혼조", "수출 중심 전략"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Interpret(tt.scores).Name; got != tt.scenario {
				t.Errorf("Interpret() = %q, want %q", got, tt.scenario)
			}
			if got := RecommendStrategy(tt.scores).Strategy; got != tt.strategy {
				t.Errorf("RecommendStrategy() = %q, want %q", got, tt.strategy)
			}
		})
	}
}

func TestCrisisSimilarity(t *testing.T) {
	m, err := CrisisSimilarity([]float64{0.9, 0.8, 0.7, 0.6})
	require.NoError(t, err)
	assert.Equal(t, "2008_crisis", m.Name)
	assert.InDelta(t, 1.0, m.Similarity, 1e-9)

	m, err = CrisisSimilarity([]float64{0.3, 0.9, 0.4, 0.7})
	require.NoError(t, err)
	assert.Equal(t, "2020_covid", m.Name)

	_, err = CrisisSimilarity([]float64{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestAnalyze(t *testing.T) {
	a, err := Analyze(snapshots(40), Profile{})
	require.NoError(t, err)
	assert.NotEmpty(t, a.Scenario.Name)
	assert.NotEmpty(t, a.SimilarCrisis.Name)
	assert.NotEmpty(t, a.Recommendation.Strategy)
	require.Len(t, a.Events, 40-YoYLag)
	assert.Equal(t, a.Events[len(a.Events)-1].Tag, a.CurrentEvent)

	short, err := Analyze(snapshots(YoYLag), Profile{})
	require.NoError(t, err)
	assert.Empty(t, short.Events, "a year of snapshots has no YoY rows")
	assert.Empty(t, short.CurrentEvent)
}

func TestScenarioProbabilities(t *testing.T) {
	p, err := ScenarioProbabilities([]float64{0.02, -0.02, 0, 0.005}, 0.01)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, p.Up, 1e-9)
	assert.InDelta(t, 0.5, p.Flat, 1e-9)
	assert.InDelta(t, 0.25, p.Down, 1e-9)
	assert.Equal(t, RegimeFlat, p.Most())

	_, err = ScenarioProbabilities(nil, 0.01)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestRemoveOverlap(t *testing.T) {
	in := []ScenarioStrategy{
		{Regime: RegimeUp, Components: []string{"A", "B"}},
		{Regime: RegimeFlat, Components: []string{"B", "C"}},
		{Regime: RegimeDown, Components: []string{"A", "C", "D"}},
	}
	out := RemoveOverlap(in)
	assert.Equal(t, []string{"A", "B"}, out[0].Components)
	assert.Equal(t, []string{"C"}, out[1].Components)
	assert.Equal(t, []string{"D"}, out[2].Components)
	assert.Equal(t, []string{"B", "C"}, in[1].Components, "input untouched")

	s, ok := StrategyForScenario(RegimeDown)
	require.True(t, ok)
	assert.Len(t, s.Components, 3)
	_, ok = StrategyForScenario("sideways")
	assert.False(t, ok)
}

func TestChangePoints(t *testing.T) {
	series := make([]float64, 20)
	for i := 10; i < 20; i++ {
		series[i] = 5
	}
	assert.Equal(t, []int{10}, ChangePoints(series, 1))
	assert.Equal(t, []int{10}, ChangePoints(series, 3), "no gain beyond the true break")

	steps := append(append(make([]float64, 0, 30), series...), 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	assert.Equal(t, []int{10, 20}, ChangePoints(steps, 2))

	assert.Nil(t, ChangePoints([]float64{1, 2, 3}, 1))
}

func TestFlowMap(t *testing.T) {
	fm := NewFlowMap([]Regime{RegimeUp, RegimeUp, RegimeDown, RegimeUp})
	assert.InDelta(t, 0.5, fm[RegimeUp][RegimeUp], 1e-9)
	assert.InDelta(t, 0.5, fm[RegimeUp][RegimeDown], 1e-9)
	assert.InDelta(t, 1.0, fm[RegimeDown][RegimeUp], 1e-9)
	assert.Equal(t, RegimeUp, fm.Next(RegimeDown))
	assert.Equal(t, RegimeFlat, fm.Next(RegimeFlat), "unseen regime stays put")
}

func TestBranch(t *testing.T) {
	returns := []float64{0.02, 0.02, 0.02, 0.02, -0.03, -0.03, -0.03, -0.03}
	b, err := Branch(returns, DefaultRegimeThreshold)
	require.NoError(t, err)
	assert.Equal(t, 4, b.LastShift)
	assert.Len(t, b.Strategies, 3)
	assert.InDelta(t, 0.75, b.Flow[RegimeUp][RegimeUp], 1e-9)
	assert.InDelta(t, 0.5, b.Probabilities.Up, 1e-9)
}

func TestYoYChanges(t *testing.T) {
	cpi := make([]float64, 14)
	rate := make([]float64, 14)
	for i := range cpi {
		cpi[i] = math.Pow(1.01, float64(i))
		rate[i] = 2
	}
	tbl, err := YoYChanges(map[string][]float64{"cpi": cpi, "interest_rate": rate})
	require.NoError(t, err)
	assert.Equal(t, []string{"cpi", "interest_rate"}, tbl.Names)
	require.Len(t, tbl.Rows, 2)
	assert.InDelta(t, math.Pow(1.01, 12)-1, tbl.Column("cpi")[0], 1e-9)
	assert.Equal(t, []float64{0, 0}, tbl.Column("interest_rate"))
	assert.Nil(t, tbl.Column("oil"))

	_, err = YoYChanges(map[string][]float64{"cpi": cpi, "oil": cpi[:13]})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
	_, err = YoYChanges(map[string][]float64{"cpi": cpi[:12]})
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestTagEvents(t *testing.T) {
	tbl := &YoYTable{Names: []string{"cpi", "interest_rate", "oil", "unemployment"}}
	for i := 0; i < 5; i++ {
		tbl.Rows = append(tbl.Rows, []float64{0.05, 0.05, 0, 0})
	}
	for i := 0; i < 5; i++ {
		tbl.Rows = append(tbl.Rows, []float64{0, 0, 0.1, 0})
	}

	tags, err := TagEvents(tbl, 2)
	require.NoError(t, err)
	require.Len(t, tags, 10)
	for i, tag := range tags {
		want := TagTightening
		if i >= 5 {
			want = TagInflation
		}
		if tag.Tag != want {
			t.Errorf("row %d tag = %q, want %q", i, tag.Tag, want)
		}
	}
	assert.NotEqual(t, tags[0].Cluster, tags[9].Cluster)

	_, err = TagEvents(tbl, 20)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCrisisRecovery(t *testing.T) {
	r, err := CrisisRecovery([]float64{100, 120, 90, 100, 121, 130}, 0)
	require.NoError(t, err)
	assert.InDelta(t, -0.25, r.MaxDrawdown, 1e-9)
	assert.Equal(t, 2, r.TroughIndex)
	assert.True(t, r.Recovered)
	assert.Equal(t, 2, r.RecoveryDays)

	r, err = CrisisRecovery([]float64{100, 80, 90}, 0)
	require.NoError(t, err)
	assert.False(t, r.Recovered)
	assert.Contains(t, r.String(), "미복구")

	_, err = CrisisRecovery([]float64{100}, 0)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestCrisisImpacts(t *testing.T) {
	s := &contracts.Series{Code: "KOSPI"}
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 300; i++ {
		c := 100.0
		switch {
		case i >= 60 && i < 90:
			c = 100 - float64(i-59)
		case i >= 90:
			c = 70 + float64(i-89)
		}
		s.Bars = append(s.Bars, contracts.Bar{Date: start.AddDate(0, 0, i), Close: c})
	}

	impacts := CrisisImpacts(s, DefaultCrises)
	require.Len(t, impacts, 1)
	assert.Equal(t, "코로나", impacts[0].Crisis)
	assert.InDelta(t, -0.30, impacts[0].Recovery.MaxDrawdown, 1e-9)
	assert.True(t, impacts[0].Recovery.Recovered)
}
