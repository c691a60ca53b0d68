package macro

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// ScoreWindow is the number of recent observations used for min-max scoring
const ScoreWindow = 30

var (
	// ErrInsufficientData is returned when a calculation lacks observations
	ErrInsufficientData = errors.New("insufficient macro data")
	// ErrDimensionMismatch is returned when vectors or columns differ in length
	ErrDimensionMismatch = errors.New("dimension mismatch")
)

// Profile tilts macro scores toward what the user is sensitive to
type Profile struct {
	RiskAversion string `json:"risk_aversion"` // "high" → 금리 ×1.2
	Sensitivity  string `json:"sensitivity"`   // "inflation" → CPI ×1.3
}

// Scores are the latest macro readings scaled into [0,1] against the window
type Scores struct {
	Rate float64 `json:"interest_rate"`
	CPI  float64 `json:"cpi"`
	Oil  float64 `json:"oil_price"`
	FX   float64 `json:"usd_krw"`
}

// Vector returns rate, cpi, oil, fx
func (s Scores) Vector() []float64 {
	return []float64{s.Rate, s.CPI, s.Oil, s.FX}
}

// Score min-max scales each indicator over the last ScoreWindow snapshots and
// returns the scaled value of the latest one
func Score(snapshots []contracts.MacroSnapshot, p Profile) (Scores, error) {
	if len(snapshots) == 0 {
		return Scores{}, ErrInsufficientData
	}
	if len(snapshots) > ScoreWindow {
		snapshots = snapshots[len(snapshots)-ScoreWindow:]
	}

	column := func(get func(contracts.MacroSnapshot) float64) float64 {
		vals := make([]float64, len(snapshots))
		for i, s := range snapshots {
			vals[i] = get(s)
		}
		scaled := stats.MinMax(vals)
		return scaled[len(scaled)-1]
	}

	s := Scores{
		Rate: column(func(m contracts.MacroSnapshot) float64 { return m.Rate }),
		CPI:  column(func(m contracts.MacroSnapshot) float64 { return m.CPI }),
		Oil:  column(func(m contracts.MacroSnapshot) float64 { return m.Oil }),
		FX:   column(func(m contracts.MacroSnapshot) float64 { return m.FX }),
	}

	if p.RiskAversion == "high" {
		s.Rate *= 1.2
	}
	if p.Sensitivity == "inflation" {
		s.CPI *= 1.3
	}
	return s, nil
}

// Scenario is a named macro regime with an explanation
type Scenario struct {
	Name        string `json:"name"`
	Explanation string `json:"explanation"`
}

// Interpret maps rate/CPI scores to a macro scenario
func Interpret(s Scores) Scenario {
	switch {
	case s.Rate > 0.7 && s.CPI > 0.7:
		return Scenario{"긴축 시나리오", "금리와 인플레이션이 모두 높은 국면 → 가치주 중심 전략 적합"}
	case s.Rate > 0.7 && s.CPI < 0.4:
		return Scenario{"제한적 긴축", "금리는 높지만 인플레이션은 안정 → 배당·고정수익 전략 유효"}
	case s.Rate < 0.3 && s.CPI > 0.6:
		return Scenario{"인플레이션 위험", "저금리-고CPI → 원자재/리얼에셋 비중 확대 필요"}
	default:
		return Scenario{"중립 또는 혼조", "매크로 변화가 뚜렷하지 않음 → 전략 유지 또는 보수적 전환 권장"}
	}
}

// crisisVectors ⭐ SSOT: 과거 위기 국면의 (금리, CPI, 유가, 환율) 점수
var crisisVectors = map[string][]float64{
	"2008_crisis": {0.9, 0.8, 0.7, 0.6},
	"2011_euro":   {0.7, 0.7, 0.6, 0.5},
	"2020_covid":  {0.3, 0.9, 0.4, 0.7},
}

// CrisisMatch is the similarity of the current vector to a past crisis
type CrisisMatch struct {
	Name       string  `json:"name"`
	Similarity float64 `json:"similarity"`
}

// CrisisSimilarities ranks every reference crisis by cosine similarity, best first
func CrisisSimilarities(current []float64) ([]CrisisMatch, error) {
	if len(current) != 4 {
		return nil, fmt.Errorf("crisis vector has %d values, want 4: %w", len(current), ErrDimensionMismatch)
	}
	out := make([]CrisisMatch, 0, len(crisisVectors))
	for name, vec := range crisisVectors {
		out = append(out, CrisisMatch{Name: name, Similarity: stats.Cosine(current, vec)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity == out[j].Similarity {
			return out[i].Name < out[j].Name
		}
		return out[i].Similarity > out[j].Similarity
	})
	return out, nil
}

// CrisisSimilarity returns the closest past crisis
func CrisisSimilarity(current []float64) (CrisisMatch, error) {
	ranked, err := CrisisSimilarities(current)
	if err != nil {
		return CrisisMatch{}, err
	}
	return ranked[0], nil
}

// Recommendation is a strategy suggestion with its rationale
type Recommendation struct {
	Strategy string `json:"strategy"`
	Comment  string `json:"comment"`
}

// RecommendStrategy picks a strategy family from macro scores
func RecommendStrategy(s Scores) Recommendation {
	switch {
	case s.Rate > 0.7 && s.CPI > 0.7:
		return Recommendation{"가치주 전략", "금리와 CPI가 높아 방어적 가치주 중심 포트가 유리합니다."}
	case s.CPI > 0.7 && s.Oil > 0.6:
		return Recommendation{"원자재 중심 전략", "원자재 가격과 인플레이션 급등 구간입니다."}
	case s.FX > 0.8:
		return Recommendation{"수출 중심 전략", "환율 급등기 → 수출주 중심 전략이 유리합니다."}
	default:
		return Recommendation{"중립 전략", "현 시점에서는 공격/수비 전략을 명확히 구분하기 어렵습니다."}
	}
}

// EventClusters is the number of regimes TagEvents separates in Analyze
const EventClusters = 3

// Analysis bundles the full macro read-out
type Analysis struct {
	Scores         Scores         `json:"scores"`
	Scenario       Scenario       `json:"scenario"`
	SimilarCrisis  CrisisMatch    `json:"similar_crisis"`
	Recommendation Recommendation `json:"recommendation"`
	Events         []EventTag     `json:"events,omitempty"`
	CurrentEvent   string         `json:"current_event,omitempty"`
}

// yoyColumns splits snapshots into the series YoYChanges expects
func yoyColumns(snapshots []contracts.MacroSnapshot) map[string][]float64 {
	cols := map[string][]float64{}
	for _, s := range snapshots {
		cols["interest_rate"] = append(cols["interest_rate"], s.Rate)
		cols["cpi"] = append(cols["cpi"], s.CPI)
		cols["oil"] = append(cols["oil"], s.Oil)
		cols["usd_krw"] = append(cols["usd_krw"], s.FX)
	}
	return cols
}

// Analyze runs scoring, interpretation, crisis matching and recommendation.
// With more than a year of monthly snapshots it also tags YoY macro events.
func Analyze(snapshots []contracts.MacroSnapshot, p Profile) (*Analysis, error) {
	scores, err := Score(snapshots, p)
	if err != nil {
		return nil, err
	}
	match, err := CrisisSimilarity(scores.Vector())
	if err != nil {
		return nil, err
	}
	match.Similarity = math.Round(match.Similarity*1000) / 1000

	a := &Analysis{
		Scores:         scores,
		Scenario:       Interpret(scores),
		SimilarCrisis:  match,
		Recommendation: RecommendStrategy(scores),
	}
	if tbl, err := YoYChanges(yoyColumns(snapshots)); err == nil {
		if tags, err := TagEvents(tbl, EventClusters); err == nil {
			a.Events = tags
			a.CurrentEvent = tags[len(tags)-1].Tag
		}
	}
	return a, nil
}
