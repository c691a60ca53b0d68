package signals

import (
	"fmt"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/pkg/logger"
)

// Weights for the integrated score
const (
	WeightValuation = 0.4
	WeightTechnical = 0.4
	WeightSentiment = 0.2
)

// Recommendation labels
const (
	RecommendEntry = "진입 추천"
	RecommendWait  = "관망"

	ScenarioAggressive = "적극 매수"
	ScenarioPartial    = "부분 매수"
	ScenarioExit       = "청산 또는 대기"
)

// Report is the integrated strategy evaluation of one stock
type Report struct {
	Code           string            `json:"code"`
	Technical      TechnicalSnapshot `json:"technical"`
	ValuationScore float64           `json:"valuation_score"`
	TechnicalScore float64           `json:"technical_score"`
	Sentiment      float64           `json:"sentiment"` // -1..1
	TotalScore     float64           `json:"total_score"`
	Recommendation string            `json:"recommendation"`
	Scenario       string            `json:"scenario"`
}

// Summary renders a one-line explanation
func (r *Report) Summary() string {
	return fmt.Sprintf("%s: 종합 %.1f점 (가치 %.1f, 기술 %.1f, 뉴스 %+.2f, %s) → %s / %s",
		r.Code, r.TotalScore, r.ValuationScore, r.TechnicalScore, r.Sentiment,
		r.Technical.CrossLabel(), r.Recommendation, r.Scenario)
}

// Integrate blends valuation, technical and sentiment (-1..1) into 0..100
func Integrate(valuation, technical, sentiment float64) float64 {
	return WeightValuation*valuation +
		WeightTechnical*technical +
		WeightSentiment*SentimentToScore(sentiment)
}

// Recommend returns 진입 추천 above 60
func Recommend(score float64) string {
	if score > 60 {
		return RecommendEntry
	}
	return RecommendWait
}

// Scenario maps the integrated score to an action scenario
func Scenario(score float64) string {
	switch {
	case score > 80:
		return ScenarioAggressive
	case score > 60:
		return ScenarioPartial
	default:
		return ScenarioExit
	}
}

// Evaluator runs the integrated evaluation
type Evaluator struct {
	technical *TechnicalCalculator
	logger    *logger.Logger
}

// NewEvaluator creates an evaluator with default indicator periods
func NewEvaluator(log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.Nop()
	}
	return &Evaluator{
		technical: NewTechnicalCalculator(DefaultTechnicalConfig(), log),
		logger:    log.WithComponent("signals"),
	}
}

// Evaluate scores one stock from its prices, multiples and news headlines
func (e *Evaluator) Evaluate(s *contracts.Series, value ValueMetrics, headlines []string) (*Report, error) {
	snap, err := e.technical.Snapshot(s)
	if err != nil {
		return nil, fmt.Errorf("technical snapshot %s: %w", s.Code, err)
	}

	r := &Report{
		Code:           s.Code,
		Technical:      snap,
		ValuationScore: ValuationScore(value),
		TechnicalScore: e.technical.Score(snap),
		Sentiment:      NewsSentiment(headlines),
	}
	r.TotalScore = Integrate(r.ValuationScore, r.TechnicalScore, r.Sentiment)
	r.Recommendation = Recommend(r.TotalScore)
	r.Scenario = Scenario(r.TotalScore)

	e.logger.WithFields(map[string]interface{}{
		"code":  r.Code,
		"total": r.TotalScore,
		"rec":   r.Recommendation,
	}).Info("Integrated evaluation done")

	return r, nil
}
