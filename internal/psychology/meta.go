package psychology

import (
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// ErrNoJudgments is returned when meta-cognition has nothing to analyze
var ErrNoJudgments = errors.New("no judgments")

// Judgment is a decision with the state of mind behind it
type Judgment struct {
	Time            time.Time `json:"time"`
	EmotionScore    float64   `json:"emotion_score"`   // -1 ~ 1
	IndicatorScore  float64   `json:"indicator_score"` // 0 ~ 1
	Outcome         float64   `json:"outcome"`
	DecisionQuality float64   `json:"decision_quality"` // 0 ~ 1
}

// Correlations between emotion, indicators and outcomes
type Correlations struct {
	EmotionOutcome   float64 `json:"emotion_vs_outcome"`
	IndicatorOutcome float64 `json:"indicator_vs_outcome"`
	EmotionIndicator float64 `json:"emotion_vs_indicator"`
}

// Correlate measures how emotion and indicators relate to outcomes
func Correlate(js []Judgment) Correlations {
	emo := make([]float64, len(js))
	ind := make([]float64, len(js))
	out := make([]float64, len(js))
	for i, j := range js {
		emo[i], ind[i], out[i] = j.EmotionScore, j.IndicatorScore, j.Outcome
	}
	return Correlations{
		EmotionOutcome:   stats.Correlation(emo, out),
		IndicatorOutcome: stats.Correlation(ind, out),
		EmotionIndicator: stats.Correlation(emo, ind),
	}
}

// CognitiveBias scores, each 0 ~ 1
type CognitiveBias struct {
	Overconfidence       float64 `json:"overconfidence"`
	Avoidance            float64 `json:"avoidance"`
	ShortTermFixation    float64 `json:"short_term_fixation"`
	UncertaintyAvoidance float64 `json:"uncertainty_avoidance"`
}

// ClassifyBias scores cognitive biases:
//   - overconfidence: 1 - corr(emotion, outcome), capped to [0,1]
//   - avoidance: share of strongly negative emotions (< -0.5)
//   - short-term fixation: share of decisions within an hour of the previous
//   - uncertainty avoidance: mean decision quality when indicators are weak (< 0.3)
func ClassifyBias(js []Judgment) (CognitiveBias, error) {
	if len(js) == 0 {
		return CognitiveBias{}, ErrNoJudgments
	}
	sorted := append([]Judgment(nil), js...)
	sort.Slice(sorted, func(a, b int) bool { return sorted[a].Time.Before(sorted[b].Time) })

	var b CognitiveBias
	b.Overconfidence = contracts.Clip(1-Correlate(sorted).EmotionOutcome, 0, 1)

	var negative, quick, weak int
	var weakQuality float64
	for i, j := range sorted {
		if j.EmotionScore < -0.5 {
			negative++
		}
		if i > 0 && j.Time.Sub(sorted[i-1].Time) < time.Hour {
			quick++
		}
		if j.IndicatorScore < 0.3 {
			weak++
			weakQuality += j.DecisionQuality
		}
	}
	n := float64(len(sorted))
	b.Avoidance = round3(float64(negative) / n)
	if len(sorted) > 1 {
		b.ShortTermFixation = round3(float64(quick) / (n - 1))
	}
	if weak > 0 {
		b.UncertaintyAvoidance = round3(weakQuality / float64(weak))
	}
	b.Overconfidence = round3(b.Overconfidence)
	return b, nil
}

// MetaReport is the meta-cognition read-out
type MetaReport struct {
	Correlations   Correlations  `json:"correlations"`
	Bias           CognitiveBias `json:"bias"`
	Interpretation []string      `json:"interpretation"`
}

// Meta builds the meta-cognition report
func Meta(js []Judgment) (*MetaReport, error) {
	bias, err := ClassifyBias(js)
	if err != nil {
		return nil, err
	}
	r := &MetaReport{Correlations: Correlate(js), Bias: bias}
	if r.Correlations.EmotionOutcome < 0 {
		r.Interpretation = append(r.Interpretation, "감정 점수가 높을수록 실제 성과가 저조한 경향이 있습니다. 감정 통제 강화가 필요합니다.")
	} else {
		r.Interpretation = append(r.Interpretation, "감정 점수가 성과에 긍정적 영향을 미치고 있습니다.")
	}
	if bias.Overconfidence > 0.5 {
		r.Interpretation = append(r.Interpretation, "과신 성향이 높아 손실 위험에 노출될 수 있습니다.")
	}
	if bias.Avoidance > 0.3 {
		r.Interpretation = append(r.Interpretation, "회피 성향이 높아 기회 포착이 어려울 수 있습니다.")
	}
	return r, nil
}

// GrowthPoint is one measurement of investor growth, each 0 ~ 1
type GrowthPoint struct {
	Time              time.Time `json:"time"`
	Consistency       float64   `json:"judgment_consistency"`
	StrategyAdherence float64   `json:"strategy_maintenance"`
	EmotionControl    float64   `json:"emotion_control"`
}

// Index is the mean of the three growth measures
func (g GrowthPoint) Index() float64 {
	return (g.Consistency + g.StrategyAdherence + g.EmotionControl) / 3
}

// GrowthTracker keeps a time series of growth measurements
type GrowthTracker struct {
	mu     sync.RWMutex
	points []GrowthPoint
}

// NewGrowthTracker creates an empty tracker
func NewGrowthTracker() *GrowthTracker {
	return &GrowthTracker{}
}

// Record adds a measurement
func (t *GrowthTracker) Record(p GrowthPoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.points = append(t.points, p)
}

// Latest returns the newest measurement
func (t *GrowthTracker) Latest() (GrowthPoint, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.points) == 0 {
		return GrowthPoint{}, false
	}
	return t.points[len(t.points)-1], true
}

// Curve returns the growth index over time
func (t *GrowthTracker) Curve() []float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]float64, len(t.points))
	for i, p := range t.points {
		out[i] = p.Index()
	}
	return out
}

// Trend is the change of the growth index from first to latest
func (t *GrowthTracker) Trend() float64 {
	c := t.Curve()
	if len(c) < 2 {
		return 0
	}
	return c[len(c)-1] - c[0]
}

// LoopOutcome is how a strategy performed over one learning cycle
type LoopOutcome struct {
	Strategy    string  `json:"strategy"`
	SuccessRate float64 `json:"success_rate"`
	Drawdown    float64 `json:"drawdown"` // 양수, 0.15 = 15%
}

// Improvement is a suggested rule change
type Improvement struct {
	Strategy       string `json:"strategy"`
	Recommendation string `json:"recommendation"`
	ExpectedGain   string `json:"expected_gain"`
}

// Thresholds drive the self-learning loop's recommendations
type Thresholds struct {
	MinSuccessRate float64 `json:"min_success_rate"`
	MaxDrawdown    float64 `json:"max_drawdown"`
}

// DefaultThresholds ⭐ SSOT
var DefaultThresholds = Thresholds{MinSuccessRate: 0.6, MaxDrawdown: 0.15}

// learningRate 관측값 쪽으로 임계값을 옮기는 비율
const learningRate = 0.1

// SelfLearningLoop recommends rule changes and adapts its own thresholds
// toward what strategies actually achieve
type SelfLearningLoop struct {
	mu         sync.Mutex
	thresholds Thresholds
	risk       contracts.RiskLevel
}

// NewSelfLearningLoop creates a loop with default thresholds
func NewSelfLearningLoop(risk contracts.RiskLevel) *SelfLearningLoop {
	return &SelfLearningLoop{thresholds: DefaultThresholds, risk: risk}
}

// Thresholds returns the current thresholds
func (l *SelfLearningLoop) Thresholds() Thresholds {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.thresholds
}

// Recommend flags strategies below the success threshold (loosen entry)
// or above the drawdown limit (tighten stops)
func (l *SelfLearningLoop) Recommend(outcomes []LoopOutcome) []Improvement {
	th := l.Thresholds()
	var out []Improvement
	for _, o := range outcomes {
		switch {
		case o.SuccessRate < th.MinSuccessRate:
			out = append(out, Improvement{o.Strategy, "진입 조건 완화 권장", "+2.1%"})
		case o.Drawdown > th.MaxDrawdown:
			out = append(out, Improvement{o.Strategy, "손절 기준 강화 권장", "리스크 감소"})
		}
	}
	return out
}

// Learn moves the thresholds toward the median observed outcome and
// clamps them to sane bands
func (l *SelfLearningLoop) Learn(outcomes []LoopOutcome) Thresholds {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(outcomes) == 0 {
		return l.thresholds
	}
	sr := make([]float64, len(outcomes))
	dd := make([]float64, len(outcomes))
	for i, o := range outcomes {
		sr[i], dd[i] = o.SuccessRate, o.Drawdown
	}
	t := l.thresholds
	t.MinSuccessRate = contracts.Clip((1-learningRate)*t.MinSuccessRate+learningRate*stats.Median(sr), 0.4, 0.8)
	t.MaxDrawdown = contracts.Clip((1-learningRate)*t.MaxDrawdown+learningRate*stats.Median(dd), 0.05, 0.3)
	l.thresholds = t
	return t
}

// Philosophy states the investor's strategy philosophy
func (l *SelfLearningLoop) Philosophy() string {
	switch l.risk {
	case contracts.RiskLow:
		return "보수형 투자자: 리스크 최소화 및 안정적 수익 우선"
	case contracts.RiskHigh:
		return "공격형 투자자: 높은 수익률 추구, 변동성 감수"
	default:
		return "중립형 투자자: 균형 잡힌 성장과 안정성 추구"
	}
}

// Card is the shareable philosophy card
type Card struct {
	Title           string        `json:"title"`
	Content         string        `json:"content"`
	Recommendations []Improvement `json:"recommendations"`
}

// Cardify renders the philosophy with current recommendations
func (l *SelfLearningLoop) Cardify(outcomes []LoopOutcome) Card {
	return Card{
		Title:           "투자자 전략 철학",
		Content:         l.Philosophy(),
		Recommendations: l.Recommend(outcomes),
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
