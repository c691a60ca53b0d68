// Package sentiment scores market mood from news and macro noise, and maps
// fear/greed phases to strategy styles.
package sentiment

import (
	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// Labels
const (
	LabelOverheated = "과열"
	LabelDepressed  = "침체"
	LabelNeutral    = "중립"
)

// 변동성 급등 기준 (모집단 표준편차)
const (
	oilStdSpike  = 7.0
	fxStdSpike   = 25.0
	spikePenalty = 10.0
)

// Headline is one scored news item. Score is in [-1, 1].
type Headline struct {
	Title   string  `json:"title"`
	Keyword string  `json:"keyword"`
	Score   float64 `json:"score"`
}

// Polarity is 긍정 above 0.1, 부정 below -0.1, otherwise 중립
func (h Headline) Polarity() string {
	switch {
	case h.Score > 0.1:
		return "긍정"
	case h.Score < -0.1:
		return "부정"
	default:
		return LabelNeutral
	}
}

// Input is the raw data behind one market sentiment reading
type Input struct {
	Headlines []Headline
	FearGreed float64   // 최신 Fear-Greed 지수 0..100
	Oil       []float64 // 유가 시계열
	FX        []float64 // 원/달러 환율 시계열
}

// Result is a market sentiment reading
type Result struct {
	Score         float64        `json:"score"`
	Label         string         `json:"label"`
	PositiveRatio float64        `json:"positive_ratio"`
	VolSpike      bool           `json:"vol_spike"`
	KeywordFreq   map[string]int `json:"keyword_freq"`
	Advice        string         `json:"advice"`
}

// Score is posRatio·100 − fearGreed·0.3, less 10 on an oil or FX
// volatility spike, clipped to 0..100
func Score(posRatio, fearGreed float64, oil, fx []float64) float64 {
	base := posRatio*100 - fearGreed*0.3
	if VolSpike(oil, fx) {
		base -= spikePenalty
	}
	return contracts.Clip(base, 0, 100)
}

// VolSpike reports whether oil or FX noise is above its threshold
func VolSpike(oil, fx []float64) bool {
	return stats.PopStdDev(oil) > oilStdSpike || stats.PopStdDev(fx) > fxStdSpike
}

// Label maps a score to 과열 (>70), 침체 (<30) or 중립
func Label(score float64) string {
	switch {
	case score > 70:
		return LabelOverheated
	case score < 30:
		return LabelDepressed
	default:
		return LabelNeutral
	}
}

// Analyze scores an Input. With no headlines the reading is neutral (50).
func Analyze(in Input) Result {
	res := Result{KeywordFreq: map[string]int{}}
	if len(in.Headlines) == 0 {
		res.Score = 50
		res.Label = LabelNeutral
		res.Advice = adviceFor(res.Label)
		return res
	}

	var positive int
	for _, h := range in.Headlines {
		if h.Polarity() == "긍정" {
			positive++
		}
		if h.Keyword != "" {
			res.KeywordFreq[h.Keyword]++
		}
	}
	res.PositiveRatio = float64(positive) / float64(len(in.Headlines))
	res.VolSpike = VolSpike(in.Oil, in.FX)
	res.Score = Score(res.PositiveRatio, in.FearGreed, in.Oil, in.FX)
	res.Label = Label(res.Score)
	res.Advice = adviceFor(res.Label)
	return res
}

func adviceFor(label string) string {
	switch label {
	case LabelOverheated:
		return "시장 과열 구간입니다. 신규 매수는 분할로 접근하세요."
	case LabelDepressed:
		return "시장 침체 구간입니다. 방어형 전략과 현금 비중을 늘리세요."
	default:
		return "중립 구간입니다. 기존 전략을 유지하세요."
	}
}
