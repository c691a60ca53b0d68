package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// Bias is a behavioural bias used to tilt fit scores
type Bias string

const (
	BiasNone           Bias = ""
	BiasLossAversion   Bias = "loss_aversion"
	BiasOverconfidence Bias = "overconfidence"
	BiasHerding        Bias = "herding"
)

// ProfileWeights weights the normalised return/mdd/sharpe/calmar columns
type ProfileWeights struct {
	Return float64
	MDD    float64
	Sharpe float64
	Calmar float64
}

// userTypeWeights ⭐ SSOT: 투자자 유형별 가중치
var userTypeWeights = map[contracts.RiskLevel]ProfileWeights{
	contracts.RiskLow:  {Return: 0.2, MDD: -0.4, Sharpe: 0.3, Calmar: 0.1},
	contracts.RiskMid:  {Return: 0.3, MDD: -0.3, Sharpe: 0.3, Calmar: 0.1},
	contracts.RiskHigh: {Return: 0.5, MDD: -0.1, Sharpe: 0.3, Calmar: 0.1},
}

// UserTypeWeights returns the weights for a risk level (mid if unknown)
func UserTypeWeights(level contracts.RiskLevel) ProfileWeights {
	if w, ok := userTypeWeights[level]; ok {
		return w
	}
	return userTypeWeights[contracts.RiskMid]
}

// Calmar is return / (|mdd| + 1e-6)
func Calmar(ret, mdd float64) float64 {
	return ret / (math.Abs(mdd) + 1e-6)
}

// Fit is a strategy with its profile fit score
type Fit struct {
	Name   string  `json:"name"`
	Return float64 `json:"return"`
	MDD    float64 `json:"mdd"`
	Sharpe float64 `json:"sharpe"`
	Calmar float64 `json:"calmar"`
	Score  float64 `json:"score"`
}

// ScoreByProfile min-max normalises return, |MDD|, Sharpe and Calmar and
// takes the weighted sum for the user's risk level. MDD 가중치는 음수.
func ScoreByProfile(metrics []contracts.StrategyMetrics, level contracts.RiskLevel) []Fit {
	w := UserTypeWeights(level)
	var rets, mdds, sharpes, calmars []float64
	for _, m := range metrics {
		rets = append(rets, m.CAGR)
		mdds = append(mdds, math.Abs(m.MDD))
		sharpes = append(sharpes, m.Sharpe)
		calmars = append(calmars, Calmar(m.CAGR, m.MDD))
	}
	nr, nm, ns, nc := stats.MinMax(rets), stats.MinMax(mdds), stats.MinMax(sharpes), stats.MinMax(calmars)

	out := make([]Fit, len(metrics))
	for i, m := range metrics {
		out[i] = Fit{
			Name:   m.Name,
			Return: m.CAGR,
			MDD:    m.MDD,
			Sharpe: m.Sharpe,
			Calmar: calmars[i],
			Score:  w.Return*nr[i] + w.MDD*nm[i] + w.Sharpe*ns[i] + w.Calmar*nc[i],
		}
	}
	return out
}

// BehavioralAdjust tilts fit scores for a bias
func BehavioralAdjust(fits []Fit, bias Bias) []Fit {
	out := append([]Fit(nil), fits...)
	for i := range out {
		switch bias {
		case BiasLossAversion:
			out[i].Score -= math.Abs(out[i].MDD) * 0.3
		case BiasOverconfidence:
			out[i].Score += out[i].Return * 0.2
		case BiasHerding:
			out[i].Score += out[i].Sharpe * 0.1
		}
	}
	return out
}

// Best returns the highest-scoring fit
func Best(fits []Fit) (Fit, bool) {
	if len(fits) == 0 {
		return Fit{}, false
	}
	best := fits[0]
	for _, f := range fits[1:] {
		if f.Score > best.Score {
			best = f
		}
	}
	return best, true
}

// ExplainComparison explains why a strategy was chosen
func ExplainComparison(f Fit) string {
	var parts []string
	if f.Sharpe > 1 {
		parts = append(parts, "수익 대비 리스크가 우수하며")
	}
	if math.Abs(f.MDD) < 0.1 {
		parts = append(parts, "낙폭이 작아 안정적입니다.")
	} else {
		parts = append(parts, "낙폭이 크지만 수익률이 이를 상쇄할 수 있습니다.")
	}
	return fmt.Sprintf("%s 전략은 %s", f.Name, strings.Join(parts, " "))
}

// RollingLeader returns, for every index from window-1 on, the strategy with
// the highest trailing mean return. Earlier indices are empty.
func RollingLeader(returns map[string][]float64, window int) []string {
	names := make([]string, 0, len(returns))
	length := -1
	for name, r := range returns {
		names = append(names, name)
		if length < 0 || len(r) < length {
			length = len(r)
		}
	}
	sort.Strings(names)
	if length <= 0 || window <= 0 {
		return nil
	}

	out := make([]string, length)
	for i := window - 1; i < length; i++ {
		bestMean := math.Inf(-1)
		for _, name := range names {
			m := stats.Mean(returns[name][i-window+1 : i+1])
			if m > bestMean {
				bestMean, out[i] = m, name
			}
		}
	}
	return out
}
