package scenario

import (
	"sort"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/risk"
	"github.com/wonny/quantlab/internal/stats"
)

// Matrix is the P&L of each asset under each shock scenario
type Matrix struct {
	Scenarios []string    `json:"scenarios"`
	Assets    []string    `json:"assets"`
	PnL       [][]float64 `json:"pnl"`   // [scenario][asset], weight·shock
	Total     []float64   `json:"total"` // 시나리오별 포트폴리오 손익
}

// Worst returns the scenario with the lowest total P&L
func (m *Matrix) Worst() (string, float64) {
	if len(m.Total) == 0 {
		return "", 0
	}
	worst := 0
	for i, v := range m.Total {
		if v < m.Total[worst] {
			worst = i
		}
	}
	return m.Scenarios[worst], m.Total[worst]
}

// ShockMatrix applies every shock scenario to a weighted portfolio. Assets
// missing from a shock take its "*" wildcard, or zero.
func ShockMatrix(weights map[string]float64, shocks []risk.Shock) *Matrix {
	assets := make([]string, 0, len(weights))
	for a := range weights {
		assets = append(assets, a)
	}
	sort.Strings(assets)

	totals := risk.NewEngine().StressTest(weights, shocks)
	m := &Matrix{Assets: assets}
	for _, s := range shocks {
		row := make([]float64, len(assets))
		for j, a := range assets {
			row[j] = risk.ApplyShock(map[string]float64{a: weights[a]}, s)
		}
		m.Scenarios = append(m.Scenarios, s.Name)
		m.PnL = append(m.PnL, row)
		m.Total = append(m.Total, totals[s.Name])
	}
	return m
}

// DefaultShocks are the stock stress scenarios used by the CLI and API
var DefaultShocks = []risk.Shock{
	{Name: "금리 인상 +100bp", Shocks: map[string]float64{"*": -0.05}},
	{Name: "환율 급등", Shocks: map[string]float64{"*": -0.03}},
	{Name: "유가 급락", Shocks: map[string]float64{"*": -0.02}},
	{Name: "금융위기", Shocks: map[string]float64{"*": -0.30}},
}

// StrategyOutcome is a strategy's average return and deepest drawdown
// inside one scenario
type StrategyOutcome struct {
	Scenario  string  `json:"scenario"`
	Strategy  string  `json:"strategy"`
	AvgReturn float64 `json:"avg_return"`
	MDD       float64 `json:"mdd"` // 음수
}

// Exposure names the strategies a macro scenario affects
type Exposure struct {
	Name       string            `json:"name" yaml:"name"`
	Conditions map[string]string `json:"conditions" yaml:"conditions"` // CPI: high ...
	Strategies []string          `json:"strategies" yaml:"strategies"`
}

// SimulateScenarios summarizes each affected strategy's return series per
// scenario. Strategies without returns are skipped.
func SimulateScenarios(returns map[string][]float64, exposures []Exposure) []StrategyOutcome {
	var out []StrategyOutcome
	for _, sp := range exposures {
		for _, name := range sp.Strategies {
			r, ok := returns[name]
			if !ok || len(r) == 0 {
				continue
			}
			out = append(out, StrategyOutcome{
				Scenario:  sp.Name,
				Strategy:  name,
				AvgReturn: stats.Mean(r),
				MDD:       stats.MaxDrawdown(contracts.Equity(r)),
			})
		}
	}
	return out
}
