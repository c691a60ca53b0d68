// Package risk computes VaR/CVaR, Monte Carlo return distributions, limit
// checks and stress shocks. It is a pure calculator; callers assemble inputs.
package risk

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

var (
	ErrInsufficientData = errors.New("insufficient data for simulation")
	ErrInvalidConfig    = errors.New("invalid configuration")
)

// Engine 리스크 엔진 (순수 계산기)
type Engine struct{}

// NewEngine 새 리스크 엔진 생성
func NewEngine() *Engine {
	return &Engine{}
}

// VaR Historical VaR/CVaR
func (e *Engine) VaR(returns []float64, confidence float64) VaRResult {
	return CalculateVaR(returns, confidence)
}

// MonteCarlo runs a simulation after the fail-closed sample check
func (e *Engine) MonteCarlo(ctx context.Context, returns []float64, config MonteCarloConfig) (*MonteCarloResult, error) {
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	if len(returns) < config.MinSamples {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientData, len(returns), config.MinSamples)
	}
	return NewMonteCarloSimulator(config).Simulate(ctx, returns)
}

// CheckLimits checks daily returns against VaR, CVaR and drawdown limits
func (e *Engine) CheckLimits(returns []float64, limits RiskLimits) CheckResult {
	v := CalculateVaR(returns, 0.95)
	res := CheckResult{
		Passed:   true,
		VaR95:    v.VaR,
		CVaR95:   v.CVaR,
		Drawdown: stats.MaxDrawdown(contracts.Equity(returns)),
	}

	if limits.MaxVaR95 > 0 && v.VaR > limits.MaxVaR95 {
		res.Violations = append(res.Violations, fmt.Sprintf("VaR95 %.4f exceeds limit %.4f", v.VaR, limits.MaxVaR95))
	}
	if limits.MaxCVaR95 > 0 && v.CVaR > limits.MaxCVaR95 {
		res.Violations = append(res.Violations, fmt.Sprintf("CVaR95 %.4f exceeds limit %.4f", v.CVaR, limits.MaxCVaR95))
	}
	if limits.MaxDrawdown > 0 && -res.Drawdown > limits.MaxDrawdown {
		res.Violations = append(res.Violations, fmt.Sprintf("drawdown %.4f exceeds limit %.4f", -res.Drawdown, limits.MaxDrawdown))
	}
	res.Passed = len(res.Violations) == 0
	return res
}

// StressTest returns the weighted P&L of every shock scenario
func (e *Engine) StressTest(weights map[string]float64, shocks []Shock) map[string]float64 {
	out := make(map[string]float64, len(shocks))
	for _, s := range shocks {
		out[s.Name] = ApplyShock(weights, s)
	}
	return out
}

// ApplyShock returns Σ weight·shock for one scenario
func ApplyShock(weights map[string]float64, s Shock) float64 {
	codes := make([]string, 0, len(weights))
	for c := range weights {
		codes = append(codes, c)
	}
	sort.Strings(codes)

	var pnl float64
	for _, code := range codes {
		shock, ok := s.Shocks[code]
		if !ok {
			if shock, ok = s.Shocks["*"]; !ok {
				continue
			}
		}
		pnl += weights[code] * shock
	}
	return pnl
}

// PortfolioReturns combines per-asset return series with weights over the
// shortest common length
func PortfolioReturns(weights map[string]float64, assetReturns map[string][]float64) []float64 {
	minLen := -1
	for code := range weights {
		r, ok := assetReturns[code]
		if !ok {
			continue
		}
		if minLen == -1 || len(r) < minLen {
			minLen = len(r)
		}
	}
	if minLen <= 0 {
		return nil
	}

	out := make([]float64, minLen)
	for i := range out {
		for code, w := range weights {
			if r, ok := assetReturns[code]; ok {
				out[i] += w * r[i]
			}
		}
	}
	return out
}

// ValidateConfig 설정 유효성 검사
func ValidateConfig(config MonteCarloConfig) error {
	if config.NumSimulations <= 0 {
		return fmt.Errorf("%w: NumSimulations must be > 0", ErrInvalidConfig)
	}
	if config.HoldingPeriod <= 0 {
		return fmt.Errorf("%w: HoldingPeriod must be > 0", ErrInvalidConfig)
	}
	if config.MinSamples <= 0 {
		return fmt.Errorf("%w: MinSamples must be > 0", ErrInvalidConfig)
	}
	return nil
}
