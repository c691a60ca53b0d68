package portfolio

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/wonny/quantlab/pkg/logger"
)

// Weighting modes
const (
	WeightEqual       = "equal"
	WeightScoreRisk   = "score_risk"
	WeightCorrelation = "correlation"
)

// Constructor turns picks into a weighted portfolio
// ⭐ SSOT: 포트폴리오 구성 로직은 여기서만
type Constructor struct {
	config      PortfolioConfig
	constraints Constraints
	logger      *logger.Logger
}

// PortfolioConfig defines portfolio construction parameters
type PortfolioConfig struct {
	CashReserve   float64 // 현금 보유 비중 (0.0 ~ 1.0)
	WeightingMode string  // "equal", "score_risk", "correlation"
}

// DefaultPortfolioConfig returns default configuration
func DefaultPortfolioConfig() PortfolioConfig {
	return PortfolioConfig{
		CashReserve:   0.05,
		WeightingMode: WeightScoreRisk,
	}
}

// Position is one weighted holding
type Position struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
	Reason string  `json:"reason"`
}

// Portfolio is a constructed basket
type Portfolio struct {
	Date      time.Time  `json:"date"`
	Mode      Mode       `json:"mode"`
	Positions []Position `json:"positions"`
	Cash      float64    `json:"cash"`
}

// TotalWeight sums the position weights (excluding cash)
func (p *Portfolio) TotalWeight() float64 {
	var total float64
	for _, pos := range p.Positions {
		total += pos.Weight
	}
	return total
}

// NewConstructor creates a new portfolio constructor
func NewConstructor(config PortfolioConfig, constraints Constraints, logger *logger.Logger) *Constructor {
	return &Constructor{
		config:      config,
		constraints: constraints,
		logger:      logger,
	}
}

// Build weights picks and applies the constraint layer.
// corr is only consulted in correlation mode and must match picks in size.
func (c *Constructor) Build(mode Mode, picks []Pick, corr [][]float64) (*Portfolio, error) {
	out := &Portfolio{
		Date: time.Now(),
		Mode: mode,
		Cash: c.config.CashReserve,
	}

	eligible := make([]Pick, 0, len(picks))
	for _, p := range picks {
		if c.constraints.IsBlackListed(p.Code) {
			continue
		}
		eligible = append(eligible, p)
	}
	if len(eligible) == 0 {
		c.logger.Warn("No stocks selected for portfolio")
		out.Cash = 1
		return out, nil
	}
	if len(eligible) != len(picks) {
		corr = nil
	}

	weights, err := c.calculateWeights(eligible, corr)
	if err != nil {
		return nil, err
	}
	weights = c.applyConstraints(weights)

	invested := 1 - c.config.CashReserve
	for i, p := range eligible {
		if weights[i] == 0 {
			continue
		}
		out.Positions = append(out.Positions, Position{
			Code:   p.Code,
			Name:   p.Name,
			Weight: weights[i] * invested,
			Reason: p.Reason,
		})
	}
	sort.SliceStable(out.Positions, func(i, j int) bool { return out.Positions[i].Weight > out.Positions[j].Weight })
	out.Cash = 1 - out.TotalWeight()

	c.logger.WithFields(map[string]interface{}{
		"mode":         mode,
		"positions":    len(out.Positions),
		"total_weight": out.TotalWeight(),
		"cash":         out.Cash,
	}).Info("Portfolio constructed")

	return out, nil
}

func (c *Constructor) calculateWeights(picks []Pick, corr [][]float64) ([]float64, error) {
	switch c.config.WeightingMode {
	case WeightScoreRisk:
		return ScoreRiskWeights(picks), nil
	case WeightCorrelation:
		base := ScoreRiskWeights(picks)
		if corr == nil {
			c.logger.Warn("Correlation matrix missing, using score/risk weights")
			return base, nil
		}
		w, err := CorrelationAdjusted(base, corr)
		if err != nil {
			return nil, fmt.Errorf("correlation weights: %w", err)
		}
		return w, nil
	default:
		return equalWeight(len(picks)), nil
	}
}

func equalWeight(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1 / float64(n)
	}
	return out
}

// applyConstraints drops weights below MinWeight, then caps at MaxWeight and
// hands the excess to uncapped names until the caps hold. When every name is
// capped the remainder stays uninvested.
func (c *Constructor) applyConstraints(weights []float64) []float64 {
	out := append([]float64(nil), weights...)
	for i, w := range out {
		if w < c.constraints.MinWeight {
			out[i] = 0
		}
	}
	out = normalize(out)

	maxW := c.constraints.MaxWeight
	if maxW <= 0 {
		return out
	}
	capped := make([]bool, len(out))
	for iter := 0; iter < len(out); iter++ {
		var excess, free float64
		for i, w := range out {
			if w > maxW {
				excess += w - maxW
				out[i] = maxW
				capped[i] = true
			}
			if !capped[i] {
				free += out[i]
			}
		}
		if excess < 1e-12 || free == 0 {
			break
		}
		for i := range out {
			if !capped[i] {
				out[i] += excess * out[i] / free
			}
		}
	}
	return out
}

func normalize(w []float64) []float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	if total == 0 || math.IsNaN(total) {
		return w
	}
	for i := range w {
		w[i] /= total
	}
	return w
}
