package risk

// VaRConvention VaR 부호 규약
// ⭐ SSOT: Loss를 양수로 표현 (VaR=0.05 → 5% 손실 가능)
const VaRConvention = "loss_positive"

// VaRResult VaR 계산 결과
// - VaR=0.05 → 95% 신뢰수준에서 최대 5% 손실 가능
// - CVaR=0.07 → 5% tail에서 평균 7% 손실 예상
type VaRResult struct {
	Confidence float64 `json:"confidence"`
	VaR        float64 `json:"var"`
	CVaR       float64 `json:"cvar"`
}

// PathMethod selects how simulated return paths are drawn
type PathMethod string

const (
	MethodBootstrap PathMethod = "bootstrap" // 과거 일간 수익률 복원 추출
	MethodGBM       PathMethod = "gbm"       // 기하 브라운 운동 (μ, σ 추정)
)

// MonteCarloConfig Monte Carlo 시뮬레이션 설정
// ⭐ SSOT: 재현성을 위해 모든 설정을 명시적으로 기록
type MonteCarloConfig struct {
	NumSimulations int        `json:"num_simulations"` // 기본 10000
	HoldingPeriod  int        `json:"holding_period"`  // 보유 기간 (일, 기본 5)
	Method         PathMethod `json:"method"`
	Seed           int64      `json:"seed"`        // 0 = 랜덤
	MinSamples     int        `json:"min_samples"` // fail-closed, 기본 30
}

// DefaultMonteCarloConfig 기본 Monte Carlo 설정
func DefaultMonteCarloConfig() MonteCarloConfig {
	return MonteCarloConfig{
		NumSimulations: 10000,
		HoldingPeriod:  5,
		Method:         MethodBootstrap,
		MinSamples:     30,
	}
}

// MonteCarloResult holds the distribution of simulated holding-period returns
type MonteCarloResult struct {
	RunID       string           `json:"run_id"`
	Config      MonteCarloConfig `json:"config"`
	Samples     int              `json:"samples"`
	MeanReturn  float64          `json:"mean_return"`
	StdDev      float64          `json:"std_dev"`
	VaR95       float64          `json:"var_95"`
	VaR99       float64          `json:"var_99"`
	CVaR95      float64          `json:"cvar_95"`
	CVaR99      float64          `json:"cvar_99"`
	Percentiles map[int]float64  `json:"percentiles"` // 1, 5, 25, 50, 75, 95, 99
}

// RiskLimits 리스크 한도 설정
type RiskLimits struct {
	MaxVaR95    float64 `json:"max_var_95"`
	MaxCVaR95   float64 `json:"max_cvar_95"`
	MaxDrawdown float64 `json:"max_drawdown"` // 양수 (0.15 = -15%)
}

// DefaultRiskLimits 기본 리스크 한도
func DefaultRiskLimits() RiskLimits {
	return RiskLimits{
		MaxVaR95:    0.05,
		MaxCVaR95:   0.07,
		MaxDrawdown: 0.15,
	}
}

// CheckResult is the outcome of Engine.CheckLimits
type CheckResult struct {
	Passed     bool     `json:"passed"`
	VaR95      float64  `json:"var_95"`
	CVaR95     float64  `json:"cvar_95"`
	Drawdown   float64  `json:"drawdown"`
	Violations []string `json:"violations"`
}

// Shock is a named stress scenario: asset → return shock.
// "*" applies to every asset without its own entry.
type Shock struct {
	Name   string             `json:"name"`
	Shocks map[string]float64 `json:"shocks"`
}
