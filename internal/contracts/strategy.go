package contracts

// StrategyMetrics summarises one strategy's track record
type StrategyMetrics struct {
	Name       string  `json:"name"`
	CAGR       float64 `json:"cagr"`
	Volatility float64 `json:"volatility"`
	Sharpe     float64 `json:"sharpe"`
	Sortino    float64 `json:"sortino"`
	MDD        float64 `json:"mdd"` // 음수 (예: -0.23)
	Calmar     float64 `json:"calmar"`
	WinRate    float64 `json:"win_rate"`
}

// Strategy styles shared by the router, suggestion and scenario engines
const (
	StyleDefensive = "방어형"
	StyleBalanced  = "균형형"
	StyleGrowth    = "성장형"
	StyleMomentum  = "모멘텀"
	StyleValue     = "가치형"
	StyleCash      = "현금보유"
)

// RiskLevel is a user's declared risk appetite
type RiskLevel string

const (
	RiskLow  RiskLevel = "low"
	RiskMid  RiskLevel = "mid"
	RiskHigh RiskLevel = "high"
)

// UserType is the Korean investor category used in reports
func (r RiskLevel) UserType() string {
	switch r {
	case RiskLow:
		return "보수형"
	case RiskHigh:
		return "공격형"
	default:
		return "중립형"
	}
}
