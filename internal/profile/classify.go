package profile

import (
	"errors"
	"math"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/indicators"
	"github.com/wonny/quantlab/internal/stats"
)

// ErrInsufficientData is returned when the history is shorter than a window
var ErrInsufficientData = errors.New("insufficient price history")

// 시가총액 구간 (원)
const (
	capMega  = 10_000_000_000_000
	capLarge = 1_000_000_000_000
	capMid   = 200_000_000_000

	volatilityWindow = 60
	volatilityCap    = 0.8 // 연율 변동성 상한 (스코어 1.0)
	preferenceShare  = 0.55
)

// Liquidity classes
const (
	LiquidityMega    = "초대형"
	LiquidityLarge   = "대형"
	LiquidityMid     = "중형"
	LiquiditySmall   = "소형"
	LiquidityUnknown = "정보 없음"
)

// Style labels
const (
	StyleHighGrowth   = "고성장"
	StyleHighDividend = "고배당"
	StyleMomentum     = "모멘텀강세"
	StyleValue        = "가치주"
)

// ClassifyLiquidity buckets a market cap
func ClassifyLiquidity(marketCap float64) string {
	switch {
	case marketCap <= 0 || math.IsNaN(marketCap):
		return LiquidityUnknown
	case marketCap >= capMega:
		return LiquidityMega
	case marketCap >= capLarge:
		return LiquidityLarge
	case marketCap >= capMid:
		return LiquidityMid
	default:
		return LiquiditySmall
	}
}

// VolatilityScore returns the annualised 60-day return volatility scaled to [0,1]
func VolatilityScore(s *contracts.Series) (float64, error) {
	returns := s.Returns()
	if len(returns) < volatilityWindow {
		return 0, ErrInsufficientData
	}
	vol := stats.StdDev(returns[len(returns)-volatilityWindow:]) * math.Sqrt(252)
	return contracts.Clip(vol/volatilityCap, 0, 1), nil
}

var sectorMap = map[string]string{
	"005930": "반도체>메모리반도체",
	"000660": "반도체>메모리반도체",
	"005380": "자동차>내연기관차",
	"000270": "자동차>내연기관차",
	"373220": "2차전지>배터리셀",
	"068270": "바이오>신약개발",
	"207940": "바이오>위탁생산",
	"035420": "인터넷>포털",
	"035720": "인터넷>플랫폼",
	"105560": "금융>은행지주",
}

// ClassifySector returns the industry path for a code
func ClassifySector(code string) string {
	if s, ok := sectorMap[code]; ok {
		return s
	}
	return "기타>기타산업"
}

// StyleInput carries the drivers of the style labels
type StyleInput struct {
	RevenueGrowth float64 `json:"revenue_growth"`
	DividendYield float64 `json:"dividend_yield"`
	Momentum      float64 `json:"momentum"` // 60일 수익률
}

// ClassifyStyle labels growth, dividend and momentum tilts; 가치주 when none apply
func ClassifyStyle(in StyleInput) []string {
	var labels []string
	if in.RevenueGrowth > 0.1 {
		labels = append(labels, StyleHighGrowth)
	}
	if in.DividendYield > 0.03 {
		labels = append(labels, StyleHighDividend)
	}
	if in.Momentum > 0.05 {
		labels = append(labels, StyleMomentum)
	}
	if len(labels) == 0 {
		labels = append(labels, StyleValue)
	}
	return labels
}

// Momentum returns the close-to-close return over the last n bars
func Momentum(s *contracts.Series, n int) float64 {
	closes := s.Closes()
	if len(closes) <= n || closes[len(closes)-1-n] == 0 {
		return 0
	}
	return closes[len(closes)-1]/closes[len(closes)-1-n] - 1
}

// Preference reports whether institutions and foreigners are persistent net buyers
type Preference struct {
	Institutional      bool    `json:"institutional_preference"`
	Foreign            bool    `json:"foreign_investor_preference"`
	InstitutionalShare float64 `json:"institutional_share"`
	ForeignShare       float64 `json:"foreign_share"`
}

// InstitutionalPreference measures the share of net-buying days per investor type
func InstitutionalPreference(flows []contracts.InvestorFlow) Preference {
	if len(flows) == 0 {
		return Preference{}
	}
	var inst, foreign float64
	for _, f := range flows {
		if f.Institution > 0 {
			inst++
		}
		if f.Foreign > 0 {
			foreign++
		}
	}
	n := float64(len(flows))
	p := Preference{InstitutionalShare: inst / n, ForeignShare: foreign / n}
	p.Institutional = p.InstitutionalShare >= preferenceShare
	p.Foreign = p.ForeignShare >= preferenceShare
	return p
}

// TrendLabels flags volatile RSI and price above MA50
type TrendLabels struct {
	HighVolatility bool    `json:"high_volatility"`
	RSI            float64 `json:"rsi"`
	Uptrend        bool    `json:"uptrend"`
}

// DetectTrend computes RSI14 and the MA50 trend
func DetectTrend(s *contracts.Series) TrendLabels {
	closes := s.Closes()
	if len(closes) == 0 {
		return TrendLabels{RSI: indicators.NeutralRSI}
	}

	rsi := indicators.RSI(closes, 14)
	ma50 := indicators.SMA(closes, 50)

	// warm-up(50) 구간은 변동성 판단에서 제외
	var valid []float64
	if len(rsi) > 14 {
		valid = rsi[14:]
	}

	return TrendLabels{
		HighVolatility: stats.StdDev(valid) > 15,
		RSI:            indicators.Last(rsi, indicators.NeutralRSI),
		Uptrend:        closes[len(closes)-1] > indicators.Last(ma50, 0),
	}
}

// RelativePosition returns per-metric percentiles of code inside its peer group.
// peers maps metric name → code → value.
func RelativePosition(peers map[string]map[string]float64, code string) map[string]float64 {
	out := make(map[string]float64, len(peers))
	for metric, byCode := range peers {
		own, ok := byCode[code]
		if !ok {
			continue
		}
		values := make([]float64, 0, len(byCode))
		for _, v := range byCode {
			values = append(values, v)
		}
		out[metric+"_percentile"] = stats.PercentileRank(values, own)
	}
	return out
}
