package contracts

import "time"

// Financials is one fiscal year of statement data (금액 단위: 원)
type Financials struct {
	Year               int     `json:"year"`
	Revenue            float64 `json:"revenue"`
	OperatingIncome    float64 `json:"operating_income"`
	NetIncome          float64 `json:"net_income"`
	FreeCashFlow       float64 `json:"free_cash_flow"`
	TotalAssets        float64 `json:"total_assets"`
	TotalLiabilities   float64 `json:"total_liabilities"`
	TotalEquity        float64 `json:"total_equity"`
	CurrentAssets      float64 `json:"current_assets"`
	CurrentLiabilities float64 `json:"current_liabilities"`
	RetainedEarnings   float64 `json:"retained_earnings"`
	EBIT               float64 `json:"ebit"`
	MarketCap          float64 `json:"market_cap"`
	EPS                float64 `json:"eps"`
	PER                float64 `json:"per"`
	PBR                float64 `json:"pbr"`
}

// DebtRatio returns liabilities / assets
func (f Financials) DebtRatio() float64 {
	if f.TotalAssets == 0 {
		return 0
	}
	return f.TotalLiabilities / f.TotalAssets
}

// ROE returns net income / equity
func (f Financials) ROE() float64 {
	if f.TotalEquity == 0 {
		return 0
	}
	return f.NetIncome / f.TotalEquity
}

// StockInfo is static listing data for one stock
type StockInfo struct {
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	Market        string    `json:"market"` // KOSPI, KOSDAQ, ETF
	MarketCap     float64   `json:"market_cap"`
	AvgVolume     float64   `json:"avg_volume"`
	FloatRatio    float64   `json:"float_ratio"`
	DividendYield float64   `json:"dividend_yield"`
	Sector        string    `json:"sector"`
	ListedAt      time.Time `json:"listed_at"`
}

// InvestorFlow is one day of net buying by investor type (주식 수)
type InvestorFlow struct {
	Date        time.Time `json:"date"`
	Foreign     int64     `json:"foreign"`
	Institution int64     `json:"institution"`
	Individual  int64     `json:"individual"`
}
