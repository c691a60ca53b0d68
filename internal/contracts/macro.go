package contracts

import "time"

// MacroSnapshot is one observation of the macro indicators
type MacroSnapshot struct {
	Date        time.Time `json:"date"`
	Rate        float64   `json:"rate"` // 기준금리 %
	CPI         float64   `json:"cpi"`  // 물가지수
	Oil         float64   `json:"oil"`  // WTI 달러
	FX          float64   `json:"fx"`   // 원/달러
	VIX         float64   `json:"vix"`
	KOSPIReturn float64   `json:"kospi_return"` // 일간 수익률
}

// Vector returns the indicators in a fixed order: rate, cpi, oil, fx, vix
func (m MacroSnapshot) Vector() []float64 {
	return []float64{m.Rate, m.CPI, m.Oil, m.FX, m.VIX}
}
