package fundamental

import (
	"errors"
	"math"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/stats"
)

// ErrInsufficientData is returned when fewer fiscal years than required are given
var ErrInsufficientData = errors.New("insufficient financial history")

// Warning labels
const (
	WarnGrowthCollapse = "성장 급감"
	WarnDebtSurge      = "부채 급증"
	WarnCashGap        = "현금창출성 악화"
)

// CAGR returns the compound annual growth of values (oldest first).
// At least minPeriods+1 points and positive endpoints are required.
func CAGR(values []float64, minPeriods int) (float64, error) {
	if len(values) < minPeriods+1 || len(values) < 2 {
		return 0, ErrInsufficientData
	}
	start, end := values[0], values[len(values)-1]
	if start <= 0 || end <= 0 {
		return 0, ErrInsufficientData
	}
	periods := float64(len(values) - 1)
	return math.Pow(end/start, 1/periods) - 1, nil
}

// AltmanZ computes 1.2·WC/TA + 1.4·RE/TA + 3.3·EBIT/TA + 0.6·MVE/TL + 1.0·S/TA
func AltmanZ(f contracts.Financials) (float64, error) {
	if f.TotalAssets == 0 || f.TotalLiabilities == 0 {
		return 0, ErrInsufficientData
	}
	ta := f.TotalAssets
	wc := f.CurrentAssets - f.CurrentLiabilities
	return 1.2*(wc/ta) +
		1.4*(f.RetainedEarnings/ta) +
		3.3*(f.EBIT/ta) +
		0.6*(f.MarketCap/f.TotalLiabilities) +
		1.0*(f.Revenue/ta), nil
}

// AltmanZone classifies a Z score (safe > 2.99, distress < 1.81)
func AltmanZone(z float64) string {
	switch {
	case z > 2.99:
		return "안전"
	case z < 1.81:
		return "위험"
	default:
		return "회색"
	}
}

// GrowthStability is mean/std of the period-over-period growth of values
func GrowthStability(values []float64) float64 {
	growth := contracts.PctChange(values)
	if len(growth) == 0 {
		return 0
	}
	return stats.Mean(growth) / (stats.StdDev(growth) + 1e-6)
}

// StabilityComposite averages a debt score (100 − debt·100, bounded to
// 0..100) and a liquidity score (current ratio·100). The liquidity score is
// not capped, so a current ratio of 1.8 contributes 180.
func StabilityComposite(debtRatio, currentRatio float64) float64 {
	debt := contracts.Clip(100-debtRatio*100, 0, 100)
	current := math.Max(currentRatio*100, 0)
	return (debt + current) / 2
}

// PEG returns PER / (CAGR in %). ok is false when growth is not positive.
func PEG(per, cagr float64) (float64, bool) {
	if per <= 0 || cagr <= 0 {
		return 0, false
	}
	return per / (cagr * 100), true
}

// CashGap is the mean relative gap between net income and free cash flow
func CashGap(rows []contracts.Financials) float64 {
	if len(rows) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rows {
		sum += math.Abs(r.NetIncome-r.FreeCashFlow) / (math.Abs(r.NetIncome) + 1e-6)
	}
	return sum / float64(len(rows))
}

// Warnings flags growth collapse, high debt and a weak cash conversion
func Warnings(cagr *float64, debtRatio float64, rows []contracts.Financials) []string {
	var out []string
	if cagr != nil && *cagr < 0.01 {
		out = append(out, WarnGrowthCollapse)
	}
	if debtRatio > 0.6 {
		out = append(out, WarnDebtSurge)
	}
	if CashGap(rows) > 0.3 {
		out = append(out, WarnCashGap)
	}
	return out
}

// OperatingMarginChange is the last-year minus prior-year operating margin
func OperatingMarginChange(rows []contracts.Financials) (float64, bool) {
	if len(rows) < 2 {
		return 0, false
	}
	prev, last := rows[len(rows)-2], rows[len(rows)-1]
	if prev.Revenue == 0 || last.Revenue == 0 {
		return 0, false
	}
	return last.OperatingIncome/last.Revenue - prev.OperatingIncome/prev.Revenue, true
}

// AIScore averages the stability composite and clip(CAGR·100, 0, 100)
func AIScore(stability float64, cagr *float64) float64 {
	if cagr == nil {
		return stability
	}
	return (stability + contracts.Clip(*cagr*100, 0, 100)) / 2
}
