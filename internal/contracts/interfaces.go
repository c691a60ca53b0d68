package contracts

import (
	"context"
	"time"
)

// Lookbacks (months) each analysis reads prices over.
// ⭐ SSOT: 캐시 워밍 구간과 분석 구간은 여기서만 정의
const (
	ProfileWindow  = 6
	SignalsWindow  = 12
	TimingWindow   = 24
	BacktestWindow = 36
)

// WarmWindows are the ranges the price collection job pre-fetches
var WarmWindows = []int{ProfileWindow, SignalsWindow, TimingWindow, BacktestWindow}

// PriceSource loads daily bars
type PriceSource interface {
	FetchSeries(ctx context.Context, code string, from, to time.Time) (*Series, error)
}

// FinancialSource loads annual statements, oldest first
type FinancialSource interface {
	FetchFinancials(ctx context.Context, code string, fromYear, toYear int) ([]Financials, error)
}

// InvestorFlowSource loads daily investor net buying, oldest first
type InvestorFlowSource interface {
	FetchInvestorFlow(ctx context.Context, code string, days int) ([]InvestorFlow, error)
}

// StockInfoSource loads listing data
type StockInfoSource interface {
	FetchStockInfo(ctx context.Context, code string) (*StockInfo, error)
}

// Notifier delivers a rendered alert message
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}
