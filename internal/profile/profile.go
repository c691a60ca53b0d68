package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/pkg/format"
	"github.com/wonny/quantlab/pkg/logger"
)

const confidenceMargin = 2.5

// Profile is the basic-information analysis of one stock
type Profile struct {
	Info        contracts.StockInfo `json:"info"`
	Liquidity   string              `json:"liquidity"`
	Volatility  *float64            `json:"volatility_score,omitempty"`
	Sector      string              `json:"sector"`
	Style       StyleInput          `json:"style_input"`
	StyleLabels []string            `json:"style_labels"`
	Preference  Preference          `json:"preference"`
	Trend       TrendLabels         `json:"trend"`
	Relative    map[string]float64  `json:"relative,omitempty"`
	Beginner    string              `json:"beginner_summary"`
	Expert      string              `json:"expert_summary"`
	Confidence  Confidence          `json:"confidence"`
}

// Confidence quantifies the growth classification
type Confidence struct {
	Score     float64 `json:"score"`
	Margin    float64 `json:"margin"`
	Reasoning string  `json:"reasoning"`
}

// ConfidenceFor returns clip(growth·100, 0, 100) ± 2.5
func ConfidenceFor(growth float64) Confidence {
	score := contracts.Clip(growth*100, 0, 100)
	return Confidence{
		Score:     score,
		Margin:    confidenceMargin,
		Reasoning: fmt.Sprintf("성장주로 분류된 확률: %.1f%% ± %.1f%% (최근 매출 성장률 기반)", score, confidenceMargin),
	}
}

// Summaries renders beginner and expert text
func Summaries(p *Profile) (beginner, expert string) {
	listed := "상장일 정보 없음"
	if !p.Info.ListedAt.IsZero() {
		listed = p.Info.ListedAt.Format("2006-01-02") + "에 상장"
	}
	beginner = fmt.Sprintf("이 종목은 %s되었으며, 현재 시가총액은 약 %s입니다. 주요 투자 스타일은 %s입니다.",
		listed, format.Won(p.Info.MarketCap), strings.Join(p.StyleLabels, ", "))

	pref := "낮습니다"
	if p.Preference.Institutional || p.Preference.Foreign {
		pref = "높습니다"
	}
	vol := "안정적인 편입니다"
	if p.Trend.HighVolatility {
		vol = "높아 주의가 필요합니다"
	}
	expert = fmt.Sprintf("최근 매출 성장률은 약 %s로 평가되며, 기관 및 외국인 투자자 선호도가 %s. 변동성은 %s. RSI %.1f, 추세 %s.",
		format.Percent(p.Style.RevenueGrowth, 2), pref, vol, p.Trend.RSI, trendWord(p.Trend.Uptrend))
	return beginner, expert
}

func trendWord(up bool) string {
	if up {
		return "상승"
	}
	return "비상승"
}

// Builder assembles profiles from the data sources
type Builder struct {
	prices     contracts.PriceSource
	info       contracts.StockInfoSource
	flows      contracts.InvestorFlowSource
	financials contracts.FinancialSource
	logger     *logger.Logger
	now        func() time.Time
}

// NewBuilder creates a profile builder. flows and financials may be nil.
func NewBuilder(prices contracts.PriceSource, info contracts.StockInfoSource, flows contracts.InvestorFlowSource, financials contracts.FinancialSource, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		prices:     prices,
		info:       info,
		flows:      flows,
		financials: financials,
		logger:     log.WithComponent("profile"),
		now:        time.Now,
	}
}

// Build runs the full basic analysis for code. peers is optional.
func (b *Builder) Build(ctx context.Context, code string, peers map[string]map[string]float64) (*Profile, error) {
	info, err := b.info.FetchStockInfo(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("fetch stock info %s: %w", code, err)
	}

	to := b.now()
	series, err := b.prices.FetchSeries(ctx, code, to.AddDate(0, -contracts.ProfileWindow, 0), to)
	if err != nil {
		return nil, fmt.Errorf("fetch prices %s: %w", code, err)
	}
	if series.Len() == 0 {
		return nil, fmt.Errorf("no price data for %s: %w", code, contracts.ErrEmptySeries)
	}

	p := &Profile{
		Info:      *info,
		Liquidity: ClassifyLiquidity(info.MarketCap),
		Sector:    info.Sector,
		Trend:     DetectTrend(series),
		Relative:  RelativePosition(peers, code),
	}
	if p.Sector == "" {
		p.Sector = ClassifySector(code)
	}

	if vol, err := VolatilityScore(series); err == nil {
		p.Volatility = &vol
	} else if !errors.Is(err, ErrInsufficientData) {
		return nil, err
	}

	p.Style.Momentum = Momentum(series, 60)
	p.Style.DividendYield = info.DividendYield
	if b.financials != nil {
		year := to.Year()
		rows, err := b.financials.FetchFinancials(ctx, code, year-3, year-1)
		if err != nil {
			b.logger.WithError(err).WithField("code", code).Warn("financials unavailable, growth left at 0")
		} else {
			p.Style.RevenueGrowth = revenueGrowth(rows)
		}
	}
	p.StyleLabels = ClassifyStyle(p.Style)

	if b.flows != nil {
		flows, err := b.flows.FetchInvestorFlow(ctx, code, 20)
		if err != nil {
			b.logger.WithError(err).WithField("code", code).Warn("investor flow unavailable")
		} else {
			p.Preference = InstitutionalPreference(flows)
		}
	}

	p.Beginner, p.Expert = Summaries(p)
	p.Confidence = ConfidenceFor(p.Style.RevenueGrowth)

	b.logger.WithFields(map[string]interface{}{
		"code":      code,
		"liquidity": p.Liquidity,
		"styles":    p.StyleLabels,
	}).Info("Profile built")

	return p, nil
}

// revenueGrowth compares the last two fiscal years
func revenueGrowth(rows []contracts.Financials) float64 {
	if len(rows) < 2 {
		return 0
	}
	prev, last := rows[len(rows)-2], rows[len(rows)-1]
	if prev.Revenue <= 0 {
		return 0
	}
	return (last.Revenue - prev.Revenue) / prev.Revenue
}
