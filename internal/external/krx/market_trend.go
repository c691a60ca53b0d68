package krx

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// IndexQuote is the latest level of a market index
type IndexQuote struct {
	Index     string    `json:"index"`
	Close     float64   `json:"close"`
	ChangePct float64   `json:"change_pct"` // 등락률 %
	TradedAt  time.Time `json:"traded_at"`
}

type basicResponse struct {
	ClosePrice        string `json:"closePrice"`        // "2,512.34"
	FluctuationsRatio string `json:"fluctuationsRatio"` // "-1.23"
	LocalTradedAt     string `json:"localTradedAt"`     // RFC3339
}

// FetchIndexQuote returns the current level and daily change of index.
// The change feeds the KOSPI leg of the hedge trigger.
func (c *Client) FetchIndexQuote(ctx context.Context, index string) (*IndexQuote, error) {
	var resp basicResponse
	if err := c.getJSON(ctx, index, "basic", &resp); err != nil {
		return nil, err
	}
	if resp.ClosePrice == "" {
		return nil, fmt.Errorf("krx %s: empty quote", index)
	}

	q := &IndexQuote{
		Index:     index,
		Close:     parseNetBuyVolume(resp.ClosePrice),
		ChangePct: parseNetBuyVolume(resp.FluctuationsRatio),
	}
	if t, err := time.Parse(time.RFC3339, resp.LocalTradedAt); err == nil {
		q.TradedAt = t
	}

	c.logger.WithFields(map[string]interface{}{
		"index":      index,
		"close":      q.Close,
		"change_pct": q.ChangePct,
	}).Debug("Fetched index quote")
	return q, nil
}

// MarketTrendResponse represents market trend API response from Naver
type MarketTrendResponse struct {
	Bizdate          string `json:"bizdate"`            // YYYYMMDD
	PersonalValue    string `json:"personalValue"`      // 개인 순매수 (억원)
	ForeignValue     string `json:"foreignValue"`       // 외국인 순매수
	InstitutionValue string `json:"institutionalValue"` // 기관 순매수
}

// MarketTrendData represents parsed market trend data
type MarketTrendData struct {
	TradeDate      time.Time `json:"trade_date"`
	ForeignNet     float64   `json:"foreign_net"`
	InstitutionNet float64   `json:"institution_net"`
	IndividualNet  float64   `json:"individual_net"`
}

// FetchMarketTrend fetches market-wide investor net buying for index.
// Returns nil, nil before the first print of the day.
// ⭐ SSOT: KRX 시장 지표 호출은 이 함수에서만
func (c *Client) FetchMarketTrend(ctx context.Context, index string) (*MarketTrendData, error) {
	var trend MarketTrendResponse
	if err := c.getJSON(ctx, index, "trend", &trend); err != nil {
		return nil, err
	}
	if trend.Bizdate == "" {
		return nil, nil
	}

	tradeDate, err := time.Parse("20060102", trend.Bizdate)
	if err != nil {
		return nil, fmt.Errorf("parse trade date: %w", err)
	}

	data := &MarketTrendData{
		TradeDate:      tradeDate,
		ForeignNet:     parseNetBuyVolume(trend.ForeignValue),
		InstitutionNet: parseNetBuyVolume(trend.InstitutionValue),
		IndividualNet:  parseNetBuyVolume(trend.PersonalValue),
	}

	c.logger.WithFields(map[string]interface{}{
		"index":        index,
		"trade_date":   tradeDate.Format("2006-01-02"),
		"foreign_net":  data.ForeignNet,
		"inst_net":     data.InstitutionNet,
		"personal_net": data.IndividualNet,
	}).Debug("Fetched market trend")
	return data, nil
}

// parseNetBuyVolume parses signed numbers like "+1,459,781" or "-1,240.5"
func parseNetBuyVolume(s string) float64 {
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}

	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	if negative {
		return -val
	}
	return val
}
