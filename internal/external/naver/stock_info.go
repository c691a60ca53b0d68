package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/wonny/quantlab/internal/contracts"
)

type integrationResponse struct {
	ItemCode          string `json:"itemCode"`
	StockName         string `json:"stockName"`
	StockExchangeType struct {
		NameEng string `json:"nameEng"` // KOSPI, KOSDAQ
	} `json:"stockExchangeType"`
	IndustryName string `json:"industryName"`
	TotalInfos   []struct {
		Code  string `json:"code"`
		Value string `json:"value"`
	} `json:"totalInfos"`
}

// FetchStockInfo implements contracts.StockInfoSource with the mobile
// integration API (시총, 거래량, 배당수익률)
func (c *Client) FetchStockInfo(ctx context.Context, code string) (*contracts.StockInfo, error) {
	body, err := c.fetch(ctx, c.mobileURL, "/api/stock/"+url.PathEscape(code)+"/integration", nil)
	if err != nil {
		return nil, err
	}
	var resp integrationResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode stock info %s: %w", code, err)
	}
	if resp.StockName == "" {
		return nil, fmt.Errorf("stock info %s: unknown code", code)
	}

	info := &contracts.StockInfo{
		Code:   code,
		Name:   resp.StockName,
		Market: resp.StockExchangeType.NameEng,
		Sector: resp.IndustryName,
	}
	for _, ti := range resp.TotalInfos {
		switch ti.Code {
		case "marketValue":
			info.MarketCap = parseKoreanAmount(ti.Value)
		case "accumulatedTradingVolume":
			info.AvgVolume = toFloat(ti.Value)
		case "dividendYieldRatio":
			info.DividendYield = toFloat(strings.TrimSuffix(ti.Value, "%")) / 100
		case "foreignRate":
			info.FloatRatio = toFloat(strings.TrimSuffix(ti.Value, "%")) / 100
		}
	}
	return info, nil
}

type marketValueResponse struct {
	Stocks []struct {
		ItemCode  string `json:"itemCode"`
		StockName string `json:"stockName"`
	} `json:"stocks"`
}

// Universe lists the top n stocks of market (KOSPI/KOSDAQ) by market cap
func (c *Client) Universe(ctx context.Context, market string, n int) ([]contracts.StockInfo, error) {
	params := url.Values{}
	params.Set("page", "1")
	params.Set("pageSize", strconv.Itoa(n))

	body, err := c.fetch(ctx, c.mobileURL, "/api/stocks/marketValue/"+url.PathEscape(market), params)
	if err != nil {
		return nil, err
	}
	var resp marketValueResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode universe %s: %w", market, err)
	}

	out := make([]contracts.StockInfo, 0, len(resp.Stocks))
	for _, s := range resp.Stocks {
		out = append(out, contracts.StockInfo{Code: s.ItemCode, Name: s.StockName, Market: market})
	}
	c.logger.WithFields(map[string]interface{}{
		"market": market,
		"count":  len(out),
	}).Debug("Fetched universe")
	return out, nil
}

var amountRe = regexp.MustCompile(`([\d,.]+)\s*(조|억|만)?`)

// parseKoreanAmount parses "364조 7,929억" into won
func parseKoreanAmount(s string) float64 {
	units := map[string]float64{"조": 1e12, "억": 1e8, "만": 1e4, "": 1}
	var total float64
	for _, m := range amountRe.FindAllStringSubmatch(s, -1) {
		total += toFloat(m[1]) * units[m[2]]
	}
	return total
}
