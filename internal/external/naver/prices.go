package naver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
)

// FetchSeries implements contracts.PriceSource with the siseJson chart API
// ⭐ SSOT: Naver Finance 가격 API 호출은 이 함수에서만
func (c *Client) FetchSeries(ctx context.Context, code string, from, to time.Time) (*contracts.Series, error) {
	params := url.Values{}
	params.Set("symbol", code)
	params.Set("requestType", "1")
	params.Set("startTime", from.Format("20060102"))
	params.Set("endTime", to.Format("20060102"))
	params.Set("timeframe", "day")

	body, err := c.fetch(ctx, c.chartURL, "/siseJson.naver", params)
	if err != nil {
		return nil, err
	}

	bars := parsePriceResponse(string(body))
	if len(bars) == 0 {
		return nil, fmt.Errorf("prices %s %s~%s: %w", code,
			from.Format("2006-01-02"), to.Format("2006-01-02"), contracts.ErrEmptySeries)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	c.logger.WithFields(map[string]interface{}{
		"stock_code": code,
		"count":      len(bars),
	}).Debug("Fetched prices")
	return &contracts.Series{Code: code, Bars: bars}, nil
}

// parsePriceResponse reads the single-quoted pseudo JSON siseJson returns
func parsePriceResponse(body string) []contracts.Bar {
	body = strings.TrimSpace(body)
	body = strings.ReplaceAll(body, "'", "\"")

	var rawData [][]interface{}
	if err := json.Unmarshal([]byte(body), &rawData); err == nil {
		return parsePriceJSON(rawData)
	}
	return parsePriceRegex(body)
}

// parsePriceJSON skips the header row and short rows
func parsePriceJSON(rawData [][]interface{}) []contracts.Bar {
	var bars []contracts.Bar
	for i, row := range rawData {
		if i == 0 || len(row) < 6 {
			continue
		}
		dateStr, ok := row[0].(string)
		if !ok {
			continue
		}
		date, err := time.Parse("20060102", strings.TrimSpace(dateStr))
		if err != nil {
			continue
		}
		bars = append(bars, contracts.Bar{
			Date:   date,
			Open:   toFloat(row[1]),
			High:   toFloat(row[2]),
			Low:    toFloat(row[3]),
			Close:  toFloat(row[4]),
			Volume: toFloat(row[5]),
		})
	}
	return bars
}

var priceRowRe = regexp.MustCompile(`\["(\d{8})",\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+),\s*([\d.]+)`)

// parsePriceRegex is the fallback when the body is not valid JSON
func parsePriceRegex(body string) []contracts.Bar {
	var bars []contracts.Bar
	for _, m := range priceRowRe.FindAllStringSubmatch(body, -1) {
		date, err := time.Parse("20060102", m[1])
		if err != nil {
			continue
		}
		bars = append(bars, contracts.Bar{
			Date:   date,
			Open:   toFloat(m[2]),
			High:   toFloat(m[3]),
			Low:    toFloat(m[4]),
			Close:  toFloat(m[5]),
			Volume: toFloat(m[6]),
		})
	}
	return bars
}

// toFloat converts JSON numbers and numeric strings
func toFloat(v interface{}) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case int:
		return float64(val)
	case string:
		n, _ := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(val), ",", ""), 64)
		return n
	default:
		return 0
	}
}
