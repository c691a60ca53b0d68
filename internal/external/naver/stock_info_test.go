package naver

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchStockInfo(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/stock/005930/integration":
			fmt.Fprint(w, `{
				"itemCode": "005930", "stockName": "삼성전자",
				"stockExchangeType": {"nameEng": "KOSPI"},
				"industryName": "반도체",
				"totalInfos": [
					{"code": "marketValue", "value": "364조 7,929억"},
					{"code": "accumulatedTradingVolume", "value": "12,345,678"},
					{"code": "dividendYieldRatio", "value": "2.05%"},
					{"code": "foreignRate", "value": "53.10%"}
				]}`)
		default:
			fmt.Fprint(w, `{}`)
		}
	})

	info, err := c.FetchStockInfo(context.Background(), "005930")
	require.NoError(t, err)
	assert.Equal(t, "삼성전자", info.Name)
	assert.Equal(t, "KOSPI", info.Market)
	assert.Equal(t, "반도체", info.Sector)
	assert.InDelta(t, 364.7929e12, info.MarketCap, 1)
	assert.Equal(t, 12345678.0, info.AvgVolume)
	assert.InDelta(t, 0.0205, info.DividendYield, 1e-9)
	assert.InDelta(t, 0.531, info.FloatRatio, 1e-9)

	_, err = c.FetchStockInfo(context.Background(), "999999")
	assert.ErrorContains(t, err, "unknown code")
}

func TestUniverse(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stocks/marketValue/KOSPI", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("pageSize"))
		fmt.Fprint(w, `{"stocks":[{"itemCode":"005930","stockName":"삼성전자"},{"itemCode":"000660","stockName":"SK하이닉스"}]}`)
	})

	got, err := c.Universe(context.Background(), "KOSPI", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "000660", got[1].Code)
	assert.Equal(t, "KOSPI", got[1].Market)
}

func TestParseKoreanAmount(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"364조 7,929억", 364.7929e12},
		{"5,120억", 5.12e11},
		{"3만", 3e4},
		{"1234", 1234},
		{"", 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.InDelta(t, tt.want, parseKoreanAmount(tt.in), 1)
		})
	}
}
