package naver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/pkg/config"
	"github.com/wonny/quantlab/pkg/httputil"
	"github.com/wonny/quantlab/pkg/metrics"
)

// newTestClient points every Naver base URL at one test server
func newTestClient(t *testing.T, reg *metrics.Registry, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	cfg := config.NaverConfig{BaseURL: srv.URL, ChartURL: srv.URL, MobileURL: srv.URL}
	return NewClient(cfg, httputil.New(nil).DisableRetry(), reg, nil)
}

const siseBody = `[['날짜', '시가', '고가', '저가', '종가', '거래량', '외국인소진율'],
["20240116", 72500, 73500, 72300, 73000, 1200000, 53.1],
["20240115", 72300, 73000, 72000, 72500, 1000000, 53.0]
]`

func TestFetchSeries(t *testing.T) {
	reg := metrics.New()
	c := newTestClient(t, reg, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/siseJson.naver", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "005930", q.Get("symbol"))
		assert.Equal(t, "20240101", q.Get("startTime"))
		assert.Equal(t, "20240131", q.Get("endTime"))
		assert.Equal(t, "day", q.Get("timeframe"))
		fmt.Fprint(w, siseBody)
	})

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s, err := c.FetchSeries(context.Background(), "005930", from, from.AddDate(0, 0, 30))
	require.NoError(t, err)
	assert.Equal(t, "005930", s.Code)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, 15, s.Bars[0].Date.Day(), "sorted ascending")
	assert.Equal(t, 73000.0, s.Bars[1].Close)
	assert.Equal(t, 1200000.0, s.Bars[1].Volume)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.FetchTotal.WithLabelValues("naver", "ok")))
}

func TestFetchSeriesEmpty(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[['날짜', '시가', '고가', '저가', '종가', '거래량']]`)
	})
	_, err := c.FetchSeries(context.Background(), "005930", time.Now(), time.Now())
	if !errors.Is(err, contracts.ErrEmptySeries) {
		t.Errorf("Expected ErrEmptySeries, got %v", err)
	}
}

func TestFetchSeriesStatusError(t *testing.T) {
	c := newTestClient(t, nil, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	_, err := c.FetchSeries(context.Background(), "005930", time.Now(), time.Now())
	var se *httputil.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
}

func TestParsePriceJSON(t *testing.T) {
	tests := []struct {
		name    string
		rawData [][]interface{}
		want    int
	}{
		{
			name: "valid data with header",
			rawData: [][]interface{}{
				{"날짜", "시가", "고가", "저가", "종가", "거래량"},
				{"20240115", 72300.0, 73000.0, 72000.0, 72500.0, 1000000.0},
				{"20240116", 72500.0, 73500.0, 72300.0, 73000.0, 1200000.0},
			},
			want: 2,
		},
		{
			name: "valid data with string numbers",
			rawData: [][]interface{}{
				{"날짜", "시가", "고가", "저가", "종가", "거래량"},
				{"20240115", "72,300", "73000", "72000", "72500", "1000000"},
			},
			want: 1,
		},
		{
			name:    "empty data",
			rawData: [][]interface{}{},
			want:    0,
		},
		{
			name: "data with insufficient columns",
			rawData: [][]interface{}{
				{"날짜", "시가"},
				{"20240115", 72300.0, 73000.0},
			},
			want: 0,
		},
		{
			name: "bad date",
			rawData: [][]interface{}{
				{"날짜", "시가", "고가", "저가", "종가", "거래량"},
				{"2024-01-15", 1.0, 1.0, 1.0, 1.0, 1.0},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parsePriceJSON(tt.rawData); len(got) != tt.want {
				t.Errorf("parsePriceJSON() got %d bars, want %d", len(got), tt.want)
			}
		})
	}
}

func TestParsePriceRegexFallback(t *testing.T) {
	// trailing comma breaks JSON decoding
	body := `[['날짜','시가','고가','저가','종가','거래량'],
["20240115", 72300, 73000, 72000, 72500, 1000000, 53.0],]`

	bars := parsePriceResponse(body)
	if len(bars) != 1 {
		t.Fatalf("Expected 1 bar, got %d", len(bars))
	}
	if bars[0].Close != 72500 || bars[0].Volume != 1000000 {
		t.Errorf("bar = %+v", bars[0])
	}
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  float64
	}{
		{"float64", 72500.0, 72500},
		{"int64", int64(100), 100},
		{"int", 7, 7},
		{"string", "1,234", 1234},
		{"invalid string", "abc", 0},
		{"nil", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toFloat(tt.input); got != tt.want {
				t.Errorf("toFloat(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
