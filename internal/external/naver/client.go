package naver

import (
	"context"
	"fmt"
	"net/url"

	"github.com/wonny/quantlab/pkg/config"
	"github.com/wonny/quantlab/pkg/httputil"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

// BrowserUserAgent is sent on every request; Naver rejects requests without a UA
const BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// Client handles communication with Naver Finance
// ⭐ SSOT: Naver Finance API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	metrics    *metrics.Registry
	baseURL    string // finance.naver.com (HTML)
	chartURL   string // siseJson
	mobileURL  string // m.stock.naver.com JSON API
}

// NewClient creates a Naver client. A nil httpClient gets a rate limited
// default built from cfg.RateLimit.
func NewClient(cfg config.NaverConfig, httpClient *httputil.Client, reg *metrics.Registry, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if httpClient == nil {
		httpClient = httputil.New(log).
			WithUserAgent(BrowserUserAgent).
			WithRateLimit(cfg.RateLimit, 1)
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("naver"),
		metrics:    reg,
		baseURL:    cfg.BaseURL,
		chartURL:   cfg.ChartURL,
		mobileURL:  cfg.MobileURL,
	}
}

// fetch GETs base+path and records the outcome
func (c *Client) fetch(ctx context.Context, base, path string, params url.Values) ([]byte, error) {
	fullURL := base + path
	if len(params) > 0 {
		fullURL = fmt.Sprintf("%s?%s", fullURL, params.Encode())
	}
	body, err := c.httpClient.GetBytes(ctx, fullURL)
	c.metrics.ObserveFetch("naver", err)
	if err != nil {
		return nil, fmt.Errorf("naver %s: %w", path, err)
	}
	return body, nil
}
