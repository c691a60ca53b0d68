package krx

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/quantlab/pkg/config"
	"github.com/wonny/quantlab/pkg/httputil"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

// Client reads KRX index data through the Naver mobile API
// ⭐ SSOT: KRX 시장 데이터 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	metrics    *metrics.Registry
	baseURL    string
}

// NewClient creates a KRX client on cfg.MobileURL
func NewClient(cfg config.NaverConfig, httpClient *httputil.Client, reg *metrics.Registry, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if httpClient == nil {
		httpClient = httputil.New(log).WithRateLimit(cfg.RateLimit, 1)
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithComponent("krx"),
		metrics:    reg,
		baseURL:    strings.TrimRight(cfg.MobileURL, "/"),
	}
}

// getJSON fetches /api/index/{index}/{kind}
func (c *Client) getJSON(ctx context.Context, index, kind string, out interface{}) error {
	switch index {
	case "KOSPI", "KOSDAQ", "KPI200":
	default:
		return fmt.Errorf("unsupported index: %s", index)
	}
	err := c.httpClient.GetJSON(ctx, fmt.Sprintf("%s/api/index/%s/%s", c.baseURL, index, kind), out)
	c.metrics.ObserveFetch("krx", err)
	if err != nil {
		return fmt.Errorf("krx %s %s: %w", index, kind, err)
	}
	return nil
}
