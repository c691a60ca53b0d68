package dart

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/wonny/quantlab/pkg/config"
	"github.com/wonny/quantlab/pkg/logger"
	"github.com/wonny/quantlab/pkg/metrics"
)

// DART status codes
const (
	statusOK     = "000"
	statusNoData = "013"
)

// ErrNoAPIKey is returned when DART_API_KEY is not configured
var ErrNoAPIKey = errors.New("DART API key not configured")

// Client talks to the OpenDART API
// ⭐ SSOT: DART API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *http.Client
	logger     *logger.Logger
	metrics    *metrics.Registry
	apiKey     string
	baseURL    string

	mu        sync.RWMutex
	corpCodes map[string]string // 종목코드 → DART 고유번호
}

// NewClient creates a DART client from config
func NewClient(cfg config.DARTConfig, reg *metrics.Registry, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		httpClient: newLegacyCompatibleClient(30 * time.Second),
		logger:     log.WithComponent("dart"),
		metrics:    reg,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		corpCodes:  make(map[string]string),
	}
}

// RegisterCorpCode maps a 6-digit stock code to its 8-digit DART corp code
func (c *Client) RegisterCorpCode(stockCode, corpCode string) {
	c.mu.Lock()
	c.corpCodes[stockCode] = corpCode
	c.mu.Unlock()
}

// corpCode resolves a stock code. An 8-digit code is taken as a corp code.
func (c *Client) corpCode(code string) (string, error) {
	if len(code) == 8 {
		return code, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if cc, ok := c.corpCodes[code]; ok {
		return cc, nil
	}
	return "", fmt.Errorf("no DART corp code registered for %s", code)
}

// newLegacyCompatibleClient allows the RSA key-exchange suites the DART
// server still requires (Go 1.22+ drops them by default)
func newLegacyCompatibleClient(timeout time.Duration) *http.Client {
	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		MaxVersion: tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
			// RSA KEX (legacy) - DART 필수
			tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_RSA_WITH_AES_128_CBC_SHA,
			tls.TLS_RSA_WITH_AES_256_CBC_SHA,
		},
	}

	tr := &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		ForceAttemptHTTP2: false,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		TLSClientConfig:       tlsCfg,
		MaxIdleConns:          20,
		MaxConnsPerHost:       5,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{Transport: tr, Timeout: timeout}
}

// envelope is the status wrapper every DART JSON response carries
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// apiError is a non-success DART status
type apiError struct {
	Status  string
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("API error: %s - %s", e.Status, e.Message)
}

// get calls endpoint with params and decodes into out. It reports false
// when DART answers "no data".
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out interface{}) (bool, error) {
	if c.apiKey == "" {
		return false, ErrNoAPIKey
	}
	params.Set("crtfc_key", c.apiKey)
	u := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	found, err := c.getWithRetry(ctx, u, out)
	c.metrics.ObserveFetch("dart", err)
	return found, err
}

func (c *Client) getOnce(ctx context.Context, u string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return false, fmt.Errorf("decode status: %w", err)
	}
	switch env.Status {
	case statusOK:
	case statusNoData:
		return false, nil
	default:
		return false, &apiError{Status: env.Status, Message: env.Message}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode body: %w", err)
	}
	return true, nil
}

// getWithRetry retries network failures with exponential backoff
func (c *Client) getWithRetry(ctx context.Context, u string, out interface{}) (bool, error) {
	const maxRetries = 3
	backoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		found, err := c.getOnce(ctx, u, out)
		if err == nil {
			return found, nil
		}
		lastErr = err
		if !isRetryableError(err) || attempt == maxRetries-1 {
			break
		}

		c.logger.WithError(err).WithField("attempt", attempt+1).Debug("Retrying DART API call")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return false, ctx.Err()
		}
		backoff *= 2
		if backoff > 5*time.Second {
			backoff = 5 * time.Second
		}
	}
	return false, lastErr
}

// isRetryableError checks if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection reset by peer",
		"eof",
		"connection refused",
		"network unreachable",
		"timeout",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
