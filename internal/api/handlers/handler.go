// Package handlers implements the /api/v1 endpoints on top of the brain
// orchestrator and the strategy store.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wonny/quantlab/internal/backtest"
	"github.com/wonny/quantlab/internal/brain"
	"github.com/wonny/quantlab/internal/builder"
	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/fundamental"
	"github.com/wonny/quantlab/internal/macro"
	"github.com/wonny/quantlab/internal/portfolio"
	"github.com/wonny/quantlab/internal/profile"
	"github.com/wonny/quantlab/internal/signals"
	"github.com/wonny/quantlab/internal/store"
	"github.com/wonny/quantlab/internal/timing"
	"github.com/wonny/quantlab/pkg/httputil"
	"github.com/wonny/quantlab/pkg/logger"
)

// maxBodyBytes caps POST bodies
const maxBodyBytes = 1 << 20

// Analyzer is the analysis surface the handlers call, normally *brain.Orchestrator
type Analyzer interface {
	Profile(ctx context.Context, code string) (*profile.Profile, error)
	Fundamental(ctx context.Context, code string, years int) (*fundamental.Report, error)
	Signals(ctx context.Context, code string) (*signals.Report, error)
	Timing(ctx context.Context, code string, phase timing.Phase) (*timing.Report, error)
	MassiveBacktest(ctx context.Context, req brain.MassiveRequest) (*backtest.Run, error)
	RecommendPortfolio(ctx context.Context, req brain.PortfolioRequest) (*portfolio.Portfolio, error)
}

// StrategyStore persists custom strategies
type StrategyStore interface {
	Save(ctx context.Context, d *builder.Definition) (string, error)
	Get(ctx context.Context, name string) (*builder.Definition, string, error)
	List(ctx context.Context, owner string) ([]store.StrategyRecord, error)
}

// Handler serves the API
// ⭐ SSOT: API 핸들러는 이 구조체에서만
type Handler struct {
	analyzer   Analyzer
	strategies StrategyStore
	logger     *logger.Logger
}

// New creates a handler. strategies may be nil when no database is configured.
func New(analyzer Analyzer, strategies StrategyStore, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		analyzer:   analyzer,
		strategies: strategies,
		logger:     log.WithComponent("api"),
	}
}

// fail logs the error and responds with the mapped status
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	log := h.logger.WithError(err).WithField("path", r.URL.Path)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Debug("Request rejected")
	}
	respondError(w, status, err.Error())
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var (
		verr  builder.ValidationError
		upErr *httputil.StatusError
	)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &verr),
		errors.Is(err, backtest.ErrUnknownStrategy),
		errors.Is(err, macro.ErrInsufficientData),
		errors.Is(err, macro.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrEmptySeries),
		errors.Is(err, backtest.ErrNoData),
		errors.Is(err, timing.ErrInsufficientData),
		errors.Is(err, fundamental.ErrInsufficientData),
		errors.Is(err, profile.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, brain.ErrNoStore):
		return http.StatusServiceUnavailable
	case errors.As(err, &upErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a bounded JSON body; unknown fields are rejected
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
