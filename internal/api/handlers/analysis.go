package handlers

import (
	"net/http"
	"regexp"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/quantlab/internal/timing"
)

// codePattern matches a six digit KRX stock code
var codePattern = regexp.MustCompile(`^[0-9A-Z]{6}$`)

// stockCode reads and validates {code}
func stockCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := mux.Vars(r)["code"]
	if !codePattern.MatchString(code) {
		respondError(w, http.StatusBadRequest, "invalid stock code")
		return "", false
	}
	return code, true
}

// GetProfile returns the basic stock analysis
// GET /api/v1/profile/{code}
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	code, ok := stockCode(w, r)
	if !ok {
		return
	}
	p, err := h.analyzer.Profile(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// GetFundamental returns the financial statement analysis
// GET /api/v1/fundamental/{code}?years=4
func (h *Handler) GetFundamental(w http.ResponseWriter, r *http.Request) {
	code, ok := stockCode(w, r)
	if !ok {
		return
	}
	years := 4
	if s := r.URL.Query().Get("years"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil || y < 2 || y > 10 {
			respondError(w, http.StatusBadRequest, "years must be between 2 and 10")
			return
		}
		years = y
	}
	rep, err := h.analyzer.Fundamental(r.Context(), code, years)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// GetSignals returns the technical, value and sentiment signal report
// GET /api/v1/signals/{code}
func (h *Handler) GetSignals(w http.ResponseWriter, r *http.Request) {
	code, ok := stockCode(w, r)
	if !ok {
		return
	}
	rep, err := h.analyzer.Signals(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}

// GetTiming returns the entry/exit timing read-out
// GET /api/v1/timing/{code}?phase=Bull
func (h *Handler) GetTiming(w http.ResponseWriter, r *http.Request) {
	code, ok := stockCode(w, r)
	if !ok {
		return
	}
	phase := timing.Phase(r.URL.Query().Get("phase"))
	switch phase {
	case "", timing.PhaseBull, timing.PhaseBear, timing.PhaseNeutral:
	default:
		respondError(w, http.StatusBadRequest, "phase must be Bull, Bear or Neutral")
		return
	}
	rep, err := h.analyzer.Timing(r.Context(), code, phase)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}
