package handlers

import (
	"net/http"

	"github.com/wonny/quantlab/internal/brain"
)

// maxScenarios caps one API request
const maxScenarios = 10000

// RunMassive runs a scenario sweep and returns the stored run
// POST /api/v1/backtest/massive
func (h *Handler) RunMassive(w http.ResponseWriter, r *http.Request) {
	var req brain.MassiveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if !codePattern.MatchString(req.Code) {
		respondError(w, http.StatusBadRequest, "invalid stock code")
		return
	}
	if req.Scenarios < 0 || req.Scenarios > maxScenarios {
		respondError(w, http.StatusBadRequest, "scenarios must be between 0 and 10000")
		return
	}

	run, err := h.analyzer.MassiveBacktest(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, run)
}
