package handlers

import (
	"net/http"

	"github.com/wonny/quantlab/internal/contracts"
	"github.com/wonny/quantlab/internal/macro"
)

// MacroRequest carries the indicator history to score
type MacroRequest struct {
	Snapshots []contracts.MacroSnapshot `json:"snapshots"`
	Profile   macro.Profile             `json:"profile"`
}

// ScoreMacro scores the latest macro snapshot, matches past crises and
// recommends a strategy
// POST /api/v1/macro/score
func (h *Handler) ScoreMacro(w http.ResponseWriter, r *http.Request) {
	var req MacroRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	a, err := macro.Analyze(req.Snapshots, req.Profile)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, a)
}
