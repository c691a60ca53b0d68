package handlers

import (
	"net/http"

	"github.com/wonny/quantlab/internal/brain"
	"github.com/wonny/quantlab/internal/portfolio"
)

// maxCandidates caps one recommendation request
const maxCandidates = 50

// RecommendPortfolio builds a weighted basket from candidate codes
// POST /api/v1/portfolio/recommend
func (h *Handler) RecommendPortfolio(w http.ResponseWriter, r *http.Request) {
	var req brain.PortfolioRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Mode != "" {
		m, err := portfolio.ParseMode(string(req.Mode))
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.Mode = m
	}
	if len(req.Codes) == 0 || len(req.Codes) > maxCandidates {
		respondError(w, http.StatusBadRequest, "codes must list 1 to 50 stocks")
		return
	}
	for _, c := range req.Codes {
		if !codePattern.MatchString(c) {
			respondError(w, http.StatusBadRequest, "invalid stock code: "+c)
			return
		}
	}

	p, err := h.analyzer.RecommendPortfolio(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}
