package handlers

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/quantlab/internal/brain"
	"github.com/wonny/quantlab/internal/builder"
)

// StrategyResponse is a saved definition with its advisory suggestions
type StrategyResponse struct {
	Definition  *builder.Definition  `json:"definition"`
	Hash        string               `json:"hash"`
	Suggestions []builder.Suggestion `json:"suggestions"`
}

// ListStrategies lists saved custom strategies
// GET /api/v1/strategies?owner=
func (h *Handler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	if h.strategies == nil {
		h.fail(w, r, brain.ErrNoStore)
		return
	}
	list, err := h.strategies.List(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": list,
		"count":      len(list),
	})
}

// GetStrategy returns one definition
// GET /api/v1/strategies/{name}
func (h *Handler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	if h.strategies == nil {
		h.fail(w, r, brain.ErrNoStore)
		return
	}
	d, hash, err := h.strategies.Get(r.Context(), mux.Vars(r)["name"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, StrategyResponse{Definition: d, Hash: hash, Suggestions: builder.Suggest(d)})
}

// SaveStrategy validates and stores a definition. The body is YAML; JSON
// works too since it is a YAML subset.
// POST /api/v1/strategies
func (h *Handler) SaveStrategy(w http.ResponseWriter, r *http.Request) {
	if h.strategies == nil {
		h.fail(w, r, brain.ErrNoStore)
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	d, err := builder.Parse(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := h.strategies.Save(r.Context(), d)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, StrategyResponse{Definition: d, Hash: hash, Suggestions: builder.Suggest(d)})
}
