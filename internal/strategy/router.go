package strategy

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Route names
const (
	RouteConservative = "conservative"
	RouteNeutral      = "neutral"
	RouteAggressive   = "aggressive"
)

// Threshold routes probabilities at or below Max to Strategy
type Threshold struct {
	Strategy string
	Max      float64
}

// Router maps an up-probability to a strategy
type Router struct {
	thresholds []Threshold
}

// DefaultThresholds ⭐ SSOT: 0.4 이하 보수, 0.6 이하 중립, 그 외 공격
var DefaultThresholds = []Threshold{
	{Strategy: RouteConservative, Max: 0.4},
	{Strategy: RouteNeutral, Max: 0.6},
	{Strategy: RouteAggressive, Max: 1.0},
}

// NewRouter creates a router; thresholds are checked in order
func NewRouter(thresholds []Threshold) *Router {
	if len(thresholds) == 0 {
		thresholds = DefaultThresholds
	}
	return &Router{thresholds: thresholds}
}

// Route returns the first strategy whose threshold covers prob
func (r *Router) Route(prob float64) string {
	for _, t := range r.thresholds {
		if prob <= t.Max {
			return t.Strategy
		}
	}
	return RouteAggressive
}

// AdjustUserWeights tilts base weights toward the user's preference (×1.3 / ×0.7)
// and renormalises. The input map is not modified.
func AdjustUserWeights(base map[string]float64, preference string) map[string]float64 {
	out := make(map[string]float64, len(base))
	for k, v := range base {
		out[k] = v
	}
	switch preference {
	case RouteConservative:
		out[RouteConservative] *= 1.3
		out[RouteAggressive] *= 0.7
	case RouteAggressive:
		out[RouteAggressive] *= 1.3
		out[RouteConservative] *= 0.7
	}
	var total float64
	for _, v := range out {
		total += v
	}
	if total == 0 {
		return out
	}
	for k, v := range out {
		out[k] = v / total
	}
	return out
}

// Transition is one routed decision
type Transition struct {
	ID         string    `json:"id"`
	Strategy   string    `json:"strategy"`
	Prob       float64   `json:"prob"`
	Confidence float64   `json:"confidence"`
	At         time.Time `json:"at"`
}

// FlowTracker records strategy transitions
type FlowTracker struct {
	mu      sync.Mutex
	history []Transition
	now     func() time.Time
}

// NewFlowTracker creates an empty tracker
func NewFlowTracker() *FlowTracker {
	return &FlowTracker{now: time.Now}
}

// Record appends a transition and returns it
func (f *FlowTracker) Record(strategy string, prob, confidence float64) Transition {
	t := Transition{
		ID:         uuid.NewString()[:8],
		Strategy:   strategy,
		Prob:       prob,
		Confidence: confidence,
		At:         f.now(),
	}
	f.mu.Lock()
	f.history = append(f.history, t)
	f.mu.Unlock()
	return t
}

// History returns a copy of the recorded transitions
func (f *FlowTracker) History() []Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Transition(nil), f.history...)
}

// Explain lists each transition in plain language
func (f *FlowTracker) Explain() []string {
	var out []string
	for _, t := range f.History() {
		out = append(out, fmt.Sprintf("전략 %s (예측 상승확률 %.2f, 신뢰도 %.2f)", t.Strategy, t.Prob, t.Confidence))
	}
	return out
}
