package timing

import (
	"context"
	"fmt"

	"github.com/wonny/quantlab/internal/contracts"
)

// Report is the full timing analysis for one stock
type Report struct {
	Code        string             `json:"code"`
	Latest      Signal             `json:"latest"`
	Confidence  Confidence         `json:"confidence"`
	Risk        RiskForecast       `json:"risk"`
	Matches     []Match            `json:"matches,omitempty"`
	Weights     map[string]float64 `json:"weights"`
	Probability *Probability       `json:"probability,omitempty"`
	Profile     *ReturnProfile     `json:"profile,omitempty"`
}

// Analyze runs indicators, signals, risk, pattern matching and the k-NN
// pattern learner over one series. The pattern search and learner are
// skipped when the history is too short for them.
func Analyze(ctx context.Context, s *contracts.Series, phase Phase) (*Report, error) {
	if s == nil || s.Len() < 30 {
		return nil, fmt.Errorf("timing %v: %w", codeOf(s), ErrInsufficientData)
	}

	frame := Compute(s)
	signals := frame.Signals()
	rf, err := ForecastRisk(ctx, frame.Closes)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		Code:       s.Code,
		Latest:     signals[len(signals)-1],
		Confidence: SignalConfidence(frame.Closes, signals, DefaultHorizon),
		Risk:       rf,
		Weights:    PhaseWeights(phase),
	}

	// 현재 구간과 겹치지 않는 과거 구간에서만 탐색
	if n := len(frame.Closes); n > 2*DefaultWindow {
		if m, err := SimilarPatterns(frame.Closes, frame.Closes[:n-DefaultWindow], DefaultWindow, 3); err == nil {
			rep.Matches = m
		}
	}

	rows, offset := Features(s)
	if len(rows) > DefaultHorizon+1 {
		labels := Labels(frame.Closes[offset:], DefaultHorizon, DefaultThreshold)
		p := NewPredictor(0)
		if err := p.Fit(rows, labels); err == nil {
			probs := p.Predict(rows)
			last := probs[len(probs)-1]
			rep.Probability = &last
			profile := EvaluateReturnProfile(frame.Closes[offset:], probs, DefaultHorizon, 0.6)
			rep.Profile = &profile
		}
	}
	return rep, nil
}

func codeOf(s *contracts.Series) string {
	if s == nil {
		return ""
	}
	return s.Code
}
