package contracts

import "time"

// Alert levels
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Alert is a monitor event delivered through notifiers and stored in the alert log
type Alert struct {
	ID      string                 `json:"id"`
	FiredAt time.Time              `json:"fired_at"`
	Kind    string                 `json:"kind"` // loss, volatility, hedge, deviation, suspend, ...
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
