package contracts

import "time"

// ActionType is what the investor did
type ActionType string

const (
	ActionEntry  ActionType = "진입"
	ActionAddBuy ActionType = "추가매수"
	ActionSell   ActionType = "매도"
	ActionHold   ActionType = "관망"
)

// Action is one logged investor decision
// ⭐ SSOT: action_log 테이블과 1:1
type Action struct {
	UserID    string     `json:"user_id"`
	ActedAt   time.Time  `json:"acted_at"`
	Code      string     `json:"code"`
	Type      ActionType `json:"action"`
	Strategy  string     `json:"strategy"`
	Price     float64    `json:"price"`
	Quantity  int        `json:"quantity"`
	Emotion   string     `json:"emotion"`    // 불안, 확신, 공포, 탐욕 ...
	ReturnPct *float64   `json:"return_pct"` // nil = 아직 결과 없음
}

// PnL returns the realized return, 0 when unknown
func (a Action) PnL() float64 {
	if a.ReturnPct == nil {
		return 0
	}
	return *a.ReturnPct
}

// Settled reports whether the outcome is known
func (a Action) Settled() bool {
	return a.ReturnPct != nil
}
