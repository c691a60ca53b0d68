package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wonny/quantlab/internal/contracts"
)

// AlertRepository persists fired alerts. It is also a contracts.Notifier so
// the dispatcher can log alerts alongside Telegram and websocket delivery.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository creates a repository
func NewAlertRepository(db DBTX) *AlertRepository {
	return &AlertRepository{db: db}
}

// Notify stores the alert; an empty ID is assigned a new UUID
func (r *AlertRepository) Notify(ctx context.Context, a contracts.Alert) error {
	id, err := uuid.Parse(a.ID)
	if err != nil {
		id = uuid.New()
	}
	details := a.Details
	if details == nil {
		details = map[string]interface{}{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("marshal alert details: %w", err)
	}

	query := `
		INSERT INTO quantlab.alerts (id, fired_at, kind, level, message, details)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, id, a.FiredAt, a.Kind, a.Level, a.Message, raw); err != nil {
		return fmt.Errorf("failed to save alert: %w", err)
	}
	return nil
}

// Recent returns the newest n alerts, newest first
func (r *AlertRepository) Recent(ctx context.Context, n int) ([]contracts.Alert, error) {
	query := `
		SELECT id, fired_at, kind, level, message, details
		FROM quantlab.alerts
		ORDER BY fired_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]contracts.Alert, 0)
	for rows.Next() {
		var (
			a   contracts.Alert
			id  uuid.UUID
			raw []byte
		)
		if err := rows.Scan(&id, &a.FiredAt, &a.Kind, &a.Level, &a.Message, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.ID = id.String()
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &a.Details); err != nil {
				return nil, fmt.Errorf("decode alert details: %w", err)
			}
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
