package store

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/quantlab/internal/contracts"
)

// ActionLogRepository persists investor actions
type ActionLogRepository struct {
	db DBTX
}

// NewActionLogRepository creates a repository
func NewActionLogRepository(db DBTX) *ActionLogRepository {
	return &ActionLogRepository{db: db}
}

// Record inserts one action
func (r *ActionLogRepository) Record(ctx context.Context, a contracts.Action) error {
	query := `
		INSERT INTO quantlab.action_log (
			user_id, acted_at, code, action, strategy, price, quantity, emotion, return_pct
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		a.UserID, a.ActedAt, a.Code, string(a.Type), a.Strategy, a.Price, a.Quantity, a.Emotion, a.ReturnPct,
	)
	if err != nil {
		return fmt.Errorf("failed to insert action: %w", err)
	}
	return nil
}

// Since returns the user's actions at or after from, oldest first
func (r *ActionLogRepository) Since(ctx context.Context, userID string, from time.Time) ([]contracts.Action, error) {
	query := `
		SELECT acted_at, code, action, strategy, price, quantity, emotion, return_pct
		FROM quantlab.action_log
		WHERE user_id = $1 AND acted_at >= $2
		ORDER BY acted_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID, from)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}
	defer rows.Close()

	out := make([]contracts.Action, 0)
	for rows.Next() {
		a := contracts.Action{UserID: userID}
		var typ string
		if err := rows.Scan(&a.ActedAt, &a.Code, &typ, &a.Strategy, &a.Price, &a.Quantity, &a.Emotion, &a.ReturnPct); err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}
		a.Type = contracts.ActionType(typ)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Settle sets the realized return of an action
func (r *ActionLogRepository) Settle(ctx context.Context, userID string, actedAt time.Time, code string, returnPct float64) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE quantlab.action_log SET return_pct = $4
		WHERE user_id = $1 AND acted_at = $2 AND code = $3
	`, userID, actedAt, code, returnPct)
	if err != nil {
		return fmt.Errorf("failed to settle action: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
