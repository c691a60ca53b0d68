package store

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/quantlab/internal/monitor"
)

// HistoryRecord is one persisted performance entry
type HistoryRecord struct {
	UserID     string    `json:"user_id"`
	RecordedAt time.Time `json:"recorded_at"`
	Strategy   string    `json:"strategy"`
	Value      float64   `json:"value"`
	ReturnPct  float64   `json:"return_pct"`
}

// Entry converts to a tracker entry
func (h HistoryRecord) Entry() monitor.Entry {
	return monitor.Entry{Date: h.RecordedAt, Value: h.Value}
}

// UserHistoryRepository persists per-user performance history
type UserHistoryRepository struct {
	db DBTX
}

// NewUserHistoryRepository creates a repository
func NewUserHistoryRepository(db DBTX) *UserHistoryRepository {
	return &UserHistoryRepository{db: db}
}

// Append stores records in one transaction and trims the user's history to
// the tracker window
func (r *UserHistoryRepository) Append(ctx context.Context, userID string, records []HistoryRecord) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO quantlab.user_history (user_id, recorded_at, strategy, value, return_pct)
		VALUES ($1, $2, $3, $4, $5)
	`
	for _, h := range records {
		if _, err := tx.Exec(ctx, query, userID, h.RecordedAt, h.Strategy, h.Value, h.ReturnPct); err != nil {
			return fmt.Errorf("failed to insert history: %w", err)
		}
	}

	// 최근 30건만 유지
	trim := `
		DELETE FROM quantlab.user_history
		WHERE user_id = $1 AND id NOT IN (
			SELECT id FROM quantlab.user_history
			WHERE user_id = $1
			ORDER BY recorded_at DESC
			LIMIT $2
		)
	`
	if _, err := tx.Exec(ctx, trim, userID, monitor.HistoryLimit); err != nil {
		return fmt.Errorf("failed to trim history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Recent returns the user's history oldest first
func (r *UserHistoryRepository) Recent(ctx context.Context, userID string) ([]HistoryRecord, error) {
	query := `
		SELECT recorded_at, strategy, value, return_pct
		FROM quantlab.user_history
		WHERE user_id = $1
		ORDER BY recorded_at ASC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	out := make([]HistoryRecord, 0)
	for rows.Next() {
		h := HistoryRecord{UserID: userID}
		if err := rows.Scan(&h.RecordedAt, &h.Strategy, &h.Value, &h.ReturnPct); err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}
