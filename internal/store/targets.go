package store

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/quantlab/internal/portfolio"
)

// TargetRepository persists recommended target portfolios, one per mode and day
// ⭐ SSOT: 목표 포트폴리오 저장/조회는 여기서만
type TargetRepository struct {
	db DBTX
}

// NewTargetRepository creates a repository
func NewTargetRepository(db DBTX) *TargetRepository {
	return &TargetRepository{db: db}
}

// Save replaces the positions of p's mode and day and upserts its snapshot
func (r *TargetRepository) Save(ctx context.Context, p *portfolio.Portfolio) error {
	day := p.Date.Truncate(24 * time.Hour)

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Delete existing positions for the date
	_, err = tx.Exec(ctx,
		"DELETE FROM quantlab.target_positions WHERE target_date = $1 AND mode = $2",
		day, string(p.Mode))
	if err != nil {
		return fmt.Errorf("failed to delete old positions: %w", err)
	}

	query := `
		INSERT INTO quantlab.target_positions (target_date, mode, code, name, weight, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, pos := range p.Positions {
		if _, err := tx.Exec(ctx, query, day, string(p.Mode), pos.Code, pos.Name, pos.Weight, pos.Reason); err != nil {
			return fmt.Errorf("failed to insert position: %w", err)
		}
	}

	summaryQuery := `
		INSERT INTO quantlab.portfolio_snapshots (snapshot_date, mode, total_positions, total_weight, cash, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (snapshot_date, mode) DO UPDATE SET
			total_positions = EXCLUDED.total_positions,
			total_weight = EXCLUDED.total_weight,
			cash = EXCLUDED.cash,
			created_at = now()
	`
	if _, err := tx.Exec(ctx, summaryQuery, day, string(p.Mode), len(p.Positions), p.TotalWeight(), p.Cash); err != nil {
		return fmt.Errorf("failed to save portfolio snapshot: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Latest loads the newest saved target of a mode
func (r *TargetRepository) Latest(ctx context.Context, mode portfolio.Mode) (*portfolio.Portfolio, error) {
	p := &portfolio.Portfolio{Mode: mode, Positions: make([]portfolio.Position, 0)}
	err := r.db.QueryRow(ctx, `
		SELECT snapshot_date, cash
		FROM quantlab.portfolio_snapshots
		WHERE mode = $1
		ORDER BY snapshot_date DESC
		LIMIT 1
	`, string(mode)).Scan(&p.Date, &p.Cash)
	if err != nil {
		return nil, notFound(err)
	}

	rows, err := r.db.Query(ctx, `
		SELECT code, name, weight, reason
		FROM quantlab.target_positions
		WHERE target_date = $1 AND mode = $2
		ORDER BY weight DESC
	`, p.Date, string(mode))
	if err != nil {
		return nil, fmt.Errorf("failed to query target positions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pos portfolio.Position
		if err := rows.Scan(&pos.Code, &pos.Name, &pos.Weight, &pos.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan position: %w", err)
		}
		p.Positions = append(p.Positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return p, nil
}
