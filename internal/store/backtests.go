package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/wonny/quantlab/internal/backtest"
)

// BacktestRunRepository persists massive backtest runs
type BacktestRunRepository struct {
	db DBTX
}

// NewBacktestRunRepository creates a repository
func NewBacktestRunRepository(db DBTX) *BacktestRunRepository {
	return &BacktestRunRepository{db: db}
}

// Save stores a run with its summary and survivors as JSONB
func (r *BacktestRunRepository) Save(ctx context.Context, run backtest.Run) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	survivors, err := json.Marshal(run.Survivors)
	if err != nil {
		return fmt.Errorf("marshal survivors: %w", err)
	}

	query := `
		INSERT INTO quantlab.backtest_runs (run_id, strategy, scenarios, summary, survivors, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.Exec(ctx, query, run.ID, run.Strategy, run.Scenarios, summary, survivors, run.CreatedAt); err != nil {
		return fmt.Errorf("failed to save backtest run: %w", err)
	}
	return nil
}

// Get loads one run
func (r *BacktestRunRepository) Get(ctx context.Context, id uuid.UUID) (*backtest.Run, error) {
	query := `
		SELECT run_id, strategy, scenarios, summary, survivors, created_at
		FROM quantlab.backtest_runs
		WHERE run_id = $1
	`
	return scanRun(r.db.QueryRow(ctx, query, id))
}

// Latest returns the newest n runs of a strategy
func (r *BacktestRunRepository) Latest(ctx context.Context, strategy string, n int) ([]backtest.Run, error) {
	query := `
		SELECT run_id, strategy, scenarios, summary, survivors, created_at
		FROM quantlab.backtest_runs
		WHERE strategy = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, strategy, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest runs: %w", err)
	}
	defer rows.Close()

	out := make([]backtest.Run, 0)
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*backtest.Run, error) {
	var (
		run                backtest.Run
		summary, survivors []byte
	)
	if err := row.Scan(&run.ID, &run.Strategy, &run.Scenarios, &summary, &survivors, &run.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	if err := json.Unmarshal(summary, &run.Summary); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if err := json.Unmarshal(survivors, &run.Survivors); err != nil {
		return nil, fmt.Errorf("decode survivors: %w", err)
	}
	return &run, nil
}
