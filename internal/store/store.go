package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool the repositories use
// ⭐ SSOT: 모든 저장소는 이 인터페이스로만 DB 접근 (테스트는 pgxmock)
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// Store bundles every repository over one pool
type Store struct {
	History    *UserHistoryRepository
	Actions    *ActionLogRepository
	Strategies *StrategyRepository
	Backtests  *BacktestRunRepository
	Alerts     *AlertRepository
	Targets    *TargetRepository
}

// New creates all repositories
func New(db DBTX) *Store {
	return &Store{
		History:    NewUserHistoryRepository(db),
		Actions:    NewActionLogRepository(db),
		Strategies: NewStrategyRepository(db),
		Backtests:  NewBacktestRunRepository(db),
		Alerts:     NewAlertRepository(db),
		Targets:    NewTargetRepository(db),
	}
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
