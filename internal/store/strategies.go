package store

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/quantlab/internal/builder"
)

// StrategyRecord is a stored custom strategy without its body
type StrategyRecord struct {
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StrategyRepository persists builder definitions as YAML
type StrategyRepository struct {
	db DBTX
}

// NewStrategyRepository creates a repository
func NewStrategyRepository(db DBTX) *StrategyRepository {
	return &StrategyRepository{db: db}
}

// Save validates and upserts a definition by name. Returns the content hash.
func (r *StrategyRepository) Save(ctx context.Context, d *builder.Definition) (string, error) {
	if err := builder.Validate(d); err != nil {
		return "", err
	}
	body, err := builder.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal strategy: %w", err)
	}
	hash, err := builder.Hash(d)
	if err != nil {
		return "", fmt.Errorf("hash strategy: %w", err)
	}

	query := `
		INSERT INTO quantlab.custom_strategies (name, owner, hash, definition, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (name) DO UPDATE SET
			owner = EXCLUDED.owner,
			hash = EXCLUDED.hash,
			definition = EXCLUDED.definition,
			updated_at = NOW()
	`
	if _, err := r.db.Exec(ctx, query, d.Name, d.Owner, hash, string(body)); err != nil {
		return "", fmt.Errorf("failed to save strategy: %w", err)
	}
	return hash, nil
}

// Get loads and parses a definition
func (r *StrategyRepository) Get(ctx context.Context, name string) (*builder.Definition, string, error) {
	var body, hash string
	err := r.db.QueryRow(ctx,
		"SELECT definition, hash FROM quantlab.custom_strategies WHERE name = $1",
		name,
	).Scan(&body, &hash)
	if err != nil {
		return nil, "", notFound(err)
	}
	d, err := builder.Parse([]byte(body))
	if err != nil {
		return nil, "", fmt.Errorf("stored strategy %s: %w", name, err)
	}
	return d, hash, nil
}

// List returns strategies, optionally filtered by owner ("" = all)
func (r *StrategyRepository) List(ctx context.Context, owner string) ([]StrategyRecord, error) {
	query := `
		SELECT name, owner, hash, updated_at
		FROM quantlab.custom_strategies
		WHERE $1 = '' OR owner = $1
		ORDER BY name
	`
	rows, err := r.db.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query strategies: %w", err)
	}
	defer rows.Close()

	out := make([]StrategyRecord, 0)
	for rows.Next() {
		var s StrategyRecord
		if err := rows.Scan(&s.Name, &s.Owner, &s.Hash, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

// Delete removes a strategy by name
func (r *StrategyRepository) Delete(ctx context.Context, name string) error {
	tag, err := r.db.Exec(ctx, "DELETE FROM quantlab.custom_strategies WHERE name = $1", name)
	if err != nil {
		return fmt.Errorf("failed to delete strategy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
