package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// DecisionStore implements domain.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a DecisionStore backed by the given pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

const decisionSelectCols = `id, symbol, bias, action, confidence, entry_price,
	exit_price, reasoning, source, local_edge, price, created_at`

func scanDecisionRows(rows pgx.Rows) ([]domain.DecisionRecord, error) {
	var recs []domain.DecisionRecord
	for rows.Next() {
		var r domain.DecisionRecord
		if err := rows.Scan(
			&r.ID, &r.Symbol, &r.Bias, &r.Action, &r.Confidence,
			&r.EntryPrice, &r.ExitPrice, &r.Reasoning, &r.Source,
			&r.LocalEdge, &r.Price, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Create inserts one decision record.
func (s *DecisionStore) Create(ctx context.Context, rec domain.DecisionRecord) error {
	const query = `
		INSERT INTO decisions (
			id, symbol, bias, action, confidence, entry_price,
			exit_price, reasoning, source, local_edge, price, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Symbol, rec.Bias, rec.Action, rec.Confidence,
		rec.EntryPrice, rec.ExitPrice, rec.Reasoning, rec.Source,
		rec.LocalEdge, rec.Price, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert decision: %w", err)
	}
	return nil
}

// ListBySymbol returns decisions for a symbol with pagination and optional
// time filtering, newest first.
func (s *DecisionStore) ListBySymbol(ctx context.Context, symbol string, opts domain.ListOpts) ([]domain.DecisionRecord, error) {
	query := `SELECT ` + decisionSelectCols + ` FROM decisions WHERE symbol = $1`
	args := []any{symbol}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions by symbol: %w", err)
	}
	defer rows.Close()

	recs, err := scanDecisionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan decisions: %w", err)
	}
	return recs, nil
}

// ListBefore returns all decisions created strictly before the given time,
// oldest first, for archiving.
func (s *DecisionStore) ListBefore(ctx context.Context, before time.Time) ([]domain.DecisionRecord, error) {
	query := `SELECT ` + decisionSelectCols + ` FROM decisions WHERE created_at < $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list decisions before: %w", err)
	}
	defer rows.Close()
	return scanDecisionRows(rows)
}

// DeleteBefore deletes decisions created before the given time and returns
// the number removed.
func (s *DecisionStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM decisions WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete decisions before: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.DecisionStore = (*DecisionStore)(nil)
