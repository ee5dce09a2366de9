package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// FillStore implements domain.FillStore using PostgreSQL.
type FillStore struct {
	pool *pgxpool.Pool
}

// NewFillStore creates a FillStore backed by the given pool.
func NewFillStore(pool *pgxpool.Pool) *FillStore {
	return &FillStore{pool: pool}
}

const fillSelectCols = `id, symbol, side, reduce_only, quantity, avg_price,
	status, order_id, model, created_at`

func scanFillRows(rows pgx.Rows) ([]domain.FillRecord, error) {
	var recs []domain.FillRecord
	for rows.Next() {
		var r domain.FillRecord
		if err := rows.Scan(
			&r.ID, &r.Symbol, &r.Side, &r.ReduceOnly, &r.Quantity,
			&r.AvgPrice, &r.Status, &r.OrderID, &r.Model, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// Create inserts one fill record.
func (s *FillStore) Create(ctx context.Context, rec domain.FillRecord) error {
	const query = `
		INSERT INTO fills (
			id, symbol, side, reduce_only, quantity, avg_price,
			status, order_id, model, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	model := rec.Model
	if model == "" {
		model = domain.ModelNone
	}
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Symbol, rec.Side, rec.ReduceOnly, rec.Quantity,
		rec.AvgPrice, rec.Status, rec.OrderID, model, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert fill: %w", err)
	}
	return nil
}

// ListBySymbol returns fills for a symbol with pagination and optional time
// filtering, newest first.
func (s *FillStore) ListBySymbol(ctx context.Context, symbol string, opts domain.ListOpts) ([]domain.FillRecord, error) {
	query := `SELECT ` + fillSelectCols + ` FROM fills WHERE symbol = $1`
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
		return nil, fmt.Errorf("postgres: list fills by symbol: %w", err)
	}
	defer rows.Close()

	recs, err := scanFillRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan fills: %w", err)
	}
	return recs, nil
}

// ListBefore returns all fills created strictly before the given time,
// oldest first, for archiving.
func (s *FillStore) ListBefore(ctx context.Context, before time.Time) ([]domain.FillRecord, error) {
	query := `SELECT ` + fillSelectCols + ` FROM fills WHERE created_at < $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fills before: %w", err)
	}
	defer rows.Close()
	return scanFillRows(rows)
}

// DeleteBefore deletes fills created before the given time and returns the
// number removed.
func (s *FillStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM fills WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete fills before: %w", err)
	}
	return tag.RowsAffected(), nil
}

var _ domain.FillStore = (*FillStore)(nil)
