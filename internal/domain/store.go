package domain

import (
	"context"
	"time"
)

// ListOpts carries pagination and time-range options for store queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// DecisionStore persists per-tick decision records for the analytics layer.
type DecisionStore interface {
	Create(ctx context.Context, rec DecisionRecord) error
	ListBySymbol(ctx context.Context, symbol string, opts ListOpts) ([]DecisionRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]DecisionRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// FillStore persists execution results.
type FillStore interface {
	Create(ctx context.Context, rec FillRecord) error
	ListBySymbol(ctx context.Context, symbol string, opts ListOpts) ([]FillRecord, error)
	ListBefore(ctx context.Context, before time.Time) ([]FillRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
