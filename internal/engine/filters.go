package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
	"github.com/p8a1u7l/cointrade5-sub000/internal/exchange"
)

// FilterCache holds the per-symbol trading filters with TTL refresh. The
// whole table is replaced atomically so readers always see a consistent
// snapshot.
type FilterCache struct {
	adapter exchange.Adapter
	ttl     time.Duration
	logger  *slog.Logger

	table     atomic.Pointer[map[string]domain.TradingFilters]
	refreshed atomic.Int64 // unix nanos of the last successful refresh
}

func NewFilterCache(adapter exchange.Adapter, ttl time.Duration, logger *slog.Logger) *FilterCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	c := &FilterCache{
		adapter: adapter,
		ttl:     ttl,
		logger:  logger.With(slog.String("component", "filter_cache")),
	}
	empty := map[string]domain.TradingFilters{}
	c.table.Store(&empty)
	return c
}

// Refresh fetches the filter table when the TTL has lapsed. Safe to call
// every tick.
func (c *FilterCache) Refresh(ctx context.Context) error {
	last := time.Unix(0, c.refreshed.Load())
	if time.Since(last) < c.ttl {
		return nil
	}
	table, err := c.adapter.TradingFilters(ctx)
	if err != nil {
		return fmt.Errorf("engine: refresh filters: %w", err)
	}
	if len(table) == 0 {
		return domain.ErrFiltersUnavailable
	}
	c.table.Store(&table)
	c.refreshed.Store(time.Now().UnixNano())
	c.logger.Info("trading filters refreshed", slog.Int("symbols", len(table)))
	return nil
}

// Filters returns the current filters for a symbol.
func (c *FilterCache) Filters(symbol string) (domain.TradingFilters, bool) {
	table := *c.table.Load()
	f, ok := table[symbol]
	return f, ok
}

var _ FilterSource = (*FilterCache)(nil)
