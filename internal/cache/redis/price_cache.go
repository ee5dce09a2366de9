package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

const priceKeyPrefix = "price:"

// PriceCache implements domain.PriceCache using a Redis hash per symbol.
type PriceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPriceCache creates a PriceCache. A non-positive ttl disables expiry.
func NewPriceCache(c *Client, ttl time.Duration) *PriceCache {
	return &PriceCache{rdb: c.rdb, ttl: ttl}
}

// SetPrice records the latest mark price for a symbol.
func (pc *PriceCache) SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error {
	key := priceKeyPrefix + symbol
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(price, 'f', -1, 64),
		"ts":    strconv.FormatInt(ts.UnixNano(), 10),
	}
	if err := pc.rdb.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("redis: set price %s: %w", symbol, err)
	}
	if pc.ttl > 0 {
		if err := pc.rdb.Expire(ctx, key, pc.ttl).Err(); err != nil {
			return fmt.Errorf("redis: expire price %s: %w", symbol, err)
		}
	}
	return nil
}

// GetPrice returns the last recorded price and its timestamp. Returns
// domain.ErrNotFound when no price has been recorded.
func (pc *PriceCache) GetPrice(ctx context.Context, symbol string) (float64, time.Time, error) {
	fields, err := pc.rdb.HGetAll(ctx, priceKeyPrefix+symbol).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", symbol, err)
	}
	if len(fields) == 0 {
		return 0, time.Time{}, fmt.Errorf("redis: get price %s: %w", symbol, domain.ErrNotFound)
	}

	price, err := strconv.ParseFloat(fields["price"], 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price %s: %w", symbol, err)
	}
	nanos, err := strconv.ParseInt(fields["ts"], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse price timestamp %s: %w", symbol, err)
	}
	return price, time.Unix(0, nanos).UTC(), nil
}

var _ domain.PriceCache = (*PriceCache)(nil)
