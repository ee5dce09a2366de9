// Package redis implements the decision/fill signal bus and the live price
// mirror on go-redis/v9.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ClientConfig holds connection parameters. The pool serves the bus
// subscribers plus the per-quote price writes, so PoolSize should comfortably
// exceed the number of traded symbols.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client owns the shared connection the signal bus and price cache are built
// on.
type Client struct {
	rdb *redis.Client
}

// New connects and pings; a Redis that is down at startup fails the wiring
// rather than the first tick.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	opts := &redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		PoolSize:   cfg.PoolSize,
		MaxRetries: cfg.MaxRetries,
	}
	if cfg.TLSEnabled {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
