package domain

import (
	"context"
	"io"
	"time"
)

// PriceCache exposes the latest observed mark price per symbol to the
// operational/dashboard layer.
type PriceCache interface {
	SetPrice(ctx context.Context, symbol string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, symbol string) (float64, time.Time, error)
}

// StreamMessage is a single entry read back from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus publishes engine events (decisions, fills, cooldown blocks) to
// the excluded HTTP/analytics layer via pub/sub, with a durable stream for
// consumers that need replay.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// BlobWriter uploads archive objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver moves aged decision and fill records to cold storage.
type Archiver interface {
	ArchiveDecisions(ctx context.Context, before time.Time) (int64, error)
	ArchiveFills(ctx context.Context, before time.Time) (int64, error)
}
