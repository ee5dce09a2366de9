package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/p8a1u7l/cointrade5-sub000/internal/domain"
)

// multipartThreshold is the payload size above which archive uploads switch
// to the multipart path.
const multipartThreshold = 8 * 1024 * 1024

// decisionArchiveSource is the slice of domain.DecisionStore the archiver
// needs: time-ranged reads plus the matching delete.
type decisionArchiveSource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.DecisionRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// fillArchiveSource is the slice of domain.FillStore the archiver needs.
type fillArchiveSource interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.FillRecord, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// uploader is the writer surface the archiver uses. *Writer satisfies it.
type uploader interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
	PutMultipart(ctx context.Context, path string, data io.Reader, contentType string, partSize int64) error
}

// ArchiveImpl implements domain.Archiver. Aged decision and fill records are
// serialized to JSONL, uploaded under archive/<kind>/YYYY-MM.jsonl, and only
// then deleted from the primary store. An upload failure leaves the rows in
// place so the next run retries them.
type ArchiveImpl struct {
	writer    uploader
	decisions decisionArchiveSource
	fills     fillArchiveSource
	logger    *slog.Logger
}

// NewArchiver creates an ArchiveImpl over the given stores and writer.
func NewArchiver(writer uploader, decisions decisionArchiveSource, fills fillArchiveSource, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer:    writer,
		decisions: decisions,
		fills:     fills,
		logger:    logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveDecisions uploads all decisions created before the cutoff and
// removes them from the store. Returns the number of archived records.
func (a *ArchiveImpl) ArchiveDecisions(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.decisions.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	path := archivePath("decisions", before)
	if err := uploadJSONL(ctx, a.writer, path, recs); err != nil {
		return 0, fmt.Errorf("s3blob: archive decisions: %w", err)
	}

	deleted, err := a.decisions.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(recs)), fmt.Errorf("s3blob: archive decisions delete: %w", err)
	}

	a.logger.Info("archived decisions",
		slog.String("path", path),
		slog.Int("records", len(recs)),
		slog.Int64("deleted", deleted))
	return int64(len(recs)), nil
}

// ArchiveFills uploads all fills created before the cutoff and removes them
// from the store. Returns the number of archived records.
func (a *ArchiveImpl) ArchiveFills(ctx context.Context, before time.Time) (int64, error) {
	recs, err := a.fills.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive fills query: %w", err)
	}
	if len(recs) == 0 {
		return 0, nil
	}

	path := archivePath("fills", before)
	if err := uploadJSONL(ctx, a.writer, path, recs); err != nil {
		return 0, fmt.Errorf("s3blob: archive fills: %w", err)
	}

	deleted, err := a.fills.DeleteBefore(ctx, before)
	if err != nil {
		return int64(len(recs)), fmt.Errorf("s3blob: archive fills delete: %w", err)
	}

	a.logger.Info("archived fills",
		slog.String("path", path),
		slog.Int("records", len(recs)),
		slog.Int64("deleted", deleted))
	return int64(len(recs)), nil
}

// uploadJSONL serializes records to JSONL and uploads them, switching to
// multipart for large payloads.
func uploadJSONL[T any](ctx context.Context, w uploader, path string, records []T) error {
	buf, err := marshalJSONL(records)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if int64(len(buf)) > multipartThreshold {
		return w.PutMultipart(ctx, path, bytes.NewReader(buf), "application/x-ndjson", minPartSize)
	}
	return w.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
}

// archivePath partitions archive files by the year-month of the cutoff:
//
//	archive/decisions/2026-08.jsonl
//	archive/fills/2026-08.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.UTC().Format("2006-01"))
}

// marshalJSONL serializes a slice as newline-delimited JSON, one compact
// object per line.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

var _ domain.Archiver = (*ArchiveImpl)(nil)
