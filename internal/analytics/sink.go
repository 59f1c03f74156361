// Package analytics records one append-only row per search, off the
// request path.
package analytics

import (
	"context"
	"time"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

// Sink persists analytics records.
type Sink interface {
	Write(ctx context.Context, rec *domain.SearchAnalytics) error
}

// Reader serves stored records. Only the database sink implements it.
type Reader interface {
	Between(ctx context.Context, from, to time.Time, limit int) ([]domain.SearchAnalytics, error)
}

// LogSink writes each record as a structured log line.
type LogSink struct{}

func (LogSink) Write(ctx context.Context, rec *domain.SearchAnalytics) error {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAnalytics).
		Str("id", rec.ID).
		Str(log.FieldQuery, rec.Query).
		Str(log.FieldCategory, string(rec.Category)).
		Str(log.FieldCaller, rec.Caller).
		Int(log.FieldResults, rec.ResultCount).
		Int64("duration_ms", rec.DurationMs).
		Bool(log.FieldCacheHit, rec.CacheHit).
		Bool(log.FieldPartial, rec.Partial).
		Strs("failed_sources", rec.FailedSources).
		Time("timestamp", rec.Timestamp).
		Msg("search performed")
	return nil
}
