package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

const defaultWriteTimeout = 2 * time.Second

// Recorder writes records asynchronously. The caller never waits on the
// sink and a sink failure never reaches the caller.
type Recorder struct {
	sink    Sink
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewRecorder wraps sink. timeout bounds each write; zero uses a default.
func NewRecorder(sink Sink, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Recorder{sink: sink, timeout: timeout}
}

// Record schedules a write of rec and returns immediately. The write runs
// on a context detached from ctx's cancellation, so it survives the request.
func (r *Recorder) Record(ctx context.Context, rec domain.SearchAnalytics) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}

	writeCtx := log.Detach(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		l := log.Ctx(writeCtx)
		defer func() {
			if p := recover(); p != nil {
				l.Error().Str("panic", fmt.Sprint(p)).Msg("analytics sink panicked")
			}
		}()

		opCtx, cancel := context.WithTimeout(writeCtx, r.timeout)
		defer cancel()

		if err := r.sink.Write(opCtx, &rec); err != nil {
			l.Warn().Err(err).Str(log.FieldQuery, rec.Query).Msg("failed to record search analytics")
		}
	}()
}

// Wait blocks until in-flight writes finish or ctx is done.
func (r *Recorder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
