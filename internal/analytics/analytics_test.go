package analytics

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/database"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/pubsub"
)

func newDatabaseSink(t *testing.T) *DatabaseSink {
	t.Helper()

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "analytics.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)

	sink := NewDatabaseSink(db)
	require.NoError(t, sink.Migrate(context.Background()))
	return sink
}

func TestDatabaseSinkWriteAndBetween(t *testing.T) {
	sink := newDatabaseSink(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, q := range []string{"inception", "dune", "nolan"} {
		require.NoError(t, sink.Write(ctx, &domain.SearchAnalytics{
			ID:            string(rune('a' + i)),
			Query:         q,
			Category:      domain.CategoryMovie,
			Timestamp:     base.Add(time.Duration(i) * time.Hour),
			ResultCount:   i,
			Caller:        "user:42",
			Partial:       i == 1,
			FailedSources: []string{"imdb"},
		}))
	}

	got, err := sink.Between(ctx, base.Add(30*time.Minute), base.Add(2*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "dune", got[0].Query)
	assert.True(t, got[0].Partial)
	assert.Equal(t, []string{"imdb"}, got[0].FailedSources)
	assert.Equal(t, domain.CategoryMovie, got[0].Category)

	all, err := sink.Between(ctx, time.Time{}, time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "inception", all[0].Query)
}

func TestDatabaseSinkRejectsDuplicateID(t *testing.T) {
	sink := newDatabaseSink(t)
	rec := &domain.SearchAnalytics{ID: "dup", Query: "x", Category: domain.CategoryPost, Timestamp: time.Now()}

	require.NoError(t, sink.Write(context.Background(), rec))
	assert.Error(t, sink.Write(context.Background(), rec), "records are append-only")
}

type capturePublisher struct {
	mu       sync.Mutex
	channels []string
	events   []*pubsub.Event
}

func (p *capturePublisher) Publish(_ context.Context, channel string, event *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channels = append(p.channels, channel)
	p.events = append(p.events, event)
	return nil
}

func TestPubSubSinkPublishes(t *testing.T) {
	pub := &capturePublisher{}
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	err := NewPubSubSink(pub).Write(context.Background(), &domain.SearchAnalytics{
		ID: "1", Query: "dune", Category: domain.CategoryBook, Timestamp: ts,
	})
	require.NoError(t, err)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "analytics:search:book", pub.channels[0])
	assert.Equal(t, pubsub.EventSearchPerformed, pub.events[0].Type)
	assert.Equal(t, ts, pub.events[0].Timestamp)

	var rec domain.SearchAnalytics
	require.NoError(t, pub.events[0].Decode(&rec))
	assert.Equal(t, "dune", rec.Query)
}

type funcSink func(ctx context.Context, rec *domain.SearchAnalytics) error

func (f funcSink) Write(ctx context.Context, rec *domain.SearchAnalytics) error { return f(ctx, rec) }

func TestRecorderDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	written := make(chan domain.SearchAnalytics, 1)

	r := NewRecorder(funcSink(func(_ context.Context, rec *domain.SearchAnalytics) error {
		<-release
		written <- *rec
		return nil
	}), time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	r.Record(ctx, domain.SearchAnalytics{Query: "inception", Category: domain.CategoryMovie})
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	// The request finishing must not cancel the write.
	cancel()
	close(release)

	select {
	case rec := <-written:
		assert.Equal(t, "inception", rec.Query)
		assert.NotEmpty(t, rec.ID)
		assert.False(t, rec.Timestamp.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("record was not written")
	}

	require.NoError(t, r.Wait(context.Background()))
}

func TestRecorderSwallowsFailures(t *testing.T) {
	r := NewRecorder(funcSink(func(context.Context, *domain.SearchAnalytics) error {
		return errors.New("db down")
	}), time.Second)
	r.Record(context.Background(), domain.SearchAnalytics{Query: "a"})

	r2 := NewRecorder(funcSink(func(context.Context, *domain.SearchAnalytics) error {
		panic("boom")
	}), time.Second)
	r2.Record(context.Background(), domain.SearchAnalytics{Query: "b"})

	require.NoError(t, r.Wait(context.Background()))
	require.NoError(t, r2.Wait(context.Background()))
}

func TestRecorderWriteTimeout(t *testing.T) {
	errs := make(chan error, 1)
	r := NewRecorder(funcSink(func(ctx context.Context, _ *domain.SearchAnalytics) error {
		<-ctx.Done()
		errs <- ctx.Err()
		return ctx.Err()
	}), 20*time.Millisecond)

	r.Record(context.Background(), domain.SearchAnalytics{Query: "slow"})
	require.NoError(t, r.Wait(context.Background()))
	assert.ErrorIs(t, <-errs, context.DeadlineExceeded)
}

func TestRecorderWaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	r := NewRecorder(funcSink(func(context.Context, *domain.SearchAnalytics) error {
		<-release
		return nil
	}), time.Minute)
	r.Record(context.Background(), domain.SearchAnalytics{Query: "stuck"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Wait(ctx), context.DeadlineExceeded)
}

func TestLogSink(t *testing.T) {
	assert.NoError(t, LogSink{}.Write(context.Background(), &domain.SearchAnalytics{Query: "x", FailedSources: []string{"a"}}))
}
