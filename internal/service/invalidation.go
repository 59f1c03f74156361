package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/cache"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/pubsub"
)

// InvalidationRelay broadcasts cache invalidations to the other gateway
// instances and applies theirs locally. It matters when instances keep an
// in-process cache; with a shared Redis cache the remote delete is a no-op.
type InvalidationRelay struct {
	ps     pubsub.PubSub
	store  *cache.Store
	origin string
}

// NewInvalidationRelay creates a relay with a fresh instance id.
func NewInvalidationRelay(ps pubsub.PubSub, store *cache.Store) *InvalidationRelay {
	return &InvalidationRelay{ps: ps, store: store, origin: uuid.New().String()}
}

// Origin is this instance's id on the invalidation channel.
func (r *InvalidationRelay) Origin() string {
	return r.origin
}

// Publish announces that prefix was invalidated. Failures are logged.
func (r *InvalidationRelay) Publish(ctx context.Context, prefix string) {
	category := categoryOfPrefix(prefix)

	event, err := pubsub.NewEvent(pubsub.EventCacheInvalidated, category, pubsub.CacheInvalidatedPayload{
		Prefix: prefix,
		Origin: r.origin,
	})
	if err == nil {
		err = r.ps.Publish(ctx, pubsub.CacheInvalidateChannel(category), event)
	}
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldCacheKey, prefix).Msg("failed to broadcast cache invalidation")
	}
}

// Run applies invalidations published by other instances until ctx is done.
func (r *InvalidationRelay) Run(ctx context.Context) error {
	events, err := r.ps.SubscribePattern(ctx, pubsub.PatternCacheInvalidate)
	if err != nil {
		return err
	}

	l := log.Ctx(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if event.Type != pubsub.EventCacheInvalidated {
				continue
			}

			var payload pubsub.CacheInvalidatedPayload
			if err := event.Decode(&payload); err != nil {
				l.Warn().Err(err).Msg("invalid cache invalidation event")
				continue
			}
			if payload.Origin == r.origin || payload.Prefix == "" {
				continue
			}

			n, err := r.store.Invalidate(ctx, payload.Prefix)
			if err != nil {
				l.Warn().Err(err).Str(log.FieldCacheKey, payload.Prefix).Msg("failed to apply remote cache invalidation")
				continue
			}
			l.Debug().Str(log.FieldCacheKey, payload.Prefix).Int("removed", n).Str("origin", payload.Origin).Msg("applied remote cache invalidation")
		}
	}
}

// categoryOfPrefix extracts the category from "<prefix>:search:<category>:...".
func categoryOfPrefix(prefix string) string {
	parts := strings.SplitN(prefix, ":search:", 2)
	if len(parts) == 2 {
		if c, _, _ := strings.Cut(parts[1], ":"); c != "" {
			return c
		}
	}
	return "all"
}
