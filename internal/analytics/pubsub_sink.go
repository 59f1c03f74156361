package analytics

import (
	"context"
	"fmt"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/pubsub"
)

// PubSubSink publishes each record as a search_performed event on the
// category's analytics channel for downstream consumers.
type PubSubSink struct {
	publisher pubsub.Publisher
}

// NewPubSubSink wraps a publisher.
func NewPubSubSink(publisher pubsub.Publisher) *PubSubSink {
	return &PubSubSink{publisher: publisher}
}

func (s *PubSubSink) Write(ctx context.Context, rec *domain.SearchAnalytics) error {
	category := string(rec.Category)

	event, err := pubsub.NewEvent(pubsub.EventSearchPerformed, category, rec)
	if err != nil {
		return fmt.Errorf("failed to build analytics event: %w", err)
	}
	event.Timestamp = rec.Timestamp

	if err := s.publisher.Publish(ctx, pubsub.SearchAnalyticsChannel(category), event); err != nil {
		return fmt.Errorf("publish search analytics: %w", err)
	}
	return nil
}
