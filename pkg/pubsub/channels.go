package pubsub

import "fmt"

// Channel naming conventions: {stream}:{kind}:{key}. The Kafka driver maps
// a channel to topic "{stream}-{kind}" with message key "{key}".
const (
	// Search analytics records, keyed by category.
	ChannelSearchAnalytics = "analytics:search:%s"

	// Cache invalidation broadcasts between gateway instances, keyed by category.
	ChannelCacheInvalidate = "cache:invalidate:%s"
	PatternCacheInvalidate = "cache:invalidate:*"
)

// Event types.
const (
	EventSearchPerformed  = "search_performed"
	EventCacheInvalidated = "cache_invalidated"
)

// SearchAnalyticsChannel returns the channel for analytics of one category.
func SearchAnalyticsChannel(category string) string {
	return fmt.Sprintf(ChannelSearchAnalytics, category)
}

// CacheInvalidateChannel returns the invalidation channel of one category.
func CacheInvalidateChannel(category string) string {
	return fmt.Sprintf(ChannelCacheInvalidate, category)
}

// CacheInvalidatedPayload is broadcast after a prefix was invalidated so
// instances holding an in-process cache drop the same keys.
type CacheInvalidatedPayload struct {
	Prefix string `json:"prefix"`
	Origin string `json:"origin"` // instance id of the publisher
}
