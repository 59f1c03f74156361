package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Event is the envelope carried on every channel. Payload stays raw so a
// consumer only decodes the event types it understands.
type Event struct {
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEvent encodes payload and stamps the event in UTC.
func NewEvent(eventType, key string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{Type: eventType, Key: key, Payload: data, Timestamp: time.Now().UTC()}, nil
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

func decodeEvent(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// Publisher sends events.
type Publisher interface {
	Publish(ctx context.Context, channel string, event *Event) error
}

// Subscriber streams events until ctx is done. The returned channel is
// closed when the subscription ends.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan *Event, error)
	SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error)
}

// PubSub is a bus driver.
type PubSub interface {
	Publisher
	Subscriber
	Close() error
}

// subscriptionBuffer bounds each subscriber; events beyond it are dropped.
const subscriptionBuffer = 64

func (e *Event) marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	return data, nil
}
