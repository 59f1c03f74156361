package pubsub

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
)

// route is where a channel lands on Kafka. A channel "{stream}:{kind}:{key}"
// maps to topic "{stream}-{kind}" and message key "{key}":
//
//	analytics:search:movie -> analytics-search / movie
//	cache:invalidate:post  -> cache-invalidate / post
type route struct {
	topic string
	key   string
}

func parseChannel(channel string) (route, error) {
	parts := strings.SplitN(channel, ":", 3)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return route{}, fmt.Errorf("channel %q is not stream:kind:key", channel)
	}
	return route{topic: parts[0] + "-" + strings.ReplaceAll(parts[1], "_", "-"), key: parts[2]}, nil
}

// parsePattern accepts "{stream}:{kind}:*" only; it consumes the whole topic.
func parsePattern(pattern string) (route, error) {
	prefix, ok := strings.CutSuffix(pattern, ":*")
	if !ok {
		return route{}, fmt.Errorf("pattern %q must end in :*", pattern)
	}
	r, err := parseChannel(prefix + ":*")
	if err != nil {
		return route{}, err
	}
	r.key = ""
	return r, nil
}

var gatewayTopics = []string{"analytics-search", "cache-invalidate"}

// KafkaPubSub is the Kafka driver. Each subscription owns a consumer.
type KafkaPubSub struct {
	cfg       KafkaConfig
	instance  string
	producer  *kafka.Producer
	reportsCh chan struct{}

	mu        sync.Mutex
	consumers []*kafkaConsumer
}

type kafkaConsumer struct {
	c      *kafka.Consumer
	cancel context.CancelFunc
	done   chan struct{}
}

// NewKafkaPubSub creates the producer and the configured topics.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("pubsub kafka producer: %w", err)
	}

	k := &KafkaPubSub{
		cfg:       cfg,
		instance:  uuid.NewString()[:8],
		producer:  producer,
		reportsCh: make(chan struct{}),
	}
	go k.watchDeliveries()

	if err := k.createTopics(); err != nil {
		l := log.L()
		l.Warn().Err(err).Str("brokers", cfg.Brokers).Msg("kafka topic setup failed")
	}
	return k, nil
}

func (k *KafkaPubSub) createTopics() error {
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return err
	}
	defer admin.Close()

	names := k.cfg.Topics
	if len(names) == 0 {
		names = gatewayTopics
	}
	partitions := max(k.cfg.Partitions, 1)

	specs := make([]kafka.TopicSpecification, len(names))
	for i, name := range names {
		specs[i] = kafka.TopicSpecification{Topic: name, NumPartitions: partitions, ReplicationFactor: 1}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	results, err := admin.CreateTopics(ctx, specs)
	if err != nil {
		return err
	}

	l := log.L()
	for _, res := range results {
		switch res.Error.Code() {
		case kafka.ErrNoError, kafka.ErrTopicAlreadyExists:
		default:
			l.Warn().Str("topic", res.Topic).Str("error", res.Error.String()).Msg("kafka topic not created")
		}
	}
	return nil
}

// watchDeliveries drains producer events until the producer is closed.
func (k *KafkaPubSub) watchDeliveries() {
	defer close(k.reportsCh)
	l := log.L()
	for e := range k.producer.Events() {
		if m, ok := e.(*kafka.Message); ok && m.TopicPartition.Error != nil {
			l.Warn().Err(m.TopicPartition.Error).Str("topic", *m.TopicPartition.Topic).Msg("kafka delivery failed")
		}
	}
}

// Publish enqueues the event; delivery failures are logged asynchronously.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	r, err := parseChannel(channel)
	if err != nil {
		return err
	}
	data, err := event.marshal()
	if err != nil {
		return err
	}
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &r.topic, Partition: kafka.PartitionAny},
		Key:            []byte(r.key),
		Value:          data,
		Timestamp:      event.Timestamp,
	}
	if err := k.producer.Produce(msg, nil); err != nil {
		return fmt.Errorf("pubsub kafka produce %s: %w", r.topic, err)
	}
	return nil
}

// Subscribe consumes the channel's topic and keeps messages with its key.
func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	r, err := parseChannel(channel)
	if err != nil {
		return nil, err
	}
	return k.consume(ctx, r, channel)
}

// SubscribePattern consumes every message on the pattern's topic.
func (k *KafkaPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	r, err := parsePattern(pattern)
	if err != nil {
		return nil, err
	}
	return k.consume(ctx, r, pattern)
}

func (k *KafkaPubSub) consume(ctx context.Context, r route, name string) (<-chan *Event, error) {
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":  k.cfg.Brokers,
		"group.id":           consumerGroup(k.cfg.GroupID, k.instance, name),
		"auto.offset.reset":  "latest",
		"enable.auto.commit": true,
	})
	if err != nil {
		return nil, fmt.Errorf("pubsub kafka consumer: %w", err)
	}
	if err := c.Subscribe(r.topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("pubsub kafka subscribe %s: %w", r.topic, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	kc := &kafkaConsumer{c: c, cancel: cancel, done: make(chan struct{})}
	k.mu.Lock()
	k.consumers = append(k.consumers, kc)
	k.mu.Unlock()

	out := make(chan *Event, subscriptionBuffer)
	go kc.poll(ctx, name, r.key, out)
	return out, nil
}

// poll forwards messages matching key (all when empty) until ctx is done
// or the consumer hits a fatal error.
func (kc *kafkaConsumer) poll(ctx context.Context, name, key string, out chan<- *Event) {
	defer close(kc.done)
	defer close(out)

	l := log.L().With().Str("subscription", name).Logger()
	for ctx.Err() == nil {
		switch e := kc.c.Poll(250).(type) {
		case *kafka.Message:
			if key != "" && string(e.Key) != key {
				continue
			}
			event, err := decodeEvent(e.Value)
			if err != nil {
				l.Warn().Err(err).Str("topic", *e.TopicPartition.Topic).Msg("dropping undecodable event")
				continue
			}
			select {
			case out <- event:
			default:
				l.Warn().Str("type", event.Type).Msg("subscriber full, dropping event")
			}
		case kafka.Error:
			l.Error().Str("error", e.String()).Bool("fatal", e.IsFatal()).Msg("kafka consumer error")
			if e.IsFatal() {
				return
			}
		}
	}
}

// Close stops every consumer, then flushes and closes the producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	consumers := k.consumers
	k.consumers = nil
	k.mu.Unlock()

	for _, kc := range consumers {
		kc.cancel()
		<-kc.done
		kc.c.Close()
	}

	k.producer.Flush(5000)
	k.producer.Close()
	<-k.reportsCh
	return nil
}

var groupUnsafe = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// consumerGroup is unique per instance and subscription so every instance
// sees every message, matching Redis fan-out.
func consumerGroup(base, instance, subscription string) string {
	if base == "" {
		base = "search-gateway"
	}
	return base + "-" + instance + "-" + strings.Trim(groupUnsafe.ReplaceAllString(subscription, "-"), "-")
}
