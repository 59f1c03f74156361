package pubsub

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownDriver is returned by Open for a driver it cannot build.
var ErrUnknownDriver = errors.New("unknown pubsub driver")

// Config selects and configures the bus driver.
type Config struct {
	Driver string      `mapstructure:"driver"` // redis or kafka
	Redis  RedisConfig `mapstructure:"redis"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

// RedisConfig configures the Redis PUBLISH/PSUBSCRIBE driver.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig configures the Kafka driver. Topics are created on startup
// when missing; an empty list creates the gateway's own topics.
type KafkaConfig struct {
	Brokers    string   `mapstructure:"brokers"`
	GroupID    string   `mapstructure:"group_id"`
	Partitions int      `mapstructure:"partitions"`
	Topics     []string `mapstructure:"topics"`
}

// Open builds the driver named by cfg.Driver.
func Open(cfg Config) (PubSub, error) {
	switch cfg.Driver {
	case "redis", "":
		return NewRedisPubSub(cfg.Redis)
	case "kafka":
		return NewKafkaPubSub(cfg.Kafka)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
