package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/ratelimit"
	pkgconfig "github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/config"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/database"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/pubsub"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Search    SearchConfig
	Index     IndexConfig
	Providers ProvidersConfig
	Analytics AnalyticsConfig
	Database  database.Config
	PubSub    pubsub.Config `mapstructure:"pubsub"`
	Auth      AuthConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Address     string        `mapstructure:"address"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

type CacheConfig struct {
	Driver          string        `mapstructure:"driver"` // redis, memory
	Prefix          string        `mapstructure:"prefix"`
	TTL             time.Duration `mapstructure:"ttl"`
	OpTimeout       time.Duration `mapstructure:"op_timeout"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
	// Relay broadcasts invalidations to the other instances over pubsub.
	Relay bool `mapstructure:"relay"`
}

// ActionConfig overrides the quota of one rate-limited action.
type ActionConfig struct {
	Limit  int64         `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type RateLimitConfig struct {
	Driver    string                  `mapstructure:"driver"` // redis, memory
	Prefix    string                  `mapstructure:"prefix"`
	Limit     int64                   `mapstructure:"limit"`
	Window    time.Duration           `mapstructure:"window"`
	OpTimeout time.Duration           `mapstructure:"op_timeout"`
	Actions   map[string]ActionConfig `mapstructure:"actions"`
}

// Policies applies the configured quota to every built-in action, then the
// per-action overrides. An override may name an action that is not built in.
func (c RateLimitConfig) Policies() []ratelimit.Policy {
	policies := ratelimit.DefaultPolicies()
	for i := range policies {
		policies[i].Limit = c.Limit
		policies[i].Window = c.Window
	}
	for name, a := range c.Actions {
		p := ratelimit.Policy{Name: name, Limit: c.Limit, Window: c.Window}
		if a.Limit > 0 {
			p.Limit = a.Limit
		}
		if a.Window > 0 {
			p.Window = a.Window
		}
		policies = append(policies, p)
	}
	return policies
}

type SearchConfig struct {
	ItemsPerPage    int           `mapstructure:"items_per_page"`
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	MaxFetch        int           `mapstructure:"max_fetch"`
	Singleflight    bool          `mapstructure:"singleflight"`
}

type IndexConfig struct {
	Driver    string   `mapstructure:"driver"` // elasticsearch, memory
	Addresses []string `mapstructure:"addresses"`
	IndexName string   `mapstructure:"index_name"`
}

type ProviderConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Name         string        `mapstructure:"name"`
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	TokenURL     string        `mapstructure:"token_url"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxResults   int           `mapstructure:"max_results"`
}

// ProvidersConfig holds one entry per external adapter: catalog serves
// movies and series, retail serves books, music serves tracks and albums.
type ProvidersConfig struct {
	Catalog ProviderConfig `mapstructure:"catalog"`
	Retail  ProviderConfig `mapstructure:"retail"`
	Music   ProviderConfig `mapstructure:"music"`
}

type AnalyticsConfig struct {
	Driver  string        `mapstructure:"driver"` // database, pubsub, log, none
	Timeout time.Duration `mapstructure:"timeout"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level string
}

// Load reads ./config/config.yaml (optional) and the environment.
func Load() (*Config, error) {
	return LoadFrom("./config", "config")
}

// LoadFrom reads configName from configPath (optional) and the environment.
func LoadFrom(configPath, configName string) (*Config, error) {
	v, err := pkgconfig.Load(configPath, configName)
	if err != nil {
		return nil, err
	}

	setDefaults(v)
	bindEnv(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Parse durations
	cfg.Cache.TTL = parseDuration(v, "cache.ttl", 5*time.Minute)
	cfg.RateLimit.Window = parseDuration(v, "rate_limit.window", time.Minute)
	cfg.Search.ProviderTimeout = parseDuration(v, "search.provider_timeout", 3*time.Second)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8095)
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", "2s")

	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.prefix", "faveit")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.op_timeout", "100ms")
	v.SetDefault("cache.janitor_interval", "1m")
	v.SetDefault("cache.relay", false)

	v.SetDefault("rate_limit.driver", "redis")
	v.SetDefault("rate_limit.prefix", "faveit:ratelimit")
	v.SetDefault("rate_limit.limit", 60)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.op_timeout", "100ms")

	v.SetDefault("search.items_per_page", 20)
	v.SetDefault("search.provider_timeout", "3s")
	v.SetDefault("search.max_fetch", 100)
	v.SetDefault("search.singleflight", true)

	v.SetDefault("index.driver", "elasticsearch")
	v.SetDefault("index.addresses", []string{"http://localhost:9200"})
	v.SetDefault("index.index_name", "faveit-search")

	v.SetDefault("providers.catalog.name", "catalog")
	v.SetDefault("providers.catalog.timeout", "3s")
	v.SetDefault("providers.catalog.max_results", 50)
	v.SetDefault("providers.retail.name", "retail")
	v.SetDefault("providers.retail.timeout", "3s")
	v.SetDefault("providers.retail.max_results", 40)
	v.SetDefault("providers.music.name", "music")
	v.SetDefault("providers.music.timeout", "3s")
	v.SetDefault("providers.music.max_results", 50)

	v.SetDefault("analytics.driver", "database")
	v.SetDefault("analytics.timeout", "2s")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.file_path", "faveit-search.db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", 30)
	v.SetDefault("database.log_level", "warn")

	v.SetDefault("pubsub.driver", "redis")
	v.SetDefault("pubsub.redis.address", "localhost:6379")
	v.SetDefault("pubsub.redis.pool_size", 10)
	v.SetDefault("pubsub.redis.read_timeout", "3s")
	v.SetDefault("pubsub.redis.write_timeout", "3s")
	v.SetDefault("pubsub.kafka.brokers", "localhost:9092")
	v.SetDefault("pubsub.kafka.group_id", "search-gateway")
	v.SetDefault("pubsub.kafka.partitions", 3)

	v.SetDefault("auth.issuer", "faveit")

	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) {
	// Override from environment
	v.BindEnv("server.port", "PORT")
	v.BindEnv("redis.address", "REDIS_ADDRESS")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("cache.driver", "CACHE_DRIVER")
	v.BindEnv("cache.ttl", "CACHE_TTL")
	v.BindEnv("rate_limit.driver", "RATE_LIMIT_DRIVER")
	v.BindEnv("rate_limit.limit", "RATE_LIMIT_LIMIT")
	v.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	v.BindEnv("index.driver", "INDEX_DRIVER")
	v.BindEnv("index.addresses", "ES_ADDRESSES")
	v.BindEnv("index.index_name", "ES_INDEX")
	v.BindEnv("providers.catalog.enabled", "CATALOG_ENABLED")
	v.BindEnv("providers.catalog.base_url", "CATALOG_BASE_URL")
	v.BindEnv("providers.catalog.api_key", "CATALOG_API_KEY")
	v.BindEnv("providers.retail.enabled", "RETAIL_ENABLED")
	v.BindEnv("providers.retail.base_url", "RETAIL_BASE_URL")
	v.BindEnv("providers.retail.api_key", "RETAIL_API_KEY")
	v.BindEnv("providers.music.enabled", "MUSIC_ENABLED")
	v.BindEnv("providers.music.base_url", "MUSIC_BASE_URL")
	v.BindEnv("providers.music.client_id", "MUSIC_CLIENT_ID")
	v.BindEnv("providers.music.client_secret", "MUSIC_CLIENT_SECRET")
	v.BindEnv("providers.music.token_url", "MUSIC_TOKEN_URL")
	v.BindEnv("analytics.driver", "ANALYTICS_DRIVER")
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("pubsub.driver", "PUBSUB_DRIVER")
	v.BindEnv("pubsub.redis.address", "PUBSUB_REDIS_ADDRESS")
	v.BindEnv("pubsub.kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("log.level", "LOG_LEVEL")
}

func (c *Config) validate() error {
	switch c.Cache.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported cache driver: %s", c.Cache.Driver)
	}
	switch c.RateLimit.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported rate limit driver: %s", c.RateLimit.Driver)
	}
	switch c.Index.Driver {
	case "elasticsearch", "memory":
	default:
		return fmt.Errorf("unsupported index driver: %s", c.Index.Driver)
	}
	switch c.Analytics.Driver {
	case "database", "pubsub", "log", "none":
	default:
		return fmt.Errorf("unsupported analytics driver: %s", c.Analytics.Driver)
	}
	if c.RateLimit.Limit <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit must have a positive limit and window")
	}
	for name, a := range c.RateLimit.Actions {
		if a.Limit < 0 || a.Window < 0 {
			return fmt.Errorf("rate limit action %s: negative limit or window", name)
		}
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	return nil
}

func parseDuration(v *viper.Viper, key string, defaultVal time.Duration) time.Duration {
	str := v.GetString(key)
	d, err := time.ParseDuration(str)
	if err != nil {
		return defaultVal
	}
	return d
}
