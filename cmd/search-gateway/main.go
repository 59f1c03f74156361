package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/analytics"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/cache"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/config"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/domain"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/handler"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/index"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/provider"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/ratelimit"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/internal/service"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/database"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/jwt"
	pkglog "github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/log"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/middleware"
	"github.com/GIGGLE-TOKEN/faveit-sifirdan/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Level == "debug",
		ServiceName: "search-gateway",
	})
	logger := pkglog.L()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis backs the cache and the rate limiter. Both fail open, so an
	// unreachable Redis at startup is not fatal.
	var rdb *redis.Client
	if cfg.Cache.Driver == "redis" || cfg.RateLimit.Driver == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:        cfg.Redis.Address,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			PoolSize:    cfg.Redis.PoolSize,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.Redis.Address).Msg("redis unreachable, cache and rate limiter will fail open")
		} else {
			logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
		}
	}

	// Cache
	var cacheBackend cache.Backend
	if cfg.Cache.Driver == "memory" {
		mb := cache.NewMemoryBackend(nil)
		mb.StartJanitor(ctx, cfg.Cache.JanitorInterval)
		cacheBackend = mb
	} else {
		cacheBackend = cache.NewRedisBackend(rdb)
	}
	store := cache.NewStore(cacheBackend, cache.WithOpTimeout(cfg.Cache.OpTimeout))

	// Rate limiter
	var limiterBackend ratelimit.Backend
	if cfg.RateLimit.Driver == "memory" {
		mb := ratelimit.NewMemoryBackend(nil)
		mb.StartJanitor(ctx, cfg.RateLimit.Window)
		limiterBackend = mb
	} else {
		limiterBackend = ratelimit.NewRedisBackend(rdb)
	}
	limiter, err := ratelimit.NewRegistry(limiterBackend, cfg.RateLimit.Policies(),
		ratelimit.WithPrefix(cfg.RateLimit.Prefix),
		ratelimit.WithOpTimeout(cfg.RateLimit.OpTimeout),
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid rate limit policies")
	}

	// Local index
	idx := newIndex(ctx, cfg.Index, logger)

	// Providers
	providers := newProviders(cfg.Providers, idx, logger)

	// PubSub carries analytics events and cache invalidations between instances.
	var ps pubsub.PubSub
	if cfg.Analytics.Driver == "pubsub" || cfg.Cache.Relay {
		ps, err = pubsub.Open(cfg.PubSub)
		if err != nil {
			logger.Fatal().Err(err).Str("driver", cfg.PubSub.Driver).Msg("failed to create pubsub")
		}
		logger.Info().Str("driver", cfg.PubSub.Driver).Msg("pubsub connected")
	}

	// Analytics
	var (
		recorder *analytics.Recorder
		reader   analytics.Reader
	)
	switch cfg.Analytics.Driver {
	case "database":
		db, err := database.New(&cfg.Database)
		if err != nil {
			logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to connect to database")
		}
		sink := analytics.NewDatabaseSink(db)
		if err := sink.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate analytics table")
		}
		recorder = analytics.NewRecorder(sink, cfg.Analytics.Timeout)
		reader = sink
		defer func() {
			if err := database.Close(db); err != nil {
				logger.Warn().Err(err).Msg("failed to close database")
			}
		}()
	case "pubsub":
		recorder = analytics.NewRecorder(analytics.NewPubSubSink(ps), cfg.Analytics.Timeout)
	case "log":
		recorder = analytics.NewRecorder(analytics.LogSink{}, cfg.Analytics.Timeout)
	}

	var relay *service.InvalidationRelay
	if cfg.Cache.Relay {
		relay = service.NewInvalidationRelay(ps, store)
		go func() {
			if err := relay.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("cache invalidation relay stopped")
			}
		}()
		logger.Info().Str("origin", relay.Origin()).Msg("cache invalidation relay started")
	}

	// Initialize service
	searchService := service.NewSearchService(service.Deps{
		Providers: providers,
		Cache:     store,
		Limiter:   limiter,
		Recorder:  recorder,
		Index:     idx,
		Analytics: reader,
		Relay:     relay,
	}, service.Config{
		CachePrefix:     cfg.Cache.Prefix,
		CacheTTL:        cfg.Cache.TTL,
		ItemsPerPage:    cfg.Search.ItemsPerPage,
		ProviderTimeout: cfg.Search.ProviderTimeout,
		MaxFetch:        cfg.Search.MaxFetch,
		Singleflight:    cfg.Search.Singleflight,
	})

	// Identity: without a secret every caller is keyed by client ip.
	var jwtManager *jwt.Manager
	if cfg.Auth.JWTSecret != "" {
		jwtManager, err = jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create jwt manager")
		}
	} else {
		logger.Warn().Msg("auth.jwt_secret not set, callers are identified by ip and admin routes are closed")
	}

	// Setup Gin router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))
	r.Use(middleware.Identity(jwtManager))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handler.NewHandler(searchService).RegisterRoutes(r)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("search-gateway starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down search-gateway")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if recorder != nil {
		if err := recorder.Wait(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("analytics writes still in flight at shutdown")
		}
	}
	cancel()

	if err := store.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close cache")
	}
	if err := limiterBackend.Close(); err != nil {
		logger.Warn().Err(err).Msg("failed to close rate limiter")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if ps != nil {
		if err := ps.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close pubsub")
		}
	}

	logger.Info().Msg("search-gateway stopped")
}

func newIndex(ctx context.Context, cfg config.IndexConfig, logger zerolog.Logger) index.Index {
	if cfg.Driver == "memory" {
		logger.Info().Msg("using in-memory index")
		return index.NewMemoryIndex()
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create elasticsearch client")
	}

	esIndex := index.NewESIndex(esClient, cfg.IndexName)
	// Local categories answer 503 until the cluster is reachable; the
	// gateway still serves the external ones.
	if err := esIndex.EnsureIndex(ctx); err != nil {
		logger.Warn().Err(err).Strs("addresses", cfg.Addresses).Msg("elasticsearch not ready")
	} else {
		logger.Info().Strs("addresses", cfg.Addresses).Str("index", cfg.IndexName).Msg("elasticsearch connected")
	}
	return esIndex
}

func newProviders(cfg config.ProvidersConfig, idx index.Index, logger zerolog.Logger) *provider.Registry {
	providers := provider.NewRegistry()
	providers.Register(provider.NewLocal(idx), domain.CategoryUser, domain.CategoryPost)

	if cfg.Catalog.Enabled {
		providers.Register(provider.NewCatalog(providerConfig(cfg.Catalog), nil), domain.CategoryMovie, domain.CategorySeries)
	}
	if cfg.Retail.Enabled {
		providers.Register(provider.NewRetail(providerConfig(cfg.Retail), nil), domain.CategoryBook)
	}
	if cfg.Music.Enabled {
		providers.Register(provider.NewMusic(providerConfig(cfg.Music)), domain.CategoryMusic)
	}

	for _, c := range domain.Categories {
		ps := providers.For(c)
		if len(ps) == 0 {
			logger.Warn().Str(pkglog.FieldCategory, string(c)).Msg("no provider configured, searches will answer 503")
			continue
		}
		names := make([]string, len(ps))
		for i, p := range ps {
			names[i] = p.Name()
		}
		logger.Info().Str(pkglog.FieldCategory, string(c)).Strs("providers", names).Msg("category routed")
	}
	return providers
}

func providerConfig(c config.ProviderConfig) provider.Config {
	return provider.Config{
		Name:         c.Name,
		BaseURL:      c.BaseURL,
		APIKey:       c.APIKey,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.TokenURL,
		Timeout:      c.Timeout,
		MaxResults:   c.MaxResults,
	}
}
