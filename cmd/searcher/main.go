package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/internal/searcher/models"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Document-Retrieval-Engine/pkg/postgres"
)

const snapshotInterval = time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "store", cfg.Store.Path)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	queryCache, redisClient, err := cache.NewFromConfig(cfg, m)
	if err != nil {
		slog.Error("failed to create query cache", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		slog.Info("shared cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	registry := models.NewRegistry(cfg.Store.Path, m)
	registry.OnReload(func(*models.Models) {
		if err := queryCache.Invalidate(context.Background()); err != nil {
			slog.Warn("cache invalidation after reload failed", "error", err)
		}
	})
	// A missing store is not fatal: the service reports not-ready until a
	// later reload succeeds.
	if _, err := registry.Reload(ctx, models.TriggerStartup); err != nil {
		slog.Warn("starting without models", "error", err)
	}
	if cfg.Search.WatchStore {
		go func() {
			if err := registry.Watch(ctx, cfg.Search.WatchDebounce); err != nil {
				slog.Error("store watcher stopped", "error", err)
			}
		}()
	}

	agg := analytics.NewAggregator()
	var publisher kafka.Publisher = agg.Publisher()
	if cfg.Kafka.Enabled {
		hostname, _ := os.Hostname()

		// Every replica must see every store.updated event, so each one
		// consumes under its own group.
		storeCfg := kafka.ReplicaGroup(cfg.Kafka, "", hostname)
		storeConsumer := kafka.NewConsumer(storeCfg, cfg.Kafka.Topics.StoreUpdated, models.StoreUpdatedHandler(registry))
		defer storeConsumer.Close()
		go func() {
			if err := storeConsumer.Start(ctx); err != nil {
				slog.Error("store.updated consumer error", "error", err)
			}
		}()

		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer

		// Each replica serves /api/v1/analytics over the whole topic, not a
		// partition share, so it also consumes under its own group.
		analyticsCfg := kafka.ReplicaGroup(cfg.Kafka, "analytics", hostname)
		analyticsConsumer := kafka.NewConsumer(analyticsCfg, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
		defer analyticsConsumer.Close()
		go func() {
			if err := agg.Run(ctx, analyticsConsumer); err != nil {
				slog.Error("analytics aggregator error", "error", err)
			}
		}()
		slog.Info("kafka enabled",
			"store_topic", cfg.Kafka.Topics.StoreUpdated,
			"analytics_topic", cfg.Kafka.Topics.AnalyticsEvents,
		)
	}
	collector := analytics.NewCollector(publisher, analytics.CollectorConfig{})
	collector.Start(ctx)
	defer collector.Close()

	var db *postgres.Client
	if cfg.Postgres.Enabled {
		db, err = postgres.New(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
			snapshots, err := aggregator.NewStore(ctx, db)
			if err != nil {
				slog.Warn("analytics snapshots disabled", "error", err)
			} else {
				snapshots.StartPeriodicSave(ctx, agg, snapshotInterval)
			}
		}
	}

	checker := health.NewChecker()
	checker.Register("models", func(ctx context.Context) health.ComponentHealth {
		current, err := registry.Current()
		if err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d, %d documents, %d terms", current.Generation, current.Documents, current.Terms),
		}
	})
	checker.Register("store_file", health.FileCheck(cfg.Store.Path))
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if db != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := db.DB.PingContext(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	h := handler.New(registry, cfg.Search.DefaultLimit, cfg.Search.MaxResults,
		handler.WithCache(queryCache),
		handler.WithCollector(collector),
		handler.WithMetrics(m),
	)
	analyticsH := analytics.NewHandler(agg)

	mux := http.NewServeMux()
	h.Routes(mux)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Search.RateLimit > 0 {
		chain = middleware.RateLimit(middleware.NewRateLimiter(cfg.Search.RateLimit, cfg.Search.RateBurst))(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
