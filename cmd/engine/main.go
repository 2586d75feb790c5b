package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/livinglab/uci-engine/internal/adapter/http"
	kafkaadapter "github.com/livinglab/uci-engine/internal/adapter/kafka"
	"github.com/livinglab/uci-engine/internal/config"
	"github.com/livinglab/uci-engine/internal/engine"
	"github.com/livinglab/uci-engine/internal/observability"
	"github.com/livinglab/uci-engine/internal/store/postgres"
	"github.com/livinglab/uci-engine/internal/store/rediscache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := postgres.Connect(cfg.PostgresDSN)
	if err != nil {
		logger.Error("postgres connect failed", "error", err)
		os.Exit(1)
	}
	defer pg.Close()

	if err := pg.RunMigrations(ctx, cfg.MigrationsDir); err != nil {
		logger.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	// The cache layer is feature-flagged via REDIS_ADDR.
	var store engine.Store = pg
	if cfg.RedisEnabled() {
		cached, err := rediscache.New(ctx, pg, cfg.RedisAddr, cfg.CacheTTL, logger)
		if err != nil {
			logger.Error("redis connect failed", "error", err)
			os.Exit(1)
		}
		defer cached.Close()
		store = cached
		logger.Info("redis cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	} else {
		logger.Info("redis cache disabled")
	}

	opts := engine.Options{
		Concurrency:     cfg.BatchConcurrency,
		DetectAnomalies: cfg.DetectAnomalies,
		IndexSinks:      []engine.IndexSink{pg},
		AlertSinks:      []engine.AlertSink{pg},
	}

	// Result publishing is feature-flagged via KAFKA_BROKERS.
	var publisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg.KafkaBrokers, cfg.KafkaIndexTopic, cfg.KafkaAlertTopic, clock, logger)
		opts.IndexSinks = append(opts.IndexSinks, publisher)
		opts.AlertSinks = append(opts.AlertSinks, publisher)
		logger.Info("kafka publishing enabled",
			"brokers", cfg.KafkaBrokers, "index_topic", cfg.KafkaIndexTopic, "alert_topic", cfg.KafkaAlertTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	e := engine.New(store, logger, metrics, opts)
	runner := engine.NewRunner(e, logger, clock, cfg.ScoreInterval, cfg.WindowWeeks)

	srv := httpadapter.NewServer(cfg.HTTPAddr, e, runner, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := runner.Run(ctx); err != nil {
			logger.Error("batch runner error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
