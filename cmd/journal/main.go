package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/trogers1052/trading-journal/internal/analytics"
	"github.com/trogers1052/trading-journal/internal/api"
	"github.com/trogers1052/trading-journal/internal/cache"
	"github.com/trogers1052/trading-journal/internal/config"
	"github.com/trogers1052/trading-journal/internal/database"
	"github.com/trogers1052/trading-journal/internal/ingest"
	"github.com/trogers1052/trading-journal/internal/kafka"
	"github.com/trogers1052/trading-journal/internal/logging"
	"github.com/trogers1052/trading-journal/internal/metrics"
	"github.com/trogers1052/trading-journal/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("journal service stopped", zap.Error(err))
	}
	logger.Info("journal service exited")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := cfg.Stats.Options()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("connected to database", zap.String("host", cfg.Database.Host))

	if err := db.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	engine := analytics.NewEngine(analytics.SystemClock, opts)
	normalizer := ingest.NewNormalizer(opts.Location)

	deps := service.Deps{
		Trades:   db,
		Shares:   db,
		Engine:   engine,
		Metrics:  m,
		Logger:   logger,
		ShareTTL: cfg.Share.TTL,
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// statistics are still served, just recomputed on every request
			logger.Warn("redis unavailable, stats cache disabled", zap.Error(err))
		} else {
			defer client.Close()
			deps.Cache = cache.New(client, cfg.Redis.StatsTTL)
		}
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		defer producer.Close()
		deps.Events = producer
	}

	svc := service.New(deps)

	handler := api.NewHandler(svc, normalizer, db, opts.Location, logger)
	limiter := api.NewRateLimiter(cfg.Share.RateLimitRPS, cfg.Share.RateLimitBurst, logger)
	router := api.SetupRoutes(handler, m, prometheus.DefaultGatherer, limiter)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.Kafka.Enabled {
		consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.ImportTopic, cfg.Kafka.GroupID, svc, normalizer, m, logger)
		g.Go(func() error {
			return consumer.Start(gctx)
		})
	}

	g.Go(func() error {
		purgeExpiredShares(gctx, svc, cfg.Share.PurgeInterval, logger)
		return nil
	})

	return g.Wait()
}

func purgeExpiredShares(ctx context.Context, svc *service.JournalService, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.PurgeExpiredShares(ctx); err != nil {
				logger.Warn("failed to purge expired share tokens", zap.Error(err))
			}
		}
	}
}
