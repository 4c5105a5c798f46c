package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/aescanero/dago-node-template/internal/config"
	"github.com/aescanero/dago-node-template/internal/edit"
	"github.com/aescanero/dago-node-template/internal/store"
	"github.com/aescanero/dago-node-template/internal/worker"
)

var (
	// Version is set at build time
	Version = "dev"
	// BuildTime is set at build time
	BuildTime = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("template worker failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run wires the worker and blocks until ctx is cancelled
func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting template worker",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("config", cfg.String()),
	)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("failed to close redis connection", zap.Error(err))
		}
	}()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
	}

	templates := store.NewRedisStore(redisClient, logger,
		store.WithPrefix(cfg.StorePrefix),
		store.WithTTL(cfg.StoreTTL),
		store.WithMaxDepth(cfg.MaxNestingDepth),
	)
	editor := edit.NewEditor(logger,
		edit.WithCEL(cfg.CELEnabled),
		edit.WithDefaultMode(edit.Mode(cfg.DefaultPlanMode)),
	)

	w := worker.NewWorker(cfg, redisClient, editor, templates, logger)
	if err := w.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	healthServer := worker.NewHealthServer(cfg.HealthPort, redisClient, w.Stats, logger)
	healthServer.AddProbe("worker", w.Probe)
	if err := healthServer.Start(); err != nil {
		_ = w.Stop(context.Background())
		return fmt.Errorf("failed to start health server: %w", err)
	}

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := healthServer.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop health server", zap.Error(err))
	}
	if err := w.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop worker", zap.Error(err))
	}

	stats := w.Stats()
	logger.Info("template worker stopped",
		zap.Int64("processed", stats.Processed),
		zap.Int64("failed", stats.Failed),
	)
	return nil
}

// newLogger builds a JSON production logger at the given level
func newLogger(level string) (*zap.Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.OutputPaths = []string{"stdout"}
	return cfg.Build()
}
