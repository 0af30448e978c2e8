package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/panelsync/panelsync/internal/app"
	"github.com/panelsync/panelsync/internal/catalog"
	jobmetrics "github.com/panelsync/panelsync/internal/jobs"
	"github.com/panelsync/panelsync/internal/platform/cache"
	"github.com/panelsync/panelsync/internal/provider"
	"github.com/panelsync/panelsync/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil || redisClient == nil {
		logger.Error("worker requires redis", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	catalogCache := catalog.NewCache(redisClient, cfg.CatalogCacheTTL)
	providerClient := provider.NewClient(provider.Options{
		BaseURL: cfg.ProviderURL,
		Timeout: cfg.ProviderTimeout,
		Logger:  logger,
	})
	metrics := jobmetrics.NewMetrics(nil)

	warmupJob := jobs.NewCatalogWarmupJob(catalogCache, providerClient, cfg.Credentials(), logger, metrics)
	bumpJob := &jobs.CatalogBumpJob{Cache: catalogCache, Logger: logger, Metrics: metrics}

	warmupTask, err := jobs.NewCatalogWarmupTask("scheduled")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCatalogWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskCatalogBump, Handler: bumpJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CatalogWarmupCron, Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
