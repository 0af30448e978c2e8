package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/panelsync/panelsync/internal/app"
	"github.com/panelsync/panelsync/internal/catalog"
	"github.com/panelsync/panelsync/internal/commerce"
	"github.com/panelsync/panelsync/internal/dashboard"
	dashboardhttp "github.com/panelsync/panelsync/internal/dashboard/http"
	"github.com/panelsync/panelsync/internal/matcher"
	"github.com/panelsync/panelsync/internal/observability"
	"github.com/panelsync/panelsync/internal/platform/cache"
	"github.com/panelsync/panelsync/internal/platform/db"
	"github.com/panelsync/panelsync/internal/provider"
	"github.com/panelsync/panelsync/internal/settings"
	"github.com/panelsync/panelsync/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	if dbpool != nil {
		defer dbpool.Close()
	}
	settingsStore, err := newSettingsStore(ctx, dbpool, logger)
	if err != nil {
		logger.Error("prepare settings store", slog.Any("error", err))
		os.Exit(1)
	}
	settingsService := settings.NewService(settingsStore, logger)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, provider services will not be cached", slog.Any("error", err))
	}
	var (
		jobHandler *jobs.Handler
		jobClient  *jobs.Client
	)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
		inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
		jobClient = jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
	}
	catalogCache := catalog.NewCache(redisClient, cfg.CatalogCacheTTL)
	if err := catalogCache.ListenForInvalidation(ctx, catalog.BumpChannel); err != nil {
		logger.Warn("catalog invalidation listener", slog.Any("error", err))
	}

	table := matcher.DefaultTable()
	if cfg.PlatformTablePath != "" {
		table, err = matcher.LoadTableFile(cfg.PlatformTablePath)
		if err != nil {
			logger.Error("load platform table", slog.String("path", cfg.PlatformTablePath), slog.Any("error", err))
			os.Exit(1)
		}
	}

	metrics := observability.NewMetrics()

	commerceClient := commerce.NewClient(commerce.Options{
		APIVersion: cfg.ShopAPIVersion,
		Timeout:    cfg.AppRequestTimeout,
		Logger:     logger,
	})
	providerClient := provider.NewClient(provider.Options{
		BaseURL: cfg.ProviderURL,
		Timeout: cfg.ProviderTimeout,
		Logger:  logger,
	})

	dashboardService := dashboard.NewService(dashboard.Dependencies{
		Orders:        commerceClient,
		Products:      commerceClient,
		Provider:      providerClient,
		Cache:         catalogCache,
		Matcher:       matcher.New(table),
		Settings:      settingsService,
		Recorder:      metrics,
		OrdersLimit:   cfg.OrdersFetchLimit,
		ProductsLimit: cfg.ProductsFetchLimit,
	}, logger)
	dashboardHandler := dashboardhttp.NewHandler(logger, dashboardService, settingsService, cfg.Credentials())
	if jobClient != nil {
		dashboardHandler.WithCatalogRefresher(jobClient)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}

// newSettingsStore keeps settings in Postgres when a pool is configured and in
// memory otherwise.
func newSettingsStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (settings.Store, error) {
	if pool == nil {
		logger.Info("PG_DSN not set, keeping settings in memory")
		return settings.NewMemoryStore(), nil
	}
	store := settings.NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}
