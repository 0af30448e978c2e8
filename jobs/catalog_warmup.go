package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/panelsync/panelsync/internal/catalog"
	jobmetrics "github.com/panelsync/panelsync/internal/jobs"
	"github.com/panelsync/panelsync/internal/session"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ServiceFetcher loads the provider service list.
type ServiceFetcher interface {
	Services(ctx context.Context, key string) ([]catalog.Service, error)
}

// CatalogWarmupJob pre-populates the provider service cache for the
// configured provider account.
type CatalogWarmupJob struct {
	Cache    *catalog.Cache
	Provider ServiceFetcher
	Creds    session.Credentials
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewCatalogWarmupJob wires dependencies for the warmup handler.
func NewCatalogWarmupJob(cache *catalog.Cache, fetcher ServiceFetcher, creds session.Credentials, logger *slog.Logger, metrics *jobmetrics.Metrics) *CatalogWarmupJob {
	return &CatalogWarmupJob{
		Cache:    cache,
		Provider: fetcher,
		Creds:    creds,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes catalog warmup tasks. The cache is only invalidated once
// a fresh list has been fetched, so a provider outage keeps the old entries.
func (j *CatalogWarmupJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil {
		return errors.New("catalog warmup: handler not configured")
	}
	var payload CatalogWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskCatalogWarmup)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason))
	if !j.Creds.HasProvider() || j.Provider == nil {
		logger.Info("no provider key configured, skipping warmup")
		return nil
	}

	start := j.now()
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	services, err := j.Provider.Services(fetchCtx, strings.TrimSpace(j.Creds.ProviderKey))
	if err != nil {
		logger.Error("fetch provider services", slog.Any("error", err))
		return err
	}
	if err := j.Cache.Bump(ctx); err != nil {
		logger.Error("bump catalog cache", slog.Any("error", err))
		return err
	}
	scope := j.Creds.ProviderScope()
	if _, err := j.Cache.Services(ctx, scope, func(context.Context) ([]catalog.Service, error) {
		return services, nil
	}); err != nil {
		return err
	}
	j.metrics().SetWarmedServices(scope, len(services))
	logger.Info("completed catalog warmup", slog.Int("services", len(services)), slog.Duration("duration", j.now().Sub(start)))
	return nil
}

func (j *CatalogWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskCatalogWarmup))
	}
	return slog.Default().With(slog.String("job", TaskCatalogWarmup))
}

func (j *CatalogWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CatalogWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

// CatalogBumpJob invalidates the provider service cache.
type CatalogBumpJob struct {
	Cache   *catalog.Cache
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes catalog bump tasks.
func (j *CatalogBumpJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil {
		return errors.New("catalog bump: handler not configured")
	}
	metrics := j.Metrics
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	tracker := metrics.Track(TaskCatalogBump)
	err := j.Cache.Bump(ctx)
	if err != nil && j.Logger != nil {
		j.Logger.Error("bump catalog cache", slog.Any("error", err))
	}
	return tracker.End(err)
}
