package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelsync/panelsync/internal/catalog"
	jobmetrics "github.com/panelsync/panelsync/internal/jobs"
	"github.com/panelsync/panelsync/internal/session"
)

type stubFetcher struct {
	services []catalog.Service
	err      error
	calls    int
}

func (s *stubFetcher) Services(context.Context, string) ([]catalog.Service, error) {
	s.calls++
	return s.services, s.err
}

func newCache(t *testing.T) *catalog.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return catalog.NewCache(client, time.Hour)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			match := true
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					match = false
				}
			}
			if !match {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			if m.GetGauge() != nil {
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

var warmCreds = session.Credentials{ShopDomain: "demo.myshopify.com", ProviderKey: "9bdec003037ce39b4f9336afdd3a931a"}

func TestCatalogWarmupPopulatesCache(t *testing.T) {
	cache := newCache(t)
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	fetcher := &stubFetcher{services: []catalog.Service{{ID: "1", Name: "Instagram Followers", Rate: decimal.RequireFromString("0.9")}}}

	job := NewCatalogWarmupJob(cache, fetcher, warmCreds, nil, metrics)
	task, err := NewCatalogWarmupTask("")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	got, err := cache.Services(context.Background(), warmCreds.ProviderScope(), func(context.Context) ([]catalog.Service, error) {
		return nil, errors.New("loader must not run after warmup")
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Instagram Followers", got[0].Name)

	assert.Equal(t, 1.0, counterValue(t, reg, "panelsync_jobs_total", map[string]string{"job": TaskCatalogWarmup, "status": "success"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "panelsync_catalog_warmed_services", map[string]string{"scope": warmCreds.ProviderScope()}))
}

func TestCatalogWarmupKeepsCacheOnFailure(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()
	scope := warmCreds.ProviderScope()
	_, err := cache.Services(ctx, scope, func(context.Context) ([]catalog.Service, error) {
		return []catalog.Service{{ID: "old"}}, nil
	})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	job := NewCatalogWarmupJob(cache, &stubFetcher{err: errors.New("panel down")}, warmCreds, nil, jobmetrics.NewMetrics(reg))
	task, err := NewCatalogWarmupTask("manual")
	require.NoError(t, err)
	assert.Error(t, job.Handle(ctx, task))

	got, err := cache.Services(ctx, scope, func(context.Context) ([]catalog.Service, error) {
		return nil, errors.New("cache must still hold the old list")
	})
	require.NoError(t, err)
	assert.Equal(t, "old", got[0].ID)
	assert.Equal(t, 1.0, counterValue(t, reg, "panelsync_jobs_failures_total", map[string]string{"job": TaskCatalogWarmup}))
}

func TestCatalogWarmupSkipsWithoutProviderKey(t *testing.T) {
	fetcher := &stubFetcher{}
	job := NewCatalogWarmupJob(newCache(t), fetcher, session.Credentials{ShopDomain: "demo.myshopify.com"}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewCatalogWarmupTask("scheduled")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Zero(t, fetcher.calls)
}

func TestCatalogWarmupRejectsBadPayload(t *testing.T) {
	job := NewCatalogWarmupJob(newCache(t), &stubFetcher{}, warmCreds, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskCatalogWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestCatalogBumpJob(t *testing.T) {
	cache := newCache(t)
	ctx := context.Background()
	before, err := cache.Version(ctx)
	require.NoError(t, err)

	job := &CatalogBumpJob{Cache: cache, Metrics: jobmetrics.NewMetrics(prometheus.NewRegistry())}
	require.NoError(t, job.Handle(ctx, NewCatalogBumpTask()))

	after, err := cache.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
}

func TestWarmupTaskPayload(t *testing.T) {
	task, err := NewCatalogWarmupTask("connect")
	require.NoError(t, err)
	assert.Equal(t, TaskCatalogWarmup, task.Type())
	var payload CatalogWarmupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "connect", payload.Reason)
	assert.False(t, payload.RequestedAt.IsZero())
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestJobsHealth(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, nil).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":3,"active":0,"failed":0}`, rr.Body.String())

	r = chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, nil).MountRoutes(r)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestNewServeMuxSkipsIncompleteHandlers(t *testing.T) {
	called := false
	mux := NewServeMux([]TaskHandler{
		{Type: TaskCatalogBump, Handler: func(context.Context, *asynq.Task) error {
			called = true
			return nil
		}},
		{Type: "", Handler: nil},
	})
	require.NoError(t, mux.ProcessTask(context.Background(), NewCatalogBumpTask()))
	assert.True(t, called)
}
