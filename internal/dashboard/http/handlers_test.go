package dashboardhttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelsync/panelsync/internal/dashboard"
	"github.com/panelsync/panelsync/internal/daterange"
	"github.com/panelsync/panelsync/internal/orders"
	"github.com/panelsync/panelsync/internal/platform/httpx"
	"github.com/panelsync/panelsync/internal/provider"
	"github.com/panelsync/panelsync/internal/reconcile"
	"github.com/panelsync/panelsync/internal/session"
	"github.com/panelsync/panelsync/internal/settings"
	"github.com/panelsync/panelsync/internal/shared"
)

type stubService struct {
	lastCreds    session.Credentials
	lastRange    daterange.ID
	lastOrders   dashboard.OrdersQuery
	lastServices dashboard.ServicesQuery
	export       dashboard.OrderExport
	err          error
	connectErr   error
}

func (s *stubService) Statistics(_ context.Context, creds session.Credentials, rangeID daterange.ID) (dashboard.StatisticsView, error) {
	s.lastCreds = creds
	s.lastRange = rangeID
	return dashboard.StatisticsView{RangeID: rangeID, Stats: orders.Statistics{OrderCount: 2}}, s.err
}

func (s *stubService) Orders(_ context.Context, creds session.Credentials, q dashboard.OrdersQuery) (dashboard.OrdersView, error) {
	s.lastCreds = creds
	s.lastOrders = q
	if s.err != nil {
		return dashboard.OrdersView{}, s.err
	}
	if _, err := orders.ParseStatus(q.Status); err != nil {
		return dashboard.OrdersView{}, err
	}
	if _, err := shared.ValidatePerPage(q.PerPage); err != nil {
		return dashboard.OrdersView{}, err
	}
	return dashboard.OrdersView{Counts: orders.Counts{All: 3}}, nil
}

func (s *stubService) ExportOrders(_ context.Context, creds session.Credentials, q dashboard.OrdersQuery) (dashboard.OrderExport, error) {
	s.lastCreds = creds
	s.lastOrders = q
	return s.export, s.err
}

func (s *stubService) Services(_ context.Context, creds session.Credentials, q dashboard.ServicesQuery) (dashboard.ServicesView, error) {
	s.lastCreds = creds
	s.lastServices = q
	return dashboard.ServicesView{Search: q.Search}, s.err
}

func (s *stubService) Connect(_ context.Context, key string) (reconcile.BalanceSnapshot, error) {
	if s.connectErr != nil {
		return reconcile.BalanceSnapshot{}, s.connectErr
	}
	if err := provider.ValidateKey(key); err != nil {
		return reconcile.BalanceSnapshot{}, err
	}
	return reconcile.BalanceSnapshot{Amount: decimal.RequireFromString("12.3"), Currency: "USD"}, nil
}

var baseCreds = session.Credentials{ShopDomain: "demo.myshopify.com", AccessToken: "shpat", ProviderKey: "9bdec003037ce39b4f9336afdd3a931a"}

func newTestRouter(t *testing.T, svc *stubService) (http.Handler, *Handler) {
	t.Helper()
	h := NewHandler(nil, svc, settings.NewService(settings.NewMemoryStore(), nil), baseCreds)
	h.WithNow(func() time.Time { return time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC) })
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r, h
}

func do(t *testing.T, router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeProblem(t *testing.T, rr *httptest.ResponseRecorder) httpx.ProblemDetail {
	t.Helper()
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	return problem
}

func TestStatisticsDefaultsToToday(t *testing.T) {
	svc := &stubService{}
	router, _ := newTestRouter(t, svc)

	rr := do(t, router, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, daterange.Today, svc.lastRange)
	assert.Equal(t, baseCreds, svc.lastCreds)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "today", body["rangeId"])
}

func TestProviderKeyHeaderOverridesConfig(t *testing.T) {
	svc := &stubService{}
	router, _ := newTestRouter(t, svc)

	req := httptest.NewRequest(http.MethodGet, "/api/statistics?range=30days", nil)
	req.Header.Set(ProviderKeyHeader, "0123456789abcdef0123456789abcdef")
	rr := do(t, router, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, daterange.Last30Days, svc.lastRange)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", svc.lastCreds.ProviderKey)
	assert.Equal(t, baseCreds.ShopDomain, svc.lastCreds.ShopDomain)
}

func TestMalformedProviderKeyHeaderIsRejected(t *testing.T) {
	svc := &stubService{}
	router, _ := newTestRouter(t, svc)

	for _, path := range []string{"/api/statistics", "/api/orders", "/api/orders/export.csv", "/api/services"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(ProviderKeyHeader, "junk-42")
		rr := do(t, router, req)
		require.Equal(t, http.StatusBadRequest, rr.Code, path)
		assert.Equal(t, "Invalid API Key", decodeProblem(t, rr).Title, path)
	}
	assert.Empty(t, svc.lastCreds.ProviderKey, "service never sees the rejected key")
}

func TestOrdersQueryParsing(t *testing.T) {
	svc := &stubService{}
	router, _ := newTestRouter(t, svc)

	rr := do(t, router, httptest.NewRequest(http.MethodGet, "/api/orders?status=pending&q=insta&range=7days&page=2&per_page=50", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pending", svc.lastOrders.Status)
	assert.Equal(t, "insta", svc.lastOrders.Search)
	assert.Equal(t, 2, svc.lastOrders.Page)
	assert.Equal(t, 50, svc.lastOrders.PerPage)
	require.NotNil(t, svc.lastOrders.Range)
	assert.Equal(t, daterange.Last7Days, *svc.lastOrders.Range)

	rr = do(t, router, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Nil(t, svc.lastOrders.Range)
}

func TestOrdersRejectsBadParameters(t *testing.T) {
	router, _ := newTestRouter(t, &stubService{})
	for _, target := range []string{
		"/api/orders?status=shipped",
		"/api/orders?per_page=25",
		"/api/orders?page=abc",
		"/api/orders?page=-1",
	} {
		rr := do(t, router, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Equal(t, "Invalid Parameter", decodeProblem(t, rr).Title, target)
	}
}

func TestOrdersCSVExport(t *testing.T) {
	svc := &stubService{export: dashboard.OrderExport{
		Rows: []dashboard.OrderRow{{
			Name:        "#1001",
			LegacyID:    "1001",
			CreatedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
			Product:     "Instagram Followers",
			Total:       shared.NewMoney(decimal.RequireFromString("25.5")),
			StatusLabel: "Completed",
		}},
		Stats:    orders.Statistics{OrderCount: 1},
		Warnings: []dashboard.Warning{{Source: dashboard.SourceProviderBalance, Message: "timeout"}},
	}}
	router, _ := newTestRouter(t, svc)

	rr := do(t, router, httptest.NewRequest(http.MethodGet, "/api/orders/export.csv?range=today", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "orders-20240510.csv")
	body := rr.Body.String()
	assert.Contains(t, body, "Range,today")
	assert.Contains(t, body, "#1001,1001,2024-05-01T10:00:00Z,Instagram Followers,25.50,,Completed")
	assert.Contains(t, body, "provider_balance,timeout")
}

func TestServicesQuery(t *testing.T) {
	svc := &stubService{}
	router, _ := newTestRouter(t, svc)
	rr := do(t, router, httptest.NewRequest(http.MethodGet, "/api/services?q=youtube&page=3&per_page=100", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, dashboard.ServicesQuery{Search: "youtube", Page: 3, PerPage: 100}, svc.lastServices)
}

func postConnect(key string) *http.Request {
	form := url.Values{"apiKey": {key}}
	req := httptest.NewRequest(http.MethodPost, "/api/provider/connect", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestConnect(t *testing.T) {
	router, _ := newTestRouter(t, &stubService{})

	rr := do(t, router, postConnect("9bdec003037ce39b4f9336afdd3a931a"))
	require.Equal(t, http.StatusOK, rr.Code)
	var body connectResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Connected)
	assert.Equal(t, "12.30", body.Balance.String())

	rr = do(t, router, postConnect("not-a-key"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid API Key", decodeProblem(t, rr).Title)
}

func TestConnectErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{&provider.APIError{Action: provider.ActionBalance, Message: "Invalid API key"}, http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", provider.ErrUnavailable), http.StatusBadGateway},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		router, _ := newTestRouter(t, &stubService{connectErr: tc.err})
		rr := do(t, router, postConnect("9bdec003037ce39b4f9336afdd3a931a"))
		assert.Equal(t, tc.status, rr.Code, tc.err.Error())
	}
}

func TestConnectIsRateLimited(t *testing.T) {
	router, _ := newTestRouter(t, &stubService{})
	for i := 0; i < 5; i++ {
		rr := do(t, router, postConnect("9bdec003037ce39b4f9336afdd3a931a"))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := do(t, router, postConnect("9bdec003037ce39b4f9336afdd3a931a"))
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	router, _ := newTestRouter(t, &stubService{})

	rr := do(t, router, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got settings.Settings
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.False(t, got.QuantityBonus.Enabled)
	assert.Equal(t, "demo.myshopify.com", got.ShopDomain)

	put := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"quantityBonus":{"enabled":true,"percentage":"5"}}`))
	rr = do(t, router, put)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, router, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.True(t, got.QuantityBonus.Enabled)
	assert.Equal(t, 105, got.QuantityBonus.ApplyBonus(100))
}

func TestSettingsValidation(t *testing.T) {
	router, _ := newTestRouter(t, &stubService{})
	rr := do(t, router, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"quantityBonus":{"enabled":true,"percentage":"150"}}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Validation Failed", decodeProblem(t, rr).Title)

	rr = do(t, router, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"bonus":1}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpstreamFailureMapsToBadGateway(t *testing.T) {
	router, _ := newTestRouter(t, &stubService{err: dashboard.ErrProviderNotConnected})
	rr := do(t, router, httptest.NewRequest(http.MethodGet, "/api/services", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

type stubRefresher struct {
	reason string
	err    error
}

func (s *stubRefresher) RefreshCatalog(_ context.Context, reason string) (string, error) {
	s.reason = reason
	return "task-1", s.err
}

func TestRefreshCatalog(t *testing.T) {
	router, _ := newTestRouter(t, &stubService{})
	rr := do(t, router, httptest.NewRequest(http.MethodPost, "/api/services/refresh", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	refresher := &stubRefresher{}
	h := NewHandler(nil, &stubService{}, settings.NewService(settings.NewMemoryStore(), nil), baseCreds)
	h.WithCatalogRefresher(refresher)
	r := chi.NewRouter()
	h.MountRoutes(r)

	rr = do(t, r, httptest.NewRequest(http.MethodPost, "/api/services/refresh", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
	assert.JSONEq(t, `{"taskId":"task-1"}`, rr.Body.String())
	assert.Equal(t, "manual", refresher.reason)

	refresher.err = errors.New("redis down")
	rr = do(t, r, httptest.NewRequest(http.MethodPost, "/api/services/refresh", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
