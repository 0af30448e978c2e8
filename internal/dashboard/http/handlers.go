package dashboardhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/panelsync/panelsync/internal/dashboard"
	"github.com/panelsync/panelsync/internal/dashboard/export"
	"github.com/panelsync/panelsync/internal/daterange"
	"github.com/panelsync/panelsync/internal/orders"
	"github.com/panelsync/panelsync/internal/platform/httpx"
	"github.com/panelsync/panelsync/internal/provider"
	"github.com/panelsync/panelsync/internal/reconcile"
	"github.com/panelsync/panelsync/internal/session"
	"github.com/panelsync/panelsync/internal/settings"
	"github.com/panelsync/panelsync/internal/shared"
)

// ProviderKeyHeader overrides the configured provider key for one request.
const ProviderKeyHeader = "X-Provider-Key"

const requestTimeout = 20 * time.Second

// DashboardService defines the view contract used by the handler.
type DashboardService interface {
	Statistics(ctx context.Context, creds session.Credentials, rangeID daterange.ID) (dashboard.StatisticsView, error)
	Orders(ctx context.Context, creds session.Credentials, q dashboard.OrdersQuery) (dashboard.OrdersView, error)
	ExportOrders(ctx context.Context, creds session.Credentials, q dashboard.OrdersQuery) (dashboard.OrderExport, error)
	Services(ctx context.Context, creds session.Credentials, q dashboard.ServicesQuery) (dashboard.ServicesView, error)
	Connect(ctx context.Context, key string) (reconcile.BalanceSnapshot, error)
}

// SettingsService reads and writes shop settings.
type SettingsService interface {
	Get(ctx context.Context, shop string) (settings.Settings, error)
	Update(ctx context.Context, s settings.Settings) (settings.Settings, error)
}

// CatalogRefresher schedules an asynchronous provider catalog refresh and
// returns the queued task id.
type CatalogRefresher interface {
	RefreshCatalog(ctx context.Context, reason string) (string, error)
}

// Handler serves the dashboard JSON API.
type Handler struct {
	logger    *slog.Logger
	service   DashboardService
	settings  SettingsService
	refresher CatalogRefresher
	base      session.Credentials
	csvPool   sync.Pool
	now       func() time.Time
}

// NewHandler constructs the dashboard HTTP handler. base carries the
// configured shop and provider credentials.
func NewHandler(logger *slog.Logger, service DashboardService, settingsSvc SettingsService, base session.Credentials) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		logger:   logger,
		service:  service,
		settings: settingsSvc,
		base:     base,
		now:      time.Now,
	}
	h.csvPool.New = func() interface{} { return new(bytes.Buffer) }
	return h
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// WithCatalogRefresher enables POST /api/services/refresh.
func (h *Handler) WithCatalogRefresher(refresher CatalogRefresher) {
	h.refresher = refresher
}

// credentials resolves the request credentials. A provider key header must
// pass the key format check before it is used.
func (h *Handler) credentials(r *http.Request) (session.Credentials, error) {
	key := strings.TrimSpace(r.Header.Get(ProviderKeyHeader))
	if key == "" {
		return h.base, nil
	}
	if err := provider.ValidateKey(key); err != nil {
		return session.Credentials{}, err
	}
	return h.base.WithProviderKey(key), nil
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	rangeID := daterange.ID(strings.TrimSpace(r.URL.Query().Get("range")))
	if rangeID == "" {
		rangeID = daterange.Today
	}
	creds, err := h.credentials(r)
	if err != nil {
		h.respondError(w, "resolve credentials", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.service.Statistics(ctx, creds, rangeID)
	if err != nil {
		h.respondError(w, "load statistics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	q, err := parseOrdersQuery(r)
	if err != nil {
		h.respondError(w, "parse orders query", err)
		return
	}
	creds, err := h.credentials(r)
	if err != nil {
		h.respondError(w, "resolve credentials", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.service.Orders(ctx, creds, q)
	if err != nil {
		h.respondError(w, "load orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleOrdersCSV(w http.ResponseWriter, r *http.Request) {
	q, err := parseOrdersQuery(r)
	if err != nil {
		h.respondError(w, "parse orders query", err)
		return
	}
	creds, err := h.credentials(r)
	if err != nil {
		h.respondError(w, "resolve credentials", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data, err := h.service.ExportOrders(ctx, creds, q)
	if err != nil {
		h.respondError(w, "load orders export", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	label := "All"
	if q.Range != nil {
		label = string(*q.Range)
	}
	if err := export.WriteStatisticsCSV(buf, data.Stats, label); err != nil {
		h.handleServerError(w, "write statistics csv", err)
		return
	}
	buf.WriteString("\n")
	if err := export.WriteOrdersCSV(buf, data.Rows); err != nil {
		h.handleServerError(w, "write orders csv", err)
		return
	}
	if len(data.Warnings) > 0 {
		buf.WriteString("\n")
		if err := export.WriteWarningsCSV(buf, data.Warnings); err != nil {
			h.handleServerError(w, "write warnings csv", err)
			return
		}
	}

	filename := fmt.Sprintf("orders-%s.csv", h.now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) handleServices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, err := intParam(query.Get("page"), "page")
	if err != nil {
		h.respondError(w, "parse services query", err)
		return
	}
	perPage, err := intParam(query.Get("per_page"), "per_page")
	if err != nil {
		h.respondError(w, "parse services query", err)
		return
	}
	creds, err := h.credentials(r)
	if err != nil {
		h.respondError(w, "resolve credentials", err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := h.service.Services(ctx, creds, dashboard.ServicesQuery{
		Search:  query.Get("q"),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.respondError(w, "load services", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type connectResponse struct {
	Connected bool         `json:"connected"`
	Balance   shared.Money `json:"balance"`
	Currency  string       `json:"currency,omitempty"`
}

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.respondError(w, "parse connect form", validationError{field: "apiKey"})
		return
	}
	key := strings.TrimSpace(r.PostForm.Get("apiKey"))
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	bal, err := h.service.Connect(ctx, key)
	if err != nil {
		h.respondError(w, "connect provider", err)
		return
	}
	h.logger.Info("provider key verified", slog.String("provider_scope", session.Fingerprint(key)))
	httpx.JSON(w, http.StatusOK, connectResponse{
		Connected: true,
		Balance:   shared.NewMoney(bal.Amount),
		Currency:  bal.Currency,
	})
}

type refreshResponse struct {
	TaskID string `json:"taskId"`
}

func (h *Handler) handleRefreshCatalog(w http.ResponseWriter, r *http.Request) {
	id, err := h.refresher.RefreshCatalog(r.Context(), "manual")
	if err != nil {
		h.logError("enqueue catalog refresh", err)
		httpx.RespondError(w, httpx.ErrUnavailable)
		return
	}
	httpx.JSON(w, http.StatusAccepted, refreshResponse{TaskID: id})
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.settings.Get(r.Context(), h.base.Shop())
	if err != nil {
		h.respondError(w, "load settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

type settingsRequest struct {
	QuantityBonus settings.QuantityBonus `json:"quantityBonus"`
}

func (h *Handler) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.respondError(w, "decode settings", validationError{field: "body"})
		return
	}
	saved, err := h.settings.Update(r.Context(), settings.Settings{
		ShopDomain:    h.base.Shop(),
		QuantityBonus: req.QuantityBonus,
	})
	if err != nil {
		h.respondError(w, "update settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func parseOrdersQuery(r *http.Request) (dashboard.OrdersQuery, error) {
	query := r.URL.Query()
	page, err := intParam(query.Get("page"), "page")
	if err != nil {
		return dashboard.OrdersQuery{}, err
	}
	perPage, err := intParam(query.Get("per_page"), "per_page")
	if err != nil {
		return dashboard.OrdersQuery{}, err
	}
	q := dashboard.OrdersQuery{
		Status:  query.Get("status"),
		Search:  query.Get("q"),
		Page:    page,
		PerPage: perPage,
	}
	if raw := strings.TrimSpace(query.Get("range")); raw != "" {
		id := daterange.ID(raw)
		q.Range = &id
	}
	return q, nil
}

func intParam(raw, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, validationError{field: field}
	}
	return value, nil
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var (
		vErr   validationError
		apiErr *provider.APIError
	)
	switch {
	case errors.As(err, &vErr):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", vErr.Error())
	case errors.Is(err, orders.ErrUnknownStatus):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "unknown status filter")
	case errors.Is(err, shared.ErrInvalidPerPage):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Parameter", "per_page must be 10, 50 or 100")
	case errors.Is(err, settings.ErrInvalidSettings):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "percentage must be between 0 and 100")
	case errors.Is(err, provider.ErrInvalidKey):
		httpx.Problem(w, http.StatusBadRequest, "Invalid API Key", "API key must be 32 lowercase hexadecimal characters")
	case errors.As(err, &apiErr):
		httpx.Problem(w, http.StatusBadRequest, "Provider Rejected Request", apiErr.Message)
	case errors.Is(err, provider.ErrUnavailable), errors.Is(err, dashboard.ErrProviderNotConnected):
		h.logError(op, err)
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrUnavailable, err))
	case errors.Is(err, context.DeadlineExceeded):
		h.logError(op, err)
		httpx.Problem(w, http.StatusGatewayTimeout, "Upstream Timeout", "")
	default:
		h.handleServerError(w, op, err)
	}
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	h.logger.Error(context, slog.Any("error", err))
}

type validationError struct {
	field string
}

func (v validationError) Error() string {
	return fmt.Sprintf("invalid %s", v.field)
}
