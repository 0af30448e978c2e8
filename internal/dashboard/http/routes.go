package dashboardhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/panelsync/panelsync/internal/platform/httpx"
)

// MountRoutes registers the dashboard API onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	exportLimiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(limitExceeded),
	)
	connectLimiter := httprate.Limit(5, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(limitExceeded),
	)

	r.Route("/api", func(r chi.Router) {
		r.Get("/statistics", h.handleStatistics)
		r.Get("/orders", h.handleOrders)
		r.Get("/services", h.handleServices)
		r.Get("/settings", h.handleGetSettings)
		r.Put("/settings", h.handlePutSettings)
		r.With(exportLimiter).Get("/orders/export.csv", h.handleOrdersCSV)
		r.With(connectLimiter).Post("/provider/connect", h.handleConnect)
		if h.refresher != nil {
			r.With(connectLimiter).Post("/services/refresh", h.handleRefreshCatalog)
		}
	})
}

func limitExceeded(w http.ResponseWriter, _ *http.Request) {
	httpx.RespondError(w, httpx.ErrRateLimited)
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
