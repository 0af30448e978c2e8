// Package dashboard assembles the statistics, orders and services views from
// commerce and provider snapshots.
package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/panelsync/panelsync/internal/catalog"
	"github.com/panelsync/panelsync/internal/matcher"
	"github.com/panelsync/panelsync/internal/orders"
	"github.com/panelsync/panelsync/internal/reconcile"
	"github.com/panelsync/panelsync/internal/session"
	"github.com/panelsync/panelsync/internal/settings"
	"github.com/panelsync/panelsync/internal/shared"
)

// Warning sources.
const (
	SourceOrders           = "orders"
	SourceProducts         = "products"
	SourceProviderBalance  = "provider_balance"
	SourceProviderServices = "provider_services"
)

const (
	defaultOrdersLimit   = 250
	defaultProductsLimit = 250
	defaultMaxSnapshots  = 32
)

// ErrProviderNotConnected is reported when no provider key is configured.
var ErrProviderNotConnected = errors.New("dashboard: provider not connected")

// OrderSource fetches store orders.
type OrderSource interface {
	FetchOrders(ctx context.Context, creds session.Credentials, limit int) ([]orders.Order, error)
}

// ProductSource fetches store products.
type ProductSource interface {
	FetchProducts(ctx context.Context, creds session.Credentials, limit int) ([]catalog.Product, error)
}

// ProviderSource talks to the provider panel.
type ProviderSource interface {
	Balance(ctx context.Context, key string) (reconcile.BalanceSnapshot, error)
	Services(ctx context.Context, key string) ([]catalog.Service, error)
	Connect(ctx context.Context, key string) (reconcile.BalanceSnapshot, error)
}

// SettingsSource resolves per-shop settings.
type SettingsSource interface {
	Get(ctx context.Context, shop string) (settings.Settings, error)
}

// Recorder receives reconciliation events for metrics.
type Recorder interface {
	UpstreamFailure(source string)
	StaleResponse()
}

type noopRecorder struct{}

func (noopRecorder) UpstreamFailure(string) {}
func (noopRecorder) StaleResponse() {}

// Warning describes an upstream failure that was degraded to empty data.
type Warning struct {
	Source  string `json:"source"`
	Message string `json:"message"`
}

// Snapshot is the raw upstream data behind every view.
type Snapshot struct {
	Orders    []orders.Order
	Products  []catalog.Product
	Services  []catalog.Service
	Balance   reconcile.BalanceSnapshot
	Warnings  []Warning
	FetchedAt time.Time
	Token     uint64
}

// Dependencies groups the collaborators of a Service. MaxSnapshots bounds the
// number of credential scopes whose latest snapshot is kept; the least
// recently used scope is evicted first.
type Dependencies struct {
	Orders        OrderSource
	Products      ProductSource
	Provider      ProviderSource
	Cache         *catalog.Cache
	Matcher       *matcher.Matcher
	Settings      SettingsSource
	Recorder      Recorder
	OrdersLimit   int
	ProductsLimit int
	MaxSnapshots  int
}

// Service builds dashboard views.
type Service struct {
	orders        OrderSource
	products      ProductSource
	provider      ProviderSource
	cache         *catalog.Cache
	matcher       *matcher.Matcher
	settings      SettingsSource
	recorder      Recorder
	logger        *slog.Logger
	seq           *shared.Sequencer
	ordersLimit   int
	productsLimit int
	now           func() time.Time
	latest        *lru.Cache[string, Snapshot]
}

// NewService constructs the dashboard service.
func NewService(deps Dependencies, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	m := deps.Matcher
	if m == nil {
		m = matcher.New(matcher.DefaultTable())
	}
	ordersLimit := deps.OrdersLimit
	if ordersLimit <= 0 {
		ordersLimit = defaultOrdersLimit
	}
	productsLimit := deps.ProductsLimit
	if productsLimit <= 0 {
		productsLimit = defaultProductsLimit
	}
	maxSnapshots := deps.MaxSnapshots
	if maxSnapshots <= 0 {
		maxSnapshots = defaultMaxSnapshots
	}
	latest, _ := lru.New[string, Snapshot](maxSnapshots)
	return &Service{
		orders:        deps.Orders,
		products:      deps.Products,
		provider:      deps.Provider,
		cache:         deps.Cache,
		matcher:       m,
		settings:      deps.Settings,
		recorder:      recorder,
		logger:        logger,
		seq:           shared.NewSequencer(),
		ordersLimit:   ordersLimit,
		productsLimit: productsLimit,
		now:           time.Now,
		latest:        latest,
	}
}

// WithNow overrides the service clock for testing.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// Refresh fetches every upstream concurrently. Failures become warnings. The
// result is stored as the scope's latest snapshot only while its token is
// current; a superseded refresh returns the newer stored snapshot instead.
func (s *Service) Refresh(ctx context.Context, creds session.Credentials) (Snapshot, error) {
	scope := creds.Scope()
	token := s.seq.Next(scope)

	var (
		snap     Snapshot
		warnings [4]*Warning
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.fetchOrders(gctx, creds)
		snap.Orders = list
		warnings[0] = s.degrade(SourceOrders, err)
		return nil
	})
	g.Go(func() error {
		list, err := s.fetchProducts(gctx, creds)
		snap.Products = list
		warnings[1] = s.degrade(SourceProducts, err)
		return nil
	})
	g.Go(func() error {
		bal, err := s.fetchBalance(gctx, creds)
		snap.Balance = bal
		warnings[2] = s.degrade(SourceProviderBalance, err)
		return nil
	})
	g.Go(func() error {
		list, err := s.fetchServices(gctx, creds)
		snap.Services = list
		warnings[3] = s.degrade(SourceProviderServices, err)
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		s.seq.Release(scope, token)
		return Snapshot{}, err
	}

	for _, w := range warnings {
		if w != nil {
			snap.Warnings = append(snap.Warnings, *w)
		}
	}
	snap.FetchedAt = s.now()
	snap.Token = token

	committed := s.seq.Commit(scope, token, func() {
		s.latest.Add(scope, snap)
	})
	if committed {
		return snap, nil
	}
	s.recorder.StaleResponse()
	s.logger.Debug("discarded stale dashboard refresh", slog.String("scope", scope), slog.Uint64("token", token))
	if newer, ok := s.Latest(creds); ok && newer.Token > token {
		return newer, nil
	}
	return snap, nil
}

// Latest returns the most recent committed snapshot for the credentials.
func (s *Service) Latest(creds session.Credentials) (Snapshot, bool) {
	return s.latest.Get(creds.Scope())
}

// Connect validates and verifies a provider key.
func (s *Service) Connect(ctx context.Context, key string) (reconcile.BalanceSnapshot, error) {
	if s.provider == nil {
		return reconcile.BalanceSnapshot{}, ErrProviderNotConnected
	}
	return s.provider.Connect(ctx, key)
}

func (s *Service) degrade(source string, err error) *Warning {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrProviderNotConnected) {
		return &Warning{Source: source, Message: err.Error()}
	}
	s.recorder.UpstreamFailure(source)
	s.logger.Warn("upstream fetch degraded", slog.String("source", source), slog.Any("error", err))
	return &Warning{Source: source, Message: err.Error()}
}

func (s *Service) fetchOrders(ctx context.Context, creds session.Credentials) ([]orders.Order, error) {
	if s.orders == nil {
		return nil, nil
	}
	list, err := s.orders.FetchOrders(ctx, creds, s.ordersLimit)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) fetchProducts(ctx context.Context, creds session.Credentials) ([]catalog.Product, error) {
	if s.products == nil {
		return nil, nil
	}
	list, err := s.products.FetchProducts(ctx, creds, s.productsLimit)
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) fetchBalance(ctx context.Context, creds session.Credentials) (reconcile.BalanceSnapshot, error) {
	if s.provider == nil || !creds.HasProvider() {
		return reconcile.Unavailable(ErrProviderNotConnected.Error()), ErrProviderNotConnected
	}
	bal, err := s.provider.Balance(ctx, strings.TrimSpace(creds.ProviderKey))
	if err != nil {
		return reconcile.Unavailable(err.Error()), err
	}
	return bal, nil
}

func (s *Service) fetchServices(ctx context.Context, creds session.Credentials) ([]catalog.Service, error) {
	if s.provider == nil || !creds.HasProvider() {
		return nil, ErrProviderNotConnected
	}
	key := strings.TrimSpace(creds.ProviderKey)
	list, err := s.cache.Services(ctx, creds.ProviderScope(), func(ctx context.Context) ([]catalog.Service, error) {
		return s.provider.Services(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (s *Service) bonus(ctx context.Context, creds session.Credentials) settings.QuantityBonus {
	if s.settings == nil {
		return settings.QuantityBonus{}
	}
	cfg, err := s.settings.Get(ctx, creds.Shop())
	if err != nil {
		s.logger.Warn("load settings", slog.String("shop", creds.Shop()), slog.Any("error", err))
		return settings.QuantityBonus{}
	}
	return cfg.QuantityBonus
}
