package settings

import (
	"context"
	"log/slog"
)

// Service reads and updates shop settings.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService constructs a Service. A nil store falls back to memory.
func NewService(store Store, logger *slog.Logger) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// Get returns the settings for shop, or disabled defaults when none are stored.
func (s *Service) Get(ctx context.Context, shop string) (Settings, error) {
	settings, ok, err := s.store.Get(ctx, shop)
	if err != nil {
		return Settings{}, err
	}
	if !ok {
		return Settings{ShopDomain: normaliseShop(shop)}, nil
	}
	return settings, nil
}

// Update validates and persists settings.
func (s *Service) Update(ctx context.Context, settings Settings) (Settings, error) {
	settings.ShopDomain = normaliseShop(settings.ShopDomain)
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	settings.QuantityBonus.Percentage = settings.QuantityBonus.Percentage.Round(2)
	if err := s.store.Save(ctx, settings); err != nil {
		return Settings{}, err
	}
	s.logger.Info("settings updated",
		slog.String("shop", settings.ShopDomain),
		slog.Bool("bonus_enabled", settings.QuantityBonus.Enabled),
		slog.String("bonus_percentage", settings.QuantityBonus.Percentage.StringFixed(2)))
	return settings, nil
}
