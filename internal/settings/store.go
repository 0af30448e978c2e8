package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Store persists settings keyed by shop domain.
type Store interface {
	Get(ctx context.Context, shop string) (Settings, bool, error)
	Save(ctx context.Context, s Settings) error
}

const schemaSQL = `CREATE TABLE IF NOT EXISTS shop_settings (
    shop_domain TEXT PRIMARY KEY,
    bonus_enabled BOOLEAN NOT NULL DEFAULT FALSE,
    bonus_percentage NUMERIC(5,2) NOT NULL DEFAULT 0,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps settings in the shop_settings table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wires the store to a pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the settings table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("settings: ensure schema: %w", err)
	}
	return nil
}

// Get loads the settings row for shop.
func (s *PostgresStore) Get(ctx context.Context, shop string) (Settings, bool, error) {
	var (
		enabled bool
		pct     string
	)
	err := s.pool.QueryRow(ctx, `SELECT bonus_enabled, bonus_percentage::text
FROM shop_settings WHERE shop_domain = $1`, normaliseShop(shop)).Scan(&enabled, &pct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, false, nil
		}
		return Settings{}, false, fmt.Errorf("settings: get: %w", err)
	}
	percentage, err := decimal.NewFromString(pct)
	if err != nil {
		return Settings{}, false, fmt.Errorf("settings: decode percentage: %w", err)
	}
	return Settings{
		ShopDomain:    normaliseShop(shop),
		QuantityBonus: QuantityBonus{Enabled: enabled, Percentage: percentage},
	}, true, nil
}

// Save upserts the settings row.
func (s *PostgresStore) Save(ctx context.Context, settings Settings) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO shop_settings (shop_domain, bonus_enabled, bonus_percentage, updated_at)
VALUES ($1, $2, $3::numeric, NOW())
ON CONFLICT (shop_domain) DO UPDATE
SET bonus_enabled = EXCLUDED.bonus_enabled, bonus_percentage = EXCLUDED.bonus_percentage, updated_at = NOW()`,
		normaliseShop(settings.ShopDomain), settings.QuantityBonus.Enabled, settings.QuantityBonus.Percentage.StringFixed(2))
	if err != nil {
		return fmt.Errorf("settings: save: %w", err)
	}
	return nil
}

// MemoryStore keeps settings in process.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]Settings
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]Settings)}
}

// Get returns the stored settings for shop.
func (m *MemoryStore) Get(_ context.Context, shop string) (Settings, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[normaliseShop(shop)]
	return s, ok, nil
}

// Save stores settings, replacing any previous value.
func (m *MemoryStore) Save(_ context.Context, s Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ShopDomain = normaliseShop(s.ShopDomain)
	m.items[s.ShopDomain] = s
	return nil
}

func normaliseShop(shop string) string {
	return strings.ToLower(strings.TrimSpace(shop))
}
