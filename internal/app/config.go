package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/panelsync/panelsync/internal/provider"
	"github.com/panelsync/panelsync/internal/session"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// PGDSN is optional; settings are kept in memory without it.
	PGDSN string `envconfig:"PG_DSN"`

	// RedisAddr is optional; the provider service list is not cached without it.
	RedisAddr         string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	CatalogCacheTTL   time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"10m"`
	CatalogWarmupCron string        `envconfig:"CATALOG_WARMUP_CRON" default:"*/15 * * * *"`

	ShopDomain      string `envconfig:"SHOP_DOMAIN" required:"true"`
	ShopAccessToken string `envconfig:"SHOP_ACCESS_TOKEN" required:"true"`
	ShopAPIVersion  string `envconfig:"SHOP_API_VERSION" default:"2024-10"`

	ProviderURL     string        `envconfig:"PROVIDER_URL" default:"https://richsmm.com/api/v2"`
	ProviderAPIKey  string        `envconfig:"PROVIDER_API_KEY"`
	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"15s"`

	PlatformTablePath  string `envconfig:"PLATFORM_TABLE_PATH"`
	OrdersFetchLimit   int    `envconfig:"ORDERS_FETCH_LIMIT" default:"250"`
	ProductsFetchLimit int    `envconfig:"PRODUCTS_FETCH_LIMIT" default:"250"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.ShopDomain) == "" {
		return nil, errors.New("shop domain must be provided")
	}
	if strings.TrimSpace(cfg.ShopAccessToken) == "" {
		return nil, errors.New("shop access token must be provided")
	}
	if key := strings.TrimSpace(cfg.ProviderAPIKey); key != "" {
		if err := provider.ValidateKey(key); err != nil {
			return nil, fmt.Errorf("provider api key: %w", err)
		}
	}
	if cfg.OrdersFetchLimit <= 0 || cfg.ProductsFetchLimit <= 0 {
		return nil, errors.New("fetch limits must be positive")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// Credentials returns the configured shop and provider credentials.
func (c *Config) Credentials() session.Credentials {
	return session.Credentials{
		ShopDomain:  c.ShopDomain,
		AccessToken: c.ShopAccessToken,
		ProviderKey: c.ProviderAPIKey,
	}
}
