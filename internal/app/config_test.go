package app

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelsync/panelsync/internal/provider"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SHOP_DOMAIN", "demo.myshopify.com")
	t.Setenv("SHOP_ACCESS_TOKEN", "shpat_test")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "https://richsmm.com/api/v2", cfg.ProviderURL)
	assert.Equal(t, 10*time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, 250, cfg.OrdersFetchLimit)
	assert.Empty(t, cfg.PGDSN)
	assert.False(t, cfg.IsProduction())

	creds := cfg.Credentials()
	assert.Equal(t, "demo.myshopify.com", creds.Shop())
	assert.False(t, creds.HasProvider())
}

func TestLoadConfigRequiresShop(t *testing.T) {
	t.Setenv("SHOP_DOMAIN", "")
	t.Setenv("SHOP_ACCESS_TOKEN", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigValidatesProviderKey(t *testing.T) {
	setRequired(t)
	t.Setenv("PROVIDER_API_KEY", "NOT-HEX")
	_, err := LoadConfig()
	assert.ErrorIs(t, err, provider.ErrInvalidKey)

	t.Setenv("PROVIDER_API_KEY", "9bdec003037ce39b4f9336afdd3a931a")
	t.Setenv("APP_ENV", "production")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Credentials().HasProvider())
}

func TestInTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&Config{LogFormat: "json", AppEnv: "production"}, &buf).Info("hello", "shop", "demo")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	buf.Reset()
	newLogger(&Config{LogFormat: "json", AppEnv: "production"}, &buf).Debug("hidden")
	assert.Zero(t, buf.Len())

	buf.Reset()
	newLogger(&Config{LogFormat: "pretty"}, &buf).Debug("visible")
	assert.Contains(t, buf.String(), "msg=visible")
}
