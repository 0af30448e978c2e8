// Package session carries the per-request credentials every upstream call
// needs. Components receive Credentials explicitly; nothing reads them from
// ambient storage.
package session

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Credentials identify the store and the provider account for one request.
type Credentials struct {
	ShopDomain  string
	AccessToken string
	ProviderKey string
}

// Shop returns the normalised shop domain.
func (c Credentials) Shop() string {
	return strings.ToLower(strings.TrimSpace(c.ShopDomain))
}

// HasProvider reports whether a provider key is present.
func (c Credentials) HasProvider() bool {
	return strings.TrimSpace(c.ProviderKey) != ""
}

// Scope is a stable, non-reversible identifier for the shop/provider pair. It
// is safe to use in cache keys, logs and metrics.
func (c Credentials) Scope() string {
	return Fingerprint(c.Shop() + "|" + strings.TrimSpace(c.ProviderKey))
}

// ProviderScope identifies the provider account alone.
func (c Credentials) ProviderScope() string {
	return Fingerprint(strings.TrimSpace(c.ProviderKey))
}

// WithProviderKey returns a copy with the provider key replaced when key is non-empty.
func (c Credentials) WithProviderKey(key string) Credentials {
	if key = strings.TrimSpace(key); key != "" {
		c.ProviderKey = key
	}
	return c
}

// Fingerprint hashes value into a short hex token.
func Fingerprint(value string) string {
	sum := blake2b.Sum256([]byte(value))
	return hex.EncodeToString(sum[:8])
}
