// Package catalog holds the store product and provider service snapshots and
// the Redis cache used for the provider service list.
package catalog

import "github.com/shopspring/decimal"

// Product is a store catalog entry.
type Product struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Variants    []Variant `json:"variants,omitempty"`
}

// Variant is a purchasable variant of a product.
type Variant struct {
	Price decimal.Decimal `json:"price"`
}

// FirstPrice returns the first variant's price.
func (p Product) FirstPrice() (decimal.Decimal, bool) {
	if len(p.Variants) == 0 {
		return decimal.Zero, false
	}
	return p.Variants[0].Price, true
}

// Service is a purchasable service offered by the provider.
type Service struct {
	ID       string          `json:"service"`
	Name     string          `json:"name"`
	Category string          `json:"category,omitempty"`
	Min      int             `json:"min"`
	Max      int             `json:"max"`
	Rate     decimal.Decimal `json:"rate"`
	Duration string          `json:"duration,omitempty"`
	Status   string          `json:"status,omitempty"`
}
