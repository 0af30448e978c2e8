// Package settings stores per-shop dashboard preferences, currently the
// quantity bonus added on top of ordered quantities.
package settings

import (
	"errors"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrInvalidSettings wraps every validation failure.
var ErrInvalidSettings = errors.New("settings: invalid settings")

var hundred = decimal.NewFromInt(100)

// QuantityBonus adds a percentage of the ordered quantity when enabled.
type QuantityBonus struct {
	Enabled    bool            `json:"enabled"`
	Percentage decimal.Decimal `json:"percentage" validate:"gte=0,lte=100"`
}

// ApplyBonus returns quantity plus the floored bonus share. Non-positive
// quantities and disabled bonuses are returned unchanged.
func (b QuantityBonus) ApplyBonus(quantity int) int {
	if !b.Enabled || quantity <= 0 || !b.Percentage.IsPositive() {
		return quantity
	}
	bonus := decimal.NewFromInt(int64(quantity)).Mul(b.Percentage).Div(hundred).Floor()
	return quantity + int(bonus.IntPart())
}

// Settings is the persisted preference set for one shop.
type Settings struct {
	ShopDomain    string        `json:"shopDomain" validate:"required"`
	QuantityBonus QuantityBonus `json:"quantityBonus"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// Validate checks field bounds.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.Join(ErrInvalidSettings, err)
	}
	return nil
}
