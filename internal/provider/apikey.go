package provider

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var keyPattern = regexp.MustCompile(`^[a-f0-9]{32}$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func keyValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("provider_key", func(fl validator.FieldLevel) bool {
			return keyPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

type keyForm struct {
	Key string `validate:"required,provider_key"`
}

// ValidateKey checks that key is 32 lowercase hexadecimal characters.
func ValidateKey(key string) error {
	if err := keyValidator().Struct(keyForm{Key: key}); err != nil {
		return ErrInvalidKey
	}
	return nil
}
