// Package provider talks to the service-provisioning panel API (the
// form-encoded "api/v2" protocol with key and action fields).
package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey indicates a key that fails the format check.
	ErrInvalidKey = errors.New("provider: invalid api key")
	// ErrUnavailable indicates the provider could not be reached or the circuit is open.
	ErrUnavailable = errors.New("provider: unavailable")
	// ErrMalformedResponse indicates a response body that could not be decoded.
	ErrMalformedResponse = errors.New("provider: malformed response")
)

// APIError is an {"error": "..."} answer from the provider.
type APIError struct {
	Action  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("provider: %s: %s", e.Action, e.Message)
}
