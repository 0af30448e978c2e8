package provider

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/panelsync/panelsync/internal/catalog"
)

// flexString accepts JSON strings and numbers alike.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(data)
	return nil
}

func (f flexString) decimal() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(string(f)))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (f flexString) int() int {
	v, err := strconv.Atoi(strings.TrimSpace(string(f)))
	if err != nil {
		return int(f.decimal().IntPart())
	}
	return v
}

type errorResponse struct {
	Error string `json:"error"`
}

type balanceResponse struct {
	Balance  flexString `json:"balance"`
	Currency string     `json:"currency"`
	Error    string     `json:"error"`
}

type serviceResponse struct {
	Service  flexString `json:"service"`
	ID       flexString `json:"id"`
	Name     string     `json:"name"`
	Category string     `json:"category"`
	Rate     flexString `json:"rate"`
	Min      flexString `json:"min"`
	Max      flexString `json:"max"`
	Duration flexString `json:"duration"`
	Status   string     `json:"status"`
}

func (s serviceResponse) toService() catalog.Service {
	id := s.Service
	if id == "" {
		id = s.ID
	}
	return catalog.Service{
		ID:       string(id),
		Name:     s.Name,
		Category: s.Category,
		Min:      s.Min.int(),
		Max:      s.Max.int(),
		Rate:     s.Rate.decimal(),
		Duration: string(s.Duration),
		Status:   s.Status,
	}
}

// decodeServices accepts either a JSON array of services or an error object.
func decodeServices(body []byte) ([]catalog.Service, string, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '{' {
		var e errorResponse
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, "", err
		}
		return nil, e.Error, nil
	}
	var raw []serviceResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, "", err
	}
	services := make([]catalog.Service, 0, len(raw))
	for _, r := range raw {
		services = append(services, r.toService())
	}
	return services, "", nil
}
