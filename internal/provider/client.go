package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/panelsync/panelsync/internal/catalog"
	"github.com/panelsync/panelsync/internal/reconcile"
)

// DefaultBaseURL is the panel endpoint used when none is configured.
const DefaultBaseURL = "https://richsmm.com/api/v2"

const maxBodyBytes = 16 << 20

// Actions understood by the panel API.
const (
	ActionBalance  = "balance"
	ActionServices = "services"
)

// Client wraps the provider panel API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    BreakerConfig
	Logger     *slog.Logger
}

// NewClient constructs a provider client.
func NewClient(opts Options) *Client {
	baseURL := strings.TrimSpace(opts.BaseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	breakerCfg := opts.Breaker
	if breakerCfg.Name == "" {
		breakerCfg = DefaultBreakerConfig()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		breaker:    newBreaker(breakerCfg, opts.Logger),
		logger:     opts.Logger,
	}
}

// Balance fetches the account balance. Provider-side errors come back as *APIError.
func (c *Client) Balance(ctx context.Context, key string) (reconcile.BalanceSnapshot, error) {
	body, err := c.call(ctx, key, ActionBalance)
	if err != nil {
		return reconcile.BalanceSnapshot{}, err
	}
	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return reconcile.BalanceSnapshot{}, fmt.Errorf("%w: balance: %v", ErrMalformedResponse, err)
	}
	if resp.Error != "" {
		return reconcile.BalanceSnapshot{}, &APIError{Action: ActionBalance, Message: resp.Error}
	}
	if resp.Balance == "" {
		return reconcile.BalanceSnapshot{}, fmt.Errorf("%w: balance missing", ErrMalformedResponse)
	}
	return reconcile.BalanceSnapshot{Amount: resp.Balance.decimal(), Currency: resp.Currency}, nil
}

// Services fetches the provider's service catalog.
func (c *Client) Services(ctx context.Context, key string) ([]catalog.Service, error) {
	body, err := c.call(ctx, key, ActionServices)
	if err != nil {
		return nil, err
	}
	services, apiErr, err := decodeServices(body)
	if err != nil {
		return nil, fmt.Errorf("%w: services: %v", ErrMalformedResponse, err)
	}
	if apiErr != "" {
		return nil, &APIError{Action: ActionServices, Message: apiErr}
	}
	return services, nil
}

// Connect validates the key format and confirms it with a balance call.
func (c *Client) Connect(ctx context.Context, key string) (reconcile.BalanceSnapshot, error) {
	if err := ValidateKey(key); err != nil {
		return reconcile.BalanceSnapshot{}, err
	}
	return c.Balance(ctx, key)
}

func (c *Client) call(ctx context.Context, key, action string) ([]byte, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrInvalidKey
	}
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, key, action)
	})
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("provider call failed", slog.String("action", action), slog.Any("error", err))
		}
		return nil, breakerError(err)
	}
	return result.([]byte), nil
}

func (c *Client) post(ctx context.Context, key, action string) ([]byte, error) {
	form := url.Values{}
	form.Set("key", key)
	form.Set("action", action)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		var e errorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, &APIError{Action: action, Message: e.Error}
		}
		return nil, fmt.Errorf("%w: status %d", ErrMalformedResponse, resp.StatusCode)
	}
	return body, nil
}
