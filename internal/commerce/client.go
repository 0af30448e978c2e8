// Package commerce fetches order and product snapshots from the store's
// GraphQL admin API.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/panelsync/panelsync/internal/catalog"
	"github.com/panelsync/panelsync/internal/orders"
	"github.com/panelsync/panelsync/internal/session"
)

// DefaultAPIVersion is the admin API version used when none is configured.
const DefaultAPIVersion = "2024-10"

const (
	pageSize     = 50
	maxBodyBytes = 32 << 20
)

var (
	// ErrMissingCredentials indicates an empty shop domain or access token.
	ErrMissingCredentials = errors.New("commerce: missing shop credentials")
	// ErrUpstream indicates a transport failure or non-2xx answer.
	ErrUpstream = errors.New("commerce: upstream failure")
)

// GraphQLError carries the messages of a GraphQL "errors" array.
type GraphQLError struct {
	Messages []string
}

func (e *GraphQLError) Error() string {
	return "commerce: graphql: " + strings.Join(e.Messages, "; ")
}

// Client queries the commerce GraphQL endpoint.
type Client struct {
	httpClient *http.Client
	apiVersion string
	scheme     string
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Insecure switches to plain http; tests only.
	Insecure bool
}

// NewClient constructs a commerce client.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	version := strings.TrimSpace(opts.APIVersion)
	if version == "" {
		version = DefaultAPIVersion
	}
	scheme := "https"
	if opts.Insecure {
		scheme = "http"
	}
	return &Client{httpClient: httpClient, apiVersion: version, scheme: scheme, logger: opts.Logger}
}

// FetchOrders returns up to limit of the most recent orders.
func (c *Client) FetchOrders(ctx context.Context, creds session.Credentials, limit int) ([]orders.Order, error) {
	var out []orders.Order
	err := c.paginate(ctx, creds, ordersQuery, limit, func(raw json.RawMessage) (pageInfo, int, error) {
		var data ordersData
		if err := json.Unmarshal(raw, &data); err != nil {
			return pageInfo{}, 0, err
		}
		for _, edge := range data.Orders.Edges {
			if limit > 0 && len(out) >= limit {
				break
			}
			out = append(out, edge.Node.toOrder())
		}
		return data.Orders.PageInfo, len(out), nil
	})
	return out, err
}

// FetchProducts returns up to limit catalog products in store order.
func (c *Client) FetchProducts(ctx context.Context, creds session.Credentials, limit int) ([]catalog.Product, error) {
	var out []catalog.Product
	err := c.paginate(ctx, creds, productsQuery, limit, func(raw json.RawMessage) (pageInfo, int, error) {
		var data productsData
		if err := json.Unmarshal(raw, &data); err != nil {
			return pageInfo{}, 0, err
		}
		for _, edge := range data.Products.Edges {
			if limit > 0 && len(out) >= limit {
				break
			}
			out = append(out, edge.Node.toProduct())
		}
		return data.Products.PageInfo, len(out), nil
	})
	return out, err
}

type pageFunc func(raw json.RawMessage) (pageInfo, int, error)

func (c *Client) paginate(ctx context.Context, creds session.Credentials, query string, limit int, consume pageFunc) error {
	var cursor *string
	for {
		first := pageSize
		if limit > 0 && limit < first {
			first = limit
		}
		raw, err := c.query(ctx, creds, query, map[string]any{"first": first, "after": cursor})
		if err != nil {
			return err
		}
		info, count, err := consume(raw)
		if err != nil {
			return fmt.Errorf("commerce: decode: %w", err)
		}
		if !info.HasNextPage || info.EndCursor == "" || (limit > 0 && count >= limit) {
			return nil
		}
		next := info.EndCursor
		cursor = &next
	}
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) endpoint(shop string) string {
	return fmt.Sprintf("%s://%s/admin/api/%s/graphql.json", c.scheme, shop, c.apiVersion)
}

func (c *Client) query(ctx context.Context, creds session.Credentials, query string, vars map[string]any) (json.RawMessage, error) {
	shop := creds.Shop()
	if shop == "" || strings.TrimSpace(creds.AccessToken) == "" {
		return nil, ErrMissingCredentials
	}
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(shop), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", creds.AccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	if resp.StatusCode >= 400 {
		if c.logger != nil {
			c.logger.Warn("commerce query failed", slog.Int("status", resp.StatusCode), slog.String("shop", shop))
		}
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	var out graphQLResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("commerce: decode envelope: %w", err)
	}
	if len(out.Errors) > 0 {
		gqlErr := &GraphQLError{}
		for _, e := range out.Errors {
			gqlErr.Messages = append(gqlErr.Messages, e.Message)
		}
		return nil, gqlErr
	}
	return out.Data, nil
}
