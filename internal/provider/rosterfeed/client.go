// Package rosterfeed adapts the roster/schedule API. The feed serves flat
// JSON-object rows behind cursor-based pagination and Authorization header
// auth, with a token bucket limiter to stay inside the plan's quota.
package rosterfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/courtside/propcore/internal/provider"
)

const defaultBaseURL = "https://api.rosterfeed.example/v1"

// Client is the shared HTTP client for all rosterfeed endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	retry      provider.RetryPolicy
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects the transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the upstream base URL, primarily for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithRetryPolicy overrides the shared retry policy.
func WithRetryPolicy(p provider.RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithClock injects the time source used for season selection.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// NewClient creates a rosterfeed client with rate limiting.
func NewClient(apiKey string, requestsPerMinute int, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), 1),
		retry:      provider.DefaultRetryPolicy(),
		logger:     logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name identifies the adapter in logs and errors.
func (c *Client) Name() string { return "rosterfeed" }

// paginatedResponse is the common response wrapper.
type paginatedResponse struct {
	Data json.RawMessage `json:"data"`
	Meta struct {
		NextCursor *int `json:"next_cursor"`
	} `json:"meta"`
}

// get performs a rate-limited, retried GET request to one endpoint page.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*paginatedResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var result paginatedResponse
	err := c.retry.Do(ctx, c.logger, "rosterfeed "+path, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request %s: %w", path, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &provider.StatusError{Status: resp.StatusCode, Body: truncate(body, 200)}
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// getAll walks cursor pagination, decoding each page's data into rows of T.
func getAll[T any](ctx context.Context, c *Client, path string, params url.Values) ([]T, error) {
	var all []T
	for {
		resp, err := c.get(ctx, path, params)
		if err != nil {
			return nil, err
		}
		var page []T
		if err := json.Unmarshal(resp.Data, &page); err != nil {
			return nil, fmt.Errorf("decode %s page: %w", path, err)
		}
		all = append(all, page...)

		if resp.Meta.NextCursor == nil {
			break
		}
		params.Set("cursor", fmt.Sprintf("%d", *resp.Meta.NextCursor))
	}
	return all, nil
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
