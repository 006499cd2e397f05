// Package hoopstats adapts the official league stats API. Responses are
// tabular (resultSets with headers and rowSet arrays) and the endpoint
// aggressively rate-limits unfamiliar clients, so every call goes through
// the shared retry policy behind a token-bucket limiter.
package hoopstats

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

const defaultBaseURL = "https://stats.hoopdata.example/stats"

// Client is the HTTP client for the official stats endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	retry      provider.RetryPolicy
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient injects the transport (the route layer owns HTTP setup).
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

// NewClient creates an official-stats client with rate limiting.
func NewClient(requestsPerMinute int, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
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
func (c *Client) Name() string { return "hoopstats" }

// tabularResponse is the resultSets wrapper all endpoints share.
type tabularResponse struct {
	ResultSets []resultSet `json:"resultSets"`
}

type resultSet struct {
	Name    string            `json:"name"`
	Headers []string          `json:"headers"`
	RowSet  [][]json.RawMessage `json:"rowSet"`
}

// get performs a rate-limited, retried GET and decodes the tabular wrapper.
func (c *Client) get(ctx context.Context, path string, params url.Values) (*tabularResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var result tabularResponse
	err := c.retry.Do(ctx, c.logger, "hoopstats "+path, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "propcore/1.0")

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

// set returns the named result set, or the first one when name is empty.
func (r *tabularResponse) set(name string) (*resultSet, bool) {
	for i := range r.ResultSets {
		if name == "" || r.ResultSets[i].Name == name {
			return &r.ResultSets[i], true
		}
	}
	return nil, false
}

// column returns the index of a header, or -1.
func (rs *resultSet) column(header string) int {
	for i, h := range rs.Headers {
		if h == header {
			return i
		}
	}
	return -1
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
