package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// maxResponseSize is the maximum allowed upstream response size (10MB)
const maxResponseSize = 10 * 1024 * 1024

// APIError is the terminal failure of an upstream request, carrying the
// HTTP status and response body for diagnostics.
type APIError struct {
	Status int
	Body   string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("upstream request failed: status=%d body=%s", e.Status, truncate(e.Body, 512))
}

// IsThrottled reports whether the failure was a throttling response.
func (e *APIError) IsThrottled() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusRequestTimeout
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// TokenSource supplies and refreshes the bearer token for providers that
// authenticate with a rotating token pair. Refresh must persist rotated
// tokens before returning.
type TokenSource interface {
	// Token returns the current access token, acquiring one if needed.
	Token(ctx context.Context) (string, error)

	// Refresh discards the current access token and obtains a new one.
	Refresh(ctx context.Context) (string, error)
}

// Client is the resilient request wrapper all upstream calls route through.
// It retries throttling and server errors with backoff, honors Retry-After,
// and (when a TokenSource is configured) refreshes the bearer token on 401
// with at most one refresh in flight process-wide.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	headers    map[string]string
	tokens     TokenSource
	logger     *zap.Logger

	refreshGroup singleflight.Group

	// sleep waits for the computed retry delay; injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option is a functional option for Client configuration
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithMaxRetries sets the retry budget for throttling and server errors.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithBaseDelay sets the initial exponential backoff delay.
func WithBaseDelay(d time.Duration) Option {
	return func(c *Client) { c.baseDelay = d }
}

// WithHeader adds a static header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithTokenSource enables bearer authentication with 401-triggered,
// single-flight token refresh.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a resilient client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		headers:    make(map[string]string),
		logger:     zap.NewNop(),
	}
	c.sleep = func(ctx context.Context, d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs an HTTP request against path and returns the response body.
// Non-nil body values are JSON-encoded. Terminal failures return a wrapped
// *APIError with the status and response body attached.
func (c *Client) Do(ctx context.Context, method, path string, params url.Values, body any) ([]byte, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("httpx: failed to marshal request body: %w", err)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.baseDelay
	policy.RandomizationFactor = 0
	policy.Multiplier = 2
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0
	policy.Reset()

	attempt := 0
	refreshed := false

	for {
		status, respBody, retryAfter, err := c.doOnce(ctx, method, path, params, bodyBytes)
		if err != nil {
			return nil, err
		}
		if status < 400 {
			return respBody, nil
		}

		// One refresh-and-retry on auth failure; it does not count
		// against the retry budget, and concurrent callers share a
		// single in-flight refresh.
		if status == http.StatusUnauthorized && c.tokens != nil && !refreshed {
			refreshed = true
			if _, err, _ := c.refreshGroup.Do("token-refresh", func() (any, error) {
				return c.tokens.Refresh(ctx)
			}); err != nil {
				return nil, fmt.Errorf("httpx: token refresh failed: %w", err)
			}
			c.logger.Debug("retrying request after token refresh",
				zap.String("method", method), zap.String("path", path))
			continue
		}

		if !isRetryable(status) || attempt >= c.maxRetries {
			return nil, fmt.Errorf("httpx: %w", &APIError{Status: status, Body: string(respBody)})
		}

		delay := policy.NextBackOff()
		if ra, ok := parseRetryAfter(retryAfter, time.Now()); ok {
			delay = ra
		}
		c.logger.Warn("retrying upstream request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		attempt++
	}
}

// doOnce issues a single request and returns status, body and the
// Retry-After header. Transport failures are terminal.
func (c *Client) doOnce(ctx context.Context, method, path string, params url.Values, bodyBytes []byte) (int, []byte, string, error) {
	fullURL := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	var reader io.Reader
	if bodyBytes != nil {
		reader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return 0, nil, "", fmt.Errorf("httpx: failed to create request: %w", err)
	}

	if bodyBytes != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return 0, nil, "", fmt.Errorf("httpx: failed to obtain token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, "", fmt.Errorf("httpx: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return 0, nil, "", fmt.Errorf("httpx: failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, resp.Header.Get("Retry-After"), nil
}

// isRetryable reports whether the status is worth retrying: throttling
// (429/408) or server errors.
func isRetryable(status int) bool {
	return status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
}

// parseRetryAfter interprets a Retry-After value as either delay seconds or
// an HTTP date, returning the remaining delta.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if t, err := http.ParseTime(value); err == nil {
		d := t.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}
