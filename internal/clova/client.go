// Package clova provides HTTP clients for the CLOVA Studio embedding and
// chat-completion endpoints and the Clova Speech recognition endpoint.
package clova

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxAttempts    = 3
	defaultTimeout = 60 * time.Second
	backoffBase    = 2 * time.Second
	backoffCap     = 10 * time.Second
)

// APIError is a non-2xx response from a CLOVA endpoint.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("clova: status %d: %s", e.StatusCode, e.Body)
}

// IsAuth reports whether the error is an authentication failure, which is
// never retried.
func (e *APIError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// retryable reports whether err is a transient failure worth retrying:
// network errors, timeouts, 429, and 5xx responses.
func retryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	// Connection failures and timeouts surface as transport errors.
	return err != nil
}

// Client is the shared base for CLOVA Studio API calls. It adds bearer auth
// and a per-request correlation id, and retries transient failures with
// exponential backoff. Safe for concurrent use.
type Client struct {
	apiKey      string
	httpClient  *http.Client
	backoffBase time.Duration
	backoffCap  time.Duration
	logger      *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets a logger for request debug output.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithBackoff overrides the retry backoff schedule. Tests use tiny values.
func WithBackoff(base, cap time.Duration) Option {
	return func(c *Client) {
		c.backoffBase = base
		c.backoffCap = cap
	}
}

// NewClient creates a base client with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		httpClient:  &http.Client{Timeout: defaultTimeout},
		backoffBase: backoffBase,
		backoffCap:  backoffCap,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// postJSON sends body to url and decodes the response into out. Transient
// failures are retried up to maxAttempts with exponential backoff; auth
// failures propagate immediately.
func (c *Client) postJSON(ctx context.Context, url string, body interface{}, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.backoffBase << (attempt - 1)
			if delay > c.backoffCap {
				delay = c.backoffCap
			}
			if c.logger != nil {
				c.logger.Debug("clova retrying", zap.Int("attempt", attempt+1), zap.Duration("delay", delay), zap.Error(lastErr))
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = c.doOnce(ctx, url, data, out)
		if lastErr == nil {
			return nil
		}
		var apiErr *APIError
		if errors.As(lastErr, &apiErr) && apiErr.IsAuth() {
			return lastErr
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("clova: %d attempts failed: %w", maxAttempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, url string, data []byte, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-NCP-CLOVASTUDIO-REQUEST-ID", uuid.New().String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: truncate(string(payload), 200)}
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
