// Package renderer triggers the page builder's own CSS cache rebuild for a
// stored tree. The builder runtime is external; this client only reports
// pass/fail and how long the rebuild took. No retry policy beyond bounded
// backoff, no partial results.
package renderer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrNotConfigured is returned when no builder endpoint is configured.
var ErrNotConfigured = errors.New("renderer: no builder endpoint configured")

// Client talks to the builder's regeneration endpoint.
type Client struct {
	url        string
	httpClient *http.Client
	maxRetries int
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRetries sets the maximum number of retries. Default: 2.
func WithRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithTimeout sets the per-request timeout. Default: 60s — a full-site CSS
// rebuild is slow and the caller waits synchronously.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client targeting the builder's regeneration URL. An empty
// URL yields a client whose Regenerate always fails with ErrNotConfigured.
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		maxRetries: 2,
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Result reports one regeneration run.
type Result struct {
	Success    bool    `json:"success"`
	DurationMS float64 `json:"duration_ms"`
}

// Regenerate POSTs the document id and its tree to the builder and waits for
// the rebuild to finish. The duration covers the whole call including
// retries; it is observability data, not input to any backoff logic.
func (c *Client) Regenerate(ctx context.Context, documentID string, treeJSON json.RawMessage) (*Result, error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(map[string]any{
		"document_id": documentID,
		"tree":        treeJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("renderer: marshal: %w", err)
	}

	start := time.Now()
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("renderer: new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.logger.Warn("renderer: request failed", "attempt", attempt+1, "error", err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return &Result{
				Success:    true,
				DurationMS: float64(time.Since(start).Microseconds()) / 1000,
			}, nil
		}
		lastErr = fmt.Errorf("renderer: builder returned status %d", resp.StatusCode)
		c.logger.Warn("renderer: bad status", "attempt", attempt+1, "status", resp.StatusCode)
	}
	return nil, fmt.Errorf("renderer: regeneration failed: %w", lastErr)
}
