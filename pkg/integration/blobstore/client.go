// Package blobstore provides a read-only client for fetching named binaries
// from a remote object store over HTTP.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/corpola/bulkmail/pkg/integration"
)

const defaultTimeout = 10 * time.Second

// Fetcher fetches the bytes of one remote binary by its canonical URL.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Client is an HTTP blob store client with transient-failure retries.
type Client struct {
	httpClient *http.Client
	retryer    *integration.Retryer
	maxBytes   int64
}

// Config holds the configuration for the blob store client.
type Config struct {
	TimeoutSeconds int
	// MaxBytes caps the size of a single fetched blob. 0 means no cap.
	MaxBytes int64
	Retry    integration.RetryConfig
}

// DefaultConfig returns a default blob store configuration.
func DefaultConfig() Config {
	return Config{
		TimeoutSeconds: 10,
		MaxBytes:       20 << 20,
		Retry:          integration.DefaultRetryConfig(),
	}
}

// NewClient creates a new blob store client.
func NewClient(cfg Config) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		retryer:    integration.NewRetryer(cfg.Retry).WithService("blobstore", "fetch"),
		maxBytes:   cfg.MaxBytes,
	}
}

// FetchBytes downloads one blob by URL. Non-2xx responses are errors; 5xx and
// network failures are retried per the configured retry policy.
func (c *Client) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return integration.DoWithResult(ctx, c.retryer, func(ctx context.Context) ([]byte, error) {
		return c.fetchOnce(ctx, url)
	})
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("blobstore: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blobstore: fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, integration.NewHTTPError(resp.StatusCode, fmt.Sprintf("fetch %s: %s", url, string(body)))
	}

	reader := io.Reader(resp.Body)
	if c.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, c.maxBytes+1)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("blobstore: read body: %w", err)
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return nil, fmt.Errorf("blobstore: blob at %s exceeds %d bytes", url, c.maxBytes)
	}

	return data, nil
}
