package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/muurk/upnpcp/internal/logging"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed GETs.
	// Zero: description fetch failures surface to the caller immediately.
	DefaultMaxRetries = 0

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 10 * time.Second

	// DefaultCacheDuration is how long a fetched document stays cached
	DefaultCacheDuration = 30 * time.Second

	// DefaultUserAgent identifies the control point in HTTP and SSDP requests
	DefaultUserAgent = "Go/1 UPnP/1.1 upnp-cp/1.0"

	// maxDocumentSize bounds description and SOAP response bodies
	maxDocumentSize = 4 << 20
)

// Client performs the HTTP GET and SOAP POST exchanges for a control point
type Client struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// UserAgent is sent with every request
	UserAgent string

	// MaxRetries is the maximum number of retry attempts for failed GETs.
	// SOAP calls are never retried: actions are not idempotent.
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool

	// CacheDuration is how long to cache fetched documents (0 = no cache)
	CacheDuration time.Duration

	cache      map[string]cacheEntry
	cacheMutex sync.RWMutex
}

type cacheEntry struct {
	body    []byte
	fetched time.Time
}

// NewClient creates a new transport client with default settings
func NewClient() *Client {
	return &Client{
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		UserAgent:             DefaultUserAgent,
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
		CacheDuration:         DefaultCacheDuration,
		cache:                 make(map[string]cacheEntry),
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior for GETs
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// InvalidateCache drops every cached document
func (c *Client) InvalidateCache() {
	c.cacheMutex.Lock()
	c.cache = make(map[string]cacheEntry)
	c.cacheMutex.Unlock()
}

// Get retrieves a description or SCPD document.
// Non-200 responses and network failures return *Error.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	if body, ok := c.cached(url); ok {
		logging.Debug("Document served from cache", zap.String("url", url))
		return body, nil
	}

	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(currentDelay):
			case <-ctx.Done():
				return nil, NewNetworkError("GET cancelled", url, ctx.Err())
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}

			logging.Debug("Retrying GET",
				zap.String("url", url),
				zap.Int("attempt", attempt),
			)
		}

		body, err := c.getAttempt(ctx, url)
		if err == nil {
			c.store(url, body)
			return body, nil
		}

		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// getAttempt performs a single GET
func (c *Client) getAttempt(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewNetworkError("failed to create GET request", url, err)
	}

	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	logging.LogHTTPRequest(http.MethodGet, url, nil)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewNetworkError("GET request failed", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, NewNetworkError("failed to read response body", url, err)
	}

	logging.LogHTTPResponse(url, resp.StatusCode, len(body))

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, url, fmt.Sprintf("unexpected status code: %d", resp.StatusCode))
	}

	return body, nil
}

func (c *Client) cached(url string) ([]byte, bool) {
	if c.CacheDuration <= 0 {
		return nil, false
	}

	c.cacheMutex.RLock()
	defer c.cacheMutex.RUnlock()

	entry, ok := c.cache[url]
	if !ok || time.Since(entry.fetched) >= c.CacheDuration {
		return nil, false
	}
	return entry.body, true
}

func (c *Client) store(url string, body []byte) {
	if c.CacheDuration <= 0 {
		return
	}

	c.cacheMutex.Lock()
	if c.cache == nil {
		c.cache = make(map[string]cacheEntry)
	}
	c.cache[url] = cacheEntry{body: body, fetched: time.Now()}
	c.cacheMutex.Unlock()
}
