package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the Neon API root.
	DefaultBaseURL = "https://console.neon.tech/api/v2"

	requestTimeout     = 10 * time.Second
	defaultMaxAttempts = 5
	defaultBackoff     = 500 * time.Millisecond
	maxBackoff         = 10 * time.Second
)

var errTransport = errors.New("transport error")

// HTTPError is a non-2xx response.
type HTTPError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d: %s", e.Path, e.StatusCode, truncate(e.Body, 200))
}

// Temporary reports whether the request may succeed if retried.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// ClientConfig configures a Client. Zero values select the defaults.
type ClientConfig struct {
	BaseURL     string
	Token       string
	UserAgent   string
	HTTPClient  *http.Client
	MaxAttempts int
	Backoff     time.Duration
}

// Client is an authenticated, retrying client for the Neon API.
type Client struct {
	baseURL     string
	token       string
	userAgent   string
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
}

// NewClient creates a Client.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		token:       cfg.Token,
		userAgent:   cfg.UserAgent,
		httpClient:  cfg.HTTPClient,
		maxAttempts: cfg.MaxAttempts,
		backoff:     cfg.Backoff,
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: requestTimeout}
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.backoff <= 0 {
		c.backoff = defaultBackoff
	}
	return c
}

// Get performs an authenticated GET and returns the response body.
// Transport failures, 429 and 5xx responses are retried with exponential
// backoff; other errors are returned immediately.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		body, retryAfter, err := c.get(ctx, path, params)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !retryable(err) || attempt >= c.maxAttempts {
			return nil, err
		}

		wait := c.wait(attempt, retryAfter)
		log.Printf("Client: %v (attempt %d/%d), retrying in %s", err, attempt, c.maxAttempts, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, time.Duration, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s: %w: %w", path, errTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("reading response: %w: %w", errTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), &HTTPError{
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}
	return body, 0, nil
}

func (c *Client) wait(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return min(retryAfter, maxBackoff)
	}
	d := c.backoff << (attempt - 1)
	if d <= 0 || d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func retryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	return errors.Is(err, errTransport)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		return time.Until(t)
	}
	return 0
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
