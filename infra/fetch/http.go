// Package fetch implements the network side of prefetching: a GET request
// whose body is drained and discarded so the response lands in whatever
// HTTP cache sits between the service and the origin.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kilianp07/prefetch/auth"
	"github.com/kilianp07/prefetch/infra/logger"
)

// Config defines the transport settings.
type Config struct {
	// BaseURL is prepended to relative resource keys such as "/api/products".
	BaseURL string `json:"base_url" yaml:"base_url"`
	// TimeoutSeconds bounds each attempt. Zero disables the timeout.
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int               `json:"max_retries" yaml:"max_retries"`
	BackoffMS      int               `json:"backoff_ms" yaml:"backoff_ms"`
	UserAgent      string            `json:"user_agent" yaml:"user_agent"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	// DryRun logs the requests instead of sending them.
	DryRun bool `json:"dry_run" yaml:"dry_run"`
	// Auth enables OAuth2 client-credentials tokens on every request.
	Auth auth.Conf `json:"auth" yaml:"auth"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = "prefetch/1.0"
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks the base URL and numeric bounds.
func (c Config) Validate() error {
	if c.BaseURL != "" {
		u, err := url.Parse(c.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid base_url %q", c.BaseURL)
		}
	}
	if c.TimeoutSeconds < 0 || c.MaxRetries < 0 {
		return fmt.Errorf("timeout_seconds and max_retries must be >= 0")
	}
	return nil
}

// StatusError reports a non-2xx/3xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("prefetch %s: unexpected status %d", e.URL, e.Code)
}

// HTTPFetcher issues prefetch GET requests.
type HTTPFetcher struct {
	client     *http.Client
	base       string
	userAgent  string
	headers    map[string]string
	maxRetries int
	backoff    time.Duration
	auth       *auth.ClientCred
	log        logger.Logger
}

// NewHTTPFetcher builds a fetcher from cfg. A nil client uses a dedicated
// http.Client with the configured timeout.
func NewHTTPFetcher(cfg Config, client *http.Client) *HTTPFetcher {
	cfg.SetDefaults()
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}
	}
	f := &HTTPFetcher{
		client:     client,
		base:       strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		headers:    cfg.Headers,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        logger.New("fetcher"),
	}
	if cfg.Auth.Enabled() {
		f.auth = auth.NewClientCred(cfg.Auth)
	}
	return f
}

// Resolve turns a resource key into an absolute URL.
func (f *HTTPFetcher) Resolve(key string) string {
	if f.base == "" || strings.Contains(key, "://") {
		return key
	}
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	return f.base + key
}

// Fetch requests key, retrying transport errors and 5xx responses with
// exponential backoff. Context cancellation stops retries.
func (f *HTTPFetcher) Fetch(ctx context.Context, key string) error {
	target := f.Resolve(key)
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.backoff * time.Duration(1<<(attempt-1))):
			}
		}
		retry, err := f.do(ctx, target)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
		f.log.Debugf("prefetch attempt %d for %s failed: %v", attempt+1, target, err)
	}
	return lastErr
}

func (f *HTTPFetcher) do(ctx context.Context, target string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Sec-Purpose", "prefetch")
	req.Header.Set("Purpose", "prefetch")
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}
	if f.auth != nil {
		if err := f.auth.SetAuthHeader(req); err != nil {
			return ctx.Err() == nil, err
		}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return true, fmt.Errorf("drain body: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized && f.auth != nil {
		f.auth.Invalidate()
		return true, &StatusError{URL: target, Code: resp.StatusCode}
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode >= 500, &StatusError{URL: target, Code: resp.StatusCode}
	}
	return false, nil
}

// DryRunFetcher logs what would be fetched and always succeeds.
type DryRunFetcher struct {
	log logger.Logger
}

func NewDryRunFetcher(log logger.Logger) *DryRunFetcher {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &DryRunFetcher{log: log}
}

func (d *DryRunFetcher) Fetch(_ context.Context, key string) error {
	d.log.Infof("dry-run prefetch %s", key)
	return nil
}
