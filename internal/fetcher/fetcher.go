// Package fetcher performs the GET requests behind URL resolution, with retries
// on transient failures and an optional on-disk cache.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/pfczx/legiurls/internal/cache"
	"github.com/pfczx/legiurls/internal/logger"
)

// DefaultUserAgent identifies the tool to the legislative sites.
const DefaultUserAgent = "legiurls (+https://github.com/pfczx/legiurls)"

const (
	defaultRetries = 5
	defaultBackoff = time.Second
	defaultTimeout = 30 * time.Second
)

// ErrFetchFailed is returned once every attempt for a URL has failed.
var ErrFetchFailed = errors.New("fetch failed")

// StatusError reports a 5xx answer.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error %d for %s", e.StatusCode, e.URL)
}

// Config holds the request policy.
type Config struct {
	UserAgent string
	// Retries is the number of extra attempts after the first one.
	Retries int
	// Backoff is the fixed wait between attempts.
	Backoff time.Duration
	// Timeout bounds a single attempt when the fetcher builds its own client.
	Timeout time.Duration
}

// DefaultConfig returns the documented defaults: 5 retries, 1s apart.
func DefaultConfig() Config {
	return Config{
		UserAgent: DefaultUserAgent,
		Retries:   defaultRetries,
		Backoff:   defaultBackoff,
		Timeout:   defaultTimeout,
	}
}

// Fetcher issues GET requests. It is safe for concurrent use.
type Fetcher struct {
	cfg    Config
	client *http.Client
	cache  *cache.Store
	log    logger.Interface
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithCache enables the on-disk cache. Without it every call hits the network.
func WithCache(s *cache.Store) Option {
	return func(f *Fetcher) { f.cache = s }
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithLogger injects the logger used for retries and cache traces.
func WithLogger(l logger.Interface) Option {
	return func(f *Fetcher) { f.log = l }
}

// New returns a Fetcher.
func New(cfg Config, opts ...Option) *Fetcher {
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	f := &Fetcher{cfg: cfg, log: logger.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: cfg.Timeout}
	}
	return f
}

// Fetch GETs url, following redirects. Connection failures and 5xx answers are
// retried; any other status is returned as is.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	if f.cache != nil {
		if e, ok := f.cache.Lookup(url); ok {
			f.log.Debug("cache hit", "url", url)
			return fromEntry(e), nil
		}
		f.log.Debug("cache miss", "url", url)
	}

	var resp *Response
	operation := func() error {
		r, err := f.get(ctx, url)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.log.Warn("fetch attempt failed, retrying", "url", url, "error", err, "wait", wait)
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.cfg.Backoff), uint64(f.cfg.Retries)),
		ctx,
	)
	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetchFailed, url, err)
	}

	if f.cache != nil {
		if err := f.cache.Store(url, resp.entry()); err != nil {
			f.log.Warn("cache write failed", "url", url, "error", err)
		}
	}
	return resp, nil
}

func (f *Fetcher) get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	res, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusInternalServerError && res.StatusCode < 600 {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil, &StatusError{URL: url, StatusCode: res.StatusCode}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	final := url
	if res.Request != nil && res.Request.URL != nil {
		final = res.Request.URL.String()
	}
	return &Response{
		StatusCode: res.StatusCode,
		Content:    body,
		Encoding:   encodingOf(res.Header.Get("Content-Type")),
		URL:        final,
	}, nil
}
