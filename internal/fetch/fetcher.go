// Package fetch provides the throttled, retrying HTTP client shared by all
// source adapters. A Fetcher is constructed once per process and injected,
// never held as package-level mutable state, so tests can build isolated
// instances.
package fetch

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openamenity/amenity-ingest/internal/core/domain"
	"github.com/openamenity/amenity-ingest/internal/core/ports/driven"
	"github.com/openamenity/amenity-ingest/internal/logger"
)

const (
	// DefaultTimeout is the per-attempt request timeout.
	DefaultTimeout = 20 * time.Second

	// DefaultMaxRetries is the maximum number of attempts per fetch.
	DefaultMaxRetries = 3

	// DefaultMaxInFlight is the global cap on simultaneous requests.
	DefaultMaxInFlight = 3

	// HostInterval is the minimum gap between requests to the same hostname.
	HostInterval = time.Second

	// backoffBase is the unit of exponential backoff between attempts.
	backoffBase = time.Second

	// jitterMax is the upper bound of the random jitter added to backoff.
	jitterMax = 500 * time.Millisecond
)

// Ensure Fetcher implements the interface.
var _ driven.Fetcher = (*Fetcher)(nil)

// Fetcher is a rate-limited, retrying HTTP client.
type Fetcher struct {
	client     *http.Client
	timeout    time.Duration
	maxRetries int
	inflight   chan struct{}

	mu    sync.Mutex
	hosts map[string]*rate.Limiter
}

// Option customises a Fetcher.
type Option func(*Fetcher)

// WithClient sets the underlying HTTP client. The CLI supplies an oauth2
// client here when a source carries a static API token.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) { f.client = client }
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) { f.timeout = timeout }
}

// WithMaxRetries sets the maximum number of attempts per fetch.
func WithMaxRetries(retries int) Option {
	return func(f *Fetcher) { f.maxRetries = retries }
}

// WithMaxInFlight sets the global cap on simultaneous requests.
func WithMaxInFlight(n int) Option {
	return func(f *Fetcher) { f.inflight = make(chan struct{}, n) }
}

// New creates a Fetcher with the default limits.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:     &http.Client{},
		timeout:    DefaultTimeout,
		maxRetries: DefaultMaxRetries,
		inflight:   make(chan struct{}, DefaultMaxInFlight),
		hosts:      make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(f)
	}
	// A fetch always makes at least one attempt.
	if f.maxRetries < 1 {
		f.maxRetries = 1
	}
	return f
}

// Fetch performs an HTTP request with per-hostname spacing, a global
// in-flight cap and retry with exponential backoff plus jitter. Exhausting
// retries yields an error wrapping domain.ErrSourceUnavailable, which is
// non-fatal to the run.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts driven.FetchOptions) ([]byte, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: parse url: %w", domain.ErrSourceUnavailable, err)
	}
	limiter := f.hostLimiter(parsed.Hostname())

	var lastErr error
	for attempt := 1; attempt <= f.maxRetries; attempt++ {
		if attempt > 1 {
			if err := f.backoff(ctx, attempt); err != nil {
				return nil, err
			}
			logger.Debug("Retrying %s (attempt %d/%d)", rawURL, attempt, f.maxRetries)
		}

		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		body, err := f.attempt(ctx, rawURL, opts)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		logger.Warn("Fetch %s failed: %v", rawURL, err)
	}

	return nil, fmt.Errorf("%w: %d attempts: %w", domain.ErrSourceUnavailable, f.maxRetries, lastErr)
}

// attempt performs a single request with its own timeout.
func (f *Fetcher) attempt(ctx context.Context, rawURL string, opts driven.FetchOptions) ([]byte, error) {
	select {
	case f.inflight <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-f.inflight }()

	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if opts.Body != "" {
		body = strings.NewReader(opts.Body)
	}

	req, err := http.NewRequestWithContext(attemptCtx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, values := range opts.Header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return payload, nil
}

// backoff sleeps for 2^(attempt-2) seconds plus up to 500ms of jitter
// before retry attempt N, honouring cancellation.
func (f *Fetcher) backoff(ctx context.Context, attempt int) error {
	delay := backoffBase<<(attempt-2) + time.Duration(rand.Int63n(int64(jitterMax)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

// hostLimiter returns the rate limiter for a hostname, creating it on first
// use. Each host is limited to one request per HostInterval.
func (f *Fetcher) hostLimiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	limiter, ok := f.hosts[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(HostInterval), 1)
		f.hosts[host] = limiter
	}
	return limiter
}
