package driven

import (
	"context"
	"net/http"
)

// Fetcher is a throttled, retrying HTTP/JSON client shared by all source
// adapters. Implementations enforce per-hostname spacing and a global cap on
// in-flight requests independently of pipeline ordering.
type Fetcher interface {
	// Fetch performs an HTTP request and returns the response body.
	// Retries transient failures with exponential backoff; exhausting
	// retries returns an error wrapping domain.ErrSourceUnavailable.
	Fetch(ctx context.Context, url string, opts FetchOptions) ([]byte, error)
}

// FetchOptions customises a single fetch.
type FetchOptions struct {
	// Method is the HTTP method; empty means GET.
	Method string

	// Body is the request body for POST requests.
	Body string

	// Header is merged into the request headers.
	Header http.Header
}
