// Package transport fetches raw bytes for patch definitions and patch bodies.
//
// It is the only package that talks to the network or reads patch files from
// disk. Callers that want memoization go through internal/cache.
package transport

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Transport fetches the content addressed by a URL or path.
type Transport interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPClient abstracts HTTP operations for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultHTTPClient sends requests with http.DefaultClient.
type DefaultHTTPClient struct{}

func (DefaultHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return http.DefaultClient.Do(req)
}

// Error is returned for every failed fetch. It is never retried by the cache.
type Error struct {
	URL       string
	Operation string
	Err       error
	Hint      string
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s failed: %s", e.URL, e.Operation, e.Err)
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Mux dispatches to HTTP or File depending on the URL scheme.
// Anything that is not http(s) is treated as a file.
type Mux struct {
	HTTP Transport
	File Transport
}

func (m *Mux) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if IsRemote(rawURL) {
		if m.HTTP == nil {
			return nil, &Error{URL: rawURL, Operation: "fetch", Err: fmt.Errorf("no http transport configured")}
		}
		return m.HTTP.Fetch(ctx, rawURL)
	}
	if m.File == nil {
		return nil, &Error{URL: rawURL, Operation: "fetch", Err: fmt.Errorf("no file transport configured")}
	}
	return m.File.Fetch(ctx, rawURL)
}

// IsRemote reports whether rawURL uses the http or https scheme.
func IsRemote(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
