package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bianoble/composer-patches/internal/logging"
)

// HTTPTransport fetches http(s) URLs with bounded retries.
type HTTPTransport struct {
	Client  HTTPClient
	MaxSize int64         // max body size in bytes (0 = no limit)
	Timeout time.Duration // per-attempt timeout (0 = no extra timeout beyond context)
	Retry   RetryConfig
	Logger  *zap.Logger
}

func (h *HTTPTransport) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	log := h.logger()
	delay := h.Retry.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= h.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := applyJitter(delay, h.Retry.JitterFrac)
			log.Debug("retrying fetch", zap.String(logging.KeyURL, rawURL), zap.Int("attempt", attempt), zap.Duration("delay", wait))
			select {
			case <-ctx.Done():
				return nil, &Error{URL: rawURL, Operation: "fetch", Err: ctx.Err()}
			case <-time.After(wait):
			}
			delay = h.Retry.next(delay)
		}

		content, retry, err := h.fetchOnce(ctx, rawURL)
		if err == nil {
			log.Debug("fetched", zap.String(logging.KeyURL, rawURL), zap.Int("bytes", len(content)))
			return content, nil
		}
		lastErr = err
		if !retry {
			break
		}
	}

	return nil, lastErr
}

// fetchOnce performs a single request. The bool reports whether the failure is transient.
func (h *HTTPTransport) fetchOnce(ctx context.Context, rawURL string) ([]byte, bool, error) {
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	client := h.Client
	if client == nil {
		client = DefaultHTTPClient{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, &Error{URL: rawURL, Operation: "fetch", Err: fmt.Errorf("creating request: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		retry := !errors.Is(err, context.Canceled)
		return nil, retry, &Error{URL: rawURL, Operation: "fetch", Err: err, Hint: "check network connectivity and URL"}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, isRetryableStatus(resp.StatusCode), &Error{
			URL:       rawURL,
			Operation: "fetch",
			Err:       fmt.Errorf("HTTP %d", resp.StatusCode),
			Hint:      "check that the URL is accessible",
		}
	}

	var reader io.Reader = resp.Body
	if h.MaxSize > 0 {
		reader = io.LimitReader(resp.Body, h.MaxSize+1)
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, true, &Error{URL: rawURL, Operation: "fetch", Err: fmt.Errorf("reading response: %w", err)}
	}

	if h.MaxSize > 0 && int64(len(content)) > h.MaxSize {
		return nil, false, &Error{
			URL:       rawURL,
			Operation: "fetch",
			Err:       fmt.Errorf("content exceeds max size %d bytes", h.MaxSize),
			Hint:      "raise http.max_size",
		}
	}

	return content, false, nil
}

func (h *HTTPTransport) logger() *zap.Logger {
	return logging.OrNop(h.Logger)
}
