// Package cache memoizes remote patch content for the lifetime of one run.
//
// Entries are keyed by the URL verbatim and never evicted or refreshed: the
// first successful fetch of a URL wins for the rest of the process.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/bianoble/composer-patches/internal/logging"
	"github.com/bianoble/composer-patches/internal/transport"
)

// Cache wraps a Transport and remembers every successful fetch.
type Cache struct {
	transport transport.Transport
	logger    *zap.Logger

	mu      sync.Mutex
	entries map[string][]byte
	fetches int
}

// New creates a Cache on top of t.
func New(t transport.Transport, logger *zap.Logger) *Cache {
	return &Cache{
		transport: t,
		logger:    logging.OrNop(logger),
		entries:   make(map[string][]byte),
	}
}

// Bytes returns the content at url, fetching it on first use.
// Transport failures are returned unchanged and are not cached.
func (c *Cache) Bytes(ctx context.Context, url string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if data, ok := c.entries[url]; ok {
		c.logger.Debug("cache hit", zap.String(logging.KeyURL, url))
		return data, nil
	}

	c.fetches++
	data, err := c.transport.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	c.entries[url] = data
	c.logger.Debug("cache store", zap.String(logging.KeyURL, url), zap.Int("bytes", len(data)))
	return data, nil
}

// JSON decodes the document at url into v.
// A document that fails to decode stays cached as bytes; decoding is not a fetch.
func (c *Cache) JSON(ctx context.Context, url string, v any) error {
	data, err := c.Bytes(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding json from %s: %w", url, err)
	}
	return nil
}

// Len returns the number of cached URLs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetches returns how many times the underlying transport was called.
func (c *Cache) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// ComputeHash computes the SHA256 hash of content and returns the hex string.
func ComputeHash(content []byte) string {
	h := sha256.Sum256(content)
	return hex.EncodeToString(h[:])
}
