package engine

import "sync"

// History remembers which declarer->target pairs were already processed in
// one run, and which declarers failed to resolve. Apply and restore passes each get their own History.
type History struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	failed map[string]struct{}
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{seen: make(map[string]struct{}), failed: make(map[string]struct{})}
}

// Key builds the history key for a declaring package and a target package.
func Key(declarer, target string) string {
	return declarer + "->" + target
}

// Seen reports whether key was marked.
func (h *History) Seen(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.seen[key]
	return ok
}

// Mark records key as processed.
func (h *History) Mark(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen[key] = struct{}{}
}

// MarkFailed records that a declaring package's patches could not be
// resolved. The declarer is skipped for the rest of the run.
func (h *History) MarkFailed(declarer string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed[declarer] = struct{}{}
}

// Failed reports whether declarer was marked as failed.
func (h *History) Failed(declarer string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.failed[declarer]
	return ok
}

// Len returns the number of marked keys.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}
