package flipper

import (
	"sync"

	"github.com/gregkdunn/flipper-mcp/internal/domain"
)

// ResultCache maps a content fingerprint to a previously computed analysis
// result. It is a pure optimization: clearing it never changes observable
// behavior. Entries are written on miss and never updated in place, so
// last-writer-wins on a fingerprint is harmless; results for the same
// fingerprint are always identical.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[uint64]*domain.AnalysisResult
}

// NewResultCache creates an empty result cache.
func NewResultCache() *ResultCache {
	return &ResultCache{
		entries: make(map[uint64]*domain.AnalysisResult),
	}
}

// Get returns the cached result for the given fingerprint, if present.
func (c *ResultCache) Get(fingerprint uint64) (*domain.AnalysisResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.entries[fingerprint]
	return result, ok
}

// Put stores a result under the given fingerprint.
func (c *ResultCache) Put(fingerprint uint64, result *domain.AnalysisResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = result
}

// Clear drops all entries atomically. Collaborators watching the underlying
// files must call this whenever content changes; the cache has no TTL or
// staleness detection of its own.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*domain.AnalysisResult)
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
