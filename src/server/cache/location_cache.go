package cache

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"graph-context/src/internal/common"
	"graph-context/src/internal/types"
)

// keySep joins the requesting document URI with the positional sub-key. A
// unit separator cannot occur in either part.
const keySep = "\x1f"

// LocationCache memoizes resolved locations per symbol request. The sub-key
// incorporates position, syntax kind and symbol name, not just position: the
// same position resolved under a different assumed kind may use a different
// provider and yield different locations.
//
// Besides the per-request-document key set, the cache keeps a reverse index
// from *target* document to keys, so that when a document changes, entries
// in other documents' buckets that resolved into it are evicted too.
type LocationCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, []types.Location]

	byRequestDoc map[string]map[string]struct{}
	byTargetDoc  map[string]map[string]struct{}

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewLocationCache creates a location cache holding at most capacity request
// entries under global LRU eviction.
func NewLocationCache(capacity int) *LocationCache {
	c := &LocationCache{
		byRequestDoc: make(map[string]map[string]struct{}),
		byTargetDoc:  make(map[string]map[string]struct{}),
	}
	c.entries, _ = lru.NewWithEvict[string, []types.Location](capacity, c.onEvict)
	return c
}

func compositeKey(req types.SymbolRequest) string {
	return req.URI + keySep + types.LocationKey(req)
}

func requestDocOf(key string) string {
	if i := strings.Index(key, keySep); i >= 0 {
		return key[:i]
	}
	return key
}

func (c *LocationCache) onEvict(key string, locations []types.Location) {
	c.evictions++
	dropIndexKey(c.byRequestDoc, requestDocOf(key), key)
	for _, loc := range locations {
		dropIndexKey(c.byTargetDoc, loc.URI, key)
	}
}

// Get returns the memoized locations for a request.
func (c *LocationCache) Get(req types.SymbolRequest) ([]types.Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	locations, ok := c.entries.Get(compositeKey(req))
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return locations, ok
}

// Put memoizes a non-empty provider result. Empty results are deliberately
// not cached: the editor state may change and a later call should retry.
func (c *LocationCache) Put(req types.SymbolRequest, locations []types.Location) {
	if len(locations) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := compositeKey(req)
	// Replacing an entry must not leave stale reverse-index keys behind.
	if old, ok := c.entries.Peek(key); ok {
		for _, loc := range old {
			dropIndexKey(c.byTargetDoc, loc.URI, key)
		}
	}
	c.entries.Add(key, locations)
	addIndexKey(c.byRequestDoc, req.URI, key)
	for _, loc := range locations {
		addIndexKey(c.byTargetDoc, loc.URI, key)
	}
}

// Delete removes one entry by exact request.
func (c *LocationCache) Delete(req types.SymbolRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(compositeKey(req))
}

// InvalidateDocument evicts every entry requested from the document plus,
// via the reverse index, every entry in any bucket whose resolved locations
// target the document.
func (c *LocationCache) InvalidateDocument(uri string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	doomed := make(map[string]struct{}, len(c.byRequestDoc[uri])+len(c.byTargetDoc[uri]))
	for key := range c.byRequestDoc[uri] {
		doomed[key] = struct{}{}
	}
	for key := range c.byTargetDoc[uri] {
		doomed[key] = struct{}{}
	}
	for key := range doomed {
		// Remove fires onEvict, which maintains both indexes.
		c.entries.Remove(key)
	}
	if len(doomed) > 0 {
		common.GraphLogger.Debug("location cache: evicted %d entries for %s", len(doomed), uri)
	}
	return len(doomed)
}

// Len returns the number of cached requests.
func (c *LocationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Purge drops every entry.
func (c *LocationCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.byRequestDoc = make(map[string]map[string]struct{})
	c.byTargetDoc = make(map[string]map[string]struct{})
}

// Stats returns cache counters for diagnostics.
func (c *LocationCache) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]interface{}{
		"entries":   c.entries.Len(),
		"hits":      c.hits,
		"misses":    c.misses,
		"evictions": c.evictions,
	}
}
