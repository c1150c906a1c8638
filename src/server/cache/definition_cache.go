package cache

import (
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"graph-context/src/internal/common"
	"graph-context/src/internal/types"
)

// DefinitionEntry is one memoized snippet extraction. Identity is the
// resolved definition's location, so two identifier occurrences resolving to
// the same definition share one entry.
type DefinitionEntry struct {
	Symbol   string
	Location types.Location
	Content  string

	// RelatedKeys is the set of definition keys reached while expanding
	// this definition's snippet. It keeps growing as later retrievals pass
	// through this entry, cache hit or not. Never contains the entry's own
	// key.
	RelatedKeys map[string]struct{}
}

// DefinitionCache memoizes extracted snippet text per resolved definition
// location. It is a single flat LRU keyed by the composite definition key,
// with a per-document key set maintained alongside so a changed document's
// entries can be evicted without scanning the whole cache.
type DefinitionCache struct {
	mu      sync.Mutex
	entries *lru.Cache[string, *DefinitionEntry]
	byDoc   map[string]map[string]struct{}

	hits      uint64
	misses    uint64
	evictions uint64
}

// NewDefinitionCache creates a definition cache holding at most capacity
// entries under global LRU eviction.
func NewDefinitionCache(capacity int) *DefinitionCache {
	c := &DefinitionCache{byDoc: make(map[string]map[string]struct{})}
	// The callback runs inside Add/Remove calls made under c.mu, so it
	// touches the index without taking the lock itself.
	c.entries, _ = lru.NewWithEvict[string, *DefinitionEntry](capacity, c.onEvict)
	return c
}

func (c *DefinitionCache) onEvict(key string, entry *DefinitionEntry) {
	c.evictions++
	dropIndexKey(c.byDoc, entry.Location.URI, key)
}

// Get returns the entry for a definition key, marking it recently used.
func (c *DefinitionCache) Get(key string) (*DefinitionEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Get(key)
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return entry, ok
}

// Put stores an extraction result under the key derived from its location.
// Returns the key.
func (c *DefinitionCache) Put(entry *DefinitionEntry) string {
	key := types.DefinitionKey(entry.Location)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.RelatedKeys == nil {
		entry.RelatedKeys = make(map[string]struct{})
	}
	// Re-extraction must not discard linkage accumulated by a concurrent
	// branch that stored this definition first.
	if existing, ok := c.entries.Peek(key); ok {
		for k := range existing.RelatedKeys {
			entry.RelatedKeys[k] = struct{}{}
		}
	}
	delete(entry.RelatedKeys, key)
	c.entries.Add(key, entry)
	addIndexKey(c.byDoc, entry.Location.URI, key)
	return key
}

// AddRelated records that childKey was reached while expanding the
// definition behind parentKey. Self-references are filtered here so a
// snippet never concatenates its own content twice. Unknown parents are a
// no-op: the parent may have been evicted mid-traversal.
func (c *DefinitionCache) AddRelated(parentKey, childKey string) {
	if parentKey == childKey {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Peek(parentKey)
	if !ok {
		return
	}
	if entry.RelatedKeys == nil {
		entry.RelatedKeys = make(map[string]struct{})
	}
	entry.RelatedKeys[childKey] = struct{}{}
}

// Related returns a sorted snapshot of the keys recorded as related to the
// given definition. Readers must use this instead of the live entry's map:
// AddRelated keeps growing that map while other retrievals run.
func (c *DefinitionCache) Related(key string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries.Peek(key)
	if !ok || len(entry.RelatedKeys) == 0 {
		return nil
	}
	out := make([]string, 0, len(entry.RelatedKeys))
	for k := range entry.RelatedKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Delete removes one entry by exact key.
func (c *DefinitionCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Remove(key)
}

// InvalidateDocument evicts every entry whose definition lives in the given
// document.
func (c *DefinitionCache) InvalidateDocument(uri string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.byDoc[uri]
	n := len(keys)
	for key := range keys {
		c.entries.Remove(key)
	}
	delete(c.byDoc, uri)
	if n > 0 {
		common.GraphLogger.Debug("definition cache: evicted %d entries for %s", n, uri)
	}
	return n
}

// Len returns the number of cached definitions.
func (c *DefinitionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

// Purge drops every entry.
func (c *DefinitionCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries.Purge()
	c.byDoc = make(map[string]map[string]struct{})
}

// Stats returns cache counters for diagnostics.
func (c *DefinitionCache) Stats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]interface{}{
		"entries":   c.entries.Len(),
		"documents": len(c.byDoc),
		"hits":      c.hits,
		"misses":    c.misses,
		"evictions": c.evictions,
	}
}

func addIndexKey(index map[string]map[string]struct{}, doc, key string) {
	keys, ok := index[doc]
	if !ok {
		keys = make(map[string]struct{})
		index[doc] = keys
	}
	keys[key] = struct{}{}
}

func dropIndexKey(index map[string]map[string]struct{}, doc, key string) {
	keys, ok := index[doc]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(index, doc)
	}
}
