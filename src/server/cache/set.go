package cache

// Set bundles the two retrieval caches. A Set is owned by the retriever that
// constructed it rather than living as package state, so tests and multiple
// workspaces never share entries. Lifetime is the retriever's: construct on
// creation, Purge on teardown.
type Set struct {
	Definitions *DefinitionCache
	Locations   *LocationCache
}

// NewSet creates both caches. Capacities follow the flat-LRU design: a
// single global capacity of maxDocuments * maxEntriesPerDoc entries per
// cache, with per-document key sets for targeted invalidation.
func NewSet(maxDocuments, maxEntriesPerDoc int) *Set {
	capacity := maxDocuments * maxEntriesPerDoc
	if capacity <= 0 {
		capacity = 1
	}
	return &Set{
		Definitions: NewDefinitionCache(capacity),
		Locations:   NewLocationCache(capacity),
	}
}

// InvalidateDocument evicts all cached state touching the given document:
// its own definition bucket, plus every location entry that either was
// requested from it or resolved into it. It runs synchronously relative to
// the change notification so no retrieval started afterwards can observe
// stale content for the document.
func (s *Set) InvalidateDocument(uri string) {
	s.Definitions.InvalidateDocument(uri)
	s.Locations.InvalidateDocument(uri)
}

// Purge clears both caches.
func (s *Set) Purge() {
	s.Definitions.Purge()
	s.Locations.Purge()
}

// Stats aggregates counters from both caches.
func (s *Set) Stats() map[string]interface{} {
	return map[string]interface{}{
		"definitions": s.Definitions.Stats(),
		"locations":   s.Locations.Stats(),
	}
}
