package graph

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-context/src/internal/types"
	"graph-context/src/server/cache"
)

func snippetRequest(key, symbol, uri, content string) *types.SnippetRequest {
	return &types.SnippetRequest{
		Key:     key,
		Symbol:  symbol,
		URI:     uri,
		Content: content,
	}
}

func cacheEntry(defs *cache.DefinitionCache, uri, symbol, content string) string {
	return defs.Put(&cache.DefinitionEntry{
		Symbol:  symbol,
		Content: content,
		Location: types.Location{URI: uri, Range: types.Range{
			Start: types.Position{Line: 0, Character: 0},
			End:   types.Position{Line: 0, Character: int32(len(content))},
		}},
	})
}

func TestAssembleMergesRelatedContentAheadOfOwn(t *testing.T) {
	defs := cache.NewDefinitionCache(16)
	widgetKey := cacheEntry(defs, "file:///b.go", "Widget", "type Widget struct{ g Gear }")
	gearKey := cacheEntry(defs, "file:///c.go", "Gear", "type Gear struct{ n int }")
	defs.AddRelated(widgetKey, gearKey)

	out := NewAssembler(defs).Assemble([]*types.SnippetRequest{
		snippetRequest(widgetKey, "Widget", "file:///b.go", "type Widget struct{ g Gear }"),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "type Gear struct{ n int }\ntype Widget struct{ g Gear }", out[0].Content,
		"dependencies come before the definition that uses them")
}

func TestAssembleDeduplicatesByKey(t *testing.T) {
	defs := cache.NewDefinitionCache(16)

	out := NewAssembler(defs).Assemble([]*types.SnippetRequest{
		snippetRequest("k1", "Foo", "file:///a.go", "type Foo struct{}"),
		snippetRequest("k2", "Bar", "file:///a.go", "type Bar struct{}"),
		snippetRequest("k1", "Foo", "file:///a.go", "type Foo struct{}"),
		nil,
		snippetRequest("", "Anon", "file:///a.go", "x"),
	})

	require.Len(t, out, 2)
	assert.Equal(t, "Foo", out[0].Symbol)
	assert.Equal(t, "Bar", out[1].Symbol, "first-arrival order is preserved")
}

func TestAssembleSkipsEvictedAndEmptyRelated(t *testing.T) {
	defs := cache.NewDefinitionCache(16)
	key := cacheEntry(defs, "file:///b.go", "Widget", "type Widget struct{}")
	defs.AddRelated(key, "file:///gone.go::0:0")

	out := NewAssembler(defs).Assemble([]*types.SnippetRequest{
		snippetRequest(key, "Widget", "file:///b.go", "type Widget struct{}"),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "type Widget struct{}", out[0].Content)
}

// Concurrent retrievals resolve (growing related-key sets through the
// engine) while others assemble from the same cache set. Run with -race:
// assembly must never observe the live related-key map mid-write.
func TestConcurrentResolveAndAssemble(t *testing.T) {
	fx := newFixture()
	req, widgetLoc, gearLoc := fx.widgetScenario()
	asm := NewAssembler(fx.caches.Definitions)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				if j%5 == 0 {
					// Force re-resolution so related keys are re-recorded
					// while other goroutines are mid-assembly.
					fx.caches.InvalidateDocument(uriB)
				}
				snippets := fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 2)
				asm.Assemble(snippets)
			}
		}()
	}
	wg.Wait()

	// Cold resolve so the full expansion (not just the cached root) is
	// returned for the final sanity check.
	fx.caches.Purge()
	snippets := fx.engine.ResolveSymbols(context.Background(), []types.SymbolRequest{req}, 2)
	assembled := asm.Assemble(snippets)
	keys := make(map[string]bool)
	for _, s := range snippets {
		keys[s.Key] = true
	}
	assert.True(t, keys[types.DefinitionKey(widgetLoc)])
	assert.True(t, keys[types.DefinitionKey(gearLoc)])
	assert.NotEmpty(t, assembled)
}

func TestAssemblePassesThroughUncachedContent(t *testing.T) {
	defs := cache.NewDefinitionCache(16)

	out := NewAssembler(defs).Assemble([]*types.SnippetRequest{
		snippetRequest("file:///x.go::3:0", "Thing", "file:///x.go", "func Thing() {}"),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "func Thing() {}", out[0].Content)
}
