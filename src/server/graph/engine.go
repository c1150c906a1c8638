package graph

import (
	"context"
	"strings"
	"sync"

	"graph-context/src/internal/common"
	"graph-context/src/internal/registry"
	"graph-context/src/internal/types"
	"graph-context/src/server/cache"
)

// Engine resolves candidate identifiers to definition snippets and expands
// recursively through the identifiers found inside each snippet, up to a
// bounded depth. All language-server traffic flows through the resolver
// (and, inside it, the limiter); all results are memoized in the cache set.
type Engine struct {
	resolver       types.LocationResolver
	extractor      types.Extractor
	docs           types.DocumentReader
	caches         *cache.Set
	maxIdentifiers int
}

// NewEngine creates an expansion engine. maxIdentifiers bounds how many
// identifiers from one snippet are followed at the next depth.
func NewEngine(resolver types.LocationResolver, extractor types.Extractor, docs types.DocumentReader, caches *cache.Set, maxIdentifiers int) *Engine {
	if maxIdentifiers <= 0 {
		maxIdentifiers = 5
	}
	return &Engine{
		resolver:       resolver,
		extractor:      extractor,
		docs:           docs,
		caches:         caches,
		maxIdentifiers: maxIdentifiers,
	}
}

// traversal is the shared state of one recursive retrieval: the results
// gathered so far and the set of definition keys already expanded, which
// doubles as the cycle guard.
type traversal struct {
	mu      sync.Mutex
	visited map[string]struct{}
	results []*types.SnippetRequest
}

func (tr *traversal) add(snippet *types.SnippetRequest) {
	tr.mu.Lock()
	tr.results = append(tr.results, snippet)
	tr.mu.Unlock()
}

// claim marks a definition key as expanded and reports whether this caller
// was first. Only the first claimant recurses into a definition.
func (tr *traversal) claim(key string) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if _, seen := tr.visited[key]; seen {
		return false
	}
	tr.visited[key] = struct{}{}
	return true
}

// ResolveSymbols resolves every request and all of their transitive
// expansions within the depth budget. The returned list is unordered across
// siblings; callers must not rely on positional correspondence with the
// input. Cancellation returns whatever resolved so far.
func (e *Engine) ResolveSymbols(ctx context.Context, requests []types.SymbolRequest, depth int) []*types.SnippetRequest {
	tr := &traversal{visited: make(map[string]struct{})}
	e.resolveLevel(ctx, tr, requests, depth, nil)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]*types.SnippetRequest(nil), tr.results...)
}

// resolveLevel fans sibling requests out concurrently. Admission control
// lives in the limiter, so the fan-out itself is unbounded goroutines that
// immediately block on provider calls.
func (e *Engine) resolveLevel(ctx context.Context, tr *traversal, requests []types.SymbolRequest, depth int, parents map[string]struct{}) {
	var wg sync.WaitGroup
	for _, req := range requests {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(req types.SymbolRequest) {
			defer wg.Done()
			e.resolveSymbol(ctx, tr, req, depth, parents)
		}(req)
	}
	wg.Wait()
}

// getter pairs a provider call with a name for logging.
type getter struct {
	name    string
	resolve func(ctx context.Context, uri string, pos types.Position) []types.Location
}

// gettersFor returns the provider fallback order for a syntax kind.
// Property and type identifiers are best answered by a direct definition
// lookup; general references benefit from type or interface resolution
// first, with plain definition as the last resort.
func (e *Engine) gettersFor(kind types.SyntaxKind) []getter {
	definition := getter{"definition", e.resolver.ResolveDefinitions}
	typeDefinition := getter{"typeDefinition", e.resolver.ResolveTypeDefinitions}
	implementation := getter{"implementation", e.resolver.ResolveImplementations}

	if kind.PrefersDefinition() {
		return []getter{definition, typeDefinition, implementation}
	}
	return []getter{typeDefinition, implementation, definition}
}

func (e *Engine) resolveSymbol(ctx context.Context, tr *traversal, req types.SymbolRequest, depth int, parents map[string]struct{}) {
	if req.SymbolName == "" || req.URI == "" {
		// Malformed candidate; skip rather than fail the retrieval.
		return
	}

	// Location-cache check first: a hit skips every provider call.
	if cached, ok := e.caches.Locations.Get(req); ok && len(cached) > 0 {
		if snippet := e.resolveLocation(ctx, tr, req, cached[0], depth, parents); snippet != nil {
			tr.add(snippet)
		}
		return
	}

	var bare *types.SnippetRequest
	for _, g := range e.gettersFor(req.NodeType) {
		if ctx.Err() != nil {
			return
		}
		locations := g.resolve(ctx, req.URI, req.Position)
		if len(locations) == 0 {
			continue
		}
		e.caches.Locations.Put(req, locations)

		snippet := e.resolveLocation(ctx, tr, req, locations[0], depth, parents)
		if snippet == nil {
			continue
		}
		if snippet.Resolved() {
			tr.add(snippet)
			return
		}
		// Unhelpful extraction: remember the bare location and let the
		// next getter have a try at producing real content.
		if bare == nil {
			bare = snippet
		}
	}
	if bare != nil {
		tr.add(bare)
	}
}

// resolveLocation turns one resolved location into a snippet request,
// consulting the definition cache, extracting on a miss, maintaining parent
// linkage either way and recursing into the snippet's own identifiers while
// budget remains.
func (e *Engine) resolveLocation(ctx context.Context, tr *traversal, req types.SymbolRequest, loc types.Location, depth int, parents map[string]struct{}) *types.SnippetRequest {
	key := types.DefinitionKey(loc)

	// Even on a cache hit the reverse dependency graph keeps growing: this
	// definition was reached again, from possibly new ancestors.
	for parent := range parents {
		e.caches.Definitions.AddRelated(parent, key)
	}

	if entry, ok := e.caches.Definitions.Get(key); ok {
		return &types.SnippetRequest{
			Key:       key,
			URI:       loc.URI,
			StartLine: loc.Range.Start.Line,
			EndLine:   loc.Range.End.Line,
			Symbol:    entry.Symbol,
			Location:  loc,
			Content:   entry.Content,
		}
	}

	content := e.extractContent(ctx, req, loc)
	snippet := &types.SnippetRequest{
		Key:       key,
		URI:       loc.URI,
		StartLine: loc.Range.Start.Line,
		EndLine:   loc.Range.End.Line,
		Symbol:    req.SymbolName,
		Location:  loc,
		Content:   content,
	}
	if content == "" {
		// Keep the bare location rather than discarding the candidate, but
		// never cache a pending record.
		return snippet
	}

	e.caches.Definitions.Put(&cache.DefinitionEntry{
		Symbol:   req.SymbolName,
		Location: loc,
		Content:  content,
	})

	if depth > 0 && tr.claim(key) {
		children := e.childRequests(req, loc, content)
		if len(children) > 0 {
			childParents := make(map[string]struct{}, len(parents)+1)
			for p := range parents {
				childParents[p] = struct{}{}
			}
			childParents[key] = struct{}{}
			e.resolveLevel(ctx, tr, children, depth-1, childParents)
		}
	}
	return snippet
}

// childRequests re-runs the extractor over the extracted snippet text and
// translates the resulting positions by the definition's starting offset.
// The originating symbol is excluded so a definition never chases itself.
func (e *Engine) childRequests(req types.SymbolRequest, loc types.Location, content string) []types.SymbolRequest {
	lineCount := int32(strings.Count(content, "\n")) + 1
	identifiers := e.extractor.Extract(content, languageOf(loc.URI, req.LanguageID), types.LineWindow{StartLine: 0, EndLine: lineCount - 1})

	out := make([]types.SymbolRequest, 0, e.maxIdentifiers)
	for _, id := range identifiers {
		if id.Name == req.SymbolName {
			continue
		}
		pos := types.Position{Line: loc.Range.Start.Line + id.Position.Line, Character: id.Position.Character}
		if id.Position.Line == 0 {
			pos.Character += loc.Range.Start.Character
		}
		out = append(out, types.SymbolRequest{
			SymbolName: id.Name,
			URI:        loc.URI,
			Position:   pos,
			NodeType:   id.Kind,
			LanguageID: languageOf(loc.URI, req.LanguageID),
		})
		if len(out) == e.maxIdentifiers {
			break
		}
	}
	return out
}

// extractContent applies the kind-based extraction policy: verbatim source
// for property/type identifiers, hover code blocks with a source fallback
// for everything else. Returns "" when nothing helpful was found.
func (e *Engine) extractContent(ctx context.Context, req types.SymbolRequest, loc types.Location) string {
	if req.NodeType.PrefersDefinition() {
		return e.sourceText(req, loc)
	}

	blocks := e.resolver.ResolveHover(ctx, loc.URI, loc.Range.Start)
	if code := joinCodeBlocks(blocks); !isUnhelpful(code, req.SymbolName) {
		return code
	}
	return e.sourceText(req, loc)
}

func (e *Engine) sourceText(req types.SymbolRequest, loc types.Location) string {
	text, err := e.docs.RangeText(loc.URI, loc.Range)
	if err != nil {
		common.GraphLogger.Debug("no source text for %s: %v", loc.URI, err)
		return ""
	}
	if isUnhelpful(text, req.SymbolName) {
		return ""
	}
	return text
}

func languageOf(uri, fallback string) string {
	if lang := registry.DetectLanguage(uri); lang != "" {
		return lang
	}
	return fallback
}
