package graph

import (
	"context"
	"time"

	"graph-context/src/config"
	"graph-context/src/internal/common"
	"graph-context/src/internal/constants"
	"graph-context/src/internal/types"
	"graph-context/src/server/cache"
	"graph-context/src/server/documents"
	"graph-context/src/utils"
)

// Hints carries the caller's retrieval budget. MaxChars of zero marks a
// cache-warming call: the caller discards the result, the populated caches
// are the point. MaxMs of zero means the default overall timeout.
type Hints struct {
	MaxChars int
	MaxMs    int
}

// Retriever is the graph-context entry point consumed by the completion and
// chat pipeline. It owns its cache set; construct one per workspace and
// Close it on teardown.
type Retriever struct {
	engine    *Engine
	assembler *Assembler
	extractor types.Extractor
	docs      *documents.Manager
	caches    *cache.Set
	cfg       config.RetrieverConfig
}

// NewRetriever wires an engine, assembler and cache set around the given
// collaborators.
func NewRetriever(resolver types.LocationResolver, extractor types.Extractor, docs *documents.Manager, cacheCfg config.CacheConfig, cfg config.RetrieverConfig) *Retriever {
	caches := cache.NewSet(cacheCfg.MaxDocuments, cacheCfg.MaxEntriesPerDoc)
	return &Retriever{
		engine:    NewEngine(resolver, extractor, docs, caches, cfg.MaxSnippetIdentifiers),
		assembler: NewAssembler(caches.Definitions),
		extractor: extractor,
		docs:      docs,
		caches:    caches,
		cfg:       cfg,
	}
}

// Retrieve returns context snippets for the symbols near the given position.
// It never fails: total failure degrades to an empty list, and cancellation
// returns whatever had been assembled by then.
func (r *Retriever) Retrieve(ctx context.Context, docURI string, pos types.Position, hints Hints) []types.ContextSnippet {
	timeout := constants.DefaultRetrieveTimeout
	if hints.MaxMs > 0 {
		timeout = time.Duration(hints.MaxMs) * time.Millisecond
	}
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()

	requests := r.symbolRequests(docURI, pos)
	if len(requests) == 0 {
		return nil
	}

	started := time.Now()
	resolved := r.engine.ResolveSymbols(ctx, requests, r.cfg.RecursionDepth)
	snippets := r.assembler.Assemble(resolved)
	common.GraphLogger.Debug("retrieved %d snippets from %d candidates in %s", len(snippets), len(requests), time.Since(started))

	if hints.MaxChars > 0 {
		snippets = truncateToBudget(snippets, hints.MaxChars)
	}
	return snippets
}

// symbolRequests extracts candidate identifiers from the window of lines
// above the cursor, nearest first, bounded by the configured request count.
func (r *Retriever) symbolRequests(docURI string, pos types.Position) []types.SymbolRequest {
	content, err := r.docs.Content(docURI)
	if err != nil {
		common.GraphLogger.Debug("cannot read %s: %v", docURI, err)
		return nil
	}
	languageID := r.docs.LanguageID(docURI)

	start := pos.Line - r.cfg.WindowLines
	if start < 0 {
		start = 0
	}
	identifiers := r.extractor.Extract(content, languageID, types.LineWindow{StartLine: start, EndLine: pos.Line})

	// The extractor reports document order; candidates nearest the cursor
	// are the most relevant, so take them back to front.
	max := r.cfg.MaxSymbolRequests
	if max <= 0 {
		max = constants.MaxSymbolRequests
	}
	out := make([]types.SymbolRequest, 0, max)
	for i := len(identifiers) - 1; i >= 0 && len(out) < max; i-- {
		id := identifiers[i]
		out = append(out, types.SymbolRequest{
			SymbolName: id.Name,
			URI:        docURI,
			Position:   id.Position,
			NodeType:   id.Kind,
			LanguageID: languageID,
		})
	}
	return out
}

// HandleDocumentChange is the host's change notification hook. Content
// changes to real files invalidate every cached location and definition
// whose target is the changed document, synchronously, so no later
// retrieval observes stale content.
func (r *Retriever) HandleDocumentChange(docURI string, hasContentChanges bool) {
	if !hasContentChanges || !utils.IsFileURI(docURI) {
		return
	}
	r.caches.InvalidateDocument(docURI)
}

// Caches exposes the retriever's cache set for diagnostics and tests.
func (r *Retriever) Caches() *cache.Set {
	return r.caches
}

// Close releases cached state.
func (r *Retriever) Close() {
	r.caches.Purge()
}

func truncateToBudget(snippets []types.ContextSnippet, maxChars int) []types.ContextSnippet {
	total := 0
	for i, s := range snippets {
		total += len(s.Content)
		if total > maxChars {
			return snippets[:i]
		}
	}
	return snippets
}
