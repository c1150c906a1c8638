package graph

import (
	"strings"

	"graph-context/src/internal/types"
	"graph-context/src/server/cache"
)

// Assembler turns resolved snippet requests into the final context snippet
// list: duplicates collapse on the definition key, and every snippet with
// related definitions gets their content folded in ahead of its own.
type Assembler struct {
	definitions *cache.DefinitionCache
}

// NewAssembler creates an assembler reading related content from the given
// definition cache.
func NewAssembler(definitions *cache.DefinitionCache) *Assembler {
	return &Assembler{definitions: definitions}
}

// Assemble deduplicates requests by definition key, merges related snippet
// content and returns the final ordered list. Deduplication of identical
// symbol/location pairs already happened through the cache-key mechanism;
// this pass only collapses repeats of the same key across recursion
// branches.
func (a *Assembler) Assemble(requests []*types.SnippetRequest) []types.ContextSnippet {
	seen := make(map[string]struct{}, len(requests))
	out := make([]types.ContextSnippet, 0, len(requests))

	for _, req := range requests {
		if req == nil || req.Key == "" {
			continue
		}
		if _, dup := seen[req.Key]; dup {
			continue
		}
		seen[req.Key] = struct{}{}

		out = append(out, types.ContextSnippet{
			Symbol:    req.Symbol,
			URI:       req.URI,
			StartLine: req.StartLine,
			EndLine:   req.EndLine,
			Content:   a.mergedContent(req),
		})
	}
	return out
}

// mergedContent concatenates the content of every related definition ahead
// of the request's own content, newline-joined. Self-references and related
// keys that fell out of the cache are skipped. Related keys are read through
// a snapshot: concurrent retrievals keep growing the live set under the
// cache mutex while assembly runs.
func (a *Assembler) mergedContent(req *types.SnippetRequest) string {
	related := a.definitions.Related(req.Key)
	if len(related) == 0 {
		return req.Content
	}

	parts := make([]string, 0, len(related)+1)
	for _, key := range related {
		if key == req.Key {
			continue
		}
		if rel, ok := a.definitions.Get(key); ok && rel.Content != "" {
			parts = append(parts, rel.Content)
		}
	}
	if req.Content != "" {
		parts = append(parts, req.Content)
	}
	return strings.Join(parts, "\n")
}
