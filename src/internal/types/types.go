package types

import (
	"fmt"
)

// Position represents a text position with line and character information.
// Line and character are zero-based following LSP convention.
type Position struct {
	Line      int32 `json:"line"`
	Character int32 `json:"character"`
}

// Range represents a text range with start and end positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location represents a resolved location in a source file. Provider results
// that arrive as location links are normalized into this shape by discarding
// the origin range and keeping only the target URI and target range.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// LineWindow bounds identifier extraction to a contiguous run of lines.
type LineWindow struct {
	StartLine int32
	EndLine   int32
}

// SyntaxKind is the grammatical category of an identifier occurrence. It
// drives both the provider fallback order and the extraction policy.
type SyntaxKind string

const (
	KindIdentifier         SyntaxKind = "identifier"
	KindPropertyIdentifier SyntaxKind = "property_identifier"
	KindTypeIdentifier     SyntaxKind = "type_identifier"
)

// PrefersDefinition reports whether candidates of this kind should be
// resolved with a plain definition lookup before type-definition and
// implementation lookups.
func (k SyntaxKind) PrefersDefinition() bool {
	return k == KindPropertyIdentifier || k == KindTypeIdentifier
}

// Identifier is one candidate identifier occurrence produced by the
// extractor.
type Identifier struct {
	Name     string     `json:"name"`
	Kind     SyntaxKind `json:"kind"`
	Position Position   `json:"position"`
}

// SymbolRequest identifies one candidate identifier occurrence to resolve.
// Requests are ephemeral; they are created per retrieval call and never
// persisted.
type SymbolRequest struct {
	SymbolName string     `json:"symbolName"`
	URI        string     `json:"uri"`
	Position   Position   `json:"position"`
	NodeType   SyntaxKind `json:"nodeType"`
	LanguageID string     `json:"languageId"`
}

// SnippetRequest is the in-flight unit of work and of caching. Key is the
// definition-cache key: identity is the resolved definition's location, not
// the original identifier occurrence, so two occurrences resolving to the
// same definition collapse to one entry and one extraction.
type SnippetRequest struct {
	Key       string
	URI       string
	StartLine int32
	EndLine   int32
	Symbol    string
	Location  Location

	// Content is populated only once extraction succeeds; until then the
	// request is a pending/partial record.
	Content string

	// RelatedKeys holds the definition-cache keys of definitions reached
	// while expanding this snippet. It never contains Key itself.
	RelatedKeys map[string]struct{}
}

// Resolved reports whether extraction produced content for this request.
func (s *SnippetRequest) Resolved() bool {
	return s.Content != ""
}

// ContextSnippet is one entry of the final retrieval result.
type ContextSnippet struct {
	Symbol    string `json:"symbol"`
	URI       string `json:"uri"`
	StartLine int32  `json:"startLine"`
	EndLine   int32  `json:"endLine"`
	Content   string `json:"content"`
}

// DefinitionKey builds the definition-cache key for a resolved location.
// The key embeds the target document URI so per-document eviction can
// recover the owning document from the key alone.
func DefinitionKey(loc Location) string {
	return fmt.Sprintf("%s::%d:%d", loc.URI, loc.Range.Start.Line, loc.Range.Start.Character)
}

// LocationKey builds the definition-location cache sub-key for one symbol
// request. Position alone is not enough: the same position resolved under a
// different assumed syntax kind may use a different provider, so the kind
// and symbol name are part of the identity.
func LocationKey(req SymbolRequest) string {
	return fmt.Sprintf("%d:%d:%s:%s", req.Position.Line, req.Position.Character, req.NodeType, req.SymbolName)
}
