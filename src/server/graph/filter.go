package graph

import (
	"strings"
)

// declarationWords are the declaration forms whose bare, body-less spelling
// conveys nothing beyond the identifier itself.
var declarationWords = []string{"interface", "class", "enum", "type"}

// isUnhelpful rejects an extraction that adds nothing over the symbol name:
// empty text, the bare name, text that does not even mention the symbol, or
// a body-less forward declaration like "interface Foo".
func isUnhelpful(content, symbol string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" || trimmed == symbol {
		return true
	}
	if !strings.Contains(trimmed, symbol) {
		return true
	}
	// "class Foo {}" and "class Foo;" say no more than "class Foo" does.
	bare := strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	if strings.HasSuffix(bare, "{}") || strings.HasSuffix(bare, "{ }") {
		bare = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(bare, "{}"), "{ }"))
	}
	for _, word := range declarationWords {
		if bare == word+" "+symbol {
			return true
		}
	}
	return false
}

// joinCodeBlocks concatenates the fenced-code content of hover blocks.
// Hover responses mix prose and code; only the code is useful as definition
// text, so prose lines and the fences themselves are dropped.
func joinCodeBlocks(blocks []string) string {
	var out []string
	for _, block := range blocks {
		out = append(out, fencedContent(block)...)
	}
	return strings.Join(out, "\n")
}

// fencedContent returns the lines inside ``` fences of one block. A block
// with no fences contributes nothing.
func fencedContent(block string) []string {
	var out []string
	inFence := false
	for _, line := range strings.Split(block, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			out = append(out, line)
		}
	}
	return out
}
