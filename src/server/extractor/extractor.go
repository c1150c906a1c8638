package extractor

import (
	"strings"

	"graph-context/src/internal/types"
)

// LexicalExtractor is the default identifier extractor: a language-aware
// lexical scan over a bounded window of lines. It stands in for a full
// syntax-query engine behind the same interface; occurrences come back in
// document order with a best-effort syntax kind.
type LexicalExtractor struct{}

// New creates a lexical extractor.
func New() *LexicalExtractor {
	return &LexicalExtractor{}
}

// Extract scans the window's lines for identifier occurrences, skipping
// language keywords and line-comment tails. Each name is reported once, at
// its first occurrence inside the window.
func (e *LexicalExtractor) Extract(source string, languageID string, window types.LineWindow) []types.Identifier {
	lines := strings.Split(source, "\n")

	start := window.StartLine
	if start < 0 {
		start = 0
	}
	end := window.EndLine
	if end >= int32(len(lines)) {
		end = int32(len(lines)) - 1
	}

	stop := stoplistFor(languageID)
	seen := make(map[string]struct{})
	var out []types.Identifier

	for lineNo := start; lineNo <= end; lineNo++ {
		line := trimLineComment(lines[lineNo], languageID)
		for _, occ := range scanLine(line) {
			lower := strings.ToLower(occ.name)
			if _, skip := stop[lower]; skip {
				continue
			}
			if _, dup := seen[occ.name]; dup {
				continue
			}
			seen[occ.name] = struct{}{}
			out = append(out, types.Identifier{
				Name:     occ.name,
				Kind:     classify(line, occ),
				Position: types.Position{Line: lineNo, Character: occ.start},
			})
		}
	}
	return out
}

type occurrence struct {
	name  string
	start int32
}

func scanLine(line string) []occurrence {
	var occs []occurrence
	i := 0
	for i < len(line) {
		c := line[i]
		if isIdentStart(c) {
			j := i + 1
			for j < len(line) && isIdentPart(line[j]) {
				j++
			}
			occs = append(occs, occurrence{name: line[i:j], start: int32(i)})
			i = j
			continue
		}
		// A digit glues to any identifier-looking run after it (e.g. hex
		// literals); skip the whole run.
		if c >= '0' && c <= '9' {
			j := i + 1
			for j < len(line) && isIdentPart(line[j]) {
				j++
			}
			i = j
			continue
		}
		i++
	}
	return occs
}

// classify assigns a best-effort syntax kind: an identifier reached through
// a member access is a property, a capitalized identifier is treated as a
// type reference, anything else is a general identifier.
func classify(line string, occ occurrence) types.SyntaxKind {
	if occ.start > 0 && line[occ.start-1] == '.' {
		return types.KindPropertyIdentifier
	}
	first := occ.name[0]
	if first >= 'A' && first <= 'Z' {
		return types.KindTypeIdentifier
	}
	return types.KindIdentifier
}

func trimLineComment(line, languageID string) string {
	marker := "//"
	if languageID == "python" {
		marker = "#"
	}
	if i := strings.Index(line, marker); i >= 0 {
		return line[:i]
	}
	return line
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
