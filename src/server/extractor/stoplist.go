package extractor

// commonStoplist holds words that carry no definition worth chasing in any
// supported language: keywords, primitive type names and ubiquitous builtins.
var commonStoplist = []string{
	"break", "case", "catch", "class", "const", "continue", "default",
	"do", "else", "enum", "export", "false", "final", "finally", "for",
	"function", "if", "import", "in", "interface", "let", "new", "nil",
	"null", "package", "private", "protected", "public", "return",
	"static", "struct", "switch", "this", "throw", "true", "try", "type",
	"typeof", "undefined", "var", "void", "while",
	"any", "bool", "boolean", "byte", "char", "double", "float", "int",
	"long", "number", "object", "self", "string",
}

var languageStoplists = map[string][]string{
	"go": {
		"chan", "defer", "error", "fallthrough", "func", "go", "goto",
		"iota", "make", "map", "range", "select", "append", "len", "cap",
		"copy", "delete", "panic", "recover", "println", "print",
		"int8", "int16", "int32", "int64", "uint", "uint8", "uint16",
		"uint32", "uint64", "uintptr", "float32", "float64", "complex64",
		"complex128", "rune",
	},
	"typescript": {
		"abstract", "as", "async", "await", "declare", "delete", "extends",
		"from", "implements", "instanceof", "is", "keyof", "module",
		"namespace", "of", "readonly", "satisfies", "super", "symbol",
		"unknown", "never", "yield",
	},
	"javascript": {
		"async", "await", "delete", "extends", "from", "instanceof", "of",
		"super", "yield",
	},
	"python": {
		"and", "as", "assert", "async", "await", "def", "del", "elif",
		"except", "from", "global", "is", "lambda", "none", "nonlocal",
		"not", "or", "pass", "raise", "with", "yield", "dict", "list",
		"set", "tuple", "str", "print", "range",
	},
	"java": {
		"abstract", "assert", "extends", "implements", "instanceof",
		"native", "super", "synchronized", "throws", "transient",
		"volatile", "integer",
	},
}

var stoplistCache = buildStoplists()

func buildStoplists() map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(languageStoplists)+1)

	base := make(map[string]struct{}, len(commonStoplist))
	for _, w := range commonStoplist {
		base[w] = struct{}{}
	}
	out[""] = base

	for lang, words := range languageStoplists {
		merged := make(map[string]struct{}, len(base)+len(words))
		for w := range base {
			merged[w] = struct{}{}
		}
		for _, w := range words {
			merged[w] = struct{}{}
		}
		out[lang] = merged
	}
	return out
}

// stoplistFor returns the stopword set for a language ID, falling back to
// the common set for unknown languages.
func stoplistFor(languageID string) map[string]struct{} {
	if s, ok := stoplistCache[languageID]; ok {
		return s
	}
	return stoplistCache[""]
}
