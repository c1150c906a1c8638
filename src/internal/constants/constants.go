package constants

import "time"

// Timeout constants for language server calls
const (
	// DefaultProviderTimeout bounds one provider call through the limiter.
	// A call still outstanding after this is treated as "no result found".
	DefaultProviderTimeout = 2 * time.Second

	// DefaultRetrieveTimeout bounds a whole retrieval when the caller
	// supplies no time hint.
	DefaultRetrieveTimeout = 10 * time.Second

	// Process management timeouts for the stdio client
	ProcessStartTimeout    = 30 * time.Second
	ProcessShutdownTimeout = 5 * time.Second
	InitializeTimeout      = 15 * time.Second
)

// Concurrency and traversal limits
const (
	// DefaultProviderConcurrency is the limiter admission count: how many
	// provider calls may be in flight at once.
	DefaultProviderConcurrency = 3

	// DefaultRecursionDepth is the expansion budget: how many hops the
	// engine follows from an original candidate into
	// definitions-of-definitions.
	DefaultRecursionDepth = 2

	// MaxSnippetIdentifiers bounds how many identifiers found inside an
	// extracted snippet are expanded at the next depth.
	MaxSnippetIdentifiers = 5

	// MaxSymbolRequests bounds the candidate list handed to the engine per
	// retrieval.
	MaxSymbolRequests = 10

	// RetrieverWindowLines is how many lines above the cursor the
	// extractor scans for candidates.
	RetrieverWindowLines = 100
)

// Cache capacity defaults
const (
	DefaultCacheDocuments     = 100
	DefaultCacheEntriesPerDoc = 100
)

// Debounce delay for file watching
const FileWatchDebounceDelay = 500 * time.Millisecond

// SupportedExtensions maps language IDs to their file extensions.
var SupportedExtensions = map[string][]string{
	"go":         {".go"},
	"python":     {".py", ".pyi"},
	"javascript": {".js", ".jsx", ".mjs"},
	"typescript": {".ts", ".tsx", ".d.ts"},
	"java":       {".java"},
}

// GetAllSupportedExtensions returns all supported file extensions
func GetAllSupportedExtensions() []string {
	extensions := make([]string, 0)
	seen := make(map[string]bool)
	for _, exts := range SupportedExtensions {
		for _, ext := range exts {
			if !seen[ext] {
				seen[ext] = true
				extensions = append(extensions, ext)
			}
		}
	}
	return extensions
}
