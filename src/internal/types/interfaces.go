package types

import (
	"context"
	"encoding/json"
)

// RPCClient is the transport-level interface to one language server. The
// stdio client implements it; tests substitute call-counting mocks.
type RPCClient interface {
	// Start launches the language server process and runs the initialize
	// handshake. Returns an error if the server fails to start or is
	// already running.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the language server process.
	Stop() error

	// SendRequest sends a JSON-RPC request and waits for the raw response.
	SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error)

	// SendNotification sends a JSON-RPC notification without expecting a
	// response.
	SendNotification(ctx context.Context, method string, params interface{}) error

	// IsActive returns true if the server is currently running.
	IsActive() bool
}

// LocationResolver wraps the language server's location and hover providers
// behind a uniform interface. Every method returns an empty slice on
// provider failure or timeout; no error surfaces past this layer because one
// symbol's failure must never abort a whole retrieval.
type LocationResolver interface {
	ResolveDefinitions(ctx context.Context, uri string, pos Position) []Location
	ResolveTypeDefinitions(ctx context.Context, uri string, pos Position) []Location
	ResolveImplementations(ctx context.Context, uri string, pos Position) []Location

	// ResolveHover returns the hover content blocks for a position. Blocks
	// carrying fenced code keep their fences so callers can tell code from
	// prose.
	ResolveHover(ctx context.Context, uri string, pos Position) []string
}

// Extractor produces candidate identifier occurrences from source text. The
// real syntax-query engine lives outside this subsystem; the core only
// consumes this shape. Occurrences are ordered by document position.
type Extractor interface {
	Extract(source string, languageID string, window LineWindow) []Identifier
}

// DocumentReader provides document content access for snippet extraction.
type DocumentReader interface {
	Content(uri string) (string, error)
	RangeText(uri string, rng Range) (string, error)
}
