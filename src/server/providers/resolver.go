package providers

import (
	"context"
	"fmt"

	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"graph-context/src/internal/common"
	"graph-context/src/internal/types"
	"graph-context/src/server/limiter"
)

// LSPResolver implements types.LocationResolver on top of a JSON-RPC client.
// Every provider call goes through the shared limiter; timeouts, provider
// errors and panicky result shapes all collapse to an empty result, because
// one symbol's failure must never abort a retrieval.
type LSPResolver struct {
	client  types.RPCClient
	limiter *limiter.Limiter
}

// NewLSPResolver creates a resolver backed by the given client and limiter.
func NewLSPResolver(client types.RPCClient, l *limiter.Limiter) *LSPResolver {
	return &LSPResolver{client: client, limiter: l}
}

func positionParams(docURI string, pos types.Position) lsp.TextDocumentPositionParams {
	return lsp.TextDocumentPositionParams{
		TextDocument: lsp.TextDocumentIdentifier{URI: uri.URI(docURI)},
		Position:     lsp.Position{Line: uint32(pos.Line), Character: uint32(pos.Character)},
	}
}

func (r *LSPResolver) locations(ctx context.Context, method, docURI string, pos types.Position, params interface{}) []types.Location {
	locs, ok := limiter.Run(ctx, r.limiter, func(callCtx context.Context) ([]types.Location, error) {
		raw, err := r.client.SendRequest(callCtx, method, params)
		if err != nil {
			return nil, fmt.Errorf("%s failed for %s: %w", method, docURI, err)
		}
		return parseLocations(raw)
	})
	if !ok {
		common.GraphLogger.Debug("%s yielded nothing for %s:%d:%d", method, docURI, pos.Line, pos.Character)
		return nil
	}
	return locs
}

// ResolveDefinitions resolves textDocument/definition.
func (r *LSPResolver) ResolveDefinitions(ctx context.Context, docURI string, pos types.Position) []types.Location {
	params := lsp.DefinitionParams{TextDocumentPositionParams: positionParams(docURI, pos)}
	return r.locations(ctx, lsp.MethodTextDocumentDefinition, docURI, pos, params)
}

// ResolveTypeDefinitions resolves textDocument/typeDefinition.
func (r *LSPResolver) ResolveTypeDefinitions(ctx context.Context, docURI string, pos types.Position) []types.Location {
	params := lsp.TypeDefinitionParams{TextDocumentPositionParams: positionParams(docURI, pos)}
	return r.locations(ctx, lsp.MethodTextDocumentTypeDefinition, docURI, pos, params)
}

// ResolveImplementations resolves textDocument/implementation.
func (r *LSPResolver) ResolveImplementations(ctx context.Context, docURI string, pos types.Position) []types.Location {
	params := lsp.ImplementationParams{TextDocumentPositionParams: positionParams(docURI, pos)}
	return r.locations(ctx, lsp.MethodTextDocumentImplementation, docURI, pos, params)
}

// ResolveHover resolves textDocument/hover into content blocks.
func (r *LSPResolver) ResolveHover(ctx context.Context, docURI string, pos types.Position) []string {
	params := lsp.HoverParams{TextDocumentPositionParams: positionParams(docURI, pos)}
	blocks, ok := limiter.Run(ctx, r.limiter, func(callCtx context.Context) ([]string, error) {
		raw, err := r.client.SendRequest(callCtx, lsp.MethodTextDocumentHover, params)
		if err != nil {
			return nil, fmt.Errorf("hover failed for %s: %w", docURI, err)
		}
		return parseHover(raw)
	})
	if !ok {
		return nil
	}
	return blocks
}
