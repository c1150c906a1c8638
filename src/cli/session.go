package cli

import (
	"context"
	"fmt"

	"graph-context/src/config"
	"graph-context/src/internal/common"
	"graph-context/src/internal/registry"
	"graph-context/src/internal/types"
	"graph-context/src/server/documents"
	"graph-context/src/server/extractor"
	"graph-context/src/server/graph"
	"graph-context/src/server/limiter"
	"graph-context/src/server/lspclient"
	"graph-context/src/server/providers"
	"graph-context/src/server/watcher"
	"graph-context/src/utils"
)

// Session owns one running language server and the retriever built on top of
// it. A filesystem watcher on the workspace root keeps the caches coherent
// while the session is open.
type Session struct {
	languageID string
	client     *lspclient.StdioClient
	docs       *documents.Manager
	retriever  *graph.Retriever
	watcher    *watcher.FileWatcher
}

// OpenSession starts the language server for languageID and wires the full
// retrieval stack around it.
func OpenSession(ctx context.Context, cfg *config.Config, workspaceRoot, languageID string) (*Session, error) {
	srv := cfg.Servers[languageID]
	if srv == nil {
		def, ok := registry.DefaultServers[languageID]
		if !ok {
			return nil, fmt.Errorf("no language server configured for %q", languageID)
		}
		srv = &config.ServerConfig{Command: def.Command, Args: def.Args}
	}

	client := lspclient.NewStdioClient(lspclient.Options{
		Language:   languageID,
		Command:    srv.Command,
		Args:       srv.Args,
		WorkingDir: srv.WorkingDir,
		RootDir:    workspaceRoot,
	})
	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("start %s: %w", srv.Command, err)
	}

	docs := documents.NewManager()
	resolver := providers.NewLSPResolver(client, limiter.New(cfg.Limiter.Concurrency, cfg.Limiter.CallTimeout))
	retriever := graph.NewRetriever(resolver, extractor.New(), docs, cfg.Cache, cfg.Retriever)

	s := &Session{
		languageID: languageID,
		client:     client,
		docs:       docs,
		retriever:  retriever,
	}

	fw, err := watcher.NewFileWatcher(s.onFileChanges)
	if err != nil {
		common.CLILogger.Warn("file watcher unavailable: %v", err)
	} else {
		if err := fw.AddPath(workspaceRoot); err != nil {
			common.CLILogger.Warn("cannot watch %s: %v", workspaceRoot, err)
			fw.Stop()
		} else {
			s.watcher = fw
		}
	}
	return s, nil
}

func (s *Session) onFileChanges(events []watcher.ChangeEvent) {
	for _, ev := range events {
		s.retriever.HandleDocumentChange(ev.URI, ev.HasContentChanges)
		s.docs.DropContent(ev.URI)
	}
}

// Retrieve opens the document on the language server and runs a retrieval at
// the given cursor position.
func (s *Session) Retrieve(ctx context.Context, filePath string, pos types.Position, hints graph.Hints) ([]types.ContextSnippet, error) {
	docURI := utils.FilePathToURI(filePath)
	content, err := s.docs.Content(docURI)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filePath, err)
	}
	if err := s.client.EnsureOpen(ctx, docURI, s.languageID, content); err != nil {
		return nil, fmt.Errorf("open %s on server: %w", filePath, err)
	}
	return s.retriever.Retrieve(ctx, docURI, pos, hints), nil
}

// Caches exposes the session's cache set for status reporting.
func (s *Session) Caches() map[string]interface{} {
	return s.retriever.Caches().Stats()
}

// Close stops the watcher, drops the caches and shuts the language server
// down.
func (s *Session) Close() {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	s.retriever.Close()
	if err := s.client.Stop(); err != nil {
		common.CLILogger.Warn("language server shutdown: %v", err)
	}
}
