package lspclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"

	lsp "go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"graph-context/src/internal/common"
	"graph-context/src/internal/constants"
	"graph-context/src/server/protocol"
)

// Options configures one stdio language server client.
type Options struct {
	Language   string
	Command    string
	Args       []string
	WorkingDir string
	RootDir    string
}

// StdioClient talks JSON-RPC 2.0 to a language server child process over
// stdin/stdout. It implements types.RPCClient.
type StdioClient struct {
	opts Options

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	writeMu sync.Mutex
	nextID  atomic.Int64

	pendingMu sync.Mutex
	pending   map[string]chan *protocol.Response

	openMu sync.Mutex
	open   map[string]bool

	stopCh  chan struct{}
	stopped sync.Once
	active  atomic.Bool
}

// NewStdioClient creates an unstarted client.
func NewStdioClient(opts Options) *StdioClient {
	return &StdioClient{
		opts:    opts,
		pending: make(map[string]chan *protocol.Response),
		open:    make(map[string]bool),
		stopCh:  make(chan struct{}),
	}
}

// Start launches the server process and runs the initialize handshake.
func (c *StdioClient) Start(ctx context.Context) error {
	if c.active.Load() {
		return fmt.Errorf("%s client already running", c.opts.Language)
	}

	cmd := exec.Command(c.opts.Command, c.opts.Args...)
	cmd.Dir = c.opts.WorkingDir
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to open stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %s server: %w", c.opts.Command, err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.stdout = bufio.NewReader(stdout)
	c.active.Store(true)
	go c.readLoop()

	if err := c.initialize(ctx); err != nil {
		_ = c.Stop()
		return fmt.Errorf("initialize handshake failed: %w", err)
	}
	common.LSPLogger.Info("%s language server started: %s", c.opts.Language, c.opts.Command)
	return nil
}

func (c *StdioClient) initialize(ctx context.Context) error {
	initCtx, cancel := common.WithTimeout(ctx, constants.InitializeTimeout)
	defer cancel()

	rootDir := c.opts.RootDir
	if rootDir == "" {
		rootDir, _ = os.Getwd()
	}
	params := lsp.InitializeParams{
		ProcessID: int32(os.Getpid()),
		RootURI:   uri.File(rootDir),
		Capabilities: lsp.ClientCapabilities{
			TextDocument: &lsp.TextDocumentClientCapabilities{
				Hover: &lsp.HoverTextDocumentClientCapabilities{
					ContentFormat: []lsp.MarkupKind{lsp.Markdown, lsp.PlainText},
				},
			},
		},
	}
	if _, err := c.SendRequest(initCtx, lsp.MethodInitialize, params); err != nil {
		return err
	}
	return c.SendNotification(initCtx, lsp.MethodInitialized, struct{}{})
}

// Stop runs the shutdown handshake and terminates the process.
func (c *StdioClient) Stop() error {
	if !c.active.Load() {
		return nil
	}
	c.active.Store(false)

	shutdownCtx, cancel := common.CreateContext(constants.ProcessShutdownTimeout)
	defer cancel()
	_, _ = c.SendRequest(shutdownCtx, lsp.MethodShutdown, nil)
	_ = c.SendNotification(shutdownCtx, lsp.MethodExit, nil)

	c.stopped.Do(func() { close(c.stopCh) })
	if c.stdin != nil {
		_ = c.stdin.Close()
	}

	if c.cmd != nil && c.cmd.Process != nil {
		done := make(chan struct{})
		go func() {
			_ = c.cmd.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			common.LSPLogger.Warn("%s server did not exit, killing", c.opts.Language)
			_ = c.cmd.Process.Kill()
		}
	}
	return nil
}

// IsActive returns true if the server is currently running.
func (c *StdioClient) IsActive() bool {
	return c.active.Load()
}

// SendRequest sends a JSON-RPC request and waits for the raw response.
// Server-reported errors for cancelled or content-modified requests come
// back as a nil result rather than an error.
func (c *StdioClient) SendRequest(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	idStr := fmt.Sprintf("%d", id)

	respCh := make(chan *protocol.Response, 1)
	c.pendingMu.Lock()
	c.pending[idStr] = respCh
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, idStr)
		c.pendingMu.Unlock()
	}()

	req := protocol.Request{JSONRPC: protocol.JSONRPCVersion, ID: id, Method: method, Params: params}
	if err := c.write(req); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			if protocol.IsExpectedSuppressibleError(resp.Error) {
				common.LSPLogger.Debug("%s request suppressibly failed: %v", method, resp.Error)
				return nil, nil
			}
			return nil, resp.Error
		}
		return resp.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.stopCh:
		return nil, fmt.Errorf("%s client stopped", c.opts.Language)
	}
}

// SendNotification sends a JSON-RPC notification.
func (c *StdioClient) SendNotification(ctx context.Context, method string, params interface{}) error {
	return c.write(protocol.Request{JSONRPC: protocol.JSONRPCVersion, Method: method, Params: params})
}

// EnsureOpen sends textDocument/didOpen for a document once per session.
// Language servers only answer position requests for documents they have
// been told about.
func (c *StdioClient) EnsureOpen(ctx context.Context, docURI, languageID, text string) error {
	c.openMu.Lock()
	already := c.open[docURI]
	if !already {
		c.open[docURI] = true
	}
	c.openMu.Unlock()
	if already {
		return nil
	}

	params := lsp.DidOpenTextDocumentParams{
		TextDocument: lsp.TextDocumentItem{
			URI:        uri.URI(docURI),
			LanguageID: lsp.LanguageIdentifier(languageID),
			Version:    1,
			Text:       text,
		},
	}
	return c.SendNotification(ctx, lsp.MethodTextDocumentDidOpen, params)
}

func (c *StdioClient) write(msg interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.stdin == nil {
		return fmt.Errorf("%s client not started", c.opts.Language)
	}
	return protocol.WriteMessage(c.stdin, msg)
}

func (c *StdioClient) readLoop() {
	for {
		body, err := protocol.ReadMessage(c.stdout)
		if err != nil {
			if c.active.Load() {
				common.LSPLogger.Warn("%s read loop ended: %v", c.opts.Language, err)
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(body, &msg); err != nil {
			common.LSPLogger.Warn("%s sent malformed message: %v", c.opts.Language, err)
			continue
		}
		c.handleMessage(&msg)
	}
}

func (c *StdioClient) handleMessage(msg *protocol.Message) {
	if msg.IsResponse() {
		idStr := fmt.Sprintf("%v", normalizeID(msg.ID))
		c.pendingMu.Lock()
		respCh, ok := c.pending[idStr]
		c.pendingMu.Unlock()
		if !ok {
			common.LSPLogger.Debug("late response for request %s", idStr)
			return
		}
		respCh <- &protocol.Response{ID: msg.ID, Result: msg.Result, Error: msg.Error}
		return
	}

	if msg.ID != nil {
		// Server-to-client request (workspace/configuration and friends):
		// answer with a null result so the server does not stall.
		resp := protocol.Response{JSONRPC: protocol.JSONRPCVersion, ID: msg.ID, Result: json.RawMessage("null")}
		if err := c.write(resp); err != nil {
			common.LSPLogger.Warn("failed to answer server request %s: %v", msg.Method, err)
		}
		return
	}

	// Notification; nothing to do beyond tracing.
	common.LSPLogger.Debug("%s notification: %s", c.opts.Language, msg.Method)
}

// normalizeID collapses the float64 that encoding/json produces for numeric
// IDs back into the integer form used when registering the request.
func normalizeID(id interface{}) interface{} {
	if f, ok := id.(float64); ok {
		return int64(f)
	}
	return id
}
