package documents

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"graph-context/src/internal/registry"
	"graph-context/src/internal/types"
	"graph-context/src/utils"
)

// Manager provides document content access for snippet extraction. Open
// editor buffers can shadow the file system through SetContent; everything
// else is read from disk on demand.
type Manager struct {
	mu       sync.RWMutex
	overlays map[string]string
}

// NewManager creates a document manager with no overlays.
func NewManager() *Manager {
	return &Manager{overlays: make(map[string]string)}
}

// SetContent installs an in-memory overlay for a document, as the host
// editor does for unsaved buffers.
func (m *Manager) SetContent(uri string, content string) {
	m.mu.Lock()
	m.overlays[uri] = content
	m.mu.Unlock()
}

// DropContent removes a document's overlay; subsequent reads go to disk.
func (m *Manager) DropContent(uri string) {
	m.mu.Lock()
	delete(m.overlays, uri)
	m.mu.Unlock()
}

// Content returns the full text of a document, overlay first, disk second.
func (m *Manager) Content(uri string) (string, error) {
	m.mu.RLock()
	overlay, ok := m.overlays[uri]
	m.mu.RUnlock()
	if ok {
		return overlay, nil
	}

	if !utils.IsFileURI(uri) {
		return "", fmt.Errorf("no content for non-file document %s", uri)
	}
	data, err := os.ReadFile(utils.URIToFilePath(uri))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", uri, err)
	}
	return string(data), nil
}

// RangeText returns the verbatim source text covered by a range. Lines and
// characters are zero-based; the end character is exclusive. Out-of-bounds
// positions are clamped rather than rejected, since language servers
// occasionally report ranges one past the end of a file.
func (m *Manager) RangeText(uri string, rng types.Range) (string, error) {
	content, err := m.Content(uri)
	if err != nil {
		return "", err
	}

	lines := strings.Split(content, "\n")
	startLine := clamp(int(rng.Start.Line), 0, len(lines)-1)
	endLine := clamp(int(rng.End.Line), 0, len(lines)-1)
	if endLine < startLine {
		return "", fmt.Errorf("inverted range for %s", uri)
	}

	if startLine == endLine {
		line := lines[startLine]
		start := clamp(int(rng.Start.Character), 0, len(line))
		end := clamp(int(rng.End.Character), start, len(line))
		return line[start:end], nil
	}

	out := make([]string, 0, endLine-startLine+1)
	first := lines[startLine]
	out = append(out, first[clamp(int(rng.Start.Character), 0, len(first)):])
	for i := startLine + 1; i < endLine; i++ {
		out = append(out, lines[i])
	}
	last := lines[endLine]
	out = append(out, last[:clamp(int(rng.End.Character), 0, len(last))])
	return strings.Join(out, "\n"), nil
}

// LanguageID returns the language for a document URI.
func (m *Manager) LanguageID(uri string) string {
	return registry.DetectLanguage(uri)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
