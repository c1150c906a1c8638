package documents

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graph-context/src/internal/types"
	"graph-context/src/utils"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return utils.FilePathToURI(path)
}

func TestContentReadsFromDisk(t *testing.T) {
	m := NewManager()
	uri := writeTempFile(t, "a.go", "package main\n")

	content, err := m.Content(uri)
	require.NoError(t, err)
	assert.Equal(t, "package main\n", content)
}

func TestOverlayShadowsDisk(t *testing.T) {
	m := NewManager()
	uri := writeTempFile(t, "a.go", "on disk")

	m.SetContent(uri, "in buffer")
	content, err := m.Content(uri)
	require.NoError(t, err)
	assert.Equal(t, "in buffer", content)

	m.DropContent(uri)
	content, err = m.Content(uri)
	require.NoError(t, err)
	assert.Equal(t, "on disk", content)
}

func TestContentRejectsVirtualDocuments(t *testing.T) {
	m := NewManager()
	_, err := m.Content("untitled:Untitled-1")
	assert.Error(t, err)
}

func TestRangeTextSingleLine(t *testing.T) {
	m := NewManager()
	m.SetContent("file:///x.go", "type Foo struct{}\n")

	got, err := m.RangeText("file:///x.go", types.Range{
		Start: types.Position{Line: 0, Character: 5},
		End:   types.Position{Line: 0, Character: 8},
	})
	require.NoError(t, err)
	assert.Equal(t, "Foo", got)
}

func TestRangeTextMultiLine(t *testing.T) {
	m := NewManager()
	m.SetContent("file:///x.go", "type Foo struct {\n\tName string\n}\n")

	got, err := m.RangeText("file:///x.go", types.Range{
		Start: types.Position{Line: 0, Character: 0},
		End:   types.Position{Line: 2, Character: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "type Foo struct {\n\tName string\n}", got)
}

func TestRangeTextClampsOutOfBounds(t *testing.T) {
	m := NewManager()
	m.SetContent("file:///x.go", "short\n")

	got, err := m.RangeText("file:///x.go", types.Range{
		Start: types.Position{Line: 0, Character: 0},
		End:   types.Position{Line: 99, Character: 99},
	})
	require.NoError(t, err)
	assert.Equal(t, "short\n", got)
}

func TestLanguageID(t *testing.T) {
	m := NewManager()
	assert.Equal(t, "go", m.LanguageID("file:///a/b.go"))
	assert.Equal(t, "typescript", m.LanguageID("file:///a/b.ts"))
	assert.Equal(t, "", m.LanguageID("file:///a/b.xyz"))
}
