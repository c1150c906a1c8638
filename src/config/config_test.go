package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	require.NotNil(t, cfg)
	assert.Contains(t, cfg.Servers, "go")
	assert.Equal(t, "gopls", cfg.Servers["go"].Command)
	assert.Equal(t, 100, cfg.Cache.MaxDocuments)
	assert.Equal(t, 3, cfg.Limiter.Concurrency)
	assert.Equal(t, 2*time.Second, cfg.Limiter.CallTimeout)
	assert.Equal(t, 2, cfg.Retriever.RecursionDepth)
	require.NoError(t, validateConfig(cfg))
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph-context.yaml")

	cfg := GetDefaultConfig()
	cfg.Retriever.RecursionDepth = 1
	cfg.Cache.MaxDocuments = 10
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Retriever.RecursionDepth)
	assert.Equal(t, 10, loaded.Cache.MaxDocuments)
	assert.Equal(t, cfg.Servers["typescript"].Command, loaded.Servers["typescript"].Command)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("cache:\n  max_documents: -1\n"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
