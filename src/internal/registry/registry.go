package registry

import (
	"path/filepath"
	"strings"

	"graph-context/src/internal/constants"
)

// Server describes how to launch a language server for one language.
type Server struct {
	Command string
	Args    []string
}

// DefaultServers maps language IDs to their stock language server commands.
var DefaultServers = map[string]Server{
	"go":         {Command: "gopls", Args: []string{"serve"}},
	"python":     {Command: "pylsp", Args: []string{}},
	"javascript": {Command: "typescript-language-server", Args: []string{"--stdio"}},
	"typescript": {Command: "typescript-language-server", Args: []string{"--stdio"}},
	"java":       {Command: "jdtls", Args: []string{}},
}

// DetectLanguage detects the language ID from a file URI or path by its
// extension. Returns "" for unsupported files.
func DetectLanguage(uri string) string {
	path := strings.TrimPrefix(uri, "file://")
	ext := strings.ToLower(filepath.Ext(path))
	for lang, exts := range constants.SupportedExtensions {
		for _, e := range exts {
			if e == ext {
				return lang
			}
		}
	}
	return ""
}

// IsSupportedFile reports whether the URI points at a file this subsystem
// retrieves context for.
func IsSupportedFile(uri string) bool {
	return DetectLanguage(uri) != ""
}
