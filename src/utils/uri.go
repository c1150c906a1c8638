package utils

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"go.lsp.dev/uri"
)

// URIToFilePath converts a file:// URI to a file system path
func URIToFilePath(u string) string {
	if !strings.HasPrefix(u, "file://") {
		return u
	}

	path := strings.TrimPrefix(u, "file://")

	// Decode URL-encoded characters
	if decoded, err := url.PathUnescape(path); err == nil {
		path = decoded
	}

	// On Windows, file URIs look like file:///C:/path/to/file. After
	// removing file://, we have /C:/path/to/file and must drop the leading
	// slash.
	if runtime.GOOS == "windows" && len(path) > 2 {
		if path[0] == '/' && path[2] == ':' {
			path = path[1:]
		}
		path = filepath.FromSlash(path)
	}

	return path
}

// FilePathToURI converts a file system path to a file:// URI
func FilePathToURI(path string) string {
	abs := path
	if !filepath.IsAbs(abs) {
		if a, err := filepath.Abs(abs); err == nil {
			abs = a
		}
	}
	return string(uri.File(abs))
}

// IsFileURI reports whether the URI names a real file rather than an
// unsaved or virtual buffer.
func IsFileURI(u string) bool {
	return strings.HasPrefix(u, "file://")
}
