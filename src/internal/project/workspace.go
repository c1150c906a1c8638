// Package project locates workspace roots for language server sessions.
package project

import (
	"os"
	"path/filepath"
)

// rootMarkers are checked in order; the first directory up the tree that
// contains one of them wins.
var rootMarkers = []string{
	"go.mod",
	"package.json",
	"tsconfig.json",
	"pyproject.toml",
	"setup.py",
	"pom.xml",
	"build.gradle",
	".git",
}

// FindRoot walks up from start looking for a project marker file. When no
// marker is found the starting directory itself is the root.
func FindRoot(start string) string {
	dir, err := filepath.Abs(start)
	if err != nil {
		return start
	}

	for current := dir; ; {
		for _, marker := range rootMarkers {
			if _, err := os.Stat(filepath.Join(current, marker)); err == nil {
				return current
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return dir
		}
		current = parent
	}
}
