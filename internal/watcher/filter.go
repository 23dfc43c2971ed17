package watcher

import (
	"path/filepath"
	"strings"

	"fixnames/internal/scanner"
)

// DefaultIgnorePatterns returns glob patterns for files still being
// downloaded or written by editors.
func DefaultIgnorePatterns() []string {
	return []string{
		"*.tmp",
		"*.part",
		"*.download",
		"*.crdownload", // Chrome partial downloads
		"*.partial",
		"~$*", // Office lock files
	}
}

// FileFilter decides which created entries the watcher leaves alone: names
// matching an ignore pattern and names the walker would prune.
type FileFilter struct {
	patterns []string
	prune    scanner.PruneSets
}

// NewFileFilter creates a FileFilter. Nil patterns select the defaults;
// an empty non-nil slice disables pattern matching.
func NewFileFilter(patterns []string, prune scanner.PruneSets) *FileFilter {
	if patterns == nil {
		patterns = DefaultIgnorePatterns()
	}
	p := make([]string, len(patterns))
	copy(p, patterns)
	return &FileFilter{patterns: p, prune: prune}
}

// ShouldIgnore reports whether the entry at path is left alone. Patterns
// match the base name case-insensitively.
func (f *FileFilter) ShouldIgnore(path string, isDir bool) bool {
	name := filepath.Base(path)
	if f.prune.Prune(name, isDir) {
		return true
	}

	lower := strings.ToLower(name)
	for _, pattern := range f.patterns {
		if matched, err := filepath.Match(strings.ToLower(pattern), lower); err == nil && matched {
			return true
		}
	}
	return false
}

// Patterns returns a copy of the ignore patterns.
func (f *FileFilter) Patterns() []string {
	result := make([]string, len(f.patterns))
	copy(result, f.patterns)
	return result
}
