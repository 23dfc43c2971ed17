package scanner

import "strings"

// DefaultPruneDirs are directory names skipped along with their subtrees.
var DefaultPruneDirs = []string{".AppleDouble"}

// DefaultPruneFiles are file names never touched.
var DefaultPruneFiles = []string{".DS_Store"}

// PruneSets holds the literal names excluded from a walk. Anything whose
// name starts with "." is excluded as well, whatever the sets contain.
type PruneSets struct {
	dirs  map[string]struct{}
	files map[string]struct{}
}

// NewPruneSets builds prune sets from directory and file names.
func NewPruneSets(dirs, files []string) PruneSets {
	return PruneSets{dirs: toSet(dirs), files: toSet(files)}
}

// DefaultPruneSets returns the stock sets.
func DefaultPruneSets() PruneSets {
	return NewPruneSets(DefaultPruneDirs, DefaultPruneFiles)
}

// PruneDir reports whether a directory named name is skipped.
func (p PruneSets) PruneDir(name string) bool {
	if isHidden(name) {
		return true
	}
	_, ok := p.dirs[name]
	return ok
}

// PruneFile reports whether a file named name is skipped.
func (p PruneSets) PruneFile(name string) bool {
	if isHidden(name) {
		return true
	}
	_, ok := p.files[name]
	return ok
}

// Prune reports whether an entry is skipped, choosing the set by kind.
func (p PruneSets) Prune(name string, isDir bool) bool {
	if isDir {
		return p.PruneDir(name)
	}
	return p.PruneFile(name)
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}
