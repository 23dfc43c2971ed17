// Package scanner lists directories for the tree walker and applies the prune rules.
package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
)

// ScanErrorType represents the type of scanning error.
type ScanErrorType string

const (
	// DirectoryNotFound indicates the directory does not exist or is not a directory.
	DirectoryNotFound ScanErrorType = "DIRECTORY_NOT_FOUND"
	// PermissionDenied indicates insufficient permissions to read the directory.
	PermissionDenied ScanErrorType = "PERMISSION_DENIED"
	// ReadFailed covers any other listing failure.
	ReadFailed ScanErrorType = "READ_FAILED"
)

// ScanError represents an error that occurred during directory scanning.
type ScanError struct {
	Type ScanErrorType
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return string(e.Type) + ": " + e.Path
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// Entry is one name in a directory listing.
type Entry struct {
	Name      []byte // raw name as returned by the OS
	Path      string // Dir joined with Name
	IsDir     bool   // a directory, or a link to one when links are followed
	IsSymlink bool
}

// Listing is a full snapshot of one directory taken before any rename in it.
type Listing struct {
	Dir    string
	Dirs   []Entry // kept directories, lexicographic byte order
	Files  []Entry // kept files and unfollowed links, lexicographic byte order
	Pruned []Entry
}

// Names returns every name in the directory, pruned ones included.
func (l *Listing) Names() map[string]struct{} {
	names := make(map[string]struct{}, len(l.Dirs)+len(l.Files)+len(l.Pruned))
	for _, group := range [][]Entry{l.Dirs, l.Files, l.Pruned} {
		for _, e := range group {
			names[string(e.Name)] = struct{}{}
		}
	}
	return names
}

// Len returns the number of kept entries.
func (l *Listing) Len() int {
	return len(l.Dirs) + len(l.Files)
}

// ListOptions configures ListDir.
type ListOptions struct {
	Prune       PruneSets
	FollowLinks bool
}

// CheckRoot verifies that root exists and is a directory, following a
// symlinked root. It returns the cleaned path.
func CheckRoot(root string) (string, error) {
	root = filepath.Clean(root)
	info, err := os.Stat(root)
	if err != nil {
		return "", classify(root, err)
	}
	if !info.IsDir() {
		return "", &ScanError{
			Type: DirectoryNotFound,
			Path: root,
			Err:  errors.New("path is not a directory"),
		}
	}
	return root, nil
}

// ListDir reads dir completely and splits it into kept directories, kept
// files and pruned entries. Pruned entries are never returned in Dirs or Files.
func ListDir(dir string, opts ListOptions) (*Listing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, classify(dir, err)
	}

	listing := &Listing{Dir: dir}
	for _, de := range entries {
		name := de.Name()
		e := Entry{
			Name:  []byte(name),
			Path:  filepath.Join(dir, name),
			IsDir: de.IsDir(),
		}

		if de.Type()&os.ModeSymlink != 0 {
			e.IsSymlink = true
			if opts.FollowLinks {
				// Broken links stay leaves.
				if info, err := os.Stat(e.Path); err == nil && info.IsDir() {
					e.IsDir = true
				}
			}
		}

		switch {
		case e.IsDir && opts.Prune.PruneDir(name):
			listing.Pruned = append(listing.Pruned, e)
		case e.IsDir:
			listing.Dirs = append(listing.Dirs, e)
		case opts.Prune.PruneFile(name):
			listing.Pruned = append(listing.Pruned, e)
		default:
			listing.Files = append(listing.Files, e)
		}
	}

	sortEntries(listing.Dirs)
	sortEntries(listing.Files)
	return listing, nil
}

func sortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return string(entries[i].Name) < string(entries[j].Name)
	})
}

func classify(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &ScanError{Type: DirectoryNotFound, Path: path, Err: err}
	case os.IsPermission(err):
		return &ScanError{Type: PermissionDenied, Path: path, Err: err}
	default:
		return &ScanError{Type: ReadFailed, Path: path, Err: err}
	}
}
