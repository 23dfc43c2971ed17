// Package organizer plans and performs in-place renames inside one directory.
package organizer

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RenameErrorType represents the type of rename error.
type RenameErrorType string

const (
	// SourceNotFound indicates the entry vanished before it could be renamed.
	SourceNotFound RenameErrorType = "SOURCE_NOT_FOUND"
	// DestinationExists indicates the target name is already taken.
	DestinationExists RenameErrorType = "DESTINATION_EXISTS"
	// PermissionDenied indicates insufficient permissions for the operation.
	PermissionDenied RenameErrorType = "PERMISSION_DENIED"
	// RenameFailed covers any other failure of the rename call.
	RenameFailed RenameErrorType = "RENAME_FAILED"
)

// RenameError represents an error that occurred while renaming an entry.
type RenameError struct {
	Type RenameErrorType
	Path string
	Err  error
}

func (e *RenameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Path)
}

func (e *RenameError) Unwrap() error {
	return e.Err
}

// ErrUnknownPolicy is returned by ParseCollisionPolicy for unsupported values.
var ErrUnknownPolicy = errors.New("unknown collision policy")

// CollisionPolicy decides what happens when a normalized name is taken.
type CollisionPolicy string

const (
	// PolicySuffix renames to the first free "_duplicate" variant.
	PolicySuffix CollisionPolicy = "suffix"
	// PolicySkip leaves the entry under its current name.
	PolicySkip CollisionPolicy = "skip"
)

// ParseCollisionPolicy converts a config value into a policy. Empty means suffix.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch CollisionPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicySuffix:
		return PolicySuffix, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// DirView is the in-memory set of names in one directory. It starts from a
// full listing and follows every planned rename, so collision decisions are
// the same whether or not the renames are carried out.
type DirView struct {
	dir   string
	names map[string]struct{}
}

// NewDirView copies names into a new view of dir.
func NewDirView(dir string, names map[string]struct{}) *DirView {
	v := &DirView{dir: dir, names: make(map[string]struct{}, len(names))}
	for n := range names {
		v.names[n] = struct{}{}
	}
	return v
}

// Dir returns the directory the view describes.
func (v *DirView) Dir() string {
	return v.dir
}

// Has reports whether name is currently taken.
func (v *DirView) Has(name string) bool {
	_, ok := v.names[name]
	return ok
}

// Add marks name as taken.
func (v *DirView) Add(name string) {
	v.names[name] = struct{}{}
}

// Move records a rename from one name to another.
func (v *DirView) Move(from, to string) {
	delete(v.names, from)
	v.names[to] = struct{}{}
}

// Len returns the number of names in the view.
func (v *DirView) Len() int {
	return len(v.names)
}

// Plan describes one rename inside a directory.
type Plan struct {
	Dir         string
	From        []byte // current name
	To          []byte // final name, suffixed when IsDuplicate
	Requested   []byte // normalized name before collision handling
	IsDir       bool
	IsDuplicate bool
}

// Source returns the full current path.
func (p *Plan) Source() string {
	return filepath.Join(p.Dir, string(p.From))
}

// Destination returns the full target path.
func (p *Plan) Destination() string {
	return filepath.Join(p.Dir, string(p.To))
}

// PlanRename decides the final name for renaming from to requested inside
// view and records the decision in view. Under PolicySkip a taken name
// yields a *RenameError of type DestinationExists and leaves view unchanged.
func PlanRename(view *DirView, from, requested []byte, isDir bool, policy CollisionPolicy) (*Plan, error) {
	plan := &Plan{
		Dir:       view.dir,
		From:      from,
		To:        requested,
		Requested: requested,
		IsDir:     isDir,
	}

	if view.Has(string(requested)) {
		if policy == PolicySkip {
			return nil, &RenameError{
				Type: DestinationExists,
				Path: filepath.Join(view.dir, string(requested)),
			}
		}
		final := GenerateDuplicateName(view.Has, string(requested), isDir)
		plan.To = []byte(final)
		plan.IsDuplicate = true
	}

	view.Move(string(from), string(plan.To))
	return plan, nil
}

// Rename carries out plan. It never replaces an existing entry; a
// destination that turns out to be the source itself (a case-only rename on
// a case-insensitive volume) is allowed.
func Rename(plan *Plan) error {
	src := plan.Source()
	dst := plan.Destination()

	srcInfo, err := os.Lstat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return &RenameError{Type: SourceNotFound, Path: src, Err: err}
		}
		return classifyRenameError(src, err)
	}

	if dstInfo, err := os.Lstat(dst); err == nil && !os.SameFile(srcInfo, dstInfo) {
		return &RenameError{Type: DestinationExists, Path: dst}
	}

	if err := os.Rename(src, dst); err != nil {
		return classifyRenameError(src, err)
	}
	return nil
}

func classifyRenameError(path string, err error) error {
	switch {
	case os.IsNotExist(err):
		return &RenameError{Type: SourceNotFound, Path: path, Err: err}
	case os.IsPermission(err):
		return &RenameError{Type: PermissionDenied, Path: path, Err: err}
	case os.IsExist(err):
		return &RenameError{Type: DestinationExists, Path: path, Err: err}
	default:
		return &RenameError{Type: RenameFailed, Path: path, Err: err}
	}
}
