// Package orchestrator walks a directory tree and renames every entry whose
// name normalizes to different bytes.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"fixnames/internal/audit"
	"fixnames/internal/charset"
	"fixnames/internal/normalizer"
	"fixnames/internal/organizer"
	"fixnames/internal/output"
	"fixnames/internal/scanner"
)

// Options configures a Walker.
type Options struct {
	FollowLinks bool                      // Treat links to directories as directories
	DryRun      bool                      // Plan renames without touching the filesystem
	Policy      organizer.CollisionPolicy // Empty means suffix
	Prune       scanner.PruneSets         // Zero value prunes dot-prefixed names only
	Normalizer  *normalizer.Normalizer    // Nil means the default normalizer
	Output      *output.Output            // Nil discards messages
	Journal     *audit.Writer             // Nil disables the journal; never written in dry runs
	AppVersion  string
}

// Walker renames entries depth-first. A Walker is not safe for concurrent
// use; callers serialize access.
type Walker struct {
	opts Options
	norm *normalizer.Normalizer
	out  *output.Output
}

// NewWalker fills in defaults and returns a Walker.
func NewWalker(opts Options) (*Walker, error) {
	if opts.Policy == "" {
		opts.Policy = organizer.PolicySuffix
	}
	if _, err := organizer.ParseCollisionPolicy(string(opts.Policy)); err != nil {
		return nil, err
	}
	if opts.Normalizer == nil {
		n, err := normalizer.New(normalizer.Config{})
		if err != nil {
			return nil, fmt.Errorf("failed to build default normalizer: %w", err)
		}
		opts.Normalizer = n
	}
	if opts.Output == nil {
		opts.Output = output.Discard()
	}
	return &Walker{opts: opts, norm: opts.Normalizer, out: opts.Output}, nil
}

// Walk normalizes every entry under root, root itself excluded. The walk
// is recorded as one FIX run in the journal. Cancelling ctx stops the walk
// between entries; the partial result is returned with ctx's error.
func (w *Walker) Walk(ctx context.Context, root string) (*RunResult, error) {
	start := time.Now()

	root, err := scanner.CheckRoot(root)
	if err != nil {
		return nil, err
	}

	result := NewRunResult(w.opts.DryRun)
	w.out.Info("file system encoding is %s", w.norm.FSEncoding())

	if j := w.journal(); j != nil {
		runID, err := j.StartRun(audit.RunTypeFix, root, w.opts.AppVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to start journal run: %w", err)
		}
		result.RunID = runID
	}

	w.out.StartProgress()
	walkErr := w.WalkTree(ctx, root, result)
	w.out.EndProgress()
	result.Duration = time.Since(start)

	if j := w.journal(); j != nil {
		status := audit.RunStatusCompleted
		if walkErr != nil {
			status = audit.RunStatusInterrupted
		}
		if err := j.EndRun(result.RunID, status, result.JournalSummary()); err != nil {
			w.out.Warn("failed to write journal: %v", err)
		}
	}

	return result, walkErr
}

// WalkTree normalizes the entries under dir into result without starting a
// journal run. dir must already carry its final name.
func (w *Walker) WalkTree(ctx context.Context, dir string, result *RunResult) error {
	return w.walkDir(ctx, dir, result, make(map[string]struct{}))
}

func (w *Walker) walkDir(ctx context.Context, dir string, result *RunResult, visited map[string]struct{}) error {
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		if _, seen := visited[resolved]; seen {
			w.out.Verbose("skipping %s: already visited as %s", dir, resolved)
			return nil
		}
		visited[resolved] = struct{}{}
	}

	listing, err := scanner.ListDir(dir, w.listOptions())
	if err != nil {
		w.fail(dir, err, "list", result)
		return nil
	}

	view := organizer.NewDirView(dir, listing.Names())

	subdirs := make([]string, 0, len(listing.Dirs))
	for _, entry := range listing.Dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		subdirs = append(subdirs, w.visit(entry, view, result))
	}
	for _, entry := range listing.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		w.visit(entry, view, result)
	}

	for _, sub := range subdirs {
		if err := w.walkDir(ctx, sub, result, visited); err != nil {
			return err
		}
	}
	return nil
}

// FixEntry normalizes the single entry at path against a fresh listing of
// its parent directory and returns the entry's final path. Pruned and
// vanished entries are left alone.
func (w *Walker) FixEntry(path string, result *RunResult) (string, error) {
	dir, name := filepath.Split(filepath.Clean(path))
	dir = filepath.Clean(dir)

	listing, err := scanner.ListDir(dir, w.listOptions())
	if err != nil {
		return path, err
	}

	for _, group := range [][]scanner.Entry{listing.Dirs, listing.Files} {
		for _, entry := range group {
			if string(entry.Name) == name {
				view := organizer.NewDirView(dir, listing.Names())
				return w.visit(entry, view, result), nil
			}
		}
	}
	return path, nil
}

// IsDir reports whether path is walked as a directory under the walker's
// link policy.
func (w *Walker) IsDir(path string) bool {
	listing, err := scanner.ListDir(filepath.Dir(path), w.listOptions())
	if err != nil {
		return false
	}
	name := filepath.Base(path)
	for _, entry := range listing.Dirs {
		if string(entry.Name) == name {
			return true
		}
	}
	return false
}

// Normalizer returns the normalizer the walker applies.
func (w *Walker) Normalizer() *normalizer.Normalizer {
	return w.norm
}

func (w *Walker) listOptions() scanner.ListOptions {
	return scanner.ListOptions{Prune: w.opts.Prune, FollowLinks: w.opts.FollowLinks}
}

// journal returns the journal writer, or nil when nothing may be written.
func (w *Walker) journal() *audit.Writer {
	if w.opts.DryRun {
		return nil
	}
	return w.opts.Journal
}

// visit normalizes one entry and renames it when its bytes change. It
// returns the entry's path after the visit.
func (w *Walker) visit(entry scanner.Entry, view *organizer.DirView, result *RunResult) string {
	result.Processed++
	w.out.UpdateProgress(result.Processed, view.Dir())

	outcome, err := w.norm.Normalize(entry.Name)
	if outcome.Label != charset.Unknown {
		result.Stats.Record(outcome.Label, outcome.Decoded)
	}
	if err != nil {
		var skip *normalizer.SkipError
		if errors.As(err, &skip) {
			w.skip(entry.Path, audit.ReasonCode(skip.Kind), skip.Encoding, err, result)
			return entry.Path
		}
		w.fail(entry.Path, err, "normalize", result)
		return entry.Path
	}

	if !outcome.Changed(entry.Name) {
		return entry.Path
	}

	plan, err := organizer.PlanRename(view, entry.Name, outcome.Name, entry.IsDir, w.opts.Policy)
	if err != nil {
		w.skip(entry.Path, audit.ReasonDestinationOccupied, outcome.Label, err, result)
		return entry.Path
	}

	if !w.opts.DryRun {
		if err := organizer.Rename(plan); err != nil {
			view.Move(string(plan.To), string(plan.From))
			w.fail(entry.Path, err, "rename", result)
			return entry.Path
		}
	}

	op := Operation{
		Source:      plan.Source(),
		Destination: plan.Destination(),
		Requested:   filepath.Join(plan.Dir, string(plan.Requested)),
		Raw:         entry.Name,
		Label:       outcome.Label,
		IsDir:       entry.IsDir,
		IsDuplicate: plan.IsDuplicate,
	}
	result.add(op)
	w.out.Verbose("renamed %q -> %q (detected charset: %s)", op.Source, op.Destination, op.Label)
	if op.IsDuplicate {
		w.out.Warn("%s already exists, renamed %s to %s", op.Requested, charset.Printable(op.Raw), filepath.Base(op.Destination))
	}

	if j := w.journal(); j != nil {
		var err error
		if op.IsDuplicate {
			err = j.RecordDuplicate(op.Source, op.Requested, op.Destination, string(op.Label), charset.Printable(op.Raw))
		} else {
			err = j.RecordRename(op.Source, op.Destination, string(op.Label), charset.Printable(op.Raw))
		}
		w.journalFailed(err)
	}

	if w.opts.DryRun {
		return entry.Path
	}
	return op.Destination
}

func (w *Walker) skip(path string, reason audit.ReasonCode, label charset.Label, err error, result *RunResult) {
	result.Skipped = append(result.Skipped, Skip{Path: path, Reason: reason, Err: err})
	w.out.Warn("%v [directory: %s, encoding: %s]", err, filepath.Dir(path), label)
	if j := w.journal(); j != nil {
		w.journalFailed(j.RecordSkip(path, reason, err.Error()))
	}
}

func (w *Walker) fail(path string, err error, operation string, result *RunResult) {
	result.Errors = append(result.Errors, err)
	w.out.Error("%s %s: %v", operation, path, err)
	if j := w.journal(); j != nil {
		w.journalFailed(j.RecordError(path, errorType(err), err.Error(), operation))
	}
}

func (w *Walker) journalFailed(err error) {
	if err != nil {
		w.out.Warn("failed to write journal: %v", err)
	}
}

// errorType names err's typed category for the journal.
func errorType(err error) string {
	var renameErr *organizer.RenameError
	if errors.As(err, &renameErr) {
		return string(renameErr.Type)
	}
	var scanErr *scanner.ScanError
	if errors.As(err, &scanErr) {
		return string(scanErr.Type)
	}
	return "UNKNOWN"
}
