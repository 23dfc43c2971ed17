package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"fixnames/internal/audit"
	"fixnames/internal/charset"
)

// Operation is one rename, carried out or, in a dry run, planned.
type Operation struct {
	Source      string
	Destination string
	Requested   string // path the normalized name asked for
	Raw         []byte // name before the rename
	Label       charset.Label
	IsDir       bool
	IsDuplicate bool
}

// Skip is an entry left under its current name.
type Skip struct {
	Path   string
	Reason audit.ReasonCode
	Err    error
}

// RunResult collects what a walk did.
type RunResult struct {
	RunID      audit.RunID // empty when the journal is off or in dry runs
	DryRun     bool
	Renamed    []Operation // renames that got the requested name
	Duplicates []Operation // renames that needed a _duplicate suffix
	Skipped    []Skip
	Errors     []error
	Processed  int
	Stats      *charset.Stats
	Duration   time.Duration
}

// NewRunResult returns an empty result with fresh encoding statistics.
func NewRunResult(dryRun bool) *RunResult {
	return &RunResult{DryRun: dryRun, Stats: charset.NewStats()}
}

func (r *RunResult) add(op Operation) {
	if op.IsDuplicate {
		r.Duplicates = append(r.Duplicates, op)
		return
	}
	r.Renamed = append(r.Renamed, op)
}

// HasErrors reports whether any entry failed.
func (r *RunResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// JournalSummary converts the counts for the journal's RUN_END event.
func (r *RunResult) JournalSummary() audit.RunSummary {
	return audit.RunSummary{
		Processed:  r.Processed,
		Renamed:    len(r.Renamed),
		Duplicates: len(r.Duplicates),
		Skipped:    len(r.Skipped),
		Errors:     len(r.Errors),
	}
}

// Summary returns the one-line summary printed after a walk.
func (r *RunResult) Summary() string {
	return fmt.Sprintf("Processed %d entries: %d renamed, %d duplicates, %d skipped, %d errors",
		r.Processed, len(r.Renamed), len(r.Duplicates), len(r.Skipped), len(r.Errors))
}

// Report lists every encoding seen with one example name, sorted by label.
func (r *RunResult) Report() string {
	var b strings.Builder
	b.WriteString("filename encodings found:\n")
	if r.Stats == nil {
		return b.String()
	}
	for _, label := range r.Stats.Labels() {
		example, _ := r.Stats.Example(label)
		fmt.Fprintf(&b, "%s (example: %s)\n", label, example)
	}
	return b.String()
}
