package watcher

import (
	"context"
	"fmt"
	"time"

	"fixnames/internal/audit"
	"fixnames/internal/orchestrator"
	"fixnames/internal/output"
	"fixnames/internal/scanner"
)

// WalkerHandler returns a Handler that normalizes each new entry with
// walker, recording into result. A new directory is walked as a whole,
// since entries may have been moved into it before it was watched.
func WalkerHandler(walker *orchestrator.Walker, result *orchestrator.RunResult) Handler {
	return func(ctx context.Context, path string) (Outcome, error) {
		renamed := len(result.Renamed) + len(result.Duplicates)
		skipped := len(result.Skipped)
		errs := len(result.Errors)

		final, err := walker.FixEntry(path, result)
		if err != nil {
			return Outcome{FinalPath: path}, err
		}

		outcome := Outcome{FinalPath: final}
		if walker.IsDir(final) {
			outcome.IsDir = true
			if err := walker.WalkTree(ctx, final, result); err != nil {
				return outcome, err
			}
		}

		outcome.Renamed = len(result.Renamed) + len(result.Duplicates) - renamed
		outcome.Skipped = len(result.Skipped) - skipped
		outcome.Errors = len(result.Errors) - errs
		return outcome, nil
	}
}

// SessionOptions configures Run.
type SessionOptions struct {
	Config     *WatchConfig
	Prune      scanner.PruneSets
	Journal    *audit.Writer // nil disables the journal
	AppVersion string
	Output     *output.Output
}

// Run walks root once, then renames new entries as they appear until ctx
// is done. The whole session is journaled as one WATCH run.
func Run(ctx context.Context, root string, walker *orchestrator.Walker, opts SessionOptions) (*orchestrator.RunResult, *WatchSummary, error) {
	out := opts.Output
	if out == nil {
		out = output.Discard()
	}

	root, err := scanner.CheckRoot(root)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	result := orchestrator.NewRunResult(false)
	if opts.Journal != nil {
		runID, err := opts.Journal.StartRun(audit.RunTypeWatch, root, opts.AppVersion)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start journal run: %w", err)
		}
		result.RunID = runID
	}

	status := audit.RunStatusCompleted
	defer func() {
		result.Duration = time.Since(start)
		if opts.Journal != nil {
			if err := opts.Journal.EndRun(result.RunID, status, result.JournalSummary()); err != nil {
				out.Warn("failed to write journal: %v", err)
			}
		}
	}()

	if err := walker.WalkTree(ctx, root, result); err != nil {
		status = audit.RunStatusInterrupted
		return result, nil, err
	}
	out.Info("%s", result.Summary())

	w := New(opts.Config, WalkerHandler(walker, result), opts.Prune, out)
	if err := w.Start(root); err != nil {
		status = audit.RunStatusFailed
		return result, nil, fmt.Errorf("failed to start watcher: %w", err)
	}
	out.Info("Watching %s (press Ctrl+C to stop)", root)

	<-ctx.Done()
	summary := w.Stop()
	return result, summary, nil
}
