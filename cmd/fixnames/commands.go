package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"

	"fixnames/internal/audit"
	"fixnames/internal/config"
	"fixnames/internal/orchestrator"
	"fixnames/internal/output"
	"fixnames/internal/scanner"
	"fixnames/internal/watcher"
)

// stdout is where tables and listings go; tests replace it.
var stdout io.Writer = os.Stdout

// settings loads the configuration and applies the command line on top.
func settings(args *Args) (*config.Config, error) {
	cfg, err := config.Load(args.Config)
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	applyFlags(cfg, &args.WalkFlags)
	if err := config.Validate(cfg); err != nil {
		return nil, errors.Wrap(err, "invalid command line")
	}
	return cfg, nil
}

// applyFlags overrides cfg with the flags that were given. Switches can
// only turn options on.
func applyFlags(cfg *config.Config, f *WalkFlags) {
	if f.Root != "" {
		cfg.Root = f.Root
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	if f.FollowLinks {
		cfg.FollowLinks = true
	}
	if f.Verbose {
		cfg.Verbose = true
	}
	if f.Encoding != "" {
		cfg.TargetEncoding = f.Encoding
	}
	if f.FSEncoding != "" {
		cfg.FSEncoding = f.FSEncoding
	}
	if f.StripDiacritics {
		cfg.StripDiacritics = true
	}
	if f.Collision != "" {
		cfg.CollisionPolicy = f.Collision
		config.ApplyDefaults(cfg)
	}
}

func newOutput(cfg *config.Config) *output.Output {
	oc := output.DefaultConfig()
	oc.Verbose = cfg.Verbose
	return output.New(oc)
}

// absRoot resolves the root the journal location is derived from.
func absRoot(cfg *config.Config) (string, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return "", errors.Wrapf(err, "resolve root %s", cfg.Root)
	}
	return root, nil
}

// journalDir returns the journal directory, or an error when the journal is off.
func journalDir(cfg *config.Config) (string, audit.Options, error) {
	opts, err := cfg.JournalOptions()
	if err != nil {
		return "", opts, err
	}
	if !opts.Enabled {
		return "", opts, errors.New("the journal is disabled (journal.enabled: false)")
	}
	root, err := absRoot(cfg)
	if err != nil {
		return "", opts, err
	}
	return opts.Dir(root), opts, nil
}

// openJournal opens the journal writer for a renaming run. It returns nil
// for dry runs and when the journal is disabled.
func openJournal(cfg *config.Config, dryRun bool) (*audit.Writer, error) {
	opts, err := cfg.JournalOptions()
	if err != nil {
		return nil, err
	}
	if dryRun || !opts.Enabled {
		return nil, nil
	}
	// The journal lives under the root; never create a missing root for it.
	if _, err := scanner.CheckRoot(cfg.Root); err != nil {
		return nil, err
	}
	dir, _, err := journalDir(cfg)
	if err != nil {
		return nil, err
	}
	w, err := audit.NewWriter(dir, opts)
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}
	return w, nil
}

func newWalker(cfg *config.Config, out *output.Output, journal *audit.Writer, dryRun bool) (*orchestrator.Walker, error) {
	norm, err := cfg.Normalizer()
	if err != nil {
		return nil, errors.Wrap(err, "build normalizer")
	}
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	return orchestrator.NewWalker(orchestrator.Options{
		FollowLinks: cfg.FollowLinks,
		DryRun:      dryRun,
		Policy:      policy,
		Prune:       cfg.PruneSets(),
		Normalizer:  norm,
		Output:      out,
		Journal:     journal,
		AppVersion:  appVersion(),
	})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// exitCode maps the warnings printed during a run onto the exit status.
func exitCode(strict bool, out *output.Output) int {
	if strict && out.Warnings()+out.Errors() > 0 {
		return exitFailure
	}
	return exitOK
}

// printResult prints planned renames for dry runs, the encoding report and
// the summary line.
func printResult(out *output.Output, result *orchestrator.RunResult) {
	if result.DryRun {
		ops := append(append([]orchestrator.Operation(nil), result.Renamed...), result.Duplicates...)
		for _, op := range ops {
			out.Info("would rename %q -> %q", op.Source, op.Destination)
		}
	}
	out.Info("%s", result.Report())
	out.Info("%s", result.Summary())
	if result.RunID != "" {
		out.Verbose("journal run %s", result.RunID)
	}
}

func runFix(args *Args) (int, error) {
	cfg, err := settings(args)
	if err != nil {
		return exitFailure, err
	}
	out := newOutput(cfg)
	dryRun := args.JustTesting

	journal, err := openJournal(cfg, dryRun)
	if err != nil {
		return exitFailure, err
	}
	if journal != nil {
		defer journal.Close()
	}

	walker, err := newWalker(cfg, out, journal, dryRun)
	if err != nil {
		return exitFailure, err
	}

	ctx, stop := signalContext()
	defer stop()

	result, err := walker.Walk(ctx, cfg.Root)
	if result != nil {
		printResult(out, result)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			out.Warn("interrupted; the walk stopped early")
			return exitInterrupted, nil
		}
		return exitFailure, errors.Wrapf(err, "walk %s", cfg.Root)
	}
	return exitCode(args.Strict, out), nil
}

func runWatch(args *Args) (int, error) {
	if args.JustTesting {
		return exitFailure, errors.New("watch cannot run with --just-testing")
	}
	cfg, err := settings(args)
	if err != nil {
		return exitFailure, err
	}
	out := newOutput(cfg)

	journal, err := openJournal(cfg, false)
	if err != nil {
		return exitFailure, err
	}
	if journal != nil {
		defer journal.Close()
	}

	walker, err := newWalker(cfg, out, journal, false)
	if err != nil {
		return exitFailure, err
	}

	ctx, stop := signalContext()
	defer stop()

	result, summary, err := watcher.Run(ctx, cfg.Root, walker, watcher.SessionOptions{
		Config:     cfg.WatchConfig(),
		Prune:      cfg.PruneSets(),
		Journal:    journal,
		AppVersion: appVersion(),
		Output:     out,
	})
	if summary != nil {
		out.Info("Watched for %s: %d entries handled, %d renamed, %d skipped, %d errors",
			summary.Duration.Truncate(time.Second), summary.Handled, summary.Renamed, summary.Skipped, summary.Errors)
	}
	if result != nil {
		printResult(out, result)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return exitInterrupted, nil
		}
		return exitFailure, errors.Wrap(err, "watch")
	}
	return exitCode(args.Strict, out), nil
}

func runUndo(args *Args) (int, error) {
	cfg, err := settings(args)
	if err != nil {
		return exitFailure, err
	}
	out := newOutput(cfg)

	dir, opts, err := journalDir(cfg)
	if err != nil {
		return exitFailure, err
	}
	reader := audit.NewReader(dir)

	target := audit.RunID(args.Undo.RunID)
	if target == "" {
		latest, err := reader.GetLatestUndoableRun()
		if err != nil {
			return exitFailure, errors.Wrap(err, "find run to undo")
		}
		target = latest.RunID
	}

	if args.Undo.DryRun || args.JustTesting {
		preview, err := audit.NewUndoEngine(reader, nil, appVersion()).PreviewUndo(target)
		if err != nil {
			return exitFailure, errors.Wrapf(err, "preview undo of %s", target)
		}
		for _, ev := range preview.EventsToUndo {
			if ev.WillRestore {
				out.Info("would restore %q -> %q", ev.DestPath, ev.SourcePath)
			} else {
				out.Info("would skip %q (%s)", ev.DestPath, ev.Reason)
			}
		}
		out.Info("Undo of run %s would restore %d entries and skip %d", target, preview.WillRestore, preview.WillSkip)
		return exitOK, nil
	}

	writer, err := audit.NewWriter(dir, opts)
	if err != nil {
		return exitFailure, errors.Wrap(err, "open journal")
	}
	defer writer.Close()

	result, err := audit.NewUndoEngine(reader, writer, appVersion()).UndoRun(target)
	if err != nil {
		return exitFailure, errors.Wrapf(err, "undo %s", target)
	}
	for _, f := range result.FailureDetails {
		out.Warn("not restored %q: %s", f.DestPath, f.Message)
	}
	for _, err := range result.JournalErrors {
		out.Warn("failed to write journal: %v", err)
	}
	out.Info("Restored %d of %d entries from run %s (undo run %s)",
		result.Restored, result.TotalEvents, result.TargetRunID, result.UndoRunID)

	if result.Skipped > 0 && result.Restored == 0 {
		return exitFailure, nil
	}
	return exitCode(args.Strict, out), nil
}

func runRuns(args *Args) error {
	cfg, err := settings(args)
	if err != nil {
		return err
	}
	dir, _, err := journalDir(cfg)
	if err != nil {
		return err
	}

	runs, err := audit.NewReader(dir).ListRuns()
	if err != nil {
		return errors.Wrap(err, "read journal")
	}
	if len(runs) == 0 {
		fmt.Fprintf(stdout, "No runs journaled in %s\n", dir)
		return nil
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartTime.After(runs[j].StartTime)
	})
	if limit := args.Runs.Limit; limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	t := newTable()
	t.AppendHeader(table.Row{"Run ID", "Type", "Status", "Started", "Renamed", "Duplicates", "Skipped", "Errors", "Root"})
	for _, run := range runs {
		root := run.Root
		if run.UndoTargetID != nil {
			root = "undo of " + string(*run.UndoTargetID)
		}
		t.AppendRow(table.Row{
			run.RunID,
			run.RunType,
			run.Status,
			run.StartTime.Local().Format("2006-01-02 15:04:05"),
			run.Summary.Renamed,
			run.Summary.Duplicates,
			run.Summary.Skipped,
			run.Summary.Errors,
			root,
		})
	}
	t.Render()
	return nil
}

func runStats(args *Args) error {
	cfg, err := settings(args)
	if err != nil {
		return err
	}
	dir, _, err := journalDir(cfg)
	if err != nil {
		return err
	}

	opts := audit.StatsOptions{TopN: args.Stats.Top}
	if args.Stats.Since != "" {
		since, err := time.ParseInLocation("2006-01-02", args.Stats.Since, time.Local)
		if err != nil {
			return errors.Wrapf(err, "invalid --since %q", args.Stats.Since)
		}
		opts.Since = &since
	}

	stats, err := audit.AggregateStats(dir, opts)
	if err != nil {
		return err
	}
	if stats.TotalRuns == 0 && stats.TotalUndos == 0 {
		fmt.Fprintf(stdout, "No runs journaled in %s\n", dir)
		return nil
	}

	fmt.Fprintf(stdout, "%d runs between %s and %s, %d undone\n", stats.TotalRuns,
		stats.FirstRun.Local().Format("2006-01-02"), stats.LastRun.Local().Format("2006-01-02"), stats.TotalUndos)
	fmt.Fprintf(stdout, "%d renamed, %d duplicates, %d skipped\n",
		stats.TotalRenamed, stats.TotalDuplicates, stats.TotalSkipped)

	labels := make([]string, 0, len(stats.ByCharset))
	for label := range stats.ByCharset {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if stats.ByCharset[labels[i]] != stats.ByCharset[labels[j]] {
			return stats.ByCharset[labels[i]] > stats.ByCharset[labels[j]]
		}
		return labels[i] < labels[j]
	})

	t := newTable()
	t.AppendHeader(table.Row{"Charset", "Renames"})
	for _, label := range labels {
		t.AppendRow(table.Row{label, stats.ByCharset[label]})
	}
	t.Render()
	return nil
}

func runCheck(args *Args) (int, error) {
	cfg, err := config.Read(args.Config)
	if err != nil {
		return exitFailure, errors.Wrap(err, "load configuration")
	}
	applyFlags(cfg, &args.WalkFlags)

	result := config.ValidateConfig(cfg)
	for _, e := range result.Errors {
		fmt.Fprintf(stdout, "error: %s\n", e)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(stdout, "warning: %s\n", w)
	}
	if !result.Valid {
		return exitFailure, nil
	}
	fmt.Fprintf(stdout, "configuration OK (%d warnings)\n", len(result.Warnings))
	if args.Strict && len(result.Warnings) > 0 {
		return exitFailure, nil
	}
	return exitOK, nil
}

func runInitConfig(args *Args) error {
	path := args.InitConfig.Path
	if path == "" {
		path = config.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !args.InitConfig.Force {
		return errors.Errorf("%s already exists (use --force to overwrite)", path)
	}
	if err := config.Save(config.Default(), path); err != nil {
		return errors.Wrap(err, "write configuration")
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(stdout)
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	return t
}
