// Package main provides the CLI entry point for fixnames.
package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/alexflint/go-arg"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = ""

// WalkFlags select how names are normalized. They are accepted by every
// subcommand and override the configuration file.
type WalkFlags struct {
	Root            string `arg:"-r,--root" help:"root of the tree to examine (default: current directory)"`
	FollowLinks     bool   `arg:"-l,--follow-links" help:"follow symlinks to directories"`
	JustTesting     bool   `arg:"-n,--just-testing" help:"do not make changes; just display what actions would be taken"`
	Verbose         bool   `arg:"-v,--verbose" help:"be verbose"`
	Encoding        string `arg:"--encoding" help:"encoding non-UTF-8 names are narrowed to (default: utf8)"`
	FSEncoding      string `arg:"--fs-encoding" help:"encoding names are written in (default: utf8)"`
	StripDiacritics bool   `arg:"--strip-diacritics" help:"remove accents (é becomes e)"`
	Collision       string `arg:"--collision" help:"what to do when a new name is taken: suffix or skip"`
	Strict          bool   `arg:"--strict" help:"exit with status 1 when any warning was printed"`
}

type FixCmd struct{}

type WatchCmd struct{}

type UndoCmd struct {
	RunID  string `arg:"positional" help:"run to undo (default: the latest run not undone yet)"`
	DryRun bool   `arg:"--dry-run" help:"show what would be restored without renaming anything"`
}

type RunsCmd struct {
	Limit int `arg:"--limit" default:"20" help:"show at most this many runs, newest first (0 = all)"`
}

type StatsCmd struct {
	Since string `arg:"--since" help:"only count runs started on or after this date (YYYY-MM-DD)"`
	Top   int    `arg:"--top" default:"10" help:"number of charsets to list (0 = all)"`
}

type CheckCmd struct{}

type InitConfigCmd struct {
	Path  string `arg:"positional" help:"where to write the file (default: ~/.config/fixnames/config.yaml)"`
	Force bool   `arg:"-f,--force" help:"overwrite an existing file"`
}

// Args is the fixnames command line. With no subcommand, fix runs.
type Args struct {
	WalkFlags
	Config string `arg:"-c,--config" help:"configuration file (default: ~/.config/fixnames/config.yaml)"`

	Fix        *FixCmd        `arg:"subcommand:fix" help:"normalize every name under the root (default)"`
	Watch      *WatchCmd      `arg:"subcommand:watch" help:"normalize the tree, then keep renaming new entries until interrupted"`
	Undo       *UndoCmd       `arg:"subcommand:undo" help:"rename the entries of a journaled run back"`
	Runs       *RunsCmd       `arg:"subcommand:runs" help:"list journaled runs"`
	Stats      *StatsCmd      `arg:"subcommand:stats" help:"summarize the journal"`
	Check      *CheckCmd      `arg:"subcommand:check" help:"validate the configuration"`
	InitConfig *InitConfigCmd `arg:"subcommand:init-config" help:"write a configuration file with the defaults"`
}

func (Args) Description() string {
	return "Detect the encoding of every file and directory name in a tree and rename\n" +
		"entries to clean, consistently encoded names.\n"
}

func (Args) Version() string {
	return "fixnames " + appVersion()
}

func appVersion() string {
	if version != "" {
		return version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "(devel)"
}

func main() {
	var args Args
	arg.MustParse(&args)
	os.Exit(run(&args))
}

// run dispatches to the selected subcommand and returns the exit code.
func run(args *Args) int {
	var err error
	code := exitOK

	switch {
	case args.Watch != nil:
		code, err = runWatch(args)
	case args.Undo != nil:
		code, err = runUndo(args)
	case args.Runs != nil:
		err = runRuns(args)
	case args.Stats != nil:
		err = runStats(args)
	case args.Check != nil:
		code, err = runCheck(args)
	case args.InitConfig != nil:
		err = runInitConfig(args)
	default:
		code, err = runFix(args)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	return code
}
