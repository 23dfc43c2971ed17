package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexflint/go-arg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixnames/internal/audit"
	"fixnames/internal/config"
)

// setup isolates the test from the user's config and captures listings.
func setup(t *testing.T) *bytes.Buffer {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	var buf bytes.Buffer
	old := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = old })
	return &buf
}

func parse(t *testing.T, argv ...string) *Args {
	t.Helper()
	var args Args
	p, err := arg.NewParser(arg.Config{Program: "fixnames"}, &args)
	require.NoError(t, err)
	require.NoError(t, p.Parse(argv))
	return &args
}

func TestParseFlags(t *testing.T) {
	args := parse(t, "-r", "/music", "-l", "-n", "-v", "--encoding", "latin1", "--strip-diacritics")
	assert.Equal(t, "/music", args.Root)
	assert.True(t, args.FollowLinks)
	assert.True(t, args.JustTesting)
	assert.True(t, args.Verbose)
	assert.Equal(t, "latin1", args.Encoding)
	assert.True(t, args.StripDiacritics)
	assert.Nil(t, args.Undo)

	args = parse(t, "undo", "--dry-run", "run-1")
	require.NotNil(t, args.Undo)
	assert.True(t, args.Undo.DryRun)
	assert.Equal(t, "run-1", args.Undo.RunID)

	args = parse(t, "runs", "-r", "/music")
	require.NotNil(t, args.Runs)
	assert.Equal(t, "/music", args.Root)
	assert.Equal(t, 20, args.Runs.Limit)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Default()
	applyFlags(cfg, &WalkFlags{Encoding: "cp1252", Collision: "SKIP", FollowLinks: true})

	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, "cp1252", cfg.TargetEncoding)
	assert.Equal(t, "skip", cfg.CollisionPolicy)
	assert.True(t, cfg.FollowLinks)
	assert.False(t, cfg.StripDiacritics)
}

func TestRunFixThenUndo(t *testing.T) {
	buf := setup(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Track#1.mp3"), nil, 0644))

	assert.Equal(t, exitOK, run(parse(t, "-r", root)))
	assert.FileExists(t, filepath.Join(root, "TrackNo.1.mp3"))

	runs, err := audit.NewReader(filepath.Join(root, ".fixnames")).ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Summary.Renamed)

	assert.Equal(t, exitOK, run(parse(t, "runs", "-r", root)))
	assert.Contains(t, buf.String(), string(runs[0].RunID))

	assert.Equal(t, exitOK, run(parse(t, "undo", "-r", root)))
	assert.FileExists(t, filepath.Join(root, "Track#1.mp3"))
	assert.NoFileExists(t, filepath.Join(root, "TrackNo.1.mp3"))
}

func TestRunJustTestingLeavesTreeAlone(t *testing.T) {
	setup(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "Track#1.mp3"), nil, 0644))

	assert.Equal(t, exitOK, run(parse(t, "-n", "-r", root)))
	assert.FileExists(t, filepath.Join(root, "Track#1.mp3"))
	assert.NoDirExists(t, filepath.Join(root, ".fixnames"))
}

func TestRunStrictFailsOnWarnings(t *testing.T) {
	setup(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a#1.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "aNo.1.txt"), nil, 0644))

	assert.Equal(t, exitFailure, run(parse(t, "--strict", "--collision", "skip", "-r", root)))
	assert.FileExists(t, filepath.Join(root, "a#1.txt"))
}

func TestRunMissingRoot(t *testing.T) {
	setup(t)
	assert.Equal(t, exitFailure, run(parse(t, "-r", filepath.Join(t.TempDir(), "missing"))))
}

func TestRunRejectsUnknownEncoding(t *testing.T) {
	setup(t)
	assert.Equal(t, exitFailure, run(parse(t, "--encoding", "klingon", "-r", t.TempDir())))
}

func TestRunCheck(t *testing.T) {
	buf := setup(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("collision_policy: rename\ncascade: [ascii, latin1, utf8]\n"), 0644))

	assert.Equal(t, exitFailure, run(parse(t, "-c", cfgPath, "check")))
	assert.Contains(t, buf.String(), "error: collision_policy")
	assert.Contains(t, buf.String(), "warning: cascade[2]")
}

func TestRunInitConfig(t *testing.T) {
	buf := setup(t)
	path := filepath.Join(t.TempDir(), "fixnames.yaml")

	assert.Equal(t, exitOK, run(parse(t, "init-config", path)))
	assert.Contains(t, buf.String(), "Wrote "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "suffix", cfg.CollisionPolicy)
	assert.Equal(t, 2000, cfg.Watch.DebounceMs)
	assert.Equal(t, 1000, cfg.Watch.StableThresholdMs)

	assert.Equal(t, exitFailure, run(parse(t, "init-config", path)), "refuses to overwrite")
	assert.Equal(t, exitOK, run(parse(t, "init-config", "--force", path)))
}
