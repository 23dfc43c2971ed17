package audit

import (
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNeedsRotation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, LogFileName)
	rm := NewRotationManager(Options{RotationSize: 10})

	needs, err := rm.NeedsRotation(logPath)
	require.NoError(t, err)
	assert.False(t, needs, "missing file never needs rotation")

	require.NoError(t, os.WriteFile(logPath, []byte("12345"), 0644))
	needs, err = rm.NeedsRotation(logPath)
	require.NoError(t, err)
	assert.False(t, needs)

	require.NoError(t, os.WriteFile(logPath, []byte("1234567890"), 0644))
	needs, err = rm.NeedsRotation(logPath)
	require.NoError(t, err)
	assert.True(t, needs)

	disabled := NewRotationManager(Options{RotationSize: 0})
	needs, err = disabled.NeedsRotation(logPath)
	require.NoError(t, err)
	assert.False(t, needs)
}

func TestGenerateRotatedFilename(t *testing.T) {
	rm := NewRotationManager(DefaultOptions())
	rm.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 42, time.UTC) }

	assert.Equal(t, "fixnames-journal-20240506-070809-000000042.jsonl", rm.GenerateRotatedFilename())
}

func TestRotatedFilenamesSortChronologically(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("name order matches time order", prop.ForAll(
		func(a, b int64) bool {
			ta := time.Unix(0, a).UTC()
			tb := time.Unix(0, b).UTC()
			rm := NewRotationManager(DefaultOptions())

			rm.now = func() time.Time { return ta }
			na := rm.GenerateRotatedFilename()
			rm.now = func() time.Time { return tb }
			nb := rm.GenerateRotatedFilename()

			names := []string{nb, na}
			sort.Strings(names)
			if ta.Before(tb) {
				return names[0] == na
			}
			if tb.Before(ta) {
				return names[0] == nb
			}
			return na == nb
		},
		// 2001 to 2286, where the year keeps four digits
		gen.Int64Range(1e18, 9e18),
		gen.Int64Range(1e18, 9e18),
	))

	properties.TestingRun(t)
}

func TestRotateWithFilename(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, LogFileName)
	require.NoError(t, os.WriteFile(logPath, []byte("x\n"), 0644))

	rm := NewRotationManager(DefaultOptions())
	rotated, err := rm.RotateWithFilename(logPath, "fixnames-journal-20240101-000000-000000000.jsonl")
	require.NoError(t, err)
	assert.FileExists(t, rotated)
	assert.NoFileExists(t, logPath)

	require.NoError(t, os.WriteFile(logPath, []byte("y\n"), 0644))
	_, err = rm.RotateWithFilename(logPath, "fixnames-journal-20240101-000000-000000000.jsonl")
	assert.Error(t, err, "an existing segment is never overwritten")
}

func TestGetAllLogFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"fixnames-journal-20240102-000000-000000000.jsonl",
		"fixnames-journal-20240101-000000-000000000.jsonl",
		LogFileName,
		"unrelated.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}

	files, err := GetAllLogFiles(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "fixnames-journal-20240101-000000-000000000.jsonl"),
		filepath.Join(dir, "fixnames-journal-20240102-000000-000000000.jsonl"),
		filepath.Join(dir, LogFileName),
	}, files)
}

func TestDiscoverSegmentsMissingDir(t *testing.T) {
	segments, err := DiscoverSegments(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Nil(t, segments)
}

func TestCreateRotationEvent(t *testing.T) {
	event := CreateRotationEvent("run", LogFileName, "seg.jsonl")
	assert.Equal(t, EventRotation, event.EventType)
	assert.Equal(t, RunID("run"), event.RunID)
	assert.Equal(t, LogFileName, event.Metadata[MetaPreviousFile])
	assert.Equal(t, "seg.jsonl", event.Metadata[MetaNewFile])
}
