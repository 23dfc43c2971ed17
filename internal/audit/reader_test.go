package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeRun records a fix run with n renames and returns its ID.
func writeRun(t *testing.T, w *Writer, root string, n int) RunID {
	t.Helper()
	runID, err := w.StartRun(RunTypeFix, root, "test")
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		src := filepath.Join(root, "src")
		require.NoError(t, w.RecordRename(src, src+"-fixed", "ascii", "src"))
	}
	require.NoError(t, w.EndRun(runID, RunStatusCompleted, RunSummary{Processed: n, Renamed: n}))
	return runID
}

func TestReaderMissingJournal(t *testing.T) {
	r := NewReader(filepath.Join(t.TempDir(), "nope"))

	runs, err := r.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = r.GetLatestRun()
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestReaderListRuns(t *testing.T) {
	w := newTestWriter(t, DefaultOptions())
	first := writeRun(t, w, "/a", 2)
	second := writeRun(t, w, "/b", 3)

	r := NewReader(w.LogDir())
	runs, err := r.ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, first, runs[0].RunID)
	assert.Equal(t, "/a", runs[0].Root)
	assert.Equal(t, RunTypeFix, runs[0].RunType)
	assert.Equal(t, RunStatusCompleted, runs[0].Status)
	assert.Equal(t, 2, runs[0].Summary.Renamed)
	assert.Equal(t, 2, runs[0].Summary.Processed)
	require.NotNil(t, runs[0].EndTime)

	assert.Equal(t, second, runs[1].RunID)
	assert.Equal(t, 3, runs[1].Summary.Renamed)

	latest, err := r.GetLatestRun()
	require.NoError(t, err)
	assert.Equal(t, second, latest.RunID)
}

func TestReaderInProgressRun(t *testing.T) {
	w := newTestWriter(t, DefaultOptions())
	runID, err := w.StartRun(RunTypeWatch, "/w", "test")
	require.NoError(t, err)
	require.NoError(t, w.RecordSkip("/w/x", ReasonUnencodable, ""))

	info, err := NewReader(w.LogDir()).GetRunByID(runID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusInProgress, info.Status)
	assert.Equal(t, RunTypeWatch, info.RunType)
	assert.Nil(t, info.EndTime)
	assert.Equal(t, 1, info.Summary.Skipped)
}

func TestReaderGetRunUnknown(t *testing.T) {
	w := newTestWriter(t, DefaultOptions())
	writeRun(t, w, "/a", 1)

	r := NewReader(w.LogDir())
	_, err := r.GetRun("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
	_, err = r.GetRunByID("missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestReaderLatestUndoableSkipsUndoneRuns(t *testing.T) {
	w := newTestWriter(t, DefaultOptions())
	first := writeRun(t, w, "/a", 1)
	second := writeRun(t, w, "/b", 1)

	undoID, err := w.StartUndoRun("test", second)
	require.NoError(t, err)
	require.NoError(t, w.EndRun(undoID, RunStatusCompleted, RunSummary{}))

	r := NewReader(w.LogDir())
	run, err := r.GetLatestUndoableRun()
	require.NoError(t, err)
	assert.Equal(t, first, run.RunID)

	info, err := r.GetRunByID(undoID)
	require.NoError(t, err)
	assert.Equal(t, RunTypeUndo, info.RunType)
	require.NotNil(t, info.UndoTargetID)
	assert.Equal(t, second, *info.UndoTargetID)
}

func TestReaderLatestUndoableNone(t *testing.T) {
	w := newTestWriter(t, DefaultOptions())
	only := writeRun(t, w, "/a", 1)
	undoID, err := w.StartUndoRun("test", only)
	require.NoError(t, err)
	require.NoError(t, w.EndRun(undoID, RunStatusCompleted, RunSummary{}))

	_, err = NewReader(w.LogDir()).GetLatestUndoableRun()
	assert.ErrorIs(t, err, ErrNoRuns)
}

func TestReaderFilterEvents(t *testing.T) {
	w := newTestWriter(t, DefaultOptions())
	runID, err := w.StartRun(RunTypeFix, "/r", "test")
	require.NoError(t, err)
	require.NoError(t, w.RecordRename("/r/a", "/r/b", "ascii", "a"))
	require.NoError(t, w.RecordSkip("/r/c", ReasonUndecodable, ""))
	require.NoError(t, w.EndRun(runID, RunStatusCompleted, RunSummary{}))

	r := NewReader(w.LogDir())

	skipped, err := r.FilterEvents(runID, EventFilter{Status: StatusSkipped})
	require.NoError(t, err)
	require.Len(t, skipped, 1)
	assert.Equal(t, "/r/c", skipped[0].SourcePath)

	renames, err := r.FilterEvents(runID, EventFilter{EventTypes: []EventType{EventRename, EventDuplicateRenamed}})
	require.NoError(t, err)
	require.Len(t, renames, 1)
	assert.Equal(t, "/r/b", renames[0].DestinationPath)
}

func TestReaderOrdersRunsByStartTime(t *testing.T) {
	dir := t.TempDir()
	later := Event{Timestamp: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), RunID: "later", EventType: EventRunStart, Status: StatusSuccess}
	earlier := Event{Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), RunID: "earlier", EventType: EventRunStart, Status: StatusSuccess}

	var data []byte
	for _, e := range []Event{later, earlier} {
		line, err := e.MarshalJSON()
		require.NoError(t, err)
		data = append(append(data, line...), '\n')
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, LogFileName), data, 0644))

	runs, err := NewReader(dir).ListRuns()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, RunID("earlier"), runs[0].RunID)
	assert.Equal(t, RunID("later"), runs[1].RunID)
}

func TestReaderRejectsCorruptLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LogFileName), []byte("{not json\n"), 0644))

	_, err := NewReader(dir).ReadAll()
	assert.Error(t, err)
}
