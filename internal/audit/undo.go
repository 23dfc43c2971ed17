package audit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"fixnames/internal/organizer"
)

// ErrCannotUndoUndo is returned when asked to undo an undo run.
var ErrCannotUndoUndo = errors.New("cannot undo an UNDO run")

// UndoResult contains the result of an undo operation.
type UndoResult struct {
	UndoRunID      RunID       // The run ID of the undo operation itself
	TargetRunID    RunID       // The run ID that was undone
	TotalEvents    int         // Rename events processed
	Restored       int         // Entries moved back
	Skipped        int         // Entries left alone
	FailureDetails []UndoError // Why entries were left alone
	JournalErrors  []error     // Events that could not be written to the journal
}

// UndoError explains why one entry was not restored.
type UndoError struct {
	SourcePath string     // Original path the entry should return to
	DestPath   string     // Path the entry currently has
	Reason     ReasonCode // Reason for the skip
	Message    string     // Detailed message
}

// UndoPreview shows what an undo would do without executing it.
type UndoPreview struct {
	TargetRunID  RunID
	EventsToUndo []UndoPreviewEvent
	WillRestore  int
	WillSkip     int
}

// UndoPreviewEvent describes one rename in a preview.
type UndoPreviewEvent struct {
	EventType   EventType
	SourcePath  string
	DestPath    string
	WillRestore bool
	Reason      ReasonCode // set when WillRestore is false
}

// UndoEngine reverses the renames of a run, newest first.
type UndoEngine struct {
	reader     *Reader
	writer     *Writer
	appVersion string
}

// NewUndoEngine creates a new UndoEngine with the given reader and writer.
func NewUndoEngine(reader *Reader, writer *Writer, appVersion string) *UndoEngine {
	return &UndoEngine{reader: reader, writer: writer, appVersion: appVersion}
}

// UndoLatest undoes the most recent run that has not been undone yet.
func (e *UndoEngine) UndoLatest() (*UndoResult, error) {
	run, err := e.reader.GetLatestUndoableRun()
	if err != nil {
		return nil, err
	}
	return e.UndoRun(run.RunID)
}

// UndoRun moves every entry renamed by runID back to its original name.
// An entry is restored only when it still sits at its renamed path and
// the original path is free; anything else is recorded as UNDO_SKIP.
func (e *UndoEngine) UndoRun(runID RunID) (*UndoResult, error) {
	events, err := e.renameEvents(runID)
	if err != nil {
		return nil, err
	}

	undoRunID, err := e.writer.StartUndoRun(e.appVersion, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to start undo run: %w", err)
	}

	result := &UndoResult{
		UndoRunID:   undoRunID,
		TargetRunID: runID,
		TotalEvents: len(events),
	}

	for _, event := range events {
		undoErr, journalErr := e.undoRename(event)
		if journalErr != nil {
			result.JournalErrors = append(result.JournalErrors, journalErr)
		}
		if undoErr != nil {
			result.Skipped++
			result.FailureDetails = append(result.FailureDetails, *undoErr)
			continue
		}
		result.Restored++
	}

	status := RunStatusCompleted
	if result.Skipped > 0 && result.Restored == 0 {
		status = RunStatusFailed
	}
	summary := RunSummary{
		Processed: result.TotalEvents,
		Renamed:   result.Restored,
		Skipped:   result.Skipped,
	}
	if err := e.writer.EndRun(undoRunID, status, summary); err != nil {
		return result, fmt.Errorf("failed to end undo run: %w", err)
	}

	return result, nil
}

// PreviewUndo reports what UndoRun would do against the current filesystem.
func (e *UndoEngine) PreviewUndo(runID RunID) (*UndoPreview, error) {
	events, err := e.renameEvents(runID)
	if err != nil {
		return nil, err
	}

	preview := &UndoPreview{TargetRunID: runID}
	for _, event := range events {
		pe := UndoPreviewEvent{
			EventType:  event.EventType,
			SourcePath: event.SourcePath,
			DestPath:   event.DestinationPath,
		}
		if reason := checkRestorable(event.SourcePath, event.DestinationPath); reason != "" {
			pe.Reason = reason
			preview.WillSkip++
		} else {
			pe.WillRestore = true
			preview.WillRestore++
		}
		preview.EventsToUndo = append(preview.EventsToUndo, pe)
	}
	return preview, nil
}

// renameEvents returns the rename events of runID, newest first.
func (e *UndoEngine) renameEvents(runID RunID) ([]Event, error) {
	info, err := e.reader.GetRunByID(runID)
	if err != nil {
		return nil, err
	}
	if info.RunType == RunTypeUndo {
		return nil, ErrCannotUndoUndo
	}

	events, err := e.reader.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events for run %s: %w", runID, err)
	}

	// Journal order is rename order; reversing it restores children
	// before the directories that contain them.
	var renames []Event
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].IsRename() {
			renames = append(renames, events[i])
		}
	}
	return renames, nil
}

// undoRename moves one entry back. The second result reports a failure to
// journal the outcome; it does not affect whether the entry was restored.
func (e *UndoEngine) undoRename(event Event) (*UndoError, error) {
	original := event.SourcePath
	current := event.DestinationPath

	if reason := checkRestorable(original, current); reason != "" {
		return e.skip(original, current, reason, skipMessage(reason))
	}

	if filepath.Dir(original) != filepath.Dir(current) {
		return e.skip(original, current, ReasonSourceNotFound, "renamed entry is no longer in its original directory")
	}

	plan := &organizer.Plan{
		Dir:  filepath.Dir(current),
		From: []byte(filepath.Base(current)),
		To:   []byte(filepath.Base(original)),
	}
	if err := organizer.Rename(plan); err != nil {
		return e.skip(original, current, undoReason(err), err.Error())
	}

	return nil, e.writer.RecordUndoRename(original, current)
}

func (e *UndoEngine) skip(original, current string, reason ReasonCode, message string) (*UndoError, error) {
	undoErr := &UndoError{
		SourcePath: original,
		DestPath:   current,
		Reason:     reason,
		Message:    message,
	}
	return undoErr, e.writer.RecordUndoSkip(original, current, reason)
}

// undoReason maps a failed rename back onto a journal reason code.
func undoReason(err error) ReasonCode {
	var renameErr *organizer.RenameError
	if !errors.As(err, &renameErr) {
		return ReasonRenameFailed
	}
	switch renameErr.Type {
	case organizer.SourceNotFound:
		return ReasonSourceNotFound
	case organizer.DestinationExists:
		return ReasonDestinationOccupied
	case organizer.PermissionDenied:
		return ReasonPermissionDenied
	default:
		return ReasonRenameFailed
	}
}

// checkRestorable returns the reason current cannot go back to original,
// or "" when it can.
func checkRestorable(original, current string) ReasonCode {
	currentInfo, err := os.Lstat(current)
	if err != nil {
		return ReasonSourceNotFound
	}
	if originalInfo, err := os.Lstat(original); err == nil && !os.SameFile(currentInfo, originalInfo) {
		return ReasonDestinationOccupied
	}
	return ""
}

func skipMessage(reason ReasonCode) string {
	switch reason {
	case ReasonSourceNotFound:
		return "renamed entry no longer exists"
	case ReasonDestinationOccupied:
		return "original name is taken"
	default:
		return string(reason)
	}
}
