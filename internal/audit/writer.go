package audit

import (
	"bufio"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// ErrNoActiveRun is returned when an entry event is recorded outside a run.
var ErrNoActiveRun = errors.New("no active run: call StartRun first")

// Writer appends events to the journal. Every event is flushed and synced
// before the call returns, so a crash loses at most the event in flight.
// It is safe for concurrent use.
type Writer struct {
	mu         sync.Mutex
	file       *os.File
	writer     *bufio.Writer
	logDir     string
	logPath    string
	currentRun *RunID
	rotation   *RotationManager
}

// NewWriter opens (or creates) the journal in logDir. A new journal starts
// with a LOG_INITIALIZED event.
func NewWriter(logDir string, opts Options) (*Writer, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)

	isNewLog := false
	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		isNewLog = true
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	w := &Writer{
		file:     file,
		writer:   bufio.NewWriter(file),
		logDir:   logDir,
		logPath:  logPath,
		rotation: NewRotationManager(opts),
	}

	if isNewLog {
		err := w.appendLocked(Event{
			Timestamp: time.Now().UTC(),
			EventType: EventLogInitialized,
			Status:    StatusSuccess,
			Metadata:  map[string]string{MetaLogPath: logPath},
		})
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write LOG_INITIALIZED event: %w", err)
		}
	}

	return w, nil
}

// GenerateRunID generates a new UUID v4 format Run ID.
func GenerateRunID() (RunID, error) {
	uuid := make([]byte, 16)
	if _, err := rand.Read(uuid); err != nil {
		return "", fmt.Errorf("failed to generate UUID: %w", err)
	}

	uuid[6] = (uuid[6] & 0x0f) | 0x40 // Version 4
	uuid[8] = (uuid[8] & 0x3f) | 0x80 // Variant RFC 4122

	return RunID(fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		uuid[0:4],
		uuid[4:6],
		uuid[6:8],
		uuid[8:10],
		uuid[10:16],
	)), nil
}

// StartRun begins a fix or watch run over root and writes RUN_START.
func (w *Writer) StartRun(runType RunType, root, appVersion string) (RunID, error) {
	return w.start(map[string]string{
		MetaRunType:    string(runType),
		MetaRoot:       root,
		MetaAppVersion: appVersion,
	})
}

// StartUndoRun begins an undo of target and writes RUN_START.
func (w *Writer) StartUndoRun(appVersion string, target RunID) (RunID, error) {
	return w.start(map[string]string{
		MetaRunType:    string(RunTypeUndo),
		MetaUndoTarget: string(target),
		MetaAppVersion: appVersion,
	})
}

func (w *Writer) start(metadata map[string]string) (RunID, error) {
	runID, err := GenerateRunID()
	if err != nil {
		return "", fmt.Errorf("failed to generate run ID: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	err = w.writeEventLocked(Event{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunStart,
		Status:    StatusSuccess,
		Metadata:  metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to write RUN_START event: %w", err)
	}

	w.currentRun = &runID
	return runID, nil
}

// EndRun records the run completion status and summary.
func (w *Writer) EndRun(runID RunID, status RunStatus, summary RunSummary) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	err := w.writeEventLocked(Event{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRunEnd,
		Status:    runStatusToOperationStatus(status),
		Metadata: map[string]string{
			MetaStatus:   string(status),
			"processed":  strconv.Itoa(summary.Processed),
			"renamed":    strconv.Itoa(summary.Renamed),
			"duplicates": strconv.Itoa(summary.Duplicates),
			"skipped":    strconv.Itoa(summary.Skipped),
			"errors":     strconv.Itoa(summary.Errors),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write RUN_END event: %w", err)
	}

	w.currentRun = nil
	return nil
}

func runStatusToOperationStatus(status RunStatus) OperationStatus {
	switch status {
	case RunStatusFailed, RunStatusInterrupted:
		return StatusFailure
	default:
		return StatusSuccess
	}
}

// WriteEvent appends a fully formed event.
func (w *Writer) WriteEvent(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeEventLocked(event)
}

// record stamps event with the active run and the current time.
func (w *Writer) record(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.currentRun == nil {
		return ErrNoActiveRun
	}
	event.RunID = *w.currentRun
	event.Timestamp = time.Now().UTC()
	return w.writeEventLocked(event)
}

// RecordRename records a RENAME event.
func (w *Writer) RecordRename(source, dest, label, rawName string) error {
	return w.record(Event{
		EventType:       EventRename,
		Status:          StatusSuccess,
		SourcePath:      source,
		DestinationPath: dest,
		Metadata: map[string]string{
			MetaCharset: label,
			MetaRawName: rawName,
		},
	})
}

// RecordDuplicate records a DUPLICATE_RENAMED event for a rename that had to
// take a suffixed name because requested was taken.
func (w *Writer) RecordDuplicate(source, requested, dest, label, rawName string) error {
	return w.record(Event{
		EventType:       EventDuplicateRenamed,
		Status:          StatusSuccess,
		SourcePath:      source,
		DestinationPath: dest,
		ReasonCode:      ReasonDuplicateRenamed,
		Metadata: map[string]string{
			MetaCharset:   label,
			MetaRawName:   rawName,
			MetaRequested: requested,
		},
	})
}

// RecordSkip records a SKIP event.
func (w *Writer) RecordSkip(source string, reason ReasonCode, message string) error {
	event := Event{
		EventType:  EventSkip,
		Status:     StatusSkipped,
		SourcePath: source,
		ReasonCode: reason,
	}
	if message != "" {
		event.Metadata = map[string]string{"message": message}
	}
	return w.record(event)
}

// RecordError records an ERROR event.
func (w *Writer) RecordError(source, errType, errMsg, operation string) error {
	return w.record(Event{
		EventType:  EventError,
		Status:     StatusFailure,
		SourcePath: source,
		ErrorDetails: &ErrorDetails{
			ErrorType:    errType,
			ErrorMessage: errMsg,
			Operation:    operation,
		},
	})
}

// RecordUndoRename records an entry moved back from dest to source.
func (w *Writer) RecordUndoRename(source, dest string) error {
	return w.record(Event{
		EventType:       EventUndoRename,
		Status:          StatusSuccess,
		SourcePath:      source,
		DestinationPath: dest,
	})
}

// RecordUndoSkip records an entry undo left alone.
func (w *Writer) RecordUndoSkip(source, dest string, reason ReasonCode) error {
	return w.record(Event{
		EventType:       EventUndoSkip,
		Status:          StatusSkipped,
		SourcePath:      source,
		DestinationPath: dest,
		ReasonCode:      reason,
	})
}

// writeEventLocked appends event and rotates afterwards when needed.
func (w *Writer) writeEventLocked(event Event) error {
	if err := w.appendLocked(event); err != nil {
		return err
	}
	if event.EventType != EventRotation {
		if err := w.checkAndRotate(); err != nil {
			return fmt.Errorf("failed to check/perform rotation: %w", err)
		}
	}
	return nil
}

// appendLocked writes one JSON line, then flushes and syncs.
func (w *Writer) appendLocked(event Event) error {
	data, err := event.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if _, err := w.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	if err := w.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush event: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync event to disk: %w", err)
	}
	return nil
}

// checkAndRotate closes the active journal with a ROTATION event, moves it
// to a segment and opens a fresh one.
func (w *Writer) checkAndRotate() error {
	needsRotation, err := w.rotation.NeedsRotation(w.logPath)
	if err != nil || !needsRotation {
		return err
	}

	rotatedFilename := w.rotation.GenerateRotatedFilename()

	var runID RunID
	if w.currentRun != nil {
		runID = *w.currentRun
	}
	if err := w.appendLocked(CreateRotationEvent(runID, LogFileName, rotatedFilename)); err != nil {
		return fmt.Errorf("failed to write rotation event: %w", err)
	}

	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal for rotation: %w", err)
	}
	if _, err := w.rotation.RotateWithFilename(w.logPath, rotatedFilename); err != nil {
		return err
	}

	file, err := os.OpenFile(w.logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open new journal after rotation: %w", err)
	}
	w.file = file
	w.writer = bufio.NewWriter(file)
	return nil
}

// Close flushes any buffered data and closes the journal.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush on close: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}
	return nil
}

// CurrentRunID returns the active run ID, or nil between runs.
func (w *Writer) CurrentRunID() *RunID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.currentRun
}

// LogPath returns the path of the active journal file.
func (w *Writer) LogPath() string {
	return w.logPath
}

// LogDir returns the journal directory.
func (w *Writer) LogDir() string {
	return w.logDir
}
