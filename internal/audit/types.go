// Package audit keeps the rename journal: an append-only JSON Lines log of
// every rename fixnames performs, with enough detail to list and undo runs.
package audit

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
)

// RunID is a unique identifier for each program execution.
// It uses UUID v4 format: "xxxxxxxx-xxxx-4xxx-yxxx-xxxxxxxxxxxx"
type RunID string

// EventType represents the type of journal event.
type EventType string

const (
	// Run lifecycle events
	EventRunStart EventType = "RUN_START"
	EventRunEnd   EventType = "RUN_END"

	// Entry events
	EventRename           EventType = "RENAME"
	EventDuplicateRenamed EventType = "DUPLICATE_RENAMED"
	EventSkip             EventType = "SKIP"
	EventError            EventType = "ERROR"

	// Undo events
	EventUndoRename EventType = "UNDO_RENAME"
	EventUndoSkip   EventType = "UNDO_SKIP"

	// System events
	EventRotation       EventType = "ROTATION"
	EventLogInitialized EventType = "LOG_INITIALIZED"
)

// OperationStatus represents the outcome of an operation.
type OperationStatus string

const (
	StatusSuccess OperationStatus = "SUCCESS"
	StatusFailure OperationStatus = "FAILURE"
	StatusSkipped OperationStatus = "SKIPPED"
)

// ReasonCode explains a skip.
type ReasonCode string

const (
	ReasonUndecodable         ReasonCode = "UNDECODABLE"
	ReasonUnencodable         ReasonCode = "UNENCODABLE"
	ReasonDestinationOccupied ReasonCode = "DESTINATION_OCCUPIED"
	ReasonSourceNotFound      ReasonCode = "SOURCE_NOT_FOUND"
	ReasonDuplicateRenamed    ReasonCode = "DUPLICATE_RENAMED"
	ReasonPermissionDenied    ReasonCode = "PERMISSION_DENIED"
	ReasonRenameFailed        ReasonCode = "RENAME_FAILED"
	ReasonInvalidName         ReasonCode = "INVALID_NAME"
)

// RunStatus represents the status of a run.
type RunStatus string

const (
	RunStatusInProgress  RunStatus = "IN_PROGRESS"
	RunStatusCompleted   RunStatus = "COMPLETED"
	RunStatusFailed      RunStatus = "FAILED"
	RunStatusInterrupted RunStatus = "INTERRUPTED"
)

// RunType represents the type of run.
type RunType string

const (
	RunTypeFix   RunType = "FIX"
	RunTypeWatch RunType = "WATCH"
	RunTypeUndo  RunType = "UNDO"
)

// Metadata keys written on events.
const (
	MetaRoot         = "root"
	MetaRunType      = "runType"
	MetaUndoTarget   = "undoTargetId"
	MetaAppVersion   = "appVersion"
	MetaCharset      = "charset"
	MetaRawName      = "rawName"
	MetaRequested    = "requestedDestination"
	MetaFSEncoding   = "fsEncoding"
	MetaStatus       = "status"
	MetaPreviousFile = "previousFile"
	MetaNewFile      = "newFile"
	MetaLogPath      = "logPath"
)

// ErrorDetails contains detailed information about an error.
type ErrorDetails struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
	Operation    string `json:"operation"`
}

// Event is a single journal record.
type Event struct {
	Timestamp       time.Time         `json:"timestamp"`
	RunID           RunID             `json:"runId"`
	EventType       EventType         `json:"eventType"`
	Status          OperationStatus   `json:"status"`
	SourcePath      string            `json:"sourcePath,omitempty"`
	DestinationPath string            `json:"destinationPath,omitempty"`
	ReasonCode      ReasonCode        `json:"reasonCode,omitempty"`
	ErrorDetails    *ErrorDetails     `json:"errorDetails,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// IsRename reports whether the event moved an entry on disk.
func (e Event) IsRename() bool {
	return e.EventType == EventRename || e.EventType == EventDuplicateRenamed
}

// RunSummary contains statistics for a completed run.
type RunSummary struct {
	Processed  int `json:"processed"`
	Renamed    int `json:"renamed"`    // renames that got the requested name
	Duplicates int `json:"duplicates"` // renames that needed a _duplicate suffix
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// RunInfo contains metadata and summary for a run.
type RunInfo struct {
	RunID        RunID      `json:"runId"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Status       RunStatus  `json:"status"`
	RunType      RunType    `json:"runType"`
	Root         string     `json:"root,omitempty"`
	AppVersion   string     `json:"appVersion"`
	Summary      RunSummary `json:"summary"`
	UndoTargetID *RunID     `json:"undoTargetId,omitempty"` // For UNDO runs
}

// Options configures the journal. It is decoded from the free-form
// "journal" section of the configuration.
type Options struct {
	Enabled      bool   `mapstructure:"enabled"`
	Directory    string `mapstructure:"directory"`
	RotationSize int64  `mapstructure:"rotation_size"` // bytes, 0 disables rotation
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		Enabled:      true,
		Directory:    ".fixnames",
		RotationSize: 10 * 1024 * 1024, // 10MB
	}
}

// DecodeOptions overlays raw onto DefaultOptions. Unknown keys are rejected.
func DecodeOptions(raw map[string]any) (Options, error) {
	opts := DefaultOptions()
	if len(raw) == 0 {
		return opts, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &opts,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return Options{}, fmt.Errorf("failed to build journal options decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Options{}, fmt.Errorf("invalid journal options: %w", err)
	}
	if opts.RotationSize < 0 {
		return Options{}, fmt.Errorf("invalid journal options: rotation_size must not be negative")
	}
	return opts, nil
}

// Dir resolves the journal directory. Relative directories live under root,
// where the leading dot keeps the walker away from them.
func (o Options) Dir(root string) string {
	if filepath.IsAbs(o.Directory) || root == "" {
		return o.Directory
	}
	return filepath.Join(root, o.Directory)
}
