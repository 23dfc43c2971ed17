package audit

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	// LogFileName is the active journal file inside the journal directory.
	LogFileName = "fixnames-journal.jsonl"

	segmentPrefix = "fixnames-journal-"
	segmentSuffix = ".jsonl"
)

// RotationManager rolls the active journal over to a dated segment once it
// grows past the configured size.
type RotationManager struct {
	maxSize int64
	now     func() time.Time
}

// NewRotationManager creates a RotationManager for opts.
func NewRotationManager(opts Options) *RotationManager {
	return &RotationManager{maxSize: opts.RotationSize, now: time.Now}
}

// NeedsRotation reports whether the file at logPath has reached the size limit.
func (rm *RotationManager) NeedsRotation(logPath string) (bool, error) {
	if rm.maxSize <= 0 {
		return false, nil
	}
	info, err := os.Stat(logPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat journal: %w", err)
	}
	return info.Size() >= rm.maxSize, nil
}

// GenerateRotatedFilename names a rotated segment. Names sort chronologically.
// Format: fixnames-journal-YYYYMMDD-HHMMSS-NNNNNNNNN.jsonl
func (rm *RotationManager) GenerateRotatedFilename() string {
	now := rm.now().UTC()
	return fmt.Sprintf("%s%s-%09d%s", segmentPrefix, now.Format("20060102-150405"), now.Nanosecond(), segmentSuffix)
}

// RotateWithFilename renames the active journal to rotatedFilename in the same directory.
func (rm *RotationManager) RotateWithFilename(logPath, rotatedFilename string) (string, error) {
	rotatedPath := filepath.Join(filepath.Dir(logPath), rotatedFilename)
	if _, err := os.Stat(rotatedPath); err == nil {
		return "", fmt.Errorf("rotated journal %s already exists", rotatedPath)
	}
	if err := os.Rename(logPath, rotatedPath); err != nil {
		return "", fmt.Errorf("failed to rename journal during rotation: %w", err)
	}
	return rotatedPath, nil
}

// DiscoverSegments finds rotated segments in logDir, oldest first.
func DiscoverSegments(logDir string) ([]string, error) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read journal directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix) {
			segments = append(segments, name)
		}
	}
	sort.Strings(segments)
	return segments, nil
}

// GetAllLogFiles returns rotated segments followed by the active journal, as full paths.
func GetAllLogFiles(logDir string) ([]string, error) {
	segments, err := DiscoverSegments(logDir)
	if err != nil {
		return nil, err
	}

	files := make([]string, 0, len(segments)+1)
	for _, seg := range segments {
		files = append(files, filepath.Join(logDir, seg))
	}

	active := filepath.Join(logDir, LogFileName)
	if _, err := os.Stat(active); err == nil {
		files = append(files, active)
	}
	return files, nil
}

// CreateRotationEvent creates the ROTATION event written as the last line of a segment.
func CreateRotationEvent(runID RunID, oldFile, newFile string) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		RunID:     runID,
		EventType: EventRotation,
		Status:    StatusSuccess,
		Metadata: map[string]string{
			MetaPreviousFile: oldFile,
			MetaNewFile:      newFile,
		},
	}
}
