package audit

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
)

// ErrRunNotFound is returned when no events carry the requested run ID.
var ErrRunNotFound = errors.New("run not found")

// ErrNoRuns is returned when the journal holds no matching run.
var ErrNoRuns = errors.New("no runs found")

// EventFilter defines criteria for filtering journal events.
type EventFilter struct {
	EventTypes []EventType     // empty = all types
	Status     OperationStatus // empty = all statuses
}

// Reader reads events back from the journal, across rotated segments.
type Reader struct {
	logDir string
}

// NewReader creates a Reader for the given journal directory.
func NewReader(logDir string) *Reader {
	return &Reader{logDir: logDir}
}

// LogDir returns the journal directory.
func (r *Reader) LogDir() string {
	return r.logDir
}

// ListRuns returns all runs with summary information, oldest first.
func (r *Reader) ListRuns() ([]RunInfo, error) {
	events, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return extractRunInfos(events), nil
}

// GetRun returns all events for a specific run in journal order.
func (r *Reader) GetRun(runID RunID) ([]Event, error) {
	events, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	var runEvents []Event
	for _, event := range events {
		if event.RunID == runID {
			runEvents = append(runEvents, event)
		}
	}
	if len(runEvents) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return runEvents, nil
}

// GetRunByID returns the RunInfo for a specific run ID.
func (r *Reader) GetRunByID(runID RunID) (*RunInfo, error) {
	runs, err := r.ListRuns()
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].RunID == runID {
			return &runs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
}

// GetLatestRun returns the most recent run by start time.
func (r *Reader) GetLatestRun() (*RunInfo, error) {
	runs, err := r.ListRuns()
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	return &runs[len(runs)-1], nil
}

// GetLatestUndoableRun returns the most recent fix or watch run that no
// later undo run has targeted.
func (r *Reader) GetLatestUndoableRun() (*RunInfo, error) {
	runs, err := r.ListRuns()
	if err != nil {
		return nil, err
	}

	undone := make(map[RunID]bool)
	for _, run := range runs {
		if run.UndoTargetID != nil {
			undone[*run.UndoTargetID] = true
		}
	}
	for i := len(runs) - 1; i >= 0; i-- {
		if runs[i].RunType != RunTypeUndo && !undone[runs[i].RunID] {
			return &runs[i], nil
		}
	}
	return nil, ErrNoRuns
}

// FilterEvents returns events of one run matching filter.
func (r *Reader) FilterEvents(runID RunID, filter EventFilter) ([]Event, error) {
	events, err := r.GetRun(runID)
	if err != nil {
		return nil, err
	}

	var out []Event
	for _, event := range events {
		if matchesFilter(event, filter) {
			out = append(out, event)
		}
	}
	return out, nil
}

func matchesFilter(event Event, filter EventFilter) bool {
	if len(filter.EventTypes) > 0 {
		found := false
		for _, t := range filter.EventTypes {
			if event.EventType == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return filter.Status == "" || event.Status == filter.Status
}

// ReadAll returns every event in the journal, oldest segment first.
// A missing journal yields no events.
func (r *Reader) ReadAll() ([]Event, error) {
	logFiles, err := GetAllLogFiles(r.logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get journal files: %w", err)
	}

	var all []Event
	for _, logFile := range logFiles {
		events, err := readEventsFromFile(logFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read events from %s: %w", logFile, err)
		}
		all = append(all, events...)
	}
	return all, nil
}

func readEventsFromFile(filePath string) ([]Event, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(file)

	const maxScanTokenSize = 1024 * 1024 // 1MB
	scanner.Buffer(make([]byte, 64*1024), maxScanTokenSize)

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		event, err := UnmarshalJSONLine(line)
		if err != nil {
			return nil, fmt.Errorf("failed to parse line %d: %w", lineNum, err)
		}
		events = append(events, *event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading journal: %w", err)
	}
	return events, nil
}

// extractRunInfos groups events by run, skipping system events.
func extractRunInfos(events []Event) []RunInfo {
	var order []RunID
	byRun := make(map[RunID][]Event)
	for _, event := range events {
		if event.RunID == "" {
			continue
		}
		if _, seen := byRun[event.RunID]; !seen {
			order = append(order, event.RunID)
		}
		byRun[event.RunID] = append(byRun[event.RunID], event)
	}

	runs := make([]RunInfo, 0, len(order))
	for _, id := range order {
		runs = append(runs, buildRunInfo(id, byRun[id]))
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartTime.Before(runs[j].StartTime)
	})
	return runs
}

// buildRunInfo derives a RunInfo from one run's events. Counts come from
// the entry events; RUN_END only supplies the final status.
func buildRunInfo(runID RunID, events []Event) RunInfo {
	info := RunInfo{
		RunID:   runID,
		Status:  RunStatusInProgress,
		RunType: RunTypeFix,
	}

	for _, event := range events {
		switch event.EventType {
		case EventRunStart:
			info.StartTime = event.Timestamp
			if event.Metadata != nil {
				info.AppVersion = event.Metadata[MetaAppVersion]
				info.Root = event.Metadata[MetaRoot]
				if runType, ok := event.Metadata[MetaRunType]; ok {
					info.RunType = RunType(runType)
				}
				if target, ok := event.Metadata[MetaUndoTarget]; ok {
					targetID := RunID(target)
					info.UndoTargetID = &targetID
					info.RunType = RunTypeUndo
				}
			}

		case EventRunEnd:
			endTime := event.Timestamp
			info.EndTime = &endTime
			if status, ok := event.Metadata[MetaStatus]; ok {
				info.Status = RunStatus(status)
			}
			if v, ok := event.Metadata["processed"]; ok {
				info.Summary.Processed, _ = strconv.Atoi(v)
			}

		case EventRename, EventUndoRename:
			info.Summary.Renamed++

		case EventDuplicateRenamed:
			info.Summary.Duplicates++

		case EventSkip, EventUndoSkip:
			info.Summary.Skipped++

		case EventError:
			info.Summary.Errors++
		}
	}

	return info
}
