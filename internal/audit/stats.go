package audit

import (
	"fmt"
	"sort"
	"time"
)

// JournalStats contains aggregate metrics across all journaled runs.
type JournalStats struct {
	TotalRenamed    int            // Entries renamed to their requested name
	TotalDuplicates int            // Entries renamed with a _duplicate suffix
	TotalSkipped    int            // Entries left alone
	TotalRuns       int            // Number of fix and watch runs
	TotalUndos      int            // Number of undo operations
	ByCharset       map[string]int // Renames per detected charset (top N)
	FirstRun        time.Time      // Earliest run timestamp
	LastRun         time.Time      // Most recent run timestamp
}

// StatsOptions configures stats aggregation.
type StatsOptions struct {
	Since *time.Time // Filter to runs after this time
	TopN  int        // Number of top charsets to show (0 = all)
}

// AggregateStats computes metrics across every journal segment in logDir.
func AggregateStats(logDir string, opts StatsOptions) (*JournalStats, error) {
	events, err := NewReader(logDir).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}

	stats := &JournalStats{}
	byCharset := make(map[string]int)
	byRun := make(map[RunID][]Event)
	for _, event := range events {
		byRun[event.RunID] = append(byRun[event.RunID], event)
	}

	for _, run := range extractRunInfos(events) {
		if opts.Since != nil && run.StartTime.Before(*opts.Since) {
			continue
		}

		if run.RunType == RunTypeUndo {
			stats.TotalUndos++
			continue
		}
		stats.TotalRuns++

		if stats.FirstRun.IsZero() || run.StartTime.Before(stats.FirstRun) {
			stats.FirstRun = run.StartTime
		}
		if stats.LastRun.IsZero() || run.StartTime.After(stats.LastRun) {
			stats.LastRun = run.StartTime
		}

		stats.TotalRenamed += run.Summary.Renamed
		stats.TotalDuplicates += run.Summary.Duplicates
		stats.TotalSkipped += run.Summary.Skipped

		for _, event := range byRun[run.RunID] {
			if !event.IsRename() {
				continue
			}
			if label := event.Metadata[MetaCharset]; label != "" {
				byCharset[label]++
			}
		}
	}

	stats.ByCharset = filterTopN(byCharset, opts.TopN)
	return stats, nil
}

// filterTopN returns the top N entries from a map by value.
// If n <= 0, returns all entries.
func filterTopN(counts map[string]int, n int) map[string]int {
	if n <= 0 || len(counts) <= n {
		result := make(map[string]int, len(counts))
		for k, v := range counts {
			result[k] = v
		}
		return result
	}

	type kv struct {
		key   string
		value int
	}
	sorted := make([]kv, 0, len(counts))
	for k, v := range counts {
		sorted = append(sorted, kv{k, v})
	}
	sort.Slice(sorted, func(i, j int) bool {
		// Ties broken by key for stable output
		if sorted[i].value != sorted[j].value {
			return sorted[i].value > sorted[j].value
		}
		return sorted[i].key < sorted[j].key
	})

	result := make(map[string]int, n)
	for i := 0; i < n; i++ {
		result[sorted[i].key] = sorted[i].value
	}
	return result
}
