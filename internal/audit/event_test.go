package audit

import (
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONOmitsEmptyFields(t *testing.T) {
	event := Event{
		Timestamp: time.Date(2024, 3, 1, 12, 0, 0, 500, time.UTC),
		RunID:     "run-1",
		EventType: EventRunStart,
		Status:    StatusSuccess,
	}

	data, err := event.MarshalJSON()
	require.NoError(t, err)

	line := string(data)
	assert.Contains(t, line, `"timestamp":"2024-03-01T12:00:00.0000005Z"`)
	assert.NotContains(t, line, "sourcePath")
	assert.NotContains(t, line, "destinationPath")
	assert.NotContains(t, line, "reasonCode")
	assert.NotContains(t, line, "metadata")
}

func TestEventJSONRoundTripsRename(t *testing.T) {
	event := Event{
		Timestamp:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		RunID:           "run-1",
		EventType:       EventDuplicateRenamed,
		Status:          StatusSuccess,
		SourcePath:      "/music/Caf\xe9.mp3",
		DestinationPath: "/music/Café_duplicate.mp3",
		ReasonCode:      ReasonDuplicateRenamed,
		Metadata:        map[string]string{MetaCharset: "latin1"},
	}

	data, err := event.MarshalJSON()
	require.NoError(t, err)

	got, err := UnmarshalJSONLine(data)
	require.NoError(t, err)
	assert.Equal(t, event, *got)
}

func TestEventJSONKeepsInvalidUTF8Paths(t *testing.T) {
	event := Event{
		Timestamp:  time.Now().UTC(),
		EventType:  EventSkip,
		Status:     StatusSkipped,
		SourcePath: "dir/\xff\xfe.txt",
	}

	data, err := event.MarshalJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sourcePathBase64"`)
	assert.Contains(t, string(data), "\"sourcePath\":\"dir/\uFFFD.txt\"")

	got, err := UnmarshalJSONLine(data)
	require.NoError(t, err)
	assert.Equal(t, "dir/\xff\xfe.txt", got.SourcePath)
}

func TestUnmarshalJSONLineRejectsBadTimestamp(t *testing.T) {
	_, err := UnmarshalJSONLine([]byte(`{"timestamp":"yesterday","runId":"r","eventType":"RENAME","status":"SUCCESS"}`))
	assert.Error(t, err)
}

func TestEventPathsSurviveRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("arbitrary path bytes are restored exactly", prop.ForAll(
		func(src, dst []byte) bool {
			event := Event{
				Timestamp:       time.Unix(1700000000, 123).UTC(),
				RunID:           "run",
				EventType:       EventRename,
				Status:          StatusSuccess,
				SourcePath:      string(src),
				DestinationPath: string(dst),
			}
			data, err := event.MarshalJSON()
			if err != nil || strings.Contains(string(data), "\n") {
				return false
			}
			got, err := UnmarshalJSONLine(data)
			if err != nil {
				return false
			}
			return got.SourcePath == event.SourcePath && got.DestinationPath == event.DestinationPath
		},
		gen.SliceOf(gen.UInt8()),
		gen.SliceOf(gen.UInt8()),
	))

	properties.TestingRun(t)
}
