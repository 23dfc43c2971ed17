package audit

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"
)

// TimestampFormat is the time format used for event timestamps.
// Nanoseconds keep events of one run ordered when read back.
const TimestampFormat = time.RFC3339Nano

// eventJSON is the wire form of Event. Pointers let empty optional
// fields drop out of the line. Paths that are not valid UTF-8 are kept
// byte-exact in the base64 fields; the plain fields then hold a readable
// form with U+FFFD in place of the bad bytes.
type eventJSON struct {
	Timestamp          string            `json:"timestamp"`
	RunID              RunID             `json:"runId"`
	EventType          EventType         `json:"eventType"`
	Status             OperationStatus   `json:"status"`
	SourcePath         *string           `json:"sourcePath,omitempty"`
	SourcePathRaw      *string           `json:"sourcePathBase64,omitempty"`
	DestinationPath    *string           `json:"destinationPath,omitempty"`
	DestinationPathRaw *string           `json:"destinationPathBase64,omitempty"`
	ReasonCode         *ReasonCode       `json:"reasonCode,omitempty"`
	ErrorDetails       *ErrorDetails     `json:"errorDetails,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

func encodePath(path string) (plain, raw *string) {
	if path == "" {
		return nil, nil
	}
	if utf8.ValidString(path) {
		return &path, nil
	}
	readable := strings.ToValidUTF8(path, "\uFFFD")
	encoded := base64.StdEncoding.EncodeToString([]byte(path))
	return &readable, &encoded
}

func decodePath(plain, raw *string) (string, error) {
	if raw != nil {
		b, err := base64.StdEncoding.DecodeString(*raw)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	if plain != nil {
		return *plain, nil
	}
	return "", nil
}

// MarshalJSON implements json.Marshaler for Event.
func (e Event) MarshalJSON() ([]byte, error) {
	ej := eventJSON{
		Timestamp:    e.Timestamp.UTC().Format(TimestampFormat),
		RunID:        e.RunID,
		EventType:    e.EventType,
		Status:       e.Status,
		ErrorDetails: e.ErrorDetails,
		Metadata:     e.Metadata,
	}

	ej.SourcePath, ej.SourcePathRaw = encodePath(e.SourcePath)
	ej.DestinationPath, ej.DestinationPathRaw = encodePath(e.DestinationPath)
	if e.ReasonCode != "" {
		rc := e.ReasonCode
		ej.ReasonCode = &rc
	}

	return json.Marshal(ej)
}

// UnmarshalJSON implements json.Unmarshaler for Event.
func (e *Event) UnmarshalJSON(data []byte) error {
	var ej eventJSON
	if err := json.Unmarshal(data, &ej); err != nil {
		return err
	}

	t, err := time.Parse(TimestampFormat, ej.Timestamp)
	if err != nil {
		return err
	}

	*e = Event{
		Timestamp:    t,
		RunID:        ej.RunID,
		EventType:    ej.EventType,
		Status:       ej.Status,
		ErrorDetails: ej.ErrorDetails,
		Metadata:     ej.Metadata,
	}
	if e.SourcePath, err = decodePath(ej.SourcePath, ej.SourcePathRaw); err != nil {
		return err
	}
	if e.DestinationPath, err = decodePath(ej.DestinationPath, ej.DestinationPathRaw); err != nil {
		return err
	}
	if ej.ReasonCode != nil {
		e.ReasonCode = *ej.ReasonCode
	}
	return nil
}

// UnmarshalJSONLine unmarshals one journal line into an Event.
func UnmarshalJSONLine(data []byte) (*Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
