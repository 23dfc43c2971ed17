// Package charset detects the encoding of raw filename bytes and converts
// text to and from the encodings a filesystem can store.
package charset

import (
	"errors"
	"fmt"
	"sort"
)

// Label names the decode strategy or encoding that produced a piece of text.
type Label string

const (
	ASCII       Label = "ascii"
	UTF8        Label = "utf8"
	ISO88591    Label = "iso-8859-1"
	Windows1252 Label = "windows-1252"
	Unknown     Label = "unknown"
)

// ErrUndecodable is returned when no strategy in the cascade accepts the bytes.
var ErrUndecodable = errors.New("no decode strategy succeeded")

// ErrUnencodable is returned when text holds a character the target encoding cannot store.
var ErrUnencodable = errors.New("text is not representable in encoding")

// ErrUnknownEncoding is returned by Lookup for names it cannot resolve.
var ErrUnknownEncoding = errors.New("unknown encoding")

// Result is a successful decode.
type Result struct {
	Text  string
	Label Label
}

// DecodeError reports the raw bytes that defeated every strategy.
type DecodeError struct {
	Raw   []byte
	Tried []Label
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode filename %s (tried %v)", Printable(e.Raw), e.Tried)
}

func (e *DecodeError) Unwrap() error {
	return ErrUndecodable
}

// EncodeError reports a rune that the target encoding cannot hold.
type EncodeError struct {
	Encoding Label
	Rune     rune
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("%U %q is not representable in %s", e.Rune, e.Rune, e.Encoding)
}

func (e *EncodeError) Unwrap() error {
	return ErrUnencodable
}

// Printable renders raw bytes as a Go-quoted string so non-text bytes stay visible in logs.
func Printable(raw []byte) string {
	return fmt.Sprintf("%q", raw)
}

// Stats keeps one example decoded name per label, in first-seen order of recording.
// It is not safe for concurrent use.
type Stats struct {
	examples map[Label]string
}

// NewStats returns empty statistics.
func NewStats() *Stats {
	return &Stats{examples: make(map[Label]string)}
}

// Record stores text as the example for label unless the label was already seen.
// It reports whether the label was new.
func (s *Stats) Record(label Label, text string) bool {
	if s.examples == nil {
		s.examples = make(map[Label]string)
	}
	if _, seen := s.examples[label]; seen {
		return false
	}
	s.examples[label] = text
	return true
}

// Example returns the recorded example for label.
func (s *Stats) Example(label Label) (string, bool) {
	text, ok := s.examples[label]
	return text, ok
}

// Labels returns every recorded label sorted lexically.
func (s *Stats) Labels() []Label {
	labels := make([]Label, 0, len(s.examples))
	for l := range s.examples {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i] < labels[j] })
	return labels
}

// Len returns the number of distinct labels seen.
func (s *Stats) Len() int {
	return len(s.examples)
}

// Reset forgets every recorded label.
func (s *Stats) Reset() {
	s.examples = make(map[Label]string)
}
