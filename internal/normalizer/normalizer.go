// Package normalizer turns a raw filename into the bytes it should be renamed to.
package normalizer

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"fixnames/internal/charset"
	"fixnames/internal/substitution"
)

// maxPasses bounds the settle loop in NormalizeText.
const maxPasses = 16

// SkipKind says why a name was left alone.
type SkipKind string

const (
	// Undecodable means no decode strategy accepted the raw bytes.
	Undecodable SkipKind = "UNDECODABLE"
	// Unencodable means the cleaned text does not fit the filesystem encoding.
	Unencodable SkipKind = "UNENCODABLE"
	// InvalidName means the cleaned text is empty, "." or "..".
	InvalidName SkipKind = "INVALID_NAME"
)

// SkipError signals that an entry must keep its current name.
type SkipError struct {
	Kind     SkipKind
	Raw      []byte
	Text     string        // cleaned text, set for Unencodable and InvalidName
	Encoding charset.Label // filesystem encoding for Unencodable, detected label otherwise
	Err      error
}

func (e *SkipError) Error() string {
	switch e.Kind {
	case Undecodable:
		return fmt.Sprintf("failed to decode this filename: %s", charset.Printable(e.Raw))
	case Unencodable:
		return fmt.Sprintf("could not encode %q using file system encoding %s", e.Text, e.Encoding)
	case InvalidName:
		return fmt.Sprintf("%s would become %q, which cannot name an entry", charset.Printable(e.Raw), e.Text)
	default:
		return fmt.Sprintf("skipping %s: %v", charset.Printable(e.Raw), e.Err)
	}
}

func (e *SkipError) Unwrap() error {
	return e.Err
}

// IsSkip reports whether err carries a SkipError.
func IsSkip(err error) bool {
	var skip *SkipError
	return errors.As(err, &skip)
}

// Config selects the collaborators and switches of a Normalizer.
// Nil Detector and Table fall back to the defaults; empty encodings fall back to utf8.
type Config struct {
	Detector        *charset.Detector
	Table           *substitution.Table
	StripDiacritics bool
	TargetEncoding  string
	FSEncoding      string
}

// Outcome is the result of normalizing one raw name.
type Outcome struct {
	Name    []byte        // bytes to store on disk
	Label   charset.Label // strategy that decoded the raw name
	Decoded string        // text straight out of the decoder
	Text    string        // text after substitutions, stripping and narrowing
}

// Changed reports whether the entry needs a rename.
func (o Outcome) Changed(raw []byte) bool {
	return string(o.Name) != string(raw)
}

// Normalizer is immutable after construction and safe for concurrent use.
type Normalizer struct {
	detector *charset.Detector
	table    *substitution.Table
	strip    bool
	target   *charset.Codec
	fs       *charset.Codec
}

// New builds a Normalizer, resolving the configured encodings.
func New(cfg Config) (*Normalizer, error) {
	if cfg.Detector == nil {
		cfg.Detector = charset.DefaultDetector()
	}
	if cfg.Table == nil {
		cfg.Table = substitution.Default()
	}
	if cfg.TargetEncoding == "" {
		cfg.TargetEncoding = string(charset.UTF8)
	}
	if cfg.FSEncoding == "" {
		cfg.FSEncoding = string(charset.UTF8)
	}

	target, err := charset.Lookup(cfg.TargetEncoding)
	if err != nil {
		return nil, fmt.Errorf("target encoding: %w", err)
	}
	fs, err := charset.Lookup(cfg.FSEncoding)
	if err != nil {
		return nil, fmt.Errorf("file system encoding: %w", err)
	}

	return &Normalizer{
		detector: cfg.Detector,
		table:    cfg.Table,
		strip:    cfg.StripDiacritics,
		target:   target,
		fs:       fs,
	}, nil
}

// FSEncoding returns the filesystem encoding names are written in.
func (n *Normalizer) FSEncoding() charset.Label {
	return n.fs.Name()
}

// TargetEncoding returns the encoding non-UTF-8 names are narrowed to.
func (n *Normalizer) TargetEncoding() charset.Label {
	return n.target.Name()
}

// Normalize decodes raw, cleans the text and encodes it for the filesystem.
// It returns a *SkipError when the name cannot be decoded or re-encoded.
func (n *Normalizer) Normalize(raw []byte) (Outcome, error) {
	res, err := n.detector.Detect(raw)
	if err != nil {
		return Outcome{Label: charset.Unknown}, &SkipError{
			Kind:     Undecodable,
			Raw:      raw,
			Encoding: charset.Unknown,
			Err:      err,
		}
	}

	text := n.NormalizeText(res.Text, res.Label)
	if text == "" || text == "." || text == ".." {
		return Outcome{Label: res.Label, Decoded: res.Text, Text: text}, &SkipError{
			Kind:     InvalidName,
			Raw:      raw,
			Text:     text,
			Encoding: res.Label,
		}
	}

	out, err := n.fs.Encode(text)
	if err != nil {
		return Outcome{Label: res.Label, Decoded: res.Text, Text: text}, &SkipError{
			Kind:     Unencodable,
			Raw:      raw,
			Text:     text,
			Encoding: n.fs.Name(),
			Err:      err,
		}
	}

	return Outcome{
		Name:    out,
		Label:   res.Label,
		Decoded: res.Text,
		Text:    text,
	}, nil
}

// NormalizeText runs the text stages for a name decoded with label:
// substitutions, optional diacritic stripping, then narrowing to the target
// encoding unless the name was already UTF-8.
//
// The stages repeat until the text stops changing, so feeding the result
// back in is a no-op. Table.Apply itself stays single-pass; only this loop
// iterates.
func (n *Normalizer) NormalizeText(text string, label charset.Label) string {
	for i := 0; i < maxPasses; i++ {
		next := n.pass(text, label)
		if next == text {
			break
		}
		text = next
	}
	return text
}

func (n *Normalizer) pass(text string, label charset.Label) string {
	text = n.table.Apply(text)
	if n.strip {
		text = StripDiacritics(text)
	}
	if label != charset.UTF8 {
		text = n.target.Narrow(text)
	}
	return text
}

// StripDiacritics decomposes text, drops combining marks and recomposes what is left.
func StripDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}
