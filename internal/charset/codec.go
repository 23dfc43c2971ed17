package charset

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
)

// ReplacementChar stands in for runes a narrow encoding cannot hold.
const ReplacementChar = '?'

// windows1252Undefined are the code points cp1252 leaves unassigned.
// x/text maps them to C1 controls, strict decoding treats them as errors.
var windows1252Undefined = map[byte]bool{0x81: true, 0x8D: true, 0x8F: true, 0x90: true, 0x9D: true}

// Codec converts between text and one byte encoding.
type Codec struct {
	name      Label
	enc       encoding.Encoding // nil for ascii and utf8
	cm        *charmap.Charmap  // set for single-byte code pages
	undefined map[byte]bool
}

var (
	asciiCodec       = &Codec{name: ASCII}
	utf8Codec        = &Codec{name: UTF8}
	latin1Codec      = &Codec{name: ISO88591, enc: charmap.ISO8859_1, cm: charmap.ISO8859_1}
	windows1252Codec = &Codec{name: Windows1252, enc: charmap.Windows1252, cm: charmap.Windows1252, undefined: windows1252Undefined}
	macRomanCodec    = &Codec{name: "macintosh", enc: charmap.Macintosh, cm: charmap.Macintosh}
)

var aliases = map[string]*Codec{
	"ascii":          asciiCodec,
	"us-ascii":       asciiCodec,
	"ansi_x3.4-1968": asciiCodec,
	"646":            asciiCodec,
	"utf8":           utf8Codec,
	"utf-8":          utf8Codec,
	"latin1":         latin1Codec,
	"latin-1":        latin1Codec,
	"l1":             latin1Codec,
	"iso-8859-1":     latin1Codec,
	"iso8859-1":      latin1Codec,
	"iso_8859-1":     latin1Codec,
	"cp1252":         windows1252Codec,
	"windows-1252":   windows1252Codec,
	"windows1252":    windows1252Codec,
	"macintosh":      macRomanCodec,
	"mac-roman":      macRomanCodec,
	"macroman":       macRomanCodec,
	"x-mac-roman":    macRomanCodec,
}

// renamed maps labels reported by the guesser onto names the indexes know.
var renamed = map[string]string{
	"gb-18030": "gb18030",
}

// Lookup resolves an encoding name such as "utf8", "ascii", "latin1" or any
// IANA/WHATWG label.
func Lookup(name string) (*Codec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if c, ok := aliases[key]; ok {
		return c, nil
	}
	if alt, ok := renamed[key]; ok {
		key = alt
	}

	enc, err := ianaindex.IANA.Encoding(key)
	if err != nil || enc == nil {
		enc, err = htmlindex.Get(key)
		if err != nil || enc == nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
		}
	}

	c := &Codec{name: Label(key), enc: enc}
	if cm, ok := enc.(*charmap.Charmap); ok {
		c.cm = cm
	}
	return c, nil
}

// MustLookup is Lookup for names known at compile time.
func MustLookup(name string) *Codec {
	c, err := Lookup(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the codec's label.
func (c *Codec) Name() Label {
	return c.name
}

// Wide reports whether the codec can represent every Unicode character.
func (c *Codec) Wide() bool {
	return c.name == UTF8
}

// Decode strictly decodes raw; ok is false if any byte is invalid or unassigned.
func (c *Codec) Decode(raw []byte) (string, bool) {
	switch {
	case c.name == ASCII:
		for _, b := range raw {
			if b >= utf8.RuneSelf {
				return "", false
			}
		}
		return string(raw), true
	case c.name == UTF8:
		if !utf8.Valid(raw) {
			return "", false
		}
		return string(raw), true
	case c.cm != nil:
		var sb strings.Builder
		sb.Grow(len(raw))
		for _, b := range raw {
			if c.undefined[b] {
				return "", false
			}
			r := c.cm.DecodeByte(b)
			if r == utf8.RuneError {
				return "", false
			}
			sb.WriteRune(r)
		}
		return sb.String(), true
	default:
		out, err := c.enc.NewDecoder().Bytes(raw)
		if err != nil || bytes.ContainsRune(out, utf8.RuneError) {
			return "", false
		}
		return string(out), true
	}
}

// Try implements Strategy.
func (c *Codec) Try(raw []byte) (Result, bool) {
	text, ok := c.Decode(raw)
	if !ok {
		return Result{}, false
	}
	return Result{Text: text, Label: c.name}, true
}

// Encode converts text to bytes, failing on the first rune the encoding cannot hold.
func (c *Codec) Encode(text string) ([]byte, error) {
	switch {
	case c.name == UTF8:
		if !utf8.ValidString(text) {
			return nil, &EncodeError{Encoding: c.name, Rune: utf8.RuneError}
		}
		return []byte(text), nil
	case c.name == ASCII || c.cm != nil:
		out := make([]byte, 0, len(text))
		for _, r := range text {
			b, ok := c.encodeRune(r)
			if !ok {
				return nil, &EncodeError{Encoding: c.name, Rune: r}
			}
			out = append(out, b)
		}
		return out, nil
	default:
		out, err := c.enc.NewEncoder().String(text)
		if err != nil {
			for _, r := range text {
				if !c.Representable(r) {
					return nil, &EncodeError{Encoding: c.name, Rune: r}
				}
			}
			return nil, fmt.Errorf("encode to %s: %w", c.name, err)
		}
		return []byte(out), nil
	}
}

// Representable reports whether r survives a round trip through the codec.
func (c *Codec) Representable(r rune) bool {
	switch {
	case c.name == UTF8:
		return r != utf8.RuneError
	case c.name == ASCII || c.cm != nil:
		_, ok := c.encodeRune(r)
		return ok
	default:
		_, err := c.enc.NewEncoder().String(string(r))
		return err == nil
	}
}

// Narrow replaces every rune the codec cannot hold with ReplacementChar.
// The result always encodes without error.
func (c *Codec) Narrow(text string) string {
	if c.Wide() {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		if c.Representable(r) {
			sb.WriteRune(r)
		} else {
			sb.WriteRune(ReplacementChar)
		}
	}
	return sb.String()
}

func (c *Codec) encodeRune(r rune) (byte, bool) {
	if c.name == ASCII {
		if r < utf8.RuneSelf {
			return byte(r), true
		}
		return 0, false
	}
	b, ok := c.cm.EncodeRune(r)
	if !ok || c.undefined[b] {
		return 0, false
	}
	return b, true
}
