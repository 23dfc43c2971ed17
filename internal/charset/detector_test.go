package charset

import (
	"errors"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func TestDetect_ASCIIWinsOverLaterStrategies(t *testing.T) {
	res, err := DefaultDetector().Detect([]byte("Track 01.mp3"))
	require.NoError(t, err)
	assert.Equal(t, ASCII, res.Label)
	assert.Equal(t, "Track 01.mp3", res.Text)
}

func TestDetect_UTF8(t *testing.T) {
	res, err := DefaultDetector().Detect([]byte("Café del Mar.mp3"))
	require.NoError(t, err)
	assert.Equal(t, UTF8, res.Label)
	assert.Equal(t, "Café del Mar.mp3", res.Text)
}

func TestDetect_Latin1(t *testing.T) {
	res, err := DefaultDetector().Detect([]byte("Caf\xe9.mp3"))
	require.NoError(t, err)
	assert.Equal(t, ISO88591, res.Label)
	assert.Equal(t, "Café.mp3", res.Text)
}

func TestDetect_Windows1252WhenLatin1Omitted(t *testing.T) {
	d := NewDetector(asciiCodec, utf8Codec, windows1252Codec)

	res, err := d.Detect([]byte("\x93Live\x94 \x96 Take 2"))
	require.NoError(t, err)
	assert.Equal(t, Windows1252, res.Label)
	assert.Equal(t, "“Live” – Take 2", res.Text)
}

func TestDetect_UndefinedWindows1252ByteIsUndecodable(t *testing.T) {
	d := NewDetector(asciiCodec, utf8Codec, windows1252Codec)
	raw := []byte("bad\x81name")

	res, err := d.Detect(raw)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUndecodable))
	assert.Equal(t, Unknown, res.Label)

	var decodeErr *DecodeError
	require.True(t, errors.As(err, &decodeErr))
	assert.Equal(t, raw, decodeErr.Raw)
	assert.Equal(t, []Label{ASCII, UTF8, Windows1252}, decodeErr.Tried)
	assert.Contains(t, err.Error(), `"bad\x81name"`)
}

func TestDetect_GuesserFindsShiftJIS(t *testing.T) {
	text := "日本語のファイル名です。これは文字コードの判定テストのための長い名前です。"
	raw, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	d := NewDetector(asciiCodec, utf8Codec, NewGuesser(DefaultMinConfidence))
	res, err := d.Detect(raw)
	require.NoError(t, err)
	assert.Equal(t, Label("shift_jis"), res.Label)
	assert.Equal(t, text, res.Text)
}

func TestGuesser_EmptyInput(t *testing.T) {
	_, ok := NewGuesser(DefaultMinConfidence).Try(nil)
	assert.False(t, ok)
}

func TestDefaultDetector_Strategies(t *testing.T) {
	assert.Equal(t,
		[]Label{ASCII, UTF8, ISO88591, Windows1252, GuessLabel},
		DefaultDetector().Strategies())
}

func TestStrategyByName(t *testing.T) {
	s, err := StrategyByName("guess")
	require.NoError(t, err)
	assert.Equal(t, Label(GuessLabel), s.Name())

	s, err = StrategyByName("cp1252")
	require.NoError(t, err)
	assert.Equal(t, Windows1252, s.Name())

	_, err = StrategyByName("no-such-charset")
	assert.True(t, errors.Is(err, ErrUnknownEncoding))
}

// Property: the default cascade decodes every byte sequence, and the label
// always names the earliest strategy that accepts the input.
func TestDetectCascadeOrderingProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	d := DefaultDetector()

	properties.Property("arbitrary bytes never fail the default cascade", prop.ForAll(
		func(raw []byte) bool {
			res, err := d.Detect(raw)
			if err != nil {
				return false
			}
			switch {
			case isASCII(raw):
				return res.Label == ASCII && res.Text == string(raw)
			case utf8.Valid(raw):
				return res.Label == UTF8 && res.Text == string(raw)
			default:
				return res.Label == ISO88591 && utf8.RuneCountInString(res.Text) == len(raw)
			}
		},
		gen.SliceOf(gen.UInt8()),
	))

	properties.Property("ASCII strings always report ascii", prop.ForAll(
		func(s string) bool {
			res, err := d.Detect([]byte(s))
			return err == nil && res.Label == ASCII && res.Text == s
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func isASCII(raw []byte) bool {
	for _, b := range raw {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
