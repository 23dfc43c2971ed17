package charset

import (
	"sort"

	"github.com/saintfish/chardet"
)

// GuessLabel names the statistical strategy in cascade configuration.
const GuessLabel = "guess"

// DefaultMinConfidence is the lowest guesser confidence (0-100) worth trying.
const DefaultMinConfidence = 10

// Guesser asks a statistical charset detector for candidates and decodes
// with the most confident one that resolves and decodes cleanly.
type Guesser struct {
	detector      *chardet.Detector
	minConfidence int
}

// NewGuesser returns a guesser ignoring candidates below minConfidence.
func NewGuesser(minConfidence int) *Guesser {
	return &Guesser{
		detector:      chardet.NewTextDetector(),
		minConfidence: minConfidence,
	}
}

// Name implements Strategy.
func (g *Guesser) Name() Label {
	return GuessLabel
}

// Try implements Strategy.
func (g *Guesser) Try(raw []byte) (Result, bool) {
	if len(raw) == 0 {
		return Result{}, false
	}
	candidates, err := g.detector.DetectAll(raw)
	if err != nil {
		return Result{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	for _, cand := range candidates {
		if cand.Confidence < g.minConfidence {
			break
		}
		codec, err := Lookup(cand.Charset)
		if err != nil {
			continue
		}
		if res, ok := codec.Try(raw); ok {
			return res, true
		}
	}
	return Result{}, false
}
