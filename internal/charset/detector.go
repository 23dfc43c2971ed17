package charset

// Strategy is one step of the decode cascade.
type Strategy interface {
	// Name identifies the strategy in warnings.
	Name() Label
	// Try decodes raw, reporting false when the strategy does not apply.
	Try(raw []byte) (Result, bool)
}

// Detector runs strategies in order and stops at the first success.
type Detector struct {
	strategies []Strategy
}

// NewDetector builds a detector over an explicit cascade.
func NewDetector(strategies ...Strategy) *Detector {
	s := make([]Strategy, len(strategies))
	copy(s, strategies)
	return &Detector{strategies: s}
}

// DefaultDetector returns the standard cascade: strict ASCII, strict UTF-8,
// ISO-8859-1, Windows-1252, then the statistical guesser.
//
// ISO-8859-1 accepts any byte sequence, so the later steps only run for
// custom cascades that leave it out.
func DefaultDetector() *Detector {
	return NewDetector(
		asciiCodec,
		utf8Codec,
		latin1Codec,
		windows1252Codec,
		NewGuesser(DefaultMinConfidence),
	)
}

// Detect decodes raw with the first strategy that accepts it.
// Later strategies are never consulted once one succeeds.
func (d *Detector) Detect(raw []byte) (Result, error) {
	tried := make([]Label, 0, len(d.strategies))
	for _, s := range d.strategies {
		if res, ok := s.Try(raw); ok {
			return res, nil
		}
		tried = append(tried, s.Name())
	}
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return Result{Label: Unknown}, &DecodeError{Raw: cp, Tried: tried}
}

// Strategies returns the names of the cascade steps in order.
func (d *Detector) Strategies() []Label {
	names := make([]Label, len(d.strategies))
	for i, s := range d.strategies {
		names[i] = s.Name()
	}
	return names
}

// StrategyByName returns the built-in strategy for a cascade config entry:
// "ascii", "utf8", "iso-8859-1", "windows-1252", "guess", or any encoding Lookup accepts.
func StrategyByName(name string) (Strategy, error) {
	if name == GuessLabel {
		return NewGuesser(DefaultMinConfidence), nil
	}
	c, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return c, nil
}
