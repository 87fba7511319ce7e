package normalize

// Bands is the length policy a rewrite must satisfy to be accepted. Each
// bound is a ratio of rewritten length to original length.
type Bands struct {
	CitationMin float64
	CitationMax float64

	MathMin float64
	// MathMax maps math symbol frequency (1-5) to the largest accepted ratio.
	MathMax map[int]float64

	HyphenationMin float64
	HyphenationMax float64
}

// DefaultBands returns the standard rewrite policy.
func DefaultBands() Bands {
	return Bands{
		CitationMin:    0.7,
		CitationMax:    1.1,
		MathMin:        0.9,
		MathMax:        map[int]float64{1: 1.4, 2: 2, 3: 3, 4: 5, 5: 10},
		HyphenationMin: 0.5,
		HyphenationMax: 2.0,
	}
}

// withDefaults fills unset bounds from DefaultBands.
func (b Bands) withDefaults() Bands {
	d := DefaultBands()
	if b.CitationMin <= 0 {
		b.CitationMin = d.CitationMin
	}
	if b.CitationMax <= 0 {
		b.CitationMax = d.CitationMax
	}
	if b.MathMin <= 0 {
		b.MathMin = d.MathMin
	}
	if len(b.MathMax) == 0 {
		b.MathMax = d.MathMax
	}
	if b.HyphenationMin <= 0 {
		b.HyphenationMin = d.HyphenationMin
	}
	if b.HyphenationMax <= 0 {
		b.HyphenationMax = d.HyphenationMax
	}
	return b
}

// mathMax returns the upper ratio for a frequency, clamped to 1-5.
func (b Bands) mathMax(freq int) float64 {
	freq = min(max(freq, 1), 5)
	if v, ok := b.MathMax[freq]; ok {
		return v
	}
	return DefaultBands().MathMax[freq]
}

// Within reports whether rewritten is an acceptable length for original.
func Within(original, rewritten string, lo, hi float64) bool {
	o := len([]rune(original))
	if o == 0 {
		return false
	}
	ratio := float64(len([]rune(rewritten))) / float64(o)
	return ratio >= lo && ratio <= hi
}
