// Package resample implements the streaming linear resampler used by the
// Stem Stream Decoder. Pitch-accurate interpolation is not the core's
// value; cheap and predictable is.
package resample

// Linear converts mono samples between input and output sample rates by
// fractional-position linear interpolation, streaming across calls so a
// caller can feed it arbitrarily sized chunks.
type Linear struct {
	inRate, outRate int
	step            float64
	pos             float64
	residual        []float64
}

// New returns a Linear resampler. If inRate == outRate, Push is a
// passthrough.
func New(inRate, outRate int) *Linear {
	return &Linear{
		inRate:  inRate,
		outRate: outRate,
		step:    float64(inRate) / float64(outRate),
	}
}

// Passthrough reports whether this resampler performs no conversion.
func (l *Linear) Passthrough() bool {
	return l.inRate == l.outRate
}

// Push appends input samples and returns all output samples whose
// interpolation position now lies fully inside the residual buffer. It
// retains the unconsumed tail of input (plus whatever carried over from
// the previous call) for the next Push.
func (l *Linear) Push(input []float64) []float64 {
	if l.Passthrough() {
		return input
	}

	l.residual = append(l.residual, input...)

	var out []float64

	for {
		i0 := int(l.pos)
		i1 := i0 + 1

		if i1 >= len(l.residual) {
			break
		}

		frac := l.pos - float64(i0)
		sample := l.residual[i0] + (l.residual[i1]-l.residual[i0])*frac
		out = append(out, sample)
		l.pos += l.step
	}

	// Drop the fully-consumed prefix, keeping position relative to what
	// remains.
	consumedWhole := int(l.pos)
	if consumedWhole > 0 {
		if consumedWhole > len(l.residual) {
			consumedWhole = len(l.residual)
		}

		l.residual = l.residual[consumedWhole:]
		l.pos -= float64(consumedWhole)
	}

	return out
}

// Reset clears residual state and fractional position, used on seek.
func (l *Linear) Reset() {
	l.residual = l.residual[:0]
	l.pos = 0
}
