// Package loudness implements the per-stem EBU R128 meter (ITU-R BS.1770-4
// K-weighting), 4x-oversampled cubic Hermite true-peak detection, and
// crest factor, grounded on the teacher's whole-file R128 meter adapted to
// run incrementally, one synced frame at a time.
package loudness

import (
	"math"
	"sort"
)

const (
	silenceFloorLUFS  = -120
	clampedFloorLUFS  = -70
	silenceFloorDbTP  = -120
)

type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
}

type biquadState struct {
	z1, z2 float64
}

func (s *biquadState) process(b *biquad, in float64) float64 {
	out := b.b0*in + s.z1
	s.z1 = b.b1*in - b.a1*out + s.z2
	s.z2 = b.b2*in - b.a2*out

	return out
}

// kWeightingFilters returns the ITU-R BS.1770-4 high-shelf pre-filter and
// RLB high-pass, both bilinear-transform derived from the analog
// prototypes, for the given sample rate.
func kWeightingFilters(rate int) (pre, rlb biquad) {
	sampleRate := float64(rate)

	centerFreq := 1681.974450955533
	gainDb := 3.999843853973347
	q := 0.7071752369554196

	k := math.Tan(math.Pi * centerFreq / sampleRate)
	headGainV := math.Pow(10, gainDb/20)
	vb := math.Pow(headGainV, 0.4996667741545416)

	gain := 1 + k/q + k*k
	pre.b0 = (headGainV + vb*k/q + k*k) / gain
	pre.b1 = 2 * (k*k - headGainV) / gain
	pre.b2 = (headGainV - vb*k/q + k*k) / gain
	pre.a1 = 2 * (k*k - 1) / gain
	pre.a2 = (1 - k/q + k*k) / gain

	centerFreq = 38.13547087602444
	q = 0.5003270373238773

	k = math.Tan(math.Pi * centerFreq / sampleRate)

	gain = 1 + k/q + k*k
	rlb.b0 = 1 / gain
	rlb.b1 = -2 / gain
	rlb.b2 = 1 / gain
	rlb.a1 = 2 * (k*k - 1) / gain
	rlb.a2 = (1 - k/q + k*k) / gain

	return pre, rlb
}

// Meter is a single-channel (mono, one per stem) EBU R128 accumulator.
// It is fed only gain-adjusted samples for the individual stem being
// metered, never the summed mix.
type Meter struct {
	sampleRate int
	pre, rlb   biquad
	preState   biquadState
	rlbState   biquadState

	momentarySize, shortTermSize, hopSize int
	momentaryBuf, shortTermBuf            []float64
	momentaryPos, shortTermPos            int
	momentarySum, shortTermSum            float64
	momentaryFilled, shortTermFilled      int

	momentaryPowers, shortTermPowers []float64
	lastMomentaryLUFS, lastShortTermLUFS float64

	sampleCount int
	totalFrames uint64
}

// NewMeter constructs a Meter for one stem at the engine's target sample
// rate.
func NewMeter(sampleRate int) *Meter {
	pre, rlb := kWeightingFilters(sampleRate)

	return &Meter{
		sampleRate:        sampleRate,
		pre:               pre,
		rlb:               rlb,
		momentarySize:     sampleRate * 400 / 1000,
		shortTermSize:     sampleRate * 3,
		hopSize:           sampleRate * 100 / 1000,
		momentaryBuf:      make([]float64, sampleRate*400/1000),
		shortTermBuf:      make([]float64, sampleRate*3),
		lastMomentaryLUFS: silenceFloorLUFS,
		lastShortTermLUFS: silenceFloorLUFS,
	}
}

// AddSamples feeds one synced frame's worth of gain-applied mono samples
// and returns the most recently computed momentary and short-term
// readings (the BS.1770 windows update on a 100 ms hop, not every sample,
// so within a frame the value may lag by up to one hop).
func (m *Meter) AddSamples(samples []float64) (momentaryLUFS, shortTermLUFS float64) {
	for _, s := range samples {
		m.processSample(s)
	}

	return clampLUFS(m.lastMomentaryLUFS), clampLUFS(m.lastShortTermLUFS)
}

func (m *Meter) processSample(sample float64) {
	filtered := m.preState.process(&m.pre, sample)
	filtered = m.rlbState.process(&m.rlb, filtered)
	framePower := filtered * filtered

	old := m.momentaryBuf[m.momentaryPos]
	m.momentaryBuf[m.momentaryPos] = framePower
	m.momentarySum = m.momentarySum - old + framePower
	m.momentaryPos = (m.momentaryPos + 1) % m.momentarySize

	if m.momentaryFilled < m.momentarySize {
		m.momentaryFilled++
	}

	old = m.shortTermBuf[m.shortTermPos]
	m.shortTermBuf[m.shortTermPos] = framePower
	m.shortTermSum = m.shortTermSum - old + framePower
	m.shortTermPos = (m.shortTermPos + 1) % m.shortTermSize

	if m.shortTermFilled < m.shortTermSize {
		m.shortTermFilled++
	}

	m.sampleCount++
	m.totalFrames++

	if m.sampleCount%m.hopSize == 0 {
		if m.momentaryFilled == m.momentarySize {
			mean := m.momentarySum / float64(m.momentarySize)
			m.lastMomentaryLUFS = -0.691 + 10*math.Log10(mean)
			m.momentaryPowers = append(m.momentaryPowers, mean)
		}

		if m.shortTermFilled == m.shortTermSize {
			mean := m.shortTermSum / float64(m.shortTermSize)
			m.lastShortTermLUFS = -0.691 + 10*math.Log10(mean)
			m.shortTermPowers = append(m.shortTermPowers, mean)
		}
	}
}

// Integrated returns the whole-stream integrated loudness using the
// two-stage absolute (-70 LUFS) then relative (-10 LU below the ungated
// mean) gate.
func (m *Meter) Integrated() float64 {
	return clampLUFS(integratedLoudness(m.momentaryPowers))
}

// LoudnessRange returns the 10th/95th percentile spread of short-term
// readings after a -70 LUFS absolute gate and a -20 LU relative gate.
func (m *Meter) LoudnessRange() float64 {
	return loudnessRange(m.shortTermPowers)
}

// MomentarySeries and ShortTermSeries return every computed windowed power
// value (one per 100 ms hop) converted to LUFS.
func (m *Meter) MomentarySeries() []float64 {
	return powersToLUFS(m.momentaryPowers)
}

func (m *Meter) ShortTermSeries() []float64 {
	return powersToLUFS(m.shortTermPowers)
}

func powersToLUFS(powers []float64) []float64 {
	out := make([]float64, len(powers))
	for i, p := range powers {
		out[i] = clampLUFS(-0.691 + 10*math.Log10(p))
	}

	return out
}

func clampLUFS(lufs float64) float64 {
	if math.IsNaN(lufs) || math.IsInf(lufs, 0) || lufs < clampedFloorLUFS {
		return clampedFloorLUFS
	}

	if lufs > 0 {
		return 0
	}

	return lufs
}

func integratedLoudness(powers []float64) float64 {
	if len(powers) == 0 {
		return silenceFloorLUFS
	}

	var sum float64

	var count int

	for _, p := range powers {
		lufs := -0.691 + 10*math.Log10(p)
		if lufs > -70 {
			sum += p
			count++
		}
	}

	if count == 0 {
		return silenceFloorLUFS
	}

	ungatedMean := sum / float64(count)
	relativeThreshold := -0.691 + 10*math.Log10(ungatedMean) - 10

	sum = 0
	count = 0

	for _, p := range powers {
		lufs := -0.691 + 10*math.Log10(p)
		if lufs > relativeThreshold {
			sum += p
			count++
		}
	}

	if count == 0 {
		return silenceFloorLUFS
	}

	return -0.691 + 10*math.Log10(sum/float64(count))
}

func loudnessRange(powers []float64) float64 {
	if len(powers) < 2 {
		return 0
	}

	var lufsValues []float64

	for _, p := range powers {
		lufs := -0.691 + 10*math.Log10(p)
		if lufs > -70 {
			lufsValues = append(lufsValues, lufs)
		}
	}

	if len(lufsValues) < 2 {
		return 0
	}

	var sum float64
	for _, l := range lufsValues {
		sum += l
	}

	mean := sum / float64(len(lufsValues))
	relativeThreshold := mean - 20

	var gated []float64

	for _, l := range lufsValues {
		if l > relativeThreshold {
			gated = append(gated, l)
		}
	}

	if len(gated) < 2 {
		return 0
	}

	sort.Float64s(gated)
	low := gated[int(float64(len(gated))*0.10)]
	high := gated[int(float64(len(gated))*0.95)]

	return high - low
}

// CrestFactor is peak / RMS over samples; 0 if either is below 1e-12.
func CrestFactor(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var peak, sumSquares float64

	for _, s := range samples {
		if abs := math.Abs(s); abs > peak {
			peak = abs
		}

		sumSquares += s * s
	}

	rms := math.Sqrt(sumSquares / float64(len(samples)))
	if peak < 1e-12 || rms < 1e-12 {
		return 0
	}

	return peak / rms
}

// TruePeakDbTP runs 4x cubic Hermite oversampling between each adjacent
// sample pair, clamping neighbors at the buffer boundaries, and returns
// the maximum absolute value (original samples and interpolated points)
// converted to dBTP. Silence (or empty input) returns the -120 dBTP floor.
func TruePeakDbTP(samples []float64) float64 {
	if len(samples) == 0 {
		return silenceFloorDbTP
	}

	peak := 0.0

	at := func(i int) float64 {
		switch {
		case i < 0:
			return samples[0]
		case i >= len(samples):
			return samples[len(samples)-1]
		default:
			return samples[i]
		}
	}

	for i := range samples {
		if abs := math.Abs(samples[i]); abs > peak {
			peak = abs
		}
	}

	for i := 0; i < len(samples)-1; i++ {
		p0, p1, p2, p3 := at(i-1), at(i), at(i+1), at(i+2)

		for _, t := range []float64{0.25, 0.5, 0.75} {
			v := cubicHermite(p0, p1, p2, p3, t)
			if abs := math.Abs(v); abs > peak {
				peak = abs
			}
		}
	}

	if peak < 1e-12 {
		return silenceFloorDbTP
	}

	db := 20 * math.Log10(peak)
	if math.IsInf(db, -1) || db < silenceFloorDbTP {
		return silenceFloorDbTP
	}

	return db
}

func cubicHermite(p0, p1, p2, p3, t float64) float64 {
	a0 := -0.5*p0 + 1.5*p1 - 1.5*p2 + 0.5*p3
	a1 := p0 - 2.5*p1 + 2*p2 - 0.5*p3
	a2 := -0.5*p0 + 0.5*p2
	a3 := p1

	return ((a0*t+a1)*t+a2)*t + a3
}
