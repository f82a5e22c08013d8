// Package spectral computes per-frame Hann-windowed FFT spectral
// measurements (centroid, speech-band energy, SNR), grounded on the
// teacher's gonum FFT usage in internal/audit/spectral, adapted from a
// whole-file multi-window average to a single per-frame analysis.
package spectral

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/mikup/stemscope/internal/types"
)

const (
	speechBandLowHz  = 1000.0
	speechBandHighHz = 4000.0
	snrFloorDb       = -20.0
	snrCeilDb        = 60.0
	snrEpsilon       = 1e-12
)

// Analyzer holds a reusable FFT plan and Hann window for one frame size,
// shared across stems and frames.
type Analyzer struct {
	frameSize int
	window    []float64
	fft       *fourier.FFT
}

// NewAnalyzer builds the Hann window and FFT plan for frameSize, the
// engine's fixed analysis window length.
func NewAnalyzer(frameSize int) *Analyzer {
	return &Analyzer{
		frameSize: frameSize,
		window:    hannWindow(frameSize),
		fft:       fourier.NewFFT(frameSize),
	}
}

func hannWindow(size int) []float64 {
	w := make([]float64, size)
	if size <= 1 {
		if size == 1 {
			w[0] = 1
		}

		return w
	}

	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
	}

	return w
}

// Reading is one stem's spectral measurement for a single frame.
type Reading struct {
	CentroidHz   float64
	SpeechEnergy float64
}

// Analyze windows, FFTs, and measures centroid and speech-band energy for
// one stem's frame. Samples shorter than frameSize are zero-padded;
// samples longer are truncated to frameSize.
func (a *Analyzer) Analyze(samples []float64, sampleRate int) Reading {
	fftIn := make([]float64, a.frameSize)

	n := min(len(samples), a.frameSize)
	for i := range n {
		fftIn[i] = samples[i] * a.window[i]
	}

	coeffs := a.fft.Coefficients(nil, fftIn)

	binHz := float64(sampleRate) / float64(a.frameSize)

	var (
		weightedFreqSum float64
		magSum          float64
		speechEnergy    float64
	)

	lowBin := int(math.Floor(speechBandLowHz / binHz))
	highBin := int(math.Ceil(speechBandHighHz / binHz))

	for i, c := range coeffs {
		mag := math.Hypot(real(c), imag(c))
		freq := float64(i) * binHz

		weightedFreqSum += freq * mag
		magSum += mag

		if i >= lowBin && i <= highBin {
			speechEnergy += mag * mag
		}
	}

	centroid := 0.0
	if magSum > snrEpsilon {
		centroid = weightedFreqSum / magSum
	}

	return Reading{CentroidHz: centroid, SpeechEnergy: speechEnergy}
}

// MeanSquare is the time-domain power used by SNRDb, distinct from the
// spectral-domain magnitudes used by centroid and speech-band energy.
func MeanSquare(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	var sum float64
	for _, s := range samples {
		sum += s * s
	}

	return sum / float64(len(samples))
}

// SNRDb compares dialogue to background mean-square power, clamped to
// [-20, 60] dB.
func SNRDb(dialoguePower, backgroundPower float64) float64 {
	snr := 10 * math.Log10((dialoguePower+snrEpsilon)/(backgroundPower+snrEpsilon))

	switch {
	case snr < snrFloorDb:
		return snrFloorDb
	case snr > snrCeilDb:
		return snrCeilDb
	default:
		return snr
	}
}

// SpeechPocketMasked is true when background speech-band energy exceeds
// dialogue's: music or effects are fighting for the intelligibility band.
func SpeechPocketMasked(dialogue, background Reading) bool {
	return background.SpeechEnergy > dialogue.SpeechEnergy
}

// ToTypesReading converts the analyzer's internal Reading to the shared
// domain type emitted in frame events.
func ToTypesReading(r Reading) types.SpectralReading {
	return types.SpectralReading{CentroidHz: r.CentroidHz, SpeechEnergy: r.SpeechEnergy}
}
