package diagnostics

import (
	"math"

	"github.com/mikup/stemscope/internal/types"
)

// silenceScanner runs a windowed-RMS state machine over the decoded mono
// mix, tracking entry/exit of sustained low-level segments.
type silenceScanner struct {
	opts Options

	sampleRate       int
	windowFrames     int
	minSilenceFrames uint64
	threshold        float64

	currentFrame uint64
	windowSumSq  float64
	windowCount  int

	inSilence    bool
	silenceStart uint64
	silenceSumSq float64
	silenceCount uint64

	segments []types.SilenceSegment
}

func newSilenceScanner(format types.PCMFormat, opts Options) *silenceScanner {
	windowFrames := max(format.SampleRate*opts.SilenceWindowMs/1000, 1)
	minSilenceFrames := uint64(format.SampleRate) * uint64(opts.SilenceMinDurationMs) / 1000 //nolint:gosec

	return &silenceScanner{
		opts:             opts,
		sampleRate:       format.SampleRate,
		windowFrames:     windowFrames,
		minSilenceFrames: minSilenceFrames,
		threshold:        math.Pow(10, opts.SilenceThresholdDb/20),
	}
}

func (s *silenceScanner) addFrame(monoSquare float64) {
	s.windowSumSq += monoSquare
	s.windowCount++
	s.currentFrame++

	if s.windowCount >= s.windowFrames {
		s.processWindow()
	}
}

func (s *silenceScanner) processWindow() {
	if s.windowCount == 0 {
		return
	}

	rms := math.Sqrt(s.windowSumSq / float64(s.windowCount))
	isSilent := rms < s.threshold

	switch {
	case isSilent && !s.inSilence:
		s.inSilence = true
		s.silenceStart = s.currentFrame - uint64(s.windowCount) //nolint:gosec
		s.silenceSumSq = s.windowSumSq
		s.silenceCount = uint64(s.windowCount) //nolint:gosec
	case isSilent && s.inSilence:
		s.silenceSumSq += s.windowSumSq
		s.silenceCount += uint64(s.windowCount) //nolint:gosec
	case !isSilent && s.inSilence:
		s.closeSegment(s.currentFrame - uint64(s.windowCount)) //nolint:gosec
		s.inSilence = false
	}

	s.windowSumSq = 0
	s.windowCount = 0
}

func (s *silenceScanner) closeSegment(end uint64) {
	frames := end - s.silenceStart
	if frames < s.minSilenceFrames {
		return
	}

	rms := math.Sqrt(s.silenceSumSq / float64(s.silenceCount))

	db := 20 * math.Log10(rms)
	if math.IsInf(db, -1) {
		db = -120
	}

	s.segments = append(s.segments, types.SilenceSegment{
		StartSample: s.silenceStart,
		EndSample:   end,
		StartSec:    float64(s.silenceStart) / float64(s.sampleRate),
		EndSec:      float64(end) / float64(s.sampleRate),
		DurationSec: float64(frames) / float64(s.sampleRate),
		RmsDb:       db,
	})
}

func (s *silenceScanner) finalize(bands Bands) *types.SilenceResult {
	s.processWindow()

	if s.inSilence {
		s.closeSegment(s.currentFrame)
	}

	var totalSilence float64
	for _, seg := range s.segments {
		totalSilence += seg.DurationSec
	}

	var leadingSec, trailingSec float64

	if len(s.segments) > 0 {
		if s.segments[0].StartSample == 0 {
			leadingSec = s.segments[0].DurationSec
		}

		last := s.segments[len(s.segments)-1]
		if last.EndSample == s.currentFrame {
			trailingSec = last.DurationSec
		}
	}

	return &types.SilenceResult{
		Segments:      s.segments,
		TotalSilence:  totalSilence,
		LeadingSec:    leadingSec,
		TrailingSec:   trailingSec,
		TotalDuration: float64(s.currentFrame) / float64(s.sampleRate),
		Frames:        s.currentFrame,
		Severity:      bands.classify(totalSilence),
	}
}

// DetectSilence reports every sustained low-RMS segment in the decoded
// stem, downmixing multi-channel audio for the RMS window.
func DetectSilence(raw []byte, format types.PCMFormat, opts Options, bands Bands) *types.SilenceResult {
	channels, _ := decodeNormalized(raw, format)
	scanner := newSilenceScanner(format, opts)

	if len(channels) == 0 {
		return scanner.finalize(bands)
	}

	n := len(channels[0])
	numChannels := len(channels)

	for i := range n {
		var frameSumSq float64

		for ch := range channels {
			frameSumSq += channels[ch][i] * channels[ch][i]
		}

		scanner.addFrame(frameSumSq / float64(numChannels))
	}

	return scanner.finalize(bands)
}
