package diagnostics

import (
	"math"

	"github.com/mikup/stemscope/internal/types"
	"github.com/mikup/stemscope/internal/wav"
)

// DetectTruncation measures RMS and peak level over the final window of
// audio in the data chunk; a file ending well above the noise floor is a
// likely edit-point truncation rather than a natural fade-out.
func DetectTruncation(data []byte, format types.PCMFormat, opts Options, bands Bands) *types.TruncationDetection {
	frameBytes := wav.FrameBytes(format)
	tailFrames := format.SampleRate * int(opts.TruncationWindowMs) / 1000
	tailBytes := tailFrames * frameBytes

	tail := data
	if tailBytes > 0 && tailBytes < len(data) {
		tail = data[len(data)-tailBytes:]
	}

	channels, _ := decodeNormalized(tail, format)

	var sumSquares, peak float64

	var count uint64

	for _, ch := range channels {
		for _, s := range ch {
			sumSquares += s * s

			if abs := math.Abs(s); abs > peak {
				peak = abs
			}

			count++
		}
	}

	if count == 0 {
		return &types.TruncationDetection{FinalRmsDb: -120, FinalPeakDb: -120, Severity: types.SeverityNone}
	}

	rms := math.Sqrt(sumSquares / float64(count))
	rmsDb := 20 * math.Log10(rms)
	peakDb := 20 * math.Log10(peak)

	if math.IsInf(rmsDb, -1) {
		rmsDb = -120
	}

	if math.IsInf(peakDb, -1) {
		peakDb = -120
	}

	return &types.TruncationDetection{
		IsTruncated:   rmsDb > opts.TruncationLoudDbFloor,
		FinalRmsDb:    rmsDb,
		FinalPeakDb:   peakDb,
		SamplesInTail: count,
		Severity:      bands.classify(rmsDb),
	}
}
