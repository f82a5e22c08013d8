package diagnostics

import (
	"math"

	"github.com/mikup/stemscope/internal/types"
)

// DetectDCOffset computes the running per-channel mean and the mean of
// per-channel absolute offsets, in both linear and dB form.
func DetectDCOffset(raw []byte, format types.PCMFormat, bands Bands) *types.DCOffsetResult {
	channels, _ := decodeNormalized(raw, format)

	numChannels := int(format.Channels)
	if len(channels) == 0 || len(channels[0]) == 0 {
		return &types.DCOffsetResult{
			Channels: make([]float64, numChannels),
			OffsetDb: -120,
			Severity: types.SeverityNone,
		}
	}

	samplesPerChannel := len(channels[0])
	offsets := make([]float64, numChannels)

	var totalOffset float64

	for ch := range channels {
		var sum float64

		for _, s := range channels[ch] {
			sum += s
		}

		offsets[ch] = sum / float64(samplesPerChannel)
		totalOffset += math.Abs(offsets[ch])
	}

	totalOffset /= float64(numChannels)

	offsetDb := 20 * math.Log10(totalOffset)
	if math.IsInf(offsetDb, -1) {
		offsetDb = -120
	}

	return &types.DCOffsetResult{
		Offset:   totalOffset,
		OffsetDb: offsetDb,
		Channels: offsets,
		Samples:  uint64(samplesPerChannel * numChannels),
		Severity: bands.classify(offsetDb),
	}
}
