package diagnostics

import "testing"

func TestDetectTruncationFlagsLoudEnding(t *testing.T) {
	samples := make([]int16, 1000)
	for i := range samples {
		samples[i] = 20000
	}

	raw := encodeInt16Mono(samples)
	opts := DefaultOptions()
	opts.TruncationWindowMs = 50

	got := DetectTruncation(raw, monoFormat16(1000), opts, opts.TruncationSeverityBands)

	if !got.IsTruncated {
		t.Error("expected IsTruncated true for a file ending at full loudness")
	}

	if got.FinalRmsDb <= opts.TruncationLoudDbFloor {
		t.Errorf("FinalRmsDb = %v, want above the loud floor %v", got.FinalRmsDb, opts.TruncationLoudDbFloor)
	}
}

func TestDetectTruncationFadeOutNotFlagged(t *testing.T) {
	samples := make([]int16, 1000)
	for i := range samples {
		samples[i] = 0
	}

	raw := encodeInt16Mono(samples)
	opts := DefaultOptions()
	opts.TruncationWindowMs = 50

	got := DetectTruncation(raw, monoFormat16(1000), opts, opts.TruncationSeverityBands)

	if got.IsTruncated {
		t.Error("expected IsTruncated false for a file fading to silence")
	}
}

func TestDetectTruncationEmptyInput(t *testing.T) {
	opts := DefaultOptions()

	got := DetectTruncation(nil, monoFormat16(48000), opts, opts.TruncationSeverityBands)
	if got.FinalRmsDb != -120 {
		t.Errorf("FinalRmsDb = %v, want -120 for empty input", got.FinalRmsDb)
	}
}
