package diagnostics

import (
	"bytes"
	"testing"

	"github.com/mikup/stemscope/internal/types"
)

func TestRunOnlyPopulatesRequestedChecks(t *testing.T) {
	samples := make([]int16, 1000)
	raw := encodeInt16Mono(samples)

	opts := DefaultOptions()
	opts.Checks = types.CheckClipping | types.CheckSilence

	got, err := Run(bytes.NewReader(raw), monoFormat16(1000), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got.Clipping == nil {
		t.Error("Clipping result missing though CheckClipping was requested")
	}

	if got.Silence == nil {
		t.Error("Silence result missing though CheckSilence was requested")
	}

	if got.DCOffset != nil {
		t.Error("DCOffset result populated though not requested")
	}

	if got.Dropout != nil {
		t.Error("Dropout result populated though not requested")
	}

	if got.Truncation != nil {
		t.Error("Truncation result populated though not requested")
	}

	if got.BitDepth != nil {
		t.Error("BitDepth result populated though not requested")
	}
}

func TestRunAllChecksPopulatesEveryField(t *testing.T) {
	samples := make([]int16, 1000)
	for i := range samples {
		samples[i] = 10000
	}

	raw := encodeInt16Mono(samples)

	opts := DefaultOptions()

	got, err := Run(bytes.NewReader(raw), monoFormat16(48000), opts)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if got.Clipping == nil || got.DCOffset == nil || got.Silence == nil ||
		got.Truncation == nil || got.Dropout == nil || got.BitDepth == nil {
		t.Errorf("expected every field populated under CheckAll, got %+v", got)
	}
}
