// Package diagnostics implements the supplemental per-stem QC checks that
// run alongside the offline loudness scan: clipping, DC offset, silence,
// truncation, and dropouts. It is entirely independent of EngineConfig --
// one configures the realtime frame pipeline, this configures offline
// diagnostics -- and never runs in the realtime path.
package diagnostics

import "github.com/mikup/stemscope/internal/types"

// Bands holds the Severity threshold for a single detector. Each detector
// defines its own unit for the threshold fields (run length, dB, count,
// seconds) as documented on the Options field it belongs to.
type Bands struct {
	Mild     float64
	Moderate float64
	Severe   float64
}

func (b Bands) classify(value float64) types.Severity {
	switch {
	case value >= b.Severe:
		return types.SeveritySevere
	case value >= b.Moderate:
		return types.SeverityModerate
	case value >= b.Mild:
		return types.SeverityMild
	default:
		return types.SeverityNone
	}
}

// Options bundles every detector's tunables and Severity bands.
type Options struct {
	Checks types.Check

	ClippingRunBands Bands // longest clipped run, in samples

	DCOffsetDbBands Bands // |offset| in dB, higher (closer to 0) is worse; see Bands.classify

	SilenceThresholdDb   float64
	SilenceMinDurationMs int
	SilenceWindowMs      int
	SilenceTotalBands    Bands // total silence seconds

	TruncationWindowMs     uint
	TruncationLoudDbFloor  float64 // final-window RMS above this = likely truncation
	TruncationSeverityBands Bands  // final RMS dB, higher is worse

	DropoutDeltaThreshold  float64
	DropoutDeltaNearZero   float64
	DropoutZeroRunMinMs    float64
	DropoutZeroRunQuietDb  float64
	DropoutDCWindowMs      float64
	DropoutDCJumpThreshold float64
	DropoutEventBands      Bands // total event count
}

// DefaultOptions mirrors the teacher's per-detector defaults.
func DefaultOptions() Options {
	return Options{
		Checks:               types.CheckAll,
		ClippingRunBands:     Bands{Mild: 2, Moderate: 10, Severe: 50},
		DCOffsetDbBands:      Bands{Mild: -60, Moderate: -50, Severe: -40},
		SilenceThresholdDb:   -60.0,
		SilenceMinDurationMs: 1000,
		SilenceWindowMs:      50,
		SilenceTotalBands:    Bands{Mild: 2, Moderate: 10, Severe: 30},
		TruncationWindowMs:   50,
		TruncationLoudDbFloor: -40.0,
		TruncationSeverityBands: Bands{Mild: -40, Moderate: -30, Severe: -20},
		DropoutDeltaThreshold:  0.6,
		DropoutDeltaNearZero:   0.01,
		DropoutZeroRunMinMs:    1.0,
		DropoutZeroRunQuietDb:  -50.0,
		DropoutDCWindowMs:      50.0,
		DropoutDCJumpThreshold: 0.1,
		DropoutEventBands:      Bands{Mild: 1, Moderate: 5, Severe: 20},
	}
}
