// Package faults collects the sentinel errors the core wraps around
// component-local causes, tested with errors.Is and wrapped with
// fmt.Errorf("%w: %w", sentinel, cause).
package faults

import (
	"errors"

	"github.com/farcloser/primordium/fault"
)

// Configuration errors.
var (
	ErrInvalidSampleRate  = errors.New("invalid target sample rate")
	ErrInvalidFrameSize   = errors.New("invalid frame size")
	ErrRateMismatch       = errors.New("stems resolve to different sample rates")
	ErrInvalidSeekTime    = errors.New("seek time must be finite and non-negative")
	ErrInvalidPointsPerSec = errors.New("points_per_second must be 1 or 2")
	ErrInvalidBufferSeconds = errors.New("buffer_seconds must be positive")
	ErrUnknownStem        = errors.New("unknown stem id")
	ErrMissingStemPath    = errors.New("missing path for required stem")
)

// Source errors.
var (
	ErrFileMissing       = errors.New("source file does not exist")
	ErrUnsupportedFormat = errors.New("not a RIFF/WAVE container")
	ErrMissingSampleRate = errors.New("container does not declare a sample rate")
	ErrNoAudioTrack      = errors.New("container has no audio track")
)

// Decode errors. ErrReadFailure is the same sentinel primordium/fault
// exports and the teacher's audit packages wrap I/O errors with; reused
// here so decode failures stay identifiable the same way across both.
var (
	ErrReadFailure = fault.ErrReadFailure
	ErrDecodeFatal = errors.New("fatal decode error")
)

// Meter errors.
var ErrMeterFailure = errors.New("loudness meter failure")

// Output errors.
var (
	ErrOutputDeviceUnavailable = errors.New("output device unavailable")
	ErrUnsupportedSampleFormat = errors.New("unsupported device sample format")
)

// Concurrency errors.
var ErrWorkerPanic = errors.New("worker panicked")
