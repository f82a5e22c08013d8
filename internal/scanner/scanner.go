// Package scanner implements the Offline Loudness Scanner: one goroutine
// per stem decodes end to end through a loudness meter, then runs the
// diagnostics bank over a separately read copy of the raw data chunk,
// grounded on san-kum-dynsim's
// Ensemble worker-pool/WaitGroup shape (internal/sim/parallel.go) adapted
// from a fixed run count to one worker per declared stem path.
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mikup/stemscope/internal/analysis/loudness"
	"github.com/mikup/stemscope/internal/decode"
	"github.com/mikup/stemscope/internal/diagnostics"
	"github.com/mikup/stemscope/internal/faults"
	"github.com/mikup/stemscope/internal/types"
	"github.com/mikup/stemscope/internal/wav"
)

const progressIntervalSecs = 5.0

// Paths maps each declared stem to its source file. Dialogue is required;
// every other entry is optional.
type Paths map[types.StemID]string

// EventKind distinguishes the three per-stem lifecycle events the scan
// reports through onEvent.
type EventKind int

const (
	StemStarted EventKind = iota
	StemProgress
	StemFinished
)

// Event is one stem-lifecycle notification emitted during Scan.
type Event struct {
	Kind        EventKind
	Stem        types.StemID
	ElapsedSecs float64
	Profile     *types.StemProfile
	Err         error
}

// Scanner runs the offline, whole-file loudness and diagnostics pass.
type Scanner struct {
	pointsPerSecond int
	diagOpts        diagnostics.Options
}

// New validates pointsPerSecond (must be 1 or 2 per spec) and returns a
// Scanner using the default diagnostics tunables.
func New(pointsPerSecond int) (*Scanner, error) {
	if pointsPerSecond != 1 && pointsPerSecond != 2 {
		return nil, faults.ErrInvalidPointsPerSec
	}

	return &Scanner{pointsPerSecond: pointsPerSecond, diagOpts: diagnostics.DefaultOptions()}, nil
}

// Scan decodes every declared stem path to completion in its own worker,
// returning a per-stem profile. It fails fast: the first worker error
// cancels every other worker's context and Scan returns that error. Calls
// to onEvent are serialized, and a panicking worker is reported as
// ErrWorkerPanic.
func (s *Scanner) Scan(paths Paths, onEvent func(Event)) (map[types.StemID]*types.StemProfile, error) {
	if paths[types.StemDialogue] == "" {
		return nil, fmt.Errorf("%w: dialogue", faults.ErrMissingStemPath)
	}

	if onEvent != nil {
		deliver := onEvent

		var eventMu sync.Mutex

		onEvent = func(ev Event) {
			eventMu.Lock()
			defer eventMu.Unlock()

			deliver(ev)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  = make(map[types.StemID]*types.StemProfile, len(paths))
		firstErr error
	)

	for id, path := range paths {
		if path == "" {
			continue
		}

		wg.Add(1)

		go func(id types.StemID, path string) {
			defer wg.Done()

			profile, err := func() (profile *types.StemProfile, err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("%w: stem %s: %v", faults.ErrWorkerPanic, id, r)
					}
				}()

				return s.scanOne(ctx, id, path, onEvent)
			}()
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err

					cancel()
				}
				mu.Unlock()

				if onEvent != nil {
					onEvent(Event{Kind: StemFinished, Stem: id, Err: err})
				}

				return
			}

			mu.Lock()
			results[id] = profile
			mu.Unlock()
		}(id, path)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	return results, nil
}

// scanOne decodes path at its native rate (no resampling, since the scan
// runs independently of the realtime engine's target rate), metering and
// chunking at pointsPerSecond cadence, then runs the diagnostics bank over
// an independently re-read copy of the raw data chunk.
func (s *Scanner) scanOne(ctx context.Context, id types.StemID, path string, onEvent func(Event)) (*types.StemProfile, error) {
	log := slog.Default().With("stem", id.String(), "path", path)

	if onEvent != nil {
		onEvent(Event{Kind: StemStarted, Stem: id})
	}

	format, raw, err := wav.ReadDataChunk(path)
	if err != nil {
		return nil, err
	}

	dec, err := decode.Open(path, format.SampleRate)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	meter := loudness.NewMeter(format.SampleRate)

	chunkSize := format.SampleRate / s.pointsPerSecond
	if chunkSize <= 0 {
		chunkSize = format.SampleRate
	}

	captureStepSamples := float64(format.SampleRate) / float64(s.pointsPerSecond)

	var (
		decodedSamples    uint64
		lastProgress      float64
		nextCaptureSample float64
		momentarySeries   []float64
		shortTermSeries   []float64
	)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if err := dec.FillUntil(chunkSize); err != nil {
			return nil, err
		}

		chunk := dec.Pop(chunkSize)
		if len(chunk) == 0 {
			if dec.IsFinished() {
				break
			}

			continue
		}

		momentaryLUFS, shortTermLUFS := meter.AddSamples(chunk)
		decodedSamples += uint64(len(chunk))

		for float64(decodedSamples) >= nextCaptureSample {
			momentarySeries = append(momentarySeries, momentaryLUFS)
			shortTermSeries = append(shortTermSeries, shortTermLUFS)
			nextCaptureSample += captureStepSamples
		}

		elapsedSecs := float64(decodedSamples) / float64(format.SampleRate)
		if elapsedSecs-lastProgress >= progressIntervalSecs {
			lastProgress = elapsedSecs

			if onEvent != nil {
				onEvent(Event{Kind: StemProgress, Stem: id, ElapsedSecs: elapsedSecs})
			}
		}

		if dec.IsFinished() {
			break
		}
	}

	diagResult, err := diagnostics.Run(bytes.NewReader(raw), format, s.diagOpts)
	if err != nil {
		log.Warn("diagnostics pass failed", "error", err)

		diagResult = nil
	}

	profile := &types.StemProfile{
		IntegratedLUFS:  meter.Integrated(),
		LoudnessRange:   meter.LoudnessRange(),
		MomentarySeries: momentarySeries,
		ShortTermSeries: shortTermSeries,
		Diagnostics:     diagResult,
	}

	if onEvent != nil {
		onEvent(Event{Kind: StemFinished, Stem: id, Profile: profile, ElapsedSecs: float64(decodedSamples) / float64(format.SampleRate)})
	}

	return profile, nil
}
