// Package orchestrator implements the Streaming Orchestrator: a dedicated
// worker goroutine per stream that reads synced frames, runs the
// realtime analyzer bank, mixes and plays audio, and emits throttled
// frame/complete/warning/error events to a sink, grounded on the
// generation-counter cancellation idiom used throughout the example pack
// for race-free worker teardown (san-kum-dynsim's context.Context workers
// adapted here to a plain generation counter since the orchestrator has
// no natural context.Context boundary -- its lifetime is controlled by
// start_stream/stop_stream, not a caller-supplied context).
package orchestrator

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/mikup/stemscope/internal/analysis/loudness"
	"github.com/mikup/stemscope/internal/analysis/spatial"
	"github.com/mikup/stemscope/internal/analysis/spectral"
	"github.com/mikup/stemscope/internal/config"
	"github.com/mikup/stemscope/internal/faults"
	"github.com/mikup/stemscope/internal/output"
	"github.com/mikup/stemscope/internal/streamsync"
	"github.com/mikup/stemscope/internal/types"
)

// EventKind distinguishes the event surface the orchestrator emits.
type EventKind int

const (
	EventFrame EventKind = iota
	EventComplete
	EventError
	EventWarning
)

// Event is the single envelope type pushed to a stream's sink.
type Event struct {
	Kind     EventKind
	Frame    *types.FrameEvent
	Complete *types.CompleteEvent
	Err      error
	Warning  string
}

// Sink receives every event a stream produces, in order, from the
// orchestrator's dedicated worker goroutine.
type Sink func(Event)

// Orchestrator owns the current stream generation and the declared stem
// set it validates set_stem_state calls against.
type Orchestrator struct {
	cfg   *config.EngineConfig
	stems []types.StemID

	generation uint64
	states     *streamsync.StateMap
}

// New returns an Orchestrator for the given engine configuration and
// declared stem set (dialogue plus whichever background stems the
// caller intends to ever pass to start_stream).
func New(cfg *config.EngineConfig, stems []types.StemID) *Orchestrator {
	return &Orchestrator{cfg: cfg, stems: stems, states: streamsync.NewStateMap(stems)}
}

// SetStemState validates stemID against the declared stem set, then
// updates the shared solo/mute flags the running worker reads every
// frame.
func (o *Orchestrator) SetStemState(stemID types.StemID, solo, muted bool) error {
	found := false

	for _, id := range o.stems {
		if id == stemID {
			found = true

			break
		}
	}

	if !found {
		return fmt.Errorf("%w: %s", faults.ErrUnknownStem, stemID)
	}

	o.states.Set(stemID, types.StemState{Solo: solo, Muted: muted})

	return nil
}

// StopStream increments the generation counter; the running worker
// observes the mismatch on its next loop iteration and exits cleanly
// without emitting complete.
func (o *Orchestrator) StopStream() {
	atomic.AddUint64(&o.generation, 1)
}

// StartStream opens the synchronizer and output player, then launches the
// dedicated worker goroutine. The caller does not block; events arrive on
// sink.
func (o *Orchestrator) StartStream(paths streamsync.Paths, startTime float64, sink Sink) error {
	if startTime < 0 || math.IsNaN(startTime) || math.IsInf(startTime, 0) {
		return faults.ErrInvalidSeekTime
	}

	gen := atomic.AddUint64(&o.generation, 1)

	synchronizer, err := streamsync.New(paths, o.cfg.TargetSampleRate, o.cfg.FrameSize, config.FadeDurationSecs, o.states)
	if err != nil {
		return err
	}

	if startTime > 0 {
		if err := synchronizer.Seek(startTime); err != nil {
			synchronizer.Close()

			return err
		}
	}

	player, playerErr := output.Open(o.cfg.TargetSampleRate, o.cfg.TargetSampleRate, o.cfg.BufferSeconds)
	if playerErr != nil {
		slog.Warn("output device unavailable, monitoring disabled", "error", playerErr)
	}

	go o.run(gen, synchronizer, player, sink)

	return nil
}

func (o *Orchestrator) run(gen uint64, synchronizer *streamsync.Synchronizer, player *output.Player, sink Sink) {
	defer synchronizer.Close()

	if player != nil {
		defer player.Close()
	}

	loudnessMeters := make(map[types.StemID]*loudness.Meter, len(o.stems))
	for _, id := range o.stems {
		loudnessMeters[id] = loudness.NewMeter(o.cfg.TargetSampleRate)
	}

	spectralAnalyzer := spectral.NewAnalyzer(o.cfg.FrameSize)

	var lastEmit time.Time

	alignmentWarned := false
	naturalEOF := false

	var lastFrameIndex uint64

	streamStart := time.Now()
	frameDuration := time.Duration(float64(o.cfg.FrameSize) / float64(o.cfg.TargetSampleRate) * float64(time.Second))

	var framesRead int64

	for atomic.LoadUint64(&o.generation) == gen {
		frame, ok, err := synchronizer.ReadFrame()
		if err != nil {
			slog.Error("stream worker fatal error", "error", err)
			sink(Event{Kind: EventError, Err: err})

			return
		}

		if !ok {
			naturalEOF = true

			break
		}

		// Pace frames to wall-clock media time so the output ring is fed at
		// playback speed.
		if ahead := time.Duration(framesRead)*frameDuration - time.Since(streamStart); ahead > 0 {
			time.Sleep(ahead)
		}

		framesRead++

		if frame.AlignmentMismatch && !alignmentWarned {
			alignmentWarned = true
			sink(Event{Kind: EventWarning, Warning: "stem alignment mismatch: stems padded to stay frame-synchronized"})
		}

		lastFrameIndex = frame.FrameIndex
		event := o.analyzeFrame(frame, loudnessMeters, spectralAnalyzer)

		mixed := mixClamped(frame.Dialogue, frame.Background)
		if player != nil {
			player.PushNonblocking(mixed)
		}

		now := time.Now()
		if lastEmit.IsZero() || now.Sub(lastEmit) >= time.Duration(config.MinEmitIntervalSecs*float64(time.Second)) {
			lastEmit = now
			sink(Event{Kind: EventFrame, Frame: event})
		}
	}

	if player != nil {
		player.MarkProducerFinished()
	}

	if naturalEOF {
		sink(Event{Kind: EventComplete, Complete: o.completeEvent(loudnessMeters, lastFrameIndex)})
	}
}

func (o *Orchestrator) analyzeFrame(frame *types.SyncedFrame, meters map[types.StemID]*loudness.Meter, spec *spectral.Analyzer) *types.FrameEvent {
	loudnessOut := make(map[types.StemID]types.LoudnessReading, len(frame.PerStem))
	spectralOut := make(map[types.StemID]types.SpectralReading, len(frame.PerStem))
	spectralReadings := make(map[types.StemID]spectral.Reading, len(frame.PerStem))

	for id, samples := range frame.PerStem {
		meter, ok := meters[id]
		if !ok {
			meter = loudness.NewMeter(frame.SampleRate)
			meters[id] = meter
		}

		momentary, shortTerm := meter.AddSamples(samples)

		loudnessOut[id] = types.LoudnessReading{
			MomentaryLUFS: momentary,
			ShortTermLUFS: shortTerm,
			TruePeakDbTP:  loudness.TruePeakDbTP(samples),
			CrestFactor:   loudness.CrestFactor(samples),
		}

		reading := spec.Analyze(samples, frame.SampleRate)
		spectralReadings[id] = reading
		spectralOut[id] = spectral.ToTypesReading(reading)
	}

	correlation := spatial.Correlation(frame.Dialogue, frame.Background)
	vectorscope := spatial.Subsample(spatial.Vectorscope(frame.Dialogue, frame.Background), config.LissajousCap)

	dialogueReading := spectralReadings[types.StemDialogue]
	backgroundReading := spectral.Reading{}

	for id, reading := range spectralReadings {
		if id == types.StemDialogue {
			continue
		}

		backgroundReading.SpeechEnergy += reading.SpeechEnergy
	}

	snr := spectral.SNRDb(spectral.MeanSquare(frame.Dialogue), spectral.MeanSquare(frame.Background))

	return &types.FrameEvent{
		FrameIndex:         frame.FrameIndex,
		TimestampSecs:      float64(frame.FrameIndex) * float64(o.cfg.FrameSize) / float64(frame.SampleRate),
		Loudness:           loudnessOut,
		PhaseCorrelation:   correlation,
		Vectorscope:        vectorscope,
		Spectral:           spectralOut,
		SpeechPocketMasked: spectral.SpeechPocketMasked(dialogueReading, backgroundReading),
		SNRDb:              snr,
	}
}

func (o *Orchestrator) completeEvent(meters map[types.StemID]*loudness.Meter, totalFrames uint64) *types.CompleteEvent {
	integrated := make(map[types.StemID]float64, len(meters))
	lra := make(map[types.StemID]float64, len(meters))

	for id, meter := range meters {
		integrated[id] = meter.Integrated()
		lra[id] = meter.LoudnessRange()
	}

	return &types.CompleteEvent{TotalFrames: totalFrames, IntegratedLUFS: integrated, LoudnessRange: lra}
}

// mixClamped sums dialogue and background sample-wise, clamping each
// result to [-1, 1].
func mixClamped(dialogue, background []float64) []float64 {
	n := max(len(dialogue), len(background))
	out := make([]float64, n)

	for i := range n {
		var v float64
		if i < len(dialogue) {
			v += dialogue[i]
		}

		if i < len(background) {
			v += background[i]
		}

		switch {
		case v > 1:
			v = 1
		case v < -1:
			v = -1
		}

		out[i] = v
	}

	return out
}
