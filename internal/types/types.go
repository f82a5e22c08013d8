// Package types holds the domain value types shared across the decode,
// synchronization, analysis, diagnostics, and scanning packages.
package types

import "fmt"

// BitDepth is a PCM sample width in bits.
type BitDepth uint

const (
	Depth16 BitDepth = 16
	Depth24 BitDepth = 24
	Depth32 BitDepth = 32
)

// PCMFormat describes the format of a decoded PCM stream.
type PCMFormat struct {
	SampleRate int
	BitDepth   BitDepth
	Channels   uint
}

// StemID is one of the closed set of canonical stem roles.
type StemID int

const (
	StemDialogue StemID = iota
	StemMusic
	StemEffects
	StemFoley
	StemAmbience
)

// CanonicalStemIDs is the full stem set the synchronizer and the offline
// scanner both resolve against.
var CanonicalStemIDs = []StemID{StemDialogue, StemMusic, StemEffects, StemFoley, StemAmbience}

func (s StemID) String() string {
	switch s {
	case StemDialogue:
		return "dialogue"
	case StemMusic:
		return "music"
	case StemEffects:
		return "effects"
	case StemFoley:
		return "foley"
	case StemAmbience:
		return "ambience"
	default:
		return "unknown"
	}
}

// ParseStemID resolves a case-insensitive canonical name or alias to a
// StemID. It does not itself report an error; callers use the ok result.
func ParseStemID(label string) (StemID, bool) {
	switch normalizeLabel(label) {
	case "dialogue", "dx":
		return StemDialogue, true
	case "music":
		return StemMusic, true
	case "effects", "fx", "sfx":
		return StemEffects, true
	case "foley", "fol":
		return StemFoley, true
	case "ambience", "amb":
		return StemAmbience, true
	default:
		return 0, false
	}
}

func normalizeLabel(label string) string {
	out := make([]byte, 0, len(label))

	for i := range len(label) {
		c := label[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}

		if c != ' ' && c != '_' && c != '-' {
			out = append(out, c)
		}
	}

	return string(out)
}

// StemState is one stem's solo/mute control flags.
type StemState struct {
	Solo  bool
	Muted bool
}

// StemStates is a stem-id keyed set of control flags.
type StemStates map[StemID]StemState

// StemRuntimeGains tracks the currently-applied (ramping) gain per stem.
type StemRuntimeGains map[StemID]float64

// StemTargetGains is the desired gain per stem for the current frame,
// derived from StemStates by the solo-overrides-mute rule.
type StemTargetGains map[StemID]float64

// TargetGainsFromStates implements "solo overrides mute": if any stem is
// solo, every non-solo stem's target is 0 and every solo stem's target is 1;
// otherwise muted stems are 0 and all others are 1.
func TargetGainsFromStates(states StemStates, stems []StemID) StemTargetGains {
	targets := make(StemTargetGains, len(stems))

	anySolo := false

	for _, id := range stems {
		if states[id].Solo {
			anySolo = true

			break
		}
	}

	for _, id := range stems {
		state := states[id]

		switch {
		case anySolo:
			if state.Solo {
				targets[id] = 1
			} else {
				targets[id] = 0
			}
		case state.Muted:
			targets[id] = 0
		default:
			targets[id] = 1
		}
	}

	return targets
}

// SyncedFrame is one fixed-size, sample-aligned analysis window produced by
// the Multi-Stem Synchronizer.
type SyncedFrame struct {
	SampleRate        int
	FrameIndex        uint64
	Dialogue          []float64
	Background        []float64
	PerStem           map[StemID][]float64
	StemFlags         StemStates
	AlignmentMismatch bool
}

// StemProfile is the result of an offline loudness scan of one stem.
type StemProfile struct {
	IntegratedLUFS  float64
	LoudnessRange   float64
	MomentarySeries []float64
	ShortTermSeries []float64
	Diagnostics     *DiagnosticsResult
}

// VectorscopePoint is one mid/side projected sample pair.
type VectorscopePoint struct {
	X, Y float64
}

// LoudnessReading is one frame's worth of loudness-analyzer output for a
// single stem.
type LoudnessReading struct {
	MomentaryLUFS  float64
	ShortTermLUFS  float64
	TruePeakDbTP   float64
	CrestFactor    float64
}

// SpectralReading is one frame's worth of spectral-analyzer output for a
// single stem.
type SpectralReading struct {
	CentroidHz   float64
	SpeechEnergy float64
}

// FrameEvent is the per-frame metric bundle the orchestrator emits.
type FrameEvent struct {
	FrameIndex         uint64
	TimestampSecs      float64
	Loudness           map[StemID]LoudnessReading
	PhaseCorrelation   float64
	Vectorscope        []VectorscopePoint
	Spectral           map[StemID]SpectralReading
	SpeechPocketMasked bool
	SNRDb              float64
}

// CompleteEvent is emitted once at the natural end of a stream.
type CompleteEvent struct {
	TotalFrames     uint64
	IntegratedLUFS  map[StemID]float64
	LoudnessRange   map[StemID]float64
}

func (f PCMFormat) String() string {
	return fmt.Sprintf("%dHz/%dbit/%dch", f.SampleRate, f.BitDepth, f.Channels)
}

// Severity is the diagnostics bank's coarse call on how bad a detected
// issue is, derived from a detector's own Bands thresholds.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMild
	SeverityModerate
	SeveritySevere
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityMild:
		return "mild"
	case SeverityModerate:
		return "moderate"
	case SeveritySevere:
		return "severe"
	default:
		return "unknown"
	}
}

// Check is a bitmask selecting which diagnostics detectors to run.
type Check uint

const (
	CheckClipping Check = 1 << iota
	CheckDCOffset
	CheckSilence
	CheckTruncation
	CheckDropout
	CheckBitDepth
	CheckAll = CheckClipping | CheckDCOffset | CheckSilence | CheckTruncation | CheckDropout | CheckBitDepth
)

// ChannelClipping is one channel's clipping tally.
type ChannelClipping struct {
	Events         uint64
	ClippedSamples uint64
	LongestRun     uint64
}

// ClippingDetection aggregates clipping across channels.
type ClippingDetection struct {
	Channels       []ChannelClipping
	Events         uint64
	ClippedSamples uint64
	LongestRun     uint64
	Samples        uint64
	Severity       Severity
}

// DCOffsetResult is the per-channel and aggregate DC offset.
type DCOffsetResult struct {
	Offset   float64
	OffsetDb float64
	Channels []float64
	Samples  uint64
	Severity Severity
}

// SilenceSegment is one detected run of sustained low-RMS audio.
type SilenceSegment struct {
	StartSample uint64
	EndSample   uint64
	StartSec    float64
	EndSec      float64
	DurationSec float64
	RmsDb       float64
}

// SilenceResult aggregates every silence segment found in a stem.
type SilenceResult struct {
	Segments      []SilenceSegment
	TotalSilence  float64
	LeadingSec    float64
	TrailingSec   float64
	TotalDuration float64
	Frames        uint64
	Severity      Severity
}

// TruncationDetection reports the level of the final window of audio.
type TruncationDetection struct {
	IsTruncated   bool
	FinalRmsDb    float64
	FinalPeakDb   float64
	SamplesInTail uint64
	Severity      Severity
}

// EventType distinguishes the three kinds of dropout event.
type EventType int

const (
	EventDelta EventType = iota
	EventZeroRun
	EventDCJump
)

func (e EventType) String() string {
	switch e {
	case EventDelta:
		return "delta"
	case EventZeroRun:
		return "zero_run"
	case EventDCJump:
		return "dc_jump"
	default:
		return "unknown"
	}
}

// Event is one detected dropout occurrence.
type Event struct {
	Frame      uint64
	TimeSec    float64
	Channel    int
	Type       EventType
	Severity   float64
	DurationMs float64
}

// DropoutResult aggregates every dropout event found in a stem.
type DropoutResult struct {
	Events       []Event
	DeltaCount   uint64
	ZeroRunCount uint64
	DCJumpCount  uint64
	WorstDb      float64
	Frames       uint64
	Severity     Severity
}

// BitDepthAuthenticity reports whether a container's claimed bit depth is
// genuinely used or the file is zero-padded up from a lower depth.
type BitDepthAuthenticity struct {
	Claimed   BitDepth
	Effective BitDepth
	IsPadded  bool
	Samples   uint64
}

// DiagnosticsResult bundles every supplemental per-stem QC check the
// offline scan runs alongside loudness.
type DiagnosticsResult struct {
	Clipping   *ClippingDetection
	DCOffset   *DCOffsetResult
	Silence    *SilenceResult
	Truncation *TruncationDetection
	Dropout    *DropoutResult
	BitDepth   *BitDepthAuthenticity
}

// WorstSeverity returns the highest Severity across every check that ran.
func (d *DiagnosticsResult) WorstSeverity() Severity {
	worst := SeverityNone

	consider := func(s Severity) {
		if s > worst {
			worst = s
		}
	}

	if d.Clipping != nil {
		consider(d.Clipping.Severity)
	}

	if d.DCOffset != nil {
		consider(d.DCOffset.Severity)
	}

	if d.Silence != nil {
		consider(d.Silence.Severity)
	}

	if d.Truncation != nil {
		consider(d.Truncation.Severity)
	}

	if d.Dropout != nil {
		consider(d.Dropout.Severity)
	}

	return worst
}
