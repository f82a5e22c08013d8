package diagnostics

import (
	"math"

	"github.com/mikup/stemscope/internal/types"
)

// dropoutScanner tracks per-channel delta spikes, zero runs, and DC jumps
// over a decoded mono-per-channel stream. A delta spike counts as a dropout
// only when one side of the jump is near silence; a large jump between two
// audible levels is left alone (see isDeltaDropout). Each channel is judged
// on its own.
type dropoutScanner struct {
	opts       Options
	sampleRate float64

	dcWindowSize   int
	minZeroSamples int

	totalFrames uint64
	firstSample bool

	prevSample    []float64
	zeroStart     []int64
	zeroStartRms  []float64
	dcBuf         [][]float64
	dcPos         []int
	dcSum         []float64
	dcFilled      []int
	prevDC        []float64
	dcInitialized []bool
	sqBuf         [][]float64
	sqPos         []int
	sqSum         []float64
	sqFilled      []int

	result types.DropoutResult
}

func newDropoutScanner(format types.PCMFormat, opts Options) *dropoutScanner {
	sampleRate := float64(format.SampleRate)
	numChannels := int(format.Channels)

	dcWindowSize := max(int(sampleRate*opts.DropoutDCWindowMs/1000), 1)
	minZeroSamples := max(int(sampleRate*opts.DropoutZeroRunMinMs/1000), 1)

	s := &dropoutScanner{
		opts:           opts,
		sampleRate:     sampleRate,
		dcWindowSize:   dcWindowSize,
		minZeroSamples: minZeroSamples,
		firstSample:    true,
		prevSample:     make([]float64, numChannels),
		zeroStart:      make([]int64, numChannels),
		zeroStartRms:   make([]float64, numChannels),
		dcBuf:          make([][]float64, numChannels),
		dcPos:          make([]int, numChannels),
		dcSum:          make([]float64, numChannels),
		dcFilled:       make([]int, numChannels),
		prevDC:         make([]float64, numChannels),
		dcInitialized:  make([]bool, numChannels),
		sqBuf:          make([][]float64, numChannels),
		sqPos:          make([]int, numChannels),
		sqSum:          make([]float64, numChannels),
		sqFilled:       make([]int, numChannels),
	}

	for i := range s.zeroStart {
		s.zeroStart[i] = -1
	}

	for ch := range numChannels {
		s.dcBuf[ch] = make([]float64, dcWindowSize)
		s.sqBuf[ch] = make([]float64, dcWindowSize)
	}

	return s
}

func isDeltaDropout(prev, cur, nearZero float64) bool {
	return math.Abs(prev) < nearZero || math.Abs(cur) < nearZero
}

func rmsDb(sqSum float64, sqFilled int) float64 {
	if sqFilled == 0 {
		return -120
	}

	rms := math.Sqrt(sqSum / float64(sqFilled))
	if rms > 0 {
		return 20 * math.Log10(rms)
	}

	return -120
}

func (s *dropoutScanner) processSample(channel int, sample float64) {
	if !s.firstSample {
		delta := math.Abs(sample - s.prevSample[channel])
		if delta > s.opts.DropoutDeltaThreshold && isDeltaDropout(s.prevSample[channel], sample, s.opts.DropoutDeltaNearZero) {
			s.result.Events = append(s.result.Events, types.Event{
				Frame:    s.totalFrames,
				TimeSec:  float64(s.totalFrames) / s.sampleRate,
				Channel:  channel,
				Type:     types.EventDelta,
				Severity: delta,
			})
			s.result.DeltaCount++
		}

		if sample == 0 {
			if s.zeroStart[channel] < 0 {
				s.zeroStart[channel] = int64(s.totalFrames) //nolint:gosec
				s.zeroStartRms[channel] = rmsDb(s.sqSum[channel], s.sqFilled[channel])
			}
		} else if s.zeroStart[channel] >= 0 {
			s.closeZeroRun(channel, s.totalFrames)
		}
	}

	old := s.dcBuf[channel][s.dcPos[channel]]
	s.dcBuf[channel][s.dcPos[channel]] = sample
	s.dcSum[channel] = s.dcSum[channel] - old + sample
	s.dcPos[channel] = (s.dcPos[channel] + 1) % s.dcWindowSize

	if s.dcFilled[channel] < s.dcWindowSize {
		s.dcFilled[channel]++
	}

	if s.dcFilled[channel] == s.dcWindowSize {
		currentDC := s.dcSum[channel] / float64(s.dcWindowSize)
		if s.dcInitialized[channel] {
			dcDelta := math.Abs(currentDC - s.prevDC[channel])
			if dcDelta > s.opts.DropoutDCJumpThreshold {
				s.result.Events = append(s.result.Events, types.Event{
					Frame:    s.totalFrames,
					TimeSec:  float64(s.totalFrames) / s.sampleRate,
					Channel:  channel,
					Type:     types.EventDCJump,
					Severity: dcDelta,
				})
				s.result.DCJumpCount++
			}
		}

		s.prevDC[channel] = currentDC
		s.dcInitialized[channel] = true
	}

	oldSq := s.sqBuf[channel][s.sqPos[channel]]
	sq := sample * sample
	s.sqBuf[channel][s.sqPos[channel]] = sq
	s.sqSum[channel] = s.sqSum[channel] - oldSq + sq
	s.sqPos[channel] = (s.sqPos[channel] + 1) % s.dcWindowSize

	if s.sqFilled[channel] < s.dcWindowSize {
		s.sqFilled[channel]++
	}

	s.prevSample[channel] = sample
}

func (s *dropoutScanner) closeZeroRun(channel int, end uint64) {
	runLength := int64(end) - s.zeroStart[channel] //nolint:gosec
	if runLength >= int64(s.minZeroSamples) && s.zeroStartRms[channel] >= s.opts.DropoutZeroRunQuietDb {
		durationMs := float64(runLength) / s.sampleRate * 1000
		s.result.Events = append(s.result.Events, types.Event{
			Frame:      uint64(s.zeroStart[channel]), //nolint:gosec
			TimeSec:    float64(s.zeroStart[channel]) / s.sampleRate,
			Channel:    channel,
			Type:       types.EventZeroRun,
			Severity:   float64(runLength) / s.sampleRate,
			DurationMs: durationMs,
		})
		s.result.ZeroRunCount++
	}

	s.zeroStart[channel] = -1
}

func (s *dropoutScanner) endFrame() {
	s.totalFrames++
	s.firstSample = false
}

func (s *dropoutScanner) finalize(bands Bands) *types.DropoutResult {
	for channel := range s.zeroStart {
		if s.zeroStart[channel] >= 0 {
			s.closeZeroRun(channel, s.totalFrames)
		}
	}

	var worst float64

	for _, e := range s.result.Events {
		if e.Type == types.EventDelta || e.Type == types.EventDCJump {
			if e.Severity > worst {
				worst = e.Severity
			}
		}
	}

	if worst > 0 {
		s.result.WorstDb = 20 * math.Log10(worst)
	} else {
		s.result.WorstDb = -120
	}

	s.result.Frames = s.totalFrames
	s.result.Severity = bands.classify(float64(len(s.result.Events)))

	return &s.result
}

// DetectDropouts decodes normalized PCM and reports delta spikes, stuck
// zero runs, and DC jumps.
func DetectDropouts(raw []byte, format types.PCMFormat, opts Options, bands Bands) *types.DropoutResult {
	channels, _ := decodeNormalized(raw, format)
	scanner := newDropoutScanner(format, opts)

	if len(channels) == 0 {
		return scanner.finalize(bands)
	}

	n := len(channels[0])
	for i := range n {
		for ch := range channels {
			scanner.processSample(ch, channels[ch][i])
		}

		scanner.endFrame()
	}

	return scanner.finalize(bands)
}
