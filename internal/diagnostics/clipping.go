package diagnostics

import (
	"github.com/mikup/stemscope/internal/types"
)

func clipMaxMin(depth types.BitDepth) (max, min int32) {
	switch depth {
	case types.Depth16:
		return 1<<15 - 1, -1 << 15
	case types.Depth24:
		return 1<<23 - 1, -1 << 23
	case types.Depth32:
		return 1<<31 - 1, -1 << 31
	default:
		return 0, 0
	}
}

// clippingScanner counts runs of >=2 consecutive samples pinned to the
// bit-depth's exact max/min value, per channel and in aggregate.
type clippingScanner struct {
	maxVal, minVal int32
	consecutive    []uint64
	result         types.ClippingDetection
}

func newClippingScanner(format types.PCMFormat) *clippingScanner {
	maxVal, minVal := clipMaxMin(format.BitDepth)

	return &clippingScanner{
		maxVal:      maxVal,
		minVal:      minVal,
		consecutive: make([]uint64, format.Channels),
		result:      types.ClippingDetection{Channels: make([]types.ChannelClipping, format.Channels)},
	}
}

func (c *clippingScanner) flushRun(ch int) {
	if c.consecutive[ch] < 2 {
		c.consecutive[ch] = 0

		return
	}

	run := c.consecutive[ch]

	c.result.Channels[ch].Events++
	c.result.Channels[ch].ClippedSamples += run

	if run > c.result.Channels[ch].LongestRun {
		c.result.Channels[ch].LongestRun = run
	}

	c.result.Events++
	c.result.ClippedSamples += run

	if run > c.result.LongestRun {
		c.result.LongestRun = run
	}

	c.consecutive[ch] = 0
}

func (c *clippingScanner) processQuantized(ch int, raw int32) {
	c.result.Samples++

	if raw == c.maxVal || raw == c.minVal {
		c.consecutive[ch]++

		return
	}

	c.flushRun(ch)
}

func (c *clippingScanner) finalize(bands Bands) *types.ClippingDetection {
	for ch := range c.consecutive {
		c.flushRun(ch)
	}

	c.result.Severity = bands.classify(float64(c.result.LongestRun))

	return &c.result
}

// DetectClipping decodes raw interleaved PCM and reports clipping events
// per channel and in aggregate. It must see the full-resolution quantized
// samples (not the normalized float downmix) to compare against exact
// max/min values.
func DetectClipping(raw []byte, format types.PCMFormat, bands Bands) *types.ClippingDetection {
	channels, _ := decodeQuantized(raw, format)
	scanner := newClippingScanner(format)

	if len(channels) == 0 {
		return scanner.finalize(bands)
	}

	n := len(channels[0])
	for i := range n {
		for ch := range channels {
			scanner.processQuantized(ch, channels[ch][i])
		}
	}

	return scanner.finalize(bands)
}
