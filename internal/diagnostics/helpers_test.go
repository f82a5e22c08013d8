package diagnostics

import (
	"encoding/binary"

	"github.com/mikup/stemscope/internal/types"
)

// encodeInt16Mono packs a slice of 16-bit sample values into raw
// little-endian mono PCM bytes.
func encodeInt16Mono(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s)) //nolint:gosec
	}

	return out
}

// encodeInt16Stereo interleaves two equal-length channels into raw
// little-endian 16-bit stereo PCM bytes.
func encodeInt16Stereo(left, right []int16) []byte {
	out := make([]byte, len(left)*4)

	for i := range left {
		binary.LittleEndian.PutUint16(out[i*4:], uint16(left[i]))    //nolint:gosec
		binary.LittleEndian.PutUint16(out[i*4+2:], uint16(right[i])) //nolint:gosec
	}

	return out
}

func monoFormat16(sampleRate int) types.PCMFormat {
	return types.PCMFormat{SampleRate: sampleRate, BitDepth: types.Depth16, Channels: 1}
}

func stereoFormat16(sampleRate int) types.PCMFormat {
	return types.PCMFormat{SampleRate: sampleRate, BitDepth: types.Depth16, Channels: 2}
}
