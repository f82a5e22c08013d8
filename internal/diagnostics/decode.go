package diagnostics

import (
	"github.com/mikup/stemscope/internal/types"
	"github.com/mikup/stemscope/internal/wav"
)

func decodeQuantized(raw []byte, format types.PCMFormat) ([][]int32, int) {
	return wav.DecodeQuantized(raw, format)
}

func decodeNormalized(raw []byte, format types.PCMFormat) ([][]float64, int) {
	return wav.DecodeFrames(raw, format)
}
