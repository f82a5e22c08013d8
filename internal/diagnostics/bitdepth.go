package diagnostics

import "github.com/mikup/stemscope/internal/types"

const (
	genuineMask24 = 0xFF
	genuineMask32 = 0xFFFF
)

// DetectBitDepthAuthenticity checks whether a container's claimed bit
// depth is genuinely used by ORing every quantized sample together: a
// "24-bit" file that is really 16-bit padded up will have its lower 8
// bits always zero.
func DetectBitDepthAuthenticity(raw []byte, format types.PCMFormat) *types.BitDepthAuthenticity {
	if format.BitDepth == types.Depth16 {
		return &types.BitDepthAuthenticity{Claimed: format.BitDepth, Effective: format.BitDepth}
	}

	channels, _ := decodeQuantized(raw, format)

	var usedBits uint32

	var samples uint64

	for _, ch := range channels {
		for _, v := range ch {
			usedBits |= uint32(v)
			samples++
		}
	}

	effective := effectiveBitDepth(usedBits, format.BitDepth)

	return &types.BitDepthAuthenticity{
		Claimed:   format.BitDepth,
		Effective: effective,
		IsPadded:  effective < format.BitDepth,
		Samples:   samples,
	}
}

func effectiveBitDepth(usedBits uint32, claimed types.BitDepth) types.BitDepth {
	switch claimed {
	case types.Depth24:
		if usedBits&genuineMask24 == 0 {
			return types.Depth16
		}
	case types.Depth32:
		if usedBits&genuineMask32 == 0 {
			return types.Depth16
		}

		if usedBits&genuineMask24 == 0 {
			return types.Depth24
		}
	default:
	}

	return claimed
}
