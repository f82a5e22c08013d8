package diagnostics

import (
	"fmt"
	"io"

	"github.com/mikup/stemscope/internal/faults"
	"github.com/mikup/stemscope/internal/types"
)

// Run reads one stem's data chunk once and runs every check set in
// opts.Checks (each check decodes the bytes itself), aggregating the results behind a DiagnosticsResult. It runs
// only during the offline scan; the realtime path stays on the lighter
// per-frame analyzer bank.
func Run(r io.Reader, format types.PCMFormat, opts Options) (*types.DiagnosticsResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", faults.ErrReadFailure, err)
	}

	result := &types.DiagnosticsResult{}

	if opts.Checks&types.CheckClipping != 0 {
		result.Clipping = DetectClipping(data, format, opts.ClippingRunBands)
	}

	if opts.Checks&types.CheckDCOffset != 0 {
		result.DCOffset = DetectDCOffset(data, format, opts.DCOffsetDbBands)
	}

	if opts.Checks&types.CheckSilence != 0 {
		result.Silence = DetectSilence(data, format, opts, opts.SilenceTotalBands)
	}

	if opts.Checks&types.CheckTruncation != 0 {
		result.Truncation = DetectTruncation(data, format, opts, opts.TruncationSeverityBands)
	}

	if opts.Checks&types.CheckDropout != 0 {
		result.Dropout = DetectDropouts(data, format, opts, opts.DropoutEventBands)
	}

	if opts.Checks&types.CheckBitDepth != 0 {
		result.BitDepth = DetectBitDepthAuthenticity(data, format)
	}

	return result, nil
}
