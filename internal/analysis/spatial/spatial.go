// Package spatial computes inter-stem phase correlation and the mid/side
// vectorscope projection between dialogue and composite background,
// grounded on original_source's dsp/spatial.rs two-mean Pearson form.
package spatial

import (
	"math"

	"github.com/mikup/stemscope/internal/types"
)

const (
	sqrtHalf = 0.70710678118654752
	epsilon  = 1e-12
)

// Correlation returns the Pearson correlation coefficient between two
// equal-length signals using the single-pass two-mean form, clamped to
// [-1, 1]. Zero variance on either side (near-silent or DC) returns 0.
func Correlation(dialogue, background []float64) float64 {
	n := len(dialogue)
	if n == 0 || n != len(background) {
		return 0
	}

	var sumL, sumR float64

	for i := range n {
		sumL += dialogue[i]
		sumR += background[i]
	}

	meanL := sumL / float64(n)
	meanR := sumR / float64(n)

	var covariance, varianceL, varianceR float64

	for i := range n {
		dl := dialogue[i] - meanL
		dr := background[i] - meanR
		covariance += dl * dr
		varianceL += dl * dl
		varianceR += dr * dr
	}

	denom := math.Sqrt(varianceL * varianceR)
	if denom <= epsilon {
		return 0
	}

	corr := covariance / denom

	switch {
	case corr > 1:
		return 1
	case corr < -1:
		return -1
	default:
		return corr
	}
}

// Vectorscope projects each (dialogue, background) sample pair into mid/side
// coordinates: x = (l - r)/sqrt(2), y = (l + r)/sqrt(2). The result has the
// same length as the input; subsampling for presentation is the caller's
// concern.
func Vectorscope(dialogue, background []float64) []types.VectorscopePoint {
	n := min(len(dialogue), len(background))
	points := make([]types.VectorscopePoint, n)

	for i := range n {
		l, r := dialogue[i], background[i]
		points[i] = types.VectorscopePoint{
			X: (l - r) * sqrtHalf,
			Y: (l + r) * sqrtHalf,
		}
	}

	return points
}

// Subsample strides points down to at most cap entries, matching the
// orchestrator's per-event lissajous point budget.
func Subsample(points []types.VectorscopePoint, cap int) []types.VectorscopePoint {
	if cap <= 0 || len(points) <= cap {
		return points
	}

	stride := max((len(points)+cap-1)/cap, 1)

	out := make([]types.VectorscopePoint, 0, cap+1)

	for i := 0; i < len(points); i += stride {
		out = append(out, points[i])
	}

	return out
}
