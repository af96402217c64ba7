package signal

// BuildContextWindow reproduces the forecasting engine's own input
// preprocessing for a single series: leading non-finite samples are dropped,
// interior gaps are linearly interpolated, and the result is right-aligned
// into a window of exactly context samples. When the series is shorter than
// the window, the left side is zero-padded and the mask marks every padded
// position.
func BuildContextWindow(values []float64, context int) ([]float64, []bool) {
	cleaned := stripLeading(values)

	if finiteIdx := finiteIndices(cleaned); len(finiteIdx) > 0 && len(finiteIdx) < len(cleaned) {
		interpolateGaps(cleaned, finiteIdx)
	}

	window := make([]float64, context)
	mask := make([]bool, context)

	if len(cleaned) >= context {
		copy(window, cleaned[len(cleaned)-context:])
		return window, mask
	}

	pad := context - len(cleaned)
	copy(window[pad:], cleaned)
	for i := 0; i < pad; i++ {
		mask[i] = true
	}
	return window, mask
}

// stripLeading removes the leading run of non-finite samples. A series with no
// finite samples collapses to an empty slice.
func stripLeading(values []float64) []float64 {
	start := -1
	for i, v := range values {
		if isFinite(v) {
			start = i
			break
		}
	}
	if start < 0 {
		return []float64{}
	}
	out := make([]float64, len(values)-start)
	copy(out, values[start:])
	return out
}
