package forecast

import "math"

// Empirical confidence constants. Wider uncertainty bands relative to the
// historical volatility of the input lower the score; the clamp keeps it in a
// stable never-zero/never-one reporting range.
var (
	SpreadScaleStd = 3.0
	MinConfidence  = 0.05
	MaxConfidence  = 0.99
)

// Confidence converts a low/high quantile pair and the sanitized input signal
// into a bounded confidence score.
func Confidence(low, high, signal []float64) float64 {
	var spread float64
	for i := range high {
		spread += high[i] - low[i]
	}
	if len(high) > 0 {
		spread /= float64(len(high))
	}

	scale := math.Max(std(signal)*SpreadScaleStd, 1.0)
	confidence := 1.0 - spread/scale

	if confidence < MinConfidence {
		return MinConfidence
	}
	if confidence > MaxConfidence {
		return MaxConfidence
	}
	return confidence
}

// std is the population standard deviation.
func std(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
