package trend

import (
	"math"
	"sort"
)

// Empirical extrapolation constants. The trend/drift blend favours the
// long-run linear trend while damping overshoot from noisy recent deltas; the
// clamp keeps forecasts inside the historical envelope.
var (
	TrendWeight = 0.7
	DriftWeight = 0.3
	ClampMargin = 0.2
	SpanEpsilon = 1e-6
)

// Extrapolate projects a historical series horizon steps forward using an
// ordinary least-squares trend blended with a median-of-differences drift
// line anchored at the last observation.
func Extrapolate(values []float64, horizon int) []float64 {
	if horizon <= 0 {
		return []float64{}
	}
	if len(values) == 0 {
		return make([]float64, horizon)
	}

	last := values[len(values)-1]
	out := make([]float64, horizon)
	if len(values) == 1 {
		for i := range out {
			out[i] = last
		}
		return out
	}

	slope, intercept := leastSquares(values)

	diffs := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		diffs[i-1] = values[i] - values[i-1]
	}
	drift := median(diffs)

	vmin, vmax := values[0], values[0]
	for _, v := range values[1:] {
		if v < vmin {
			vmin = v
		}
		if v > vmax {
			vmax = v
		}
	}
	span := math.Max(vmax-vmin, SpanEpsilon)
	lower := vmin - ClampMargin*span
	upper := vmax + ClampMargin*span

	n := float64(len(values))
	for i := 0; i < horizon; i++ {
		trendValue := intercept + slope*(n+float64(i))
		driftValue := last + drift*float64(i+1)
		forecast := TrendWeight*trendValue + DriftWeight*driftValue

		if forecast < lower {
			forecast = lower
		} else if forecast > upper {
			forecast = upper
		}
		if math.IsNaN(forecast) || math.IsInf(forecast, 0) {
			forecast = last
		}
		out[i] = forecast
	}
	return out
}

func leastSquares(values []float64) (slope, intercept float64) {
	n := float64(len(values))
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
