package signal

import (
	"errors"
	"math"
)

var (
	ErrEmptySeries    = errors.New("series is empty")
	ErrNoFiniteValues = errors.New("series has no finite values")
)

// Sanitize returns a copy of values with every non-finite sample replaced by
// linear interpolation between its nearest finite neighbours, using the sample
// index as the time axis. Positions before the first finite sample take the
// first finite value, positions after the last take the last.
func Sanitize(values []float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, ErrEmptySeries
	}

	out := make([]float64, len(values))
	copy(out, values)

	finiteIdx := finiteIndices(out)
	if len(finiteIdx) == 0 {
		return nil, ErrNoFiniteValues
	}
	if len(finiteIdx) == len(out) {
		return out, nil
	}

	interpolateGaps(out, finiteIdx)
	return out, nil
}

func finiteIndices(values []float64) []int {
	idx := make([]int, 0, len(values))
	for i, v := range values {
		if isFinite(v) {
			idx = append(idx, i)
		}
	}
	return idx
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// interpolateGaps fills non-finite positions in place. finiteIdx must be the
// sorted indices of finite samples and must be non-empty.
func interpolateGaps(values []float64, finiteIdx []int) {
	for i := range values {
		if isFinite(values[i]) {
			continue
		}
		values[i] = interpAt(i, values, finiteIdx)
	}
}

func interpAt(pos int, values []float64, finiteIdx []int) float64 {
	first := finiteIdx[0]
	last := finiteIdx[len(finiteIdx)-1]
	if pos <= first {
		return values[first]
	}
	if pos >= last {
		return values[last]
	}

	// Find the finite neighbours straddling pos.
	lo, hi := first, last
	for _, idx := range finiteIdx {
		if idx < pos {
			lo = idx
			continue
		}
		hi = idx
		break
	}

	frac := float64(pos-lo) / float64(hi-lo)
	return values[lo] + frac*(values[hi]-values[lo])
}
