package signal

import (
	"math"
	"testing"
)

func TestWindowPadsShortSignal(t *testing.T) {
	series := []float64{60, 62, 61, 65, 70, 72, 75, 74, 78, 80, 82, 85}
	window, mask := BuildContextWindow(series, 32)

	if len(window) != 32 || len(mask) != 32 {
		t.Fatalf("expected window and mask of length 32, got %d and %d", len(window), len(mask))
	}

	padded := 0
	for _, m := range mask {
		if m {
			padded++
		}
	}
	if padded != 32-len(series) {
		t.Fatalf("expected %d padded positions, got %d", 32-len(series), padded)
	}

	for i, v := range series {
		if window[32-len(series)+i] != v {
			t.Fatalf("tail mismatch at %d", i)
		}
	}
	for i := 0; i < padded; i++ {
		if window[i] != 0 {
			t.Fatalf("padding at %d should be zero, got %v", i, window[i])
		}
	}
}

func TestWindowTakesTailOfLongSignal(t *testing.T) {
	series := make([]float64, 40)
	for i := range series {
		series[i] = float64(i)
	}

	window, mask := BuildContextWindow(series, 32)
	if window[0] != 8 || window[31] != 39 {
		t.Fatalf("expected tail [8..39], got [%v..%v]", window[0], window[31])
	}
	for i, m := range mask {
		if m {
			t.Fatalf("mask at %d should be false for a long signal", i)
		}
	}
}

func TestWindowStripsLeadingGaps(t *testing.T) {
	series := []float64{math.NaN(), math.NaN(), 5, 6, 7}
	window, mask := BuildContextWindow(series, 8)

	padded := 0
	for _, m := range mask {
		if m {
			padded++
		}
	}
	if padded != 5 {
		t.Fatalf("expected 5 padded positions after stripping leading gaps, got %d", padded)
	}
	if window[5] != 5 || window[7] != 7 {
		t.Fatalf("unexpected window tail: %v", window[5:])
	}
}

func TestWindowInterpolatesInteriorGap(t *testing.T) {
	series := []float64{2, math.NaN(), 4}
	window, _ := BuildContextWindow(series, 3)
	if window[1] != 3 {
		t.Fatalf("expected interpolated 3, got %v", window[1])
	}
}

func TestChooseContextOverride(t *testing.T) {
	if got := ChooseContext([][]float64{make([]float64, 500)}, 64); got != 64 {
		t.Fatalf("expected override 64, got %d", got)
	}
}

func TestChooseContextBounds(t *testing.T) {
	cases := []struct {
		length int
		want   int
	}{
		{12, 32},
		{31, 32},
		{32, 32},
		{100, 96},
		{1024, 1024},
		{5000, 1024},
	}

	for _, tc := range cases {
		got := ChooseContext([][]float64{make([]float64, tc.length)}, 0)
		if got != tc.want {
			t.Fatalf("length %d: expected context %d, got %d", tc.length, tc.want, got)
		}
		if got%PatchSize != 0 {
			t.Fatalf("length %d: context %d is not a patch multiple", tc.length, got)
		}
	}
}

func TestChooseContextUsesShortestSeries(t *testing.T) {
	batch := [][]float64{make([]float64, 400), make([]float64, 70)}
	if got := ChooseContext(batch, 0); got != 64 {
		t.Fatalf("expected context 64 from shortest series, got %d", got)
	}
}
