package signal

// PatchSize is the engine's minimum alignment granularity for context length.
const PatchSize = 32

const (
	MinContext = 32
	MaxContext = 1024
)

// ChooseContext picks a shared context length for a batch of series. A
// positive override is used verbatim. Otherwise the context is the largest
// multiple of the patch size that does not exceed the shortest series,
// clamped to [MinContext, MaxContext]. Keeping the context within the
// shortest series avoids all-masked leading patches on uneven-length batches.
func ChooseContext(inputs [][]float64, override int) int {
	if override > 0 {
		return override
	}

	minLen := 0
	for i, series := range inputs {
		if i == 0 || len(series) < minLen {
			minLen = len(series)
		}
	}

	context := (minLen / PatchSize) * PatchSize
	if context < MinContext {
		context = MinContext
	}
	if context > MaxContext {
		context = MaxContext
	}
	return context
}

// MinMaxLen reports the shortest and longest series length in a batch, for
// context-selection diagnostics.
func MinMaxLen(inputs [][]float64) (int, int) {
	var minLen, maxLen int
	for i, series := range inputs {
		if i == 0 || len(series) < minLen {
			minLen = len(series)
		}
		if len(series) > maxLen {
			maxLen = len(series)
		}
	}
	return minLen, maxLen
}
