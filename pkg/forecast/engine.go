package forecast

import "context"

// Config is one compile-time configuration of the forecasting engine.
type Config struct {
	Name                      string `json:"name"`
	MaxContext                int    `json:"max_context"`
	MaxHorizon                int    `json:"max_horizon"`
	NormalizeInputs           bool   `json:"normalize_inputs"`
	UseContinuousQuantileHead bool   `json:"use_continuous_quantile_head"`
	ForceFlipInvariance       bool   `json:"force_flip_invariance"`
	InferIsPositive           bool   `json:"infer_is_positive"`
	FixQuantileCrossing       bool   `json:"fix_quantile_crossing"`
}

// Engine is the capability surface of a pretrained forecasting model. The two
// implementations (remote, legacy) are selected once at construction; callers
// never re-probe capabilities per request.
//
// Forecast returns a point matrix indexed [series][step] and a quantile
// tensor indexed [series][step][channel]. Every engine guarantees at least
// three quantile channels, with channel 1 the low band and the last channel
// the high band.
type Engine interface {
	Name() string

	// Candidates returns the ordered configurations the orchestrator should
	// attempt for the given context length. Engines without a configurable
	// compile stage return a single implicit configuration.
	Candidates(contextLen int, inferPositive bool) []Config

	Compile(cfg Config) error

	Forecast(ctx context.Context, inputs [][]float64, horizon int) ([][]float64, [][][]float64, error)
}
