package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/cardia-ai/platform/pkg/common/logger"
)

// Run drives the engine through its ordered candidate configurations and
// returns the first fully finite forecast together with the name of the
// configuration that produced it. The config order is fixed and each is
// attempted at most once; exhausting the list yields NonFiniteForecastError.
func Run(ctx context.Context, engine Engine, inputs [][]float64, horizon, contextLen int) ([][]float64, [][][]float64, string, error) {
	inferPositive := true
	for _, series := range inputs {
		for _, v := range series {
			if v < 0 {
				inferPositive = false
				break
			}
		}
	}

	candidates := engine.Candidates(contextLen, inferPositive)
	lastError := "unknown"

	for _, cfg := range candidates {
		logger.Log.WithFields(map[string]interface{}{
			"config":      cfg.Name,
			"max_context": cfg.MaxContext,
			"normalize":   cfg.NormalizeInputs,
		}).Debug("Compiling forecast configuration")

		if err := engine.Compile(cfg); err != nil {
			return nil, nil, "", fmt.Errorf("compiling %s config: %w", cfg.Name, err)
		}

		point, quantiles, err := engine.Forecast(ctx, inputs, horizon)
		if err != nil {
			return nil, nil, "", fmt.Errorf("forecasting with %s config: %w", cfg.Name, err)
		}

		if matrixFinite(point) && tensorFinite(quantiles) {
			return point, quantiles, cfg.Name, nil
		}

		lastError = fmt.Sprintf("%s config returned non-finite outputs", cfg.Name)
		logger.Log.WithField("config", cfg.Name).Warn(lastError + ", retrying with a more conservative config")
	}

	return nil, nil, "", &NonFiniteForecastError{LastFailure: lastError}
}

func matrixFinite(m [][]float64) bool {
	for _, row := range m {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func tensorFinite(t [][][]float64) bool {
	for _, m := range t {
		if !matrixFinite(m) {
			return false
		}
	}
	return true
}
