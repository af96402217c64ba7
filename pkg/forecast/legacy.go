package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/cardia-ai/platform/pkg/common/httpclient"
)

const legacyModelName = "timesfm-legacy"

// RelativeSpread sizes the synthetic uncertainty band when a legacy engine
// returns fewer than three quantile channels.
var RelativeSpread = 0.05

// LegacyEngine adapts an older serving endpoint that has no compile stage and
// may return point-only forecasts. Downstream code can always index a
// [point, low, high] channel triple regardless of what the endpoint produced.
type LegacyEngine struct {
	baseURL string
	client  *http.Client
}

func NewLegacyEngine(baseURL string, client *http.Client) (*LegacyEngine, error) {
	err := httpclient.Retry(context.Background(), 3, 200*time.Millisecond, func() error {
		resp, err := client.Get(baseURL + "/health")
		if err != nil {
			if httpclient.IsRetriable(err) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: legacy health check returned %d", ErrEngineUnavailable, resp.StatusCode)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrEngineUnavailable) {
			err = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return nil, err
	}

	return &LegacyEngine{baseURL: baseURL, client: client}, nil
}

func (e *LegacyEngine) Name() string {
	return legacyModelName
}

// Candidates returns the single implicit configuration: the legacy API has no
// per-forecast compile step.
func (e *LegacyEngine) Candidates(contextLen int, inferPositive bool) []Config {
	return []Config{{Name: "legacy", MaxContext: contextLen, InferIsPositive: inferPositive}}
}

func (e *LegacyEngine) Compile(Config) error {
	return nil
}

func (e *LegacyEngine) Forecast(ctx context.Context, inputs [][]float64, horizon int) ([][]float64, [][][]float64, error) {
	freq := make([]int, len(inputs))

	payload := struct {
		Inputs [][]float64 `json:"inputs"`
		Freq   []int       `json:"freq"`
	}{Inputs: inputs, Freq: freq}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding legacy forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/forecast", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("legacy forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, nil, fmt.Errorf("legacy forecast returned %d: %s", resp.StatusCode, string(msg))
	}

	var result struct {
		PointForecast    [][]float64   `json:"point_forecast"`
		QuantileForecast [][][]float64 `json:"quantile_forecast"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil, fmt.Errorf("decoding legacy forecast response: %w", err)
	}

	point := truncateMatrix(result.PointForecast, horizon)
	quantiles := truncateTensor(result.QuantileForecast, horizon)
	quantiles = EnsureQuantileChannels(point, quantiles)
	if err := validateShape(len(inputs), horizon, point, quantiles); err != nil {
		return nil, nil, fmt.Errorf("legacy forecast response: %w", err)
	}
	return point, quantiles, nil
}

// EnsureQuantileChannels guarantees at least [point, low, high] channels per
// forecast step. Missing channels are synthesized with a symmetric spread of
// max(|point| * RelativeSpread, 1.0) around the point forecast.
func EnsureQuantileChannels(point [][]float64, quantiles [][][]float64) [][][]float64 {
	needSynthesis := len(quantiles) != len(point)
	if !needSynthesis {
		for _, series := range quantiles {
			for _, step := range series {
				if len(step) < 3 {
					needSynthesis = true
					break
				}
			}
		}
	}
	if !needSynthesis {
		return quantiles
	}

	out := make([][][]float64, len(point))
	for i, series := range point {
		out[i] = make([][]float64, len(series))
		for j, p := range series {
			spread := math.Max(math.Abs(p)*RelativeSpread, 1.0)
			out[i][j] = []float64{p, p - spread, p + spread}
		}
	}
	return out
}
