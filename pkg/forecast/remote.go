package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cardia-ai/platform/pkg/common/httpclient"
	"github.com/cardia-ai/platform/pkg/signal"
)

const defaultModelName = "timesfm-2.5-200m"

// RemoteEngine talks to a TimesFM-style model serving endpoint that exposes a
// configurable compile stage.
type RemoteEngine struct {
	baseURL string
	client  *http.Client
	name    string

	mu       sync.Mutex
	compiled *Config
}

// NewRemoteEngine performs a model handshake against the serving endpoint and
// returns a handle bound to the reported model identifier. Transient network
// failures during the handshake are retried.
func NewRemoteEngine(baseURL string, client *http.Client) (*RemoteEngine, error) {
	engine := &RemoteEngine{
		baseURL: baseURL,
		client:  client,
		name:    defaultModelName,
	}

	err := httpclient.Retry(context.Background(), 3, 200*time.Millisecond, func() error {
		resp, err := client.Get(baseURL + "/v1/model")
		if err != nil {
			if httpclient.IsRetriable(err) {
				return err
			}
			return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: model handshake returned %d", ErrEngineUnavailable, resp.StatusCode)
		}

		var handshake struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&handshake); err == nil && handshake.Model != "" {
			engine.name = handshake.Model
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrEngineUnavailable) {
			err = fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return nil, err
	}

	return engine, nil
}

func (e *RemoteEngine) Name() string {
	return e.name
}

func (e *RemoteEngine) Candidates(contextLen int, inferPositive bool) []Config {
	return []Config{
		{
			Name:                      "primary",
			MaxContext:                contextLen,
			MaxHorizon:                256,
			NormalizeInputs:           true,
			UseContinuousQuantileHead: false,
			ForceFlipInvariance:       false,
			InferIsPositive:           inferPositive,
			FixQuantileCrossing:       true,
		},
		{
			Name:                      "fallback",
			MaxContext:                contextLen,
			MaxHorizon:                256,
			NormalizeInputs:           false,
			UseContinuousQuantileHead: false,
			ForceFlipInvariance:       false,
			InferIsPositive:           inferPositive,
			FixQuantileCrossing:       false,
		},
	}
}

func (e *RemoteEngine) Compile(cfg Config) error {
	body, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	resp, err := e.client.Post(e.baseURL+"/v1/compile", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("compile request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("compile returned %d: %s", resp.StatusCode, string(msg))
	}

	e.mu.Lock()
	e.compiled = &cfg
	e.mu.Unlock()
	return nil
}

func (e *RemoteEngine) Forecast(ctx context.Context, inputs [][]float64, horizon int) ([][]float64, [][][]float64, error) {
	e.mu.Lock()
	compiled := e.compiled
	e.mu.Unlock()

	// Pre-window the batch to the compiled context so every series arrives
	// right-aligned with an explicit padding mask.
	windows := inputs
	var masks [][]bool
	if compiled != nil && compiled.MaxContext > 0 {
		windows = make([][]float64, len(inputs))
		masks = make([][]bool, len(inputs))
		for i, series := range inputs {
			windows[i], masks[i] = signal.BuildContextWindow(series, compiled.MaxContext)
		}
	}

	payload := struct {
		Inputs  [][]float64 `json:"inputs"`
		Masks   [][]bool    `json:"masks,omitempty"`
		Horizon int         `json:"horizon"`
	}{Inputs: windows, Masks: masks, Horizon: horizon}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/forecast", bytes.NewReader(body))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, nil, fmt.Errorf("forecast returned %d: %s", resp.StatusCode, string(msg))
	}

	var result struct {
		Point     [][]float64   `json:"point"`
		Quantiles [][][]float64 `json:"quantiles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, nil, fmt.Errorf("decoding forecast response: %w", err)
	}

	point := truncateMatrix(result.Point, horizon)
	quantiles := truncateTensor(result.Quantiles, horizon)
	if err := validateShape(len(inputs), horizon, point, quantiles); err != nil {
		return nil, nil, fmt.Errorf("forecast response: %w", err)
	}
	return point, quantiles, nil
}

// validateShape enforces the Engine contract on a decoded serving response:
// one row per input series, horizon steps per row, at least three quantile
// channels per step.
func validateShape(series, horizon int, point [][]float64, quantiles [][][]float64) error {
	if len(point) != series || len(quantiles) != series {
		return fmt.Errorf("got %d point and %d quantile series, expected %d", len(point), len(quantiles), series)
	}
	for i := range point {
		if len(point[i]) != horizon || len(quantiles[i]) != horizon {
			return fmt.Errorf("series %d has %d point and %d quantile steps, expected %d", i, len(point[i]), len(quantiles[i]), horizon)
		}
		for j, channels := range quantiles[i] {
			if len(channels) < 3 {
				return fmt.Errorf("series %d step %d has %d quantile channels, expected at least 3", i, j, len(channels))
			}
		}
	}
	return nil
}

func truncateMatrix(m [][]float64, horizon int) [][]float64 {
	for i, row := range m {
		if len(row) > horizon {
			m[i] = row[:horizon]
		}
	}
	return m
}

func truncateTensor(t [][][]float64, horizon int) [][][]float64 {
	for i, m := range t {
		if len(m) > horizon {
			t[i] = m[:horizon]
		}
	}
	return t
}
