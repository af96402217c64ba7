package forecast

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestEnsureQuantileChannelsSynthesizes(t *testing.T) {
	point := [][]float64{{100, -40, 0.5}}

	quantiles := EnsureQuantileChannels(point, nil)
	if len(quantiles) != 1 || len(quantiles[0]) != 3 {
		t.Fatalf("unexpected tensor shape: %d series", len(quantiles))
	}

	cases := []struct {
		step   int
		spread float64
	}{
		{0, 5.0},  // |100| * 0.05
		{1, 2.0},  // |-40| * 0.05
		{2, 1.0},  // floor at 1.0
	}

	for _, tc := range cases {
		channels := quantiles[0][tc.step]
		if len(channels) != 3 {
			t.Fatalf("step %d: expected 3 channels, got %d", tc.step, len(channels))
		}
		p := point[0][tc.step]
		if channels[0] != p {
			t.Fatalf("step %d: channel 0 should be the point forecast", tc.step)
		}
		if math.Abs(channels[1]-(p-tc.spread)) > 1e-9 || math.Abs(channels[2]-(p+tc.spread)) > 1e-9 {
			t.Fatalf("step %d: expected spread %v, got low=%v high=%v", tc.step, tc.spread, channels[1], channels[2])
		}
	}
}

func TestEnsureQuantileChannelsPassthrough(t *testing.T) {
	point := [][]float64{{10}}
	quantiles := [][][]float64{{{10, 8, 9, 10, 11, 12}}}

	out := EnsureQuantileChannels(point, quantiles)
	if len(out[0][0]) != 6 {
		t.Fatalf("existing channels should pass through, got %d", len(out[0][0]))
	}
}

func TestEnsureQuantileChannelsRebuildsNarrowTensor(t *testing.T) {
	point := [][]float64{{10, 20}}
	quantiles := [][][]float64{{{10}, {20}}}

	out := EnsureQuantileChannels(point, quantiles)
	for step, channels := range out[0] {
		if len(channels) != 3 {
			t.Fatalf("step %d: expected synthesized 3 channels, got %d", step, len(channels))
		}
	}
}

func newLegacyServingStub(t *testing.T, point [][]float64) *httptest.Server {
	t.Helper()

	handler := http.NewServeMux()
	handler.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"point_forecast":    point,
			"quantile_forecast": [][][]float64{},
		})
	})

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestLegacyEngineForecastSynthesizesQuantiles(t *testing.T) {
	server := newLegacyServingStub(t, [][]float64{{100, -40}})

	engine, err := NewLegacyEngine(server.URL, server.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Name() != legacyModelName {
		t.Fatalf("unexpected engine name: %s", engine.Name())
	}

	point, quantiles, err := engine.Forecast(context.Background(), [][]float64{{60, 62, 64}}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if point[0][0] != 100 || point[0][1] != -40 {
		t.Fatalf("unexpected point forecast: %v", point[0])
	}

	want := [][]float64{{100, 95, 105}, {-40, -42, -38}}
	for step, channels := range quantiles[0] {
		for k := range want[step] {
			if math.Abs(channels[k]-want[step][k]) > 1e-9 {
				t.Fatalf("step %d: expected %v, got %v", step, want[step], channels)
			}
		}
	}
}

func TestLegacyEngineForecastRejectsShortResponse(t *testing.T) {
	server := newLegacyServingStub(t, [][]float64{{100}})

	engine, err := NewLegacyEngine(server.URL, server.Client())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, _, err := engine.Forecast(context.Background(), [][]float64{{60, 62, 64}}, 2); err == nil {
		t.Fatal("expected an error for a response missing steps")
	}
}
