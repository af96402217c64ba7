package forecast

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/cardia-ai/platform/pkg/common/config"
	"github.com/cardia-ai/platform/pkg/common/logger"
	"github.com/cardia-ai/platform/pkg/common/models"
	"github.com/cardia-ai/platform/pkg/signal"
	"github.com/cardia-ai/platform/pkg/storage"
)

const defaultHorizon = 12

// Service validates forecast requests, prepares the input signal and drives
// the engine through the configuration fallback protocol.
type Service struct {
	engine     Engine
	results    *storage.ResultStore
	minHistory int
	maxHorizon int
	minContext int
	maxContext int
}

func NewService(engine Engine, results *storage.ResultStore, cfg *config.Config) *Service {
	return &Service{
		engine:     engine,
		results:    results,
		minHistory: cfg.MinHistoryPoints,
		maxHorizon: cfg.MaxHorizon,
		minContext: cfg.MinContext,
		maxContext: cfg.MaxContext,
	}
}

func (s *Service) Predict(ctx context.Context, req models.ForecastRequest) (*models.ForecastResponse, error) {
	horizon := req.Horizon
	if horizon == 0 {
		horizon = defaultHorizon
	}
	if err := s.validate(req, horizon); err != nil {
		return nil, err
	}

	series, err := signal.Sanitize(req.HeartRates)
	if err != nil {
		return nil, ValidationError{reason: err}
	}

	override := 0
	if req.Context != nil {
		override = *req.Context
	}
	inputs := [][]float64{series}
	chosen := signal.ChooseContext(inputs, override)

	minLen, maxLen := signal.MinMaxLen(inputs)
	logger.Log.WithFields(map[string]interface{}{
		"patient_id":     req.PatientID,
		"min_len":        minLen,
		"max_len":        maxLen,
		"chosen_context": chosen,
	}).Debug("Context selected")

	point, quantiles, configUsed, err := Run(ctx, s.engine, inputs, horizon, chosen)
	if err != nil {
		return nil, err
	}

	low := make([]float64, len(quantiles[0]))
	high := make([]float64, len(quantiles[0]))
	for i, channels := range quantiles[0] {
		low[i] = channels[1]
		high[i] = channels[len(channels)-1]
	}

	resp := &models.ForecastResponse{
		PatientID:           req.PatientID,
		Horizon:             horizon,
		PredictedHeartRates: point[0],
		LowQuantile:         low,
		HighQuantile:        high,
		Confidence:          round3(Confidence(low, high, series)),
		Model:               s.engine.Name(),
		ConfigUsed:          configUsed,
		Context:             chosen,
		GeneratedAt:         time.Now().UTC(),
	}

	if s.results != nil {
		if err := s.results.SaveForecast(ctx, resp); err != nil {
			logger.Log.WithError(err).Warn("Failed to cache forecast result")
		}
	}

	return resp, nil
}

func (s *Service) validate(req models.ForecastRequest, horizon int) error {
	if strings.TrimSpace(req.PatientID) == "" {
		return validationErrorf("`patientId` is required")
	}
	if len(req.HeartRates) < s.minHistory {
		return validationErrorf("`heartRates` must contain at least %d data points", s.minHistory)
	}
	for _, v := range req.HeartRates {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return validationErrorf("`heartRates` must contain only numeric values")
		}
	}
	if horizon < 1 || horizon > s.maxHorizon {
		return validationErrorf("`horizon` must be in [1, %d]", s.maxHorizon)
	}
	if req.Context != nil && (*req.Context < s.minContext || *req.Context > s.maxContext) {
		return validationErrorf("`context` must be in [%d, %d]", s.minContext, s.maxContext)
	}
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
