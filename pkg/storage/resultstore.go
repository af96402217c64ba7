package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cardia-ai/platform/pkg/common/logger"
	"github.com/cardia-ai/platform/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

var ErrNoResult = errors.New("no cached result")

// ResultStore keeps the most recent forecast per patient in Redis so callers
// can poll without re-running the engine.
type ResultStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewResultStore(client *redis.Client, ttl time.Duration) *ResultStore {
	return &ResultStore{client: client, ttl: ttl}
}

func forecastKey(patientID string) string {
	return fmt.Sprintf("forecast:latest:%s", patientID)
}

func (s *ResultStore) SaveForecast(ctx context.Context, resp *models.ForecastResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encoding forecast result: %w", err)
	}

	key := forecastKey(resp.PatientID)
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("caching forecast result: %w", err)
	}

	logger.Log.WithFields(map[string]interface{}{
		"key":  key,
		"size": len(data),
	}).Debug("Cached forecast result")
	return nil
}

func (s *ResultStore) LatestForecast(ctx context.Context, patientID string) (*models.ForecastResponse, error) {
	data, err := s.client.Get(ctx, forecastKey(patientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoResult
	}
	if err != nil {
		return nil, fmt.Errorf("reading cached forecast: %w", err)
	}

	var resp models.ForecastResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decoding cached forecast: %w", err)
	}
	return &resp, nil
}
