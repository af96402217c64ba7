package risk

import (
	"context"
	"errors"
	"time"

	"github.com/cardia-ai/platform/pkg/common/kafka"
	"github.com/cardia-ai/platform/pkg/common/logger"
	"github.com/cardia-ai/platform/pkg/common/models"
	"github.com/google/uuid"
)

// NewObservationHandler returns the event handler that ingests patient
// observation events into the repository. Malformed events are dropped
// rather than retried.
func NewObservationHandler(repo *Repository) kafka.EventHandler {
	return func(ctx context.Context, event models.Event) error {
		patientID, _ := event.Data["patient_id"].(string)
		if patientID == "" {
			logger.Log.WithField("event_id", event.ID).Warn("observation event missing patient_id")
			return nil
		}

		observedAt := event.Timestamp
		if raw, ok := event.Data["date"].(string); ok && raw != "" {
			parsed, err := parseObservationDate(raw)
			if err != nil {
				logger.Log.WithError(err).WithField("event_id", event.ID).Warn("observation event has unparseable date")
				return nil
			}
			observedAt = parsed
		}

		attrs, ok := event.Data["attributes"].(map[string]interface{})
		if !ok || len(attrs) == 0 {
			logger.Log.WithField("event_id", event.ID).Warn("observation event missing attributes")
			return nil
		}

		record := models.PatientRecord{
			PatientID:  patientID,
			Date:       observedAt,
			Attributes: attrs,
		}
		return repo.InsertObservation(ctx, uuid.New().String(), record)
	}
}

func parseObservationDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("unsupported date format: " + raw)
}
