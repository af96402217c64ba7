package risk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cardia-ai/platform/pkg/common/kafka"
	"github.com/cardia-ai/platform/pkg/common/logger"
	"github.com/cardia-ai/platform/pkg/common/models"
	"github.com/cardia-ai/platform/pkg/features"
	"github.com/cardia-ai/platform/pkg/trend"
	"github.com/google/uuid"
)

var ErrPatientNotFound = errors.New("no records found for patient")

type ValidationError struct {
	reason error
}

func (e ValidationError) Error() string {
	return e.reason.Error()
}

func (e ValidationError) Unwrap() error {
	return e.reason
}

func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// HistorySource supplies a patient's observation rows ordered by date.
type HistorySource interface {
	History(ctx context.Context, patientID string) ([]models.PatientRecord, error)
}

// AuditSink records completed predictions. Optional.
type AuditSink interface {
	RecordAudit(ctx context.Context, id, patientID string, probability float64, predicted bool, horizon int, modelSource string, aggregates map[string]interface{}) error
}

// Service orchestrates trend extrapolation, feature mapping and the tabular
// classifier into per-row and aggregate risk predictions.
type Service struct {
	history        HistorySource
	stats          *features.Stats
	rules          features.RulesConfig
	classifier     Classifier
	proba          ProbabilityClassifier // nil when the classifier is label-only
	modelSource    string
	audit          AuditSink
	producer       *kafka.Producer
	defaultHorizon int
}

func NewService(history HistorySource, stats *features.Stats, rules features.RulesConfig, classifier Classifier, modelSource string, audit AuditSink, producer *kafka.Producer, defaultHorizon int) *Service {
	// Capability detection happens once here, never per call.
	proba, _ := classifier.(ProbabilityClassifier)

	return &Service{
		history:        history,
		stats:          stats,
		rules:          rules,
		classifier:     classifier,
		proba:          proba,
		modelSource:    modelSource,
		audit:          audit,
		producer:       producer,
		defaultHorizon: defaultHorizon,
	}
}

func (s *Service) Predict(ctx context.Context, req models.RiskRequest) (*models.RiskResponse, error) {
	patientID := strings.TrimSpace(req.PatientID)
	if patientID == "" {
		return nil, ValidationError{reason: errors.New("`patientId` is required")}
	}

	horizon := s.defaultHorizon
	if req.Horizon != nil {
		horizon = *req.Horizon
	}
	if horizon < 0 {
		return nil, ValidationError{reason: errors.New("`horizon` must be >= 0")}
	}

	useProxies := true
	if req.UseProxyFields != nil {
		useProxies = *req.UseProxyFields
	}

	history, err := s.history.History(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("loading history for %s: %w", patientID, err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
	}

	latest := trend.LatestRecord(history)
	currentVector, currentMapping := features.Map(latest, s.stats, s.rules, useProxies)
	currentProb, currentLabel, err := s.classify(currentVector)
	if err != nil {
		return nil, fmt.Errorf("classifying latest record: %w", err)
	}

	forecastRows := trend.ForecastRows(history, horizon)
	steps := make([]models.StepPrediction, 0, len(forecastRows))
	var probSum float64
	detected := 0

	for i, row := range forecastRows {
		vector, mapping := features.Map(row, s.stats, s.rules, useProxies)
		prob, label, err := s.classify(vector)
		if err != nil {
			return nil, fmt.Errorf("classifying forecast step %d: %w", i+1, err)
		}

		steps = append(steps, models.StepPrediction{
			Step:            i + 1,
			ForecastDate:    row.Date.Format("2006-01-02"),
			Probability:     prob,
			Predicted:       label,
			UsedParameters:  mapping.Used,
			MissingFeatures: mapping.Missing,
		})
		probSum += prob
		if label {
			detected++
		}
	}

	var avgProbability *float64
	if len(steps) > 0 {
		avg := probSum / float64(len(steps))
		avgProbability = &avg
	}

	resp := &models.RiskResponse{
		PatientID:          patientID,
		RecordsFound:       len(history),
		LatestRecordDate:   latest.Date.Format("2006-01-02"),
		LatestAttributes:   recordToMap(latest),
		AllAttributes:      historyToMaps(history),
		ModelFeatures:      s.stats.Schema,
		PossibleParameters: currentMapping.Possible,
		UsedParameters:     currentMapping.Used,
		MissingFeatures:    currentMapping.Missing,
		ModelSource:        s.modelSource,
		Probability:        currentProb,
		Predicted:          currentLabel,
		ForecastHorizon:    horizon,
		ForecastRows:       historyToMaps(forecastRows),
		ForecastSteps:      steps,
		AverageProbability: avgProbability,
		DetectedCount:      detected,
		AnyPositive:        detected > 0,
	}

	s.report(ctx, resp)
	return resp, nil
}

// classify runs one feature vector through the classifier. Probability-capable
// models report the positive-class probability; label-only models report the
// label cast to a float, which callers must not read as a calibrated score.
func (s *Service) classify(vector features.Vector) (float64, bool, error) {
	sample := make([]float64, len(s.stats.Schema))
	for i, feature := range s.stats.Schema {
		sample[i] = vector[feature]
	}

	if s.proba != nil {
		p, err := s.proba.PredictProba(sample)
		if err != nil {
			return 0, false, err
		}
		return p, p >= 0.5, nil
	}

	label, err := s.classifier.Predict(sample)
	if err != nil {
		return 0, false, err
	}
	return float64(label), label == 1, nil
}

// report writes the audit row and publishes the prediction event, both best
// effort.
func (s *Service) report(ctx context.Context, resp *models.RiskResponse) {
	aggregates := map[string]interface{}{
		"detected_count": resp.DetectedCount,
		"any_positive":   resp.AnyPositive,
	}
	if resp.AverageProbability != nil {
		aggregates["average_probability"] = *resp.AverageProbability
	}

	if s.audit != nil {
		err := s.audit.RecordAudit(ctx, uuid.New().String(), resp.PatientID, resp.Probability, resp.Predicted, resp.ForecastHorizon, resp.ModelSource, aggregates)
		if err != nil {
			logger.Log.WithError(err).Warn("Failed to write prediction audit row")
		}
	}

	if s.producer != nil {
		data := map[string]interface{}{
			"patient_id":  resp.PatientID,
			"probability": resp.Probability,
			"predicted":   resp.Predicted,
			"horizon":     resp.ForecastHorizon,
			"aggregates":  aggregates,
		}
		if err := s.producer.PublishEvent(ctx, "risk-prediction", "risk-service", data); err != nil {
			logger.Log.WithError(err).Warn("Failed to publish prediction event")
		}
	}
}

func recordToMap(record models.PatientRecord) map[string]interface{} {
	out := make(map[string]interface{}, len(record.Attributes)+2)
	for k, v := range record.Attributes {
		out[k] = v
	}
	out["PatientID"] = record.PatientID
	out["Date"] = record.Date.Format("2006-01-02")
	return out
}

func historyToMaps(history []models.PatientRecord) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(history))
	for _, record := range history {
		out = append(out, recordToMap(record))
	}
	return out
}
