package risk

import (
	"context"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"github.com/cardia-ai/platform/pkg/common/logger"
	"github.com/cardia-ai/platform/pkg/common/models"
	"github.com/cardia-ai/platform/pkg/features"
)

func TestMain(m *testing.M) {
	logger.Init("")
	os.Exit(m.Run())
}

type stubHistory struct {
	records []models.PatientRecord
	err     error
}

func (s *stubHistory) History(ctx context.Context, patientID string) ([]models.PatientRecord, error) {
	return s.records, s.err
}

// stubProba scores samples by their glucose value against a fixed threshold.
type stubProba struct{}

func (stubProba) Predict(sample []float64) (int, error) {
	if sample[0] >= 140 {
		return 1, nil
	}
	return 0, nil
}

func (stubProba) PredictProba(sample []float64) (float64, error) {
	if sample[0] >= 140 {
		return 0.8, nil
	}
	return 0.2, nil
}

// stubLabelOnly has no probability capability.
type stubLabelOnly struct{}

func (stubLabelOnly) Predict(sample []float64) (int, error) {
	if sample[0] >= 140 {
		return 1, nil
	}
	return 0, nil
}

type stubAudit struct {
	calls int
}

func (a *stubAudit) RecordAudit(ctx context.Context, id, patientID string, probability float64, predicted bool, horizon int, modelSource string, aggregates map[string]interface{}) error {
	a.calls++
	return nil
}

func riskStats() *features.Stats {
	return &features.Stats{
		Schema:  []string{"Glucose", "BMI", "Age"},
		Medians: map[string]float64{"Glucose": 117, "BMI": 32, "Age": 29},
		Mins:    map[string]float64{"Glucose": 50, "BMI": 15, "Age": 21},
		Maxs:    map[string]float64{"Glucose": 250, "BMI": 60, "Age": 81},
		Q10:     map[string]float64{"Glucose": 80, "BMI": 22, "Age": 22},
		Q90:     map[string]float64{"Glucose": 180, "BMI": 45, "Age": 58},
	}
}

// riskHistory builds three monthly observations. The biomarker score feeds the
// glucose feature through the proxy rule: 8 rescales above the positive
// threshold of the stub classifiers, 2 stays below it.
func riskHistory(score float64) []models.PatientRecord {
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	records := make([]models.PatientRecord, 0, 3)
	for i := 0; i < 3; i++ {
		records = append(records, models.PatientRecord{
			PatientID: "PID0001",
			Date:      start.AddDate(0, 0, 30*i),
			Attributes: map[string]interface{}{
				"BiomarkerScore": score + float64(i)*0.1,
				"BMI":            30.0,
				"Age":            50,
			},
		})
	}
	return records
}

func newRiskService(history HistorySource, classifier Classifier) *Service {
	return NewService(history, riskStats(), features.DefaultRules(), classifier, "test-artifact", nil, nil, 15)
}

func TestPredictPatientNotFound(t *testing.T) {
	service := newRiskService(&stubHistory{}, stubProba{})

	_, err := service.Predict(context.Background(), models.RiskRequest{PatientID: "PID0404"})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestPredictRequiresPatientID(t *testing.T) {
	service := newRiskService(&stubHistory{records: riskHistory(8)}, stubProba{})

	_, err := service.Predict(context.Background(), models.RiskRequest{PatientID: "  "})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPredictRejectsNegativeHorizon(t *testing.T) {
	service := newRiskService(&stubHistory{records: riskHistory(8)}, stubProba{})

	horizon := -1
	_, err := service.Predict(context.Background(), models.RiskRequest{PatientID: "PID0001", Horizon: &horizon})
	if !IsValidationError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPredictWithProbabilityClassifier(t *testing.T) {
	service := newRiskService(&stubHistory{records: riskHistory(8)}, stubProba{})

	horizon := 3
	resp, err := service.Predict(context.Background(), models.RiskRequest{PatientID: "PID0001", Horizon: &horizon})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.RecordsFound != 3 {
		t.Fatalf("expected 3 history rows, got %d", resp.RecordsFound)
	}
	if resp.Probability != 0.8 || !resp.Predicted {
		t.Fatalf("expected positive current prediction, got %v/%v", resp.Probability, resp.Predicted)
	}
	if len(resp.ForecastSteps) != 3 || len(resp.ForecastRows) != 3 {
		t.Fatalf("expected 3 forecast steps, got %d/%d", len(resp.ForecastSteps), len(resp.ForecastRows))
	}
	if resp.AverageProbability == nil {
		t.Fatal("expected an average probability for a non-zero horizon")
	}
	if resp.DetectedCount != 3 || !resp.AnyPositive {
		t.Fatalf("expected every step positive, got %d/%v", resp.DetectedCount, resp.AnyPositive)
	}
	if resp.ModelSource != "test-artifact" {
		t.Fatalf("unexpected model source: %s", resp.ModelSource)
	}
	for i, step := range resp.ForecastSteps {
		if step.Step != i+1 {
			t.Fatalf("step %d numbered %d", i, step.Step)
		}
		if step.ForecastDate == "" {
			t.Fatalf("step %d missing forecast date", i)
		}
	}
}

func TestPredictZeroHorizonAggregates(t *testing.T) {
	service := newRiskService(&stubHistory{records: riskHistory(8)}, stubProba{})

	horizon := 0
	resp, err := service.Predict(context.Background(), models.RiskRequest{PatientID: "PID0001", Horizon: &horizon})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(resp.ForecastSteps) != 0 || len(resp.ForecastRows) != 0 {
		t.Fatalf("expected no forecast output, got %d/%d", len(resp.ForecastSteps), len(resp.ForecastRows))
	}
	if resp.AverageProbability != nil {
		t.Fatalf("expected nil average for zero steps, got %v", *resp.AverageProbability)
	}
	if resp.DetectedCount != 0 || resp.AnyPositive {
		t.Fatalf("expected empty aggregates, got %d/%v", resp.DetectedCount, resp.AnyPositive)
	}
	// The current-record prediction is still made.
	if !resp.Predicted {
		t.Fatal("expected the latest record still classified")
	}
}

func TestPredictWithLabelOnlyClassifier(t *testing.T) {
	service := newRiskService(&stubHistory{records: riskHistory(8)}, stubLabelOnly{})

	horizon := 2
	resp, err := service.Predict(context.Background(), models.RiskRequest{PatientID: "PID0001", Horizon: &horizon})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Label-only models surface the label itself as the score.
	if resp.Probability != 1 || !resp.Predicted {
		t.Fatalf("expected label 1 surfaced, got %v/%v", resp.Probability, resp.Predicted)
	}
	if resp.AverageProbability == nil || math.Abs(*resp.AverageProbability-1) > 1e-9 {
		t.Fatalf("unexpected average: %v", resp.AverageProbability)
	}
}

func TestPredictNegativeCase(t *testing.T) {
	service := newRiskService(&stubHistory{records: riskHistory(2)}, stubProba{})

	horizon := 2
	resp, err := service.Predict(context.Background(), models.RiskRequest{PatientID: "PID0001", Horizon: &horizon})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Predicted || resp.DetectedCount != 0 || resp.AnyPositive {
		t.Fatalf("expected a fully negative prediction, got %+v", resp)
	}
}

func TestPredictAuditBestEffort(t *testing.T) {
	audit := &stubAudit{}
	service := NewService(&stubHistory{records: riskHistory(8)}, riskStats(), features.DefaultRules(), stubProba{}, "test-artifact", audit, nil, 15)

	if _, err := service.Predict(context.Background(), models.RiskRequest{PatientID: "PID0001"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audit.calls != 1 {
		t.Fatalf("expected one audit row, got %d", audit.calls)
	}
}

func TestPredictHistoryError(t *testing.T) {
	service := newRiskService(&stubHistory{err: errors.New("db down")}, stubProba{})

	_, err := service.Predict(context.Background(), models.RiskRequest{PatientID: "PID0001"})
	if err == nil || errors.Is(err, ErrPatientNotFound) || IsValidationError(err) {
		t.Fatalf("expected a plain load error, got %v", err)
	}
}
