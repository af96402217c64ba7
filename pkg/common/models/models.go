package models

import "time"

// Heart-rate forecasting API models
type ForecastRequest struct {
	PatientID  string    `json:"patientId"`
	HeartRates []float64 `json:"heartRates"`
	Horizon    int       `json:"horizon"`
	Context    *int      `json:"context,omitempty"`
}

type ForecastResponse struct {
	PatientID           string    `json:"patientId"`
	Horizon             int       `json:"horizon"`
	PredictedHeartRates []float64 `json:"predictedHeartRates"`
	LowQuantile         []float64 `json:"lowQuantile"`
	HighQuantile        []float64 `json:"highQuantile"`
	Confidence          float64   `json:"confidence"`
	Model               string    `json:"model"`
	ConfigUsed          string    `json:"configUsed"`
	Context             int       `json:"context"`
	GeneratedAt         time.Time `json:"generatedAt"`
}

// Patient history models shared by the risk pipeline
type PatientRecord struct {
	PatientID  string                 `json:"patient_id"`
	Date       time.Time              `json:"date"`
	Attributes map[string]interface{} `json:"attributes"`
}

// Risk prediction API models
type RiskRequest struct {
	PatientID      string `json:"patientId"`
	Horizon        *int   `json:"horizon,omitempty"`
	UseProxyFields *bool  `json:"useProxyFields,omitempty"`
}

type StepPrediction struct {
	Step            int               `json:"step"`
	ForecastDate    string            `json:"forecast_date"`
	Probability     float64           `json:"probability"`
	Predicted       bool              `json:"predicted"`
	UsedParameters  map[string]string `json:"used_parameters"`
	MissingFeatures []string          `json:"missing_model_features"`
}

type RiskResponse struct {
	PatientID          string                   `json:"patient_id"`
	RecordsFound       int                      `json:"records_found"`
	LatestRecordDate   string                   `json:"latest_record_date"`
	LatestAttributes   map[string]interface{}   `json:"latest_attributes"`
	AllAttributes      []map[string]interface{} `json:"all_attributes"`
	ModelFeatures      []string                 `json:"model_features"`
	PossibleParameters map[string][]string      `json:"possible_parameters"`
	UsedParameters     map[string]string        `json:"used_parameters"`
	MissingFeatures    []string                 `json:"missing_model_features"`
	ModelSource        string                   `json:"model_source"`
	Probability        float64                  `json:"probability"`
	Predicted          bool                     `json:"predicted"`
	ForecastHorizon    int                      `json:"forecast_horizon"`
	ForecastRows       []map[string]interface{} `json:"forecast_rows"`
	ForecastSteps      []StepPrediction         `json:"forecast_predictions"`
	AverageProbability *float64                 `json:"forecast_average_probability"`
	DetectedCount      int                      `json:"forecast_detected_count"`
	AnyPositive        bool                     `json:"forecast_any_positive"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // observation, forecast, risk-prediction
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}
