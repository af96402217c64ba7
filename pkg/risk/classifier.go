package risk

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cardia-ai/platform/pkg/common/logger"
	"github.com/cardia-ai/platform/pkg/features"
	"github.com/cardia-ai/platform/pkg/ml/linear"
)

// Classifier is the minimum capability of the tabular model: a hard label per
// sample. Models that can quantify their output additionally implement
// ProbabilityClassifier; the orchestrator detects that once at construction.
type Classifier interface {
	Predict(sample []float64) (int, error)
}

type ProbabilityClassifier interface {
	Classifier
	PredictProba(sample []float64) (float64, error)
}

// Artifact is the serialized classifier layout produced by the training
// pipeline.
type Artifact struct {
	Model struct {
		Type         string         `json:"type"`
		Algorithm    string         `json:"algorithm"`
		FeatureNames []string       `json:"feature_names"`
		Weights      linear.Weights `json:"weights"`
	} `json:"model"`
}

type artifactClassifier struct {
	weights linear.Weights
}

func (c *artifactClassifier) PredictProba(sample []float64) (float64, error) {
	if len(sample) != len(c.weights.Coefficients) {
		return 0, fmt.Errorf("sample has %d features, classifier expects %d", len(sample), len(c.weights.Coefficients))
	}
	return linear.Predict(c.weights, sample), nil
}

func (c *artifactClassifier) Predict(sample []float64) (int, error) {
	p, err := c.PredictProba(sample)
	if err != nil {
		return 0, err
	}
	if p >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

// ResolveClassifier loads the serialized classifier artifact when present and
// otherwise trains a logistic-regression fallback on the reference dataset.
// The returned source string identifies which path was taken.
func ResolveClassifier(artifactDir, model string, stats *features.Stats) (Classifier, string, error) {
	path := filepath.Join(artifactDir, fmt.Sprintf("%s_latest.json", model))
	if classifier, err := loadArtifact(path, stats); err == nil {
		logger.Log.WithField("artifact", path).Info("Loaded classifier artifact")
		return classifier, path, nil
	} else if !os.IsNotExist(err) {
		logger.Log.WithError(err).WithField("artifact", path).Warn("Classifier artifact unusable, training fallback")
	}

	if len(stats.Samples) == 0 {
		return nil, "", fmt.Errorf("no classifier artifact and reference dataset %s has no usable rows", stats.SourcePath)
	}

	weights, metrics := linear.TrainLogistic(stats.Samples, stats.Labels, linear.Options{})
	logger.Log.WithFields(map[string]interface{}{
		"samples":  len(stats.Samples),
		"loss":     metrics.Loss,
		"accuracy": metrics.Accuracy,
	}).Info("Trained fallback classifier from reference dataset")

	source := fmt.Sprintf("fallback-trained-from-%s", stats.SourcePath)
	return &artifactClassifier{weights: weights}, source, nil
}

func loadArtifact(path string, stats *features.Stats) (Classifier, error) {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	var artifact Artifact
	if err := json.Unmarshal(content, &artifact); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}
	if len(artifact.Model.Weights.Coefficients) == 0 {
		return nil, fmt.Errorf("artifact missing weights")
	}
	if len(artifact.Model.FeatureNames) != len(stats.Schema) {
		return nil, fmt.Errorf("artifact has %d features, schema has %d", len(artifact.Model.FeatureNames), len(stats.Schema))
	}
	for i, name := range artifact.Model.FeatureNames {
		if name != stats.Schema[i] {
			return nil, fmt.Errorf("artifact feature order mismatch at %d: %s != %s", i, name, stats.Schema[i])
		}
	}
	return &artifactClassifier{weights: artifact.Model.Weights}, nil
}
