package service

import (
	"encoding/gob"
	"fmt"
	"time"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

func init() {
	gob.RegisterName("churn.LogisticRegression", &LogisticRegression{})
	gob.RegisterName("churn.RandomForest", &RandomForest{})
	gob.RegisterName("churn.GradientBoosting", &GradientBoosting{})
	gob.RegisterName("churn.SMOTEClassifier", &SMOTEClassifier{})
	gob.RegisterName("churn.NearestCentroid", &NearestCentroid{})
}

// CandidateMetrics is the persisted score line of one candidate.
type CandidateMetrics struct {
	Name      string  `json:"model"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	ROCAUC    float64 `json:"roc_auc"`
	HasAUC    bool    `json:"has_auc"`
}

// ArtifactBundle is everything serving needs to reproduce training-time
// predictions. It is created once by a completed training run and never
// modified afterwards.
type ArtifactBundle struct {
	RunID             string
	Version           string
	ModelName         string
	Model             Classifier
	Binning           FeatureBinning
	Plan              *PreprocessingPlan
	DecisionThreshold float64
	FeatureNames      []string
	InputColumns      []string
	Metrics           CoreMetrics
	Candidates        []CandidateMetrics
	TrainingRows      int
	Segmentation      *CustomerSegmentation
	CreatedAt         time.Time
}

// CandidateMetricsFrom converts selection results into their persisted form.
func CandidateMetricsFrom(results []CandidateResult) []CandidateMetrics {
	out := make([]CandidateMetrics, len(results))
	for i, r := range results {
		out[i] = CandidateMetrics{
			Name:      r.Name,
			Accuracy:  r.Accuracy,
			Precision: r.Precision,
			Recall:    r.Recall,
			F1:        r.F1,
			ROCAUC:    r.ROCAUC,
			HasAUC:    r.HasAUC,
		}
	}
	return out
}

// Validate checks the bundle is usable for serving.
func (b *ArtifactBundle) Validate() error {
	if b.Model == nil {
		return fmt.Errorf("bundle %s has no model", b.Version)
	}
	if b.Plan == nil || !b.Plan.Fitted {
		return fmt.Errorf("bundle %s has no fitted preprocessing plan", b.Version)
	}
	if len(b.FeatureNames) != b.Plan.Width() {
		return fmt.Errorf("bundle %s records %d feature names, plan produces %d",
			b.Version, len(b.FeatureNames), b.Plan.Width())
	}
	if _, err := valueobject.NewThreshold(b.DecisionThreshold); err != nil {
		return fmt.Errorf("bundle %s: %w", b.Version, err)
	}
	return nil
}

// Threshold returns the decision threshold as a value object.
func (b *ArtifactBundle) Threshold() valueobject.Threshold {
	t, err := valueobject.NewThreshold(b.DecisionThreshold)
	if err != nil {
		return valueobject.DefaultThreshold()
	}
	return t
}

// Prepare engineers raw customer rows with the frozen binning and transforms
// them with the bundled plan. The returned warnings name plan inputs missing
// from the batch; they are imputed rather than rejected.
func (b *ArtifactBundle) Prepare(raw *model.Frame) ([][]float64, []string, error) {
	engineered, err := Engineer(raw, b.Binning)
	if err != nil {
		return nil, nil, fmt.Errorf("engineer features: %w", err)
	}
	var warnings []string
	for _, col := range b.Plan.MissingColumns(engineered) {
		warnings = append(warnings, fmt.Sprintf("feature %q missing, imputed", col))
	}
	X, err := b.Plan.Transform(engineered)
	if err != nil {
		return nil, nil, fmt.Errorf("transform features: %w", err)
	}
	return X, warnings, nil
}

// Segment returns the customer segment of every raw row and whether the
// bundle carries a segmentation.
func (b *ArtifactBundle) Segment(raw *model.Frame) ([]int, bool) {
	if b.Segmentation == nil || len(b.Segmentation.Centroids) == 0 {
		return nil, false
	}
	return b.Segmentation.Assign(raw), true
}

// PredictProba returns churn probabilities for prepared rows. Models without
// probability output return hard predictions as 0 or 1.
func (b *ArtifactBundle) PredictProba(X [][]float64) []float64 {
	if proba, ok := Probabilities(b.Model, X); ok {
		return proba
	}
	pred := b.Model.Predict(X)
	out := make([]float64, len(pred))
	for i, p := range pred {
		out[i] = float64(p)
	}
	return out
}
