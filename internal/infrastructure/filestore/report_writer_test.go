package filestore_test

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/port"
	"github.com/bibbank/churn-service/internal/domain/service"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
	"github.com/bibbank/churn-service/internal/infrastructure/filestore"
)

func sampleReport() port.TrainingReport {
	return port.TrainingReport{
		RunID:     "run-1",
		Version:   "20240315_093000_aaaaaaaa",
		BestModel: service.CandidateRandomForest,
		Candidates: []service.CandidateMetrics{
			{Name: service.CandidateRandomForest, Accuracy: 0.85, Precision: 0.6, Recall: 0.5, F1: 0.545, ROCAUC: 0.8, HasAUC: true},
			{Name: service.CandidateNearestCentroid, Accuracy: 0.7, Precision: 0.3, Recall: 0.6, F1: 0.4},
		},
		Evaluation: service.EvaluationReport{
			Threshold: 0.35,
			Metrics:   service.CoreMetrics{Accuracy: 0.85, F1: 0.545},
			Classes: []service.ClassMetrics{
				{Class: "Not Churned", Precision: 0.9, Recall: 0.92, F1: 0.91, Support: 160},
				{Class: "Churned", Precision: 0.6, Recall: 0.5, F1: 0.545, Support: 40},
			},
			WeightedAverage:    service.ClassMetrics{Support: 200},
			FeatureImportances: []service.FeatureImportance{{Feature: "Balance", Importance: 0.3}},
		},
		ThresholdScan: []service.ThresholdPoint{{Threshold: 0.1, F1: 0.3}, {Threshold: 0.15, F1: 0.4}},
		Segments: []model.SegmentProfile{
			{
				Segment:                 0,
				CustomerCount:           120,
				AverageChurnProbability: 0.12,
				Attributes:              []model.SegmentAttribute{{Column: model.ColAge, Mean: 28.5}, {Column: model.ColBalance, Mean: 61000}},
				Description:             "Segment 0: Young customers with high value with high loyalty",
			},
			{
				Segment:                 1,
				CustomerCount:           80,
				AverageChurnProbability: 0.61,
				Attributes:              []model.SegmentAttribute{{Column: model.ColAge, Mean: 55}},
				Description:             "Segment 1: Senior customers at high risk of churning",
			},
		},
		GeneratedAt:   time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestReportWriter_WriteReports(t *testing.T) {
	dir := t.TempDir()
	w := filestore.NewReportWriter(dir, discardLogger())
	require.NoError(t, w.WriteReports(context.Background(), sampleReport()))

	comparison := readCSV(t, filepath.Join(dir, filestore.ModelComparisonFile))
	require.Len(t, comparison, 3)
	assert.Equal(t, []string{"Model", "Accuracy", "Precision", "Recall", "F1 Score", "ROC-AUC"}, comparison[0])
	assert.Equal(t, "0.800000", comparison[1][5])
	assert.Empty(t, comparison[2][5], "candidates without probabilities have no AUC")

	classification := readCSV(t, filepath.Join(dir, filestore.ClassificationFile))
	assert.Equal(t, "Not Churned", classification[1][0])
	assert.Equal(t, "weighted avg", classification[len(classification)-1][0])

	importance := readCSV(t, filepath.Join(dir, filestore.FeatureImportanceFile))
	assert.Equal(t, []string{"Balance", "0.300000"}, importance[1])

	scan := readCSV(t, filepath.Join(dir, filestore.ThresholdScanFile))
	assert.Equal(t, []string{"0.15", "0.400000"}, scan[2])

	segments := readCSV(t, filepath.Join(dir, filestore.SegmentsFile))
	require.Len(t, segments, 3)
	assert.Equal(t, []string{"Segment", "Customers", "Avg Churn Probability", "Age", "Balance", "Description"}, segments[0])
	assert.Equal(t, []string{"1", "80", "0.610000", "55.000000", "", "Segment 1: Senior customers at high risk of churning"}, segments[2])

	raw, err := os.ReadFile(filepath.Join(dir, filestore.EvaluationFile))
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, service.CandidateRandomForest, doc["best_model"])
	assert.Equal(t, "2024-03-15T09:30:00Z", doc["generated_at"])
}

func TestReportWriter_SkipsOptionalReportsWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport()
	report.Evaluation.FeatureImportances = nil
	report.Segments = nil

	require.NoError(t, filestore.NewReportWriter(dir, discardLogger()).WriteReports(context.Background(), report))
	_, err := os.Stat(filepath.Join(dir, filestore.FeatureImportanceFile))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, filestore.SegmentsFile))
	assert.True(t, os.IsNotExist(err))
}

func TestReportWriter_WritesEvaluatedModel(t *testing.T) {
	// Overlapping classes so the fitted model ranks imperfectly and the
	// curves carry several cutoffs.
	X := [][]float64{{-2}, {-1.5}, {-1}, {-0.5}, {0}, {0.2}, {0.5}, {1}, {1.5}, {2}}
	y := []int{0, 0, 0, 1, 0, 1, 0, 1, 1, 1}
	m := service.NewLogisticRegression(false)
	require.NoError(t, m.Fit(X, y))

	evaluation, err := service.Evaluate(m, X, y, valueobject.DefaultThreshold(), []string{"Balance"})
	require.NoError(t, err)
	require.NotEmpty(t, evaluation.ROC)

	report := sampleReport()
	report.BestModel = service.CandidateLogisticRegression
	report.Evaluation = evaluation

	dir := t.TempDir()
	require.NoError(t, filestore.NewReportWriter(dir, discardLogger()).WriteReports(context.Background(), report))

	raw, err := os.ReadFile(filepath.Join(dir, filestore.EvaluationFile))
	require.NoError(t, err)
	var doc struct {
		Evaluation struct {
			ROC []struct {
				Threshold float64 `json:"threshold"`
			} `json:"roc_curve"`
		} `json:"evaluation"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc.Evaluation.ROC, len(evaluation.ROC))
	assert.Equal(t, 1.0, doc.Evaluation.ROC[0].Threshold)
}
