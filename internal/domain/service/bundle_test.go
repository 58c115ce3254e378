package service_test

import (
	"bytes"
	"encoding/gob"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
)

func trainedBundle(t *testing.T, m service.Classifier) (*service.ArtifactBundle, *model.Frame) {
	t.Helper()
	raw := model.CustomerFrame(testCustomers(80, 0.25, 13), true)
	y, err := model.TargetLabels(raw)
	require.NoError(t, err)

	binning, engineered, err := service.FitAndEngineer(raw)
	require.NoError(t, err)
	plan := service.NewPreprocessingPlan()
	X, err := plan.FitTransform(engineered)
	require.NoError(t, err)
	require.NoError(t, m.Fit(X, y))

	return &service.ArtifactBundle{
		RunID:             "run",
		Version:           "20240101_000000_abcdef12",
		ModelName:         "test",
		Model:             m,
		Binning:           binning,
		Plan:              plan,
		DecisionThreshold: 0.35,
		FeatureNames:      plan.FeatureNames(),
		InputColumns:      plan.InputColumns(),
		CreatedAt:         time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}, raw
}

func roundTrip(t *testing.T, b *service.ArtifactBundle) *service.ArtifactBundle {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(b))
	var out service.ArtifactBundle
	require.NoError(t, gob.NewDecoder(&buf).Decode(&out))
	return &out
}

func TestArtifactBundle_RoundTripIsBitIdentical(t *testing.T) {
	models := map[string]service.Classifier{
		"logistic":  service.NewLogisticRegression(true),
		"forest":    service.NewRandomForest(true, service.DefaultSeed),
		"boosting":  service.NewGradientBoosting(2),
		"smote":     service.NewSMOTEClassifier(service.NewGradientBoosting(0), service.DefaultSeed),
		"centroids": service.NewNearestCentroid(),
	}

	for name, m := range models {
		t.Run(name, func(t *testing.T) {
			bundle, raw := trainedBundle(t, m)
			require.NoError(t, bundle.Validate())

			X, warnings, err := bundle.Prepare(raw)
			require.NoError(t, err)
			assert.Empty(t, warnings)
			before := bundle.PredictProba(X)

			loaded := roundTrip(t, bundle)
			require.NoError(t, loaded.Validate())

			Xl, _, err := loaded.Prepare(raw)
			require.NoError(t, err)
			assert.Equal(t, X, Xl)
			assert.Equal(t, before, loaded.PredictProba(Xl))
			assert.Equal(t, 0.35, loaded.Threshold().Value())
			assert.Equal(t, bundle.FeatureNames, loaded.FeatureNames)
		})
	}
}

func TestArtifactBundle_PrepareWarnsOnMissingColumns(t *testing.T) {
	bundle, _ := trainedBundle(t, service.NewLogisticRegression(false))

	partial := model.NewFrame(1)
	require.NoError(t, partial.AddNumeric(model.ColAge, model.RoleFeature, []float64{40}))
	require.NoError(t, partial.AddNumeric(model.ColBalance, model.RoleFeature, []float64{1000}))

	X, warnings, err := bundle.Prepare(partial)
	require.NoError(t, err)
	assert.NotEmpty(t, warnings)
	require.Len(t, X, 1)
	assert.Len(t, X[0], len(bundle.FeatureNames))
}

func TestArtifactBundle_Validate(t *testing.T) {
	bundle, _ := trainedBundle(t, service.NewLogisticRegression(false))

	broken := *bundle
	broken.Model = nil
	assert.Error(t, broken.Validate())

	broken = *bundle
	broken.FeatureNames = broken.FeatureNames[:1]
	assert.Error(t, broken.Validate())

	broken = *bundle
	broken.DecisionThreshold = 1
	assert.Error(t, broken.Validate())
}
