package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
)

// fixedModel returns preset probabilities regardless of input.
type fixedModel struct {
	proba  []float64
	fitErr error
}

func (m *fixedModel) Fit(_ [][]float64, _ []int) error { return m.fitErr }

func (m *fixedModel) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i := range X {
		if m.proba[i] >= 0.5 {
			out[i] = 1
		}
	}
	return out
}

func (m *fixedModel) PredictProba(X [][]float64) []float64 { return m.proba[:len(X)] }

// fixedLabels has no probability output.
type fixedLabels struct{ pred []int }

func (m *fixedLabels) Fit(_ [][]float64, _ []int) error { return nil }
func (m *fixedLabels) Predict(X [][]float64) []int      { return m.pred[:len(X)] }

func spec(name string, c service.Classifier) service.CandidateSpec {
	return service.CandidateSpec{Name: name, New: func([]int) service.Classifier { return c }}
}

func TestModelSelector_PicksHighestF1(t *testing.T) {
	X := [][]float64{{0}, {0}, {0}, {0}}
	y := []int{0, 1, 0, 1}

	selector := service.NewModelSelector([]service.CandidateSpec{
		spec("weak", &fixedModel{proba: []float64{0.6, 0.4, 0.6, 0.4}}),
		spec("strong", &fixedModel{proba: []float64{0.1, 0.9, 0.2, 0.8}}),
		spec("labels", &fixedLabels{pred: []int{0, 1, 1, 1}}),
	}, discardLogger())

	sel, err := selector.SelectBest(context.Background(), X, y, X, y)
	require.NoError(t, err)

	assert.Equal(t, "strong", sel.Best.Name)
	require.Len(t, sel.Candidates, 3)
	assert.Equal(t, 1.0, sel.Best.F1)
	assert.Equal(t, 1.0, sel.Best.ROCAUC)

	labels := sel.Candidates[2]
	assert.False(t, labels.HasAUC, "no probability output means no AUC")
	assert.InDelta(t, 0.8, labels.F1, 1e-12)
}

func TestModelSelector_TieBreaksOnAUC(t *testing.T) {
	X := [][]float64{{0}, {0}, {0}, {0}}
	y := []int{0, 1, 0, 1}

	// All three predict [1,1,0,1] at 0.5, so F1 ties at 0.8.
	selector := service.NewModelSelector([]service.CandidateSpec{
		spec("labels", &fixedLabels{pred: []int{1, 1, 0, 1}}),
		spec("lower auc", &fixedModel{proba: []float64{0.95, 0.9, 0.2, 0.8}}),
		spec("higher auc", &fixedModel{proba: []float64{0.6, 0.9, 0.2, 0.8}}),
	}, discardLogger())

	sel, err := selector.SelectBest(context.Background(), X, y, X, y)
	require.NoError(t, err)
	for _, c := range sel.Candidates {
		assert.InDelta(t, 0.8, c.F1, 1e-12, c.Name)
	}
	assert.InDelta(t, 0.5, sel.Candidates[1].ROCAUC, 1e-12)
	assert.Equal(t, "higher auc", sel.Best.Name)
}

func TestModelSelector_SkipsFailedCandidates(t *testing.T) {
	X := [][]float64{{0}, {0}}
	y := []int{0, 1}

	selector := service.NewModelSelector([]service.CandidateSpec{
		spec("broken", &fixedModel{fitErr: fmt.Errorf("boom")}),
		spec("ok", &fixedModel{proba: []float64{0.2, 0.7}}),
	}, discardLogger())

	sel, err := selector.SelectBest(context.Background(), X, y, X, y)
	require.NoError(t, err)
	assert.Equal(t, "ok", sel.Best.Name)
	assert.Len(t, sel.Candidates, 1)
}

func TestModelSelector_NoCandidates(t *testing.T) {
	selector := service.NewModelSelector([]service.CandidateSpec{
		spec("broken", &fixedModel{fitErr: fmt.Errorf("boom")}),
	}, discardLogger())

	_, err := selector.SelectBest(context.Background(), [][]float64{{0}}, []int{0}, [][]float64{{0}}, []int{0})
	assert.ErrorIs(t, err, model.ErrNoCandidates)
}

func TestModelSelector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	selector := service.NewModelSelector(service.DefaultCandidates(service.DefaultSeed), discardLogger())
	_, err := selector.SelectBest(ctx, [][]float64{{0}}, []int{0}, [][]float64{{0}}, []int{0})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultCandidates(t *testing.T) {
	candidates := service.DefaultCandidates(service.DefaultSeed)
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	assert.Equal(t, []string{
		service.CandidateLogisticRegression,
		service.CandidateRandomForest,
		service.CandidateGradientBoosting,
		service.CandidateWeightedBoosting,
		service.CandidateSMOTEForest,
		service.CandidateSMOTEBoosting,
		service.CandidateNearestCentroid,
	}, names)
}
