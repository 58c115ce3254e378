package service_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
)

func smallFrame(t *testing.T) *model.Frame {
	t.Helper()
	f := model.NewFrame(4)
	require.NoError(t, f.AddCategorical(model.ColCustomerID, model.RoleIdentifier, []string{"a", "b", "c", "d"}))
	require.NoError(t, f.AddNumeric("Balance", model.RoleFeature, []float64{0, 10, 20, 30}))
	require.NoError(t, f.AddNumeric("Constant", model.RoleFeature, []float64{5, 5, 5, 5}))
	require.NoError(t, f.AddCategorical("Segment", model.RoleFeature, []string{"gold", "silver", "gold", "bronze"}))
	require.NoError(t, f.AddNumeric(model.ColChurn, model.RoleTarget, []float64{0, 1, 0, 1}))
	return f
}

func TestPreprocessingPlan_FitThenTransformMatchesFitTransform(t *testing.T) {
	f := smallFrame(t)

	a := service.NewPreprocessingPlan()
	fitTransformed, err := a.FitTransform(f)
	require.NoError(t, err)

	b := service.NewPreprocessingPlan()
	require.NoError(t, b.Fit(f))
	transformed, err := b.Transform(f)
	require.NoError(t, err)

	assert.Equal(t, fitTransformed, transformed)
	require.Len(t, transformed, 4)
	assert.Len(t, transformed[0], b.Width())
}

func TestPreprocessingPlan_ExcludesIdentifierAndTarget(t *testing.T) {
	plan := service.NewPreprocessingPlan()
	require.NoError(t, plan.Fit(smallFrame(t)))

	assert.Equal(t, []string{"Balance", "Constant", "Segment"}, plan.InputColumns())
	assert.Equal(t, []string{
		"Balance",
		"Constant",
		"Segment_bronze",
		"Segment_gold",
		"Segment_silver",
		"Segment___unknown__",
	}, plan.FeatureNames())
}

func TestPreprocessingPlan_Standardizes(t *testing.T) {
	plan := service.NewPreprocessingPlan()
	X, err := plan.FitTransform(smallFrame(t))
	require.NoError(t, err)

	var sum, sq float64
	for _, row := range X {
		sum += row[0]
		sq += row[0] * row[0]
		assert.Equal(t, 0.0, row[1], "zero-variance column scales by 1")
	}
	assert.InDelta(t, 0, sum/4, 1e-9)
	assert.InDelta(t, 1, math.Sqrt(sq/4), 1e-9)
}

func TestPreprocessingPlan_UnseenCategory(t *testing.T) {
	plan := service.NewPreprocessingPlan()
	require.NoError(t, plan.Fit(smallFrame(t)))

	serve := model.NewFrame(1)
	require.NoError(t, serve.AddNumeric("Balance", model.RoleFeature, []float64{15}))
	require.NoError(t, serve.AddNumeric("Constant", model.RoleFeature, []float64{5}))
	require.NoError(t, serve.AddCategorical("Segment", model.RoleFeature, []string{"platinum"}))

	X, err := plan.Transform(serve)
	require.NoError(t, err)
	require.Len(t, X, 1)
	assert.Len(t, X[0], plan.Width())
	assert.Equal(t, []float64{0, 0, 0, 1}, X[0][2:])
}

func TestPreprocessingPlan_MissingColumnsAreImputed(t *testing.T) {
	plan := service.NewPreprocessingPlan()
	require.NoError(t, plan.Fit(smallFrame(t)))

	serve := model.NewFrame(1)
	require.NoError(t, serve.AddNumeric("Constant", model.RoleFeature, []float64{math.NaN()}))

	assert.Equal(t, []string{"Balance", "Segment"}, plan.MissingColumns(serve))

	X, err := plan.Transform(serve)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 1}, X[0])
}

func TestPreprocessingPlan_TransformBeforeFit(t *testing.T) {
	_, err := service.NewPreprocessingPlan().Transform(smallFrame(t))
	assert.ErrorIs(t, err, model.ErrNotFitted)
}

func TestPreprocessingPlan_EngineeredCustomers(t *testing.T) {
	binning, train, err := service.FitAndEngineer(model.CustomerFrame(testCustomers(60, 0.2, 11), true))
	require.NoError(t, err)

	plan := service.NewPreprocessingPlan()
	X, err := plan.FitTransform(train)
	require.NoError(t, err)
	assert.Len(t, plan.FeatureNames(), len(X[0]))
	assert.NotContains(t, plan.InputColumns(), model.ColCustomerID)
	assert.NotContains(t, plan.InputColumns(), model.ColChurn)

	single, err := service.Engineer(model.CustomerFrame(testCustomers(1, 0, 99), false), binning)
	require.NoError(t, err)
	Xs, err := plan.Transform(single)
	require.NoError(t, err)
	assert.Len(t, Xs[0], len(X[0]))
}
