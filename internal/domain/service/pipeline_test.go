package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

func TestPipeline_EndToEnd(t *testing.T) {
	raw := model.CustomerFrame(testCustomers(100, 0.2, service.DefaultSeed), true)
	y, err := model.TargetLabels(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.2, model.ChurnRatio(y))

	trainRows, testRows, err := service.StratifiedSplit(y, service.DefaultTestFraction, service.DefaultSeed)
	require.NoError(t, err)
	require.Len(t, testRows, 20)

	binning, trainFrame, err := service.FitAndEngineer(raw.Subset(trainRows))
	require.NoError(t, err)
	testFrame, err := service.Engineer(raw.Subset(testRows), binning)
	require.NoError(t, err)

	plan := service.NewPreprocessingPlan()
	XTrain, err := plan.FitTransform(trainFrame)
	require.NoError(t, err)
	XTest, err := plan.Transform(testFrame)
	require.NoError(t, err)
	yTrain, yTest := service.Pick(y, trainRows), service.Pick(y, testRows)

	selector := service.NewModelSelector(service.DefaultCandidates(service.DefaultSeed), discardLogger())
	sel, err := selector.SelectBest(context.Background(), XTrain, yTrain, XTest, yTest)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sel.Best.F1, 0.0)
	assert.Len(t, sel.Candidates, 7)

	thr := service.OptimizeThreshold(sel.Best.Model, XTest, yTest)
	assert.GreaterOrEqual(t, thr.Threshold.Value(), 0.10)
	assert.LessOrEqual(t, thr.Threshold.Value(), 0.85)

	report, err := service.Evaluate(sel.Best.Model, XTest, yTest, thr.Threshold, plan.FeatureNames())
	require.NoError(t, err)
	assert.Equal(t, 20, report.Confusion.Total())

	scores := service.ScoreRisk(sel.Best.Model, XTest, model.Identifiers(testFrame), thr.Threshold, discardLogger())
	require.Len(t, scores, 20)

	counts := map[string]int{}
	for _, s := range scores {
		counts[s.RiskCategory.String()]++
	}
	total := 0
	for _, c := range valueobject.RiskCategories() {
		total += counts[c.String()]
	}
	assert.Equal(t, 20, total)
	for cat := range counts {
		_, err := valueobject.RiskCategoryFromString(cat)
		assert.NoError(t, err)
	}

	ids := model.Identifiers(raw.Subset(testRows))
	for i, s := range scores {
		assert.Equal(t, ids[i], s.CustomerID)
	}
}
