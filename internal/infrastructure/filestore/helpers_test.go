package filestore_test

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
	"github.com/bibbank/churn-service/pkg/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func customers(n int) []model.CustomerRecord {
	out := make([]model.CustomerRecord, n)
	for i := range out {
		out[i] = model.CustomerRecord{
			CustomerID:     fmt.Sprintf("C%03d", i),
			Age:            20 + (i*7)%60,
			Balance:        float64((i * 3571) % 90000),
			Transactions:   5 + (i*13)%200,
			CreditScore:    400 + (i*37)%450,
			Tenure:         i % 11,
			Income:         20000 + float64((i*7919)%120000),
			NumProducts:    1 + i%4,
			HasCreditCard:  i%3 != 0,
			IsActiveMember: i%2 == 0,
			Churn:          i%4 == 0,
		}
	}
	return out
}

func testBundle(t *testing.T, version string) *service.ArtifactBundle {
	t.Helper()
	raw := model.CustomerFrame(customers(40), true)
	y, err := model.TargetLabels(raw)
	require.NoError(t, err)

	binning, engineered, err := service.FitAndEngineer(raw)
	require.NoError(t, err)
	plan := service.NewPreprocessingPlan()
	X, err := plan.FitTransform(engineered)
	require.NoError(t, err)

	m := service.NewLogisticRegression(true)
	require.NoError(t, m.Fit(X, y))

	return &service.ArtifactBundle{
		RunID:             "run-" + version,
		Version:           version,
		ModelName:         service.CandidateLogisticRegression,
		Model:             m,
		Binning:           binning,
		Plan:              plan,
		DecisionThreshold: 0.4,
		FeatureNames:      plan.FeatureNames(),
		InputColumns:      plan.InputColumns(),
		TrainingRows:      len(y),
		CreatedAt:         testutil.TestTrainAt,
	}
}
