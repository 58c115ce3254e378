package filestore_test

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
	"github.com/bibbank/churn-service/internal/infrastructure/filestore"
)

func sampleScores() []model.RiskScore {
	return []model.RiskScore{
		{CustomerID: "C001", ChurnProbability: 0.12, RiskCategory: valueobject.RiskCategoryLow},
		{CustomerID: "C002", ChurnProbability: 0.55, RiskCategory: valueobject.RiskCategoryMedium, PredictedChurn: true},
		{CustomerID: "C003", ChurnProbability: 0.91, RiskCategory: valueobject.RiskCategoryHigh, PredictedChurn: true},
	}
}

func TestRiskTable_ReplaceAndFind(t *testing.T) {
	ctx := context.Background()
	table := filestore.NewRiskTable(t.TempDir(), discardLogger())

	empty, err := table.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	require.NoError(t, table.ReplaceAll(ctx, sampleScores()))
	got, err := table.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleScores(), got)

	raw, err := os.ReadFile(table.Path())
	require.NoError(t, err)
	assert.Equal(t,
		"CustomerID,ChurnProbability,RiskCategory,PredictedChurn\n"+
			"C001,0.12,Low,0\nC002,0.55,Medium,1\nC003,0.91,High,1\n",
		string(raw))

	summary, err := os.ReadFile(table.SummaryPath())
	require.NoError(t, err)
	assert.Contains(t, string(summary), "RiskCategory,CustomerCount,AverageChurnProbability\n")
	assert.Contains(t, string(summary), "High,1,0.910000\n")
}

func TestRiskTable_ReplaceIsWholesale(t *testing.T) {
	ctx := context.Background()
	table := filestore.NewRiskTable(t.TempDir(), discardLogger())

	require.NoError(t, table.ReplaceAll(ctx, sampleScores()))
	require.NoError(t, table.ReplaceAll(ctx, sampleScores()[:1]))

	got, err := table.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRiskTable_FindAllRejectsMalformedRows(t *testing.T) {
	table := filestore.NewRiskTable(t.TempDir(), discardLogger())
	require.NoError(t, os.WriteFile(table.Path(),
		[]byte("CustomerID,ChurnProbability,RiskCategory,PredictedChurn\nC1,abc,Low,0\n"), 0o600))

	_, err := table.FindAll(context.Background())
	assert.Error(t, err)
}
