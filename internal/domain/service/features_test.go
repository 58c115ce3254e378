package service_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
)

func TestEngineer_ZeroDenominatorsStayFinite(t *testing.T) {
	records := []model.CustomerRecord{
		{CustomerID: "A", Age: 30, Balance: 0, Transactions: 0, Tenure: 0, Income: 0, NumProducts: 0, CreditScore: 500},
		{CustomerID: "B", Age: 45, Balance: 1200, Transactions: 0, Tenure: 0, Income: 0, NumProducts: 2, CreditScore: 700},
		{CustomerID: "C", Age: 61, Balance: 5000, Transactions: 10, Tenure: 3, Income: 40000, NumProducts: 1, CreditScore: 800},
	}
	raw := model.CustomerFrame(records, true)

	_, engineered, err := service.FitAndEngineer(raw)
	require.NoError(t, err)

	for _, col := range []string{
		service.ColBalancePerTransaction,
		service.ColTransactionsPerMonth,
		service.ColProductDensity,
		service.ColBalanceToIncome,
		service.ColCustomerValue,
	} {
		values, ok := engineered.Numeric(col)
		require.True(t, ok, col)
		for i, v := range values {
			assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s row %d = %v", col, i, v)
		}
	}

	bpt, _ := engineered.Numeric(service.ColBalancePerTransaction)
	assert.Equal(t, 0.0, bpt[0])
	assert.Equal(t, 1200.0, bpt[1], "zero transactions floor to 1")

	bti, _ := engineered.Numeric(service.ColBalanceToIncome)
	assert.Equal(t, 0.0, bti[1], "zero income yields 0")
	assert.InDelta(t, 0.125, bti[2], 1e-12)
}

func TestEngineer_AgeGroups(t *testing.T) {
	ages := []int{18, 30, 31, 40, 41, 50, 51, 60, 61, 100}
	want := []string{"18-30", "18-30", "31-40", "31-40", "41-50", "41-50", "51-60", "51-60", "60+", "60+"}

	records := make([]model.CustomerRecord, len(ages))
	for i, a := range ages {
		records[i] = model.CustomerRecord{Age: a, Balance: 100, Income: 1000, Transactions: 1, Tenure: 1}
	}
	_, engineered, err := service.FitAndEngineer(model.CustomerFrame(records, false))
	require.NoError(t, err)

	groups, ok := engineered.Labels(service.ColAgeGroup)
	require.True(t, ok)
	assert.Equal(t, want, groups)
}

func TestEngineer_AgeOutOfRange(t *testing.T) {
	for _, age := range []int{17, 101} {
		raw := model.CustomerFrame([]model.CustomerRecord{{Age: age}}, false)
		_, _, err := service.FitAndEngineer(raw)
		require.Error(t, err)
		assert.ErrorIs(t, err, model.ErrAgeOutOfRange)
	}
}

func TestEngineer_MissingAgeIsUnknownGroup(t *testing.T) {
	raw := model.NewFrame(3)
	require.NoError(t, raw.AddNumeric(model.ColAge, model.RoleFeature, []float64{25, math.NaN(), 45}))
	require.NoError(t, raw.AddNumeric(model.ColBalance, model.RoleFeature, []float64{10, 20, 30}))

	_, engineered, err := service.FitAndEngineer(raw)
	require.NoError(t, err)

	groups, ok := engineered.Labels(service.ColAgeGroup)
	require.True(t, ok)
	assert.Equal(t, []string{"18-30", service.UnknownCategory, "41-50"}, groups)

	plan := service.NewPreprocessingPlan()
	X, err := plan.FitTransform(engineered)
	require.NoError(t, err)

	names := plan.FeatureNames()
	unknown := -1
	for i, n := range names {
		if n == service.ColAgeGroup+"_"+service.UnknownCategory {
			require.Equal(t, -1, unknown, "unknown bucket appears once")
			unknown = i
		}
	}
	require.NotEqual(t, -1, unknown)
	assert.Equal(t, 1.0, X[1][unknown])
	assert.Equal(t, 0.0, X[0][unknown])
}

func TestEngineer_SkipsFeaturesWithMissingSources(t *testing.T) {
	raw := model.NewFrame(2)
	require.NoError(t, raw.AddCategorical(model.ColCustomerID, model.RoleIdentifier, []string{"a", "b"}))
	require.NoError(t, raw.AddNumeric(model.ColAge, model.RoleFeature, []float64{25, 55}))
	require.NoError(t, raw.AddNumeric(model.ColBalance, model.RoleFeature, []float64{0, 300}))

	_, engineered, err := service.FitAndEngineer(raw)
	require.NoError(t, err)

	assert.True(t, engineered.Has(service.ColAgeGroup))
	assert.True(t, engineered.Has(service.ColHasBalance))
	assert.False(t, engineered.Has(service.ColBalancePerTransaction))
	assert.False(t, engineered.Has(service.ColIncomeGroup))
	assert.False(t, engineered.Has(service.ColCustomerValue))
	assert.False(t, engineered.Has(service.ColInactiveWithCCRisk))

	ids, ok := engineered.Labels(model.ColCustomerID)
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, ids)
}

func TestEngineer_DoesNotModifyInput(t *testing.T) {
	raw := model.CustomerFrame(testCustomers(20, 0.2, 1), true)
	before := raw.Names()

	_, _, err := service.FitAndEngineer(raw)
	require.NoError(t, err)
	assert.Equal(t, before, raw.Names())
}

func TestEngineer_FrozenEdgesMatchSingleRow(t *testing.T) {
	records := testCustomers(50, 0.2, 7)
	binning, batch, err := service.FitAndEngineer(model.CustomerFrame(records, true))
	require.NoError(t, err)

	batchCredit, _ := batch.Labels(service.ColCreditScoreGroup)
	batchIncome, _ := batch.Labels(service.ColIncomeGroup)
	batchValue, _ := batch.Labels(service.ColValueSegment)

	for i, r := range records {
		single, err := service.Engineer(model.CustomerFrame([]model.CustomerRecord{r}, false), binning)
		require.NoError(t, err)

		credit, _ := single.Labels(service.ColCreditScoreGroup)
		income, _ := single.Labels(service.ColIncomeGroup)
		value, _ := single.Labels(service.ColValueSegment)
		assert.Equal(t, batchCredit[i], credit[0])
		assert.Equal(t, batchIncome[i], income[0])
		assert.Equal(t, batchValue[i], value[0])
	}
}

func TestEngineer_ClampsOutsideFittedRange(t *testing.T) {
	binning, _, err := service.FitAndEngineer(model.CustomerFrame(testCustomers(40, 0.2, 3), true))
	require.NoError(t, err)

	outliers := []model.CustomerRecord{
		{Age: 40, CreditScore: 1, Income: 1, Balance: 1, Transactions: 1, Tenure: 1},
		{Age: 40, CreditScore: 10000, Income: 1e9, Balance: 1e9, Transactions: 1e6, Tenure: 1},
	}
	engineered, err := service.Engineer(model.CustomerFrame(outliers, false), binning)
	require.NoError(t, err)

	credit, _ := engineered.Labels(service.ColCreditScoreGroup)
	assert.Equal(t, []string{"Low", "Excellent"}, credit)
	income, _ := engineered.Labels(service.ColIncomeGroup)
	assert.Equal(t, []string{"Very Low", "Very High"}, income)
	value, _ := engineered.Labels(service.ColValueSegment)
	assert.Equal(t, []string{"Standard", "Premium"}, value)
}

func TestEngineer_RiskFlags(t *testing.T) {
	records := []model.CustomerRecord{
		{Age: 30, Balance: 10, NumProducts: 3, IsActiveMember: false, HasCreditCard: true},
		{Age: 30, Balance: 90000, NumProducts: 3, IsActiveMember: true, HasCreditCard: true},
		{Age: 30, Balance: 50000, NumProducts: 1, IsActiveMember: false, HasCreditCard: false},
		{Age: 30, Balance: 20000, NumProducts: 1, IsActiveMember: true, HasCreditCard: true},
	}
	_, engineered, err := service.FitAndEngineer(model.CustomerFrame(records, false))
	require.NoError(t, err)

	productRisk, _ := engineered.Numeric(service.ColProductBalanceRisk)
	assert.Equal(t, []float64{1, 0, 0, 0}, productRisk)
	ccRisk, _ := engineered.Numeric(service.ColInactiveWithCCRisk)
	assert.Equal(t, []float64{1, 0, 0, 0}, ccRisk)
}

func TestFitBinning_EmptyTable(t *testing.T) {
	_, err := service.FitBinning(model.NewFrame(0))
	assert.ErrorIs(t, err, model.ErrEmptyTable)
}
