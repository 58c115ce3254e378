package service_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
)

// twoGroups returns young low-balance customers in the first half and senior
// wealthy ones in the second.
func twoGroups(t *testing.T, n int) *model.Frame {
	t.Helper()
	age := make([]float64, n)
	balance := make([]float64, n)
	for i := range age {
		jitter := float64(i % 5)
		if i < n/2 {
			age[i], balance[i] = 24+jitter, 1000+100*jitter
		} else {
			age[i], balance[i] = 66+jitter, 90000+100*jitter
		}
	}
	f := model.NewFrame(n)
	require.NoError(t, f.AddNumeric(model.ColAge, model.RoleFeature, age))
	require.NoError(t, f.AddNumeric(model.ColBalance, model.RoleFeature, balance))
	return f
}

func TestFitSegmentation_SeparatesGroups(t *testing.T) {
	raw := twoGroups(t, 20)
	seg, err := service.FitSegmentation(raw, 2, service.DefaultSeed)
	require.NoError(t, err)

	assert.Equal(t, []string{model.ColAge, model.ColBalance}, seg.Columns())
	require.Len(t, seg.Centroids, 2)

	assigned := seg.Assign(raw)
	for i := 1; i < 10; i++ {
		assert.Equal(t, assigned[0], assigned[i])
		assert.Equal(t, assigned[10], assigned[10+i])
	}
	assert.NotEqual(t, assigned[0], assigned[10])
}

func TestFitSegmentation_Deterministic(t *testing.T) {
	raw := model.CustomerFrame(testCustomers(120, 0.2, 5), true)

	a, err := service.FitSegmentation(raw, service.DefaultSegmentCount, 11)
	require.NoError(t, err)
	b, err := service.FitSegmentation(raw, service.DefaultSegmentCount, 11)
	require.NoError(t, err)

	assert.Equal(t, a.Centroids, b.Centroids)
	assert.Equal(t, a.Assign(raw), b.Assign(raw))
	assert.Len(t, a.Columns(), len(service.SegmentationColumns))
}

func TestFitSegmentation_CapsSegmentsAtRows(t *testing.T) {
	seg, err := service.FitSegmentation(twoGroups(t, 3), 8, service.DefaultSeed)
	require.NoError(t, err)
	assert.Len(t, seg.Centroids, 3)
}

func TestFitSegmentation_Errors(t *testing.T) {
	_, err := service.FitSegmentation(model.NewFrame(0), 2, 1)
	assert.ErrorIs(t, err, model.ErrEmptyTable)

	_, err = service.FitSegmentation(twoGroups(t, 4), 0, 1)
	assert.Error(t, err)

	noColumns := model.NewFrame(2)
	require.NoError(t, noColumns.AddCategorical("Region", model.RoleFeature, []string{"n", "s"}))
	_, err = service.FitSegmentation(noColumns, 2, 1)
	assert.Error(t, err)
}

func TestCustomerSegmentation_AssignImputesMissingValues(t *testing.T) {
	seg, err := service.FitSegmentation(twoGroups(t, 20), 2, service.DefaultSeed)
	require.NoError(t, err)

	serve := model.NewFrame(2)
	require.NoError(t, serve.AddNumeric(model.ColAge, model.RoleFeature, []float64{25, math.NaN()}))
	assigned := seg.Assign(serve)
	require.Len(t, assigned, 2)
	for _, s := range assigned {
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 2)
	}
}

func TestCustomerSegmentation_Profile(t *testing.T) {
	raw := twoGroups(t, 20)
	seg, err := service.FitSegmentation(raw, 2, service.DefaultSeed)
	require.NoError(t, err)

	proba := make([]float64, 20)
	for i := 10; i < 20; i++ {
		proba[i] = 0.8
	}
	profiles, err := seg.Profile(raw, proba)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	senior := profiles[seg.Assign(raw)[10]]
	assert.Equal(t, 10, senior.CustomerCount)
	assert.InDelta(t, 0.8, senior.AverageChurnProbability, 1e-12)
	age, ok := senior.Attribute(model.ColAge)
	require.True(t, ok)
	assert.InDelta(t, 68, age, 1e-12)
	assert.Equal(t, service.DescribeSegment(senior), senior.Description)
	assert.Contains(t, senior.Description, "Senior customers with high value")

	seg.Profiles = profiles
	assert.Equal(t, senior.Description, seg.Describe(senior.Segment))
	assert.Empty(t, seg.Describe(9))

	_, err = seg.Profile(raw, proba[:3])
	assert.ErrorIs(t, err, model.ErrShapeMismatch)
}

func TestDescribeSegment(t *testing.T) {
	attrs := func(kv ...float64) []model.SegmentAttribute {
		cols := []string{model.ColAge, model.ColBalance, model.ColIncome, model.ColTransactions, model.ColNumProducts}
		out := make([]model.SegmentAttribute, len(kv))
		for i, v := range kv {
			out[i] = model.SegmentAttribute{Column: cols[i], Mean: v}
		}
		return out
	}

	tests := []struct {
		name    string
		profile model.SegmentProfile
		want    string
	}{
		{
			name:    "young low value inactive single product loyal",
			profile: model.SegmentProfile{Segment: 0, AverageChurnProbability: 0.1, Attributes: attrs(25, 2000, 30000, 10, 1)},
			want:    "Segment 0: Young customers with low value who are inactive with single product with high loyalty",
		},
		{
			name:    "senior high value active multi product at risk",
			profile: model.SegmentProfile{Segment: 3, AverageChurnProbability: 0.7, Attributes: attrs(62, 80000, 40000, 150, 3)},
			want:    "Segment 3: Senior customers with high value who are highly active with multiple products at high risk of churning",
		},
		{
			name:    "middle-aged average",
			profile: model.SegmentProfile{Segment: 1, AverageChurnProbability: 0.3, Attributes: attrs(40, 20000, 60000, 50, 2)},
			want:    "Segment 1: Middle-aged customers",
		},
		{
			name:    "no attributes",
			profile: model.SegmentProfile{Segment: 2, AverageChurnProbability: 0.3},
			want:    "Segment 2: Customers",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, service.DescribeSegment(tt.profile))
		})
	}
}
