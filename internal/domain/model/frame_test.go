package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
)

func TestFrame_AddAndLookup(t *testing.T) {
	f := model.NewFrame(2)
	require.NoError(t, f.AddNumeric("Balance", model.RoleFeature, []float64{1.5, 2}))
	require.NoError(t, f.AddCategorical("Segment", model.RoleFeature, []string{"a", "b"}))

	assert.Equal(t, 2, f.Rows())
	assert.Equal(t, []string{"Balance", "Segment"}, f.Names())

	values, ok := f.Numeric("Balance")
	require.True(t, ok)
	assert.Equal(t, []float64{1.5, 2}, values)

	_, ok = f.Numeric("Segment")
	assert.False(t, ok, "kind is declared, not inferred")
	_, ok = f.Labels("Missing")
	assert.False(t, ok)

	c, ok := f.Column("Balance")
	require.True(t, ok)
	assert.Equal(t, "1.5", c.StringAt(0))
	assert.Equal(t, "numeric", c.Kind.String())
}

func TestFrame_Errors(t *testing.T) {
	f := model.NewFrame(2)
	require.NoError(t, f.AddNumeric("A", model.RoleFeature, []float64{1, 2}))

	assert.ErrorIs(t, f.AddNumeric("A", model.RoleFeature, []float64{1, 2}), model.ErrDuplicateColumn)
	assert.ErrorIs(t, f.AddCategorical("B", model.RoleFeature, []string{"x"}), model.ErrColumnLength)
}

func TestFrame_SubsetCopies(t *testing.T) {
	f := model.NewFrame(3)
	require.NoError(t, f.AddNumeric("A", model.RoleFeature, []float64{10, 20, 30}))
	require.NoError(t, f.AddCategorical("B", model.RoleIdentifier, []string{"x", "y", "z"}))

	sub := f.Subset([]int{2, 0})
	a, _ := sub.Numeric("A")
	b, _ := sub.Labels("B")
	assert.Equal(t, []float64{30, 10}, a)
	assert.Equal(t, []string{"z", "x"}, b)

	a[0] = 99
	orig, _ := f.Numeric("A")
	assert.Equal(t, 30.0, orig[2])

	col, _ := sub.Column("B")
	assert.Equal(t, model.RoleIdentifier, col.Role)
}

func TestCustomerFrame(t *testing.T) {
	records := []model.CustomerRecord{
		{CustomerID: "C1", Age: 30, Balance: 100, HasCreditCard: true, Churn: true},
		{CustomerID: "C2", Age: 40, Balance: 0, IsActiveMember: true},
	}

	f := model.CustomerFrame(records, true)
	assert.Equal(t, 2, f.Rows())
	assert.Equal(t, []string{"C1", "C2"}, model.Identifiers(f))

	labels, err := model.TargetLabels(f)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, labels)

	card, _ := f.Numeric(model.ColHasCreditCard)
	assert.Equal(t, []float64{1, 0}, card)

	_, err = model.TargetLabels(model.CustomerFrame(records, false))
	assert.ErrorIs(t, err, model.ErrMissingTarget)
}

func TestTargetLabels_Validation(t *testing.T) {
	_, err := model.TargetLabels(model.NewFrame(0))
	assert.ErrorIs(t, err, model.ErrEmptyTable)

	f := model.NewFrame(2)
	require.NoError(t, f.AddNumeric(model.ColChurn, model.RoleTarget, []float64{0, 2}))
	_, err = model.TargetLabels(f)
	assert.ErrorIs(t, err, model.ErrInvalidTarget)
}

func TestChurnRatio(t *testing.T) {
	assert.Equal(t, 0.0, model.ChurnRatio(nil))
	assert.Equal(t, 0.25, model.ChurnRatio([]int{0, 0, 0, 1}))

	neg, pos := model.ClassCounts([]int{1, 0, 1})
	assert.Equal(t, 1, neg)
	assert.Equal(t, 2, pos)
}
