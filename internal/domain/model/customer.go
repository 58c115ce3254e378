package model

import (
	"fmt"
	"math"
)

// Raw customer table columns.
const (
	ColCustomerID     = "CustomerID"
	ColAge            = "Age"
	ColBalance        = "Balance"
	ColTransactions   = "Transactions"
	ColCreditScore    = "CreditScore"
	ColTenure         = "Tenure"
	ColIncome         = "Income"
	ColNumProducts    = "NumProducts"
	ColHasCreditCard  = "HasCreditCard"
	ColIsActiveMember = "IsActiveMember"
	ColChurn          = "Churn"
)

// NumericSourceColumns are the raw attributes declared numeric by the customer schema.
var NumericSourceColumns = []string{
	ColAge,
	ColBalance,
	ColTransactions,
	ColCreditScore,
	ColTenure,
	ColIncome,
	ColNumProducts,
	ColHasCreditCard,
	ColIsActiveMember,
}

// CustomerRecord is one row of raw customer attributes.
type CustomerRecord struct {
	CustomerID     string  `json:"customer_id"`
	Age            int     `json:"age"`
	Balance        float64 `json:"balance"`
	Transactions   int     `json:"transactions"`
	CreditScore    int     `json:"credit_score"`
	Tenure         int     `json:"tenure"`
	Income         float64 `json:"income"`
	NumProducts    int     `json:"num_products"`
	HasCreditCard  bool    `json:"has_credit_card"`
	IsActiveMember bool    `json:"is_active_member"`
	Churn          bool    `json:"churn"`
}

// CustomerFrame builds a raw customer frame from typed records. The Churn
// target column is only included when withTarget is set.
func CustomerFrame(records []CustomerRecord, withTarget bool) *Frame {
	n := len(records)
	ids := make([]string, n)
	cols := make(map[string][]float64, len(NumericSourceColumns))
	for _, name := range NumericSourceColumns {
		cols[name] = make([]float64, n)
	}
	churn := make([]float64, n)

	for i, r := range records {
		ids[i] = r.CustomerID
		cols[ColAge][i] = float64(r.Age)
		cols[ColBalance][i] = r.Balance
		cols[ColTransactions][i] = float64(r.Transactions)
		cols[ColCreditScore][i] = float64(r.CreditScore)
		cols[ColTenure][i] = float64(r.Tenure)
		cols[ColIncome][i] = r.Income
		cols[ColNumProducts][i] = float64(r.NumProducts)
		cols[ColHasCreditCard][i] = boolToFloat(r.HasCreditCard)
		cols[ColIsActiveMember][i] = boolToFloat(r.IsActiveMember)
		churn[i] = boolToFloat(r.Churn)
	}

	f := NewFrame(n)
	_ = f.AddCategorical(ColCustomerID, RoleIdentifier, ids)
	for _, name := range NumericSourceColumns {
		_ = f.AddNumeric(name, RoleFeature, cols[name])
	}
	if withTarget {
		_ = f.AddNumeric(ColChurn, RoleTarget, churn)
	}
	return f
}

// TargetLabels validates and extracts the binary Churn target.
func TargetLabels(f *Frame) ([]int, error) {
	if f.Rows() == 0 {
		return nil, ErrEmptyTable
	}
	values, ok := f.Numeric(ColChurn)
	if !ok {
		return nil, ErrMissingTarget
	}
	labels := make([]int, len(values))
	for i, v := range values {
		switch v {
		case 0:
			labels[i] = 0
		case 1:
			labels[i] = 1
		default:
			return nil, fmt.Errorf("%w: row %d has %v", ErrInvalidTarget, i, v)
		}
	}
	return labels, nil
}

// Identifiers returns the customer identifiers, or nil when the frame has none.
func Identifiers(f *Frame) []string {
	ids, ok := f.Labels(ColCustomerID)
	if !ok {
		return nil
	}
	return ids
}

// ClassCounts returns the number of non-churn and churn labels.
func ClassCounts(labels []int) (negatives, positives int) {
	for _, y := range labels {
		if y == 1 {
			positives++
		} else {
			negatives++
		}
	}
	return negatives, positives
}

// ChurnRatio is the share of positive labels, 0 for an empty slice.
func ChurnRatio(labels []int) float64 {
	if len(labels) == 0 {
		return 0
	}
	_, pos := ClassCounts(labels)
	return math.Round(float64(pos)/float64(len(labels))*1e4) / 1e4
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
