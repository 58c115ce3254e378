package service

import (
	"fmt"
	"math"

	"github.com/bibbank/churn-service/internal/domain/model"
)

// Engineered column names.
const (
	ColAgeGroup              = "AgeGroup"
	ColHasBalance            = "HasBalance"
	ColBalancePerTransaction = "BalancePerTransaction"
	ColTransactionsPerMonth  = "TransactionsPerMonth"
	ColCreditScoreGroup      = "CreditScoreGroup"
	ColNewCustomer           = "NewCustomer"
	ColLoyalCustomer         = "LoyalCustomer"
	ColProductDensity        = "ProductDensity"
	ColIncomeGroup           = "IncomeGroup"
	ColCustomerValue         = "CustomerValue"
	ColValueSegment          = "ValueSegment"
	ColBalanceXProducts      = "Balance_x_Products"
	ColBalanceXIsActive      = "Balance_x_IsActive"
	ColProductBalanceRisk    = "ProductBalanceRisk"
	ColInactiveWithCCRisk    = "InactiveWithCCRisk"
	ColBalanceToIncome       = "BalanceToIncome"
)

const (
	minAge = 18
	maxAge = 100
)

// FitAndEngineer fits the binning on raw and engineers the same batch. Used
// on the training fold only.
func FitAndEngineer(raw *model.Frame) (FeatureBinning, *model.Frame, error) {
	binning, err := FitBinning(raw)
	if err != nil {
		return FeatureBinning{}, nil, err
	}
	engineered, err := Engineer(raw, binning)
	if err != nil {
		return FeatureBinning{}, nil, err
	}
	return binning, engineered, nil
}

// Engineer derives the feature table from a raw customer frame using frozen
// binning edges. The input frame is not modified; the identifier and target
// columns are carried through untouched. A derived column is skipped when any
// of its source columns is absent.
func Engineer(raw *model.Frame, binning FeatureBinning) (*model.Frame, error) {
	out := raw.Clone()
	n := raw.Rows()

	age, hasAge := raw.Numeric(model.ColAge)
	balance, hasBalance := raw.Numeric(model.ColBalance)
	tx, hasTx := raw.Numeric(model.ColTransactions)
	credit, hasCredit := raw.Numeric(model.ColCreditScore)
	tenure, hasTenure := raw.Numeric(model.ColTenure)
	income, hasIncome := raw.Numeric(model.ColIncome)
	products, hasProducts := raw.Numeric(model.ColNumProducts)
	card, hasCard := raw.Numeric(model.ColHasCreditCard)
	active, hasActive := raw.Numeric(model.ColIsActiveMember)

	var derived []derivedColumn

	if hasAge {
		groups := make([]string, n)
		for i, a := range age {
			g, err := ageGroup(a)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			groups[i] = g
		}
		derived = append(derived, categorical(ColAgeGroup, groups))
	}

	if hasBalance {
		derived = append(derived, numeric(ColHasBalance, mapRows(n, func(i int) float64 {
			return indicator(balance[i] > 0)
		})))
	}
	if hasBalance && hasTx {
		derived = append(derived, numeric(ColBalancePerTransaction, mapRows(n, func(i int) float64 {
			return perCount(balance[i], tx[i])
		})))
	}
	if hasTx && hasTenure {
		derived = append(derived, numeric(ColTransactionsPerMonth, mapRows(n, func(i int) float64 {
			return perCount(tx[i], tenure[i])
		})))
	}
	if hasCredit && binning.HasCredit {
		derived = append(derived, categorical(ColCreditScoreGroup, tierLabels(credit, binning.CreditCuts, CreditScoreTiers)))
	}
	if hasTenure {
		derived = append(derived,
			numeric(ColNewCustomer, mapRows(n, func(i int) float64 { return indicator(tenure[i] <= 1) })),
			numeric(ColLoyalCustomer, mapRows(n, func(i int) float64 { return indicator(tenure[i] >= 5) })),
		)
	}
	if hasProducts && hasTenure {
		derived = append(derived, numeric(ColProductDensity, mapRows(n, func(i int) float64 {
			return perCount(products[i], tenure[i])
		})))
	}
	if hasIncome && binning.HasIncome {
		derived = append(derived, categorical(ColIncomeGroup, tierLabels(income, binning.IncomeCuts, IncomeTiers)))
	}
	if value, ok := customerValue(raw); ok {
		derived = append(derived, numeric(ColCustomerValue, value))
		if binning.HasValue {
			derived = append(derived, categorical(ColValueSegment, tierLabels(value, binning.ValueCuts, ValueTiers)))
		}
	}
	if hasBalance && hasProducts {
		derived = append(derived, numeric(ColBalanceXProducts, mapRows(n, func(i int) float64 {
			return balance[i] * products[i]
		})))
	}
	if hasBalance && hasActive {
		derived = append(derived, numeric(ColBalanceXIsActive, mapRows(n, func(i int) float64 {
			return balance[i] * active[i]
		})))
	}
	if hasBalance && hasProducts && binning.HasBalance {
		derived = append(derived, numeric(ColProductBalanceRisk, mapRows(n, func(i int) float64 {
			return indicator(products[i] > 1 && balance[i] < binning.LowBalance)
		})))
	}
	if hasActive && hasCard {
		derived = append(derived, numeric(ColInactiveWithCCRisk, mapRows(n, func(i int) float64 {
			return indicator(active[i] == 0 && card[i] == 1)
		})))
	}
	if hasBalance && hasIncome {
		derived = append(derived, numeric(ColBalanceToIncome, mapRows(n, func(i int) float64 {
			return ratio(balance[i], income[i])
		})))
	}

	for _, d := range derived {
		var err error
		if d.labels != nil {
			err = out.AddCategorical(d.name, model.RoleFeature, d.labels)
		} else {
			err = out.AddNumeric(d.name, model.RoleFeature, d.values)
		}
		if err != nil {
			return nil, fmt.Errorf("add derived column: %w", err)
		}
	}
	return out, nil
}

type derivedColumn struct {
	name   string
	values []float64
	labels []string
}

func numeric(name string, values []float64) derivedColumn {
	return derivedColumn{name: name, values: values}
}

func categorical(name string, labels []string) derivedColumn {
	return derivedColumn{name: name, labels: labels}
}

// ageGroup buckets an age. A missing age lands in the unknown bucket.
func ageGroup(age float64) (string, error) {
	switch {
	case math.IsNaN(age):
		return UnknownCategory, nil
	case age < minAge || age > maxAge:
		return "", fmt.Errorf("%w: %v", model.ErrAgeOutOfRange, age)
	case age <= 30:
		return "18-30", nil
	case age <= 40:
		return "31-40", nil
	case age <= 50:
		return "41-50", nil
	case age <= 60:
		return "51-60", nil
	default:
		return "60+", nil
	}
}

func tierLabels(values, cuts []float64, labels []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = labels[tier(v, cuts)]
	}
	return out
}

func mapRows(n int, fn func(i int) float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = fn(i)
	}
	return out
}

// perCount divides by a count floored at 1. A zero numerator yields 0.
func perCount(num, count float64) float64 {
	if num == 0 {
		return 0
	}
	return num / math.Max(count, 1)
}

// ratio divides two amounts and yields 0 when the numerator is 0 or the
// denominator is not positive.
func ratio(num, den float64) float64 {
	if num == 0 || !(den > 0) {
		return 0
	}
	return num / den
}

func indicator(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
