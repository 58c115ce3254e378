package service

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/bibbank/churn-service/internal/domain/model"
)

// Tier labels for the quantile-based groupings.
var (
	CreditScoreTiers = []string{"Low", "Medium", "Good", "Excellent"}
	IncomeTiers      = []string{"Very Low", "Low", "Medium", "High", "Very High"}
	ValueTiers       = []string{"Standard", "Plus", "Premium"}
)

// lowBalanceQuantile is the balance percentile below which a multi-product
// customer is flagged by ProductBalanceRisk.
const lowBalanceQuantile = 0.3

// FeatureBinning holds the quantile edges learned from the training fold.
// Edges are frozen here and reapplied verbatim to every later batch, including
// single-row serving requests where per-batch quantiles would be meaningless.
type FeatureBinning struct {
	CreditCuts   []float64
	IncomeCuts   []float64
	ValueCuts    []float64
	LowBalance   float64
	HasCredit    bool
	HasIncome    bool
	HasValue     bool
	HasBalance   bool
	FittedOnRows int
}

// FitBinning learns the quantile edges from a raw customer batch. Source
// columns that are absent leave the corresponding edges unfitted, and the
// dependent derived column is skipped by Engineer.
func FitBinning(raw *model.Frame) (FeatureBinning, error) {
	if raw.Rows() == 0 {
		return FeatureBinning{}, model.ErrEmptyTable
	}

	b := FeatureBinning{FittedOnRows: raw.Rows()}

	if credit, ok := raw.Numeric(model.ColCreditScore); ok {
		b.CreditCuts = quantileCuts(credit, len(CreditScoreTiers))
		b.HasCredit = true
	}
	if income, ok := raw.Numeric(model.ColIncome); ok {
		b.IncomeCuts = quantileCuts(income, len(IncomeTiers))
		b.HasIncome = true
	}
	if value, ok := customerValue(raw); ok {
		b.ValueCuts = quantileCuts(value, len(ValueTiers))
		b.HasValue = true
	}
	if balance, ok := raw.Numeric(model.ColBalance); ok {
		sorted := sortedFinite(balance)
		if len(sorted) > 0 {
			b.LowBalance = stat.Quantile(lowBalanceQuantile, stat.LinInterp, sorted, nil)
			b.HasBalance = true
		}
	}

	return b, nil
}

// quantileCuts returns the q-1 interior edges splitting values into q tiers.
func quantileCuts(values []float64, q int) []float64 {
	sorted := sortedFinite(values)
	cuts := make([]float64, q-1)
	if len(sorted) == 0 {
		return cuts
	}
	for i := 1; i < q; i++ {
		cuts[i-1] = stat.Quantile(float64(i)/float64(q), stat.LinInterp, sorted, nil)
	}
	return cuts
}

// tier places x among the cuts. Values at or below the first cut land in tier
// 0; values beyond the fitted range clamp to the outermost tier.
func tier(x float64, cuts []float64) int {
	if math.IsNaN(x) {
		return 0
	}
	t := 0
	for _, c := range cuts {
		if x > c {
			t++
		}
	}
	return t
}

func sortedFinite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	sort.Float64s(out)
	return out
}

// customerValue is the weighted blend of balance, activity and income, in thousands.
func customerValue(raw *model.Frame) ([]float64, bool) {
	balance, okB := raw.Numeric(model.ColBalance)
	tx, okT := raw.Numeric(model.ColTransactions)
	income, okI := raw.Numeric(model.ColIncome)
	if !okB || !okT || !okI {
		return nil, false
	}
	out := make([]float64, raw.Rows())
	for i := range out {
		out[i] = (balance[i]*0.3 + tx[i]*0.3 + income[i]*0.4) / 1000
	}
	return out, true
}
