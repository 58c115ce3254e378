package service

import (
	"fmt"
	"log/slog"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

// ProbabilityBins is the number of histogram bins in a risk summary.
const ProbabilityBins = 10

// PositionalID is the identifier synthesized for row i when the supplied
// identifiers cannot be used.
func PositionalID(i int) string {
	return fmt.Sprintf("CUST%06d", i)
}

// ScoreRisk scores every row of X. When ids is missing or its length differs
// from X, positional identifiers are used instead and a warning is logged. The
// risk category follows fixed cut points and is independent of the threshold,
// which only drives PredictedChurn. Models without probability output score
// their hard predictions as 0 or 1.
func ScoreRisk(m Classifier, X [][]float64, ids []string, threshold valueobject.Threshold, logger *slog.Logger) []model.RiskScore {
	if len(ids) != len(X) {
		logger.Warn("customer ids missing or mismatched, using positional ids",
			"ids", len(ids),
			"rows", len(X),
		)
		ids = make([]string, len(X))
		for i := range ids {
			ids[i] = PositionalID(i)
		}
	}

	proba, ok := Probabilities(m, X)
	if !ok {
		pred := m.Predict(X)
		proba = make([]float64, len(pred))
		for i, p := range pred {
			proba[i] = float64(p)
		}
	}

	scores := make([]model.RiskScore, len(X))
	for i, p := range proba {
		scores[i] = model.RiskScore{
			CustomerID:       ids[i],
			ChurnProbability: p,
			RiskCategory:     valueobject.RiskCategoryFromProbability(p),
			PredictedChurn:   threshold.Predict(p),
		}
	}
	return scores
}

// SummarizeRisk aggregates a risk table for the dashboard.
func SummarizeRisk(scores []model.RiskScore) model.RiskSummary {
	summary := model.RiskSummary{
		TotalCustomers:      len(scores),
		ProbabilityBuckets:  make([]int, ProbabilityBins),
		ProbabilityBinWidth: 1.0 / ProbabilityBins,
	}

	cats := valueobject.RiskCategories()
	counts := make([]int, len(cats))
	sums := make([]float64, len(cats))
	var total float64

	for _, s := range scores {
		total += s.ChurnProbability
		if s.PredictedChurn {
			summary.PredictedChurners++
		}
		for i, c := range cats {
			if s.RiskCategory.Equal(c) {
				counts[i]++
				sums[i] += s.ChurnProbability
			}
		}
		bin := int(s.ChurnProbability * ProbabilityBins)
		summary.ProbabilityBuckets[min(max(bin, 0), ProbabilityBins-1)]++
	}

	summary.AverageProbability = safeDiv(total, float64(len(scores)))
	for i, c := range cats {
		summary.Categories = append(summary.Categories, model.CategorySummary{
			Category:           c,
			CustomerCount:      counts[i],
			AverageProbability: safeDiv(sums[i], float64(counts[i])),
		})
	}
	return summary
}
