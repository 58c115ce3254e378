package model

import "github.com/bibbank/churn-service/internal/domain/valueobject"

// RiskScore is one row of the persisted risk table. The table is regenerated
// wholesale by every training run.
type RiskScore struct {
	CustomerID       string
	ChurnProbability float64
	RiskCategory     valueobject.RiskCategory
	PredictedChurn   bool
}

// CategorySummary aggregates the risk table for one category.
type CategorySummary struct {
	Category           valueobject.RiskCategory
	CustomerCount      int
	AverageProbability float64
}

// RiskSummary is the dashboard view of a risk table.
type RiskSummary struct {
	TotalCustomers      int
	PredictedChurners   int
	AverageProbability  float64
	Categories          []CategorySummary
	ProbabilityBuckets  []int
	ProbabilityBinWidth float64
}

// CategoryCount returns the number of customers in a category.
func (s RiskSummary) CategoryCount(c valueobject.RiskCategory) int {
	for _, cs := range s.Categories {
		if cs.Category.Equal(c) {
			return cs.CustomerCount
		}
	}
	return 0
}
