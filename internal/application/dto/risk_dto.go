package dto

import (
	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

// CategoryBreakdown is the dashboard entry for one risk category.
type CategoryBreakdown struct {
	Name               string  `json:"name"`
	Value              int     `json:"value"`
	AverageProbability float64 `json:"average_probability"`
}

// ProbabilityBucket is one histogram bin of churn probabilities.
type ProbabilityBucket struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int     `json:"count"`
}

// RiskSummaryResponse is the dashboard summary of the current risk table.
type RiskSummaryResponse struct {
	RiskDistribution        []CategoryBreakdown `json:"risk_distribution"`
	ProbabilityHistogram    []ProbabilityBucket `json:"probability_histogram"`
	TotalCustomers          int                 `json:"total_customers"`
	AtRiskCount             int                 `json:"at_risk_count"`
	HighRiskCount           int                 `json:"high_risk_count"`
	Segments                []SegmentProfileDTO `json:"segments,omitempty"`
	PredictedChurners       int                 `json:"predicted_churners"`
	AverageChurnProbability float64             `json:"average_churn_probability"`
}

// SegmentProfileDTO is one customer segment of the served model's training
// run. Attributes holds the segment mean of each raw customer attribute.
type SegmentProfileDTO struct {
	Attributes              map[string]float64 `json:"attributes"`
	Description             string             `json:"description"`
	Segment                 int                `json:"segment"`
	CustomerCount           int                `json:"customer_count"`
	AverageChurnProbability float64            `json:"average_churn_probability"`
}

// ListAtRiskRequest pages through the risk table. Risk is a category name or
// "all"; empty means all.
type ListAtRiskRequest struct {
	Risk   string `json:"risk"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}

// RiskScoreDTO is one risk table row.
type RiskScoreDTO struct {
	CustomerID       string  `json:"customer_id"`
	RiskCategory     string  `json:"risk_category"`
	ChurnProbability float64 `json:"churn_probability"`
	PredictedChurn   bool    `json:"predicted_churn"`
}

// ListAtRiskResponse is one page of at-risk customers.
type ListAtRiskResponse struct {
	Customers []RiskScoreDTO `json:"customers"`
	Total     int            `json:"total"`
	Limit     int            `json:"limit"`
	Offset    int            `json:"offset"`
}

// FromRiskScore maps a risk table row to its DTO.
func FromRiskScore(s model.RiskScore) RiskScoreDTO {
	return RiskScoreDTO{
		CustomerID:       s.CustomerID,
		RiskCategory:     s.RiskCategory.String(),
		ChurnProbability: s.ChurnProbability,
		PredictedChurn:   s.PredictedChurn,
	}
}

// FromRiskSummary maps the domain summary to the dashboard response.
func FromRiskSummary(s model.RiskSummary) RiskSummaryResponse {
	resp := RiskSummaryResponse{
		TotalCustomers:          s.TotalCustomers,
		PredictedChurners:       s.PredictedChurners,
		AverageChurnProbability: s.AverageProbability,
		RiskDistribution:        make([]CategoryBreakdown, 0, len(s.Categories)),
		ProbabilityHistogram:    make([]ProbabilityBucket, 0, len(s.ProbabilityBuckets)),
	}
	for _, c := range s.Categories {
		resp.RiskDistribution = append(resp.RiskDistribution, CategoryBreakdown{
			Name:               c.Category.String(),
			Value:              c.CustomerCount,
			AverageProbability: c.AverageProbability,
		})
		if c.Category.IsHigh() {
			resp.HighRiskCount = c.CustomerCount
		}
		if !c.Category.Equal(valueobject.RiskCategoryLow) {
			resp.AtRiskCount += c.CustomerCount
		}
	}
	for i, n := range s.ProbabilityBuckets {
		resp.ProbabilityHistogram = append(resp.ProbabilityHistogram, ProbabilityBucket{
			From:  float64(i) * s.ProbabilityBinWidth,
			To:    float64(i+1) * s.ProbabilityBinWidth,
			Count: n,
		})
	}
	return resp
}

// FromSegmentProfiles maps segment profiles to DTOs; no profiles yield nil.
func FromSegmentProfiles(profiles []model.SegmentProfile) []SegmentProfileDTO {
	if len(profiles) == 0 {
		return nil
	}
	out := make([]SegmentProfileDTO, len(profiles))
	for i, p := range profiles {
		attrs := make(map[string]float64, len(p.Attributes))
		for _, a := range p.Attributes {
			attrs[a.Column] = a.Mean
		}
		out[i] = SegmentProfileDTO{
			Attributes:              attrs,
			Description:             p.Description,
			Segment:                 p.Segment,
			CustomerCount:           p.CustomerCount,
			AverageChurnProbability: p.AverageChurnProbability,
		}
	}
	return out
}
