package dto

import "github.com/bibbank/churn-service/internal/domain/service"

// PredictRequest carries one customer's raw attributes keyed by column name,
// e.g. "Age", "Balance", "IsActiveMember".
type PredictRequest struct {
	Customer map[string]any `json:"customer"`
}

// PredictResponse is the scored customer with retention advice. Money values
// are decimal strings.
type PredictResponse struct {
	Recommendations  []service.Recommendation `json:"recommendations"`
	Warnings         []string                 `json:"warnings,omitempty"`
	Segment          *SegmentAssignment       `json:"segment,omitempty"`
	CustomerID       string                   `json:"customer_id,omitempty"`
	RiskCategory     string                   `json:"risk_category"`
	ModelName        string                   `json:"model_name"`
	ModelVersion     string                   `json:"model_version"`
	LifetimeValue    string                   `json:"customer_lifetime_value"`
	ExpectedSaving   string                   `json:"expected_saving"`
	CampaignROI      string                   `json:"campaign_roi"`
	ChurnProbability float64                  `json:"churn_probability"`
	Threshold        float64                  `json:"threshold"`
	PredictedChurn   bool                     `json:"predicted_churn"`
}

// SegmentAssignment is the customer segment a scored customer falls into.
type SegmentAssignment struct {
	Description string `json:"description"`
	Segment     int    `json:"segment"`
}
