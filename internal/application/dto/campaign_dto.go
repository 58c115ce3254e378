package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bibbank/churn-service/internal/domain/service"
)

// EstimateCampaignRequest describes a retention campaign aimed at one risk
// category. Customers and AverageChurnProbability default to the current
// risk table when zero.
type EstimateCampaignRequest struct {
	AverageLifetimeValue    decimal.Decimal `json:"average_lifetime_value"`
	RiskCategory            string          `json:"risk_category"`
	Customers               int             `json:"customers"`
	AverageChurnProbability float64         `json:"average_churn_probability"`
}

// CampaignEstimateResponse is the projected economics of a campaign. Money
// values are decimal strings.
type CampaignEstimateResponse struct {
	RiskCategory            string  `json:"risk_category"`
	TotalCost               string  `json:"total_cost"`
	ExpectedSaving          string  `json:"expected_saving"`
	NetBenefit              string  `json:"net_benefit"`
	ROI                     string  `json:"roi"`
	Customers               int     `json:"customers"`
	AverageChurnProbability float64 `json:"average_churn_probability"`
}

// ModelInfoResponse describes the bundle currently being served.
type ModelInfoResponse struct {
	CreatedAt    time.Time                  `json:"created_at"`
	Metrics      service.CoreMetrics        `json:"metrics"`
	Candidates   []service.CandidateMetrics `json:"candidates"`
	FeatureNames []string                   `json:"feature_names"`
	InputColumns []string                   `json:"input_columns"`
	RunID        string                     `json:"run_id"`
	Version      string                     `json:"version"`
	ModelName    string                     `json:"model_name"`
	Threshold    float64                    `json:"threshold"`
	TrainingRows int                        `json:"training_rows"`
}

// FromBundle maps an artifact bundle to its info response.
func FromBundle(b *service.ArtifactBundle) ModelInfoResponse {
	return ModelInfoResponse{
		CreatedAt:    b.CreatedAt,
		Metrics:      b.Metrics,
		Candidates:   b.Candidates,
		FeatureNames: b.FeatureNames,
		InputColumns: b.InputColumns,
		RunID:        b.RunID,
		Version:      b.Version,
		ModelName:    b.ModelName,
		Threshold:    b.DecisionThreshold,
		TrainingRows: b.TrainingRows,
	}
}
