package usecase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/bibbank/churn-service/internal/application/dto"
	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/port"
	"github.com/bibbank/churn-service/internal/domain/service"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

// EstimateCampaign projects the economics of a retention campaign aimed at
// one risk category.
type EstimateCampaign struct {
	risks   port.RiskScoreRepository
	advisor *service.RetentionAdvisor
}

// NewEstimateCampaign creates a new EstimateCampaign use case.
func NewEstimateCampaign(risks port.RiskScoreRepository, advisor *service.RetentionAdvisor) *EstimateCampaign {
	return &EstimateCampaign{risks: risks, advisor: advisor}
}

// Execute fills the customer count and mean probability from the risk table
// when the request leaves them zero, then applies the advisor's campaign cost
// and success rate to every targeted customer.
func (uc *EstimateCampaign) Execute(ctx context.Context, req dto.EstimateCampaignRequest) (dto.CampaignEstimateResponse, error) {
	category := valueobject.RiskCategoryHigh
	if req.RiskCategory != "" {
		c, err := parseRiskFilter(req.RiskCategory)
		if err != nil {
			return dto.CampaignEstimateResponse{}, err
		}
		if c.IsZero() {
			return dto.CampaignEstimateResponse{}, fmt.Errorf("%w: campaign needs a single risk category", model.ErrInvalidInput)
		}
		category = c
	}
	if !req.AverageLifetimeValue.IsPositive() {
		return dto.CampaignEstimateResponse{}, fmt.Errorf("%w: average lifetime value must be positive", model.ErrInvalidInput)
	}
	if req.Customers < 0 {
		return dto.CampaignEstimateResponse{}, fmt.Errorf("%w: customers must not be negative", model.ErrInvalidInput)
	}
	if req.AverageChurnProbability < 0 || req.AverageChurnProbability > 1 {
		return dto.CampaignEstimateResponse{}, fmt.Errorf("%w: average churn probability must be within [0, 1]", model.ErrInvalidInput)
	}

	customers, probability := req.Customers, req.AverageChurnProbability
	if customers == 0 || probability == 0 {
		scores, err := uc.risks.FindAll(ctx)
		if err != nil {
			return dto.CampaignEstimateResponse{}, fmt.Errorf("failed to read risk table: %w", err)
		}
		for _, cs := range service.SummarizeRisk(scores).Categories {
			if !cs.Category.Equal(category) {
				continue
			}
			if customers == 0 {
				customers = cs.CustomerCount
			}
			if probability == 0 {
				probability = cs.AverageProbability
			}
		}
	}

	saving, roi := uc.advisor.CampaignReturn(req.AverageLifetimeValue, probability)
	n := decimal.NewFromInt(int64(customers))
	totalSaving := saving.Mul(n)
	totalCost := decimal.NewFromFloat(uc.advisor.Config().CampaignCostPerCustomer).Mul(n)

	return dto.CampaignEstimateResponse{
		RiskCategory:            category.String(),
		TotalCost:               totalCost.StringFixed(2),
		ExpectedSaving:          totalSaving.StringFixed(2),
		NetBenefit:              totalSaving.Sub(totalCost).StringFixed(2),
		ROI:                     roi.String(),
		Customers:               customers,
		AverageChurnProbability: probability,
	}, nil
}
