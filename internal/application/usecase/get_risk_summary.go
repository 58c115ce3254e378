package usecase

import (
	"context"
	"fmt"

	"github.com/bibbank/churn-service/internal/application/dto"
	"github.com/bibbank/churn-service/internal/domain/port"
	"github.com/bibbank/churn-service/internal/domain/service"
)

// GetRiskSummary is the use case behind the dashboard summary.
type GetRiskSummary struct {
	risks  port.RiskScoreRepository
	bundle *service.ArtifactBundle
}

// NewGetRiskSummary creates a new GetRiskSummary use case. The segment
// profiles come from bundle, which may be nil.
func NewGetRiskSummary(risks port.RiskScoreRepository, bundle *service.ArtifactBundle) *GetRiskSummary {
	return &GetRiskSummary{risks: risks, bundle: bundle}
}

// Execute summarizes the current risk table. An empty table yields zero counts.
func (uc *GetRiskSummary) Execute(ctx context.Context) (dto.RiskSummaryResponse, error) {
	scores, err := uc.risks.FindAll(ctx)
	if err != nil {
		return dto.RiskSummaryResponse{}, fmt.Errorf("failed to read risk table: %w", err)
	}
	resp := dto.FromRiskSummary(service.SummarizeRisk(scores))
	if uc.bundle != nil && uc.bundle.Segmentation != nil {
		resp.Segments = dto.FromSegmentProfiles(uc.bundle.Segmentation.Profiles)
	}
	return resp, nil
}
