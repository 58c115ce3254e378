package usecase

import (
	"log/slog"

	"github.com/bibbank/churn-service/internal/domain/port"
	"github.com/bibbank/churn-service/internal/domain/service"
)

// ServingSet groups the use cases exposed by the serving daemon over gRPC
// and REST.
type ServingSet struct {
	Predict          *PredictChurn
	RiskSummary      *GetRiskSummary
	ListAtRisk       *ListAtRiskCustomers
	EstimateCampaign *EstimateCampaign
	ModelInfo        *GetModelInfo
}

// NewServingSet wires every serving use case around one loaded bundle. bundle
// may be nil when no model has been trained yet.
func NewServingSet(
	bundle *service.ArtifactBundle,
	risks port.RiskScoreRepository,
	advisor *service.RetentionAdvisor,
	logger *slog.Logger,
) ServingSet {
	return ServingSet{
		Predict:          NewPredictChurn(bundle, advisor, logger),
		RiskSummary:      NewGetRiskSummary(risks, bundle),
		ListAtRisk:       NewListAtRiskCustomers(risks),
		EstimateCampaign: NewEstimateCampaign(risks, advisor),
		ModelInfo:        NewGetModelInfo(bundle),
	}
}

// ModelLoaded reports whether predictions can be served.
func (s ServingSet) ModelLoaded() bool {
	return s.ModelInfo != nil && s.ModelInfo.bundle != nil
}
