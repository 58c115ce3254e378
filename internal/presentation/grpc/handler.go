package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/bibbank/churn-service/internal/application/dto"
	"github.com/bibbank/churn-service/internal/application/usecase"
	"github.com/bibbank/churn-service/internal/domain/model"
)

// Compile-time assertion that ChurnServiceHandler implements ChurnServiceServer.
var _ ChurnServiceServer = (*ChurnServiceHandler)(nil)

// ChurnServiceHandler implements the gRPC ChurnServiceServer interface.
type ChurnServiceHandler struct {
	UnimplementedChurnServiceServer
	uc     usecase.ServingSet
	logger *slog.Logger
}

// NewChurnServiceHandler creates a new gRPC handler.
func NewChurnServiceHandler(uc usecase.ServingSet, logger *slog.Logger) *ChurnServiceHandler {
	return &ChurnServiceHandler{uc: uc, logger: logger}
}

// Proto-aligned request/response message types.

// PredictRequest represents the proto PredictRequest message.
type PredictRequest struct {
	Customer map[string]any `json:"customer"`
}

// RecommendationMsg represents the proto Recommendation message.
type RecommendationMsg struct {
	Action         string `json:"action"`
	Description    string `json:"description"`
	ExpectedImpact string `json:"expected_impact"`
	Priority       string `json:"priority"`
}

// PredictResponse represents the proto PredictResponse message.
type PredictResponse struct {
	CustomerID            string               `json:"customer_id"`
	ChurnProbability      float64              `json:"churn_probability"`
	RiskCategory          string               `json:"risk_category"`
	PredictedChurn        bool                 `json:"predicted_churn"`
	Threshold             float64              `json:"threshold"`
	ModelVersion          string               `json:"model_version"`
	CustomerLifetimeValue string               `json:"customer_lifetime_value"`
	ExpectedSaving        string               `json:"expected_saving"`
	CampaignROI           string               `json:"campaign_roi"`
	Recommendations       []*RecommendationMsg `json:"recommendations"`
	Warnings              []string             `json:"warnings"`
	Segment               *SegmentMsg          `json:"segment,omitempty"`
}

// SegmentMsg represents the proto CustomerSegment message.
type SegmentMsg struct {
	Segment     int32  `json:"segment"`
	Description string `json:"description"`
}

// GetRiskSummaryRequest represents the proto GetRiskSummaryRequest message.
type GetRiskSummaryRequest struct{}

// CategoryMsg represents the proto RiskCategorySummary message.
type CategoryMsg struct {
	Name               string  `json:"name"`
	Count              int32   `json:"count"`
	AverageProbability float64 `json:"average_probability"`
}

// BucketMsg represents the proto ProbabilityBucket message.
type BucketMsg struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Count int32   `json:"count"`
}

// GetRiskSummaryResponse represents the proto GetRiskSummaryResponse message.
type GetRiskSummaryResponse struct {
	TotalCustomers          int32                `json:"total_customers"`
	AtRiskCount             int32                `json:"at_risk_count"`
	HighRiskCount           int32                `json:"high_risk_count"`
	PredictedChurners       int32                `json:"predicted_churners"`
	AverageChurnProbability float64              `json:"average_churn_probability"`
	Categories              []*CategoryMsg       `json:"categories"`
	Histogram               []*BucketMsg         `json:"histogram"`
	Segments                []*SegmentProfileMsg `json:"segments"`
}

// SegmentProfileMsg represents the proto SegmentProfile message.
type SegmentProfileMsg struct {
	Segment                 int32              `json:"segment"`
	Description             string             `json:"description"`
	CustomerCount           int32              `json:"customer_count"`
	AverageChurnProbability float64            `json:"average_churn_probability"`
	Attributes              map[string]float64 `json:"attributes"`
}

// ListAtRiskCustomersRequest represents the proto ListAtRiskCustomersRequest message.
type ListAtRiskCustomersRequest struct {
	Risk   string `json:"risk"`
	Limit  int32  `json:"limit"`
	Offset int32  `json:"offset"`
}

// RiskScoreMsg represents the proto RiskScore message.
type RiskScoreMsg struct {
	CustomerID       string  `json:"customer_id"`
	ChurnProbability float64 `json:"churn_probability"`
	RiskCategory     string  `json:"risk_category"`
	PredictedChurn   bool    `json:"predicted_churn"`
}

// ListAtRiskCustomersResponse represents the proto ListAtRiskCustomersResponse message.
type ListAtRiskCustomersResponse struct {
	Customers []*RiskScoreMsg `json:"customers"`
	Total     int32           `json:"total"`
}

// EstimateCampaignRequest represents the proto EstimateCampaignRequest message.
// AverageLifetimeValue is a decimal string.
type EstimateCampaignRequest struct {
	RiskCategory            string  `json:"risk_category"`
	AverageLifetimeValue    string  `json:"average_lifetime_value"`
	Customers               int32   `json:"customers"`
	AverageChurnProbability float64 `json:"average_churn_probability"`
}

// EstimateCampaignResponse represents the proto EstimateCampaignResponse message.
type EstimateCampaignResponse struct {
	RiskCategory            string  `json:"risk_category"`
	Customers               int32   `json:"customers"`
	AverageChurnProbability float64 `json:"average_churn_probability"`
	TotalCost               string  `json:"total_cost"`
	ExpectedSaving          string  `json:"expected_saving"`
	NetBenefit              string  `json:"net_benefit"`
	ROI                     string  `json:"roi"`
}

// GetModelInfoRequest represents the proto GetModelInfoRequest message.
type GetModelInfoRequest struct{}

// GetModelInfoResponse represents the proto GetModelInfoResponse message.
type GetModelInfoResponse struct {
	Version      string   `json:"version"`
	RunID        string   `json:"run_id"`
	ModelName    string   `json:"model_name"`
	Threshold    float64  `json:"threshold"`
	Accuracy     float64  `json:"accuracy"`
	Precision    float64  `json:"precision"`
	Recall       float64  `json:"recall"`
	F1           float64  `json:"f1"`
	ROCAUC       float64  `json:"roc_auc"`
	TrainingRows int32    `json:"training_rows"`
	FeatureNames []string `json:"feature_names"`
	CreatedAt    string   `json:"created_at"`
}

// Predict scores one customer.
func (h *ChurnServiceHandler) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	if req == nil || len(req.Customer) == 0 {
		return nil, status.Error(codes.InvalidArgument, "customer is required")
	}

	resp, err := h.uc.Predict.Execute(ctx, dto.PredictRequest{Customer: req.Customer})
	if err != nil {
		return nil, h.toStatus(ctx, "Predict", err)
	}

	recs := make([]*RecommendationMsg, len(resp.Recommendations))
	for i, r := range resp.Recommendations {
		recs[i] = &RecommendationMsg{
			Action:         r.Action,
			Description:    r.Description,
			ExpectedImpact: r.ExpectedImpact,
			Priority:       r.Priority,
		}
	}
	var segment *SegmentMsg
	if resp.Segment != nil {
		segment = &SegmentMsg{Segment: int32(resp.Segment.Segment), Description: resp.Segment.Description}
	}
	return &PredictResponse{
		CustomerID:            resp.CustomerID,
		ChurnProbability:      resp.ChurnProbability,
		RiskCategory:          resp.RiskCategory,
		PredictedChurn:        resp.PredictedChurn,
		Threshold:             resp.Threshold,
		ModelVersion:          resp.ModelVersion,
		CustomerLifetimeValue: resp.LifetimeValue,
		ExpectedSaving:        resp.ExpectedSaving,
		CampaignROI:           resp.CampaignROI,
		Recommendations:       recs,
		Warnings:              resp.Warnings,
		Segment:               segment,
	}, nil
}

// GetRiskSummary returns the dashboard summary of the risk table.
func (h *ChurnServiceHandler) GetRiskSummary(ctx context.Context, _ *GetRiskSummaryRequest) (*GetRiskSummaryResponse, error) {
	resp, err := h.uc.RiskSummary.Execute(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, "GetRiskSummary", err)
	}

	out := &GetRiskSummaryResponse{
		TotalCustomers:          int32(resp.TotalCustomers),
		AtRiskCount:             int32(resp.AtRiskCount),
		HighRiskCount:           int32(resp.HighRiskCount),
		PredictedChurners:       int32(resp.PredictedChurners),
		AverageChurnProbability: resp.AverageChurnProbability,
	}
	for _, c := range resp.RiskDistribution {
		out.Categories = append(out.Categories, &CategoryMsg{
			Name:               c.Name,
			Count:              int32(c.Value),
			AverageProbability: c.AverageProbability,
		})
	}
	for _, b := range resp.ProbabilityHistogram {
		out.Histogram = append(out.Histogram, &BucketMsg{From: b.From, To: b.To, Count: int32(b.Count)})
	}
	for _, seg := range resp.Segments {
		out.Segments = append(out.Segments, &SegmentProfileMsg{
			Segment:                 int32(seg.Segment),
			Description:             seg.Description,
			CustomerCount:           int32(seg.CustomerCount),
			AverageChurnProbability: seg.AverageChurnProbability,
			Attributes:              seg.Attributes,
		})
	}
	return out, nil
}

// ListAtRiskCustomers pages through the risk table.
func (h *ChurnServiceHandler) ListAtRiskCustomers(ctx context.Context, req *ListAtRiskCustomersRequest) (*ListAtRiskCustomersResponse, error) {
	if req == nil {
		req = &ListAtRiskCustomersRequest{}
	}

	resp, err := h.uc.ListAtRisk.Execute(ctx, dto.ListAtRiskRequest{
		Risk:   req.Risk,
		Limit:  int(req.Limit),
		Offset: int(req.Offset),
	})
	if err != nil {
		return nil, h.toStatus(ctx, "ListAtRiskCustomers", err)
	}

	out := &ListAtRiskCustomersResponse{
		Customers: make([]*RiskScoreMsg, len(resp.Customers)),
		Total:     int32(resp.Total),
	}
	for i, c := range resp.Customers {
		out.Customers[i] = &RiskScoreMsg{
			CustomerID:       c.CustomerID,
			ChurnProbability: c.ChurnProbability,
			RiskCategory:     c.RiskCategory,
			PredictedChurn:   c.PredictedChurn,
		}
	}
	return out, nil
}

// EstimateCampaign projects a retention campaign's return.
func (h *ChurnServiceHandler) EstimateCampaign(ctx context.Context, req *EstimateCampaignRequest) (*EstimateCampaignResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	clv, err := decimal.NewFromString(req.AverageLifetimeValue)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid average_lifetime_value: %v", err)
	}

	resp, err := h.uc.EstimateCampaign.Execute(ctx, dto.EstimateCampaignRequest{
		AverageLifetimeValue:    clv,
		RiskCategory:            req.RiskCategory,
		Customers:               int(req.Customers),
		AverageChurnProbability: req.AverageChurnProbability,
	})
	if err != nil {
		return nil, h.toStatus(ctx, "EstimateCampaign", err)
	}

	return &EstimateCampaignResponse{
		RiskCategory:            resp.RiskCategory,
		Customers:               int32(resp.Customers),
		AverageChurnProbability: resp.AverageChurnProbability,
		TotalCost:               resp.TotalCost,
		ExpectedSaving:          resp.ExpectedSaving,
		NetBenefit:              resp.NetBenefit,
		ROI:                     resp.ROI,
	}, nil
}

// GetModelInfo describes the served bundle.
func (h *ChurnServiceHandler) GetModelInfo(ctx context.Context, _ *GetModelInfoRequest) (*GetModelInfoResponse, error) {
	info, err := h.uc.ModelInfo.Execute(ctx)
	if err != nil {
		return nil, h.toStatus(ctx, "GetModelInfo", err)
	}

	return &GetModelInfoResponse{
		Version:      info.Version,
		RunID:        info.RunID,
		ModelName:    info.ModelName,
		Threshold:    info.Threshold,
		Accuracy:     info.Metrics.Accuracy,
		Precision:    info.Metrics.Precision,
		Recall:       info.Metrics.Recall,
		F1:           info.Metrics.F1,
		ROCAUC:       info.Metrics.ROCAUC,
		TrainingRows: int32(info.TrainingRows),
		FeatureNames: info.FeatureNames,
		CreatedAt:    info.CreatedAt.Format(time.RFC3339),
	}, nil
}

// toStatus maps use case errors to gRPC status codes. Unexpected errors are
// logged and surfaced as Internal without their detail.
func (h *ChurnServiceHandler) toStatus(ctx context.Context, method string, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrBundleNotFound):
		return status.Error(codes.FailedPrecondition, "no trained model is loaded")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	}
	h.logger.ErrorContext(ctx, "request failed",
		slog.String("method", method),
		slog.String("error", err.Error()),
	)
	return status.Error(codes.Internal, "internal error")
}
