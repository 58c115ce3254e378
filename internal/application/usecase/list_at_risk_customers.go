package usecase

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bibbank/churn-service/internal/application/dto"
	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/port"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

// Paging bounds for ListAtRiskCustomers.
const (
	DefaultPageSize = 100
	MaxPageSize     = 1000
)

// ListAtRiskCustomers pages through the risk table, riskiest first.
type ListAtRiskCustomers struct {
	risks port.RiskScoreRepository
}

// NewListAtRiskCustomers creates a new ListAtRiskCustomers use case.
func NewListAtRiskCustomers(risks port.RiskScoreRepository) *ListAtRiskCustomers {
	return &ListAtRiskCustomers{risks: risks}
}

// Execute filters by category, sorts by churn probability descending with the
// customer id as tie-break, and returns the requested page.
func (uc *ListAtRiskCustomers) Execute(ctx context.Context, req dto.ListAtRiskRequest) (dto.ListAtRiskResponse, error) {
	filter, err := parseRiskFilter(req.Risk)
	if err != nil {
		return dto.ListAtRiskResponse{}, err
	}
	if req.Offset < 0 {
		return dto.ListAtRiskResponse{}, fmt.Errorf("%w: offset must not be negative", model.ErrInvalidInput)
	}
	limit := req.Limit
	switch {
	case limit < 0:
		return dto.ListAtRiskResponse{}, fmt.Errorf("%w: limit must not be negative", model.ErrInvalidInput)
	case limit == 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	scores, err := uc.risks.FindAll(ctx)
	if err != nil {
		return dto.ListAtRiskResponse{}, fmt.Errorf("failed to read risk table: %w", err)
	}

	matched := make([]model.RiskScore, 0, len(scores))
	for _, s := range scores {
		if filter.IsZero() || s.RiskCategory.Equal(filter) {
			matched = append(matched, s)
		}
	}
	slices.SortStableFunc(matched, func(a, b model.RiskScore) int {
		if c := cmp.Compare(b.ChurnProbability, a.ChurnProbability); c != 0 {
			return c
		}
		return strings.Compare(a.CustomerID, b.CustomerID)
	})

	resp := dto.ListAtRiskResponse{
		Customers: []dto.RiskScoreDTO{},
		Total:     len(matched),
		Limit:     limit,
		Offset:    req.Offset,
	}
	if req.Offset >= len(matched) {
		return resp, nil
	}
	end := min(req.Offset+limit, len(matched))
	for _, s := range matched[req.Offset:end] {
		resp.Customers = append(resp.Customers, dto.FromRiskScore(s))
	}
	return resp, nil
}

// parseRiskFilter accepts a category name in any case, or "all"/"" for no filter.
func parseRiskFilter(risk string) (valueobject.RiskCategory, error) {
	risk = strings.TrimSpace(risk)
	if risk == "" || strings.EqualFold(risk, "all") {
		return valueobject.RiskCategory{}, nil
	}
	for _, c := range valueobject.RiskCategories() {
		if strings.EqualFold(risk, c.String()) {
			return c, nil
		}
	}
	return valueobject.RiskCategory{}, fmt.Errorf("%w: unknown risk category %q", model.ErrInvalidInput, risk)
}
