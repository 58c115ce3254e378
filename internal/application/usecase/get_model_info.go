package usecase

import (
	"context"

	"github.com/bibbank/churn-service/internal/application/dto"
	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
)

// GetModelInfo describes the bundle being served.
type GetModelInfo struct {
	bundle *service.ArtifactBundle
}

// NewGetModelInfo creates a new GetModelInfo use case.
func NewGetModelInfo(bundle *service.ArtifactBundle) *GetModelInfo {
	return &GetModelInfo{bundle: bundle}
}

// Execute returns the bundle metadata, or model.ErrBundleNotFound when
// nothing was loaded.
func (uc *GetModelInfo) Execute(_ context.Context) (dto.ModelInfoResponse, error) {
	if uc.bundle == nil {
		return dto.ModelInfoResponse{}, model.ErrBundleNotFound
	}
	return dto.FromBundle(uc.bundle), nil
}
