package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"

	"github.com/spf13/cast"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/bibbank/churn-service/internal/application/dto"
	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

// PredictChurn scores a single customer against the bundle loaded at startup
// and attaches retention advice.
type PredictChurn struct {
	bundle      *service.ArtifactBundle
	advisor     *service.RetentionAdvisor
	logger      *slog.Logger
	predictions metric.Int64Counter
}

// NewPredictChurn creates a new PredictChurn use case. A nil bundle makes
// every prediction fail with model.ErrBundleNotFound.
func NewPredictChurn(bundle *service.ArtifactBundle, advisor *service.RetentionAdvisor, logger *slog.Logger) *PredictChurn {
	predictions, err := otel.Meter(instrumentationName).Int64Counter("churn_predictions",
		metric.WithDescription("Served predictions by risk category"))
	if err != nil {
		logger.Warn("failed to create prediction counter", slog.String("error", err.Error()))
	}
	return &PredictChurn{
		bundle:      bundle,
		advisor:     advisor,
		logger:      logger,
		predictions: predictions,
	}
}

// Execute scores the customer. Column mismatches against the bundle are
// reported as warnings; malformed values fail with model.ErrInvalidInput.
func (uc *PredictChurn) Execute(ctx context.Context, req dto.PredictRequest) (dto.PredictResponse, error) {
	if uc.bundle == nil {
		return dto.PredictResponse{}, model.ErrBundleNotFound
	}
	ctx, span := tracer.Start(ctx, "PredictChurn")
	defer span.End()

	frame, record, warnings, err := uc.parseCustomer(req.Customer)
	if err != nil {
		return dto.PredictResponse{}, err
	}

	X, prepWarnings, err := uc.bundle.Prepare(frame)
	if err != nil {
		return dto.PredictResponse{}, fmt.Errorf("%w: %w", model.ErrInvalidInput, err)
	}
	warnings = append(warnings, prepWarnings...)

	p := uc.bundle.PredictProba(X)[0]
	var segment *dto.SegmentAssignment
	if ids, ok := uc.bundle.Segment(frame); ok {
		segment = &dto.SegmentAssignment{Segment: ids[0], Description: uc.bundle.Segmentation.Describe(ids[0])}
	}
	threshold := uc.bundle.Threshold()
	category := valueobject.RiskCategoryFromProbability(p)
	advice := uc.advisor.Advise(record, p)

	if len(warnings) > 0 {
		uc.logger.WarnContext(ctx, "prediction input mismatch",
			slog.String("customer_id", record.CustomerID),
			slog.Any("warnings", warnings),
		)
	}
	if uc.predictions != nil {
		uc.predictions.Add(ctx, 1, metric.WithAttributes(attribute.String("risk_category", category.String())))
	}
	span.SetAttributes(
		attribute.Float64("churn_probability", p),
		attribute.String("risk_category", category.String()),
	)

	return dto.PredictResponse{
		Recommendations:  advice.Recommendations,
		Warnings:         warnings,
		Segment:          segment,
		CustomerID:       record.CustomerID,
		RiskCategory:     category.String(),
		ModelName:        uc.bundle.ModelName,
		ModelVersion:     uc.bundle.Version,
		LifetimeValue:    advice.LifetimeValue.StringFixed(2),
		ExpectedSaving:   advice.ExpectedSaving.StringFixed(2),
		CampaignROI:      advice.CampaignROI.String(),
		ChurnProbability: p,
		Threshold:        threshold.Value(),
		PredictedChurn:   threshold.Predict(p),
	}, nil
}

// parseCustomer turns a payload into a one-row raw frame plus the typed
// record the retention advisor reads. Null values are left out and get
// imputed by the bundle.
func (uc *PredictChurn) parseCustomer(payload map[string]any) (*model.Frame, model.CustomerRecord, []string, error) {
	var record model.CustomerRecord
	if len(payload) == 0 {
		return nil, record, nil, fmt.Errorf("%w: customer payload is empty", model.ErrInvalidInput)
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	frame := model.NewFrame(1)
	var warnings []string
	for _, key := range keys {
		value := payload[key]
		switch {
		case key == model.ColChurn || value == nil:
			continue
		case key == model.ColCustomerID:
			id, err := cast.ToStringE(value)
			if err != nil {
				return nil, record, nil, fmt.Errorf("%w: %s: %w", model.ErrInvalidInput, key, err)
			}
			record.CustomerID = id
			if err := frame.AddCategorical(key, model.RoleIdentifier, []string{id}); err != nil {
				return nil, record, nil, err
			}
		case slices.Contains(model.NumericSourceColumns, key):
			v, err := parseNumeric(key, value)
			if err != nil {
				return nil, record, nil, err
			}
			setRecordField(&record, key, v)
			if err := frame.AddNumeric(key, model.RoleFeature, []float64{v}); err != nil {
				return nil, record, nil, err
			}
		default:
			if !slices.Contains(uc.bundle.InputColumns, key) {
				warnings = append(warnings, fmt.Sprintf("field %q is not used by the model", key))
			}
			if err := addExtraColumn(frame, key, value); err != nil {
				return nil, record, nil, err
			}
		}
	}
	return frame, record, warnings, nil
}

func parseNumeric(key string, value any) (float64, error) {
	if key == model.ColHasCreditCard || key == model.ColIsActiveMember {
		b, err := cast.ToBoolE(value)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a boolean: %w", model.ErrInvalidInput, key, err)
		}
		if b {
			return 1, nil
		}
		return 0, nil
	}
	v, err := cast.ToFloat64E(value)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be numeric: %w", model.ErrInvalidInput, key, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s must be finite", model.ErrInvalidInput, key)
	}
	return v, nil
}

func addExtraColumn(frame *model.Frame, key string, value any) error {
	if s, ok := value.(string); ok {
		return frame.AddCategorical(key, model.RoleFeature, []string{s})
	}
	v, err := cast.ToFloat64E(value)
	if err != nil {
		return fmt.Errorf("%w: %s has unsupported type %T", model.ErrInvalidInput, key, value)
	}
	return frame.AddNumeric(key, model.RoleFeature, []float64{v})
}

func setRecordField(r *model.CustomerRecord, key string, v float64) {
	switch key {
	case model.ColAge:
		r.Age = int(v)
	case model.ColBalance:
		r.Balance = v
	case model.ColTransactions:
		r.Transactions = int(v)
	case model.ColCreditScore:
		r.CreditScore = int(v)
	case model.ColTenure:
		r.Tenure = int(v)
	case model.ColIncome:
		r.Income = v
	case model.ColNumProducts:
		r.NumProducts = int(v)
	case model.ColHasCreditCard:
		r.HasCreditCard = v == 1
	case model.ColIsActiveMember:
		r.IsActiveMember = v == 1
	}
}
