package usecase_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/port"
	"github.com/bibbank/churn-service/internal/domain/service"
	"github.com/bibbank/churn-service/internal/infrastructure/datagen"
	"github.com/bibbank/churn-service/pkg/events"
)

var errBoom = errors.New("boom")

// --- Mock implementations ---

// callLog records the order in which artifacts are committed.
type callLog struct {
	calls []string
}

func (l *callLog) add(name string) { l.calls = append(l.calls, name) }

type mockCustomerSource struct {
	frame    *model.Frame
	loadFunc func(ctx context.Context) (*model.Frame, error)
}

func (m *mockCustomerSource) LoadCustomers(ctx context.Context) (*model.Frame, error) {
	if m.loadFunc != nil {
		return m.loadFunc(ctx)
	}
	return m.frame, nil
}

type mockBundleStore struct {
	log         *callLog
	saved       *service.ArtifactBundle
	promoted    string
	saveFunc    func(ctx context.Context, bundle *service.ArtifactBundle) error
	promoteFunc func(ctx context.Context, version string) error
}

func (m *mockBundleStore) SaveVersion(ctx context.Context, bundle *service.ArtifactBundle) error {
	m.log.add("save_version")
	if m.saveFunc != nil {
		return m.saveFunc(ctx, bundle)
	}
	m.saved = bundle
	return nil
}

func (m *mockBundleStore) Promote(ctx context.Context, version string) error {
	m.log.add("promote")
	if m.promoteFunc != nil {
		return m.promoteFunc(ctx, version)
	}
	m.promoted = version
	return nil
}

func (m *mockBundleStore) LoadLatest(_ context.Context) (*service.ArtifactBundle, error) {
	if m.saved == nil || m.promoted == "" {
		return nil, model.ErrBundleNotFound
	}
	return m.saved, nil
}

type mockRiskRepository struct {
	log         *callLog
	scores      []model.RiskScore
	replaceFunc func(ctx context.Context, scores []model.RiskScore) error
	findAllFunc func(ctx context.Context) ([]model.RiskScore, error)
}

func (m *mockRiskRepository) ReplaceAll(ctx context.Context, scores []model.RiskScore) error {
	if m.log != nil {
		m.log.add("replace_risk_table")
	}
	if m.replaceFunc != nil {
		return m.replaceFunc(ctx, scores)
	}
	m.scores = scores
	return nil
}

func (m *mockRiskRepository) FindAll(ctx context.Context) ([]model.RiskScore, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx)
	}
	return m.scores, nil
}

type mockReportWriter struct {
	log       *callLog
	report    port.TrainingReport
	writeFunc func(ctx context.Context, report port.TrainingReport) error
}

func (m *mockReportWriter) WriteReports(ctx context.Context, report port.TrainingReport) error {
	m.log.add("reports")
	if m.writeFunc != nil {
		return m.writeFunc(ctx, report)
	}
	m.report = report
	return nil
}

type mockChartRenderer struct {
	log        *callLog
	renderFunc func(ctx context.Context, report port.TrainingReport) ([]string, error)
}

func (m *mockChartRenderer) RenderCharts(ctx context.Context, report port.TrainingReport) ([]string, error) {
	m.log.add("charts")
	if m.renderFunc != nil {
		return m.renderFunc(ctx, report)
	}
	return []string{"model_comparison.png"}, nil
}

type mockEventPublisher struct {
	publishedEvents []events.DomainEvent
	publishFunc     func(ctx context.Context, evts ...events.DomainEvent) error
}

func (m *mockEventPublisher) Publish(ctx context.Context, evts ...events.DomainEvent) error {
	if m.publishFunc != nil {
		return m.publishFunc(ctx, evts...)
	}
	m.publishedEvents = append(m.publishedEvents, evts...)
	return nil
}

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func customerFrame(t *testing.T, n int, rate float64) *model.Frame {
	t.Helper()
	records, err := datagen.NewGenerator(7).Generate(n, rate)
	require.NoError(t, err)
	return model.CustomerFrame(records, true)
}

// servingBundle fits a logistic regression bundle the same way a training run does.
func servingBundle(t *testing.T) *service.ArtifactBundle {
	t.Helper()
	raw := customerFrame(t, 200, 0.25)
	y, err := model.TargetLabels(raw)
	require.NoError(t, err)

	binning, engineered, err := service.FitAndEngineer(raw)
	require.NoError(t, err)
	plan := service.NewPreprocessingPlan()
	X, err := plan.FitTransform(engineered)
	require.NoError(t, err)
	m := service.NewLogisticRegression(true)
	require.NoError(t, m.Fit(X, y))

	segments, err := service.FitSegmentation(raw, service.DefaultSegmentCount, service.DefaultSeed)
	require.NoError(t, err)
	segments.Profiles, err = segments.Profile(raw, m.PredictProba(X))
	require.NoError(t, err)

	return &service.ArtifactBundle{
		RunID:             "5f0c6d1e-0000-4000-8000-000000000001",
		Version:           "20240301_120000_5f0c6d1e",
		ModelName:         service.CandidateLogisticRegression,
		Model:             m,
		Binning:           binning,
		Plan:              plan,
		DecisionThreshold: 0.4,
		FeatureNames:      plan.FeatureNames(),
		InputColumns:      plan.InputColumns(),
		TrainingRows:      raw.Rows(),
		Segmentation:      segments,
		CreatedAt:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}
