package port

import (
	"context"
	"time"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
	"github.com/bibbank/churn-service/pkg/events"
)

// CustomerSource supplies the raw customer table for a training run.
type CustomerSource interface {
	// LoadCustomers returns every customer record with the Churn target.
	LoadCustomers(ctx context.Context) (*model.Frame, error)
}

// BundleStore persists artifact bundles. A saved version only becomes visible
// to serving once it is promoted to latest.
type BundleStore interface {
	// SaveVersion writes the immutable versioned bundle file.
	SaveVersion(ctx context.Context, bundle *service.ArtifactBundle) error

	// Promote atomically points latest at a saved version.
	Promote(ctx context.Context, version string) error

	// LoadLatest reads the current latest bundle.
	LoadLatest(ctx context.Context) (*service.ArtifactBundle, error)
}

// RiskScoreRepository persists the risk table. The table is always replaced
// as a whole.
type RiskScoreRepository interface {
	// ReplaceAll atomically swaps the stored table for scores.
	ReplaceAll(ctx context.Context, scores []model.RiskScore) error

	// FindAll returns the stored table.
	FindAll(ctx context.Context) ([]model.RiskScore, error)
}

// TrainingReport is everything a run reports besides the bundle itself.
type TrainingReport struct {
	RunID         string
	Version       string
	BestModel     string
	Candidates    []service.CandidateMetrics
	Evaluation    service.EvaluationReport
	ThresholdScan []service.ThresholdPoint
	RiskSummary   model.RiskSummary
	Segments      []model.SegmentProfile
	GeneratedAt   time.Time
}

// ReportWriter writes the tabular and JSON training reports.
type ReportWriter interface {
	WriteReports(ctx context.Context, report TrainingReport) error
}

// ChartRenderer renders the training report as images.
type ChartRenderer interface {
	RenderCharts(ctx context.Context, report TrainingReport) ([]string, error)
}

// EventPublisher defines the port for publishing domain events.
type EventPublisher interface {
	// Publish sends one or more domain events to the messaging infrastructure.
	Publish(ctx context.Context, evts ...events.DomainEvent) error
}
