package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/bibbank/churn-service/internal/application/dto"
	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/port"
	"github.com/bibbank/churn-service/internal/domain/service"
)

const instrumentationName = "github.com/bibbank/churn-service/internal/application/usecase"

var tracer = otel.Tracer(instrumentationName)

// TrainOptions tunes a training run. Zero values select the defaults; a
// negative Segments turns customer segmentation off.
type TrainOptions struct {
	Candidates   []service.CandidateSpec
	TestFraction float64
	Seed         uint64
	Segments     int
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.TestFraction == 0 {
		o.TestFraction = service.DefaultTestFraction
	}
	if o.Seed == 0 {
		o.Seed = service.DefaultSeed
	}
	if len(o.Candidates) == 0 {
		o.Candidates = service.DefaultCandidates(o.Seed)
	}
	if o.Segments == 0 {
		o.Segments = service.DefaultSegmentCount
	}
	return o
}

// TrainChurnModel is the batch use case that trains, evaluates and publishes
// a new churn model.
type TrainChurnModel struct {
	source    port.CustomerSource
	bundles   port.BundleStore
	risks     port.RiskScoreRepository
	reports   port.ReportWriter
	charts    port.ChartRenderer
	publisher port.EventPublisher
	logger    *slog.Logger
	opts      TrainOptions

	runs     metric.Int64Counter
	duration metric.Float64Histogram
}

// NewTrainChurnModel creates a new TrainChurnModel use case. charts may be nil
// to skip chart rendering.
func NewTrainChurnModel(
	source port.CustomerSource,
	bundles port.BundleStore,
	risks port.RiskScoreRepository,
	reports port.ReportWriter,
	charts port.ChartRenderer,
	publisher port.EventPublisher,
	logger *slog.Logger,
	opts TrainOptions,
) *TrainChurnModel {
	meter := otel.Meter(instrumentationName)
	runs, err := meter.Int64Counter("churn_training_runs",
		metric.WithDescription("Training runs by outcome"))
	if err != nil {
		logger.Warn("failed to create training run counter", slog.String("error", err.Error()))
	}
	duration, err := meter.Float64Histogram("churn_training_duration_seconds",
		metric.WithDescription("Wall time of training runs"),
		metric.WithUnit("s"))
	if err != nil {
		logger.Warn("failed to create training duration histogram", slog.String("error", err.Error()))
	}

	return &TrainChurnModel{
		source:    source,
		bundles:   bundles,
		risks:     risks,
		reports:   reports,
		charts:    charts,
		publisher: publisher,
		logger:    logger,
		opts:      opts.withDefaults(),
		runs:      runs,
		duration:  duration,
	}
}

// trainingState is threaded through the stages of one run.
type trainingState struct {
	raw       *model.Frame
	labels    []int
	trainRows []int
	testRows  []int
	binning   service.FeatureBinning
	testFrame *model.Frame
	plan      *service.PreprocessingPlan
	XTrain    [][]float64
	XTest     [][]float64
	yTrain    []int
	yTest     []int
	selection service.Selection
	threshold service.ThresholdResult
	report    service.EvaluationReport
	scores    []model.RiskScore
	summary   model.RiskSummary
	segments  *service.CustomerSegmentation
	charts    []string
}

// Execute runs the whole pipeline. Artifacts are committed in the order
// reports, versioned bundle, risk table, latest bundle. A failure before the
// risk table swap leaves the previous latest bundle and risk table in place;
// a failed promotion writes the previous risk table back. Event publication
// happens after the commit and never fails the run.
func (uc *TrainChurnModel) Execute(ctx context.Context) (dto.TrainingSummary, error) {
	run := model.NewTrainingRun()
	logger := uc.logger.With(slog.String("run_id", run.ID().String()))

	ctx, span := tracer.Start(ctx, "TrainChurnModel",
		trace.WithAttributes(attribute.String("run_id", run.ID().String())))
	defer span.End()

	logger.InfoContext(ctx, "training run started", slog.String("version", run.Version()))

	st, err := uc.train(ctx, logger, run)
	if err != nil {
		run.Fail(err)
		uc.record(ctx, run, "failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.ErrorContext(ctx, "training run failed", slog.String("error", err.Error()))
		return dto.TrainingSummary{}, err
	}

	high := highRiskIDs(st.scores)
	if err := run.Complete(model.RunOutcome{
		ModelName:       st.selection.Best.Name,
		BundleVersion:   run.Version(),
		Threshold:       st.threshold.Threshold.Value(),
		F1:              st.report.Metrics.F1,
		ROCAUC:          st.report.Metrics.ROCAUC,
		TrainingRows:    len(st.trainRows),
		HighRiskCustIDs: high,
	}); err != nil {
		return dto.TrainingSummary{}, fmt.Errorf("failed to complete training run: %w", err)
	}
	uc.record(ctx, run, "completed")

	if evts := run.DomainEvents(); len(evts) > 0 {
		if err := uc.publisher.Publish(ctx, evts...); err != nil {
			logger.WarnContext(ctx, "failed to publish training events",
				slog.Int("events", len(evts)),
				slog.String("error", err.Error()),
			)
		}
	}

	logger.InfoContext(ctx, "training run completed",
		slog.String("version", run.Version()),
		slog.String("model", st.selection.Best.Name),
		slog.Float64("threshold", st.threshold.Threshold.Value()),
		slog.Float64("f1", st.report.Metrics.F1),
		slog.Int("high_risk", len(high)),
	)

	return dto.TrainingSummary{
		StartedAt:        run.StartedAt(),
		FinishedAt:       run.FinishedAt(),
		Metrics:          st.report.Metrics,
		Candidates:       service.CandidateMetricsFrom(st.selection.Candidates),
		ChartFiles:       st.charts,
		RunID:            run.ID().String(),
		Version:          run.Version(),
		BestModel:        st.selection.Best.Name,
		Threshold:        st.threshold.Threshold.Value(),
		ChurnRatio:       model.ChurnRatio(st.labels),
		TrainingRows:     len(st.trainRows),
		TestRows:         len(st.testRows),
		HighRiskCount:    len(high),
		ThresholdScanned: st.threshold.Scanned,
		Segments:         dto.FromSegmentProfiles(st.segmentProfiles()),
	}, nil
}

func (uc *TrainChurnModel) train(ctx context.Context, logger *slog.Logger, run *model.TrainingRun) (*trainingState, error) {
	st := &trainingState{}
	stages := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"load", func(ctx context.Context) error { return uc.load(ctx, logger, st) }},
		{"split", func(context.Context) error { return uc.split(st) }},
		{"features", func(context.Context) error { return uc.features(st) }},
		{"select", func(ctx context.Context) error { return uc.selectModel(ctx, logger, st) }},
		{"evaluate", func(context.Context) error { return uc.evaluate(logger, st) }},
		{"segment", func(ctx context.Context) error { return uc.segment(ctx, logger, st) }},
		{"commit", func(ctx context.Context) error { return uc.commit(ctx, logger, run, st) }},
	}

	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := uc.stage(ctx, logger, s.name, s.fn); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (uc *TrainChurnModel) stage(ctx context.Context, logger *slog.Logger, name string, fn func(context.Context) error) error {
	ctx, span := tracer.Start(ctx, "train."+name)
	defer span.End()

	start := time.Now()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.DebugContext(ctx, "stage finished",
		slog.String("stage", name),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (uc *TrainChurnModel) load(ctx context.Context, logger *slog.Logger, st *trainingState) error {
	raw, err := uc.source.LoadCustomers(ctx)
	if err != nil {
		return fmt.Errorf("failed to load customers: %w", err)
	}
	labels, err := model.TargetLabels(raw)
	if err != nil {
		return err
	}
	neg, pos := model.ClassCounts(labels)
	logger.InfoContext(ctx, "customers loaded",
		slog.Int("rows", raw.Rows()),
		slog.Int("churned", pos),
		slog.Int("retained", neg),
		slog.Float64("churn_ratio", model.ChurnRatio(labels)),
	)
	st.raw, st.labels = raw, labels
	return nil
}

func (uc *TrainChurnModel) split(st *trainingState) error {
	trainRows, testRows, err := service.StratifiedSplit(st.labels, uc.opts.TestFraction, uc.opts.Seed)
	if err != nil {
		return err
	}
	st.trainRows, st.testRows = trainRows, testRows
	st.yTrain = service.Pick(st.labels, trainRows)
	st.yTest = service.Pick(st.labels, testRows)
	return nil
}

// features fits binning and preprocessing on the training partition only and
// applies them frozen to the test partition.
func (uc *TrainChurnModel) features(st *trainingState) error {
	binning, trainFrame, err := service.FitAndEngineer(st.raw.Subset(st.trainRows))
	if err != nil {
		return err
	}
	testFrame, err := service.Engineer(st.raw.Subset(st.testRows), binning)
	if err != nil {
		return err
	}

	plan := service.NewPreprocessingPlan()
	XTrain, err := plan.FitTransform(trainFrame)
	if err != nil {
		return err
	}
	XTest, err := plan.Transform(testFrame)
	if err != nil {
		return err
	}

	st.binning, st.testFrame, st.plan = binning, testFrame, plan
	st.XTrain, st.XTest = XTrain, XTest
	return nil
}

func (uc *TrainChurnModel) selectModel(ctx context.Context, logger *slog.Logger, st *trainingState) error {
	selector := service.NewModelSelector(uc.opts.Candidates, logger)
	sel, err := selector.SelectBest(ctx, st.XTrain, st.yTrain, st.XTest, st.yTest)
	if err != nil {
		return err
	}
	st.selection = sel
	return nil
}

func (uc *TrainChurnModel) evaluate(logger *slog.Logger, st *trainingState) error {
	best := st.selection.Best.Model
	st.threshold = service.OptimizeThreshold(best, st.XTest, st.yTest)
	if !st.threshold.Scanned {
		logger.Info("model has no probability output, using default threshold",
			slog.String("model", st.selection.Best.Name))
	}

	report, err := service.Evaluate(best, st.XTest, st.yTest, st.threshold.Threshold, st.plan.FeatureNames())
	if err != nil {
		return err
	}
	st.report = report

	st.scores = service.ScoreRisk(best, st.XTest, model.Identifiers(st.testFrame), st.threshold.Threshold, logger)
	st.summary = service.SummarizeRisk(st.scores)
	return nil
}

func (st *trainingState) segmentProfiles() []model.SegmentProfile {
	if st.segments == nil {
		return nil
	}
	return st.segments.Profiles
}

// segment clusters the training customers and profiles the scored test
// customers per segment. A frame without segmentation attributes skips the
// stage rather than failing the run.
func (uc *TrainChurnModel) segment(ctx context.Context, logger *slog.Logger, st *trainingState) error {
	if uc.opts.Segments < 0 {
		return nil
	}
	seg, err := service.FitSegmentation(st.raw.Subset(st.trainRows), uc.opts.Segments, uc.opts.Seed)
	if err != nil {
		logger.WarnContext(ctx, "customer segmentation skipped", slog.String("error", err.Error()))
		return nil
	}

	proba := make([]float64, len(st.scores))
	for i, s := range st.scores {
		proba[i] = s.ChurnProbability
	}
	profiles, err := seg.Profile(st.raw.Subset(st.testRows), proba)
	if err != nil {
		return fmt.Errorf("failed to profile segments: %w", err)
	}
	seg.Profiles = profiles
	st.segments = seg

	logger.InfoContext(ctx, "customers segmented",
		slog.Int("segments", len(profiles)),
		slog.Float64("inertia", seg.Inertia),
	)
	return nil
}

func (uc *TrainChurnModel) commit(ctx context.Context, logger *slog.Logger, run *model.TrainingRun, st *trainingState) error {
	report := port.TrainingReport{
		RunID:         run.ID().String(),
		Version:       run.Version(),
		BestModel:     st.selection.Best.Name,
		Candidates:    service.CandidateMetricsFrom(st.selection.Candidates),
		Evaluation:    st.report,
		ThresholdScan: st.threshold.Scan,
		RiskSummary:   st.summary,
		Segments:      st.segmentProfiles(),
		GeneratedAt:   time.Now().UTC(),
	}

	if err := uc.reports.WriteReports(ctx, report); err != nil {
		return fmt.Errorf("failed to write reports: %w", err)
	}
	if uc.charts != nil {
		files, err := uc.charts.RenderCharts(ctx, report)
		if err != nil {
			return fmt.Errorf("failed to render charts: %w", err)
		}
		st.charts = files
	}

	bundle := &service.ArtifactBundle{
		RunID:             run.ID().String(),
		Version:           run.Version(),
		ModelName:         st.selection.Best.Name,
		Model:             st.selection.Best.Model,
		Binning:           st.binning,
		Plan:              st.plan,
		DecisionThreshold: st.threshold.Threshold.Value(),
		FeatureNames:      st.plan.FeatureNames(),
		InputColumns:      st.plan.InputColumns(),
		Metrics:           st.report.Metrics,
		Candidates:        report.Candidates,
		TrainingRows:      len(st.trainRows),
		Segmentation:      st.segments,
		CreatedAt:         report.GeneratedAt,
	}
	if err := uc.bundles.SaveVersion(ctx, bundle); err != nil {
		return fmt.Errorf("failed to save bundle: %w", err)
	}

	prior, snapshotErr := uc.risks.FindAll(ctx)
	if snapshotErr != nil {
		logger.WarnContext(ctx, "failed to snapshot current risk table, it cannot be restored",
			slog.String("error", snapshotErr.Error()))
	}
	if err := uc.risks.ReplaceAll(ctx, st.scores); err != nil {
		return fmt.Errorf("failed to replace risk table: %w", err)
	}
	if err := uc.bundles.Promote(ctx, bundle.Version); err != nil {
		if snapshotErr == nil {
			uc.restoreRiskTable(ctx, logger, prior)
		}
		return fmt.Errorf("failed to promote bundle: %w", err)
	}

	logger.InfoContext(ctx, "artifacts committed",
		slog.String("version", bundle.Version),
		slog.Int("risk_rows", len(st.scores)),
		slog.Int("charts", len(st.charts)),
	)
	return nil
}

// restoreRiskTable puts back the table that matched the still-latest bundle.
func (uc *TrainChurnModel) restoreRiskTable(ctx context.Context, logger *slog.Logger, prior []model.RiskScore) {
	if err := uc.risks.ReplaceAll(context.WithoutCancel(ctx), prior); err != nil {
		logger.ErrorContext(ctx, "failed to restore previous risk table",
			slog.String("error", err.Error()),
			slog.Int("risk_rows", len(prior)),
		)
		return
	}
	logger.WarnContext(ctx, "previous risk table restored after failed promotion",
		slog.Int("risk_rows", len(prior)))
}

func (uc *TrainChurnModel) record(ctx context.Context, run *model.TrainingRun, outcome string) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	if uc.runs != nil {
		uc.runs.Add(ctx, 1, attrs)
	}
	if uc.duration != nil {
		finished := run.FinishedAt()
		if finished.IsZero() {
			finished = time.Now().UTC()
		}
		uc.duration.Record(ctx, finished.Sub(run.StartedAt()).Seconds(), attrs)
	}
}

func highRiskIDs(scores []model.RiskScore) []string {
	var ids []string
	for _, s := range scores {
		if s.RiskCategory.IsHigh() {
			ids = append(ids, s.CustomerID)
		}
	}
	return ids
}

// IsInputError reports whether err stems from unusable input data rather
// than an infrastructure failure.
func IsInputError(err error) bool {
	for _, target := range []error{
		model.ErrEmptyTable,
		model.ErrMissingTarget,
		model.ErrInvalidTarget,
		model.ErrAgeOutOfRange,
		model.ErrInvalidInput,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
