package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/bibbank/churn-service/internal/application/dto"
	"github.com/bibbank/churn-service/internal/application/usecase"
	"github.com/bibbank/churn-service/internal/domain/port"
	"github.com/bibbank/churn-service/internal/infrastructure/config"
	"github.com/bibbank/churn-service/internal/infrastructure/csvsource"
	"github.com/bibbank/churn-service/internal/infrastructure/filestore"
	"github.com/bibbank/churn-service/internal/infrastructure/kafka"
	"github.com/bibbank/churn-service/internal/infrastructure/postgres"
	"github.com/bibbank/churn-service/internal/infrastructure/visualization"
	pkgkafka "github.com/bibbank/churn-service/pkg/kafka"
	"github.com/bibbank/churn-service/pkg/observability"
	pkgpostgres "github.com/bibbank/churn-service/pkg/postgres"
)

type trainFlags struct {
	source       string
	dataPath     string
	chartDir     string
	schedule     string
	seed         uint64
	testFraction float64
	segments     int
	noCharts     bool
}

func newTrainCmd(g *globalFlags) *cobra.Command {
	f := &trainFlags{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train, evaluate and publish a churn model",
		Long: `Loads customers, engineers features, trains every candidate model, keeps the
best one by F1 (ROC AUC breaks ties) and writes the artifact bundle, reports, charts and the
customer risk table.

With --schedule the run repeats on a cron expression (for example "0 2 * * *"
or "@daily") until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runTrain(cmd, cfg, f.noCharts)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.source, "source", "", "customer source: csv or postgres (overrides CHURN_DATA_SOURCE)")
	fl.StringVar(&f.dataPath, "data", "", "customer CSV path (overrides CHURN_DATA_PATH)")
	fl.StringVar(&f.chartDir, "chart-dir", "", "chart directory (overrides CHURN_CHART_DIR)")
	fl.StringVar(&f.schedule, "schedule", "", "cron expression for repeated runs (overrides CHURN_TRAIN_SCHEDULE)")
	fl.Uint64Var(&f.seed, "seed", 0, "random seed for split, resampling and forests (overrides CHURN_SEED)")
	fl.Float64Var(&f.testFraction, "test-fraction", 0, "held-out fraction (overrides CHURN_TEST_FRACTION)")
	fl.IntVar(&f.segments, "segments", 0, "customer segment count, 0 disables (overrides CHURN_SEGMENTS)")
	fl.BoolVar(&f.noCharts, "no-charts", false, "skip chart rendering")
	return cmd
}

func (f *trainFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	if f.source != "" {
		cfg.Data.Source = f.source
	}
	if f.dataPath != "" {
		cfg.Data.CSVPath = f.dataPath
	}
	if f.chartDir != "" {
		cfg.Artifacts.ChartDir = f.chartDir
	}
	if f.schedule != "" {
		cfg.Training.Schedule = f.schedule
	}
	if cmd.Flags().Changed("seed") {
		cfg.Training.Seed = f.seed
	}
	if cmd.Flags().Changed("test-fraction") {
		cfg.Training.TestFraction = f.testFraction
	}
	if cmd.Flags().Changed("segments") {
		cfg.Training.Segments = f.segments
	}
}

func runTrain(cmd *cobra.Command, cfg config.Config, noCharts bool) error {
	ctx := cmd.Context()
	logger := newLogger(cmd, cfg)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: "churnctl",
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", slog.String("error", err.Error()))
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	source, closeSource, err := openCustomerSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	publisher, closePublisher, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	var charts port.ChartRenderer
	if !noCharts {
		charts = visualization.NewRenderer(cfg.Artifacts.ChartDir, logger)
	}

	train := usecase.NewTrainChurnModel(
		source,
		filestore.NewBundleStore(cfg.Artifacts.ModelDir, logger),
		filestore.NewRiskTable(cfg.Artifacts.ReportDir, logger),
		filestore.NewReportWriter(cfg.Artifacts.ReportDir, logger),
		charts,
		publisher,
		logger,
		usecase.TrainOptions{
			TestFraction: cfg.Training.TestFraction,
			Seed:         cfg.Training.Seed,
			Segments:     segmentOption(cfg.Training.Segments),
		},
	)

	runOnce := func(ctx context.Context) (dto.TrainingSummary, error) {
		runCtx, cancel := context.WithTimeout(ctx, cfg.Training.RunTimeout)
		defer cancel()
		return train.Execute(runCtx)
	}

	if cfg.Training.Schedule == "" {
		summary, err := runOnce(ctx)
		if err != nil {
			return err
		}
		return printSummary(cmd, summary)
	}
	return runScheduled(ctx, cfg.Training.Schedule, logger, func(ctx context.Context) {
		if _, err := runOnce(ctx); err != nil {
			logger.ErrorContext(ctx, "scheduled training run failed", slog.String("error", err.Error()))
		}
	})
}

// segmentOption maps the configured count, where 0 means off, to TrainOptions.
func segmentOption(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// runScheduled runs job on every tick of spec until ctx is cancelled. A tick
// that fires while the previous run is still going is skipped.
func runScheduled(ctx context.Context, spec string, logger *slog.Logger, job func(context.Context)) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn))
	c := cron.New(
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(spec, func() { job(ctx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	next := c.Entries()[0].Next
	logger.Info("training scheduler started",
		slog.String("schedule", spec),
		slog.Time("next_run", next),
	)

	<-ctx.Done()
	logger.Info("training scheduler stopping, waiting for a running job")
	<-c.Stop().Done()
	return nil
}

func openCustomerSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (port.CustomerSource, func(), error) {
	if cfg.Data.Source != "postgres" {
		return csvsource.NewCustomerReader(cfg.Data.CSVPath, logger), func() {}, nil
	}

	pgCfg := postgresConfig(cfg)
	if err := pkgpostgres.RunMigrations(pgCfg.DSN(), postgres.Migrations, postgres.MigrationsDir); err != nil {
		return nil, nil, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pkgpostgres.NewPool(connectCtx, pgCfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("connected to database", slog.String("table", cfg.DB.Table))
	return postgres.NewCustomerRepository(pool, cfg.DB.Table, logger), pool.Close, nil
}

func postgresConfig(cfg config.Config) pkgpostgres.Config {
	return pkgpostgres.Config{
		URL:      cfg.DB.URL,
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Name,
		SSLMode:  cfg.DB.SSLMode,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	}
}

func openPublisher(cfg config.Config, logger *slog.Logger) (port.EventPublisher, func(), error) {
	kcfg := pkgkafka.Config{
		ClientID:      "churnctl",
		Brokers:       cfg.Kafka.Brokers,
		SASLMechanism: cfg.Kafka.SASLMechanism,
		SASLUsername:  cfg.Kafka.SASLUsername,
		SASLPassword:  cfg.Kafka.SASLPassword,
		TLS:           cfg.Kafka.TLS,
		SASLEnabled:   cfg.Kafka.SASLEnabled,
		WriteTimeout:  10 * time.Second,
	}
	if !kcfg.Enabled() {
		return kafka.NewLogPublisher(logger), func() {}, nil
	}

	producer, err := pkgkafka.NewProducer(kcfg)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := producer.Close(); err != nil {
			logger.Warn("failed to close kafka producer", slog.String("error", err.Error()))
		}
	}
	return kafka.NewEventPublisher(producer, logger), closeFn, nil
}

func printSummary(cmd *cobra.Command, summary dto.TrainingSummary) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
