package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bibbank/churn-service/internal/application/usecase"
	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
	"github.com/bibbank/churn-service/internal/infrastructure/config"
	"github.com/bibbank/churn-service/internal/infrastructure/filestore"
	grpcpresentation "github.com/bibbank/churn-service/internal/presentation/grpc"
	"github.com/bibbank/churn-service/internal/presentation/rest"
	"github.com/bibbank/churn-service/pkg/observability"
)

func main() {
	if err := run(); err != nil {
		slog.Error("churnd exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := observability.InitLogger(observability.LogConfig{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: cfg.Telemetry.ServiceName,
	})

	logger.Info("starting churn-service",
		slog.String("grpc_address", cfg.GRPCAddr()),
		slog.String("http_address", cfg.HTTPAddr()),
		slog.String("model_dir", cfg.Artifacts.ModelDir),
	)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Warn("failed to initialize tracer, continuing without tracing", slog.String("error", err.Error()))
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	meterProvider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{
		ServiceName: cfg.Telemetry.ServiceName,
	})
	if err != nil {
		return err
	}
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()

	retention, err := config.LoadRetention(cfg.Serving.RetentionConfigPath)
	if err != nil {
		return err
	}

	// The bundle is loaded once; a retrained model needs a restart.
	bundles := filestore.NewBundleStore(cfg.Artifacts.ModelDir, logger)
	bundle, err := bundles.LoadLatest(ctx)
	switch {
	case errors.Is(err, model.ErrBundleNotFound):
		logger.Warn("no trained model found, predictions are unavailable until churnctl train runs",
			slog.String("model_dir", cfg.Artifacts.ModelDir))
	case err != nil:
		return fmt.Errorf("load model bundle: %w", err)
	default:
		logger.Info("model bundle loaded",
			slog.String("version", bundle.Version),
			slog.String("model", bundle.ModelName),
			slog.Float64("threshold", bundle.DecisionThreshold),
		)
	}

	risks := filestore.NewRiskTable(cfg.Artifacts.ReportDir, logger)
	useCases := usecase.NewServingSet(bundle, risks, service.NewRetentionAdvisor(retention), logger)

	grpcServer, err := grpcpresentation.NewServer(
		grpcpresentation.NewChurnServiceHandler(useCases, logger),
		grpcpresentation.ServerConfig{
			Address:     cfg.GRPCAddr(),
			TLSCertFile: cfg.Serving.TLSCertFile,
			TLSKeyFile:  cfg.Serving.TLSKeyFile,
			Reflection:  cfg.Serving.GRPCReflection,
		},
		logger,
	)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr: cfg.HTTPAddr(),
		Handler: rest.NewRouter(useCases, rest.RouterConfig{
			CORSOrigins: cfg.Serving.CORSOrigins,
			Metrics:     metricsHandler,
		}, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 2)

	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	go func() {
		logger.Info("HTTP server starting", slog.String("address", cfg.HTTPAddr()))
		var err error
		if cfg.TLSEnabled() {
			err = httpServer.ListenAndServeTLS(cfg.Serving.TLSCertFile, cfg.Serving.TLSKeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	logger.Info("churn-service started", slog.Bool("model_loaded", useCases.ModelLoaded()))

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case runErr = <-errCh:
		logger.Error("server error", slog.String("error", runErr.Error()))
	}

	logger.Info("shutting down churn-service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Serving.ShutdownTimeout)
	defer shutdownCancel()

	grpcServer.Stop()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("churn-service stopped")
	return runErr
}
