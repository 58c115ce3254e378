// Command churnctl trains churn models and manages their inputs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bibbank/churn-service/internal/infrastructure/config"
	"github.com/bibbank/churn-service/pkg/observability"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand and override the environment.
type globalFlags struct {
	envFile   string
	modelDir  string
	reportDir string
	logLevel  string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:   "churnctl",
		Short: "Train and inspect bank customer churn models",
		Long: `churnctl runs the churn training pipeline and manages its inputs.

Configuration comes from the environment (and an optional .env file); flags
override it. Run "churnd" to serve the trained model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&g.envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	pf.StringVar(&g.modelDir, "model-dir", "", "artifact bundle directory (overrides CHURN_MODEL_DIR)")
	pf.StringVar(&g.reportDir, "report-dir", "", "report directory (overrides CHURN_REPORT_DIR)")
	pf.StringVar(&g.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(
		newTrainCmd(g),
		newGenerateCmd(g),
		newSummaryCmd(g),
		newCertsCmd(),
	)
	return root
}

// load reads the configuration and applies flag overrides.
func (g *globalFlags) load() (config.Config, error) {
	cfg, err := config.Load(g.envFile)
	if err != nil {
		return cfg, err
	}
	if g.modelDir != "" {
		cfg.Artifacts.ModelDir = g.modelDir
	}
	if g.reportDir != "" {
		cfg.Artifacts.ReportDir = g.reportDir
	}
	if g.logLevel != "" {
		cfg.LogLevel = g.logLevel
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	return observability.InitLogger(observability.LogConfig{
		Output:      cmd.ErrOrStderr(),
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		ServiceName: "churnctl",
	})
}
