package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/infrastructure/csvsource"
	"github.com/bibbank/churn-service/internal/infrastructure/datagen"
	"github.com/bibbank/churn-service/internal/infrastructure/postgres"
	pkgpostgres "github.com/bibbank/churn-service/pkg/postgres"
)

type generateFlags struct {
	out       string
	rows      int
	churnRate float64
	seed      uint64
	seedDB    bool
}

func newGenerateCmd(g *globalFlags) *cobra.Command {
	f := &generateFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write synthetic bank customers to CSV",
		Long: `Generates reproducible synthetic customers with a fixed churn rate and writes
them as CSV. With --seed-db the same customers replace the contents of the
PostgreSQL customer table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)
			ctx := cmd.Context()

			out := f.out
			if out == "" {
				out = cfg.Data.CSVPath
			}

			records, err := datagen.NewGenerator(f.seed).Generate(f.rows, f.churnRate)
			if err != nil {
				return err
			}
			if err := csvsource.WriteFile(out, model.CustomerFrame(records, true)); err != nil {
				return err
			}
			logger.Info("synthetic customers written",
				slog.String("path", out),
				slog.Int("rows", len(records)),
				slog.Float64("churn_rate", f.churnRate),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d customers to %s\n", len(records), filepath.Clean(out))

			if !f.seedDB {
				return nil
			}
			copied, err := seedDatabase(ctx, postgresConfig(cfg), cfg.DB.Table, records)
			if err != nil {
				return err
			}
			logger.Info("customer table seeded", slog.String("table", cfg.DB.Table), slog.Int64("rows", copied))
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d customers into %s\n", copied, cfg.DB.Table)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.out, "out", "o", "", "output CSV path (defaults to CHURN_DATA_PATH)")
	fl.IntVarP(&f.rows, "rows", "n", 10000, "number of customers")
	fl.Float64Var(&f.churnRate, "churn-rate", 0.2, "fraction of churners")
	fl.Uint64Var(&f.seed, "seed", 42, "generator seed")
	fl.BoolVar(&f.seedDB, "seed-db", false, "also load the customers into PostgreSQL")
	return cmd
}

func seedDatabase(ctx context.Context, cfg pkgpostgres.Config, table string, records []model.CustomerRecord) (int64, error) {
	if err := pkgpostgres.RunMigrations(cfg.DSN(), postgres.Migrations, postgres.MigrationsDir); err != nil {
		return 0, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pkgpostgres.NewPool(connectCtx, cfg)
	if err != nil {
		return 0, err
	}
	defer pool.Close()

	return postgres.SeedCustomers(ctx, pool, table, records)
}
