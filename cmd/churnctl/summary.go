package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/bibbank/churn-service/internal/application/usecase"
	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/infrastructure/filestore"
)

func newSummaryCmd(g *globalFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print dashboard aggregates of the latest risk table and customer segments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			logger := newLogger(cmd, cfg)

			bundle, err := filestore.NewBundleStore(cfg.Artifacts.ModelDir, logger).LoadLatest(cmd.Context())
			if err != nil && !errors.Is(err, model.ErrBundleNotFound) {
				return err
			}
			risks := filestore.NewRiskTable(cfg.Artifacts.ReportDir, logger)
			summary, err := usecase.NewGetRiskSummary(risks, bundle).Execute(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			fmt.Fprintf(out, "customers:          %d\n", summary.TotalCustomers)
			fmt.Fprintf(out, "predicted churners: %d\n", summary.PredictedChurners)
			fmt.Fprintf(out, "at risk:            %d\n", summary.AtRiskCount)
			fmt.Fprintf(out, "avg probability:    %.4f\n\n", summary.AverageChurnProbability)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RISK\tCUSTOMERS\tAVG PROBABILITY")
			for _, c := range summary.RiskDistribution {
				fmt.Fprintf(tw, "%s\t%d\t%.4f\n", c.Name, c.Value, c.AverageProbability)
			}
			if len(summary.Segments) > 0 {
				fmt.Fprintln(tw, "\nSEGMENT\tCUSTOMERS\tAVG PROBABILITY\tDESCRIPTION")
				for _, seg := range summary.Segments {
					fmt.Fprintf(tw, "%d\t%d\t%.4f\t%s\n", seg.Segment, seg.CustomerCount, seg.AverageChurnProbability, seg.Description)
				}
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
