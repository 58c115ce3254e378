package filestore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cast"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/service"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

const (
	riskScoresFile  = "customer_risk_scores.csv"
	riskSummaryFile = "risk_category_summary.csv"
)

var riskHeader = []string{"CustomerID", "ChurnProbability", "RiskCategory", "PredictedChurn"}

// RiskTable stores the per-customer risk table and its category summary as
// CSV files. It implements port.RiskScoreRepository.
type RiskTable struct {
	logger *slog.Logger
	dir    string
}

// NewRiskTable creates a RiskTable rooted at dir.
func NewRiskTable(dir string, logger *slog.Logger) *RiskTable {
	return &RiskTable{dir: dir, logger: logger}
}

// Path returns the risk table file.
func (t *RiskTable) Path() string { return filepath.Join(t.dir, riskScoresFile) }

// SummaryPath returns the category summary file.
func (t *RiskTable) SummaryPath() string { return filepath.Join(t.dir, riskSummaryFile) }

// ReplaceAll swaps the risk table for scores, then rewrites the summary.
func (t *RiskTable) ReplaceAll(ctx context.Context, scores []model.RiskScore) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := writeAtomic(t.Path(), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(riskHeader); err != nil {
			return err
		}
		for _, s := range scores {
			if err := cw.Write([]string{
				s.CustomerID,
				strconv.FormatFloat(s.ChurnProbability, 'f', -1, 64),
				s.RiskCategory.String(),
				boolDigit(s.PredictedChurn),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("filestore: replace risk table: %w", err)
	}

	if err := t.writeSummary(service.SummarizeRisk(scores)); err != nil {
		return fmt.Errorf("filestore: write risk summary: %w", err)
	}

	t.logger.InfoContext(ctx, "risk table replaced",
		slog.Int("customers", len(scores)),
		slog.String("path", t.Path()),
	)
	return nil
}

func (t *RiskTable) writeSummary(summary model.RiskSummary) error {
	return writeAtomic(t.SummaryPath(), func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write([]string{"RiskCategory", "CustomerCount", "AverageChurnProbability"}); err != nil {
			return err
		}
		for _, c := range summary.Categories {
			if err := cw.Write([]string{
				c.Category.String(),
				strconv.Itoa(c.CustomerCount),
				strconv.FormatFloat(c.AverageProbability, 'f', 6, 64),
			}); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// FindAll reads the stored risk table. A missing table is empty.
func (t *RiskTable) FindAll(ctx context.Context) ([]model.RiskScore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(t.Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("filestore: open risk table: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("filestore: read risk table: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	scores := make([]model.RiskScore, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(riskHeader) {
			return nil, fmt.Errorf("filestore: risk table line %d has %d fields", i+2, len(rec))
		}
		p, err := cast.ToFloat64E(rec[1])
		if err != nil {
			return nil, fmt.Errorf("filestore: risk table line %d: %w", i+2, err)
		}
		category, err := valueobject.RiskCategoryFromString(rec[2])
		if err != nil {
			return nil, fmt.Errorf("filestore: risk table line %d: %w", i+2, err)
		}
		churn, err := cast.ToBoolE(rec[3])
		if err != nil {
			return nil, fmt.Errorf("filestore: risk table line %d: %w", i+2, err)
		}
		scores = append(scores, model.RiskScore{
			CustomerID:       rec[0],
			ChurnProbability: p,
			RiskCategory:     category,
			PredictedChurn:   churn,
		})
	}
	return scores, nil
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
