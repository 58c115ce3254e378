package filestore

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/port"
	"github.com/bibbank/churn-service/internal/domain/service"
)

// Report file names.
const (
	ModelComparisonFile   = "model_comparison.csv"
	ClassificationFile    = "classification_report.csv"
	FeatureImportanceFile = "feature_importance.csv"
	ThresholdScanFile     = "threshold_scan.csv"
	SegmentsFile          = "customer_segments.csv"
	EvaluationFile        = "evaluation.json"
)

type reportFile struct {
	name string
	rows [][]string
}

// ReportWriter writes the tabular and JSON reports of a training run.
type ReportWriter struct {
	logger *slog.Logger
	dir    string
}

// NewReportWriter creates a ReportWriter rooted at dir.
func NewReportWriter(dir string, logger *slog.Logger) *ReportWriter {
	return &ReportWriter{dir: dir, logger: logger}
}

// WriteReports writes every report file. The feature importance and segment
// files are only written when the run produced them.
func (w *ReportWriter) WriteReports(ctx context.Context, report port.TrainingReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	files := []reportFile{
		{ModelComparisonFile, comparisonRows(report.Candidates)},
		{ClassificationFile, classificationRows(report.Evaluation)},
		{ThresholdScanFile, thresholdRows(report.ThresholdScan)},
	}
	if len(report.Evaluation.FeatureImportances) > 0 {
		files = append(files, reportFile{FeatureImportanceFile, importanceRows(report.Evaluation.FeatureImportances)})
	}
	if len(report.Segments) > 0 {
		files = append(files, reportFile{SegmentsFile, segmentRows(report.Segments)})
	}

	for _, f := range files {
		if err := writeCSV(filepath.Join(w.dir, f.name), f.rows); err != nil {
			return fmt.Errorf("filestore: %s: %w", f.name, err)
		}
	}

	if err := writeAtomic(filepath.Join(w.dir, EvaluationFile), func(out io.Writer) error {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(evaluationDocument{
			RunID:       report.RunID,
			Version:     report.Version,
			BestModel:   report.BestModel,
			GeneratedAt: report.GeneratedAt.UTC().Format(time.RFC3339),
			Evaluation:  report.Evaluation,
			Candidates:  report.Candidates,
		})
	}); err != nil {
		return fmt.Errorf("filestore: %s: %w", EvaluationFile, err)
	}

	w.logger.InfoContext(ctx, "training reports written",
		slog.String("dir", w.dir),
		slog.String("best_model", report.BestModel),
	)
	return nil
}

type evaluationDocument struct {
	RunID       string                     `json:"run_id"`
	Version     string                     `json:"version"`
	BestModel   string                     `json:"best_model"`
	GeneratedAt string                     `json:"generated_at"`
	Evaluation  service.EvaluationReport   `json:"evaluation"`
	Candidates  []service.CandidateMetrics `json:"candidates"`
}

func writeCSV(path string, rows [][]string) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.WriteAll(rows); err != nil {
			return err
		}
		return cw.Error()
	})
}

func ff(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func comparisonRows(candidates []service.CandidateMetrics) [][]string {
	rows := [][]string{{"Model", "Accuracy", "Precision", "Recall", "F1 Score", "ROC-AUC"}}
	for _, c := range candidates {
		auc := ""
		if c.HasAUC {
			auc = ff(c.ROCAUC)
		}
		rows = append(rows, []string{c.Name, ff(c.Accuracy), ff(c.Precision), ff(c.Recall), ff(c.F1), auc})
	}
	return rows
}

func classificationRows(r service.EvaluationReport) [][]string {
	rows := [][]string{{"", "precision", "recall", "f1-score", "support"}}
	for _, c := range r.Classes {
		rows = append(rows, classRow(c.Class, c))
	}
	rows = append(rows,
		[]string{"accuracy", "", "", ff(r.Metrics.Accuracy), strconv.Itoa(r.WeightedAverage.Support)},
		classRow("macro avg", r.MacroAverage),
		classRow("weighted avg", r.WeightedAverage),
	)
	return rows
}

func classRow(label string, c service.ClassMetrics) []string {
	return []string{label, ff(c.Precision), ff(c.Recall), ff(c.F1), strconv.Itoa(c.Support)}
}

func importanceRows(importances []service.FeatureImportance) [][]string {
	rows := [][]string{{"Feature", "Importance"}}
	for _, fi := range importances {
		rows = append(rows, []string{fi.Feature, ff(fi.Importance)})
	}
	return rows
}

func thresholdRows(scan []service.ThresholdPoint) [][]string {
	rows := [][]string{{"Threshold", "F1"}}
	for _, p := range scan {
		rows = append(rows, []string{strconv.FormatFloat(p.Threshold, 'f', 2, 64), ff(p.F1)})
	}
	return rows
}

// segmentRows lays out one row per segment with a column per profiled
// attribute, in segmentation order.
func segmentRows(profiles []model.SegmentProfile) [][]string {
	var cols []string
	for _, col := range service.SegmentationColumns {
		for _, p := range profiles {
			if _, ok := p.Attribute(col); ok {
				cols = append(cols, col)
				break
			}
		}
	}

	header := []string{"Segment", "Customers", "Avg Churn Probability"}
	header = append(header, cols...)
	rows := [][]string{append(header, "Description")}
	for _, p := range profiles {
		row := []string{strconv.Itoa(p.Segment), strconv.Itoa(p.CustomerCount), ff(p.AverageChurnProbability)}
		for _, col := range cols {
			v, ok := p.Attribute(col)
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, ff(v))
		}
		rows = append(rows, append(row, p.Description))
	}
	return rows
}
