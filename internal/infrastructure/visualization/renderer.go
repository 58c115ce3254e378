// Package visualization renders training reports as PNG charts.
package visualization

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/port"
	"github.com/bibbank/churn-service/internal/domain/service"
)

// Chart file names.
const (
	ROCCurveFile          = "roc_curve.png"
	PrecisionRecallFile   = "precision_recall_curve.png"
	ThresholdFile         = "threshold_optimization.png"
	FeatureImportanceFile = "feature_importance.png"
	ModelComparisonFile   = "model_comparison.png"
	ConfusionMatrixFile   = "confusion_matrix.png"
	SegmentsFile          = "customer_segments.png"
)

// maxImportanceBars caps the feature importance chart.
const maxImportanceBars = 20

// Renderer draws report charts into a directory. It implements
// port.ChartRenderer.
type Renderer struct {
	logger *slog.Logger
	dir    string
}

// NewRenderer creates a Renderer writing into dir.
func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	return &Renderer{dir: dir, logger: logger}
}

type chart struct {
	file   string
	width  vg.Length
	height vg.Length
	build  func() (*plot.Plot, error)
}

// RenderCharts writes every chart the report has data for and returns the
// written paths. Curves are skipped for models without probability output
// and the importance chart for models that report none.
func (r *Renderer) RenderCharts(ctx context.Context, report port.TrainingReport) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("visualization: create %s: %w", r.dir, err)
	}

	eval := report.Evaluation
	charts := []chart{
		{ModelComparisonFile, 10 * vg.Inch, 5 * vg.Inch, func() (*plot.Plot, error) { return modelComparison(report.Candidates) }},
		{ConfusionMatrixFile, 6 * vg.Inch, 4 * vg.Inch, func() (*plot.Plot, error) { return confusionMatrix(eval.Confusion) }},
	}
	if eval.HasProbabilities {
		charts = append(charts,
			chart{ROCCurveFile, 6 * vg.Inch, 6 * vg.Inch, func() (*plot.Plot, error) { return rocCurve(eval) }},
			chart{PrecisionRecallFile, 6 * vg.Inch, 6 * vg.Inch, func() (*plot.Plot, error) { return precisionRecall(eval) }},
		)
	}
	if len(report.ThresholdScan) > 0 {
		charts = append(charts, chart{ThresholdFile, 8 * vg.Inch, 5 * vg.Inch, func() (*plot.Plot, error) {
			return thresholdScan(report.ThresholdScan, eval.Threshold)
		}})
	}
	if len(eval.FeatureImportances) > 0 {
		charts = append(charts, chart{FeatureImportanceFile, 8 * vg.Inch, 8 * vg.Inch, func() (*plot.Plot, error) {
			return featureImportance(eval.FeatureImportances)
		}})
	}

	if len(report.Segments) > 0 {
		charts = append(charts, chart{SegmentsFile, 8 * vg.Inch, 5 * vg.Inch, func() (*plot.Plot, error) {
			return segmentChurn(report.Segments)
		}})
	}

	var written []string
	for _, c := range charts {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		p, err := c.build()
		if err != nil {
			return written, fmt.Errorf("visualization: build %s: %w", c.file, err)
		}
		path := filepath.Join(r.dir, c.file)
		if err := p.Save(c.width, c.height, path); err != nil {
			return written, fmt.Errorf("visualization: save %s: %w", c.file, err)
		}
		written = append(written, path)
	}

	r.logger.InfoContext(ctx, "charts rendered", slog.Int("count", len(written)), slog.String("dir", r.dir))
	return written, nil
}

func curveXYs(points []service.CurvePoint) plotter.XYs {
	xys := make(plotter.XYs, len(points))
	for i, p := range points {
		xys[i].X, xys[i].Y = p.X, p.Y
	}
	return xys
}

func unitAxes(p *plot.Plot) {
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1.05
	p.Add(plotter.NewGrid())
}

func rocCurve(eval service.EvaluationReport) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "ROC Curve"
	p.X.Label.Text = "False Positive Rate"
	p.Y.Label.Text = "True Positive Rate"
	unitAxes(p)

	line, err := plotter.NewLine(curveXYs(eval.ROC))
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	line.Width = vg.Points(2)

	chance := plotter.NewFunction(func(x float64) float64 { return x })
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	chance.Color = plotutil.Color(1)

	p.Add(line, chance)
	p.Legend.Add(fmt.Sprintf("ROC (AUC = %.3f)", eval.Metrics.ROCAUC), line)
	p.Legend.Add("Chance", chance)
	p.Legend.Left = false
	p.Legend.Top = false
	return p, nil
}

func precisionRecall(eval service.EvaluationReport) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Precision-Recall Curve"
	p.X.Label.Text = "Recall"
	p.Y.Label.Text = "Precision"
	unitAxes(p)

	line, err := plotter.NewLine(curveXYs(eval.PrecisionRecall))
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(2)
	line.Width = vg.Points(2)
	p.Add(line)
	p.Legend.Add(fmt.Sprintf("AP = %.3f", eval.AveragePrecision), line)
	return p, nil
}

func thresholdScan(scan []service.ThresholdPoint, chosen float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Threshold Optimization"
	p.X.Label.Text = "Threshold"
	p.Y.Label.Text = "F1 Score"
	p.Y.Min = 0
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(scan))
	best := 0.0
	for i, pt := range scan {
		xys[i].X, xys[i].Y = pt.Threshold, pt.F1
		best = math.Max(best, pt.F1)
	}
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, err
	}
	line.Color = plotutil.Color(0)
	points.Shape = draw.CircleGlyph{}

	marker, err := plotter.NewLine(plotter.XYs{{X: chosen, Y: 0}, {X: chosen, Y: math.Max(best, 0.01)}})
	if err != nil {
		return nil, err
	}
	marker.Color = plotutil.Color(1)
	marker.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}

	p.Add(line, points, marker)
	p.Legend.Add("F1", line, points)
	p.Legend.Add(fmt.Sprintf("chosen = %.2f", chosen), marker)
	return p, nil
}

func featureImportance(importances []service.FeatureImportance) (*plot.Plot, error) {
	n := min(len(importances), maxImportanceBars)
	values := make(plotter.Values, n)
	names := make([]string, n)
	// Highest importance at the top of the chart.
	for i := 0; i < n; i++ {
		values[n-1-i] = importances[i].Importance
		names[n-1-i] = importances[i].Feature
	}

	p := plot.New()
	p.Title.Text = "Feature Importances"
	p.X.Label.Text = "Importance"

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalY(names...)
	return p, nil
}

func modelComparison(candidates []service.CandidateMetrics) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Model Performance Comparison"
	p.Y.Label.Text = "Score"
	p.Y.Min, p.Y.Max = 0, 1

	metrics := []struct {
		name string
		get  func(service.CandidateMetrics) float64
	}{
		{"Accuracy", func(c service.CandidateMetrics) float64 { return c.Accuracy }},
		{"Precision", func(c service.CandidateMetrics) float64 { return c.Precision }},
		{"Recall", func(c service.CandidateMetrics) float64 { return c.Recall }},
		{"F1 Score", func(c service.CandidateMetrics) float64 { return c.F1 }},
		{"ROC-AUC", func(c service.CandidateMetrics) float64 {
			if !c.HasAUC {
				return 0
			}
			return c.ROCAUC
		}},
	}

	width := vg.Points(9)
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	for m, metric := range metrics {
		values := make(plotter.Values, len(candidates))
		for i, c := range candidates {
			values[i] = metric.get(c)
		}
		bars, err := plotter.NewBarChart(values, width)
		if err != nil {
			return nil, err
		}
		bars.Color = plotutil.Color(m)
		bars.LineStyle.Width = 0
		bars.Offset = vg.Length(m-len(metrics)/2) * width
		p.Add(bars)
		p.Legend.Add(metric.name, bars)
	}
	p.Legend.Top = true
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = math.Pi / 6
	p.X.Tick.Label.XAlign = draw.XRight
	return p, nil
}

func segmentChurn(profiles []model.SegmentProfile) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Churn Probability by Customer Segment"
	p.Y.Label.Text = "Average churn probability"
	p.Y.Min, p.Y.Max = 0, 1

	values := make(plotter.Values, len(profiles))
	names := make([]string, len(profiles))
	for i, seg := range profiles {
		values[i] = seg.AverageChurnProbability
		names[i] = fmt.Sprintf("Segment %d (%d)", seg.Segment, seg.CustomerCount)
	}
	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(names...)
	return p, nil
}

func confusionMatrix(cm service.ConfusionMatrix) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Confusion Matrix"
	p.Y.Label.Text = "Customers"

	values := plotter.Values{
		float64(cm.TrueNegatives),
		float64(cm.FalsePositives),
		float64(cm.FalseNegatives),
		float64(cm.TruePositives),
	}
	bars, err := plotter.NewBarChart(values, vg.Points(40))
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(0)
	p.Add(bars)
	p.NominalX("True Negative", "False Positive", "False Negative", "True Positive")
	return p, nil
}
