package service

import (
	"fmt"
	"sort"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

// ClassMetrics is one row of the per-class classification report.
type ClassMetrics struct {
	Class     string  `json:"class"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// FeatureImportance is one ranked feature.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// CoreMetrics are the five headline metrics at the chosen threshold.
type CoreMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	ROCAUC    float64 `json:"roc_auc"`
}

// EvaluationReport is the reporting view of the selected model.
type EvaluationReport struct {
	Threshold          float64             `json:"threshold"`
	Metrics            CoreMetrics         `json:"metrics"`
	HasProbabilities   bool                `json:"has_probabilities"`
	Confusion          ConfusionMatrix     `json:"confusion_matrix"`
	ROC                []CurvePoint        `json:"roc_curve"`
	PrecisionRecall    []CurvePoint        `json:"precision_recall_curve"`
	AveragePrecision   float64             `json:"average_precision"`
	Classes            []ClassMetrics      `json:"classes"`
	MacroAverage       ClassMetrics        `json:"macro_avg"`
	WeightedAverage    ClassMetrics        `json:"weighted_avg"`
	FeatureImportances []FeatureImportance `json:"feature_importances,omitempty"`
}

// Evaluate scores the model on held-out data at the given threshold. The
// model is only read.
func Evaluate(m Classifier, X [][]float64, y []int, threshold valueobject.Threshold, featureNames []string) (EvaluationReport, error) {
	if len(X) == 0 {
		return EvaluationReport{}, model.ErrEmptyTable
	}
	if len(X) != len(y) {
		return EvaluationReport{}, fmt.Errorf("%w: %d rows, %d labels", model.ErrShapeMismatch, len(X), len(y))
	}

	report := EvaluationReport{Threshold: threshold.Value()}

	var pred []int
	proba, ok := Probabilities(m, X)
	if ok {
		report.HasProbabilities = true
		pred = thresholdAt(proba, threshold.Value())
		report.ROC, report.Metrics.ROCAUC = ROCCurve(y, proba)
		report.PrecisionRecall, report.AveragePrecision = PrecisionRecallCurve(y, proba)
	} else {
		pred = m.Predict(X)
	}

	cm := Confusion(y, pred)
	report.Confusion = cm
	report.Metrics.Accuracy = cm.Accuracy()
	report.Metrics.Precision = cm.Precision()
	report.Metrics.Recall = cm.Recall()
	report.Metrics.F1 = cm.F1()

	report.Classes = []ClassMetrics{
		classMetrics("Not Churned", cm.negativeClass()),
		classMetrics("Churned", cm),
	}
	report.MacroAverage, report.WeightedAverage = averages(report.Classes)

	if ir, ok := m.(ImportanceReporter); ok {
		report.FeatureImportances = RankImportances(ir.FeatureImportances(), featureNames)
	}
	return report, nil
}

// RankImportances pairs importances with names, sorted descending. Entries
// without a matching name are labelled by column index.
func RankImportances(importances []float64, names []string) []FeatureImportance {
	if len(importances) == 0 {
		return nil
	}
	out := make([]FeatureImportance, len(importances))
	for i, v := range importances {
		name := fmt.Sprintf("feature_%d", i)
		if i < len(names) {
			name = names[i]
		}
		out[i] = FeatureImportance{Feature: name, Importance: v}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}

func classMetrics(name string, cm ConfusionMatrix) ClassMetrics {
	return ClassMetrics{
		Class:     name,
		Precision: cm.Precision(),
		Recall:    cm.Recall(),
		F1:        cm.F1(),
		Support:   cm.TruePositives + cm.FalseNegatives,
	}
}

func averages(classes []ClassMetrics) (macro, weighted ClassMetrics) {
	macro.Class = "macro avg"
	weighted.Class = "weighted avg"
	var support int
	for _, c := range classes {
		support += c.Support
	}
	for _, c := range classes {
		k := float64(len(classes))
		macro.Precision += c.Precision / k
		macro.Recall += c.Recall / k
		macro.F1 += c.F1 / k

		w := safeDiv(float64(c.Support), float64(support))
		weighted.Precision += c.Precision * w
		weighted.Recall += c.Recall * w
		weighted.F1 += c.F1 * w
	}
	macro.Support = support
	weighted.Support = support
	return macro, weighted
}
