package service

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// ConfusionMatrix counts binary outcomes with churn as the positive class.
type ConfusionMatrix struct {
	TrueNegatives  int `json:"true_negatives"`
	FalsePositives int `json:"false_positives"`
	FalseNegatives int `json:"false_negatives"`
	TruePositives  int `json:"true_positives"`
}

// Confusion tallies predictions against labels.
func Confusion(y, pred []int) ConfusionMatrix {
	var cm ConfusionMatrix
	for i := range y {
		switch {
		case y[i] == 1 && pred[i] == 1:
			cm.TruePositives++
		case y[i] == 1:
			cm.FalseNegatives++
		case pred[i] == 1:
			cm.FalsePositives++
		default:
			cm.TrueNegatives++
		}
	}
	return cm
}

// Total is the number of tallied rows.
func (cm ConfusionMatrix) Total() int {
	return cm.TrueNegatives + cm.FalsePositives + cm.FalseNegatives + cm.TruePositives
}

// Accuracy is 0 for an empty matrix.
func (cm ConfusionMatrix) Accuracy() float64 {
	return safeDiv(float64(cm.TruePositives+cm.TrueNegatives), float64(cm.Total()))
}

// Precision of the churn class; 0 when nothing was predicted positive.
func (cm ConfusionMatrix) Precision() float64 {
	return safeDiv(float64(cm.TruePositives), float64(cm.TruePositives+cm.FalsePositives))
}

// Recall of the churn class; 0 when there are no positives.
func (cm ConfusionMatrix) Recall() float64 {
	return safeDiv(float64(cm.TruePositives), float64(cm.TruePositives+cm.FalseNegatives))
}

// F1 of the churn class; 0 when precision and recall are both 0.
func (cm ConfusionMatrix) F1() float64 {
	return f1(cm.Precision(), cm.Recall())
}

// negativeClass returns the matrix seen with non-churn as the positive class.
func (cm ConfusionMatrix) negativeClass() ConfusionMatrix {
	return ConfusionMatrix{
		TrueNegatives:  cm.TruePositives,
		FalsePositives: cm.FalseNegatives,
		FalseNegatives: cm.FalsePositives,
		TruePositives:  cm.TrueNegatives,
	}
}

// CurvePoint is one (x, y) point on a ROC or precision-recall curve along with
// the score cutoff that produced it.
type CurvePoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Threshold float64 `json:"threshold"`
}

// ROCCurve returns the ROC curve (X = false positive rate, Y = true positive
// rate) and its area. A single-class label set yields the diagonal and 0.5.
func ROCCurve(y []int, proba []float64) ([]CurvePoint, float64) {
	neg, pos := 0, 0
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return []CurvePoint{{X: 0, Y: 0, Threshold: 1}, {X: 1, Y: 1, Threshold: 0}}, 0.5
	}

	scores := make([]float64, len(proba))
	copy(scores, proba)
	classes := make([]bool, len(y))
	for i, v := range y {
		classes[i] = v == 1
	}
	stat.SortWeightedLabeled(scores, classes, nil)

	tpr, fpr, cutoffs := stat.ROC(nil, scores, classes, nil)
	auc := integrate.Trapezoidal(fpr, tpr)

	// stat.ROC opens the curve at a +Inf cutoff; probabilities never exceed 1.
	points := make([]CurvePoint, len(tpr))
	for i := range tpr {
		points[i] = CurvePoint{X: fpr[i], Y: tpr[i], Threshold: math.Min(cutoffs[i], 1)}
	}
	return points, auc
}

// PrecisionRecallCurve returns the curve (X = recall, Y = precision) in order
// of decreasing cutoff, and the average precision sum((R_n - R_n-1) * P_n).
func PrecisionRecallCurve(y []int, proba []float64) ([]CurvePoint, float64) {
	order := make([]int, len(proba))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return proba[order[a]] > proba[order[b]] })

	positives := 0
	for _, v := range y {
		positives += v
	}
	if positives == 0 {
		return []CurvePoint{{X: 0, Y: 1, Threshold: 1}}, 0
	}

	points := []CurvePoint{{X: 0, Y: 1, Threshold: 1}}
	var tp, fp int
	var ap, prevRecall float64
	for k, i := range order {
		if y[i] == 1 {
			tp++
		} else {
			fp++
		}
		if k+1 < len(order) && proba[order[k+1]] == proba[i] {
			continue
		}
		precision := float64(tp) / float64(tp+fp)
		recall := float64(tp) / float64(positives)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
		points = append(points, CurvePoint{X: recall, Y: precision, Threshold: proba[i]})
	}
	return points, ap
}

func f1(precision, recall float64) float64 {
	return safeDiv(2*precision*recall, precision+recall)
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
