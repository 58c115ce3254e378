package service

import (
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

// Threshold grid bounds, in hundredths.
const (
	gridStart = 10
	gridStop  = 85
	gridStep  = 5
)

// ThresholdPoint is one scanned threshold and its F1.
type ThresholdPoint struct {
	Threshold float64 `json:"threshold"`
	F1        float64 `json:"f1"`
}

// ThresholdResult is the chosen threshold. Scanned is false when the model had
// no probability output and the default was returned.
type ThresholdResult struct {
	Threshold valueobject.Threshold
	F1        float64
	Scanned   bool
	Scan      []ThresholdPoint
}

// ThresholdGrid returns 0.10, 0.15, ..., 0.85.
func ThresholdGrid() []float64 {
	grid := make([]float64, 0, (gridStop-gridStart)/gridStep+1)
	for h := gridStart; h <= gridStop; h += gridStep {
		grid = append(grid, float64(h)/100)
	}
	return grid
}

// OptimizeThreshold scans the grid and returns the threshold with the highest
// F1 on the given data, keeping the first on ties.
func OptimizeThreshold(m Classifier, X [][]float64, y []int) ThresholdResult {
	proba, ok := Probabilities(m, X)
	if !ok {
		return ThresholdResult{Threshold: valueobject.DefaultThreshold()}
	}
	return OptimizeThresholdFromProba(proba, y)
}

// OptimizeThresholdFromProba scans precomputed probabilities.
func OptimizeThresholdFromProba(proba []float64, y []int) ThresholdResult {
	res := ThresholdResult{Scanned: true, F1: -1}
	best := DefaultDecisionThreshold
	for _, t := range ThresholdGrid() {
		score := Confusion(y, thresholdAt(proba, t)).F1()
		res.Scan = append(res.Scan, ThresholdPoint{Threshold: t, F1: score})
		if score > res.F1 {
			res.F1 = score
			best = t
		}
	}
	// Grid values lie strictly inside (0,1).
	res.Threshold, _ = valueobject.NewThreshold(best)
	return res
}
