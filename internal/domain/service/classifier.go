package service

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/bibbank/churn-service/internal/domain/model"
	"github.com/bibbank/churn-service/internal/domain/valueobject"
)

// DefaultSeed makes every stochastic step of training reproducible.
const DefaultSeed uint64 = 42

// DefaultDecisionThreshold is used by Predict on probabilistic models.
const DefaultDecisionThreshold = valueobject.DefaultThresholdValue

// Classifier is a binary churn classifier over a standardized feature matrix.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
}

// ProbabilisticClassifier additionally reports the probability of churn.
type ProbabilisticClassifier interface {
	Classifier
	PredictProba(X [][]float64) []float64
}

// ImportanceReporter is implemented by models with an intrinsic feature
// importance signal. Values align with the matrix columns.
type ImportanceReporter interface {
	FeatureImportances() []float64
}

// Probabilities returns churn probabilities, or false when the model has no
// probability output.
func Probabilities(c Classifier, X [][]float64) ([]float64, bool) {
	pc, ok := c.(ProbabilisticClassifier)
	if !ok {
		return nil, false
	}
	return pc.PredictProba(X), true
}

// ClassWeights returns inverse-frequency weights n / (k * n_c) for classes 0
// and 1, where k is the number of classes present. A class with no samples
// gets weight 1.
func ClassWeights(y []int) [2]float64 {
	var counts [2]int
	for _, v := range y {
		counts[v]++
	}
	present := 0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}
	var w [2]float64
	for c := range w {
		if counts[c] == 0 {
			w[c] = 1
			continue
		}
		w[c] = float64(len(y)) / (float64(present) * float64(counts[c]))
	}
	return w
}

func validateTrainingSet(X [][]float64, y []int) error {
	if len(X) == 0 {
		return model.ErrEmptyTable
	}
	if len(X) != len(y) {
		return fmt.Errorf("%w: %d rows, %d labels", model.ErrShapeMismatch, len(X), len(y))
	}
	width := len(X[0])
	for i, row := range X {
		if len(row) != width {
			return fmt.Errorf("%w: row %d has %d columns, want %d", model.ErrShapeMismatch, i, len(row), width)
		}
	}
	for i, v := range y {
		if v != 0 && v != 1 {
			return fmt.Errorf("%w: label %d at row %d", model.ErrInvalidTarget, v, i)
		}
	}
	return nil
}

func thresholdAt(proba []float64, t float64) []int {
	out := make([]int, len(proba))
	for i, p := range proba {
		if p >= t {
			out[i] = 1
		}
	}
	return out
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

func sigmoid(z float64) float64 {
	switch {
	case z > 35:
		return 1
	case z < -35:
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}
