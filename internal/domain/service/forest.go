package service

import (
	"math"
)

// RandomForest is a bagged ensemble of Gini trees with random feature
// subsets at each split.
type RandomForest struct {
	Trees       []Tree
	NumTrees    int
	MaxDepth    int
	MinLeaf     int
	Balanced    bool
	Seed        uint64
	Importances []float64
}

// NewRandomForest returns a forest with sqrt(p) features per split.
func NewRandomForest(balanced bool, seed uint64) *RandomForest {
	return &RandomForest{
		NumTrees: 100,
		MaxDepth: 10,
		MinLeaf:  1,
		Balanced: balanced,
		Seed:     seed,
	}
}

// Fit grows NumTrees trees on bootstrap samples.
func (m *RandomForest) Fit(X [][]float64, y []int) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}

	n, p := len(X), len(X[0])
	cw := [2]float64{1, 1}
	if m.Balanced {
		cw = ClassWeights(y)
	}
	a := make([]float64, n)
	b := make([]float64, n)
	for i, label := range y {
		b[i] = cw[label]
		a[i] = b[i] * float64(label)
	}

	rng := newRand(m.Seed)
	g := newTreeGrower(X, a, b, criterionGini)
	g.maxDepth = m.MaxDepth
	g.minLeaf = m.MinLeaf
	g.maxFeatures = max(1, int(math.Sqrt(float64(p))))
	g.rng = rng

	m.Trees = make([]Tree, m.NumTrees)
	sample := make([]int, n)
	for t := range m.Trees {
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		m.Trees[t] = g.build(sample)
	}
	m.Importances = normalizedImportances(g.importances)
	return nil
}

// PredictProba averages the leaf churn shares across trees.
func (m *RandomForest) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	if len(m.Trees) == 0 {
		return out
	}
	for i, row := range X {
		var sum float64
		for t := range m.Trees {
			sum += m.Trees[t].Eval(row)
		}
		out[i] = sum / float64(len(m.Trees))
	}
	return out
}

// Predict classifies at 0.5.
func (m *RandomForest) Predict(X [][]float64) []int {
	return thresholdAt(m.PredictProba(X), DefaultDecisionThreshold)
}

// FeatureImportances returns the normalized Gini gain per feature.
func (m *RandomForest) FeatureImportances() []float64 { return m.Importances }
