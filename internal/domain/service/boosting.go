package service

import (
	"math"
)

// GradientBoosting fits shallow regression trees to the log-loss gradient,
// with Newton steps at the leaves.
type GradientBoosting struct {
	Trees          []Tree
	InitScore      float64
	NumRounds      int
	LearningRate   float64
	MaxDepth       int
	Lambda         float64
	ScalePosWeight float64
	Importances    []float64
}

// NewGradientBoosting returns a booster. A scalePosWeight above zero multiplies
// the loss of churn samples by that factor.
func NewGradientBoosting(scalePosWeight float64) *GradientBoosting {
	return &GradientBoosting{
		NumRounds:      100,
		LearningRate:   0.1,
		MaxDepth:       3,
		Lambda:         1,
		ScalePosWeight: scalePosWeight,
	}
}

// ScalePosWeight returns the churn sample weight that balances the classes,
// w1 / w0 of the inverse-frequency class weights.
func ScalePosWeight(y []int) float64 {
	w := ClassWeights(y)
	return w[1] / w[0]
}

// Fit runs NumRounds boosting rounds.
func (m *GradientBoosting) Fit(X [][]float64, y []int) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}

	n := len(X)
	sw := make([]float64, n)
	var pos, total float64
	for i, label := range y {
		sw[i] = 1
		if label == 1 && m.ScalePosWeight > 0 {
			sw[i] = m.ScalePosWeight
		}
		total += sw[i]
		pos += sw[i] * float64(label)
	}

	prior := math.Min(math.Max(pos/total, 1e-6), 1-1e-6)
	m.InitScore = math.Log(prior / (1 - prior))

	score := make([]float64, n)
	for i := range score {
		score[i] = m.InitScore
	}

	grad := make([]float64, n)
	hess := make([]float64, n)
	g := newTreeGrower(X, grad, hess, criterionNewton)
	g.maxDepth = m.MaxDepth
	g.lambda = m.Lambda

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}

	m.Trees = make([]Tree, 0, m.NumRounds)
	for r := 0; r < m.NumRounds; r++ {
		for i := range score {
			p := sigmoid(score[i])
			grad[i] = sw[i] * (p - float64(y[i]))
			hess[i] = sw[i] * math.Max(p*(1-p), 1e-6)
		}
		tree := g.build(idx)
		for k := range tree.Nodes {
			if tree.Nodes[k].Feature < 0 {
				tree.Nodes[k].Value *= m.LearningRate
			}
		}
		for i, row := range X {
			score[i] += tree.Eval(row)
		}
		m.Trees = append(m.Trees, tree)
	}
	m.Importances = normalizedImportances(g.importances)
	return nil
}

// PredictProba returns P(churn) per row.
func (m *GradientBoosting) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		s := m.InitScore
		for t := range m.Trees {
			s += m.Trees[t].Eval(row)
		}
		out[i] = sigmoid(s)
	}
	return out
}

// Predict classifies at 0.5.
func (m *GradientBoosting) Predict(X [][]float64) []int {
	return thresholdAt(m.PredictProba(X), DefaultDecisionThreshold)
}

// FeatureImportances returns the normalized split gain per feature.
func (m *GradientBoosting) FeatureImportances() []float64 { return m.Importances }
