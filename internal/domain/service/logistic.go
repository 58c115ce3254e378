package service

import (
	"gonum.org/v1/gonum/floats"
)

// LogisticRegression is an L2-regularized linear baseline trained with batch
// gradient descent.
type LogisticRegression struct {
	Weights      []float64
	Bias         float64
	L2           float64
	LearningRate float64
	Iterations   int
	Balanced     bool
}

// NewLogisticRegression returns the baseline with inverse-frequency class
// weighting enabled when balanced is set.
func NewLogisticRegression(balanced bool) *LogisticRegression {
	return &LogisticRegression{
		L2:           1e-3,
		LearningRate: 0.1,
		Iterations:   500,
		Balanced:     balanced,
	}
}

// Fit trains the model.
func (m *LogisticRegression) Fit(X [][]float64, y []int) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}

	n, p := len(X), len(X[0])
	sw := make([]float64, n)
	cw := [2]float64{1, 1}
	if m.Balanced {
		cw = ClassWeights(y)
	}
	for i := range sw {
		sw[i] = cw[y[i]]
	}
	total := floats.Sum(sw)

	m.Weights = make([]float64, p)
	m.Bias = 0
	grad := make([]float64, p)

	for it := 0; it < m.Iterations; it++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradBias float64
		for i, row := range X {
			residual := sw[i] * (sigmoid(floats.Dot(m.Weights, row)+m.Bias) - float64(y[i]))
			floats.AddScaled(grad, residual, row)
			gradBias += residual
		}
		floats.Scale(1/total, grad)
		floats.AddScaled(grad, m.L2, m.Weights)
		floats.AddScaled(m.Weights, -m.LearningRate, grad)
		m.Bias -= m.LearningRate * gradBias / total
	}
	return nil
}

// PredictProba returns P(churn) per row.
func (m *LogisticRegression) PredictProba(X [][]float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		out[i] = sigmoid(floats.Dot(m.Weights, row) + m.Bias)
	}
	return out
}

// Predict classifies at 0.5.
func (m *LogisticRegression) Predict(X [][]float64) []int {
	return thresholdAt(m.PredictProba(X), DefaultDecisionThreshold)
}

// FeatureImportances reports the absolute coefficients, normalized to sum to 1.
func (m *LogisticRegression) FeatureImportances() []float64 {
	out := make([]float64, len(m.Weights))
	for i, w := range m.Weights {
		if w < 0 {
			w = -w
		}
		out[i] = w
	}
	if s := floats.Sum(out); s > 0 {
		floats.Scale(1/s, out)
	}
	return out
}
