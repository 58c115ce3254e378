package service

import (
	"gonum.org/v1/gonum/floats"
)

// NearestCentroid assigns each row to the class with the closest mean. It has
// no probability output and so never takes part in ROC-AUC comparisons.
type NearestCentroid struct {
	Centroids [][]float64
}

// NewNearestCentroid returns an unfitted model.
func NewNearestCentroid() *NearestCentroid {
	return &NearestCentroid{}
}

// Fit computes the per-class means. A class absent from y keeps a zero centroid.
func (m *NearestCentroid) Fit(X [][]float64, y []int) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}

	p := len(X[0])
	m.Centroids = [][]float64{make([]float64, p), make([]float64, p)}
	var counts [2]float64
	for i, row := range X {
		floats.Add(m.Centroids[y[i]], row)
		counts[y[i]]++
	}
	for c := range m.Centroids {
		if counts[c] > 0 {
			floats.Scale(1/counts[c], m.Centroids[c])
		}
	}
	return nil
}

// Predict returns the nearest class; ties go to the non-churn class.
func (m *NearestCentroid) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i, row := range X {
		if floats.Distance(row, m.Centroids[1], 2) < floats.Distance(row, m.Centroids[0], 2) {
			out[i] = 1
		}
	}
	return out
}
