package service

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// SMOTEClassifier oversamples the minority class of the data it is fitted on
// before delegating to Base. Only Fit sees synthetic rows, so held-out data
// passed to Predict is never resampled.
type SMOTEClassifier struct {
	Base      ProbabilisticClassifier
	Neighbors int
	Seed      uint64
}

// NewSMOTEClassifier wraps base with k=5 nearest-neighbour oversampling.
func NewSMOTEClassifier(base ProbabilisticClassifier, seed uint64) *SMOTEClassifier {
	return &SMOTEClassifier{Base: base, Neighbors: 5, Seed: seed}
}

// Fit resamples the training fold and fits the base model.
func (m *SMOTEClassifier) Fit(X [][]float64, y []int) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}
	Xs, ys := SMOTE(X, y, m.Neighbors, newRand(m.Seed))
	return m.Base.Fit(Xs, ys)
}

// PredictProba delegates to the base model.
func (m *SMOTEClassifier) PredictProba(X [][]float64) []float64 { return m.Base.PredictProba(X) }

// Predict delegates to the base model.
func (m *SMOTEClassifier) Predict(X [][]float64) []int { return m.Base.Predict(X) }

// FeatureImportances delegates to the base model when it reports importances.
func (m *SMOTEClassifier) FeatureImportances() []float64 {
	if ir, ok := m.Base.(ImportanceReporter); ok {
		return ir.FeatureImportances()
	}
	return nil
}

// SMOTE appends synthetic minority rows until both classes have the same
// count. Each synthetic row interpolates between a random minority sample and
// one of its k nearest minority neighbours. With fewer than two minority rows
// the input is returned unchanged.
func SMOTE(X [][]float64, y []int, k int, rng *rand.Rand) ([][]float64, []int) {
	neg, pos := 0, 0
	for _, v := range y {
		if v == 1 {
			pos++
		} else {
			neg++
		}
	}
	minority := 1
	if pos > neg {
		minority = 0
	}

	var idx []int
	for i, v := range y {
		if v == minority {
			idx = append(idx, i)
		}
	}
	need := abs(neg - pos)
	if len(idx) < 2 || need == 0 {
		return X, y
	}
	k = min(k, len(idx)-1)

	neighbours := make([][]int, len(idx))
	for a, i := range idx {
		neighbours[a] = nearest(X, idx, i, k)
	}

	outX := make([][]float64, len(X), len(X)+need)
	copy(outX, X)
	outY := make([]int, len(y), len(y)+need)
	copy(outY, y)

	for s := 0; s < need; s++ {
		a := rng.IntN(len(idx))
		base := X[idx[a]]
		other := X[neighbours[a][rng.IntN(k)]]
		gap := rng.Float64()

		row := make([]float64, len(base))
		floats.SubTo(row, other, base)
		floats.Scale(gap, row)
		floats.Add(row, base)

		outX = append(outX, row)
		outY = append(outY, minority)
	}
	return outX, outY
}

// nearest returns the k candidates closest to X[i], excluding i itself.
func nearest(X [][]float64, candidates []int, i, k int) []int {
	type neighbour struct {
		index int
		dist  float64
	}
	ns := make([]neighbour, 0, len(candidates)-1)
	for _, j := range candidates {
		if j == i {
			continue
		}
		ns = append(ns, neighbour{index: j, dist: floats.Distance(X[i], X[j], 2)})
	}
	sort.SliceStable(ns, func(a, b int) bool { return ns[a].dist < ns[b].dist })

	out := make([]int, k)
	for n := range out {
		out[n] = ns[n].index
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
