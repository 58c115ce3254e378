package service

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/bibbank/churn-service/internal/domain/model"
)

// DefaultSegmentCount is the number of customer segments a run clusters into.
const DefaultSegmentCount = 4

const (
	segmentRestarts      = 10
	segmentMaxIterations = 300
)

// SegmentationColumns are the raw attributes customers are clustered on.
var SegmentationColumns = []string{
	model.ColAge,
	model.ColIncome,
	model.ColTenure,
	model.ColBalance,
	model.ColNumProducts,
	model.ColCreditScore,
	model.ColTransactions,
}

// CustomerSegmentation is a k-means clustering of standardized customer
// attributes. Profiles describe the segments over the customers the run
// scored.
type CustomerSegmentation struct {
	Scalers   []NumericScaler
	Centroids [][]float64
	Inertia   float64
	Profiles  []model.SegmentProfile
}

// FitSegmentation clusters the frame into k segments. Centroids are seeded
// with k-means++ and the restart with the lowest inertia wins. Only the
// SegmentationColumns present in the frame are used and k is capped at the
// row count.
func FitSegmentation(raw *model.Frame, k int, seed uint64) (*CustomerSegmentation, error) {
	if raw.Rows() == 0 {
		return nil, model.ErrEmptyTable
	}
	if k < 1 {
		return nil, fmt.Errorf("segment count %d must be positive", k)
	}

	s := &CustomerSegmentation{}
	for _, col := range SegmentationColumns {
		if values, ok := raw.Numeric(col); ok {
			s.Scalers = append(s.Scalers, fitScaler(col, values))
		}
	}
	if len(s.Scalers) == 0 {
		return nil, fmt.Errorf("no segmentation columns in frame")
	}

	X := s.standardize(raw)
	k = min(k, len(X))
	rng := newRand(seed)
	s.Inertia = math.Inf(1)
	for range segmentRestarts {
		centroids, inertia := kmeans(X, k, rng)
		if inertia < s.Inertia {
			s.Centroids, s.Inertia = centroids, inertia
		}
	}
	return s, nil
}

// Columns lists the attributes the segmentation reads.
func (s *CustomerSegmentation) Columns() []string {
	cols := make([]string, len(s.Scalers))
	for i, sc := range s.Scalers {
		cols[i] = sc.Column
	}
	return cols
}

// Assign returns the nearest segment of every row. Absent columns and
// missing values sit at the fitted mean.
func (s *CustomerSegmentation) Assign(raw *model.Frame) []int {
	X := s.standardize(raw)
	out := make([]int, len(X))
	for i, row := range X {
		out[i], _ = nearestCentroid(row, s.Centroids)
	}
	return out
}

// Describe returns the profile description of a segment, or "" when the
// segment has no profile.
func (s *CustomerSegmentation) Describe(segment int) string {
	for _, p := range s.Profiles {
		if p.Segment == segment {
			return p.Description
		}
	}
	return ""
}

// Profile assigns the rows and summarizes every segment with the mean of
// each raw attribute, the mean churn probability and a description. proba
// holds one churn probability per row.
func (s *CustomerSegmentation) Profile(raw *model.Frame, proba []float64) ([]model.SegmentProfile, error) {
	if len(proba) != raw.Rows() {
		return nil, fmt.Errorf("%w: %d rows, %d probabilities", model.ErrShapeMismatch, raw.Rows(), len(proba))
	}
	assigned := s.Assign(raw)
	cols := s.Columns()

	type acc struct {
		count  int
		proba  float64
		sums   []float64
		finite []int
	}
	accs := make([]acc, len(s.Centroids))
	for i := range accs {
		accs[i] = acc{sums: make([]float64, len(cols)), finite: make([]int, len(cols))}
	}
	values := make([][]float64, len(cols))
	for j, col := range cols {
		values[j], _ = raw.Numeric(col)
	}

	for i, seg := range assigned {
		a := &accs[seg]
		a.count++
		a.proba += proba[i]
		for j := range cols {
			if values[j] == nil {
				continue
			}
			if v := values[j][i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				a.sums[j] += v
				a.finite[j]++
			}
		}
	}

	profiles := make([]model.SegmentProfile, len(accs))
	for seg, a := range accs {
		p := model.SegmentProfile{
			Segment:                 seg,
			CustomerCount:           a.count,
			AverageChurnProbability: safeDiv(a.proba, float64(a.count)),
		}
		for j, col := range cols {
			if a.finite[j] > 0 {
				p.Attributes = append(p.Attributes, model.SegmentAttribute{Column: col, Mean: a.sums[j] / float64(a.finite[j])})
			}
		}
		p.Description = DescribeSegment(p)
		profiles[seg] = p
	}
	return profiles, nil
}

// DescribeSegment renders a profile as a short phrase, for example
// "Segment 2: Senior customers with high value who are inactive at high risk
// of churning". Attributes the profile lacks are left out.
func DescribeSegment(p model.SegmentProfile) string {
	parts := []string{fmt.Sprintf("Segment %d:", p.Segment)}

	if age, ok := p.Attribute(model.ColAge); ok {
		switch {
		case age < 30:
			parts = append(parts, "Young customers")
		case age < 50:
			parts = append(parts, "Middle-aged customers")
		default:
			parts = append(parts, "Senior customers")
		}
	} else {
		parts = append(parts, "Customers")
	}

	balance, hasBalance := p.Attribute(model.ColBalance)
	income, hasIncome := p.Attribute(model.ColIncome)
	switch {
	case (hasBalance && balance > 50000) || (hasIncome && income > 100000):
		parts = append(parts, "with high value")
	case hasBalance && hasIncome && balance < 5000 && income < 50000:
		parts = append(parts, "with low value")
	}

	if tx, ok := p.Attribute(model.ColTransactions); ok {
		switch {
		case tx > 100:
			parts = append(parts, "who are highly active")
		case tx < 30:
			parts = append(parts, "who are inactive")
		}
	}

	if products, ok := p.Attribute(model.ColNumProducts); ok {
		switch {
		case products >= 3:
			parts = append(parts, "with multiple products")
		case products <= 1:
			parts = append(parts, "with single product")
		}
	}

	switch {
	case p.AverageChurnProbability > 0.5:
		parts = append(parts, "at high risk of churning")
	case p.AverageChurnProbability < 0.2:
		parts = append(parts, "with high loyalty")
	}
	return strings.Join(parts, " ")
}

func (s *CustomerSegmentation) standardize(raw *model.Frame) [][]float64 {
	n := raw.Rows()
	X := make([][]float64, n)
	for i := range X {
		X[i] = make([]float64, len(s.Scalers))
	}
	for j, sc := range s.Scalers {
		values, ok := raw.Numeric(sc.Column)
		if !ok {
			continue
		}
		for i, v := range values {
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				X[i][j] = (v - sc.Mean) / sc.Std
			}
		}
	}
	return X
}

// kmeans runs Lloyd iterations from k-means++ seeds until no assignment
// changes. An emptied cluster keeps its previous centroid.
func kmeans(X [][]float64, k int, rng *rand.Rand) ([][]float64, float64) {
	centroids := seedCentroids(X, k, rng)
	labels := make([]int, len(X))
	for i := range labels {
		labels[i] = -1
	}

	for range segmentMaxIterations {
		changed := false
		for i, row := range X {
			if c, _ := nearestCentroid(row, centroids); c != labels[i] {
				labels[i] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		sums := make([][]float64, k)
		counts := make([]float64, k)
		for c := range sums {
			sums[c] = make([]float64, len(X[0]))
		}
		for i, row := range X {
			floats.Add(sums[labels[i]], row)
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				floats.Scale(1/counts[c], sums[c])
				centroids[c] = sums[c]
			}
		}
	}

	var inertia float64
	for i, row := range X {
		d := floats.Distance(row, centroids[labels[i]], 2)
		inertia += d * d
	}
	return centroids, inertia
}

// seedCentroids picks k rows, each next one with probability proportional to
// its squared distance from the nearest centroid chosen so far.
func seedCentroids(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, slices.Clone(X[rng.IntN(len(X))]))

	weights := make([]float64, len(X))
	for len(centroids) < k {
		var total float64
		for i, row := range X {
			_, d := nearestCentroid(row, centroids)
			weights[i] = d * d
			total += weights[i]
		}

		next := rng.IntN(len(X))
		if total > 0 {
			target := rng.Float64() * total
			for i, w := range weights {
				if w == 0 {
					continue
				}
				next = i
				if target < w {
					break
				}
				target -= w
			}
		}
		centroids = append(centroids, slices.Clone(X[next]))
	}
	return centroids
}

func nearestCentroid(row []float64, centroids [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := floats.Distance(row, centroid, 2); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}
