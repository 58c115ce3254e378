package service

import (
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// TreeNode is one node of a flattened binary tree. Feature < 0 marks a leaf.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
}

// Tree is a fitted decision tree stored as a node slice rooted at index 0.
type Tree struct {
	Nodes []TreeNode
}

// Eval walks the tree for one row and returns the leaf value.
func (t *Tree) Eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

type splitCriterion int

const (
	// criterionGini grows classification trees. Per-sample stats are
	// (weight * label, weight) and leaves hold the weighted churn share.
	criterionGini splitCriterion = iota
	// criterionNewton grows boosting trees. Per-sample stats are
	// (gradient, hessian) and leaves hold the Newton step.
	criterionNewton
)

type treeGrower struct {
	X           [][]float64
	a, b        []float64
	criterion   splitCriterion
	maxDepth    int
	minLeaf     int
	maxFeatures int
	lambda      float64
	rng         *rand.Rand
	importances []float64
	nodes       []TreeNode
}

func newTreeGrower(X [][]float64, a, b []float64, criterion splitCriterion) *treeGrower {
	return &treeGrower{
		X:           X,
		a:           a,
		b:           b,
		criterion:   criterion,
		maxDepth:    3,
		minLeaf:     1,
		lambda:      1,
		importances: make([]float64, len(X[0])),
	}
}

// build grows a tree over the given sample indices. Repeated indices
// (bootstrap samples) count once per occurrence.
func (g *treeGrower) build(idx []int) Tree {
	g.nodes = g.nodes[:0]
	g.grow(idx, 0)
	nodes := make([]TreeNode, len(g.nodes))
	copy(nodes, g.nodes)
	return Tree{Nodes: nodes}
}

func (g *treeGrower) grow(idx []int, depth int) int {
	var sa, sb float64
	for _, i := range idx {
		sa += g.a[i]
		sb += g.b[i]
	}

	id := len(g.nodes)
	g.nodes = append(g.nodes, TreeNode{Feature: -1, Value: g.leaf(sa, sb)})

	if depth >= g.maxDepth || len(idx) < 2*g.minLeaf {
		return id
	}
	if g.criterion == criterionGini && (sa <= 0 || sa >= sb) {
		return id
	}

	feature, threshold, gain, ok := g.bestSplit(idx, sa, sb)
	if !ok || gain <= 1e-12 {
		return id
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if g.X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	g.importances[feature] += gain
	l := g.grow(left, depth+1)
	r := g.grow(right, depth+1)
	g.nodes[id] = TreeNode{Feature: feature, Threshold: threshold, Left: l, Right: r, Value: g.nodes[id].Value}
	return id
}

func (g *treeGrower) bestSplit(idx []int, sa, sb float64) (feature int, threshold, gain float64, ok bool) {
	features := g.candidateFeatures()
	sorted := make([]int, len(idx))
	n := len(idx)

	for _, f := range features {
		copy(sorted, idx)
		sort.Slice(sorted, func(i, j int) bool { return g.X[sorted[i]][f] < g.X[sorted[j]][f] })

		var la, lb float64
		for k := 0; k < n-1; k++ {
			la += g.a[sorted[k]]
			lb += g.b[sorted[k]]
			lo, hi := g.X[sorted[k]][f], g.X[sorted[k+1]][f]
			if lo == hi || k+1 < g.minLeaf || n-k-1 < g.minLeaf {
				continue
			}
			gn := g.gain(la, lb, sa-la, sb-lb, sa, sb)
			if !ok || gn > gain {
				feature, threshold, gain, ok = f, (lo+hi)/2, gn, true
			}
		}
	}
	return feature, threshold, gain, ok
}

func (g *treeGrower) candidateFeatures() []int {
	p := len(g.X[0])
	if g.maxFeatures <= 0 || g.maxFeatures >= p || g.rng == nil {
		all := make([]int, p)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return g.rng.Perm(p)[:g.maxFeatures]
}

func (g *treeGrower) gain(la, lb, ra, rb, pa, pb float64) float64 {
	if g.criterion == criterionGini {
		return giniImpurity(pa, pb) - giniImpurity(la, lb) - giniImpurity(ra, rb)
	}
	return newtonScore(la, lb, g.lambda) + newtonScore(ra, rb, g.lambda) - newtonScore(pa, pb, g.lambda)
}

func (g *treeGrower) leaf(a, b float64) float64 {
	if g.criterion == criterionGini {
		if b <= 0 {
			return 0
		}
		return a / b
	}
	return -a / (b + g.lambda)
}

// giniImpurity is the weighted Gini impurity of a node with positive weight a
// out of total weight b.
func giniImpurity(a, b float64) float64 {
	if b <= 0 {
		return 0
	}
	return 2 * a * (b - a) / b
}

func newtonScore(g, h, lambda float64) float64 {
	return g * g / (h + lambda)
}

// normalizedImportances scales accumulated split gains to sum to 1.
func normalizedImportances(gains []float64) []float64 {
	out := make([]float64, len(gains))
	copy(out, gains)
	if s := floats.Sum(out); s > 0 {
		floats.Scale(1/s, out)
	}
	return out
}
