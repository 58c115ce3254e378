package service

import (
	"fmt"
	"math"
	"sort"
)

// DefaultTestFraction is the share of rows held out for scoring.
const DefaultTestFraction = 0.2

// StratifiedSplit partitions row indices into train and test folds that
// preserve the class ratio. The test fold holds ceil(fraction*n) rows,
// allotted per class by largest remainder; rows within a class are drawn by a
// seeded shuffle. Both folds are returned in ascending row order.
func StratifiedSplit(y []int, testFraction float64, seed uint64) (train, test []int, err error) {
	n := len(y)
	if n < 2 {
		return nil, nil, fmt.Errorf("stratified split needs at least 2 rows, got %d", n)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction %v outside (0,1)", testFraction)
	}

	testSize := min(int(math.Ceil(testFraction*float64(n))), n-1)

	byClass := [2][]int{}
	for i, v := range y {
		byClass[v] = append(byClass[v], i)
	}

	var quota [2]int
	var remainders [2]float64
	allotted := 0
	for c := range byClass {
		exact := float64(testSize) * float64(len(byClass[c])) / float64(n)
		quota[c] = int(math.Floor(exact))
		remainders[c] = exact - float64(quota[c])
		allotted += quota[c]
	}
	for allotted < testSize {
		c := 0
		if remainders[1] > remainders[0] || quota[0] >= len(byClass[0]) {
			c = 1
		}
		quota[c]++
		remainders[c] = -1
		allotted++
	}

	rng := newRand(seed)
	for c, rows := range byClass {
		shuffled := make([]int, len(rows))
		copy(shuffled, rows)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		test = append(test, shuffled[:quota[c]]...)
		train = append(train, shuffled[quota[c]:]...)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// Pick returns the labels at the given rows.
func Pick(y []int, rows []int) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = y[r]
	}
	return out
}
