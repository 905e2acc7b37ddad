package crossval

import (
	"errors"
	"fmt"
	"math/rand"
	"slices"
)

var (
	// ErrFoldCount is returned when k is below 2 or above the row count.
	ErrFoldCount = errors.New("crossval: invalid fold count")
	// ErrPartition is returned by Split.Validate.
	ErrPartition = errors.New("crossval: folds do not partition the rows")
)

// Fold is one train/test partition of row positions 0..n-1.
type Fold struct {
	Index int
	Train []int
	Test  []int
}

// Split is the full set of folds drawn from one seed.
type Split struct {
	K     int
	Seed  int64
	Folds []Fold
}

// StratifiedKFold deals each class's shuffled row positions round-robin
// into k folds, so every fold holds roughly the class proportions of y.
// The same (y, k, seed) always yields the same split.
func StratifiedKFold(y []int, k int, seed int64) (Split, error) {
	n := len(y)
	if k < 2 || k > n {
		return Split{}, fmt.Errorf("%w: k=%d for %d rows", ErrFoldCount, k, n)
	}

	byClass := make(map[int][]int)
	for i, c := range y {
		byClass[c] = append(byClass[c], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	slices.Sort(classes)

	rnd := rand.New(rand.NewSource(seed))
	tests := make([][]int, k)
	offset := 0
	for _, c := range classes {
		rows := byClass[c]
		rnd.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		for j, r := range rows {
			f := (offset + j) % k
			tests[f] = append(tests[f], r)
		}
		offset = (offset + len(rows)) % k
	}

	s := Split{K: k, Seed: seed, Folds: make([]Fold, k)}
	for i, test := range tests {
		slices.Sort(test)
		s.Folds[i] = Fold{Index: i, Test: test, Train: complement(test, n)}
	}
	return s, nil
}

// complement returns the sorted positions of 0..n-1 not in sorted.
func complement(sorted []int, n int) []int {
	out := make([]int, 0, n-len(sorted))
	j := 0
	for i := 0; i < n; i++ {
		if j < len(sorted) && sorted[j] == i {
			j++
			continue
		}
		out = append(out, i)
	}
	return out
}

// Validate checks that the test sets partition 0..n-1 and that each fold's
// train set is exactly the complement of its test set.
func (s Split) Validate(n int) error {
	if len(s.Folds) != s.K {
		return fmt.Errorf("%w: %d folds, want %d", ErrPartition, len(s.Folds), s.K)
	}
	seen := make([]int, n)
	for _, f := range s.Folds {
		inTest := make([]bool, n)
		for _, r := range f.Test {
			if r < 0 || r >= n {
				return fmt.Errorf("%w: fold %d test row %d out of range", ErrPartition, f.Index, r)
			}
			seen[r]++
			inTest[r] = true
		}
		if len(f.Train)+len(f.Test) != n {
			return fmt.Errorf("%w: fold %d covers %d of %d rows", ErrPartition, f.Index, len(f.Train)+len(f.Test), n)
		}
		for _, r := range f.Train {
			if r < 0 || r >= n || inTest[r] {
				return fmt.Errorf("%w: fold %d trains on row %d", ErrPartition, f.Index, r)
			}
			inTest[r] = true
		}
	}
	for r, c := range seen {
		if c != 1 {
			return fmt.Errorf("%w: row %d is tested %d times", ErrPartition, r, c)
		}
	}
	return nil
}

// Take returns the rows of X and y at positions rows.
func Take(X [][]float64, y []int, rows []int) ([][]float64, []int) {
	xs := make([][]float64, len(rows))
	var ys []int
	if y != nil {
		ys = make([]int, len(rows))
	}
	for i, r := range rows {
		xs[i] = X[r]
		if y != nil {
			ys[i] = y[r]
		}
	}
	return xs, ys
}
