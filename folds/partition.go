package folds

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// Assignment maps every event index to the fold that holds it. Events not
// covered by any fold are -1.
func Assignment(folds []Fold, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = -1
	}
	for _, f := range folds {
		for _, idx := range f.Indices {
			if idx >= 0 && idx < n {
				out[idx] = f.Index
			}
		}
	}
	return out
}

// ValidatePartition checks that folds are disjoint, cover 0..n-1 exactly and
// are indexed 0..K-1 in order.
func ValidatePartition(folds []Fold, n int) error {
	seen := make([]bool, n)
	total := 0
	for i, f := range folds {
		if f.Index != i {
			return errors.NewValueError("ValidatePartition", fmt.Sprintf("fold at position %d has index %d", i, f.Index))
		}
		for _, idx := range f.Indices {
			if idx < 0 || idx >= n {
				return errors.NewValueError("ValidatePartition", fmt.Sprintf("fold %d: index %d out of range [0, %d)", i, idx, n))
			}
			if seen[idx] {
				return errors.NewValueError("ValidatePartition", fmt.Sprintf("fold %d: index %d assigned twice", i, idx))
			}
			seen[idx] = true
			total++
		}
	}
	if total != n {
		return errors.NewDimensionError("ValidatePartition", n, total, 0)
	}
	return nil
}

// FoldBalance summarizes the labels of one fold.
type FoldBalance struct {
	Index     int
	Size      int
	LabelMean float64
	// ClassFractions is the share of each label within the fold.
	ClassFractions map[float64]float64
}

// Balance reports per-fold label statistics. y is indexed by event.
func Balance(folds []Fold, y []float64) ([]FoldBalance, error) {
	out := make([]FoldBalance, len(folds))
	for i, f := range folds {
		labels := make([]float64, len(f.Indices))
		for j, idx := range f.Indices {
			if idx < 0 || idx >= len(y) {
				return nil, errors.NewDimensionError("folds.Balance", len(y), idx+1, 0)
			}
			labels[j] = y[idx]
		}
		b := FoldBalance{Index: f.Index, Size: len(labels), ClassFractions: map[float64]float64{}}
		if len(labels) > 0 {
			b.LabelMean = stat.Mean(labels, nil)
			sort.Float64s(labels)
			for start := 0; start < len(labels); {
				end := start
				for end < len(labels) && labels[end] == labels[start] {
					end++
				}
				b.ClassFractions[labels[start]] = float64(end-start) / float64(len(labels))
				start = end
			}
		}
		out[i] = b
	}
	return out, nil
}

// Sizes returns the number of events per fold.
func Sizes(folds []Fold) []int {
	out := make([]int, len(folds))
	for i, f := range folds {
		out[i] = len(f.Indices)
	}
	return out
}
