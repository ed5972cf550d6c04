package folds

import (
	"sort"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// StratifiedKFold implements k-fold partitioning that keeps the label
// distribution of every fold close to the overall one.
//
// Classes are visited in ascending label order; within a class indices are
// shuffled when Shuffle is set, then dealt round-robin across folds using one
// running position for all classes. Fold sizes therefore differ by at most
// one, overall and per class.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int) *StratifiedKFold {
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified folds. y must hold one finite label per event.
// A class with fewer than NSplits members raises a StratificationWarning
// through errors.Warn and the split proceeds.
func (skf *StratifiedKFold) Split(n int, y []float64) ([]Fold, error) {
	if err := checkSplits(skf.NSplits, n); err != nil {
		return nil, err
	}
	if len(y) != n {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", n, len(y), 0)
	}
	if err := errors.CheckFinite("strat_key", y); err != nil {
		return nil, err
	}

	// Group indices by class
	classIndices := make(map[float64][]int)
	for i, label := range y {
		classIndices[label] = append(classIndices[label], i)
	}
	labels := make([]float64, 0, len(classIndices))
	for label := range classIndices {
		labels = append(labels, label)
	}
	sort.Float64s(labels)

	minLabel, minCount := labels[0], len(classIndices[labels[0]])
	for _, label := range labels[1:] {
		if c := len(classIndices[label]); c < minCount {
			minLabel, minCount = label, c
		}
	}
	if minCount < skf.NSplits {
		errors.Warn(errors.NewStratificationWarning(minLabel, minCount, skf.NSplits))
	}

	if skf.Shuffle {
		r := newRand(skf.RandomSeed)
		for _, label := range labels {
			indices := classIndices[label]
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
	}

	folds := make([]Fold, skf.NSplits)
	for i := range folds {
		folds[i] = Fold{Index: i, Indices: make([]int, 0, n/skf.NSplits+1)}
	}
	pos := 0
	for _, label := range labels {
		for _, idx := range classIndices[label] {
			k := pos % skf.NSplits
			folds[k].Indices = append(folds[k].Indices, idx)
			pos++
		}
	}
	for i := range folds {
		sort.Ints(folds[i].Indices)
	}
	return folds, nil
}
