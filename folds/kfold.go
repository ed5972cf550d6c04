// Package folds partitions event indices into K disjoint folds, optionally
// stratified by a discrete label.
package folds

import (
	"math/rand/v2"
	"sort"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// Splitter divides n events into folds. y carries one label per event and is
// ignored by splitters that do not stratify.
type Splitter interface {
	Split(n int, y []float64) ([]Fold, error)
	GetNSplits() int
}

// Fold is one partition cell. Indices are ascending.
type Fold struct {
	Index   int
	Indices []int
}

// Len returns the number of events in the fold.
func (f Fold) Len() int {
	return len(f.Indices)
}

// KFold implements unstratified k-fold partitioning: the (optionally
// shuffled) index list is cut into contiguous chunks whose sizes differ by at
// most one, larger chunks first.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewKFold creates a new k-fold splitter. A negative seed with shuffle enabled
// draws a fresh seed on every Split.
func NewKFold(nSplits int, shuffle bool, randomSeed int) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates the folds for n events.
func (kf *KFold) Split(n int, _ []float64) ([]Fold, error) {
	if err := checkSplits(kf.NSplits, n); err != nil {
		return nil, err
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := newRand(kf.RandomSeed)
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	folds := make([]Fold, kf.NSplits)
	foldSize := n / kf.NSplits
	remainder := n % kf.NSplits

	currentIdx := 0
	for i := 0; i < kf.NSplits; i++ {
		size := foldSize
		if i < remainder {
			size++
		}
		chunk := make([]int, size)
		copy(chunk, indices[currentIdx:currentIdx+size])
		sort.Ints(chunk)
		folds[i] = Fold{Index: i, Indices: chunk}
		currentIdx += size
	}
	return folds, nil
}

func checkSplits(nSplits, n int) error {
	if nSplits < 1 {
		return errors.NewValidationError("n_folds", "must be at least 1", nSplits)
	}
	if n == 0 {
		return errors.NewModelError("folds.Split", "no events", errors.ErrEmptyData)
	}
	if nSplits > n {
		return errors.NewValidationError("n_folds", "cannot exceed the number of events", nSplits)
	}
	return nil
}

func newRand(seed int) *rand.Rand {
	if seed < 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}
