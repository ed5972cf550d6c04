package folds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// captureWarnings collects warnings raised through errors.Warn until the test ends.
func captureWarnings(t *testing.T) *[]error {
	t.Helper()
	var got []error
	errors.SetZerologWarnFunc(nil)
	errors.SetWarningHandler(func(w error) { got = append(got, w) })
	t.Cleanup(func() { errors.SetWarningHandler(func(error) {}) })
	return &got
}

func assertSpread(t *testing.T, folds []Fold) {
	t.Helper()
	sizes := Sizes(folds)
	lo, hi := sizes[0], sizes[0]
	for _, s := range sizes {
		lo = min(lo, s)
		hi = max(hi, s)
	}
	assert.LessOrEqual(t, hi-lo, 1, "fold sizes %v", sizes)
}

func TestKFoldPartition(t *testing.T) {
	tests := []struct {
		name    string
		n, k    int
		shuffle bool
	}{
		{"even", 30, 2, false},
		{"remainder", 10, 3, false},
		{"shuffled", 101, 7, true},
		{"single fold", 5, 1, true},
		{"one per fold", 4, 4, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			folds, err := NewKFold(tt.k, tt.shuffle, 42).Split(tt.n, nil)
			require.NoError(t, err)
			require.Len(t, folds, tt.k)
			require.NoError(t, ValidatePartition(folds, tt.n))
			assertSpread(t, folds)
			for _, f := range folds {
				assert.IsIncreasing(t, f.Indices)
			}
		})
	}
}

func TestKFoldEvenSplit(t *testing.T) {
	folds, err := NewKFold(2, false, 0).Split(30, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{15, 15}, Sizes(folds))

	folds, err = NewKFold(3, false, 0).Split(10, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3, 3}, Sizes(folds))
	assert.Equal(t, []int{0, 1, 2, 3}, folds[0].Indices)
}

func TestKFoldSingleFold(t *testing.T) {
	folds, err := NewKFold(1, true, 3).Split(6, nil)
	require.NoError(t, err)
	require.Len(t, folds, 1)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, folds[0].Indices)
}

func TestKFoldSeedDeterminism(t *testing.T) {
	a, err := NewKFold(4, true, 1234).Split(50, nil)
	require.NoError(t, err)
	b, err := NewKFold(4, true, 1234).Split(50, nil)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := NewKFold(4, true, 4321).Split(50, nil)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestKFoldInvalid(t *testing.T) {
	var vErr *errors.ValidationError

	_, err := NewKFold(5, false, 0).Split(3, nil)
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "n_folds", vErr.ParamName)

	_, err = NewKFold(0, false, 0).Split(3, nil)
	require.ErrorAs(t, err, &vErr)

	_, err = NewKFold(2, false, 0).Split(0, nil)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestStratifiedKFold(t *testing.T) {
	warnings := captureWarnings(t)

	// 20 of class 0, 10 of class 1, interleaved
	y := make([]float64, 30)
	for i := range y {
		if i%3 == 0 {
			y[i] = 1
		}
	}

	folds, err := NewStratifiedKFold(5, true, 7).Split(len(y), y)
	require.NoError(t, err)
	require.NoError(t, ValidatePartition(folds, len(y)))
	assertSpread(t, folds)
	assert.Empty(t, *warnings)

	for _, f := range folds {
		ones := 0
		for _, idx := range f.Indices {
			if y[idx] == 1 {
				ones++
			}
		}
		assert.Equal(t, 2, ones, "fold %d", f.Index)
		assert.IsIncreasing(t, f.Indices)
	}

	balance, err := Balance(folds, y)
	require.NoError(t, err)
	for _, b := range balance {
		assert.Equal(t, 6, b.Size)
		assert.InDelta(t, 1.0/3.0, b.LabelMean, 1e-12)
		assert.InDelta(t, 2.0/3.0, b.ClassFractions[0], 1e-12)
	}
}

func TestStratifiedKFoldSmallClassWarns(t *testing.T) {
	warnings := captureWarnings(t)

	y := []float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 1}
	folds, err := NewStratifiedKFold(2, false, 0).Split(len(y), y)
	require.NoError(t, err)
	require.NoError(t, ValidatePartition(folds, len(y)))

	require.Len(t, *warnings, 1)
	var sw *errors.StratificationWarning
	require.ErrorAs(t, (*warnings)[0], &sw)
	assert.Equal(t, 1.0, sw.Label)
	assert.Equal(t, 1, sw.Members)
	assert.Equal(t, 2, sw.NFolds)

	// the singleton lands in exactly one fold
	assignment := Assignment(folds, len(y))
	assert.Contains(t, []int{0, 1}, assignment[9])
}

func TestStratifiedKFoldSeedDeterminism(t *testing.T) {
	captureWarnings(t)
	y := make([]float64, 40)
	for i := range y {
		y[i] = float64(i % 4)
	}
	a, err := NewStratifiedKFold(3, true, 99).Split(len(y), y)
	require.NoError(t, err)
	b, err := NewStratifiedKFold(3, true, 99).Split(len(y), y)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStratifiedKFoldInvalidLabels(t *testing.T) {
	_, err := NewStratifiedKFold(2, false, 0).Split(3, []float64{0, 1})
	var dimErr *errors.DimensionError
	require.ErrorAs(t, err, &dimErr)

	_, err = NewStratifiedKFold(2, false, 0).Split(3, []float64{0, math.NaN(), 1})
	var nonFinite *errors.NonFiniteError
	require.ErrorAs(t, err, &nonFinite)
}

func TestAssignmentAndValidatePartition(t *testing.T) {
	folds := []Fold{{Index: 0, Indices: []int{0, 2}}, {Index: 1, Indices: []int{1, 3}}}
	assert.Equal(t, []int{0, 1, 0, 1}, Assignment(folds, 4))
	require.NoError(t, ValidatePartition(folds, 4))

	dup := []Fold{{Index: 0, Indices: []int{0, 1}}, {Index: 1, Indices: []int{1, 2}}}
	var valErr *errors.ValueError
	require.ErrorAs(t, ValidatePartition(dup, 3), &valErr)

	short := []Fold{{Index: 0, Indices: []int{0}}}
	var dimErr *errors.DimensionError
	require.ErrorAs(t, ValidatePartition(short, 2), &dimErr)
	assert.Equal(t, []int{0, -1}, Assignment(short, 2))
}
