package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDense3Indexing(t *testing.T) {
	block, err := NewDense3(2, 2, 3, nil)
	require.NoError(t, err)

	block.Set(1, 0, 2, 7)
	block.Set(0, 1, 0, 3)

	assert.Equal(t, 7.0, block.At(1, 0, 2))
	assert.Equal(t, []float64{3, 0, 0}, block.Row(0, 1))
	assert.Equal(t, []float64{0, 0, 7, 0, 0, 0}, block.Event(1))

	n, attrs, length := block.Dims()
	assert.Equal(t, []int{2, 2, 3}, []int{n, attrs, length})
	assert.Len(t, block.RawData(), 12)
}

func TestDense3WithData(t *testing.T) {
	_, err := NewDense3(2, 1, 2, []float64{1, 2, 3})
	require.Error(t, err)

	block, err := NewDense3(2, 1, 2, []float64{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2, 3, 4}, block.Float32())
}

func TestDense3Select(t *testing.T) {
	block, err := NewDense3(3, 1, 2, []float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)

	sub := block.Select([]int{2, 0})
	assert.Equal(t, []int{2, 1, 2}, sub.Shape())
	assert.Equal(t, []float64{5, 6, 1, 2}, sub.RawData())

	// Select copies
	sub.Set(0, 0, 0, 99)
	assert.Equal(t, 5.0, block.At(2, 0, 0))
}

func TestDense3OutOfRangePanics(t *testing.T) {
	block, err := NewDense3(1, 1, 1, nil)
	require.NoError(t, err)
	assert.Panics(t, func() { block.At(0, 0, 1) })
}
