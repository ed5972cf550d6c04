// Package tensor provides the fixed-shape 3-D block produced from
// variable-length object collections.
package tensor

import (
	"fmt"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// Dense3 is a row-major events × attributes × length block of float64 values.
type Dense3 struct {
	shape [3]int
	data  []float64
}

// NewDense3 creates a zero-filled block. If data is non-nil it is used as the
// backing slice and must have length n*attrs*length.
func NewDense3(n, attrs, length int, data []float64) (*Dense3, error) {
	if n < 0 || attrs < 0 || length < 0 {
		return nil, errors.NewValidationError("shape", "dimensions must be non-negative", [3]int{n, attrs, length})
	}
	size := n * attrs * length
	if data == nil {
		data = make([]float64, size)
	} else if len(data) != size {
		return nil, errors.NewDimensionError("NewDense3", size, len(data), 0)
	}
	return &Dense3{shape: [3]int{n, attrs, length}, data: data}, nil
}

// Dims returns (events, attributes, length).
func (t *Dense3) Dims() (n, attrs, length int) {
	return t.shape[0], t.shape[1], t.shape[2]
}

// Shape returns the shape as a slice, convenient for container writers.
func (t *Dense3) Shape() []int {
	return []int{t.shape[0], t.shape[1], t.shape[2]}
}

// At returns the value for event i, attribute j, position k.
func (t *Dense3) At(i, j, k int) float64 {
	return t.data[t.offset(i, j, k)]
}

// Set assigns the value for event i, attribute j, position k.
func (t *Dense3) Set(i, j, k int, v float64) {
	t.data[t.offset(i, j, k)] = v
}

// Event returns the attrs*length slice of event i. The slice aliases the block.
func (t *Dense3) Event(i int) []float64 {
	stride := t.shape[1] * t.shape[2]
	return t.data[i*stride : (i+1)*stride]
}

// Row returns attribute j of event i as a slice of length L aliasing the block.
func (t *Dense3) Row(i, j int) []float64 {
	start := t.offset(i, j, 0)
	return t.data[start : start+t.shape[2]]
}

// RawData returns the backing slice in row-major order.
func (t *Dense3) RawData() []float64 {
	return t.data
}

// Select returns a new block holding the given events in the given order.
func (t *Dense3) Select(indices []int) *Dense3 {
	stride := t.shape[1] * t.shape[2]
	data := make([]float64, 0, len(indices)*stride)
	for _, idx := range indices {
		data = append(data, t.Event(idx)...)
	}
	return &Dense3{shape: [3]int{len(indices), t.shape[1], t.shape[2]}, data: data}
}

// Float32 converts the backing data for writers that store single precision.
func (t *Dense3) Float32() []float32 {
	out := make([]float32, len(t.data))
	for i, v := range t.data {
		out[i] = float32(v)
	}
	return out
}

func (t *Dense3) offset(i, j, k int) int {
	if i < 0 || i >= t.shape[0] || j < 0 || j >= t.shape[1] || k < 0 || k >= t.shape[2] {
		panic(fmt.Sprintf("tensor: index (%d, %d, %d) out of range for shape %v", i, j, k, t.shape))
	}
	return (i*t.shape[1]+j)*t.shape[2] + k
}

func (t *Dense3) String() string {
	return fmt.Sprintf("Dense3%v", t.shape)
}
