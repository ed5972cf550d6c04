package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

func sampleBatch(t *testing.T) *Batch {
	t.Helper()
	b := NewBatch(4)
	require.NoError(t, b.AddScalar("eventNumber", []float64{10, 11, 12, 13}))
	require.NoError(t, b.AddScalar("weight", []float64{0.5, 1, 1, 2}))
	require.NoError(t, b.AddJagged("Cluster_pt", [][]float64{{1, 2}, {3, 4, 5, 6, 7}, {}, {8, 9, 10}}))
	require.NoError(t, b.AddJagged("Cluster_eta", [][]float64{{-1, -2}, {-3, -4, -5, -6, -7}, {}, {-8, -9, -10}}))
	return b
}

func TestJaggedArray(t *testing.T) {
	arr := NewJaggedArray([][]float64{{1, 2}, {}, {3}})

	assert.Equal(t, 3, arr.NumEvents())
	assert.Equal(t, []int{0, 2, 2, 3}, arr.Offsets)
	assert.Equal(t, 2, arr.Len(0))
	assert.Equal(t, 0, arr.Len(1))
	assert.Equal(t, []float64{3}, arr.Row(2))
}

func TestBatchAddValidation(t *testing.T) {
	b := NewBatch(2)

	err := b.AddScalar("x", []float64{1})
	var dimErr *errors.DimensionError
	require.ErrorAs(t, err, &dimErr)

	require.NoError(t, b.AddScalar("x", []float64{1, 2}))
	err = b.AddScalar("x", []float64{1, 2})
	var vErr *errors.ValidationError
	require.ErrorAs(t, err, &vErr)

	err = b.AddJaggedArray("bad", JaggedArray{Offsets: []int{0, 2, 1}, Values: []float64{1, 2}})
	require.ErrorAs(t, err, &vErr)

	err = b.AddJaggedArray("short", JaggedArray{Offsets: []int{0, 1, 3}, Values: []float64{1, 2}})
	require.ErrorAs(t, err, &dimErr)

	err = NewBatch(0).AddJaggedArray("empty", JaggedArray{})
	require.ErrorAs(t, err, &vErr)

	require.NoError(t, NewBatch(0).AddJaggedArray("none", NewJaggedArray(nil)))
}

func TestBatchCatalogAndProject(t *testing.T) {
	b := sampleBatch(t)

	catalog := b.Catalog()
	require.Len(t, catalog, 4)
	assert.Equal(t, FieldInfo{Name: "Cluster_eta", Kind: KindJagged}, catalog[0])
	assert.Equal(t, FieldInfo{Name: "weight", Kind: KindScalar}, catalog[3])

	p, err := b.Project([]string{"weight", "Cluster_pt"})
	require.NoError(t, err)
	assert.Len(t, p.Scalars, 1)
	assert.Len(t, p.Jagged, 1)

	_, err = b.Project([]string{"missing"})
	var mErr *errors.MissingFieldError
	require.ErrorAs(t, err, &mErr)
}

func TestBatchRecord(t *testing.T) {
	b := sampleBatch(t)

	r := b.Record(3)
	assert.Equal(t, 13.0, r.Scalars["eventNumber"])
	assert.Equal(t, []float64{8, 9, 10}, r.Collections["Cluster_pt"])
	assert.Empty(t, b.Record(2).Collections["Cluster_eta"])
}
