package event

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

const sampleJSONL = `{"eventNumber": 1, "weight": 0.5, "isSignal": true, "Cluster_pt": [10, 20], "Cluster_eta": [0.1, 0.2], "run": "A"}
{"eventNumber": 2, "weight": 1.0, "isSignal": false, "Cluster_pt": [], "Cluster_eta": []}
{"eventNumber": 3, "weight": 2.0, "isSignal": false, "Cluster_pt": [30, 40, 50], "Cluster_eta": [0.3, 0.4, 0.5]}
`

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func zstdBytes(t *testing.T, data string) []byte {
	t.Helper()
	var sb strings.Builder
	enc, err := zstd.NewWriter(&sb)
	require.NoError(t, err)
	_, err = enc.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return []byte(sb.String())
}

func gzipBytes(t *testing.T, data string) []byte {
	t.Helper()
	var sb strings.Builder
	zw := gzip.NewWriter(&sb)
	_, err := zw.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return []byte(sb.String())
}

func TestMemorySource(t *testing.T) {
	ctx := context.Background()
	src, err := NewMemorySource(sampleBatch(t))
	require.NoError(t, err)

	fields, err := src.Fields(ctx)
	require.NoError(t, err)
	assert.Len(t, fields, 4)

	b, err := src.Read(ctx, []string{"weight"})
	require.NoError(t, err)
	assert.Equal(t, 4, b.N)
	assert.Len(t, b.Scalars, 1)

	require.NoError(t, src.Close())
	assert.True(t, src.Closed())
	_, err = src.Read(ctx, []string{"weight"})
	assert.True(t, errors.Is(err, errors.ErrClosed))
}

func TestJSONLSource(t *testing.T) {
	tests := []struct {
		name string
		file string
		data func(t *testing.T) []byte
	}{
		{"plain", "events.jsonl", func(t *testing.T) []byte { return []byte(sampleJSONL) }},
		{"zstd", "events.jsonl.zst", func(t *testing.T) []byte { return zstdBytes(t, sampleJSONL) }},
		{"gzip", "events.jsonl.gz", func(t *testing.T) []byte { return gzipBytes(t, sampleJSONL) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			path := writeFile(t, tt.file, tt.data(t))
			src, err := OpenJSONL(path)
			require.NoError(t, err)
			defer src.Close()

			catalog, err := src.Fields(ctx)
			require.NoError(t, err)
			assert.Equal(t, []FieldInfo{
				{Name: "Cluster_eta", Kind: KindJagged},
				{Name: "Cluster_pt", Kind: KindJagged},
				{Name: "eventNumber", Kind: KindScalar},
				{Name: "isSignal", Kind: KindScalar},
				{Name: "weight", Kind: KindScalar},
			}, catalog)

			b, err := src.Read(ctx, []string{"eventNumber", "isSignal", "Cluster_pt"})
			require.NoError(t, err)
			assert.Equal(t, 3, b.N)
			assert.Equal(t, []float64{1, 2, 3}, b.Scalars["eventNumber"])
			assert.Equal(t, []float64{1, 0, 0}, b.Scalars["isSignal"])
			assert.Equal(t, []int{0, 2, 2, 5}, b.Jagged["Cluster_pt"].Offsets)
			assert.Equal(t, []float64{30, 40, 50}, b.Jagged["Cluster_pt"].Row(2))
		})
	}
}

func TestJSONLSourceErrors(t *testing.T) {
	ctx := context.Background()

	_, err := OpenJSONL(filepath.Join(t.TempDir(), "missing.jsonl"))
	var ioErr *errors.IOError
	require.ErrorAs(t, err, &ioErr)

	path := writeFile(t, "events.jsonl", []byte(sampleJSONL))
	src, err := OpenJSONL(path)
	require.NoError(t, err)

	_, err = src.Read(ctx, []string{"run"})
	var mErr *errors.MissingFieldError
	require.ErrorAs(t, err, &mErr)

	broken := writeFile(t, "broken.jsonl", []byte(`{"x": 1}
{"y": 2}
`))
	src, err = OpenJSONL(broken)
	require.NoError(t, err)
	_, err = src.Read(ctx, []string{"x"})
	var vErr *errors.ValueError
	require.ErrorAs(t, err, &vErr)

	empty := writeFile(t, "empty.jsonl", nil)
	src, err = OpenJSONL(empty)
	require.NoError(t, err)
	_, err = src.Fields(ctx)
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	require.NoError(t, src.Close())
	_, err = src.Fields(ctx)
	assert.True(t, errors.Is(err, errors.ErrClosed))
}
