package event

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
	"github.com/YuminosukeSato/foldfile/pkg/log"
)

// JSONLSource reads events stored one JSON object per line. Numeric and
// boolean values are scalar fields, arrays of numbers are jagged fields;
// other values are ignored. Files ending in ".zst" or ".gz" are decompressed
// on the fly.
//
// The file is opened only for the duration of each Fields or Read call.
type JSONLSource struct {
	path    string
	closed  bool
	catalog []FieldInfo
	logger  log.Logger
}

// OpenJSONL checks that path is readable and returns a source for it.
func OpenJSONL(path string) (*JSONLSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.NewIOError("open source", path, err)
	}
	if info.IsDir() {
		return nil, errors.NewIOError("open source", path, fmt.Errorf("is a directory"))
	}
	return &JSONLSource{
		path:   path,
		logger: log.GetLoggerWithName("event.jsonl").With(log.SourcePathKey, path),
	}, nil
}

// Fields implements Source. The catalog is inferred from the first event.
func (s *JSONLSource) Fields(ctx context.Context) ([]FieldInfo, error) {
	if s.closed {
		return nil, errors.Wrap(errors.ErrClosed, "jsonl source")
	}
	if s.catalog != nil {
		return s.catalog, nil
	}

	rc, err := openDecompressed(s.path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := json.NewDecoder(rc)
	var first map[string]interface{}
	if err := dec.Decode(&first); err != nil {
		if err == io.EOF {
			return nil, errors.Wrap(errors.ErrEmptyData, "jsonl source has no events")
		}
		return nil, errors.NewIOError("decode event 0", s.path, err)
	}

	catalog := make([]FieldInfo, 0, len(first))
	for name, v := range first {
		if kind, ok := kindOf(v); ok {
			catalog = append(catalog, FieldInfo{Name: name, Kind: kind})
		}
	}
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].Name < catalog[j].Name })
	s.catalog = catalog
	s.logger.Debug("Inferred source catalog", log.FeaturesKey, len(catalog))
	return catalog, ctx.Err()
}

// Read implements Source.
func (s *JSONLSource) Read(ctx context.Context, fields []string) (*Batch, error) {
	catalog, err := s.Fields(ctx)
	if err != nil {
		return nil, err
	}
	kinds := make(map[string]FieldKind, len(catalog))
	for _, f := range catalog {
		kinds[f.Name] = f.Kind
	}
	for _, name := range fields {
		if _, ok := kinds[name]; !ok {
			return nil, errors.NewMissingFieldError("JSONLSource.Read", name, "source catalog")
		}
	}

	rc, err := openDecompressed(s.path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	scalars := make(map[string][]float64)
	rows := make(map[string][][]float64)
	dec := json.NewDecoder(rc)
	n := 0
	for {
		if n%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		var obj map[string]interface{}
		if err := dec.Decode(&obj); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.NewIOError(fmt.Sprintf("decode event %d", n), s.path, err)
		}
		for _, name := range fields {
			v, present := obj[name]
			if kinds[name] == KindScalar {
				x, ok := scalarValue(v)
				if !present || !ok {
					return nil, errors.NewValueError("JSONLSource.Read",
						fmt.Sprintf("event %d: scalar field %q missing or not numeric", n, name))
				}
				scalars[name] = append(scalars[name], x)
				continue
			}
			row, ok := arrayValue(v)
			if present && !ok {
				return nil, errors.NewValueError("JSONLSource.Read",
					fmt.Sprintf("event %d: field %q is not a numeric array", n, name))
			}
			rows[name] = append(rows[name], row)
		}
		n++
	}

	b := NewBatch(n)
	for _, name := range fields {
		if kinds[name] == KindScalar {
			if err := b.AddScalar(name, scalars[name]); err != nil {
				return nil, err
			}
			continue
		}
		r := rows[name]
		if r == nil {
			r = make([][]float64, n)
		}
		if err := b.AddJagged(name, r); err != nil {
			return nil, err
		}
	}
	s.logger.Info("Read events", log.EventsKey, n, log.FeaturesKey, len(fields))
	return b, nil
}

// Close implements Source.
func (s *JSONLSource) Close() error {
	s.closed = true
	return nil
}

func kindOf(v interface{}) (FieldKind, bool) {
	switch x := v.(type) {
	case float64, bool:
		return KindScalar, true
	case []interface{}:
		if _, ok := arrayValue(x); ok {
			return KindJagged, true
		}
	}
	return 0, false
}

func scalarValue(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func arrayValue(v interface{}) ([]float64, bool) {
	if v == nil {
		return nil, true
	}
	arr, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]float64, len(arr))
	for i, e := range arr {
		x, ok := e.(float64)
		if !ok {
			return nil, false
		}
		out[i] = x
	}
	return out, true
}

type multiCloser struct {
	io.Reader
	closers []func() error
}

func (m *multiCloser) Close() error {
	var err error
	for _, c := range m.closers {
		err = errors.CombineErrors(err, c())
	}
	return err
}

func openDecompressed(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError("open source", path, err)
	}
	switch {
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.NewIOError("open zstd stream", path, err)
		}
		return &multiCloser{Reader: dec, closers: []func() error{
			func() error { dec.Close(); return nil },
			f.Close,
		}}, nil
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.NewIOError("open gzip stream", path, err)
		}
		return &multiCloser{Reader: zr, closers: []func() error{zr.Close, f.Close}}, nil
	default:
		return f, nil
	}
}
