package event

import (
	"sort"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
)

// FieldKind distinguishes one-value-per-event fields from collections.
type FieldKind int

const (
	// KindScalar is a single numeric value per event.
	KindScalar FieldKind = iota
	// KindJagged is a variable-length list of numeric values per event.
	KindJagged
)

func (k FieldKind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindJagged:
		return "jagged"
	default:
		return "unknown"
	}
}

// FieldInfo describes one field of a source catalog.
type FieldInfo struct {
	Name string
	Kind FieldKind
}

// JaggedArray stores a variable-length field for all events of a batch.
// Row i is Values[Offsets[i]:Offsets[i+1]].
type JaggedArray struct {
	Offsets []int
	Values  []float64
}

// NewJaggedArray builds a JaggedArray from per-event rows.
func NewJaggedArray(rows [][]float64) JaggedArray {
	offsets := make([]int, len(rows)+1)
	total := 0
	for i, r := range rows {
		total += len(r)
		offsets[i+1] = total
	}
	values := make([]float64, 0, total)
	for _, r := range rows {
		values = append(values, r...)
	}
	return JaggedArray{Offsets: offsets, Values: values}
}

// NumEvents returns the number of rows.
func (j JaggedArray) NumEvents() int {
	if len(j.Offsets) == 0 {
		return 0
	}
	return len(j.Offsets) - 1
}

// Len returns the number of elements of event i.
func (j JaggedArray) Len(i int) int {
	return j.Offsets[i+1] - j.Offsets[i]
}

// Row returns the elements of event i. The slice aliases the array.
func (j JaggedArray) Row(i int) []float64 {
	return j.Values[j.Offsets[i]:j.Offsets[i+1]]
}

func (j JaggedArray) validate(name string, n int) error {
	if len(j.Offsets) == 0 {
		return errors.NewValidationError(name, "offsets must hold N+1 entries", 0)
	}
	if j.NumEvents() != n {
		return errors.NewDimensionError("JaggedArray "+name, n, j.NumEvents(), 0)
	}
	if j.Offsets[0] != 0 {
		return errors.NewValidationError(name, "offsets must start at 0", j.Offsets[0])
	}
	for i := 1; i < len(j.Offsets); i++ {
		if j.Offsets[i] < j.Offsets[i-1] {
			return errors.NewValidationError(name, "offsets must be non-decreasing", i)
		}
	}
	if last := j.Offsets[len(j.Offsets)-1]; last != len(j.Values) {
		return errors.NewDimensionError("JaggedArray "+name, last, len(j.Values), 1)
	}
	return nil
}

// Batch is a columnar set of N events.
type Batch struct {
	N       int
	Scalars map[string][]float64
	Jagged  map[string]JaggedArray
}

// NewBatch creates an empty batch of n events.
func NewBatch(n int) *Batch {
	return &Batch{
		N:       n,
		Scalars: make(map[string][]float64),
		Jagged:  make(map[string]JaggedArray),
	}
}

// AddScalar adds a scalar column. The batch keeps the slice.
func (b *Batch) AddScalar(name string, values []float64) error {
	if len(values) != b.N {
		return errors.NewDimensionError("Batch.AddScalar "+name, b.N, len(values), 0)
	}
	if b.has(name) {
		return errors.NewValidationError("field", "duplicate field name", name)
	}
	b.Scalars[name] = values
	return nil
}

// AddJagged adds a collection attribute column from per-event rows.
func (b *Batch) AddJagged(name string, rows [][]float64) error {
	return b.AddJaggedArray(name, NewJaggedArray(rows))
}

// AddJaggedArray adds a collection attribute column.
func (b *Batch) AddJaggedArray(name string, arr JaggedArray) error {
	if b.has(name) {
		return errors.NewValidationError("field", "duplicate field name", name)
	}
	if err := arr.validate(name, b.N); err != nil {
		return err
	}
	b.Jagged[name] = arr
	return nil
}

func (b *Batch) has(name string) bool {
	_, s := b.Scalars[name]
	_, j := b.Jagged[name]
	return s || j
}

// Validate checks that every column has exactly N events.
func (b *Batch) Validate() error {
	for name, col := range b.Scalars {
		if len(col) != b.N {
			return errors.NewDimensionError("Batch "+name, b.N, len(col), 0)
		}
	}
	for name, arr := range b.Jagged {
		if err := arr.validate(name, b.N); err != nil {
			return err
		}
	}
	return nil
}

// Catalog lists the batch's fields sorted by name.
func (b *Batch) Catalog() []FieldInfo {
	out := make([]FieldInfo, 0, len(b.Scalars)+len(b.Jagged))
	for name := range b.Scalars {
		out = append(out, FieldInfo{Name: name, Kind: KindScalar})
	}
	for name := range b.Jagged {
		out = append(out, FieldInfo{Name: name, Kind: KindJagged})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Project returns a batch that shares column data but only holds the named fields.
func (b *Batch) Project(fields []string) (*Batch, error) {
	out := NewBatch(b.N)
	for _, name := range fields {
		if col, ok := b.Scalars[name]; ok {
			out.Scalars[name] = col
			continue
		}
		if arr, ok := b.Jagged[name]; ok {
			out.Jagged[name] = arr
			continue
		}
		return nil, errors.NewMissingFieldError("Batch.Project", name, "batch")
	}
	return out, nil
}

// Record is a row view of one event.
type Record struct {
	Scalars     map[string]float64
	Collections map[string][]float64
}

// Record returns event i as a Record. Collection slices alias the batch.
func (b *Batch) Record(i int) Record {
	r := Record{
		Scalars:     make(map[string]float64, len(b.Scalars)),
		Collections: make(map[string][]float64, len(b.Jagged)),
	}
	for name, col := range b.Scalars {
		r.Scalars[name] = col[i]
	}
	for name, arr := range b.Jagged {
		r.Collections[name] = arr.Row(i)
	}
	return r
}
