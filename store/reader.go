package store

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/foldfile/core/tensor"
	"github.com/YuminosukeSato/foldfile/pkg/errors"
	"github.com/YuminosukeSato/foldfile/pkg/log"
)

// Fold is one fold loaded from a fold file.
type Fold struct {
	Index int
	// Columns holds features, misc columns and the weight, keyed by name.
	Columns map[string][]float64
	Targets map[string][]float64
	// Weights is nil when the file declares no weight feature.
	Weights []float64
	Tensors map[string]*tensor.Dense3
	Masks   map[string]*mat.Dense
}

// Len returns the number of events in the fold.
func (f *Fold) Len() int {
	for _, col := range f.Columns {
		return len(col)
	}
	for _, col := range f.Targets {
		return len(col)
	}
	for _, t := range f.Tensors {
		n, _, _ := t.Dims()
		return n
	}
	return 0
}

// Reader gives access to a fold file. Metadata is read once on Open; each
// GetFold reads only that fold's datasets. A Reader is safe for concurrent use.
type Reader struct {
	mu     sync.Mutex
	path   string
	a      *archive
	meta   *Meta
	ignore map[string]bool
	logger log.Logger
}

// Open opens the fold file at path and reads its metadata.
func Open(path string) (*Reader, error) {
	a, err := openArchive(path)
	if err != nil {
		return nil, err
	}

	raw := make(map[string][]byte)
	for _, key := range a.children("/" + metaGroup) {
		doc, err := a.readString(metaPath(key))
		if err != nil {
			_ = a.close()
			return nil, err
		}
		raw[key] = []byte(doc)
	}
	meta, err := decodeMeta(raw)
	if err != nil {
		_ = a.close()
		return nil, err
	}
	for i := 0; i < meta.NFolds; i++ {
		if len(a.children(foldGroup(i))) == 0 {
			_ = a.close()
			return nil, errors.NewMissingFieldError("store.Open", foldGroup(i)[1:], path)
		}
	}

	r := &Reader{
		path:   path,
		a:      a,
		meta:   meta,
		ignore: make(map[string]bool),
		logger: log.GetLoggerWithName("store.reader").With(log.StorePathKey, path),
	}
	r.logger.Debug("Fold file opened", log.FoldCountKey, meta.NFolds)
	return r, nil
}

// Meta returns the metadata of the file.
func (r *Reader) Meta() Meta {
	return *r.meta
}

// NFolds returns the number of folds.
func (r *Reader) NFolds() int {
	return r.meta.NFolds
}

// FoldSize returns the number of events in fold i.
func (r *Reader) FoldSize(i int) (int, error) {
	if err := r.checkIndex(i); err != nil {
		return 0, err
	}
	if i < len(r.meta.FoldSizes) {
		return r.meta.FoldSizes[i], nil
	}
	return 0, errors.NewMissingFieldError("Reader.FoldSize", KeyFoldSizes, metaGroup)
}

func (r *Reader) checkIndex(i int) error {
	if i < 0 || i >= r.meta.NFolds {
		return errors.Wrapf(errors.ErrFoldOutOfRange, "fold %d of %d", i, r.meta.NFolds)
	}
	return nil
}

// GetFold loads every dataset of fold i.
func (r *Reader) GetFold(i int) (*Fold, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.a == nil {
		return nil, errors.ErrClosed
	}
	if err := r.checkIndex(i); err != nil {
		return nil, err
	}

	fold := &Fold{
		Index:   i,
		Columns: make(map[string][]float64),
		Targets: make(map[string][]float64),
		Tensors: make(map[string]*tensor.Dense3),
		Masks:   make(map[string]*mat.Dense),
	}
	for _, name := range r.meta.Columns() {
		col, err := r.a.read(datasetPath(i, name))
		if err != nil {
			return nil, err
		}
		if r.meta.IsTarget(name) {
			fold.Targets[name] = col
			continue
		}
		fold.Columns[name] = col
		if name == r.meta.WgtFeat {
			fold.Weights = col
		}
	}
	for _, info := range r.meta.Tensors {
		block, err := r.readTensor(i, info)
		if err != nil {
			return nil, err
		}
		fold.Tensors[info.Name] = block
		if info.Mask {
			n, _, _ := block.Dims()
			mask, err := r.a.read(datasetPath(i, info.Name+maskSuffix))
			if err != nil {
				return nil, err
			}
			if len(mask) != n*info.Length {
				return nil, errors.NewDimensionError("Reader.GetFold "+info.Name+maskSuffix, n*info.Length, len(mask), 0)
			}
			fold.Masks[info.Name] = mat.NewDense(n, info.Length, mask)
		}
	}

	r.logger.Debug("Fold loaded",
		log.OperationKey, log.OperationLoad,
		log.FoldIndexKey, i,
		log.FoldEventsKey, fold.Len(),
	)
	return fold, nil
}

func (r *Reader) readTensor(i int, info TensorInfo) (*tensor.Dense3, error) {
	data, err := r.a.read(datasetPath(i, info.Name))
	if err != nil {
		return nil, err
	}
	per := len(info.Attributes) * info.Length
	if per == 0 || len(data)%per != 0 {
		return nil, errors.NewDimensionError("Reader.GetFold "+info.Name, per, len(data), 0)
	}
	return tensor.NewDense3(len(data)/per, len(info.Attributes), info.Length, data)
}

// GetColumn reads one scalar column of fold i.
func (r *Reader) GetColumn(name string, i int) ([]float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.a == nil {
		return nil, errors.ErrClosed
	}
	if err := r.checkIndex(i); err != nil {
		return nil, err
	}
	if !r.a.has(datasetPath(i, name)) {
		return nil, errors.NewMissingFieldError("Reader.GetColumn", name, fmt.Sprintf("%s%d", foldPrefix, i))
	}
	return r.a.read(datasetPath(i, name))
}

// GetColumnAll reads one scalar column of every fold and concatenates them in
// fold order.
func (r *Reader) GetColumnAll(name string) ([]float64, error) {
	var out []float64
	for i := 0; i < r.meta.NFolds; i++ {
		col, err := r.GetColumn(name, i)
		if err != nil {
			return nil, err
		}
		out = append(out, col...)
	}
	return out, nil
}

// AddIgnore excludes features from Inputs. Unknown names are a ValidationError.
func (r *Reader) AddIgnore(names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	inputs := make(map[string]bool)
	for _, name := range r.meta.Inputs() {
		inputs[name] = true
	}
	for _, name := range names {
		if !inputs[name] {
			return errors.NewValidationError("ignore", "not an input feature", name)
		}
	}
	for _, name := range names {
		r.ignore[name] = true
	}
	return nil
}

// InputFeatures returns the continuous then categorical features that are
// not ignored.
func (r *Reader) InputFeatures() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, name := range r.meta.Inputs() {
		if !r.ignore[name] {
			out = append(out, name)
		}
	}
	return out
}

// Inputs assembles the (events × features) input matrix of a loaded fold,
// columns ordered as InputFeatures.
func (r *Reader) Inputs(fold *Fold) (*mat.Dense, error) {
	features := r.InputFeatures()
	n := fold.Len()
	if len(features) == 0 || n == 0 {
		return nil, errors.NewModelError("Reader.Inputs", "no inputs", errors.ErrEmptyData)
	}
	X := mat.NewDense(n, len(features), nil)
	for j, name := range features {
		col, ok := fold.Columns[name]
		if !ok {
			return nil, errors.NewMissingFieldError("Reader.Inputs", name, fmt.Sprintf("%s%d", foldPrefix, fold.Index))
		}
		if len(col) != n {
			return nil, errors.NewDimensionError("Reader.Inputs "+name, n, len(col), 0)
		}
		X.SetCol(j, col)
	}
	return X, nil
}

// Close releases the file. Further reads fail with ErrClosed.
func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.a == nil {
		return nil
	}
	err := r.a.close()
	r.a = nil
	return err
}
