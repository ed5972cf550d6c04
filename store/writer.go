package store

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/foldfile/core/tensor"
	"github.com/YuminosukeSato/foldfile/pkg/errors"
	"github.com/YuminosukeSato/foldfile/pkg/log"
)

// FoldData is the content of one fold. Columns holds every scalar column the
// metadata declares (features, targets, weight, misc); Tensors and Masks are
// keyed by tensor name.
type FoldData struct {
	Index   int
	Columns map[string][]float64
	Tensors map[string]*tensor.Dense3
	Masks   map[string]*mat.Dense
}

// Len returns the number of events in the fold, taken from its first
// declared column or tensor.
func (f *FoldData) Len() int {
	for _, col := range f.Columns {
		return len(col)
	}
	for _, t := range f.Tensors {
		n, _, _ := t.Dims()
		return n
	}
	return 0
}

// Writer builds a fold file at a temporary sibling path and moves it to the
// destination on Commit. Until then the destination is untouched.
type Writer struct {
	mu sync.Mutex

	path      string
	tmp       string
	overwrite bool
	c         *container
	meta      *Meta
	sizes     []int
	written   []bool
	done      bool
	logger    log.Logger
	startedAt time.Time
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLogger sets the logger used for per-fold reports.
func WithLogger(l log.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// Create prepares a fold file at path. If path exists and overwrite is false
// it returns a StoreExistsError without creating anything.
func Create(path string, overwrite bool, opts ...WriterOption) (*Writer, error) {
	if err := CheckDestination(path, overwrite); err != nil {
		return nil, err
	}

	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return nil, errors.NewIOError("create temporary file", path, err)
	}
	tmp := f.Name()
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return nil, errors.NewIOError("create temporary file", tmp, err)
	}

	c, err := createContainer(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return nil, err
	}

	w := &Writer{
		path:      path,
		tmp:       tmp,
		overwrite: overwrite,
		c:         c,
		logger:    log.GetLoggerWithName("store.writer"),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(log.StorePathKey, path)
	return w, nil
}

// CheckDestination fails with StoreExistsError when path exists and overwrite
// is not allowed.
func CheckDestination(path string, overwrite bool) error {
	info, err := os.Stat(path)
	switch {
	case err == nil:
		if info.IsDir() {
			return errors.NewValidationError("output.path", "is a directory", path)
		}
		if !overwrite {
			return errors.NewStoreExistsError(path)
		}
	case !os.IsNotExist(err):
		return errors.NewIOError("stat destination", path, err)
	}
	return nil
}

// WriteMeta declares the columns every fold must carry. It must be called
// once, before any WriteFold. FoldSizes is filled in by Commit.
func (w *Writer) WriteMeta(meta Meta) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return errors.ErrClosed
	}
	if w.meta != nil {
		return errors.NewValueError("Writer.WriteMeta", "metadata already written")
	}
	if err := meta.Validate(); err != nil {
		return err
	}
	w.meta = &meta
	w.sizes = make([]int, meta.NFolds)
	w.written = make([]bool, meta.NFolds)
	return nil
}

// WriteFold validates one fold against the metadata and writes its group.
func (w *Writer) WriteFold(fold *FoldData) (err error) {
	defer errors.Recover(&err, "Writer.WriteFold")

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return errors.ErrClosed
	}
	if w.meta == nil {
		return errors.NewValueError("Writer.WriteFold", "WriteMeta must be called first")
	}
	if fold.Index < 0 || fold.Index >= w.meta.NFolds {
		return errors.Wrapf(errors.ErrFoldOutOfRange, "fold %d of %d", fold.Index, w.meta.NFolds)
	}
	if w.written[fold.Index] {
		return errors.NewValueError("Writer.WriteFold", fmt.Sprintf("fold %d already written", fold.Index))
	}
	n, err := w.validateFold(fold)
	if err != nil {
		return err
	}

	if err := w.c.group(foldGroup(fold.Index)); err != nil {
		return err
	}
	for _, name := range w.meta.Columns() {
		col := fold.Columns[name]
		path := datasetPath(fold.Index, name)
		switch w.meta.dtype(name) {
		case dtypeInt64:
			err = w.c.writeInt64(path, toInt64(col))
		case dtypeFloat32:
			err = w.c.writeFloat32(path, []uint64{uint64(n)}, toFloat32(col))
		default:
			err = w.c.writeFloat64(path, col)
		}
		if err != nil {
			return err
		}
	}
	for _, info := range w.meta.Tensors {
		block := fold.Tensors[info.Name]
		dims := []uint64{uint64(n), uint64(len(info.Attributes)), uint64(info.Length)}
		if err := w.c.writeFloat32(datasetPath(fold.Index, info.Name), dims, block.Float32()); err != nil {
			return err
		}
		if info.Mask {
			mask := fold.Masks[info.Name]
			dims := []uint64{uint64(n), uint64(info.Length)}
			if err := w.c.writeFloat32(datasetPath(fold.Index, info.Name+maskSuffix), dims, denseFloat32(mask)); err != nil {
				return err
			}
		}
	}

	w.written[fold.Index] = true
	w.sizes[fold.Index] = n
	w.logger.Info("Fold written",
		log.OperationKey, log.OperationWrite,
		log.FoldIndexKey, fold.Index,
		log.FoldEventsKey, n,
	)
	return nil
}

// validateFold checks names, lengths and shapes and returns the event count.
func (w *Writer) validateFold(fold *FoldData) (int, error) {
	op := fmt.Sprintf("Writer.WriteFold(fold %d)", fold.Index)
	declared := make(map[string]bool)
	for _, name := range w.meta.Columns() {
		declared[name] = true
	}
	for name := range fold.Columns {
		if !declared[name] {
			return 0, errors.NewValidationError("column", "not declared in metadata", name)
		}
	}
	for name := range fold.Tensors {
		if _, ok := w.meta.Tensor(name); !ok {
			return 0, errors.NewValidationError("tensor", "not declared in metadata", name)
		}
	}

	n := -1
	check := func(name string, got int) error {
		if n == -1 {
			n = got
			return nil
		}
		if got != n {
			return errors.NewDimensionError(op+" "+name, n, got, 0)
		}
		return nil
	}
	for _, name := range w.meta.Columns() {
		col, ok := fold.Columns[name]
		if !ok {
			return 0, errors.NewMissingFieldError(op, name, "fold columns")
		}
		if err := check(name, len(col)); err != nil {
			return 0, err
		}
	}
	for _, name := range w.meta.IntFeats {
		if !FitsInt64(fold.Columns[name]) {
			return 0, errors.NewValueError(op, fmt.Sprintf("column %q is declared in %s but holds non-integer values", name, KeyIntFeats))
		}
	}
	for _, info := range w.meta.Tensors {
		block, ok := fold.Tensors[info.Name]
		if !ok || block == nil {
			return 0, errors.NewMissingFieldError(op, info.Name, "fold tensors")
		}
		bn, ba, bl := block.Dims()
		if ba != len(info.Attributes) {
			return 0, errors.NewDimensionError(op+" "+info.Name, len(info.Attributes), ba, 1)
		}
		if bl != info.Length {
			return 0, errors.NewDimensionError(op+" "+info.Name, info.Length, bl, 2)
		}
		if err := check(info.Name, bn); err != nil {
			return 0, err
		}
		if info.Mask {
			mask, ok := fold.Masks[info.Name]
			if !ok || mask == nil {
				return 0, errors.NewMissingFieldError(op, info.Name+maskSuffix, "fold masks")
			}
			mr, mc := mask.Dims()
			if mr != bn || mc != info.Length {
				return 0, errors.NewDimensionError(op+" "+info.Name+maskSuffix, bn*info.Length, mr*mc, 0)
			}
		}
	}
	if n <= 0 {
		return 0, errors.NewModelError(op, "empty fold", errors.ErrEmptyData)
	}
	return n, nil
}

// Commit writes the metadata, closes the container and moves it into place.
// Every declared fold must have been written.
func (w *Writer) Commit() (err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.done {
		return errors.ErrClosed
	}
	defer func() {
		if err != nil {
			w.abortLocked()
		}
	}()

	if w.meta == nil {
		return errors.NewValueError("Writer.Commit", "no metadata written")
	}
	for i, ok := range w.written {
		if !ok {
			return errors.NewValueError("Writer.Commit", fmt.Sprintf("fold %d was never written", i))
		}
	}
	w.meta.FoldSizes = append([]int(nil), w.sizes...)

	docs, err := w.meta.encode()
	if err != nil {
		return err
	}
	if err := w.c.group("/" + metaGroup); err != nil {
		return err
	}
	for _, key := range metaKeys {
		if err := w.c.writeString(metaPath(key), string(docs[key])); err != nil {
			return err
		}
	}
	if err := w.c.close(); err != nil {
		return err
	}
	w.c = nil

	// the destination may have appeared since Create
	if err := CheckDestination(w.path, w.overwrite); err != nil {
		return err
	}
	if err := os.Rename(w.tmp, w.path); err != nil {
		return errors.NewIOError("rename into place", w.path, err)
	}
	w.done = true

	w.logger.Info("Fold file committed",
		log.OperationKey, log.OperationCommit,
		log.FoldCountKey, w.meta.NFolds,
		log.EventsKey, sum(w.sizes),
		log.DurationMsKey, time.Since(w.startedAt).Milliseconds(),
	)
	return nil
}

// Abort discards the temporary file. It is safe to call after Commit, in
// which case it does nothing.
func (w *Writer) Abort() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done {
		return nil
	}
	return w.abortLocked()
}

func (w *Writer) abortLocked() error {
	var err error
	if w.c != nil {
		err = w.c.close()
		w.c = nil
	}
	if rmErr := os.Remove(w.tmp); rmErr != nil && !os.IsNotExist(rmErr) {
		err = errors.CombineErrors(err, errors.NewIOError("remove temporary file", w.tmp, rmErr))
	}
	w.done = true
	return err
}

var metaKeys = []string{
	KeyContFeats, KeyCatFeats, KeyTargFeats, KeyTargType, KeyWgtFeat, KeyMiscFeats,
	KeyIntFeats, KeyTensorFeats, KeyCatMaps, KeyPreproc, KeyNFolds, KeyFoldSizes,
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}

func toInt64(values []float64) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(math.Trunc(v))
	}
	return out
}

func denseFloat32(m *mat.Dense) []float32 {
	r, c := m.Dims()
	out := make([]float32, 0, r*c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out = append(out, float32(m.At(i, j)))
		}
	}
	return out
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}
