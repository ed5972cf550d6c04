// Package convert turns an event source into a fold file: fields are resolved
// against the source catalog, collections are normalized into fixed-length
// tensors, events are partitioned into folds and every fold is written to the
// store.
package convert

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/foldfile/config"
	"github.com/YuminosukeSato/foldfile/core/model"
	"github.com/YuminosukeSato/foldfile/core/tensor"
	"github.com/YuminosukeSato/foldfile/event"
	"github.com/YuminosukeSato/foldfile/folds"
	"github.com/YuminosukeSato/foldfile/pkg/errors"
	"github.com/YuminosukeSato/foldfile/pkg/log"
	"github.com/YuminosukeSato/foldfile/preprocessing"
	"github.com/YuminosukeSato/foldfile/store"
)

// Result summarizes a finished conversion.
type Result struct {
	Path    string
	NEvents int
	// Assignment maps each source event index to its fold.
	Assignment []int
	FoldSizes  []int
	// Balance is filled for stratified runs.
	Balance []folds.FoldBalance
	// Truncated counts, per tensor, the events whose collection exceeded the
	// tensor length.
	Truncated map[string]int
	Duration  time.Duration
}

// plan is everything decided from the catalog before any event is read.
type plan struct {
	meta    store.Meta
	schema  *event.Schema
	tensors []*preprocessing.TensorNormalizer
}

// converted holds the full-length outputs of the transform stage.
type converted struct {
	columns   map[string][]float64
	tensors   map[string]*tensor.Dense3
	masks     map[string]*mat.Dense
	pipe      *preprocessing.Pipeline
	truncated map[string]int
}

// Convert reads every event of src, partitions it and writes the fold file
// at dst. The source is closed before partitioning starts, and on every error
// path. Nothing appears at dst unless the whole run succeeds.
//
// When opts.SavePipe is set the fitted transforms are saved after the fold
// file is committed; a failure there returns the Result together with the
// error.
func Convert(ctx context.Context, src event.Source, dst string, opts Options) (res *Result, err error) {
	defer errors.Recover(&err, "convert.Convert")

	start := time.Now()
	logger := opts.logger().With(log.StorePathKey, dst)

	sourceClosed := false
	closeSource := func() error {
		if sourceClosed {
			return nil
		}
		sourceClosed = true
		if cerr := src.Close(); cerr != nil {
			return errors.NewIOError("close source", "", cerr)
		}
		return nil
	}
	defer func() {
		if cerr := closeSource(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := store.CheckDestination(dst, opts.Overwrite); err != nil {
		return nil, err
	}

	p, err := resolve(ctx, src, &opts)
	if err != nil {
		return nil, err
	}
	logger.Info("Fields resolved",
		log.OperationKey, log.OperationResolve,
		log.FeaturesKey, len(p.schema.Fields()),
		log.TargetsKey, len(p.meta.TargFeats),
	)

	batch, err := src.Read(ctx, p.schema.Fields())
	if err != nil {
		return nil, err
	}
	if err := closeSource(); err != nil {
		return nil, err
	}
	if batch.N == 0 {
		return nil, errors.NewModelError("convert.Convert", "source has no events", errors.ErrEmptyData)
	}
	logger.Info("Events read",
		log.OperationKey, log.OperationRead,
		log.PhaseKey, log.PhaseExtraction,
		log.EventsKey, batch.N,
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := transform(batch, p, &opts, logger)
	if err != nil {
		return nil, err
	}

	foldList, err := split(batch, &opts)
	if err != nil {
		return nil, err
	}

	res = &Result{
		Path:       dst,
		NEvents:    batch.N,
		Assignment: folds.Assignment(foldList, batch.N),
		FoldSizes:  folds.Sizes(foldList),
		Truncated:  data.truncated,
	}
	if opts.StratKey != "" {
		res.Balance, err = folds.Balance(foldList, batch.Scalars[opts.StratKey])
		if err != nil {
			return nil, err
		}
		for _, b := range res.Balance {
			logger.Debug("Fold balance",
				log.FoldIndexKey, b.Index,
				log.FoldEventsKey, b.Size,
				log.StratKeyKey, opts.StratKey,
				"label_mean", b.LabelMean,
			)
		}
	}
	logger.Info("Events partitioned",
		log.OperationKey, log.OperationSplit,
		log.PhaseKey, log.PhasePartition,
		log.FoldCountKey, len(foldList),
		log.RandomSeedKey, opts.Seed,
	)

	if err := write(ctx, dst, &p.meta, data, foldList, &opts); err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)

	if opts.SavePipe != "" {
		if err := model.SaveModel(data.pipe, opts.SavePipe); err != nil {
			return res, err
		}
	}

	logger.Info("Conversion finished",
		log.PhaseKey, log.PhasePersist,
		log.EventsKey, res.NEvents,
		log.DurationMsKey, res.Duration.Milliseconds(),
	)
	return res, nil
}

// ConvertFile opens the configured source and converts it.
func ConvertFile(ctx context.Context, cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := store.CheckDestination(cfg.Output.Path, cfg.Output.Overwrite); err != nil {
		return nil, err
	}
	src, err := event.OpenJSONL(cfg.Source.Path)
	if err != nil {
		return nil, err
	}
	opts := FromConfig(cfg)
	opts.Logger = log.GetLoggerWithName("convert").With(log.SourcePathKey, cfg.Source.Path)
	return Convert(ctx, src, cfg.Output.Path, opts)
}

// resolve fetches the catalog once and fixes the metadata, the schema and the
// tensor normalizers.
func resolve(ctx context.Context, src event.Source, opts *Options) (*plan, error) {
	catalog, err := src.Fields(ctx)
	if err != nil {
		return nil, err
	}
	var scalarCatalog []event.FieldInfo
	for _, f := range catalog {
		if f.Kind == event.KindScalar {
			scalarCatalog = append(scalarCatalog, f)
		}
	}
	names := func(patterns []string) ([]string, error) {
		fields, err := event.Resolve(scalarCatalog, patterns)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(fields))
		for i, f := range fields {
			out[i] = f.Name
		}
		return out, nil
	}

	p := &plan{meta: store.Meta{
		TargType: opts.TargType,
		WgtFeat:  opts.Weight,
		NFolds:   opts.NFolds,
	}}
	if p.meta.ContFeats, err = names(opts.Continuous); err != nil {
		return nil, err
	}
	if p.meta.CatFeats, err = names(opts.Categorical); err != nil {
		return nil, err
	}
	if p.meta.TargFeats, err = names(opts.Targets); err != nil {
		return nil, err
	}
	misc, err := names(opts.Misc)
	if err != nil {
		return nil, err
	}
	// misc patterns never steal a field from another role
	claimed := make(map[string]bool)
	for _, name := range p.meta.Columns() {
		claimed[name] = true
	}
	for _, name := range misc {
		if !claimed[name] {
			p.meta.MiscFeats = append(p.meta.MiscFeats, name)
		}
	}

	var collections []event.Collection
	for _, spec := range opts.Tensors {
		coll := spec.Collection
		if len(coll.Attributes) == 0 {
			coll.Attributes = collectionAttributes(catalog, coll.Name)
			if len(coll.Attributes) == 0 {
				return nil, errors.NewMissingFieldError("convert.resolve", coll.Name, "source catalog")
			}
		}
		norm, err := preprocessing.NewTensorNormalizer(spec.Name, coll, spec.Length)
		if err != nil {
			return nil, err
		}
		p.tensors = append(p.tensors, norm)
		collections = append(collections, coll)
		p.meta.Tensors = append(p.meta.Tensors, store.TensorInfo{
			Name:       spec.Name,
			Collection: coll.Name,
			Attributes: coll.Attributes,
			Length:     spec.Length,
			Mask:       spec.Mask,
		})
	}
	if err := p.meta.Validate(); err != nil {
		return nil, err
	}

	scalars := p.meta.Columns()
	if opts.StratKey != "" {
		scalars = append(scalars, opts.StratKey)
	}
	p.schema, err = event.NewSchema(catalog, scalars, collections)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func collectionAttributes(catalog []event.FieldInfo, name string) []string {
	attrs := event.CollectionAttributes(catalog, name)
	sort.Strings(attrs)
	return attrs
}

// transform builds every output column and tensor over the whole batch.
// Each stage returns new values; the batch is never modified.
func transform(batch *event.Batch, p *plan, opts *Options, logger log.Logger) (*converted, error) {
	out := &converted{
		columns:   make(map[string][]float64),
		tensors:   make(map[string]*tensor.Dense3),
		masks:     make(map[string]*mat.Dense),
		pipe:      &preprocessing.Pipeline{},
		truncated: make(map[string]int),
	}
	for _, name := range p.meta.Columns() {
		out.columns[name] = batch.Scalars[name]
	}

	if p.meta.TargType == store.TargInt {
		for _, name := range p.meta.TargFeats {
			if !errors.CheckIntegral(out.columns[name]) {
				errors.Warn(errors.NewDataConversionWarning("float", "int",
					fmt.Sprintf("target '%s' has non-integer values, which are truncated", name)))
			}
		}
	}

	// integral misc columns (event numbers, run ids) keep every digit as int64
	p.meta.IntFeats = nil
	for _, name := range p.meta.MiscFeats {
		if store.FitsInt64(out.columns[name]) {
			p.meta.IntFeats = append(p.meta.IntFeats, name)
		}
	}

	if opts.EncodeCategorical && len(p.meta.CatFeats) > 0 {
		out.pipe.Encoder = preprocessing.NewCategoricalEncoder(p.meta.CatFeats...)
	}
	if opts.Scaler != "" && opts.Scaler != "none" && len(p.meta.ContFeats) > 0 {
		scaler, err := preprocessing.NewScaler(opts.Scaler, p.meta.ContFeats)
		if err != nil {
			return nil, err
		}
		out.pipe.Scaler = scaler
	}
	columns, err := out.pipe.FitTransform(out.columns)
	if err != nil {
		return nil, err
	}
	out.columns = columns
	if out.pipe.Encoder != nil {
		p.meta.CatMaps = out.pipe.Encoder.Maps
	}
	if out.pipe.Scaler != nil {
		p.meta.Preproc = []preprocessing.ScalerParams{out.pipe.Scaler.Params()}
	}

	for i, norm := range p.tensors {
		block, err := norm.Transform(batch)
		if err != nil {
			return nil, err
		}
		out.tensors[norm.Name] = block

		truncated, err := norm.Truncated(batch)
		if err != nil {
			return nil, err
		}
		out.truncated[norm.Name] = truncated
		if truncated > 0 {
			errors.Warn(errors.NewTruncationWarning(norm.Name, norm.Length, truncated, batch.N))
		}

		if p.meta.Tensors[i].Mask {
			mask, err := norm.Mask(batch)
			if err != nil {
				return nil, err
			}
			out.masks[norm.Name] = mask
		}
		logger.Info("Tensor normalized",
			log.OperationKey, log.OperationNormalize,
			log.PhaseKey, log.PhaseTransform,
			log.TensorNameKey, norm.Name,
			log.TensorShapeKey, block.Shape(),
			"truncated", truncated,
		)
	}
	return out, nil
}

func split(batch *event.Batch, opts *Options) ([]folds.Fold, error) {
	var splitter folds.Splitter
	var y []float64
	if opts.StratKey != "" {
		splitter = folds.NewStratifiedKFold(opts.NFolds, opts.Shuffle, opts.Seed)
		y = batch.Scalars[opts.StratKey]
	} else {
		splitter = folds.NewKFold(opts.NFolds, opts.Shuffle, opts.Seed)
	}
	foldList, err := splitter.Split(batch.N, y)
	if err != nil {
		return nil, err
	}
	if err := folds.ValidatePartition(foldList, batch.N); err != nil {
		return nil, err
	}
	return foldList, nil
}

func write(ctx context.Context, dst string, meta *store.Meta, data *converted, foldList []folds.Fold, opts *Options) (err error) {
	w, err := store.Create(dst, opts.Overwrite, store.WithLogger(opts.logger()))
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.CombineErrors(err, w.Abort())
		}
	}()

	if err := w.WriteMeta(*meta); err != nil {
		return err
	}
	for _, f := range foldList {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.WriteFold(foldData(f, data)); err != nil {
			return err
		}
	}
	return w.Commit()
}

// foldData selects the rows of one fold from the full-length outputs.
func foldData(f folds.Fold, data *converted) *store.FoldData {
	fd := &store.FoldData{
		Index:   f.Index,
		Columns: make(map[string][]float64, len(data.columns)),
		Tensors: make(map[string]*tensor.Dense3, len(data.tensors)),
		Masks:   make(map[string]*mat.Dense, len(data.masks)),
	}
	for name, col := range data.columns {
		sel := make([]float64, len(f.Indices))
		for k, idx := range f.Indices {
			sel[k] = col[idx]
		}
		fd.Columns[name] = sel
	}
	for name, block := range data.tensors {
		fd.Tensors[name] = block.Select(f.Indices)
	}
	for name, mask := range data.masks {
		_, c := mask.Dims()
		sel := mat.NewDense(len(f.Indices), c, nil)
		for k, idx := range f.Indices {
			sel.SetRow(k, mask.RawRowView(idx))
		}
		fd.Masks[name] = sel
	}
	return fd
}
