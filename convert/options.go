package convert

import (
	"github.com/YuminosukeSato/foldfile/config"
	"github.com/YuminosukeSato/foldfile/event"
	"github.com/YuminosukeSato/foldfile/pkg/errors"
	"github.com/YuminosukeSato/foldfile/pkg/log"
	"github.com/YuminosukeSato/foldfile/store"
)

// TensorSpec declares one tensor feature. An empty attribute list selects
// every attribute of the collection found in the source, sorted by name.
type TensorSpec struct {
	Name       string
	Collection event.Collection
	Length     int
	Mask       bool
}

// Options controls one conversion. Feature role entries are field patterns
// resolved against the source catalog.
type Options struct {
	Continuous  []string
	Categorical []string
	Targets     []string
	TargType    string
	Weight      string
	Misc        []string
	Tensors     []TensorSpec

	NFolds   int
	Shuffle  bool
	Seed     int
	StratKey string

	Overwrite         bool
	Scaler            string
	EncodeCategorical bool
	// SavePipe, when set, receives the fitted transforms as a gob file after
	// the fold file has been committed.
	SavePipe string

	Logger log.Logger
}

// DefaultOptions mirrors config.DefaultConfig.
func DefaultOptions() Options {
	return FromConfig(config.DefaultConfig())
}

// FromConfig maps a loaded configuration to Options.
func FromConfig(cfg *config.Config) Options {
	opts := Options{
		Continuous:        cfg.Features.Continuous,
		Categorical:       cfg.Features.Categorical,
		Targets:           cfg.Features.Targets,
		TargType:          cfg.Features.TargType,
		Weight:            cfg.Features.Weight,
		Misc:              cfg.Features.Misc,
		NFolds:            cfg.Folds.NFolds,
		Shuffle:           cfg.Folds.Shuffle,
		Seed:              cfg.Folds.Seed,
		StratKey:          cfg.Folds.StratKey,
		Overwrite:         cfg.Output.Overwrite,
		Scaler:            cfg.Preprocessing.Scaler,
		EncodeCategorical: cfg.Preprocessing.EncodeCategorical,
		SavePipe:          cfg.Preprocessing.SavePipe,
	}
	for _, t := range cfg.Tensors {
		opts.Tensors = append(opts.Tensors, TensorSpec{
			Name:       t.Name,
			Collection: event.Collection{Name: t.Collection, Attributes: t.Attributes},
			Length:     t.Length,
			Mask:       t.Mask,
		})
	}
	return opts
}

// Validate checks the options before any data is touched.
func (o *Options) Validate() error {
	if o.NFolds < 1 {
		return errors.NewValidationError("n_folds", "must be at least 1", o.NFolds)
	}
	switch o.TargType {
	case store.TargInt, store.TargFloat:
	default:
		return errors.NewValidationError("targ_type", "must be int or float", o.TargType)
	}
	switch o.Scaler {
	case "", "none", "standard", "minmax":
	default:
		return errors.NewValidationError("scaler", "must be none, standard or minmax", o.Scaler)
	}
	if len(o.Continuous)+len(o.Categorical)+len(o.Tensors) == 0 {
		return errors.NewValidationError("features", "no input features declared", nil)
	}
	for _, t := range o.Tensors {
		if t.Name == "" || t.Collection.Name == "" {
			return errors.NewValidationError("tensors", "name and collection are required", t.Name)
		}
		if t.Length <= 0 {
			return errors.NewValidationError("tensors."+t.Name+".length", "must be positive", t.Length)
		}
	}
	return nil
}

func (o *Options) logger() log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.GetLoggerWithName("convert")
}
