// Package config loads the YAML description of a conversion run.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/foldfile/pkg/errors"
	"github.com/YuminosukeSato/foldfile/pkg/log"
)

// Config is the complete description of one conversion.
type Config struct {
	Source        SourceConfig        `yaml:"source"`
	Output        OutputConfig        `yaml:"output"`
	Folds         FoldsConfig         `yaml:"folds"`
	Features      FeaturesConfig      `yaml:"features"`
	Tensors       []TensorConfig      `yaml:"tensors,omitempty"`
	Preprocessing PreprocessingConfig `yaml:"preprocessing"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// SourceConfig locates the event file.
type SourceConfig struct {
	Path   string `yaml:"path"`
	Format string `yaml:"format"` // jsonl (.zst / .gz allowed)
}

// OutputConfig locates the fold file.
type OutputConfig struct {
	Path      string `yaml:"path"`
	Overwrite bool   `yaml:"overwrite"`
}

// FoldsConfig controls partitioning.
type FoldsConfig struct {
	NFolds   int    `yaml:"n_folds"`
	Shuffle  bool   `yaml:"shuffle"`
	Seed     int    `yaml:"seed"`      // negative: unseeded
	StratKey string `yaml:"strat_key"` // empty: no stratification
}

// FeaturesConfig assigns roles to scalar fields. Entries are field patterns
// with an optional leading or trailing '*'.
type FeaturesConfig struct {
	Continuous  []string `yaml:"continuous,omitempty"`
	Categorical []string `yaml:"categorical,omitempty"`
	Targets     []string `yaml:"targets,omitempty"`
	TargType    string   `yaml:"targ_type"` // int or float
	Weight      string   `yaml:"weight"`
	Misc        []string `yaml:"misc,omitempty"`
}

// TensorConfig declares one fixed-length tensor built from a collection.
type TensorConfig struct {
	Name       string   `yaml:"name"`
	Collection string   `yaml:"collection"`
	Attributes []string `yaml:"attributes,omitempty"` // empty: every attribute in the source, sorted
	Length     int      `yaml:"length"`
	Mask       bool     `yaml:"mask"`
}

// PreprocessingConfig selects the fitted transforms.
type PreprocessingConfig struct {
	Scaler            string `yaml:"scaler"` // none, standard, minmax
	EncodeCategorical bool   `yaml:"encode_categorical"`
	SavePipe          string `yaml:"save_pipe"` // optional gob file for the fitted transforms
}

// LoggingConfig configures pkg/log.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// DefaultConfig returns the defaults applied before the YAML file.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{Format: "jsonl"},
		Folds: FoldsConfig{
			NFolds:  10,
			Shuffle: true,
			Seed:    1337,
		},
		Features: FeaturesConfig{TargType: "int"},
		Preprocessing: PreprocessingConfig{
			Scaler:            "none",
			EncodeCategorical: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewIOError("read config", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}

	cfg.applyEnvOverrides()
	cfg.resolvePaths(filepath.Dir(path))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.NewIOError("write config", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if level := os.Getenv("FOLDFILE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if format := os.Getenv("FOLDFILE_LOG_FORMAT"); format != "" {
		c.Logging.Format = format
	}
}

// resolvePaths makes relative paths relative to the config file.
func (c *Config) resolvePaths(base string) {
	for _, p := range []*string{&c.Source.Path, &c.Output.Path, &c.Preprocessing.SavePipe} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// Validate checks the configuration for values no conversion could use.
func (c *Config) Validate() error {
	if c.Source.Path == "" {
		return errors.NewValidationError("source.path", "is required", c.Source.Path)
	}
	if c.Source.Format != "jsonl" {
		return errors.NewValidationError("source.format", "must be jsonl", c.Source.Format)
	}
	if c.Output.Path == "" {
		return errors.NewValidationError("output.path", "is required", c.Output.Path)
	}
	if c.Folds.NFolds < 1 {
		return errors.NewValidationError("folds.n_folds", "must be at least 1", c.Folds.NFolds)
	}
	switch c.Features.TargType {
	case "int", "float":
	default:
		return errors.NewValidationError("features.targ_type", "must be int or float", c.Features.TargType)
	}
	if len(c.Features.Continuous)+len(c.Features.Categorical)+len(c.Tensors) == 0 {
		return errors.NewValidationError("features", "no input features declared", nil)
	}
	names := make(map[string]bool)
	for i, t := range c.Tensors {
		if t.Name == "" || t.Collection == "" {
			return errors.NewValidationError("tensors", "name and collection are required", i)
		}
		if names[t.Name] {
			return errors.NewValidationError("tensors", "duplicate tensor name", t.Name)
		}
		names[t.Name] = true
		if t.Length <= 0 {
			return errors.NewValidationError("tensors."+t.Name+".length", "must be positive", t.Length)
		}
	}
	switch c.Preprocessing.Scaler {
	case "", "none", "standard", "minmax":
	default:
		return errors.NewValidationError("preprocessing.scaler", "must be none, standard or minmax", c.Preprocessing.Scaler)
	}
	if _, ok := log.ParseLevel(c.Logging.Level); !ok {
		return errors.NewValidationError("logging.level", "unknown log level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return errors.NewValidationError("logging.format", "must be json or console", c.Logging.Format)
	}
	return nil
}
