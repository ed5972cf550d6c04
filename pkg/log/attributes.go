// Package log defines standard attribute keys for fold conversion operations.
//
// Using these keys keeps log records from the source, normalizer, partitioner
// and store stages consistent, so an operator can follow one conversion run
// and filter by fold or tensor.
//
// The keys follow a hierarchical naming convention (e.g. "fold.index",
// "data.events").

package log

// Component and Operation Context
const (
	// ComponentKey identifies which package is emitting the record.
	// Examples: "event.source", "store.writer", "convert"
	ComponentKey = "component"

	// OperationKey specifies the operation being performed.
	// Standard values are the Operation* constants below.
	OperationKey = "operation"

	// PhaseKey indicates the conversion phase.
	PhaseKey = "phase"
)

// Data Shape and Characteristics
const (
	// EventsKey indicates the number of events processed.
	EventsKey = "data.events"

	// FeaturesKey indicates the number of scalar features or resolved fields.
	FeaturesKey = "data.features"

	// TargetsKey indicates the number of target columns.
	TargetsKey = "data.targets"

	// DataTypeKey specifies a column type, e.g. "int" or "float" for targets.
	DataTypeKey = "data.type"
)

// Fold Context
const (
	// FoldIndexKey identifies a fold by its index.
	FoldIndexKey = "fold.index"

	// FoldCountKey records the number of folds in a partition.
	FoldCountKey = "fold.count"

	// FoldEventsKey records the number of events in one fold.
	FoldEventsKey = "fold.events"

	// StratKeyKey records the column used for stratified splitting.
	StratKeyKey = "fold.strat_key"
)

// Tensor Context
const (
	// TensorNameKey identifies a tensor feature group.
	TensorNameKey = "tensor.name"

	// TensorLengthKey records the fixed length L of a tensor block.
	TensorLengthKey = "tensor.length"

	// TensorShapeKey records the full shape of a tensor block.
	TensorShapeKey = "tensor.shape"
)

// Paths
const (
	// SourcePathKey records the event source location.
	SourcePathKey = "source.path"

	// StorePathKey records the fold store location.
	StorePathKey = "store.path"
)

// Performance and Configuration
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// RandomSeedKey records the random seed used for shuffling.
	RandomSeedKey = "config.random_seed"
)

// Error and Warning Context
const (
	// ErrorKey carries an error value.
	ErrorKey = "error"

	// ErrorTypeKey categorizes the error or warning type.
	ErrorTypeKey = "error.type"

	// StacktraceKey contains stack trace information for debugging.
	// Populated automatically for cockroachdb errors.
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationResolve   = "resolve"
	OperationRead      = "read"
	OperationNormalize = "normalize"
	OperationSplit     = "split"
	OperationWrite     = "write"
	OperationCommit    = "commit"
	OperationLoad      = "load"

	PhaseExtraction = "extraction"
	PhaseTransform  = "transform"
	PhasePartition  = "partition"
	PhasePersist    = "persist"
)
