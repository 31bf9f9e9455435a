// Standard attribute keys used across tournox log records.
//
// Keys follow a hierarchical naming convention ("run.id", "data.rows")
// so that downstream log analysis can filter by prefix.

package log

// Run and model context.
const (
	// RunIDKey carries the unique identifier of one driver run.
	RunIDKey = "run.id"

	// ModelNameKey identifies the model column being produced.
	ModelNameKey = "model.name"

	// SplitterKey identifies the splitter strategy driving the run.
	SplitterKey = "run.splitter"

	// FoldKey is the zero-based index of the current fit/predict pair.
	FoldKey = "run.fold"
)

// Data shape and partitioning.
const (
	// RowsKey is the number of rows in the dataset or subset.
	RowsKey = "data.rows"

	// FeaturesKey is the width of the feature matrix.
	FeaturesKey = "data.features"

	// ErasKey is the number of distinct eras involved.
	ErasKey = "data.eras"

	// RegionKey is a region label (train/validation/test/live).
	RegionKey = "data.region"
)

// Timing.
const (
	// DurationMsKey is elapsed wall time in milliseconds.
	DurationMsKey = "duration_ms"
)
