package annotate

import "errors"

var (
	// ErrStoreRequired is returned when no checkpoint store is provided
	ErrStoreRequired = errors.New("checkpoint store is required")

	// ErrAnalyzerRequired is returned when no analyzer is provided
	ErrAnalyzerRequired = errors.New("language analyzer is required")

	// ErrInvalidFeature is returned for analysis features the annotator does not know
	ErrInvalidFeature = errors.New("invalid analysis feature")

	// ErrInvalidBatchSize is returned when BatchSize is <= 0
	ErrInvalidBatchSize = errors.New("BatchSize must be greater than 0")

	// ErrInvalidWorkers is returned when Workers is <= 0
	ErrInvalidWorkers = errors.New("Workers must be greater than 0")
)
