package config

import "errors"

var (
	// ErrInvalidConfig indicates a configuration file that failed to parse
	// or validate.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownStep indicates a pipeline step with no query file entry.
	ErrUnknownStep = errors.New("unknown pipeline step")
)
