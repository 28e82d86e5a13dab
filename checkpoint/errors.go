package checkpoint

import "errors"

var (
	// ErrMalformedShard indicates a shard file that could not be parsed.
	ErrMalformedShard = errors.New("malformed checkpoint shard")

	// ErrInvalidShardSize indicates a non-positive max shard size.
	ErrInvalidShardSize = errors.New("max shard size must be positive")
)
