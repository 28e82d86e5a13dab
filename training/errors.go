package training

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingToken indicates no credential was found in the key file or
	// the DEMANDCAST_TRAINING_TOKEN environment variable.
	ErrMissingToken = errors.New("no training service token configured")

	// ErrOperationFailed indicates a long-running operation finished with
	// a server-reported error.
	ErrOperationFailed = errors.New("training operation failed")

	// ErrInvalidModelConfig indicates the model section of the
	// configuration is missing a required field.
	ErrInvalidModelConfig = errors.New("invalid model configuration")
)

// APIError is a non-2xx reply from the training service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("training service: status %d: %s", e.Status, e.Message)
}
