package shared

import (
	"errors"
	"fmt"
)

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")
	ErrMissingPromptID    = fmt.Errorf("missing prompt id")

	// Input errors
	ErrInputAccess   = fmt.Errorf("input file inaccessible")
	ErrInvalidHeader = fmt.Errorf("invalid CSV header")
	ErrInvalidRow    = fmt.Errorf("invalid row")

	// API and remote-state errors
	ErrAPIRequest   = fmt.Errorf("API request failed")
	ErrBatchNotDone = fmt.Errorf("batch not completed")
	ErrNoOutputFile = fmt.Errorf("batch has no output file")

	// Argument errors (exit code 2)
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// IsUsageError reports whether err should map to exit code 2 rather than a
// generic fatal exit.
func IsUsageError(err error) bool {
	return errors.Is(err, ErrMissingArgument) || errors.Is(err, ErrInvalidArgument)
}
