package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPrimaryWrite marks a failed primary-store write. The submission
	// fails and nothing downstream runs.
	ErrPrimaryWrite = errors.New("primary store write failed")

	// ErrNotFound marks an unknown device or battery on query endpoints.
	ErrNotFound = errors.New("not found")

	// ErrModelUnavailable marks a missing or failing scoring model. The
	// prediction request still succeeds via the heuristic fallback.
	ErrModelUnavailable = errors.New("predictive model unavailable")
)

// ValidationError rejects a malformed submission before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid telemetry: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
