// Package analytics holds conventions shared by the operational analytics
// engines: input validation errors and numeric rounding helpers. The engines
// themselves (waittime, abc, spc) are pure and stateless; callers supply a
// snapshot of persisted data and receive plain value objects back.
package analytics

import (
	"errors"
	"fmt"
	"math"
)

// ValidationError reports an input that is outside its allowed range.
// Inputs are rejected before any computation runs; values are never
// silently clamped.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError creates a validation error for a named input field
func NewValidationError(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is an input validation failure
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// RoundMinutes converts a duration in hours to whole minutes, never negative
func RoundMinutes(hours float64) int {
	minutes := int(math.Round(hours * 60))
	if minutes < 0 {
		return 0
	}
	return minutes
}
