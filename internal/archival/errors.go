package archival

import (
	"errors"
	"fmt"
)

// ErrDuplicateExecution reports that a run for the same policy and day
// already exists. The scheduler decides whether to skip or investigate.
var ErrDuplicateExecution = errors.New("execution already recorded for policy and date")

// ErrAlreadyFinalized reports a second terminal transition on a log that
// is already COMPLETED or FAILED. It is rejected, never overwritten.
var ErrAlreadyFinalized = errors.New("execution log already finalized")

// ErrExecutionNotFound reports an unknown execution log ID
var ErrExecutionNotFound = errors.New("execution log not found")

// InvariantViolationError is fatal to the attempted transition: the log
// is left in its prior state and the caller should surface an
// operational alert rather than retry, since a broken invariant
// indicates a caller bug.
type InvariantViolationError struct {
	Invariant string
	Detail    string
}

func (e *InvariantViolationError) Error() string {
	return fmt.Sprintf("archival invariant %s violated: %s", e.Invariant, e.Detail)
}

// IsInvariantViolation reports whether err is an invariant violation
func IsInvariantViolation(err error) bool {
	var ive *InvariantViolationError
	return errors.As(err, &ive)
}
