package workflow

import (
	"errors"
	"fmt"

	"github.com/PassportSoftware/paylink/internal/validation"
)

// The four outcomes a failed workflow action can surface as. Nothing else
// propagates out of the controller: network errors are converted here and
// rendered by the caller, never retried automatically.
var (
	// ErrNavigationGuard marks a stage entered without its required
	// predecessor context. Handled as a silent redirect to PIN entry, never
	// rendered as an error.
	ErrNavigationGuard = errors.New("workflow: stage entered without required context")

	// ErrRequestInFlight rejects a duplicate action while its predecessor
	// request is still outstanding.
	ErrRequestInFlight = errors.New("workflow: request already in flight")
)

// AccessDeniedError is a user-correctable credential failure: bad PIN,
// unknown invoice, or a verification that could not complete. Shown inline
// next to the PIN field.
type AccessDeniedError struct {
	Reason string
	Err    error
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access denied: %s", e.Reason)
}

func (e *AccessDeniedError) Unwrap() error { return e.Err }

// ValidationError blocks a submission on a local form constraint. It never
// reaches the network.
type ValidationError struct {
	Violations validation.Violations
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d violation(s)", len(e.Violations))
}

// SubmissionFailureError wraps a network or server failure during the update.
// The session stays in review; the user may deliberately retry.
type SubmissionFailureError struct {
	Err error
}

func (e *SubmissionFailureError) Error() string {
	return fmt.Sprintf("submission failed: %v", e.Err)
}

func (e *SubmissionFailureError) Unwrap() error { return e.Err }
