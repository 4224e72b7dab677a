package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	ErrWrongPhase          = errors.New("operation not valid in current phase")
	ErrIngredientsNotReady = errors.New("not all ingredients are checked")
	ErrIngredientIndex     = errors.New("ingredient index out of range")
	ErrSessionClosed       = errors.New("session is closed")
	ErrNoSteps             = errors.New("recipe has no instructions")

	ErrInvalidDuration = errors.New("timer duration must be positive")
	ErrTimerClosed     = errors.New("timer is closed")

	ErrCompletionPending = errors.New("completion already in progress")
	ErrNoCompletionStage = errors.New("action not valid in current completion stage")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")

	ErrMissingRecipeID   = errors.New("missing recipe id")
	ErrMissingCredential = errors.New("missing credential")
)

// PreconditionError marks a failure that no retry can fix, such as a
// missing recipe id or credential.
type PreconditionError struct {
	Op  string
	Err error
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s: precondition failed: %v", e.Op, e.Err)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// NewPreconditionError wraps err as a precondition failure of op.
func NewPreconditionError(op string, err error) error {
	return &PreconditionError{Op: op, Err: err}
}

// TransientError represents a temporary error that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }

func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// LimitExceededError is returned by the photo service when a recipe
// already holds the maximum number of dish photos.
type LimitExceededError struct {
	Current int
	Max     int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("photo limit exceeded (%d/%d)", e.Current, e.Max)
}

// IsPrecondition returns true if err is a precondition failure.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsLimitExceeded reports whether err carries a photo limit condition and
// returns it.
func IsLimitExceeded(err error) (*LimitExceededError, bool) {
	var le *LimitExceededError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}
