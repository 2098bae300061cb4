package state

import (
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Error taxonomy for the workflow core. ValidationError and NotFoundError are
// non-fatal and surfaced to the calling agent as failed tool results.
// StateConflictError blocks a transition without mutating phase.
// PersistenceError means the durable snapshot write failed after retry.
// ConnectionError covers broadcast send failures and is always self-healing.

// ValidationError reports an unknown tool name or malformed arguments.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NewValidationError creates a ValidationError with a formatted message.
func NewValidationError(format string, a ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, a...)}
}

// NotFoundError reports a missing chapter, document, or persisted state.
type NotFoundError struct {
	Kind string // "state", "document", "chapter", "tool"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Name)
}

// StateConflictError reports a phase transition that is not in the allowed
// edge table. The phase is left unchanged when this is returned.
type StateConflictError struct {
	From    Phase
	Trigger Trigger
	To      Phase
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("transition %s --%s--> %s is not allowed", e.From, e.Trigger, e.To)
}

// PersistenceError reports a state snapshot write that failed after retry.
// The in-memory state has been rolled back to the last persisted snapshot.
type PersistenceError struct {
	ProjectID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to persist state for project %s: %v", e.ProjectID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ConnectionError reports a failed send to a single broadcast subscriber.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("subscriber send failed: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// IsNotFound returns true for NotFoundError or a Redis "key not found" error.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf) || errors.Is(err, redis.Nil)
}

// IsValidation returns true if the error is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsStateConflict returns true if the error is a StateConflictError.
func IsStateConflict(err error) bool {
	var sc *StateConflictError
	return errors.As(err, &sc)
}

// IsPersistence returns true if the error is a PersistenceError.
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
