package domain

import (
	"errors"
	"fmt"
)

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Lookup errors
	ErrNotFound = errors.New("record not found")

	// Identity validation errors
	ErrInvalidFormat   = errors.New("identity code must be exactly 10 digits")
	ErrInvalidRegion   = errors.New("identity region code out of range")
	ErrInvalidChecksum = errors.New("identity checksum mismatch")

	// Loan state errors
	ErrAlreadyActivated = errors.New("loan already activated")
	ErrMissingPatron    = errors.New("loan has no patron assigned")
	ErrNotReturnable    = errors.New("loan is not in a returnable state")

	// Resource errors
	ErrNoCopiesAvailable = errors.New("no copies available")
	ErrReferentialBlock  = errors.New("record is referenced and cannot be deleted")

	// Notification errors
	ErrNotificationFailed = errors.New("notification delivery failed")
)

// StateError reports an illegal loan state transition, carrying the state
// the loan was actually in.
type StateError struct {
	Code  string    // loan code
	State LoanState // state at the time of the attempt
	Err   error     // ErrAlreadyActivated, ErrNotReturnable or ErrMissingPatron
}

func (e *StateError) Error() string {
	return fmt.Sprintf("loan %s in state %s: %v", e.Code, e.State, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

// ValidationError reports a rejected field on record creation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// ResourceError reports a persistence-boundary refusal, such as an
// exhausted title or a delete blocked by referencing records.
type ResourceError struct {
	Resource string // what was refused, e.g. the title name
	Err      error  // ErrNoCopiesAvailable or ErrReferentialBlock
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Resource, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }
