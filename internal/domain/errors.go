package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Common domain errors that can occur while tallying and scoring.
var (
	// ErrNoRecords indicates that aggregation was asked to tally an empty
	// set of vote records.
	ErrNoRecords = errors.New("no vote records")

	// ErrChoiceMismatch indicates that a precinct does not report every
	// choice reported by the other precincts of the same ContestCounty.
	// Tallying such data would break the equal-length series invariant.
	ErrChoiceMismatch = errors.New("choice set mismatch across precincts")

	// ErrForeignRecord indicates that a record passed to aggregation belongs
	// to a different ContestCounty than the one being tallied.
	ErrForeignRecord = errors.New("record belongs to another contest/county")

	// ErrNegativeVotes indicates a vote total below zero.
	ErrNegativeVotes = errors.New("negative vote total")

	// ErrInvalidConfiguration indicates that a policy is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// IntegrityError reports a data-integrity fault found while tallying a
// ContestCounty. It is fatal for that unit and is deliberately distinct from
// the silent eligibility and threshold exclusions.
type IntegrityError struct {
	// Key is the ContestCounty whose records are inconsistent.
	Key ContestCounty

	// Precinct is the precinct where the fault was detected.
	Precinct string

	// Missing lists the choices the precinct failed to report.
	Missing []string

	// Suggestions maps a missing choice to a similarly spelled choice that
	// the precinct did report, when one exists.
	Suggestions map[string]string

	// Err is the underlying sentinel error.
	Err error
}

// Error implements the error interface for IntegrityError.
func (e *IntegrityError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "integrity error: key=%s, precinct=%q, err=%v", e.Key, e.Precinct, e.Err)
	if len(e.Missing) > 0 {
		fmt.Fprintf(&b, ", missing=%q", e.Missing)
	}
	for _, m := range e.Missing {
		if s, ok := e.Suggestions[m]; ok {
			fmt.Fprintf(&b, ", %q looks like %q", m, s)
		}
	}
	return b.String()
}

// Unwrap returns the underlying error, supporting errors.Is and errors.As.
func (e *IntegrityError) Unwrap() error { return e.Err }

// NewIntegrityError creates a new IntegrityError with the given details.
func NewIntegrityError(key ContestCounty, precinct string, err error) *IntegrityError {
	return &IntegrityError{
		Key:      key,
		Precinct: precinct,
		Err:      err,
	}
}

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// Unwrap lets callers match validation failures with ErrInvalidConfiguration.
func (e *ValidationError) Unwrap() error { return ErrInvalidConfiguration }

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}
