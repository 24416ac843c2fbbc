/*
errors.go - Centralized error taxonomy for the engine

PURPOSE:
  All sentinel errors in one place. Domain packages wrap these with
  structured errors carrying context (which periods overlap, how much a
  payment would overshoot) while still unwrapping to a sentinel so the
  boundary layer can classify with errors.Is.

ERROR CATEGORIES:
  1. Lookup errors   - entity absent or outside the caller's school scope
  2. Conflict errors - uniqueness constraints, optimistic-lock conflicts
  3. Validation      - business rule violations owned by the engine

USAGE:
  if errors.Is(err, core.ErrExceedsBalance) { ... }
*/
package core

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned when a referenced entity does not exist or
	// belongs to a different school. The two cases are deliberately
	// indistinguishable: cross-tenant probing must look like absence.
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned for malformed or rule-violating input that
	// the engine owns (negative amounts, bad salary month, missing variant
	// fields).
	ErrValidation = errors.New("validation failed")

	// ErrInvalidTimeFormat is returned when a period time is not HH:MM.
	ErrInvalidTimeFormat = errors.New("time must be in HH:MM format")

	// ErrOverlappingPeriods is returned when two periods in one day's
	// schedule overlap in time.
	ErrOverlappingPeriods = errors.New("periods cannot overlap")

	// ErrExceedsBalance is returned when a recorded payment would push
	// paidAmount past the amount owed.
	ErrExceedsBalance = errors.New("payment amount exceeds remaining balance")

	// ErrConcurrentModification is returned when the optimistic-concurrency
	// write on a payment keeps losing the race. Safe to retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrDuplicateSchedule is returned when a schedule already exists for
	// the same (school, class, day, academic year).
	ErrDuplicateSchedule = errors.New("schedule already exists for this class and day")

	// ErrDuplicateFeeStructure is returned when a fee structure with the
	// same name already exists for the class and academic year.
	ErrDuplicateFeeStructure = errors.New("fee structure already exists for this class")

	// ErrDuplicatePayment is returned when an obligation already exists:
	// a fee payment for (school, student, fee structure) or a salary
	// payment for (school, teacher, salary month).
	ErrDuplicatePayment = errors.New("payment record already exists")

	// ErrDuplicateSchool is returned when a school id collides.
	ErrDuplicateSchool = errors.New("school id already exists")
)

// =============================================================================
// CLASSIFICATION HELPERS
// =============================================================================

// IsNotFound reports whether the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether the error is a uniqueness or concurrency
// conflict (HTTP 409 territory).
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateSchedule) ||
		errors.Is(err, ErrDuplicateFeeStructure) ||
		errors.Is(err, ErrDuplicatePayment) ||
		errors.Is(err, ErrDuplicateSchool) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsClientError reports whether the error is the caller's fault (HTTP 4xx).
// Storage and connectivity failures are not client errors.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidTimeFormat) ||
		errors.Is(err, ErrOverlappingPeriods) ||
		errors.Is(err, ErrExceedsBalance) ||
		IsNotFound(err) ||
		IsConflict(err)
}

// IsRetryable reports whether the operation might succeed if retried as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
