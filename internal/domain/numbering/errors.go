package numbering

import "github.com/cockroachdb/errors"

var (
	// ErrInvalidScope is returned when a scope cannot be derived from the input
	ErrInvalidScope = errors.New("invalid numbering scope")

	// ErrDraftMarkerPresent is returned when a number already carrying the
	// draft marker would be wrapped again
	ErrDraftMarkerPresent = errors.New("number already carries the draft marker")

	// ErrManualNumberConflict is returned when a manually supplied number
	// collided and could not be reconciled within the disambiguation budget
	ErrManualNumberConflict = errors.New("manual number conflict")

	// ErrFinalNumberTaken is returned when a candidate collides with a
	// finalized document; finalized numbers are never relocated
	ErrFinalNumberTaken = errors.New("final number already taken")

	// ErrConcurrentNumberingConflict is returned when the transition retry
	// budget is exhausted under contention; the caller may retry
	ErrConcurrentNumberingConflict = errors.New("concurrent numbering conflict")

	// ErrNumberingExhausted is returned when disambiguation could not converge
	ErrNumberingExhausted = errors.New("numbering exhausted")

	// ErrInvalidTransition is returned when a status change is not allowed by
	// the document type's transition graph
	ErrInvalidTransition = errors.New("invalid status transition")
)

// IsInvalidScope checks if an error is a scope validation error
func IsInvalidScope(err error) bool {
	return errors.Is(err, ErrInvalidScope)
}

// IsNumberingExhausted checks if an error is a disambiguation exhaustion error
func IsNumberingExhausted(err error) bool {
	return errors.Is(err, ErrNumberingExhausted)
}

// IsConcurrentConflict checks if an error is a retriable contention error
func IsConcurrentConflict(err error) bool {
	return errors.Is(err, ErrConcurrentNumberingConflict)
}
