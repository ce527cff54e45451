/*
errors.go - Centralized error types for the pricing engine

PURPOSE:
  All error types in one place. Every error the engine produces is returned
  to the caller, which translates it into a user-facing message. Nothing that
  would change the amount charged is logged and skipped.

ERROR CATEGORIES:
  1. Rule errors - malformed rule conditions the engine refuses to evaluate
  2. Input errors - bad base price, add-on selection or settings
  3. Cancellation errors - wrong booking state or cancelling after the event
  4. Warnings - clamped price and rejected override travel on the breakdown
     (see PricingBreakdown.Err) instead of failing the computation

USAGE:
  if errors.Is(err, pricing.ErrNonCancellableState) {
      var se *pricing.StateError
      errors.As(err, &se) // se.Status
  }
*/
package pricing

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRuleCondition is returned when an active rule's conditions do
	// not fit its type, a date range ends before it starts, or a SPECIAL rule
	// has no conditions at all.
	ErrInvalidRuleCondition = errors.New("invalid rule condition")

	// ErrNegativePriceClamped marks a discount chain that drove the adjusted
	// price below zero. It is a warning: the price is clamped to zero.
	ErrNegativePriceClamped = errors.New("adjusted price clamped to zero")

	// ErrNonCancellableState is returned when cancelling a booking that is not
	// PENDING or CONFIRMED.
	ErrNonCancellableState = errors.New("booking cannot be cancelled in its current state")

	// ErrCancellationAfterEvent is returned when cancelledAt is after the event start.
	ErrCancellationAfterEvent = errors.New("cancellation after event start")

	// ErrInvalidOverride marks a negative admin override. The computed total is used.
	ErrInvalidOverride = errors.New("invalid admin override amount")

	ErrUnknownAddOn    = errors.New("unknown add-on")
	ErrInvalidAddOn    = errors.New("invalid add-on")
	ErrInvalidSettings = errors.New("invalid booking settings")
	ErrInvalidInput    = errors.New("invalid pricing input")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RuleConditionError names the rule that could not be evaluated.
type RuleConditionError struct {
	RuleID RuleID
	Type   RuleType
	Reason string
}

func (e *RuleConditionError) Error() string {
	return fmt.Sprintf("invalid rule condition: rule %s (%s): %s", e.RuleID, e.Type, e.Reason)
}

func (e *RuleConditionError) Unwrap() error { return ErrInvalidRuleCondition }

// StateError carries the booking status that blocked a transition.
type StateError struct {
	Status BookingStatus
	Action string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s a booking in state %s", e.Action, e.Status)
}

func (e *StateError) Unwrap() error { return ErrNonCancellableState }

// CancellationTimingError is returned for a cancellation after the event started.
// A no-show is recorded through the no-show transition instead.
type CancellationTimingError struct {
	EventStart  time.Time
	CancelledAt time.Time
}

func (e *CancellationTimingError) Error() string {
	return fmt.Sprintf("cancellation at %s is after event start %s",
		e.CancelledAt.Format(time.RFC3339), e.EventStart.Format(time.RFC3339))
}

func (e *CancellationTimingError) Unwrap() error { return ErrCancellationAfterEvent }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRuleCondition) ||
		errors.Is(err, ErrInvalidOverride) ||
		errors.Is(err, ErrUnknownAddOn) ||
		errors.Is(err, ErrInvalidAddOn) ||
		errors.Is(err, ErrInvalidSettings) ||
		errors.Is(err, ErrInvalidInput)
}

// IsConflict returns true if the error is a booking state conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrNonCancellableState) ||
		errors.Is(err, ErrCancellationAfterEvent)
}
