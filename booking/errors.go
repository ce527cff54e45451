package booking

import (
	"errors"
	"fmt"

	"github.com/tidewater/charter-engine/pricing"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrBoatNotFound           = errors.New("boat not found")
	ErrConcurrentModification = errors.New("booking was modified concurrently")
	ErrInvalidBooking         = errors.New("invalid booking")
	ErrInvalidTransition      = errors.New("invalid booking transition")

	// ErrSlotUnavailable is returned when the boat is already booked for an
	// overlapping window, turnaround buffer included.
	ErrSlotUnavailable = errors.New("slot unavailable")
)

// TransitionError names the move that the booking's status does not allow.
type TransitionError struct {
	From   pricing.BookingStatus
	Action string
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("cannot %s booking in state %s: %s", e.Action, e.From, e.Reason)
	}
	return fmt.Sprintf("cannot %s booking in state %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidBooking, fmt.Sprintf(format, args...))
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidBooking) || pricing.IsClientError(err)
}

// IsNotFound returns true for a missing booking, boat or rule.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrBoatNotFound)
}

// IsConflict returns true for state conflicts and lost version races.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrSlotUnavailable) ||
		pricing.IsConflict(err)
}
