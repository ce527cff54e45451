/*
refund.go - Cancellation refund resolution

PURPOSE:
  Resolves the refund owed when a booking is cancelled, from a tiered schedule
  keyed by hours before the event start.

TIERS (evaluated top-down, first match wins, boundaries inclusive):
  hours >= 24         Cancellation24hRefund   (default 100%)
  12 <= hours < 24    Cancellation12hRefund   (default 50%)
  hours < 12          CancellationLateRefund  (default 0%)

STATE RULES:
  Only PENDING and CONFIRMED bookings can be cancelled. COMPLETED, NO_SHOW and
  CANCELLED return a StateError. A cancellation after the event start returns
  a CancellationTimingError: that booking is a no-show, not a cancellation.

AMOUNT:
  refund = round(FinalAmount * percent / 100). FinalAmount is what the customer
  owes, so an admin override is what gets refunded against.

IDEMPOTENCY:
  None here. The booking service serializes cancellations with a version check
  so a refund is recorded exactly once.
*/
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	topTierThreshold    = 24 * time.Hour
	middleTierThreshold = 12 * time.Hour
)

// ResolveRefundTier picks the tier for the time left before the event.
func ResolveRefundTier(untilEvent time.Duration, settings BookingSettings) (RefundTier, decimal.Decimal) {
	switch {
	case untilEvent >= topTierThreshold:
		return Tier24h, settings.Cancellation24hRefund
	case untilEvent >= middleTierThreshold:
		return Tier12h, settings.Cancellation12hRefund
	default:
		return TierLate, settings.CancellationLateRefund
	}
}

// ComputeRefund resolves the cancellation record for a booking cancelled at
// cancelledAt. It has no side effects.
func ComputeRefund(b BookingSnapshot, settings BookingSettings, cancelledAt time.Time, reason string) (*CancellationRecord, error) {
	if !b.Status.Cancellable() {
		return nil, &StateError{Status: b.Status, Action: "cancel"}
	}
	if cancelledAt.After(b.EventStart) {
		return nil, &CancellationTimingError{EventStart: b.EventStart, CancelledAt: cancelledAt}
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	untilEvent := b.EventStart.Sub(cancelledAt)
	tier, percent := ResolveRefundTier(untilEvent, settings)

	hours := decimal.NewFromInt(int64(untilEvent)).Div(decimal.NewFromInt(int64(time.Hour))).Round(2)

	return &CancellationRecord{
		Reason:           reason,
		Tier:             tier,
		HoursBeforeEvent: hours,
		RefundPercent:    percent,
		RefundAmount:     RoundUnit(PercentOf(b.FinalAmount, percent)),
		CancelledAt:      cancelledAt,
	}, nil
}
