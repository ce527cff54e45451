/*
Package pricing is the price and refund computation engine for charter bookings.

PURPOSE:
  Resolves the chargeable amount of a booking from a base price, the pricing
  rules in effect at the event start, selected add-ons, GST and an optional
  admin override. Resolves the refund owed when a booking is cancelled.

KEY CONCEPTS IN THIS FILE (types.go):
  - AddOn / AddOnLine: catalog extras and the priced lines copied into a booking
  - PricingBreakdown: the full decomposition attached to a booking
  - BookingSettings: operator settings, passed explicitly into every call
  - CancellationRecord: the refund result, created once at cancellation

DESIGN PRINCIPLES:
  1. Purity: no I/O and no package state. Inputs are fetched once by the caller.
  2. Precision: decimal.Decimal everywhere, rounded half-up to whole currency
     units only at the final figures.
  3. Auditability: the admin override is layered on top of the computed total,
     which is always kept.

DATA FLOW:
  rules -> Match -> AdjustRate -> (+ CalculateAddOns) -> CalculateTax
        -> ApplyOverride -> SplitPayment -> PricingBreakdown

  ComputeRefund runs on its own at cancellation time, against FinalAmount.

SEE ALSO:
  - rule.go: PricingRule and its condition variants
  - engine.go: ComputePricing
  - refund.go: ComputeRefund
*/
package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RuleID string
type AddOnID string

// =============================================================================
// ADD-ONS
// =============================================================================

// PriceType says whether an add-on is charged once or once per guest.
type PriceType string

const (
	PriceFixed     PriceType = "FIXED"
	PricePerPerson PriceType = "PER_PERSON"
)

// AddOn is an optional extra defined on a boat's catalog entry.
type AddOn struct {
	ID        AddOnID         `json:"id"`
	Type      string          `json:"type"`
	Label     string          `json:"label"`
	Price     decimal.Decimal `json:"price"`
	PriceType PriceType       `json:"price_type"`
}

// AddOnSelection is a customer's pick from the catalog.
// Quantity is informational for FIXED items and defaults to 1.
type AddOnSelection struct {
	AddOnID  AddOnID `json:"add_on_id"`
	Quantity int     `json:"quantity,omitempty"`
}

// AddOnLine is a priced add-on. Lines are copied into the booking so later
// catalog edits never change historical bookings.
type AddOnLine struct {
	AddOnID   AddOnID         `json:"add_on_id"`
	Type      string          `json:"type"`
	Name      string          `json:"name"`
	PriceType PriceType       `json:"price_type"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// =============================================================================
// BREAKDOWN - Computed, attached to a booking
// =============================================================================

// AppliedAdjustment records one matched rule's effect on the running price.
type AppliedAdjustment struct {
	RuleID      RuleID          `json:"rule_id"`
	Name        string          `json:"name"`
	Type        RuleType        `json:"type"`
	Priority    int             `json:"priority"`
	Percent     decimal.Decimal `json:"percent"`
	PriceBefore decimal.Decimal `json:"price_before"`
	PriceAfter  decimal.Decimal `json:"price_after"`
	Clamped     bool            `json:"clamped,omitempty"`
}

// PaymentSplit divides the amount owed into an advance and a remainder.
// Remainder is derived, never rounded on its own: Advance + Remainder is
// always exactly the split amount.
type PaymentSplit struct {
	AdvancePercent         decimal.Decimal `json:"advance_percent"`
	RemainderDueBeforeDays int             `json:"remainder_due_before_days"`
	Advance                decimal.Decimal `json:"advance"`
	Remainder              decimal.Decimal `json:"remainder"`
	RemainderDueAt         *time.Time      `json:"remainder_due_at,omitempty"`
}

// PricingBreakdown is the full decomposition of a booking's price.
//
// FinalAmount is always populated. AdminOverrideAmount is an annotation:
// TotalAmount, the tax figures and every line keep their computed values.
//
// Subtotal is unrounded while GSTAmount and TotalAmount are each rounded from
// exact figures, so Subtotal + GSTAmount can be off from TotalAmount by less
// than one unit.
type PricingBreakdown struct {
	EventStart        time.Time           `json:"event_start"`
	BasePrice         decimal.Decimal     `json:"base_price"`
	Adjustments       []AppliedAdjustment `json:"adjustments"`
	AdjustedBasePrice decimal.Decimal     `json:"adjusted_base_price"`
	AddOns            []AddOnLine         `json:"add_ons"`
	AddOnsTotal       decimal.Decimal     `json:"add_ons_total"`
	Subtotal          decimal.Decimal     `json:"subtotal"`
	GuestCount        int                 `json:"guest_count"`

	GSTPercent   decimal.Decimal  `json:"gst_percent"`
	GSTInclusive bool             `json:"gst_inclusive"`
	GSTAmount    decimal.Decimal  `json:"gst_amount"`
	CGST         *decimal.Decimal `json:"cgst,omitempty"`
	SGST         *decimal.Decimal `json:"sgst,omitempty"`
	TotalAmount  decimal.Decimal  `json:"total_amount"`

	AdminOverrideAmount *decimal.Decimal `json:"admin_override_amount"`
	FinalAmount         decimal.Decimal  `json:"final_amount"`
	Payment             PaymentSplit     `json:"payment"`

	Provisional  bool      `json:"provisional"`
	PriceClamped bool      `json:"price_clamped"`
	Warnings     []Warning `json:"warnings"`
}

// Err joins the sentinel errors behind the breakdown's warnings, so callers
// can check errors.Is(bd.Err(), ErrNegativePriceClamped). Nil when clean.
func (b PricingBreakdown) Err() error {
	var errs []error
	for _, w := range b.Warnings {
		if err := w.sentinel(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HasWarning reports whether the breakdown carries a warning with the code.
func (b PricingBreakdown) HasWarning(code WarningCode) bool {
	for _, w := range b.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

// =============================================================================
// WARNINGS - Non-fatal outcomes returned alongside a breakdown
// =============================================================================

type WarningCode string

const (
	WarnNegativePriceClamped  WarningCode = "negative_price_clamped"
	WarnInvalidOverride       WarningCode = "invalid_override"
	WarnProvisionalGuestCount WarningCode = "provisional_guest_count"
	WarnDefaultWeekendDays    WarningCode = "default_weekend_days"
)

type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
	RuleID  RuleID      `json:"rule_id,omitempty"`
}

func (w Warning) sentinel() error {
	switch w.Code {
	case WarnNegativePriceClamped:
		return ErrNegativePriceClamped
	case WarnInvalidOverride:
		return ErrInvalidOverride
	default:
		return nil
	}
}

// =============================================================================
// CANCELLATION
// =============================================================================

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCompleted BookingStatus = "COMPLETED"
	StatusNoShow    BookingStatus = "NO_SHOW"
	StatusCancelled BookingStatus = "CANCELLED"
)

// Cancellable reports whether a booking in this state may be cancelled.
func (s BookingStatus) Cancellable() bool {
	return s == StatusPending || s == StatusConfirmed
}

// RefundTier names the band of the cancellation schedule that applied.
type RefundTier string

const (
	Tier24h  RefundTier = "24h"
	Tier12h  RefundTier = "12h"
	TierLate RefundTier = "late"
)

// BookingSnapshot is what the refund resolver needs to know about a booking.
type BookingSnapshot struct {
	Status      BookingStatus
	EventStart  time.Time
	FinalAmount decimal.Decimal
}

// CancellationRecord is created once, at cancellation, and never changed.
type CancellationRecord struct {
	Reason           string          `json:"reason"`
	Tier             RefundTier      `json:"tier"`
	HoursBeforeEvent decimal.Decimal `json:"hours_before_event"`
	RefundPercent    decimal.Decimal `json:"refund_percent"`
	RefundAmount     decimal.Decimal `json:"refund_amount"`
	CancelledAt      time.Time       `json:"cancelled_at"`
}

// =============================================================================
// HELPERS
// =============================================================================

// RoundUnit rounds to the nearest whole currency unit, half up.
// Amounts reaching it are never negative, so decimal's half-away-from-zero
// rounding is half-up here.
func RoundUnit(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// PercentOf returns amount * percent / 100 without rounding.
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }
