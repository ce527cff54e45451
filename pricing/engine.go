package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PRICING ENGINE
// =============================================================================

// PricingInput is the booking side of a price computation.
type PricingInput struct {
	// BasePrice is the unit price from the selected slot or the boat.
	BasePrice decimal.Decimal

	// EventStart is the instant rules are evaluated at.
	EventStart time.Time

	// GuestCount <= 0 while not known yet.
	GuestCount  int
	MinCapacity int

	Catalog  []AddOn
	Selected []AddOnSelection

	AdminOverrideAmount *decimal.Decimal
}

// ComputePricing resolves the full breakdown for a booking.
//
// It is pure: the same input, rules and settings always give an identical
// breakdown. Malformed active rules, bad add-on selections and invalid
// settings are errors. A clamped price or a rejected override is not: they
// come back as warnings on the breakdown.
func ComputePricing(in PricingInput, rules []PricingRule, settings BookingSettings) (*PricingBreakdown, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if in.BasePrice.IsNegative() {
		return nil, fmt.Errorf("%w: base price must not be negative", ErrInvalidInput)
	}
	if in.EventStart.IsZero() {
		return nil, fmt.Errorf("%w: event start required", ErrInvalidInput)
	}

	loc, err := settings.Location()
	if err != nil {
		return nil, err
	}

	// 1. Rules in effect at the event start
	matched, err := Matcher{Location: loc}.Match(in.EventStart, rules)
	if err != nil {
		return nil, err
	}
	warnings := append([]Warning{}, matched.Warnings...)

	// 2. Adjusted unit price
	rate := AdjustRate(in.BasePrice, matched.Rules)
	if rate.Clamped {
		warnings = append(warnings, Warning{
			Code:    WarnNegativePriceClamped,
			Message: "discounts drove the adjusted price below zero; clamped to zero",
		})
	}

	// 3. Add-ons
	addOns, err := CalculateAddOns(AddOnInput{
		Catalog:     in.Catalog,
		Selected:    in.Selected,
		GuestCount:  in.GuestCount,
		MinCapacity: in.MinCapacity,
	})
	if err != nil {
		return nil, err
	}
	if addOns.Provisional {
		warnings = append(warnings, Warning{
			Code:    WarnProvisionalGuestCount,
			Message: fmt.Sprintf("guest count not known; per-person add-ons priced for minimum capacity %d", in.MinCapacity),
		})
	}

	// 4. Tax
	subtotal := rate.Price.Add(addOns.Total)
	tax := CalculateTax(subtotal, settings.GSTPercent, settings.GSTInclusive)

	bd := PricingBreakdown{
		EventStart:        in.EventStart,
		BasePrice:         in.BasePrice,
		Adjustments:       rate.Applied,
		AdjustedBasePrice: rate.Price,
		AddOns:            addOns.Lines,
		AddOnsTotal:       addOns.Total,
		Subtotal:          subtotal,
		GuestCount:        in.GuestCount,
		GSTPercent:        tax.GSTPercent,
		GSTInclusive:      tax.Inclusive,
		GSTAmount:         tax.GSTAmount,
		TotalAmount:       tax.TotalAmount,
		Payment: PaymentSplit{
			AdvancePercent:         settings.AdvancePercent,
			RemainderDueBeforeDays: settings.RemainderDueBeforeDays,
		},
		Provisional:  addOns.Provisional,
		PriceClamped: rate.Clamped,
		Warnings:     warnings,
	}
	if settings.SplitGST {
		bd.CGST = decimalPtr(tax.CGST)
		bd.SGST = decimalPtr(tax.SGST)
	}

	// 5. Override and payment split
	out := ApplyOverride(bd, in.AdminOverrideAmount)
	return &out, nil
}
