package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ADMIN OVERRIDE - A billing annotation layered over the computed total
// =============================================================================

// ResolveFinalAmount returns the override when present and non-negative,
// otherwise the computed total. A negative override returns the total together
// with ErrInvalidOverride.
func ResolveFinalAmount(total decimal.Decimal, override *decimal.Decimal) (decimal.Decimal, error) {
	if override == nil {
		return total, nil
	}
	if override.IsNegative() {
		return total, fmt.Errorf("%w: %s", ErrInvalidOverride, override.String())
	}
	return *override, nil
}

// ApplyOverride returns a copy of bd with the override layered on top.
//
// TotalAmount, the tax figures and every line are left as computed. Only
// AdminOverrideAmount, FinalAmount and the payment split (which follows the
// amount actually owed) change. A nil override clears a previous one. A
// negative override is rejected: the total is used and a warning is added.
func ApplyOverride(bd PricingBreakdown, override *decimal.Decimal) PricingBreakdown {
	out := bd
	out.Warnings = make([]Warning, 0, len(bd.Warnings)+1)
	for _, w := range bd.Warnings {
		if w.Code != WarnInvalidOverride {
			out.Warnings = append(out.Warnings, w)
		}
	}

	final, err := ResolveFinalAmount(bd.TotalAmount, override)
	if err != nil {
		out.AdminOverrideAmount = nil
		out.Warnings = append(out.Warnings, Warning{
			Code:    WarnInvalidOverride,
			Message: fmt.Sprintf("override %s rejected; computed total used", override.String()),
		})
	} else if override != nil {
		out.AdminOverrideAmount = decimalPtr(*override)
	} else {
		out.AdminOverrideAmount = nil
	}

	out.FinalAmount = final
	out.Payment = SplitPayment(final, bd.Payment.AdvancePercent, bd.Payment.RemainderDueBeforeDays, bd.EventStart)
	return out
}
