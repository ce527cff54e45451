package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// SplitPayment divides amount into an advance and a remainder.
// Only the advance is rounded; the remainder is amount - advance, so the two
// always add back to amount exactly.
// RemainderDueAt is eventStart minus remainderDueBeforeDays, set only when a
// remainder is owed.
func SplitPayment(amount, advancePercent decimal.Decimal, remainderDueBeforeDays int, eventStart time.Time) PaymentSplit {
	advance := RoundUnit(PercentOf(amount, advancePercent))
	remainder := amount.Sub(advance)

	split := PaymentSplit{
		AdvancePercent:         advancePercent,
		RemainderDueBeforeDays: remainderDueBeforeDays,
		Advance:                advance,
		Remainder:              remainder,
	}
	if remainder.IsPositive() && !eventStart.IsZero() {
		due := eventStart.AddDate(0, 0, -remainderDueBeforeDays)
		split.RemainderDueAt = &due
	}
	return split
}
