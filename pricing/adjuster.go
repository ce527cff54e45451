package pricing

import "github.com/shopspring/decimal"

// =============================================================================
// RATE ADJUSTER - Compounds matched adjustments onto the base rate
// =============================================================================

// RateAdjustment is the adjusted unit price and how it was reached.
type RateAdjustment struct {
	Price   decimal.Decimal
	Applied []AppliedAdjustment
	Clamped bool
}

// AdjustRate applies the rules in order as compounding percentage changes:
//
//	price_i = price_(i-1) * (1 + adjustmentPercent_i / 100)
//
// Each step is priced on the previous step's result, so the order shows in
// the recorded trail (PriceBefore/PriceAfter per rule). Exact products commute,
// so the final figure of a clamp-free chain does not depend on order.
// A step that would go negative is clamped to zero and flagged; zero stays zero.
// Nothing is rounded here; rounding happens at the final amounts.
func AdjustRate(base decimal.Decimal, rules []PricingRule) RateAdjustment {
	price := base
	result := RateAdjustment{Applied: make([]AppliedAdjustment, 0, len(rules))}

	for _, rule := range rules {
		factor := decimal.NewFromInt(1).Add(rule.AdjustmentPercent.Div(hundred))
		next := price.Mul(factor)

		step := AppliedAdjustment{
			RuleID:      rule.ID,
			Name:        rule.Name,
			Type:        rule.Type,
			Priority:    rule.Priority,
			Percent:     rule.AdjustmentPercent,
			PriceBefore: price,
		}
		if next.IsNegative() {
			next = decimal.Zero
			step.Clamped = true
			result.Clamped = true
		}
		step.PriceAfter = next
		result.Applied = append(result.Applied, step)
		price = next
	}

	result.Price = price
	return result
}
