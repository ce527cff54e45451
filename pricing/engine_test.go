package pricing_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidewater/charter-engine/pricing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// saturdayMorning is 2025-06-14 10:00 UTC, a Saturday.
func saturdayMorning() time.Time { return time.Date(2025, time.June, 14, 10, 0, 0, 0, time.UTC) }

// wednesdayMorning is 2025-06-18 10:00 UTC.
func wednesdayMorning() time.Time { return time.Date(2025, time.June, 18, 10, 0, 0, 0, time.UTC) }

func exclusiveSettings(advance string) pricing.BookingSettings {
	s := pricing.DefaultSettings()
	s.GSTPercent = dec("18")
	s.GSTInclusive = false
	s.AdvancePercent = dec(advance)
	return s
}

func weekendRule(percent string) pricing.PricingRule {
	return pricing.PricingRule{
		ID:                "weekend",
		Name:              "Weekend",
		Type:              pricing.RuleWeekend,
		AdjustmentPercent: dec(percent),
		Priority:          10,
		IsActive:          true,
		Conditions:        pricing.DaySet{time.Saturday, time.Sunday},
	}
}

func assertDec(t *testing.T, want string, got decimal.Decimal, msg ...any) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s %v", want, got, msg)
}

// =============================================================================
// WORKED EXAMPLES
// =============================================================================

func TestComputePricing_WeekendSurcharge_WorkedExample(t *testing.T) {
	// GIVEN: base 50,000, weekend +10%, GST 18% exclusive, 50% advance
	// WHEN: pricing a Saturday booking with no add-ons
	// THEN: 55,000 adjusted, 9,900 GST, 64,900 total, 32,450 / 32,450 split

	bd, err := pricing.ComputePricing(pricing.PricingInput{
		BasePrice:  dec("50000"),
		EventStart: saturdayMorning(),
		GuestCount: 8,
	}, []pricing.PricingRule{weekendRule("10")}, exclusiveSettings("50"))
	require.NoError(t, err)

	assertDec(t, "55000", bd.AdjustedBasePrice)
	assertDec(t, "0", bd.AddOnsTotal)
	assertDec(t, "55000", bd.Subtotal)
	assertDec(t, "9900", bd.GSTAmount)
	assertDec(t, "64900", bd.TotalAmount)
	assertDec(t, "64900", bd.FinalAmount)
	assertDec(t, "32450", bd.Payment.Advance)
	assertDec(t, "32450", bd.Payment.Remainder)
	assertDec(t, "4950", *bd.CGST)
	assertDec(t, "4950", *bd.SGST)
	assert.Nil(t, bd.AdminOverrideAmount)
	require.Len(t, bd.Adjustments, 1)
	assert.Equal(t, pricing.RuleID("weekend"), bd.Adjustments[0].RuleID)
	assert.NoError(t, bd.Err())
}

func TestComputePricing_WeekdayBooking_RuleDoesNotMatch(t *testing.T) {
	bd, err := pricing.ComputePricing(pricing.PricingInput{
		BasePrice:  dec("50000"),
		EventStart: wednesdayMorning(),
		GuestCount: 8,
	}, []pricing.PricingRule{weekendRule("10")}, exclusiveSettings("100"))
	require.NoError(t, err)

	assert.Empty(t, bd.Adjustments)
	assertDec(t, "50000", bd.AdjustedBasePrice)
	assertDec(t, "59000", bd.TotalAmount)
	assertDec(t, "59000", bd.Payment.Advance)
	assertDec(t, "0", bd.Payment.Remainder)
	assert.Nil(t, bd.Payment.RemainderDueAt)
}

func TestComputePricing_WithAddOns(t *testing.T) {
	// GIVEN: 10 guests, a fixed decoration package and per-person catering
	catalog := []pricing.AddOn{
		{ID: "deco", Type: "decoration", Label: "Decoration", Price: dec("2500"), PriceType: pricing.PriceFixed},
		{ID: "food", Type: "catering", Label: "Dinner", Price: dec("450"), PriceType: pricing.PricePerPerson},
	}

	bd, err := pricing.ComputePricing(pricing.PricingInput{
		BasePrice:  dec("20000"),
		EventStart: wednesdayMorning(),
		GuestCount: 10,
		Catalog:    catalog,
		Selected:   []pricing.AddOnSelection{{AddOnID: "deco", Quantity: 3}, {AddOnID: "food"}},
	}, nil, exclusiveSettings("30"))
	require.NoError(t, err)

	// THEN: 2,500 once + 450 * 10 = 7,000 add-ons; subtotal 27,000; GST 4,860
	require.Len(t, bd.AddOns, 2)
	assert.Equal(t, 3, bd.AddOns[0].Quantity, "fixed quantity is informational")
	assertDec(t, "2500", bd.AddOns[0].LineTotal)
	assert.Equal(t, 10, bd.AddOns[1].Quantity)
	assertDec(t, "4500", bd.AddOns[1].LineTotal)
	assertDec(t, "7000", bd.AddOnsTotal)
	assertDec(t, "27000", bd.Subtotal)
	assertDec(t, "4860", bd.GSTAmount)
	assertDec(t, "31860", bd.TotalAmount)
	assertDec(t, "9558", bd.Payment.Advance)
	assertDec(t, "22302", bd.Payment.Remainder)
	assert.False(t, bd.Provisional)
}

func TestComputePricing_UnknownGuestCount_ProvisionalAddOns(t *testing.T) {
	// GIVEN: guest count not known yet, boat minimum capacity 6
	// WHEN: a per-person add-on is selected
	// THEN: priced for 6 guests and marked provisional

	catalog := []pricing.AddOn{
		{ID: "food", Label: "Lunch", Price: dec("300"), PriceType: pricing.PricePerPerson},
	}
	bd, err := pricing.ComputePricing(pricing.PricingInput{
		BasePrice:   dec("10000"),
		EventStart:  wednesdayMorning(),
		MinCapacity: 6,
		Catalog:     catalog,
		Selected:    []pricing.AddOnSelection{{AddOnID: "food"}},
	}, nil, exclusiveSettings("100"))
	require.NoError(t, err)

	assert.True(t, bd.Provisional)
	assert.True(t, bd.HasWarning(pricing.WarnProvisionalGuestCount))
	assert.Equal(t, 6, bd.AddOns[0].Quantity)
	assertDec(t, "1800", bd.AddOnsTotal)
}

func TestComputePricing_UnknownAddOn_Rejected(t *testing.T) {
	_, err := pricing.ComputePricing(pricing.PricingInput{
		BasePrice:  dec("10000"),
		EventStart: wednesdayMorning(),
		Selected:   []pricing.AddOnSelection{{AddOnID: "jetski"}},
	}, nil, exclusiveSettings("100"))

	assert.ErrorIs(t, err, pricing.ErrUnknownAddOn)
	assert.True(t, pricing.IsClientError(err))
}

func TestComputePricing_InvalidInputs(t *testing.T) {
	settings := exclusiveSettings("100")

	_, err := pricing.ComputePricing(pricing.PricingInput{BasePrice: dec("-1"), EventStart: wednesdayMorning()}, nil, settings)
	assert.ErrorIs(t, err, pricing.ErrInvalidInput)

	_, err = pricing.ComputePricing(pricing.PricingInput{BasePrice: dec("100")}, nil, settings)
	assert.ErrorIs(t, err, pricing.ErrInvalidInput, "event start is required")

	bad := settings
	bad.Cancellation12hRefund = dec("150")
	_, err = pricing.ComputePricing(pricing.PricingInput{BasePrice: dec("100"), EventStart: wednesdayMorning()}, nil, bad)
	assert.ErrorIs(t, err, pricing.ErrInvalidSettings)
}

// =============================================================================
// CLAMPING AND OVERRIDE
// =============================================================================

func TestComputePricing_DiscountChainBelowZero_ClampedWithWarning(t *testing.T) {
	// GIVEN: a -150% special that would make the price negative
	rules := []pricing.PricingRule{
		{
			ID: "bad-promo", Type: pricing.RuleSpecial, AdjustmentPercent: dec("-150"),
			Priority: 1, IsActive: true,
			Conditions: pricing.Special{Days: pricing.DaySet{time.Wednesday}},
		},
	}

	bd, err := pricing.ComputePricing(pricing.PricingInput{
		BasePrice:  dec("40000"),
		EventStart: wednesdayMorning(),
		GuestCount: 4,
	}, rules, exclusiveSettings("50"))

	// THEN: not an error; price clamped to zero and flagged
	require.NoError(t, err)
	assert.True(t, bd.PriceClamped)
	assertDec(t, "0", bd.AdjustedBasePrice)
	assertDec(t, "0", bd.TotalAmount)
	assert.True(t, bd.Adjustments[0].Clamped)
	assert.ErrorIs(t, bd.Err(), pricing.ErrNegativePriceClamped)
}

func TestComputePricing_AdminOverride_KeepsComputedTotal(t *testing.T) {
	bd, err := pricing.ComputePricing(pricing.PricingInput{
		BasePrice:           dec("50000"),
		EventStart:          saturdayMorning(),
		GuestCount:          8,
		AdminOverrideAmount: decPtr("60000"),
	}, []pricing.PricingRule{weekendRule("10")}, exclusiveSettings("50"))
	require.NoError(t, err)

	assertDec(t, "64900", bd.TotalAmount, "computed total stays for audit")
	assertDec(t, "9900", bd.GSTAmount)
	require.NotNil(t, bd.AdminOverrideAmount)
	assertDec(t, "60000", *bd.AdminOverrideAmount)
	assertDec(t, "60000", bd.FinalAmount)
	assertDec(t, "30000", bd.Payment.Advance)
	assertDec(t, "30000", bd.Payment.Remainder)
}

func TestComputePricing_NegativeOverride_RejectedTotalUsed(t *testing.T) {
	bd, err := pricing.ComputePricing(pricing.PricingInput{
		BasePrice:           dec("50000"),
		EventStart:          saturdayMorning(),
		GuestCount:          8,
		AdminOverrideAmount: decPtr("-5"),
	}, []pricing.PricingRule{weekendRule("10")}, exclusiveSettings("50"))
	require.NoError(t, err)

	assert.Nil(t, bd.AdminOverrideAmount)
	assertDec(t, "64900", bd.FinalAmount)
	assert.True(t, bd.HasWarning(pricing.WarnInvalidOverride))
	assert.ErrorIs(t, bd.Err(), pricing.ErrInvalidOverride)
}

func TestApplyOverride_ClearingRestoresTotal(t *testing.T) {
	bd, err := pricing.ComputePricing(pricing.PricingInput{
		BasePrice:           dec("50000"),
		EventStart:          saturdayMorning(),
		AdminOverrideAmount: decPtr("-5"),
	}, nil, exclusiveSettings("50"))
	require.NoError(t, err)

	overridden := pricing.ApplyOverride(*bd, decPtr("45000"))
	assertDec(t, "45000", overridden.FinalAmount)
	assert.False(t, overridden.HasWarning(pricing.WarnInvalidOverride), "stale override warning dropped")

	cleared := pricing.ApplyOverride(overridden, nil)
	assert.Nil(t, cleared.AdminOverrideAmount)
	assertDec(t, "59000", cleared.FinalAmount)
	assertDec(t, "59000", cleared.Payment.Advance.Add(cleared.Payment.Remainder))

	// the input breakdown is not mutated
	require.NotNil(t, overridden.AdminOverrideAmount)
	assertDec(t, "45000", *overridden.AdminOverrideAmount)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestComputePricing_Idempotent_IdenticalJSON(t *testing.T) {
	catalog := []pricing.AddOn{
		{ID: "food", Label: "Lunch", Price: dec("333.33"), PriceType: pricing.PricePerPerson},
	}
	in := pricing.PricingInput{
		BasePrice:  dec("12345.67"),
		EventStart: saturdayMorning(),
		GuestCount: 7,
		Catalog:    catalog,
		Selected:   []pricing.AddOnSelection{{AddOnID: "food"}},
	}
	rules := []pricing.PricingRule{weekendRule("12.5")}
	settings := exclusiveSettings("40")

	first, err := pricing.ComputePricing(in, rules, settings)
	require.NoError(t, err)
	second, err := pricing.ComputePricing(in, rules, settings)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestComputePricing_PriorityOrder_ShowsInTrail(t *testing.T) {
	// GIVEN: +10% and -10% matching together
	// WHEN: priorities are swapped
	// THEN: the step trail differs (each step prices the previous result);
	//       the exact final product is the same either way

	surcharge := pricing.PricingRule{
		ID: "peak", Type: pricing.RulePeakHours, AdjustmentPercent: dec("10"), IsActive: true,
		Conditions: pricing.TimeWindow{Start: pricing.NewClockTime(9, 0), End: pricing.NewClockTime(12, 0)},
	}
	discount := pricing.PricingRule{
		ID: "midweek", Type: pricing.RuleSpecial, AdjustmentPercent: dec("-10"), IsActive: true,
		Conditions: pricing.Special{Days: pricing.DaySet{time.Wednesday}},
	}

	price := func(surchargePriority, discountPriority int) *pricing.PricingBreakdown {
		s, d := surcharge, discount
		s.Priority, d.Priority = surchargePriority, discountPriority
		bd, err := pricing.ComputePricing(pricing.PricingInput{
			BasePrice: dec("50000"), EventStart: wednesdayMorning(),
		}, []pricing.PricingRule{d, s}, exclusiveSettings("100"))
		require.NoError(t, err)
		return bd
	}

	surchargeFirst := price(20, 10)
	discountFirst := price(10, 20)

	require.Len(t, surchargeFirst.Adjustments, 2)
	assert.Equal(t, pricing.RuleID("peak"), surchargeFirst.Adjustments[0].RuleID)
	assertDec(t, "55000", surchargeFirst.Adjustments[0].PriceAfter)
	assertDec(t, "49500", surchargeFirst.Adjustments[1].PriceAfter)

	assert.Equal(t, pricing.RuleID("midweek"), discountFirst.Adjustments[0].RuleID)
	assertDec(t, "45000", discountFirst.Adjustments[0].PriceAfter)
	assertDec(t, "49500", discountFirst.Adjustments[1].PriceAfter)

	assert.NotEqual(t,
		surchargeFirst.Adjustments[0].PriceAfter.String(),
		discountFirst.Adjustments[0].PriceAfter.String())
}

func TestSplitPayment_AlwaysSumsToAmount(t *testing.T) {
	amounts := []string{"0", "1", "64900", "64901", "99999", "123457", "7"}
	percents := []string{"0", "10", "33", "33.33", "50", "66.67", "99", "100"}

	for _, a := range amounts {
		for _, p := range percents {
			split := pricing.SplitPayment(dec(a), dec(p), 7, saturdayMorning())
			sum := split.Advance.Add(split.Remainder)
			assert.True(t, sum.Equal(dec(a)), "amount %s at %s%%: %s + %s", a, p, split.Advance, split.Remainder)
			assert.True(t, split.Advance.Equal(split.Advance.Round(0)), "advance is whole units")
		}
	}
}

func TestSplitPayment_RemainderDueDate(t *testing.T) {
	split := pricing.SplitPayment(dec("1000"), dec("25"), 3, saturdayMorning())

	require.NotNil(t, split.RemainderDueAt)
	assert.Equal(t, time.Date(2025, time.June, 11, 10, 0, 0, 0, time.UTC), *split.RemainderDueAt)
}

func TestBreakdownErr_NilWhenClean(t *testing.T) {
	var bd pricing.PricingBreakdown
	bd.Warnings = []pricing.Warning{{Code: pricing.WarnProvisionalGuestCount}}

	assert.NoError(t, bd.Err())
	assert.False(t, errors.Is(bd.Err(), pricing.ErrNegativePriceClamped))
}
