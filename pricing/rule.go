/*
rule.go - Pricing rules and their type-specific conditions

PURPOSE:
  A PricingRule is a conditional percentage adjustment with a priority and an
  active flag. The rule type decides which condition payload it carries.

CONDITION VARIANTS (closed set, see Conditions):
  TimeWindow  PEAK_HOURS, OFF_PEAK_HOURS   [Start, End) local clock time,
                                           wraps past midnight when End < Start
  DateRange   SEASONAL, HOLIDAY            [Start, End] inclusive calendar dates
  DaySet      WEEKEND                      days of week, empty = {Sat, Sun}
  Special     SPECIAL                      optional DateRange AND optional DaySet;
                                           every populated group must hold

EXAMPLE:
  rule := PricingRule{
      ID:                "weekend",
      Type:              RuleWeekend,
      AdjustmentPercent: decimal.NewFromInt(10),
      Priority:          10,
      IsActive:          true,
      Conditions:        DaySet{time.Saturday, time.Sunday},
  }

SEE ALSO:
  - matcher.go: evaluates conditions at an instant
  - factory/rule.go: JSON rule records <-> PricingRule
*/
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

type RuleType string

const (
	RulePeakHours    RuleType = "PEAK_HOURS"
	RuleOffPeakHours RuleType = "OFF_PEAK_HOURS"
	RuleWeekend      RuleType = "WEEKEND"
	RuleSeasonal     RuleType = "SEASONAL"
	RuleHoliday      RuleType = "HOLIDAY"
	RuleSpecial      RuleType = "SPECIAL"
)

// Valid reports whether t is one of the known rule types.
func (t RuleType) Valid() bool {
	switch t {
	case RulePeakHours, RuleOffPeakHours, RuleWeekend, RuleSeasonal, RuleHoliday, RuleSpecial:
		return true
	}
	return false
}

// PricingRule is a conditional percentage price adjustment.
type PricingRule struct {
	ID   RuleID
	Name string
	Type RuleType

	// AdjustmentPercent is signed: +10 is a 10% surcharge, -15 a 15% discount.
	AdjustmentPercent decimal.Decimal

	// Higher priority is applied first. Ties keep creation order.
	Priority int
	IsActive bool

	Conditions Conditions
	CreatedAt  time.Time
}

// =============================================================================
// CONDITIONS - Tagged union over rule types
// =============================================================================

// Conditions is implemented only by TimeWindow, DateRange, DaySet, Special and
// MalformedConditions.
type Conditions interface {
	conditions()
}

type TimeWindow struct {
	Start ClockTime
	End   ClockTime
}

// DaySet is a set of weekdays (time.Sunday == 0).
type DaySet []time.Weekday

// Special combines an optional date range with an optional day set.
type Special struct {
	Dates *DateRange
	Days  DaySet
}

// MalformedConditions marks a stored rule whose conditions could not be read
// back. It never validates, so the engine refuses to evaluate the rule.
type MalformedConditions struct {
	Reason string
}

func (TimeWindow) conditions() {}
func (DateRange) conditions() {}
func (DaySet) conditions() {}
func (Special) conditions() {}
func (MalformedConditions) conditions() {}

// Contains returns true if the window holds at clock c.
// Overnight windows (End before Start) match c >= Start OR c < End.
func (w TimeWindow) Contains(c ClockTime) bool {
	if w.End.Before(w.Start) {
		return !c.Before(w.Start) || c.Before(w.End)
	}
	return !c.Before(w.Start) && c.Before(w.End)
}

func (s DaySet) Contains(d time.Weekday) bool {
	for _, day := range s {
		if day == d {
			return true
		}
	}
	return false
}

// DefaultWeekendDays is used by a WEEKEND rule whose day set was left empty.
var DefaultWeekendDays = DaySet{time.Sunday, time.Saturday}

// =============================================================================
// VALIDATION
// =============================================================================

// Validate checks the conditions fit the rule type. The admin CRUD validates
// at save time; the engine validates again before evaluating a rule.
func (r PricingRule) Validate() error {
	fail := func(reason string) error {
		return &RuleConditionError{RuleID: r.ID, Type: r.Type, Reason: reason}
	}
	if m, ok := r.Conditions.(MalformedConditions); ok {
		return fail("unreadable conditions: " + m.Reason)
	}

	switch r.Type {
	case RulePeakHours, RuleOffPeakHours:
		w, ok := r.Conditions.(TimeWindow)
		if !ok {
			return fail("time window required")
		}
		if !w.Start.Valid() || !w.End.Valid() {
			return fail("clock time out of range")
		}
		if w.Start.Equal(w.End) {
			return fail("time window start equals end")
		}

	case RuleSeasonal, RuleHoliday:
		dr, ok := r.Conditions.(DateRange)
		if !ok {
			return fail("date range required")
		}
		if err := validateRange(dr); err != "" {
			return fail(err)
		}

	case RuleWeekend:
		days, ok := r.Conditions.(DaySet)
		if !ok && r.Conditions != nil {
			return fail("day-of-week set required")
		}
		if err := validateDays(days); err != "" {
			return fail(err)
		}

	case RuleSpecial:
		sp, ok := r.Conditions.(Special)
		if !ok {
			return fail("special conditions required")
		}
		if sp.Dates == nil && len(sp.Days) == 0 {
			return fail("special rule has no conditions")
		}
		if sp.Dates != nil {
			if err := validateRange(*sp.Dates); err != "" {
				return fail(err)
			}
		}
		if err := validateDays(sp.Days); err != "" {
			return fail(err)
		}

	default:
		return fail("unknown rule type")
	}
	return nil
}

func validateRange(dr DateRange) string {
	if dr.Start.IsZero() || dr.End.IsZero() {
		return "date range needs both start and end"
	}
	if dr.End.Before(dr.Start) {
		return "end date before start date"
	}
	return ""
}

func validateDays(days DaySet) string {
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return "day of week out of range 0-6"
		}
	}
	return ""
}
