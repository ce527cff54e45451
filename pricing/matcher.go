package pricing

import (
	"sort"
	"time"
)

// =============================================================================
// RULE MATCHER - Which rules are in effect at an instant
// =============================================================================

// MatchResult holds the rules in effect, in application order.
type MatchResult struct {
	Rules    []PricingRule
	Warnings []Warning
}

// Matcher evaluates rules at an instant in the operator's local time.
// A nil Location evaluates in the instant's own location.
type Matcher struct {
	Location *time.Location
}

// Match returns the active rules whose conditions hold at `at`, sorted by
// priority descending and then creation order ascending.
//
// An active rule with malformed conditions stops the match with a
// RuleConditionError; inactive rules are never evaluated.
func (m Matcher) Match(at time.Time, rules []PricingRule) (MatchResult, error) {
	local := at
	if m.Location != nil {
		local = at.In(m.Location)
	}

	var result MatchResult
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		if err := rule.Validate(); err != nil {
			return MatchResult{}, err
		}

		ok, warn := holds(rule, local)
		if warn != nil {
			result.Warnings = append(result.Warnings, *warn)
		}
		if ok {
			result.Rules = append(result.Rules, rule)
		}
	}

	sort.SliceStable(result.Rules, func(i, j int) bool {
		a, b := result.Rules[i], result.Rules[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})

	return result, nil
}

// holds evaluates a validated rule's conditions at the local instant.
func holds(rule PricingRule, local time.Time) (bool, *Warning) {
	switch c := rule.Conditions.(type) {
	case TimeWindow:
		return c.Contains(ClockOf(local)), nil

	case DateRange:
		return c.Contains(DateOf(local)), nil

	case DaySet:
		if len(c) == 0 {
			return DefaultWeekendDays.Contains(local.Weekday()), defaultDaysWarning(rule)
		}
		return c.Contains(local.Weekday()), nil

	case Special:
		if c.Dates != nil && !c.Dates.Contains(DateOf(local)) {
			return false, nil
		}
		if len(c.Days) > 0 && !c.Days.Contains(local.Weekday()) {
			return false, nil
		}
		return true, nil

	case nil:
		// WEEKEND rule saved without a day set
		return DefaultWeekendDays.Contains(local.Weekday()), defaultDaysWarning(rule)
	}
	return false, nil
}

func defaultDaysWarning(rule PricingRule) *Warning {
	return &Warning{
		Code:    WarnDefaultWeekendDays,
		Message: "weekend rule has no days of week; using Saturday and Sunday",
		RuleID:  rule.ID,
	}
}
