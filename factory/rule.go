/*
Package factory provides JSON to Go conversion for pricing rules and settings.

PURPOSE:
  Rules and settings arrive from the admin UI and the database as flat JSON
  records. The factory turns them into the typed pricing.PricingRule (with
  its tagged-union conditions) and pricing.BookingSettings, rejecting anything
  the engine could not evaluate. The admin CRUD validates here at save time;
  the engine validates again before evaluating.

JSON SCHEMA:
  {
    "id": "weekend-surcharge",
    "name": "Weekend surcharge",
    "type": "WEEKEND",
    "adjustment_percent": "10",
    "priority": 10,
    "is_active": true,
    "conditions": {
      "start_time": "17:00",          PEAK_HOURS, OFF_PEAK_HOURS
      "end_time": "21:00",
      "start_date": "2025-12-20",     SEASONAL, HOLIDAY, SPECIAL
      "end_date": "2026-01-05",
      "days_of_week": [0, 6]          WEEKEND, SPECIAL (0 = Sunday)
    }
  }

CONDITION MAPPING:
  PEAK_HOURS, OFF_PEAK_HOURS  -> pricing.TimeWindow
  SEASONAL, HOLIDAY           -> pricing.DateRange
  WEEKEND                     -> pricing.DaySet
  SPECIAL                     -> pricing.Special

USAGE:
  f := factory.NewRuleFactory()
  rule, err := f.ParseRule(jsonString)

  // Presets
  rule, err := f.FromJSON(factory.WeekendSurcharge("wknd", 10))

SEE ALSO:
  - pricing/rule.go: PricingRule and condition types
  - factory/settings.go: Settings conversion
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidewater/charter-engine/pricing"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// RuleJSON is the JSON representation of a pricing rule.
type RuleJSON struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	Type              string          `json:"type"`
	AdjustmentPercent decimal.Decimal `json:"adjustment_percent"`
	Priority          int             `json:"priority"`
	IsActive          bool            `json:"is_active"`
	CreatedAt         *time.Time      `json:"created_at,omitempty"`
	Conditions        ConditionsJSON  `json:"conditions"`
}

// ConditionsJSON is the flat condition record. Which fields may be set
// depends on the rule type.
type ConditionsJSON struct {
	StartTime  string `json:"start_time,omitempty"`
	EndTime    string `json:"end_time,omitempty"`
	StartDate  string `json:"start_date,omitempty"`
	EndDate    string `json:"end_date,omitempty"`
	DaysOfWeek []int  `json:"days_of_week,omitempty"`
}

func (c ConditionsJSON) hasTime() bool  { return c.StartTime != "" || c.EndTime != "" }
func (c ConditionsJSON) hasDates() bool { return c.StartDate != "" || c.EndDate != "" }
func (c ConditionsJSON) hasDays() bool  { return len(c.DaysOfWeek) > 0 }

// =============================================================================
// RULE FACTORY
// =============================================================================

// RuleFactory converts JSON rules to pricing rules.
type RuleFactory struct{}

// NewRuleFactory creates a new rule factory.
func NewRuleFactory() *RuleFactory {
	return &RuleFactory{}
}

// ParseRule parses a JSON string into a validated PricingRule.
func (f *RuleFactory) ParseRule(jsonStr string) (pricing.PricingRule, error) {
	var rj RuleJSON
	if err := json.Unmarshal([]byte(jsonStr), &rj); err != nil {
		return pricing.PricingRule{}, fmt.Errorf("failed to parse rule JSON: %w", err)
	}
	return f.FromJSON(rj)
}

// FromJSON converts a RuleJSON to a validated PricingRule.
func (f *RuleFactory) FromJSON(rj RuleJSON) (pricing.PricingRule, error) {
	rule := pricing.PricingRule{
		ID:                pricing.RuleID(rj.ID),
		Name:              rj.Name,
		Type:              pricing.RuleType(rj.Type),
		AdjustmentPercent: rj.AdjustmentPercent,
		Priority:          rj.Priority,
		IsActive:          rj.IsActive,
	}
	if rj.CreatedAt != nil {
		rule.CreatedAt = *rj.CreatedAt
	}

	fail := func(format string, args ...any) error {
		return &pricing.RuleConditionError{RuleID: rule.ID, Type: rule.Type, Reason: fmt.Sprintf(format, args...)}
	}

	if rj.ID == "" {
		return pricing.PricingRule{}, fail("id is required")
	}
	if !rule.Type.Valid() {
		return pricing.PricingRule{}, fail("unknown rule type %q", rj.Type)
	}

	c := rj.Conditions
	switch rule.Type {
	case pricing.RulePeakHours, pricing.RuleOffPeakHours:
		if c.hasDates() || c.hasDays() {
			return pricing.PricingRule{}, fail("only start_time and end_time apply")
		}
		start, err := pricing.ParseClockTime(c.StartTime)
		if err != nil {
			return pricing.PricingRule{}, fail("start_time: %v", err)
		}
		end, err := pricing.ParseClockTime(c.EndTime)
		if err != nil {
			return pricing.PricingRule{}, fail("end_time: %v", err)
		}
		rule.Conditions = pricing.TimeWindow{Start: start, End: end}

	case pricing.RuleSeasonal, pricing.RuleHoliday:
		if c.hasTime() || c.hasDays() {
			return pricing.PricingRule{}, fail("only start_date and end_date apply")
		}
		dr, err := parseDateRange(c)
		if err != nil {
			return pricing.PricingRule{}, fail("%v", err)
		}
		rule.Conditions = dr

	case pricing.RuleWeekend:
		if c.hasTime() || c.hasDates() {
			return pricing.PricingRule{}, fail("only days_of_week applies")
		}
		days, err := parseDays(c.DaysOfWeek)
		if err != nil {
			return pricing.PricingRule{}, fail("%v", err)
		}
		rule.Conditions = days

	case pricing.RuleSpecial:
		if c.hasTime() {
			return pricing.PricingRule{}, fail("time window does not apply")
		}
		var sp pricing.Special
		if c.hasDates() {
			dr, err := parseDateRange(c)
			if err != nil {
				return pricing.PricingRule{}, fail("%v", err)
			}
			sp.Dates = &dr
		}
		days, err := parseDays(c.DaysOfWeek)
		if err != nil {
			return pricing.PricingRule{}, fail("%v", err)
		}
		sp.Days = days
		rule.Conditions = sp
	}

	if err := rule.Validate(); err != nil {
		return pricing.PricingRule{}, err
	}
	return rule, nil
}

// ToJSON converts a PricingRule to RuleJSON.
func (f *RuleFactory) ToJSON(rule pricing.PricingRule) RuleJSON {
	rj := RuleJSON{
		ID:                string(rule.ID),
		Name:              rule.Name,
		Type:              string(rule.Type),
		AdjustmentPercent: rule.AdjustmentPercent,
		Priority:          rule.Priority,
		IsActive:          rule.IsActive,
	}
	if !rule.CreatedAt.IsZero() {
		created := rule.CreatedAt
		rj.CreatedAt = &created
	}

	switch c := rule.Conditions.(type) {
	case pricing.TimeWindow:
		rj.Conditions.StartTime = c.Start.String()
		rj.Conditions.EndTime = c.End.String()
	case pricing.DateRange:
		rj.Conditions.StartDate = c.Start.String()
		rj.Conditions.EndDate = c.End.String()
	case pricing.DaySet:
		rj.Conditions.DaysOfWeek = daysToInts(c)
	case pricing.Special:
		if c.Dates != nil {
			rj.Conditions.StartDate = c.Dates.Start.String()
			rj.Conditions.EndDate = c.Dates.End.String()
		}
		rj.Conditions.DaysOfWeek = daysToInts(c.Days)
	}
	return rj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseDateRange(c ConditionsJSON) (pricing.DateRange, error) {
	if c.StartDate == "" || c.EndDate == "" {
		return pricing.DateRange{}, fmt.Errorf("start_date and end_date are both required")
	}
	start, err := pricing.ParseDate(c.StartDate)
	if err != nil {
		return pricing.DateRange{}, err
	}
	end, err := pricing.ParseDate(c.EndDate)
	if err != nil {
		return pricing.DateRange{}, err
	}
	return pricing.DateRange{Start: start, End: end}, nil
}

func parseDays(in []int) (pricing.DaySet, error) {
	days := make(pricing.DaySet, 0, len(in))
	seen := make(map[int]bool, len(in))
	for _, d := range in {
		if d < 0 || d > 6 {
			return nil, fmt.Errorf("day of week %d out of range 0-6", d)
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, time.Weekday(d))
	}
	return days, nil
}

func daysToInts(days pricing.DaySet) []int {
	if len(days) == 0 {
		return nil
	}
	out := make([]int, len(days))
	for i, d := range days {
		out[i] = int(d)
	}
	return out
}
