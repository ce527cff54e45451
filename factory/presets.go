package factory

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// PRESET RULES
// =============================================================================
//
// Starting points for the admin UI and the demo scenarios. Each returns a
// RuleJSON that still goes through FromJSON, so presets are validated the
// same way as hand-written rules.

// WeekendSurcharge applies on Saturday and Sunday.
func WeekendSurcharge(id string, percent int64) RuleJSON {
	return RuleJSON{
		ID:                id,
		Name:              "Weekend surcharge",
		Type:              "WEEKEND",
		AdjustmentPercent: decimal.NewFromInt(percent),
		Priority:          10,
		IsActive:          true,
		Conditions:        ConditionsJSON{DaysOfWeek: []int{0, 6}},
	}
}

// PeakHours applies between start and end ("HH:MM"), every day.
func PeakHours(id, start, end string, percent int64) RuleJSON {
	return RuleJSON{
		ID:                id,
		Name:              "Peak hours",
		Type:              "PEAK_HOURS",
		AdjustmentPercent: decimal.NewFromInt(percent),
		Priority:          20,
		IsActive:          true,
		Conditions:        ConditionsJSON{StartTime: start, EndTime: end},
	}
}

// OffPeakDiscount is a negative adjustment for a quiet window.
func OffPeakDiscount(id, start, end string, percent int64) RuleJSON {
	return RuleJSON{
		ID:                id,
		Name:              "Off-peak discount",
		Type:              "OFF_PEAK_HOURS",
		AdjustmentPercent: decimal.NewFromInt(-percent),
		Priority:          5,
		IsActive:          true,
		Conditions:        ConditionsJSON{StartTime: start, EndTime: end},
	}
}

// Season applies over an inclusive date range ("YYYY-MM-DD").
func Season(id, name, startDate, endDate string, percent int64) RuleJSON {
	return RuleJSON{
		ID:                id,
		Name:              name,
		Type:              "SEASONAL",
		AdjustmentPercent: decimal.NewFromInt(percent),
		Priority:          15,
		IsActive:          true,
		Conditions:        ConditionsJSON{StartDate: startDate, EndDate: endDate},
	}
}

// Holiday applies on a single date.
func Holiday(id, name, date string, percent int64) RuleJSON {
	return RuleJSON{
		ID:                id,
		Name:              name,
		Type:              "HOLIDAY",
		AdjustmentPercent: decimal.NewFromInt(percent),
		Priority:          30,
		IsActive:          true,
		Conditions:        ConditionsJSON{StartDate: date, EndDate: date},
	}
}
