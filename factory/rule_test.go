package factory_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidewater/charter-engine/factory"
	"github.com/tidewater/charter-engine/pricing"
)

func TestParseRule_Weekend(t *testing.T) {
	f := factory.NewRuleFactory()

	rule, err := f.ParseRule(`{
		"id": "wknd",
		"name": "Weekend",
		"type": "WEEKEND",
		"adjustment_percent": 10,
		"priority": 3,
		"is_active": true,
		"conditions": {"days_of_week": [0, 6]}
	}`)
	require.NoError(t, err)

	assert.Equal(t, pricing.RuleWeekend, rule.Type)
	assert.Equal(t, pricing.DaySet{time.Sunday, time.Saturday}, rule.Conditions)
	assert.Equal(t, "10", rule.AdjustmentPercent.String())
	assert.Equal(t, 3, rule.Priority)
}

func TestParseRule_ConditionKinds(t *testing.T) {
	f := factory.NewRuleFactory()

	peak, err := f.FromJSON(factory.PeakHours("peak", "17:00", "21:00", 20))
	require.NoError(t, err)
	assert.Equal(t, pricing.TimeWindow{Start: pricing.NewClockTime(17, 0), End: pricing.NewClockTime(21, 0)}, peak.Conditions)

	night, err := f.FromJSON(factory.OffPeakDiscount("night", "22:00", "02:00", 15))
	require.NoError(t, err, "overnight windows are valid")
	assert.Equal(t, "-15", night.AdjustmentPercent.String())

	season, err := f.FromJSON(factory.Season("monsoon", "Monsoon", "2025-06-01", "2025-09-30", -10))
	require.NoError(t, err)
	assert.Equal(t, pricing.DateRange{Start: pricing.NewDate(2025, 6, 1), End: pricing.NewDate(2025, 9, 30)}, season.Conditions)

	holiday, err := f.FromJSON(factory.Holiday("xmas", "Christmas", "2025-12-25", 30))
	require.NoError(t, err)
	assert.Equal(t, pricing.RuleHoliday, holiday.Type)

	special, err := f.ParseRule(`{"id":"sp","type":"SPECIAL","adjustment_percent":"5","is_active":true,
		"conditions":{"start_date":"2025-12-01","end_date":"2025-12-31","days_of_week":[6]}}`)
	require.NoError(t, err)
	sp, ok := special.Conditions.(pricing.Special)
	require.True(t, ok)
	require.NotNil(t, sp.Dates)
	assert.Equal(t, pricing.DaySet{time.Saturday}, sp.Days)
}

func TestParseRule_Rejections(t *testing.T) {
	f := factory.NewRuleFactory()

	cases := map[string]string{
		"unknown type":          `{"id":"r","type":"LUNAR","conditions":{}}`,
		"missing id":            `{"type":"WEEKEND","conditions":{}}`,
		"bad clock":             `{"id":"r","type":"PEAK_HOURS","conditions":{"start_time":"7pm","end_time":"21:00"}}`,
		"zero length window":    `{"id":"r","type":"PEAK_HOURS","conditions":{"start_time":"09:00","end_time":"09:00"}}`,
		"end before start":      `{"id":"r","type":"SEASONAL","conditions":{"start_date":"2025-12-31","end_date":"2025-12-01"}}`,
		"half a date range":     `{"id":"r","type":"HOLIDAY","conditions":{"start_date":"2025-12-25"}}`,
		"day out of range":      `{"id":"r","type":"WEEKEND","conditions":{"days_of_week":[7]}}`,
		"irrelevant field":      `{"id":"r","type":"WEEKEND","conditions":{"days_of_week":[6],"start_time":"10:00"}}`,
		"special no conditions": `{"id":"r","type":"SPECIAL","conditions":{}}`,
		"special with time":     `{"id":"r","type":"SPECIAL","conditions":{"start_time":"10:00","end_time":"11:00","days_of_week":[1]}}`,
	}

	for name, js := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.ParseRule(js)
			assert.ErrorIs(t, err, pricing.ErrInvalidRuleCondition)
		})
	}
}

func TestParseRule_MalformedJSON(t *testing.T) {
	_, err := factory.NewRuleFactory().ParseRule(`{"id":`)
	assert.Error(t, err)
}

func TestRuleToJSON_RoundTrip(t *testing.T) {
	f := factory.NewRuleFactory()
	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	in := factory.Season("peak-season", "Peak season", "2025-12-20", "2026-01-05", 25)
	in.CreatedAt = &created

	rule, err := f.FromJSON(in)
	require.NoError(t, err)
	out := f.ToJSON(rule)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Conditions, out.Conditions)
	require.NotNil(t, out.CreatedAt)
	assert.True(t, created.Equal(*out.CreatedAt))

	b, err := json.Marshal(out)
	require.NoError(t, err)
	again, err := f.ParseRule(string(b))
	require.NoError(t, err)
	assert.Equal(t, rule.Conditions, again.Conditions)
	assert.True(t, rule.AdjustmentPercent.Equal(again.AdjustmentPercent))
}

func TestWeekendWithoutDays_AcceptedForDefaulting(t *testing.T) {
	rule, err := factory.NewRuleFactory().ParseRule(`{"id":"w","type":"WEEKEND","is_active":true,"conditions":{}}`)
	require.NoError(t, err)

	days, ok := rule.Conditions.(pricing.DaySet)
	require.True(t, ok)
	assert.Empty(t, days)
}

// =============================================================================
// SETTINGS
// =============================================================================

func TestParseSettings_Defaults(t *testing.T) {
	s, err := factory.ParseSettings(`{}`)
	require.NoError(t, err)

	assert.Equal(t, "18", s.GSTPercent.String())
	assert.False(t, s.GSTInclusive)
	assert.Equal(t, "100", s.Cancellation24hRefund.String())
	assert.Equal(t, "50", s.Cancellation12hRefund.String())
	assert.Equal(t, "0", s.CancellationLateRefund.String())
	assert.Equal(t, "100", s.AdvancePercent.String())
	assert.Equal(t, 0, s.RemainderDueBeforeDays)
	assert.Equal(t, 90, s.MaxAdvanceDays)
	assert.Equal(t, 24, s.MinNoticeHours)
	assert.Equal(t, 30, s.BufferMinutes)
	assert.Equal(t, "UTC", s.TimeZone)
}

func TestParseSettings_Overrides(t *testing.T) {
	s, err := factory.ParseSettings(`{"gst_percent":"12","gst_inclusive":true,"advance_percent":30,
		"remainder_due_before_days":3,"timezone":"Asia/Kolkata"}`)
	require.NoError(t, err)

	assert.Equal(t, "12", s.GSTPercent.String())
	assert.True(t, s.GSTInclusive)
	assert.Equal(t, "30", s.AdvancePercent.String())
	assert.Equal(t, 3, s.RemainderDueBeforeDays)
	assert.Equal(t, "Asia/Kolkata", s.TimeZone)
}

func TestParseSettings_Invalid(t *testing.T) {
	cases := []string{
		`{"gst_percent":-1}`,
		`{"gst_percent":150}`,
		`{"advance_percent":101}`,
		`{"cancellation_12h_refund":-5}`,
		`{"remainder_due_before_days":-1}`,
		`{"buffer_minutes":-10}`,
		`{"timezone":"Nowhere/Land"}`,
		`not json`,
	}
	for _, js := range cases {
		_, err := factory.ParseSettings(js)
		assert.ErrorIs(t, err, pricing.ErrInvalidSettings, js)
	}
}

func TestMergeSettings_PartialUpdate(t *testing.T) {
	base := pricing.DefaultSettings()
	base.AdvancePercent = decimal.NewFromInt(40)

	inclusive := true
	s, err := factory.MergeSettings(base, factory.SettingsJSON{GSTInclusive: &inclusive})
	require.NoError(t, err)

	assert.True(t, s.GSTInclusive)
	assert.Equal(t, "40", s.AdvancePercent.String(), "untouched fields keep the base value")

	back, err := factory.SettingsFromJSON(factory.SettingsToJSON(s))
	require.NoError(t, err)
	assert.Equal(t, s.TimeZone, back.TimeZone)
	assert.True(t, s.AdvancePercent.Equal(back.AdvancePercent))
}
