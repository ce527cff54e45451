package factory

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tidewater/charter-engine/pricing"
)

// SettingsJSON is the JSON representation of booking settings. Every field is
// optional; missing fields take the defaults from pricing.DefaultSettings.
type SettingsJSON struct {
	GSTPercent             *decimal.Decimal `json:"gst_percent,omitempty"`
	GSTInclusive           *bool            `json:"gst_inclusive,omitempty"`
	SplitGST               *bool            `json:"split_gst,omitempty"`
	Cancellation24hRefund  *decimal.Decimal `json:"cancellation_24h_refund,omitempty"`
	Cancellation12hRefund  *decimal.Decimal `json:"cancellation_12h_refund,omitempty"`
	CancellationLateRefund *decimal.Decimal `json:"cancellation_late_refund,omitempty"`
	AdvancePercent         *decimal.Decimal `json:"advance_percent,omitempty"`
	RemainderDueBeforeDays *int             `json:"remainder_due_before_days,omitempty"`
	MaxAdvanceDays         *int             `json:"max_advance_days,omitempty"`
	MinNoticeHours         *int             `json:"min_notice_hours,omitempty"`
	BufferMinutes          *int             `json:"buffer_minutes,omitempty"`
	TimeZone               *string          `json:"timezone,omitempty"`
}

// ParseSettings parses a JSON string into validated BookingSettings.
func ParseSettings(jsonStr string) (pricing.BookingSettings, error) {
	var sj SettingsJSON
	if err := json.Unmarshal([]byte(jsonStr), &sj); err != nil {
		return pricing.BookingSettings{}, fmt.Errorf("%w: failed to parse settings JSON: %v", pricing.ErrInvalidSettings, err)
	}
	return SettingsFromJSON(sj)
}

// SettingsFromJSON fills defaults and validates.
func SettingsFromJSON(sj SettingsJSON) (pricing.BookingSettings, error) {
	return MergeSettings(pricing.DefaultSettings(), sj)
}

// MergeSettings applies the fields present in sj on top of base. Used for
// partial updates from the admin UI.
func MergeSettings(base pricing.BookingSettings, sj SettingsJSON) (pricing.BookingSettings, error) {
	s := base
	setDec(&s.GSTPercent, sj.GSTPercent)
	setBool(&s.GSTInclusive, sj.GSTInclusive)
	setBool(&s.SplitGST, sj.SplitGST)
	setDec(&s.Cancellation24hRefund, sj.Cancellation24hRefund)
	setDec(&s.Cancellation12hRefund, sj.Cancellation12hRefund)
	setDec(&s.CancellationLateRefund, sj.CancellationLateRefund)
	setDec(&s.AdvancePercent, sj.AdvancePercent)
	setInt(&s.RemainderDueBeforeDays, sj.RemainderDueBeforeDays)
	setInt(&s.MaxAdvanceDays, sj.MaxAdvanceDays)
	setInt(&s.MinNoticeHours, sj.MinNoticeHours)
	setInt(&s.BufferMinutes, sj.BufferMinutes)
	if sj.TimeZone != nil {
		s.TimeZone = *sj.TimeZone
	}

	if s.GSTPercent.GreaterThan(decimal.NewFromInt(100)) {
		return pricing.BookingSettings{}, fmt.Errorf("%w: gst percent must be between 0 and 100", pricing.ErrInvalidSettings)
	}
	if s.MaxAdvanceDays < 0 || s.MinNoticeHours < 0 || s.BufferMinutes < 0 {
		return pricing.BookingSettings{}, fmt.Errorf("%w: scheduling bounds must not be negative", pricing.ErrInvalidSettings)
	}
	if err := s.Validate(); err != nil {
		return pricing.BookingSettings{}, err
	}
	return s, nil
}

// SettingsToJSON converts settings to their full JSON form.
func SettingsToJSON(s pricing.BookingSettings) SettingsJSON {
	return SettingsJSON{
		GSTPercent:             &s.GSTPercent,
		GSTInclusive:           &s.GSTInclusive,
		SplitGST:               &s.SplitGST,
		Cancellation24hRefund:  &s.Cancellation24hRefund,
		Cancellation12hRefund:  &s.Cancellation12hRefund,
		CancellationLateRefund: &s.CancellationLateRefund,
		AdvancePercent:         &s.AdvancePercent,
		RemainderDueBeforeDays: &s.RemainderDueBeforeDays,
		MaxAdvanceDays:         &s.MaxAdvanceDays,
		MinNoticeHours:         &s.MinNoticeHours,
		BufferMinutes:          &s.BufferMinutes,
		TimeZone:               &s.TimeZone,
	}
}

func setDec(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
