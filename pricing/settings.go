package pricing

import (
	"fmt"
	"time"
	// Zone names must resolve on hosts without a zoneinfo database.
	_ "time/tzdata"

	"github.com/shopspring/decimal"
)

// BookingSettings are the operator's settings. They are read once by the
// caller and passed into every call; the engine holds no settings of its own.
type BookingSettings struct {
	GSTPercent   decimal.Decimal
	GSTInclusive bool
	// SplitGST reports CGST and SGST (half each) on the breakdown.
	SplitGST bool

	// Refund percentages for >= 24h, 12-24h and < 12h before the event.
	Cancellation24hRefund  decimal.Decimal
	Cancellation12hRefund  decimal.Decimal
	CancellationLateRefund decimal.Decimal

	AdvancePercent         decimal.Decimal
	RemainderDueBeforeDays int

	// Scheduling bounds for the availability checker. Not used by the engine.
	MaxAdvanceDays int
	MinNoticeHours int
	BufferMinutes  int

	// TimeZone is the IANA zone rules are evaluated in. Empty means UTC.
	TimeZone string
}

// DefaultSettings returns the settings a new operator starts with.
func DefaultSettings() BookingSettings {
	return BookingSettings{
		GSTPercent:             decimal.NewFromInt(18),
		SplitGST:               true,
		Cancellation24hRefund:  decimal.NewFromInt(100),
		Cancellation12hRefund:  decimal.NewFromInt(50),
		CancellationLateRefund: decimal.Zero,
		AdvancePercent:         decimal.NewFromInt(100),
		MaxAdvanceDays:         90,
		MinNoticeHours:         24,
		BufferMinutes:          30,
		TimeZone:               "UTC",
	}
}

// Validate checks every percentage is in range and offsets are non-negative.
func (s BookingSettings) Validate() error {
	if s.GSTPercent.IsNegative() {
		return fmt.Errorf("%w: gst percent must not be negative", ErrInvalidSettings)
	}
	percents := []struct {
		name  string
		value decimal.Decimal
	}{
		{"cancellation 24h refund", s.Cancellation24hRefund},
		{"cancellation 12h refund", s.Cancellation12hRefund},
		{"cancellation late refund", s.CancellationLateRefund},
		{"advance percent", s.AdvancePercent},
	}
	for _, p := range percents {
		if p.value.IsNegative() || p.value.GreaterThan(hundred) {
			return fmt.Errorf("%w: %s must be between 0 and 100, got %s", ErrInvalidSettings, p.name, p.value)
		}
	}
	if s.RemainderDueBeforeDays < 0 {
		return fmt.Errorf("%w: remainder due offset must not be negative", ErrInvalidSettings)
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves TimeZone.
func (s BookingSettings) Location() (*time.Location, error) {
	if s.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: time zone %q: %v", ErrInvalidSettings, s.TimeZone, err)
	}
	return loc, nil
}
