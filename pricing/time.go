package pricing

import (
	"fmt"
	"time"
)

// =============================================================================
// CLOCK TIME - Local time of day, minute resolution
// =============================================================================

type ClockTime struct {
	Hour   int
	Minute int
}

func NewClockTime(hour, minute int) ClockTime { return ClockTime{Hour: hour, Minute: minute} }

// ParseClockTime parses "HH:MM" (24h).
func ParseClockTime(s string) (ClockTime, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return ClockTime{}, fmt.Errorf("invalid clock time %q (use HH:MM): %w", s, err)
	}
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}, nil
}

// ClockOf returns the wall-clock time of t in t's own location.
func ClockOf(t time.Time) ClockTime { return ClockTime{Hour: t.Hour(), Minute: t.Minute()} }

func (c ClockTime) minutes() int { return c.Hour*60 + c.Minute }
func (c ClockTime) Before(other ClockTime) bool { return c.minutes() < other.minutes() }
func (c ClockTime) Equal(other ClockTime) bool { return c.minutes() == other.minutes() }
func (c ClockTime) Valid() bool {
	return c.Hour >= 0 && c.Hour < 24 && c.Minute >= 0 && c.Minute < 60
}
func (c ClockTime) String() string { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// =============================================================================
// DATE - Calendar date without a time or location
// =============================================================================

type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date { return Date{Year: year, Month: month, Day: day} }

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date { return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()} }

func (d Date) ordinal() int { return d.Year*10000 + int(d.Month)*100 + d.Day }
func (d Date) Before(other Date) bool { return d.ordinal() < other.ordinal() }
func (d Date) After(other Date) bool { return d.ordinal() > other.ordinal() }
func (d Date) Equal(other Date) bool { return d.ordinal() == other.ordinal() }
func (d Date) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }
func (d Date) String() string { return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day) }

// =============================================================================
// DATE RANGE - Inclusive on both ends
// =============================================================================

type DateRange struct {
	Start Date
	End   Date
}

// Contains returns true if d is within [Start, End].
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r DateRange) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
