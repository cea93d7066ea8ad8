package session

import (
	"encoding/json"
	"fmt"
	"time"
)

// dateFormat and clockFormat match the on-disk session format exactly:
// DD.MM.YYYY for dates, HH:MM:SS.mmm for times and durations. Go's
// reference-time layout syntax expresses both without a format library.
const (
	dateFormat  = "02.01.2006"
	clockFormat = "15:04:05.000"
)

// Date is a calendar date with no time-of-day component, serialized as
// "DD.MM.YYYY".
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// DateFromTime truncates a time.Time to its calendar date.
func DateFromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return d.asTime().Format(dateFormat)
}

func (d Date) asTime() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d occurs strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.asTime().Before(other.asTime())
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return fmt.Errorf("session: invalid date %q: %w", s, err)
	}
	*d = DateFromTime(t)
	return nil
}

// ClockTime is a time-of-day value with millisecond precision, serialized
// as "HH:MM:SS.mmm".
type ClockTime struct {
	Hour, Minute, Second, Millisecond int
}

// NewClockTime builds a ClockTime from its components.
func NewClockTime(hour, minute, second, millisecond int) ClockTime {
	return ClockTime{Hour: hour, Minute: minute, Second: second, Millisecond: millisecond}
}

// ClockTimeFromTime truncates a time.Time to its time-of-day, dropping
// sub-millisecond precision.
func ClockTimeFromTime(t time.Time) ClockTime {
	return ClockTime{
		Hour:        t.Hour(),
		Minute:      t.Minute(),
		Second:      t.Second(),
		Millisecond: t.Nanosecond() / int(time.Millisecond),
	}
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d.%03d", c.Hour, c.Minute, c.Second, c.Millisecond)
}

func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(clockFormat, s)
	if err != nil {
		return fmt.Errorf("session: invalid time %q: %w", s, err)
	}
	*c = ClockTimeFromTime(t)
	return nil
}

// Duration wraps time.Duration so it serializes with the same
// "HH:MM:SS.mmm" format the original storage uses for sector and lap
// times, instead of Go's default "1h2m3s" rendering.
type Duration time.Duration

func (d Duration) String() string {
	total := time.Duration(d)
	hours := total / time.Hour
	total -= hours * time.Hour
	minutes := total / time.Minute
	total -= minutes * time.Minute
	seconds := total / time.Second
	total -= seconds * time.Second
	millis := total / time.Millisecond
	return fmt.Sprintf("%02d:%02d:%02d.%03d", hours, minutes, seconds, millis)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := time.Parse(clockFormat, s)
	if err != nil {
		return fmt.Errorf("session: invalid duration %q: %w", s, err)
	}
	*d = Duration(time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond()))
	return nil
}
