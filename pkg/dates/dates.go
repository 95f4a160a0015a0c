// Package dates provides a calendar-date value type with no time-of-day or
// timezone component. Date-only fields (birth dates, class start dates, event
// dates) move through this package; fields with a true time-of-day stay
// time.Time and must never be converted through CalendarDate.
package dates

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// CalendarDate is a day value identified by explicit year, month and day
// components. Two values are equal iff all three components are equal.
type CalendarDate struct {
	Year  int
	Month time.Month
	Day   int
}

// New builds a CalendarDate from explicit components.
func New(year int, month time.Month, day int) CalendarDate {
	return CalendarDate{Year: year, Month: month, Day: day}
}

// FromTime decomposes a timestamp into its calendar components as observed in
// the timestamp's own location.
func FromTime(t time.Time) CalendarDate {
	y, m, d := t.Date()
	return CalendarDate{Year: y, Month: m, Day: d}
}

// Today returns the current local calendar date.
func Today() CalendarDate {
	return FromTime(time.Now())
}

// fallbackLayouts are tried, in order, for inputs that are neither plain
// YYYY-MM-DD nor an ISO timestamp. Components are always taken from the
// parsed value, never from a zone-adjusted instant.
var fallbackLayouts = []string{
	"2006/01/02",
	"01/02/2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
}

// ParseDateOnly parses a stored date string into a CalendarDate. It accepts
// YYYY-MM-DD, ISO-8601 timestamps (the portion before 'T' is used), and a
// handful of human formats. The boolean is false for unparseable input;
// callers decide their own fallback rather than receiving a fabricated date.
//
// A bare date string is never routed through a timestamp parse that assumes
// UTC midnight: in any zone behind UTC that shifts the date back a day.
func ParseDateOnly(raw string) (CalendarDate, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CalendarDate{}, false
	}

	if idx := strings.IndexByte(raw, 'T'); idx >= 0 {
		raw = raw[:idx]
	}

	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return FromTime(t), true
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return FromTime(t), true
		}
	}

	return CalendarDate{}, false
}

// IsZero reports whether the date is the zero value.
func (d CalendarDate) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Valid reports whether the components name a real calendar day.
func (d CalendarDate) Valid() bool {
	if d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	return d.Time().Day() == d.Day
}

// Time returns the date at UTC midnight, constructed from explicit
// components. Used only as a bridge for storage and arithmetic.
func (d CalendarDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Input renders the date as zero-padded YYYY-MM-DD for date-picker controls
// and storage.
func (d CalendarDate) Input() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Display renders the long form, e.g. "March 1, 2025".
func (d CalendarDate) Display() string {
	return fmt.Sprintf("%s %d, %d", d.Month.String(), d.Day, d.Year)
}

// DisplayShort renders the abbreviated form, e.g. "Mar 1, 2025".
func (d CalendarDate) DisplayShort() string {
	return fmt.Sprintf("%s %d, %d", d.Month.String()[:3], d.Day, d.Year)
}

// Equal reports component-wise equality.
func (d CalendarDate) Equal(o CalendarDate) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// Before reports whether d falls strictly earlier than o.
func (d CalendarDate) Before(o CalendarDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// After reports whether d falls strictly later than o.
func (d CalendarDate) After(o CalendarDate) bool {
	return o.Before(d)
}

// AddDays returns the date n days later (earlier when n is negative).
func (d CalendarDate) AddDays(n int) CalendarDate {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// Weekday returns the day of the week (Sunday = 0).
func (d CalendarDate) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// Age returns whole years elapsed from birth to today, decremented by one
// when today's (month, day) precedes the birthday.
func Age(birth, today CalendarDate) int {
	years := today.Year - birth.Year
	if today.Month < birth.Month || (today.Month == birth.Month && today.Day < birth.Day) {
		years--
	}
	return years
}

// IsAdult reports whether the birth date corresponds to 18 years or older.
// An unknown birth date counts as adult; the permissive default keeps
// guardian records without birth dates usable.
func IsAdult(birth *CalendarDate, today CalendarDate) bool {
	if birth == nil || birth.IsZero() {
		return true
	}
	return Age(*birth, today) >= 18
}

// DayNames is the fixed Sunday-first weekday name table.
var DayNames = [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DayName resolves a weekday index (Sunday = 0) to its name.
func DayName(idx int) (string, bool) {
	if idx < 0 || idx > 6 {
		return "", false
	}
	return DayNames[idx], true
}

// DayIndex resolves a weekday name to its Sunday-first index,
// case-insensitively.
func DayIndex(name string) (int, bool) {
	for i, n := range DayNames {
		if strings.EqualFold(n, name) {
			return i, true
		}
	}
	return 0, false
}

// MarshalJSON renders the date as a YYYY-MM-DD string, or null when zero.
func (d CalendarDate) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Input())
}

// UnmarshalJSON accepts a YYYY-MM-DD string, an ISO timestamp string, or null.
func (d *CalendarDate) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || *raw == "" {
		*d = CalendarDate{}
		return nil
	}
	parsed, ok := ParseDateOnly(*raw)
	if !ok {
		return fmt.Errorf("invalid calendar date %q", *raw)
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer for DATE columns.
func (d CalendarDate) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.Time(), nil
}

// Scan implements sql.Scanner accepting DATE columns and their textual forms.
func (d *CalendarDate) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = CalendarDate{}
		return nil
	case time.Time:
		*d = FromTime(v)
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into CalendarDate", src)
	}
}

func (d *CalendarDate) scanString(raw string) error {
	parsed, ok := ParseDateOnly(raw)
	if !ok {
		return fmt.Errorf("cannot scan %q into CalendarDate", raw)
	}
	*d = parsed
	return nil
}
