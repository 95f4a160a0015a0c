package dates

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateOnlyPlain(t *testing.T) {
	d, ok := ParseDateOnly("2024-03-01")
	require.True(t, ok)
	assert.Equal(t, New(2024, time.March, 1), d)
}

func TestParseDateOnlyISOTimestamp(t *testing.T) {
	// Must not shift backward a day regardless of host timezone.
	d, ok := ParseDateOnly("2025-11-30T00:00:00.000Z")
	require.True(t, ok)
	assert.Equal(t, New(2025, time.November, 30), d)
}

func TestParseDateOnlyTimezoneInvariance(t *testing.T) {
	for _, offset := range []int{-12, -7, 0, 5, 14} {
		loc := time.FixedZone("test", offset*3600)
		orig := time.Local
		time.Local = loc
		d, ok := ParseDateOnly("2024-03-01")
		time.Local = orig
		require.True(t, ok)
		assert.Equal(t, New(2024, time.March, 1), d, "offset %d", offset)
	}
}

func TestParseDateOnlyFallbackLayouts(t *testing.T) {
	cases := map[string]CalendarDate{
		"2024/06/15":    New(2024, time.June, 15),
		"06/15/2024":    New(2024, time.June, 15),
		"June 15, 2024": New(2024, time.June, 15),
		"Jun 15, 2024":  New(2024, time.June, 15),
		"15 June 2024":  New(2024, time.June, 15),
		" 2024-06-15 ":  New(2024, time.June, 15),
	}
	for raw, want := range cases {
		d, ok := ParseDateOnly(raw)
		require.True(t, ok, "input %q", raw)
		assert.Equal(t, want, d, "input %q", raw)
	}
}

func TestParseDateOnlyUnparseable(t *testing.T) {
	for _, raw := range []string{"", "not a date", "2024-13-40", "tomorrow"} {
		_, ok := ParseDateOnly(raw)
		assert.False(t, ok, "input %q", raw)
	}
}

func TestInputRoundTrip(t *testing.T) {
	for _, s := range []string{"2024-01-01", "1999-12-31", "2025-02-28", "2024-02-29"} {
		d, ok := ParseDateOnly(s)
		require.True(t, ok)
		assert.Equal(t, s, d.Input())

		again, ok := ParseDateOnly(d.Input())
		require.True(t, ok)
		assert.True(t, d.Equal(again))
	}
}

func TestDisplay(t *testing.T) {
	d := New(2025, time.March, 1)
	assert.Equal(t, "March 1, 2025", d.Display())
	assert.Equal(t, "Mar 1, 2025", d.DisplayShort())
}

func TestAgeBirthdayBoundary(t *testing.T) {
	birth := New(2015, time.June, 15)
	assert.Equal(t, 9, Age(birth, New(2025, time.June, 14)))
	assert.Equal(t, 10, Age(birth, New(2025, time.June, 15)))
	assert.Equal(t, 10, Age(birth, New(2025, time.June, 16)))
}

func TestAgeMonotonicity(t *testing.T) {
	birth := New(2010, time.September, 3)
	prev := -1
	d := New(2010, time.September, 3)
	for i := 0; i < 40; i++ {
		age := Age(birth, d)
		assert.GreaterOrEqual(t, age, prev)
		prev = age
		d = d.AddDays(100)
	}
}

func TestIsAdult(t *testing.T) {
	today := New(2026, time.August, 30)
	adult := New(2000, time.January, 1)
	minor := New(2015, time.June, 15)
	boundary := New(2008, time.August, 30)

	assert.True(t, IsAdult(&adult, today))
	assert.False(t, IsAdult(&minor, today))
	assert.True(t, IsAdult(&boundary, today))
	assert.True(t, IsAdult(nil, today), "unknown birth date counts as adult")
}

func TestComparisons(t *testing.T) {
	a := New(2024, time.March, 1)
	b := New(2024, time.March, 2)
	c := New(2024, time.March, 1)

	assert.True(t, a.Before(b))
	assert.True(t, b.After(a))
	assert.True(t, a.Equal(c))
	assert.False(t, a.Before(c))
}

func TestAddDaysAcrossMonthEnd(t *testing.T) {
	d := New(2024, time.February, 28)
	assert.Equal(t, New(2024, time.February, 29), d.AddDays(1))
	assert.Equal(t, New(2024, time.March, 1), d.AddDays(2))
	assert.Equal(t, New(2024, time.January, 29), d.AddDays(-30))
}

func TestWeekday(t *testing.T) {
	// 2026-08-30 is a Sunday.
	assert.Equal(t, time.Sunday, New(2026, time.August, 30).Weekday())
}

func TestDayNameTable(t *testing.T) {
	name, ok := DayName(0)
	require.True(t, ok)
	assert.Equal(t, "Sunday", name)

	name, ok = DayName(6)
	require.True(t, ok)
	assert.Equal(t, "Saturday", name)

	_, ok = DayName(7)
	assert.False(t, ok)

	idx, ok := DayIndex("wednesday")
	require.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = DayIndex("Someday")
	assert.False(t, ok)
}

func TestJSONRoundTrip(t *testing.T) {
	d := New(2025, time.November, 30)
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2025-11-30"`, string(raw))

	var back CalendarDate
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, d.Equal(back))

	var zero CalendarDate
	require.NoError(t, json.Unmarshal([]byte("null"), &zero))
	assert.True(t, zero.IsZero())
}

func TestScanFromTime(t *testing.T) {
	var d CalendarDate
	loc := time.FixedZone("behind", -11*3600)
	require.NoError(t, d.Scan(time.Date(2025, time.November, 30, 0, 0, 0, 0, loc)))
	assert.Equal(t, New(2025, time.November, 30), d)
}

func TestValid(t *testing.T) {
	assert.True(t, New(2024, time.February, 29).Valid())
	assert.False(t, New(2025, time.February, 29).Valid())
	assert.False(t, New(2025, time.April, 31).Valid())
}
