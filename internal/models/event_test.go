package models

import (
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tumblelab/gym-api/pkg/dates"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

func TestEventValidateRejectsInvertedDateRange(t *testing.T) {
	e := Event{
		Name:      "Spring Showcase",
		StartDate: dates.New(2025, time.March, 1),
		EndDate:   datePtr(2025, time.February, 28),
		AudienceRule:  AudienceRule{Type: AudienceAllClassesAndParents},
	}
	err := e.Validate()
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrInvalidDateRange.Code, appErr.Code)
}

func TestEventValidateAudienceRequirements(t *testing.T) {
	base := Event{
		Name:      "Parents Night",
		StartDate: dates.New(2025, time.May, 10),
	}

	noPrograms := base
	noPrograms.AudienceRule = AudienceRule{Type: AudienceSpecificClasses}
	assert.Error(t, noPrograms.Validate())

	noCategories := base
	noCategories.AudienceRule = AudienceRule{Type: AudienceSpecificCategories}
	assert.Error(t, noCategories.Validate())

	ok := base
	ok.AudienceRule = AudienceRule{Type: AudienceSpecificClasses, ProgramIDs: pq.StringArray{"p1"}}
	assert.NoError(t, ok.Validate())
}

func TestEventVisibleToExhaustive(t *testing.T) {
	viewer := AudienceContext{ProgramIDs: []string{"p1"}, CategoryIDs: []string{"c7"}}

	cases := []struct {
		rule    AudienceRule
		visible bool
	}{
		{AudienceRule{Type: AudienceAllClassesAndParents}, true},
		{AudienceRule{Type: AudienceAllParents}, true},
		{AudienceRule{Type: AudienceSpecificClasses, ProgramIDs: pq.StringArray{"p1", "p2"}}, true},
		{AudienceRule{Type: AudienceSpecificClasses, ProgramIDs: pq.StringArray{"p9"}}, false},
		{AudienceRule{Type: AudienceSpecificCategories, CategoryIDs: pq.StringArray{"c7"}}, true},
		{AudienceRule{Type: AudienceSpecificCategories, CategoryIDs: pq.StringArray{"c5"}}, false},
		{AudienceRule{Type: AudienceBoosters}, false},
		{AudienceRule{Type: AudienceVolunteers}, false},
		{AudienceRule{Type: AudienceType("SOMETHING_NEW")}, false},
	}
	for _, tc := range cases {
		e := Event{AudienceRule: tc.rule}
		assert.Equal(t, tc.visible, e.VisibleTo(viewer), "rule %s", tc.rule.Type)
	}
}

func TestEventVisibleToCategoryMismatch(t *testing.T) {
	// Viewer enrolled only in a program of category 7; event targets category 5.
	e := Event{AudienceRule: AudienceRule{Type: AudienceSpecificCategories, CategoryIDs: pq.StringArray{"5"}}}
	viewer := AudienceContext{ProgramIDs: []string{"p1"}, CategoryIDs: []string{"7"}}
	assert.False(t, e.VisibleTo(viewer))
}

func TestUpcomingSortedFiltersAndSorts(t *testing.T) {
	today := dates.New(2025, time.June, 1)
	events := []Event{
		{ID: "late", Name: "Late", StartDate: dates.New(2025, time.July, 1)},
		{ID: "stale", Name: "Stale", StartDate: dates.New(2025, time.May, 1)},
		{ID: "archived", Name: "Gone", StartDate: dates.New(2025, time.July, 1), Archived: true},
		{ID: "early", Name: "Early", StartDate: dates.New(2025, time.June, 5)},
		{
			ID:        "spanning",
			Name:      "Spanning",
			StartDate: dates.New(2025, time.May, 1),
			EndDate:   datePtr(2025, time.June, 2),
		},
	}

	got := UpcomingSorted(events, today, 7)
	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"spanning", "early", "late"}, ids)
}

func TestUpcomingSortedLookbackBoundary(t *testing.T) {
	today := dates.New(2025, time.June, 10)
	events := []Event{
		{ID: "exactly", StartDate: dates.New(2025, time.June, 3)},
		{ID: "one-over", StartDate: dates.New(2025, time.June, 2)},
	}
	got := UpcomingSorted(events, today, 7)
	require.Len(t, got, 1)
	assert.Equal(t, "exactly", got[0].ID)
}

func TestUpcomingSortedStableOnTies(t *testing.T) {
	today := dates.New(2025, time.June, 1)
	day := dates.New(2025, time.June, 15)
	events := []Event{
		{ID: "first", StartDate: day},
		{ID: "second", StartDate: day},
		{ID: "third", StartDate: day},
	}
	got := UpcomingSorted(events, today, 7)
	require.Len(t, got, 3)
	assert.Equal(t, "first", got[0].ID)
	assert.Equal(t, "second", got[1].ID)
	assert.Equal(t, "third", got[2].ID)
}

func TestEventMatchesSearch(t *testing.T) {
	addr := "123 Main St"
	e := Event{
		Name:             "Winter Invitational",
		ShortDescription: "Annual meet",
		LongDescription:  "All levels welcome",
		Address:          &addr,
		KeyDetails:       pq.StringArray{"Bring water", "Doors open 8am"},
	}

	assert.True(t, e.MatchesSearch(""))
	assert.True(t, e.MatchesSearch("  "))
	assert.True(t, e.MatchesSearch("invitational"))
	assert.True(t, e.MatchesSearch("MAIN st"))
	assert.True(t, e.MatchesSearch("doors open"))
	assert.False(t, e.MatchesSearch("trampoline"))
}

func TestDateTimeEntryRenderPriority(t *testing.T) {
	day := dates.New(2025, time.June, 15)
	desc := "After the morning session"

	allDay := DateTimeEntry{Date: day, AllDay: true, StartTime: strPtr("09:00"), Description: &desc}
	assert.Equal(t, "June 15, 2025 — All Day", allDay.Render())

	timed := DateTimeEntry{Date: day, StartTime: strPtr("09:00"), EndTime: strPtr("11:00"), Description: &desc}
	assert.Equal(t, "June 15, 2025, 09:00 – 11:00", timed.Render())

	described := DateTimeEntry{Date: day, Description: &desc}
	assert.Equal(t, "June 15, 2025, After the morning session", described.Render())

	bare := DateTimeEntry{Date: day}
	assert.Equal(t, "June 15, 2025", bare.Render())
}

func TestDiffEventsEmitsOneEntryPerChangedField(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	before := Event{
		ID:               "ev1",
		Name:             "Open Gym",
		ShortDescription: "Friday open gym",
		StartDate:        dates.New(2025, time.June, 20),
		KeyDetails:       pq.StringArray{"Ages 6+"},
		AudienceRule:         AudienceRule{Type: AudienceAllClassesAndParents},
	}
	after := before
	after.Name = "Open Gym Night"
	after.KeyDetails = pq.StringArray{"Ages 6+", "Socks required"}

	entries := DiffEvents(before, after, "admin-1", "Jo Admin", now)
	require.Len(t, entries, 2)

	byField := map[string]EditLogEntry{}
	for _, entry := range entries {
		byField[entry.Field] = entry
		assert.Equal(t, "ev1", entry.EventID)
		assert.Equal(t, "admin-1", entry.AdminID)
		assert.Equal(t, now, entry.CreatedAt)
	}

	nameEntry, ok := byField["event_name"]
	require.True(t, ok)
	assert.JSONEq(t, `"Open Gym"`, string(nameEntry.OldValue))
	assert.JSONEq(t, `"Open Gym Night"`, string(nameEntry.NewValue))

	detailsEntry, ok := byField["key_details"]
	require.True(t, ok)
	assert.JSONEq(t, `["Ages 6+","Socks required"]`, string(detailsEntry.NewValue))
}

func TestDiffEventsNoChanges(t *testing.T) {
	e := Event{ID: "ev1", Name: "Open Gym", StartDate: dates.New(2025, time.June, 20)}
	entries := DiffEvents(e, e, "admin-1", "Jo Admin", time.Now())
	assert.Empty(t, entries)
}
