package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/tumblelab/gym-api/pkg/dates"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

// AudienceType tags which families an event targets.
type AudienceType string

const (
	AudienceAllClassesAndParents AudienceType = "ALL_CLASSES_AND_PARENTS"
	AudienceSpecificClasses      AudienceType = "SPECIFIC_CLASSES"
	AudienceSpecificCategories   AudienceType = "SPECIFIC_CATEGORIES"
	AudienceAllParents           AudienceType = "ALL_PARENTS"
	AudienceBoosters             AudienceType = "BOOSTERS"
	AudienceVolunteers           AudienceType = "VOLUNTEERS"
)

// AudienceRule is the targeting rule controlling which families see an
// event. ProgramIDs applies to SPECIFIC_CLASSES, CategoryIDs to
// SPECIFIC_CATEGORIES; both are empty otherwise.
type AudienceRule struct {
	Type        AudienceType   `db:"audience_type" json:"type"`
	ProgramIDs  pq.StringArray `db:"audience_program_ids" json:"program_ids,omitempty"`
	CategoryIDs pq.StringArray `db:"audience_category_ids" json:"category_ids,omitempty"`
}

// AudienceContext describes a viewer's memberships, derived from the
// family's active enrollments.
type AudienceContext struct {
	ProgramIDs  []string
	CategoryIDs []string
}

// DateTimeEntry is one occurrence within an event. Exactly one presentation
// mode governs rendering, chosen by priority:
// all-day > explicit time range > description > bare date.
type DateTimeEntry struct {
	Date        dates.CalendarDate `db:"entry_date" json:"date"`
	AllDay      bool               `db:"all_day" json:"all_day,omitempty"`
	StartTime   *string            `db:"start_time" json:"start_time,omitempty"`
	EndTime     *string            `db:"end_time" json:"end_time,omitempty"`
	Description *string            `db:"description" json:"description,omitempty"`
	Position    int                `db:"position" json:"-"`
}

// Render produces the display string for this occurrence.
func (e DateTimeEntry) Render() string {
	day := e.Date.Display()
	switch {
	case e.AllDay:
		return fmt.Sprintf("%s — All Day", day)
	case e.StartTime != nil && e.EndTime != nil:
		return fmt.Sprintf("%s, %s – %s", day, *e.StartTime, *e.EndTime)
	case e.StartTime != nil:
		return fmt.Sprintf("%s, %s", day, *e.StartTime)
	case e.Description != nil && *e.Description != "":
		return fmt.Sprintf("%s, %s", day, *e.Description)
	default:
		return day
	}
}

// Event is a read-board calendar item with audience targeting and an
// append-only edit history.
type Event struct {
	ID               string              `db:"id" json:"id"`
	Name             string              `db:"event_name" json:"event_name"`
	ShortDescription string              `db:"short_description" json:"short_description"`
	LongDescription  string              `db:"long_description" json:"long_description"`
	StartDate        dates.CalendarDate  `db:"start_date" json:"start_date"`
	EndDate          *dates.CalendarDate `db:"end_date" json:"end_date,omitempty"`
	Occurrences      []DateTimeEntry     `db:"-" json:"dates_and_times"`
	KeyDetails       pq.StringArray      `db:"key_details" json:"key_details"`
	Address          *string             `db:"address" json:"address,omitempty"`
	Archived         bool                `db:"archived" json:"archived"`
	AudienceRule     `json:"audience"`
	CreatedBy        string              `db:"created_by" json:"created_by"`
	CreatedAt        time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at" json:"updated_at"`
}

// Validate rejects structurally invalid events. An end date before the start
// date is a data-entry defect and is never silently swapped.
func (e Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "event name is required")
	}
	if e.StartDate.IsZero() {
		return appErrors.Clone(appErrors.ErrValidation, "event start date is required")
	}
	if e.EndDate != nil && !e.EndDate.IsZero() && e.EndDate.Before(e.StartDate) {
		return appErrors.ErrInvalidDateRange
	}
	switch e.AudienceRule.Type {
	case AudienceAllClassesAndParents, AudienceAllParents, AudienceBoosters, AudienceVolunteers:
	case AudienceSpecificClasses:
		if len(e.AudienceRule.ProgramIDs) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "class-targeted events require at least one program")
		}
	case AudienceSpecificCategories:
		if len(e.AudienceRule.CategoryIDs) == 0 {
			return appErrors.Clone(appErrors.ErrValidation, "category-targeted events require at least one category")
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown audience type %q", e.AudienceRule.Type))
	}
	return nil
}

// EffectiveEndDate is the end date when set, otherwise the start date.
func (e Event) EffectiveEndDate() dates.CalendarDate {
	if e.EndDate != nil && !e.EndDate.IsZero() {
		return *e.EndDate
	}
	return e.StartDate
}

// IsUpcoming reports whether the event still belongs on the board: its
// effective end date is no more than lookbackDays in the past.
func (e Event) IsUpcoming(today dates.CalendarDate, lookbackDays int) bool {
	cutoff := today.AddDays(-lookbackDays)
	end := e.EffectiveEndDate()
	return end.Equal(cutoff) || end.After(cutoff)
}

// VisibleTo evaluates the event's audience rule against the viewer's
// memberships. Boosters and Volunteers are reserved variants and never
// resolve true.
func (e Event) VisibleTo(viewer AudienceContext) bool {
	switch e.AudienceRule.Type {
	case AudienceAllClassesAndParents, AudienceAllParents:
		return true
	case AudienceSpecificClasses:
		for _, id := range e.AudienceRule.ProgramIDs {
			for _, member := range viewer.ProgramIDs {
				if id == member {
					return true
				}
			}
		}
		return false
	case AudienceSpecificCategories:
		for _, id := range e.AudienceRule.CategoryIDs {
			for _, member := range viewer.CategoryIDs {
				if id == member {
					return true
				}
			}
		}
		return false
	default:
		// Boosters, Volunteers, and anything unknown.
		return false
	}
}

// MatchesSearch does a case-insensitive substring match against the event's
// searchable text. An empty query always matches.
func (e Event) MatchesSearch(query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	parts := []string{e.Name, e.ShortDescription, e.LongDescription}
	if e.Address != nil {
		parts = append(parts, *e.Address)
	}
	parts = append(parts, e.KeyDetails...)
	haystack := strings.ToLower(strings.Join(parts, " "))
	return strings.Contains(haystack, strings.ToLower(query))
}

// UpcomingSorted filters out archived and stale events and sorts the
// remainder ascending by start date. The sort is stable: events sharing a
// start date keep their original relative order.
func UpcomingSorted(events []Event, today dates.CalendarDate, lookbackDays int) []Event {
	upcoming := make([]Event, 0, len(events))
	for _, e := range events {
		if e.Archived {
			continue
		}
		if !e.IsUpcoming(today, lookbackDays) {
			continue
		}
		upcoming = append(upcoming, e)
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].StartDate.Before(upcoming[j].StartDate)
	})
	return upcoming
}

// EventFilter narrows admin event listings.
type EventFilter struct {
	IncludeArchived bool
	Search          string
	Page            int
	PageSize        int
}

// EditLogEntry is one field-level change in an event's append-only audit
// trail. Values are captured as structured JSON so differences can be
// rendered structurally later.
type EditLogEntry struct {
	ID        string          `db:"id" json:"id"`
	EventID   string          `db:"event_id" json:"event_id"`
	Field     string          `db:"field" json:"field"`
	OldValue  json.RawMessage `db:"old_value" json:"old_value"`
	NewValue  json.RawMessage `db:"new_value" json:"new_value"`
	AdminID   string          `db:"admin_id" json:"admin_id"`
	AdminName string          `db:"admin_name" json:"admin_name"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// DiffEvents emits one EditLogEntry per field that differs between the two
// event states. Entries are appended to the log, never rewritten.
func DiffEvents(before, after Event, adminID, adminName string, now time.Time) []EditLogEntry {
	fields := []struct {
		name   string
		before interface{}
		after  interface{}
	}{
		{"event_name", before.Name, after.Name},
		{"short_description", before.ShortDescription, after.ShortDescription},
		{"long_description", before.LongDescription, after.LongDescription},
		{"start_date", before.StartDate, after.StartDate},
		{"end_date", before.EndDate, after.EndDate},
		{"dates_and_times", before.Occurrences, after.Occurrences},
		{"key_details", before.KeyDetails, after.KeyDetails},
		{"address", before.Address, after.Address},
		{"archived", before.Archived, after.Archived},
		{"audience", before.AudienceRule, after.AudienceRule},
	}

	var entries []EditLogEntry
	for _, f := range fields {
		oldRaw, err := json.Marshal(f.before)
		if err != nil {
			continue
		}
		newRaw, err := json.Marshal(f.after)
		if err != nil {
			continue
		}
		if bytes.Equal(oldRaw, newRaw) {
			continue
		}
		entries = append(entries, EditLogEntry{
			EventID:   after.ID,
			Field:     f.name,
			OldValue:  oldRaw,
			NewValue:  newRaw,
			AdminID:   adminID,
			AdminName: adminName,
			CreatedAt: now,
		})
	}
	return entries
}
