package models

import (
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/tumblelab/gym-api/pkg/dates"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

// DurationType tags how long an iteration runs. The values match the stored
// representation.
type DurationType string

const (
	DurationIndefinite DurationType = "indefinite"
	DurationBlock      DurationType = "3_month_block"
	DurationFinite     DurationType = "finite"
)

// Iteration is one weekly recurring offering of a program, e.g.
// "Tornadoes Monday/Wednesday 16:00-17:30".
type Iteration struct {
	ID              string              `db:"id" json:"id"`
	ProgramID       string              `db:"program_id" json:"program_id"`
	IterationNumber int                 `db:"iteration_number" json:"iteration_number"`
	DaysOfWeek      pq.Int64Array       `db:"days_of_week" json:"days_of_week"`
	StartTime       *string             `db:"start_time" json:"start_time,omitempty"`
	EndTime         *string             `db:"end_time" json:"end_time,omitempty"`
	DurationType    DurationType        `db:"duration_type" json:"duration_type"`
	StartDate       *dates.CalendarDate `db:"start_date" json:"start_date,omitempty"`
	EndDate         *dates.CalendarDate `db:"end_date" json:"end_date,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// IterationDetail enriches Iteration with program context.
type IterationDetail struct {
	Iteration
	ProgramName string `db:"program_name" json:"program_name"`
}

// Validate checks the structural invariants of an iteration definition.
func (i Iteration) Validate() error {
	if len(i.DaysOfWeek) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "at least one day of week is required")
	}
	seen := map[int64]bool{}
	for _, d := range i.DaysOfWeek {
		if d < 0 || d > 6 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("day index %d out of range 0-6", d))
		}
		if seen[d] {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate day index %d", d))
		}
		seen[d] = true
	}
	if i.StartTime != nil && i.EndTime != nil && *i.EndTime <= *i.StartTime {
		return appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	switch i.DurationType {
	case DurationIndefinite:
	case DurationBlock:
		if i.StartDate == nil {
			return appErrors.Clone(appErrors.ErrValidation, "block iterations require a start date")
		}
	case DurationFinite:
		if i.StartDate != nil && i.EndDate != nil && i.EndDate.Before(*i.StartDate) {
			return appErrors.Clone(appErrors.ErrInvalidDateRange, "iteration end date precedes start date")
		}
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown duration type %q", i.DurationType))
	}
	return nil
}

// ValidDays maps the stored day indices through the Sunday-first name table,
// preserving the stored order. Out-of-range indices are skipped.
func (i Iteration) ValidDays() []string {
	names := make([]string, 0, len(i.DaysOfWeek))
	for _, idx := range i.DaysOfWeek {
		if name, ok := dates.DayName(int(idx)); ok {
			names = append(names, name)
		}
	}
	return names
}

// OffersDay reports whether the iteration runs on the named weekday.
func (i Iteration) OffersDay(name string) bool {
	idx, ok := dates.DayIndex(name)
	if !ok {
		return false
	}
	for _, d := range i.DaysOfWeek {
		if int(d) == idx {
			return true
		}
	}
	return false
}

// DescribeDuration renders the human description of the iteration's run.
func (i Iteration) DescribeDuration() string {
	switch i.DurationType {
	case DurationBlock:
		if i.StartDate != nil {
			return fmt.Sprintf("3-Month Block starting %s", i.StartDate.Display())
		}
		return "3-Month Block"
	case DurationFinite:
		if i.StartDate != nil && i.EndDate != nil {
			return fmt.Sprintf("%s – %s", i.StartDate.Display(), i.EndDate.Display())
		}
		if i.StartDate != nil {
			return fmt.Sprintf("Starting %s", i.StartDate.Display())
		}
		return "Finite"
	default:
		return "Indefinite"
	}
}

// ValidateSelection checks an enrollment day selection against this
// iteration. The selection must be non-empty, sized exactly daysPerWeek, and
// every selected day must be one the iteration offers.
func (i Iteration) ValidateSelection(selectedDays []string, daysPerWeek int) error {
	if len(selectedDays) == 0 {
		return appErrors.ErrEmptySelection
	}
	if len(selectedDays) != daysPerWeek {
		return appErrors.Clone(appErrors.ErrDaysCountMismatch,
			fmt.Sprintf("%d days selected but %d days per week requested", len(selectedDays), daysPerWeek))
	}
	for _, day := range selectedDays {
		if !i.OffersDay(day) {
			return appErrors.Clone(appErrors.ErrDayNotOffered,
				fmt.Sprintf("%s is not offered by this class", day))
		}
	}
	return nil
}

// IterationFilter narrows iteration listings.
type IterationFilter struct {
	ProgramID string
	Page      int
	PageSize  int
}
