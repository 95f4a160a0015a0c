package models

import (
	"time"

	"github.com/tumblelab/gym-api/pkg/dates"
)

// Family is a household account: one guardian contact plus its athletes.
type Family struct {
	ID           string    `db:"id" json:"id"`
	GuardianName string    `db:"guardian_name" json:"guardian_name"`
	Email        string    `db:"email" json:"email"`
	Phone        string    `db:"phone" json:"phone"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Athlete is a family member who can be enrolled in class iterations.
type Athlete struct {
	ID        string              `db:"id" json:"id"`
	FamilyID  string              `db:"family_id" json:"family_id"`
	FullName  string              `db:"full_name" json:"full_name"`
	BirthDate *dates.CalendarDate `db:"birth_date" json:"birth_date,omitempty"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

// Age returns the athlete's whole-year age on the given date, or nil when the
// birth date is unknown.
func (a Athlete) Age(today dates.CalendarDate) *int {
	if a.BirthDate == nil || a.BirthDate.IsZero() {
		return nil
	}
	age := dates.Age(*a.BirthDate, today)
	return &age
}

// IsAdult reports whether the athlete is 18 or older on the given date.
// Unknown birth dates count as adult.
func (a Athlete) IsAdult(today dates.CalendarDate) bool {
	return dates.IsAdult(a.BirthDate, today)
}

// FamilyFilter narrows family listings.
type FamilyFilter struct {
	Search   string
	Page     int
	PageSize int
}
