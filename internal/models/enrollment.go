package models

import (
	"time"

	"github.com/lib/pq"
)

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive    EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCancelled EnrollmentStatus = "CANCELLED"
)

// Enrollment captures an athlete's commitment to a class iteration,
// including which of the iteration's weekdays were picked.
type Enrollment struct {
	ID           string           `db:"id" json:"id"`
	AthleteID    string           `db:"athlete_id" json:"athlete_id"`
	IterationID  string           `db:"iteration_id" json:"iteration_id"`
	DaysPerWeek  int              `db:"days_per_week" json:"days_per_week"`
	SelectedDays pq.StringArray   `db:"selected_days" json:"selected_days"`
	Status       EnrollmentStatus `db:"status" json:"status"`
	JoinedAt     time.Time        `db:"joined_at" json:"joined_at"`
	CancelledAt  *time.Time       `db:"cancelled_at" json:"cancelled_at,omitempty"`
}

// EnrollmentDetail enriches Enrollment with athlete and program info.
type EnrollmentDetail struct {
	Enrollment
	AthleteName string `db:"athlete_name" json:"athlete_name"`
	FamilyID    string `db:"family_id" json:"family_id"`
	ProgramID   string `db:"program_id" json:"program_id"`
	ProgramName string `db:"program_name" json:"program_name"`
	CategoryID  string `db:"category_id" json:"category_id"`
}

// Membership names the program and category an active enrollment grants
// access to. Event audience resolution consumes these.
type Membership struct {
	ProgramID  string `db:"program_id" json:"program_id"`
	CategoryID string `db:"category_id" json:"category_id"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	AthleteID   string
	IterationID string
	FamilyID    string
	Status      EnrollmentStatus
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
