package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/tumblelab/gym-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestEnrollmentRepositoryListActiveByIteration(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "athlete_id", "iteration_id", "days_per_week", "selected_days", "status", "joined_at", "cancelled_at"}).
		AddRow("enr-1", "ath-1", "iter-1", 2, pq.StringArray{"Monday", "Wednesday"}, models.EnrollmentStatusActive, time.Now(), nil)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, athlete_id, iteration_id, days_per_week, selected_days, status, joined_at, cancelled_at FROM enrollments WHERE iteration_id = $1 AND status = $2")).
		WithArgs("iter-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	enrollments, err := repo.ListActiveByIteration(context.Background(), "iter-1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	require.Equal(t, []string{"Monday", "Wednesday"}, []string(enrollments[0].SelectedDays))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryActiveMemberships(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := sqlmock.NewRows([]string{"program_id", "category_id"}).
		AddRow("prog-1", "cat-1").
		AddRow("prog-2", "cat-1")
	mock.ExpectQuery("SELECT DISTINCT p.id AS program_id, p.category_id AS category_id").
		WithArgs("fam-1", models.EnrollmentStatusActive).
		WillReturnRows(rows)

	memberships, err := repo.ActiveMemberships(context.Background(), "fam-1")
	require.NoError(t, err)
	require.Len(t, memberships, 2)
	require.Equal(t, "prog-1", memberships[0].ProgramID)
	require.Equal(t, "cat-1", memberships[0].CategoryID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryExistsActiveNoRows(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM enrollments WHERE athlete_id = $1 AND iteration_id = $2 AND status = $3 LIMIT 1")).
		WithArgs("ath-1", "iter-1", models.EnrollmentStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err := repo.ExistsActive(context.Background(), "ath-1", "iter-1")
	require.NoError(t, err)
	require.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnResult(sqlmock.NewResult(0, 1))

	enrollment := &models.Enrollment{
		AthleteID:    "ath-1",
		IterationID:  "iter-1",
		DaysPerWeek:  2,
		SelectedDays: pq.StringArray{"Monday", "Wednesday"},
	}
	err := repo.Create(context.Background(), enrollment)
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.ID)
	require.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
