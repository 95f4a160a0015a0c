package repository

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/tumblelab/gym-api/internal/models"
	"github.com/tumblelab/gym-api/pkg/dates"
)

func TestEventRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now()
	eventRows := sqlmock.NewRows([]string{"id", "event_name", "short_description", "long_description", "start_date", "end_date", "key_details", "address", "archived", "audience_type", "audience_program_ids", "audience_category_ids", "created_by", "created_at", "updated_at"}).
		AddRow("evt-1", "Winter Showcase", "Annual showcase", "", time.Date(2025, 12, 12, 0, 0, 0, 0, time.UTC), nil, pq.StringArray{"Doors open at 5"}, nil, false, models.AudienceAllClassesAndParents, pq.StringArray{}, pq.StringArray{}, "usr-1", now, now)
	mock.ExpectQuery("SELECT (.+) FROM events WHERE id = \\$1").
		WithArgs("evt-1").
		WillReturnRows(eventRows)

	occRows := sqlmock.NewRows([]string{"entry_date", "all_day", "start_time", "end_time", "description", "position"}).
		AddRow(time.Date(2025, 12, 12, 0, 0, 0, 0, time.UTC), false, "17:00", "19:00", nil, 0)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT entry_date, all_day, start_time, end_time, description, position FROM event_dates WHERE event_id = $1 ORDER BY position ASC")).
		WithArgs("evt-1").
		WillReturnRows(occRows)

	event, err := repo.FindByID(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Equal(t, "Winter Showcase", event.Name)
	require.Equal(t, "2025-12-12", event.StartDate.Input())
	require.Len(t, event.Occurrences, 1)
	require.Equal(t, "December 12, 2025, 17:00 – 19:00", event.Occurrences[0].Render())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM event_dates WHERE event_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO event_dates").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	event := &models.Event{
		Name:      "Parents Night",
		StartDate: dates.New(2026, time.March, 5),
		AudienceRule:  models.AudienceRule{Type: models.AudienceAllParents},
		CreatedBy: "usr-1",
		Occurrences: []models.DateTimeEntry{
			{Date: dates.New(2026, time.March, 5), AllDay: true},
		},
	}
	err := repo.Create(context.Background(), event)
	require.NoError(t, err)
	require.NotEmpty(t, event.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryUpdateAppendsEditLog(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE events SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM event_dates WHERE event_id = $1")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO event_edit_log").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	event := &models.Event{
		ID:        "evt-1",
		Name:      "Parents Night (rescheduled)",
		StartDate: dates.New(2026, time.March, 12),
		AudienceRule:  models.AudienceRule{Type: models.AudienceAllParents},
	}
	entries := []models.EditLogEntry{
		{
			EventID:   "evt-1",
			Field:     "event_name",
			OldValue:  json.RawMessage(`"Parents Night"`),
			NewValue:  json.RawMessage(`"Parents Night (rescheduled)"`),
			AdminID:   "usr-1",
			AdminName: "Dana Admin",
			CreatedAt: time.Now(),
		},
	}
	err := repo.Update(context.Background(), event, entries)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepositoryListEditLog(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEventRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "event_id", "field", "old_value", "new_value", "admin_id", "admin_name", "created_at"}).
		AddRow("log-2", "evt-1", "start_date", []byte(`"2026-03-05"`), []byte(`"2026-03-12"`), "usr-1", "Dana Admin", now).
		AddRow("log-1", "evt-1", "event_name", []byte(`"Parents Night"`), []byte(`"Parents Night (rescheduled)"`), "usr-1", "Dana Admin", now.Add(-time.Hour))
	mock.ExpectQuery("SELECT (.+) FROM event_edit_log WHERE event_id = \\$1 ORDER BY created_at DESC").
		WithArgs("evt-1").
		WillReturnRows(rows)

	entries, err := repo.ListEditLog(context.Background(), "evt-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "start_date", entries[0].Field)
	require.NoError(t, mock.ExpectationsWereMet())
}
