package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tumblelab/gym-api/internal/models"
)

// EventRepository handles persistence of events, their occurrences, and the
// append-only edit log.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, event_name, short_description, long_description, start_date, end_date, key_details, address, archived, audience_type, audience_program_ids, audience_category_ids, created_by, created_at, updated_at`

// List returns events for the admin listing with total count. Occurrences are
// loaded for the returned page.
func (r *EventRepository) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	base := `FROM events`
	var conditions []string
	var args []interface{}

	if !filter.IncludeArchived {
		conditions = append(conditions, "archived = FALSE")
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(event_name) LIKE $%d OR LOWER(short_description) LIKE $%d OR LOWER(long_description) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY start_date DESC LIMIT %d OFFSET %d`, eventColumns, base+clause, size, offset)

	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list events: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count events: %w", err)
	}

	if err := r.attachOccurrences(ctx, events); err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// ListAll returns every non-archived event with occurrences. The board service
// filters and sorts in memory against the viewer's calendar date.
func (r *EventRepository) ListAll(ctx context.Context) ([]models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE archived = FALSE ORDER BY start_date ASC`, eventColumns)
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query); err != nil {
		return nil, fmt.Errorf("list all events: %w", err)
	}
	if err := r.attachOccurrences(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

// FindByID returns an event with its occurrences.
func (r *EventRepository) FindByID(ctx context.Context, id string) (*models.Event, error) {
	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}

	occurrences, err := r.listOccurrences(ctx, id)
	if err != nil {
		return nil, err
	}
	event.Occurrences = occurrences
	return &event, nil
}

// Create persists an event and its occurrences in one transaction.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	event.CreatedAt = now
	event.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create event: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `INSERT INTO events (id, event_name, short_description, long_description, start_date, end_date, key_details, address, archived, audience_type, audience_program_ids, audience_category_ids, created_by, created_at, updated_at)
        VALUES (:id, :event_name, :short_description, :long_description, :start_date, :end_date, :key_details, :address, :archived, :audience_type, :audience_program_ids, :audience_category_ids, :created_by, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	if err := replaceOccurrences(ctx, tx, event.ID, event.Occurrences); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create event: %w", err)
	}
	return nil
}

// Update replaces the event record and its occurrences and appends the
// supplied edit-log entries, all in one transaction.
func (r *EventRepository) Update(ctx context.Context, event *models.Event, entries []models.EditLogEntry) error {
	event.UpdatedAt = time.Now().UTC()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update event: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE events SET event_name = :event_name, short_description = :short_description, long_description = :long_description, start_date = :start_date, end_date = :end_date, key_details = :key_details, address = :address, archived = :archived, audience_type = :audience_type, audience_program_ids = :audience_program_ids, audience_category_ids = :audience_category_ids, updated_at = :updated_at WHERE id = :id`
	if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if err := replaceOccurrences(ctx, tx, event.ID, event.Occurrences); err != nil {
		return err
	}
	if err := appendEditLog(ctx, tx, entries); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update event: %w", err)
	}
	return nil
}

// SetArchived flips the archive flag and appends the matching edit-log
// entries.
func (r *EventRepository) SetArchived(ctx context.Context, id string, archived bool, entries []models.EditLogEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive event: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `UPDATE events SET archived = $2, updated_at = $3 WHERE id = $1`, id, archived, time.Now().UTC()); err != nil {
		return fmt.Errorf("archive event: %w", err)
	}
	if err := appendEditLog(ctx, tx, entries); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive event: %w", err)
	}
	return nil
}

// ListEditLog returns an event's edit history, newest first.
func (r *EventRepository) ListEditLog(ctx context.Context, eventID string) ([]models.EditLogEntry, error) {
	const query = `SELECT id, event_id, field, old_value, new_value, admin_id, admin_name, created_at FROM event_edit_log WHERE event_id = $1 ORDER BY created_at DESC, id DESC`
	var entries []models.EditLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, eventID); err != nil {
		return nil, fmt.Errorf("list event edit log: %w", err)
	}
	return entries, nil
}

func (r *EventRepository) listOccurrences(ctx context.Context, eventID string) ([]models.DateTimeEntry, error) {
	const query = `SELECT entry_date, all_day, start_time, end_time, description, position FROM event_dates WHERE event_id = $1 ORDER BY position ASC`
	var occurrences []models.DateTimeEntry
	if err := r.db.SelectContext(ctx, &occurrences, query, eventID); err != nil {
		return nil, fmt.Errorf("list event occurrences: %w", err)
	}
	return occurrences, nil
}

func (r *EventRepository) attachOccurrences(ctx context.Context, events []models.Event) error {
	for i := range events {
		occurrences, err := r.listOccurrences(ctx, events[i].ID)
		if err != nil {
			return err
		}
		events[i].Occurrences = occurrences
	}
	return nil
}

// replaceOccurrences rewrites the full occurrence list. Entries are stored
// with an explicit position so admin-entered ordering survives reloads.
func replaceOccurrences(ctx context.Context, tx *sqlx.Tx, eventID string, occurrences []models.DateTimeEntry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM event_dates WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("clear event occurrences: %w", err)
	}
	const query = `INSERT INTO event_dates (id, event_id, entry_date, all_day, start_time, end_time, description, position) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for i, occ := range occurrences {
		if _, err := tx.ExecContext(ctx, query, uuid.NewString(), eventID, occ.Date, occ.AllDay, occ.StartTime, occ.EndTime, occ.Description, i); err != nil {
			return fmt.Errorf("insert event occurrence: %w", err)
		}
	}
	return nil
}

func appendEditLog(ctx context.Context, tx *sqlx.Tx, entries []models.EditLogEntry) error {
	const query = `INSERT INTO event_edit_log (id, event_id, field, old_value, new_value, admin_id, admin_name, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, entry := range entries {
		id := entry.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err := tx.ExecContext(ctx, query, id, entry.EventID, entry.Field, entry.OldValue, entry.NewValue, entry.AdminID, entry.AdminName, entry.CreatedAt); err != nil {
			return fmt.Errorf("append edit log entry: %w", err)
		}
	}
	return nil
}
