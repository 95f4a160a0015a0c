package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tumblelab/gym-api/internal/models"
)

// IterationRepository handles persistence of class iterations.
type IterationRepository struct {
	db *sqlx.DB
}

// NewIterationRepository constructs the repository.
func NewIterationRepository(db *sqlx.DB) *IterationRepository {
	return &IterationRepository{db: db}
}

const iterationColumns = `id, program_id, iteration_number, days_of_week, start_time, end_time, duration_type, start_date, end_date, created_at, updated_at`

// ListByProgram returns a program's iterations ordered by iteration number.
func (r *IterationRepository) ListByProgram(ctx context.Context, programID string) ([]models.Iteration, error) {
	query := fmt.Sprintf(`SELECT %s FROM iterations WHERE program_id = $1 ORDER BY iteration_number ASC`, iterationColumns)
	var iterations []models.Iteration
	if err := r.db.SelectContext(ctx, &iterations, query, programID); err != nil {
		return nil, fmt.Errorf("list iterations: %w", err)
	}
	return iterations, nil
}

// FindByID returns an iteration by identifier.
func (r *IterationRepository) FindByID(ctx context.Context, id string) (*models.Iteration, error) {
	query := fmt.Sprintf(`SELECT %s FROM iterations WHERE id = $1`, iterationColumns)
	var iteration models.Iteration
	if err := r.db.GetContext(ctx, &iteration, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find iteration: %w", err)
	}
	return &iteration, nil
}

// FindDetailByID returns an iteration with its program name.
func (r *IterationRepository) FindDetailByID(ctx context.Context, id string) (*models.IterationDetail, error) {
	const query = `SELECT i.id, i.program_id, i.iteration_number, i.days_of_week, i.start_time, i.end_time, i.duration_type, i.start_date, i.end_date, i.created_at, i.updated_at,
        COALESCE(p.name, '') AS program_name
        FROM iterations i
        LEFT JOIN programs p ON p.id = i.program_id
        WHERE i.id = $1`
	var detail models.IterationDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find iteration detail: %w", err)
	}
	return &detail, nil
}

// NextIterationNumber returns the next sequence index for a program.
func (r *IterationRepository) NextIterationNumber(ctx context.Context, programID string) (int, error) {
	const query = `SELECT COALESCE(MAX(iteration_number), 0) + 1 FROM iterations WHERE program_id = $1`
	var next int
	if err := r.db.GetContext(ctx, &next, query, programID); err != nil {
		return 0, fmt.Errorf("next iteration number: %w", err)
	}
	return next, nil
}

// Create persists a new iteration.
func (r *IterationRepository) Create(ctx context.Context, iteration *models.Iteration) error {
	if iteration.ID == "" {
		iteration.ID = uuid.NewString()
	}
	const query = `INSERT INTO iterations (id, program_id, iteration_number, days_of_week, start_time, end_time, duration_type, start_date, end_date, created_at, updated_at)
        VALUES (:id, :program_id, :iteration_number, :days_of_week, :start_time, :end_time, :duration_type, :start_date, :end_date, NOW(), NOW())`
	if _, err := r.db.NamedExecContext(ctx, query, iteration); err != nil {
		return fmt.Errorf("create iteration: %w", err)
	}
	return nil
}

// Replace updates an iteration as a full-record replacement. Administrative
// edits always write the whole schedule definition.
func (r *IterationRepository) Replace(ctx context.Context, iteration *models.Iteration) error {
	const query = `UPDATE iterations SET days_of_week = :days_of_week, start_time = :start_time, end_time = :end_time, duration_type = :duration_type, start_date = :start_date, end_date = :end_date, updated_at = NOW() WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, iteration); err != nil {
		return fmt.Errorf("replace iteration: %w", err)
	}
	return nil
}

// Delete removes an iteration.
func (r *IterationRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM iterations WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete iteration: %w", err)
	}
	return nil
}

// TruncateSelections trims each listed enrollment's selected days. Used when
// an iteration edit removes offered days; the caller decides which days
// survive per enrollment and days_per_week follows the surviving count.
func (r *IterationRepository) TruncateSelections(ctx context.Context, updates map[string][]string) error {
	if len(updates) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin truncate selections: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const query = `UPDATE enrollments SET selected_days = $2, days_per_week = $3 WHERE id = $1`
	for enrollmentID, days := range updates {
		if _, err := tx.ExecContext(ctx, query, enrollmentID, pq.StringArray(days), len(days)); err != nil {
			return fmt.Errorf("truncate selection for enrollment %s: %w", enrollmentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit truncate selections: %w", err)
	}
	return nil
}
