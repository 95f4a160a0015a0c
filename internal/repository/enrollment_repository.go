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

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `e.id, e.athlete_id, e.iteration_id, e.days_per_week, e.selected_days, e.status, e.joined_at, e.cancelled_at,
        a.full_name AS athlete_name, a.family_id AS family_id, p.id AS program_id, p.name AS program_name, p.category_id AS category_id`

const enrollmentDetailBase = `FROM enrollments e
LEFT JOIN athletes a ON a.id = e.athlete_id
LEFT JOIN iterations i ON i.id = e.iteration_id
LEFT JOIN programs p ON p.id = i.program_id`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.AthleteID != "" {
		conditions = append(conditions, fmt.Sprintf("e.athlete_id = $%d", len(args)+1))
		args = append(args, filter.AthleteID)
	}
	if filter.IterationID != "" {
		conditions = append(conditions, fmt.Sprintf("e.iteration_id = $%d", len(args)+1))
		args = append(args, filter.IterationID)
	}
	if filter.FamilyID != "" {
		conditions = append(conditions, fmt.Sprintf("a.family_id = $%d", len(args)+1))
		args = append(args, filter.FamilyID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"joined_at":    "e.joined_at",
		"athlete_name": "a.full_name",
		"program_name": "p.name",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.joined_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		enrollmentDetailColumns, enrollmentDetailBase+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", enrollmentDetailBase+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, athlete_id, iteration_id, days_per_week, selected_days, status, joined_at, cancelled_at FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with contextual info.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE e.id = $1`, enrollmentDetailColumns, enrollmentDetailBase)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsActive checks if the athlete already has an active enrollment in the
// iteration.
func (r *EnrollmentRepository) ExistsActive(ctx context.Context, athleteID, iterationID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE athlete_id = $1 AND iteration_id = $2 AND status = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, athleteID, iterationID, models.EnrollmentStatusActive); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check active enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now().UTC()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	const query = `INSERT INTO enrollments (id, athlete_id, iteration_id, days_per_week, selected_days, status, joined_at, cancelled_at)
        VALUES (:id, :athlete_id, :iteration_id, :days_per_week, :selected_days, :status, :joined_at, :cancelled_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus updates status and cancelled_at for an enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, cancelledAt *time.Time) error {
	const query = `UPDATE enrollments SET status = $2, cancelled_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, cancelledAt); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// ListActiveByIteration returns active enrollments for one iteration.
func (r *EnrollmentRepository) ListActiveByIteration(ctx context.Context, iterationID string) ([]models.Enrollment, error) {
	const query = `SELECT id, athlete_id, iteration_id, days_per_week, selected_days, status, joined_at, cancelled_at FROM enrollments WHERE iteration_id = $1 AND status = $2`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, iterationID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list iteration enrollments: %w", err)
	}
	return enrollments, nil
}

// ActiveMemberships returns the distinct program/category pairs a family's
// active enrollments grant. Event audience resolution consumes these.
func (r *EnrollmentRepository) ActiveMemberships(ctx context.Context, familyID string) ([]models.Membership, error) {
	const query = `SELECT DISTINCT p.id AS program_id, p.category_id AS category_id
        FROM enrollments e
        JOIN athletes a ON a.id = e.athlete_id
        JOIN iterations i ON i.id = e.iteration_id
        JOIN programs p ON p.id = i.program_id
        WHERE a.family_id = $1 AND e.status = $2`
	var memberships []models.Membership
	if err := r.db.SelectContext(ctx, &memberships, query, familyID, models.EnrollmentStatusActive); err != nil {
		return nil, fmt.Errorf("list family memberships: %w", err)
	}
	return memberships, nil
}
