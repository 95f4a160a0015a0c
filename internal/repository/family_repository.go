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

// FamilyRepository handles persistence of families and their athletes.
type FamilyRepository struct {
	db *sqlx.DB
}

// NewFamilyRepository constructs the repository.
func NewFamilyRepository(db *sqlx.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// List returns families filtered by the provided criteria.
func (r *FamilyRepository) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error) {
	base := `FROM families`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(guardian_name) LIKE $%d OR LOWER(email) LIKE $%d)", len(args)+1, len(args)+1))
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

	query := fmt.Sprintf(`SELECT id, guardian_name, email, phone, created_at, updated_at %s ORDER BY guardian_name ASC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var families []models.Family
	if err := r.db.SelectContext(ctx, &families, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list families: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count families: %w", err)
	}
	return families, total, nil
}

// FindByID returns a family by identifier.
func (r *FamilyRepository) FindByID(ctx context.Context, id string) (*models.Family, error) {
	const query = `SELECT id, guardian_name, email, phone, created_at, updated_at FROM families WHERE id = $1`
	var family models.Family
	if err := r.db.GetContext(ctx, &family, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find family: %w", err)
	}
	return &family, nil
}

// Create persists a new family.
func (r *FamilyRepository) Create(ctx context.Context, family *models.Family) error {
	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	family.CreatedAt = now
	family.UpdatedAt = now

	const query = `INSERT INTO families (id, guardian_name, email, phone, created_at, updated_at) VALUES (:id, :guardian_name, :email, :phone, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, family); err != nil {
		return fmt.Errorf("create family: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a family.
func (r *FamilyRepository) Update(ctx context.Context, family *models.Family) error {
	family.UpdatedAt = time.Now().UTC()
	const query = `UPDATE families SET guardian_name = :guardian_name, email = :email, phone = :phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, family); err != nil {
		return fmt.Errorf("update family: %w", err)
	}
	return nil
}

// ListAthletes returns a family's athletes ordered by name.
func (r *FamilyRepository) ListAthletes(ctx context.Context, familyID string) ([]models.Athlete, error) {
	const query = `SELECT id, family_id, full_name, birth_date, created_at, updated_at FROM athletes WHERE family_id = $1 ORDER BY full_name ASC`
	var athletes []models.Athlete
	if err := r.db.SelectContext(ctx, &athletes, query, familyID); err != nil {
		return nil, fmt.Errorf("list athletes: %w", err)
	}
	return athletes, nil
}

// FindAthleteByID returns an athlete by identifier.
func (r *FamilyRepository) FindAthleteByID(ctx context.Context, id string) (*models.Athlete, error) {
	const query = `SELECT id, family_id, full_name, birth_date, created_at, updated_at FROM athletes WHERE id = $1`
	var athlete models.Athlete
	if err := r.db.GetContext(ctx, &athlete, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find athlete: %w", err)
	}
	return &athlete, nil
}

// CreateAthlete persists a new athlete under a family.
func (r *FamilyRepository) CreateAthlete(ctx context.Context, athlete *models.Athlete) error {
	if athlete.ID == "" {
		athlete.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	athlete.CreatedAt = now
	athlete.UpdatedAt = now

	const query = `INSERT INTO athletes (id, family_id, full_name, birth_date, created_at, updated_at) VALUES (:id, :family_id, :full_name, :birth_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, athlete); err != nil {
		return fmt.Errorf("create athlete: %w", err)
	}
	return nil
}

// UpdateAthlete replaces the mutable fields of an athlete.
func (r *FamilyRepository) UpdateAthlete(ctx context.Context, athlete *models.Athlete) error {
	athlete.UpdatedAt = time.Now().UTC()
	const query = `UPDATE athletes SET full_name = :full_name, birth_date = :birth_date, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, athlete); err != nil {
		return fmt.Errorf("update athlete: %w", err)
	}
	return nil
}
