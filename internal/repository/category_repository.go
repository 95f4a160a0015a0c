package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tumblelab/gym-api/internal/models"
)

// CategoryRepository handles persistence of program categories.
type CategoryRepository struct {
	db *sqlx.DB
}

// NewCategoryRepository constructs the repository.
func NewCategoryRepository(db *sqlx.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// List returns categories, optionally including archived ones.
func (r *CategoryRepository) List(ctx context.Context, includeArchived bool) ([]models.Category, error) {
	query := `SELECT id, name, description, archived, created_at, updated_at FROM categories`
	if !includeArchived {
		query += ` WHERE archived = FALSE`
	}
	query += ` ORDER BY name ASC`

	var categories []models.Category
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// FindByID returns a category by identifier.
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*models.Category, error) {
	const query = `SELECT id, name, description, archived, created_at, updated_at FROM categories WHERE id = $1`
	var category models.Category
	if err := r.db.GetContext(ctx, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return &category, nil
}

// Create persists a new category.
func (r *CategoryRepository) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	category.CreatedAt = now
	category.UpdatedAt = now

	const query = `INSERT INTO categories (id, name, description, archived, created_at, updated_at) VALUES (:id, :name, :description, :archived, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a category.
func (r *CategoryRepository) Update(ctx context.Context, category *models.Category) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE categories SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, category); err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

// SetArchived flips the archive flag on a category and cascades the same
// state to its programs in a single transaction.
func (r *CategoryRepository) SetArchived(ctx context.Context, id string, archived bool) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin archive category: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE categories SET archived = $2, updated_at = $3 WHERE id = $1`, id, archived, now); err != nil {
		return fmt.Errorf("archive category: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE programs SET archived = $2, updated_at = $3 WHERE category_id = $1`, id, archived, now); err != nil {
		return fmt.Errorf("cascade archive to programs: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit archive category: %w", err)
	}
	return nil
}
