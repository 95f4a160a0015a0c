package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tumblelab/gym-api/internal/models"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

type programRepository interface {
	List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Program, error)
	Create(ctx context.Context, program *models.Program) error
	Update(ctx context.Context, program *models.Program) error
	SetArchived(ctx context.Context, id string, archived bool) error
}

type programCategoryRepository interface {
	FindByID(ctx context.Context, id string) (*models.Category, error)
}

// ProgramRequest is the payload for creating or updating a program.
type ProgramRequest struct {
	CategoryID       string `json:"category_id" validate:"required"`
	Name             string `json:"name" validate:"required"`
	ShortDescription string `json:"short_description"`
	LongDescription  string `json:"long_description"`
	MinAge           *int   `json:"min_age" validate:"omitempty,gte=0"`
	MaxAge           *int   `json:"max_age" validate:"omitempty,gte=0"`
}

// ProgramService manages class programs.
type ProgramService struct {
	repo       programRepository
	categories programCategoryRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewProgramService constructs a ProgramService.
func NewProgramService(repo programRepository, categories programCategoryRepository, validate *validator.Validate, logger *zap.Logger) *ProgramService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ProgramService{repo: repo, categories: categories, validator: validate, logger: logger}
}

// List returns programs with pagination metadata.
func (s *ProgramService) List(ctx context.Context, filter models.ProgramFilter) ([]models.ProgramDetail, *models.Pagination, error) {
	programs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list programs")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return programs, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a program by ID.
func (s *ProgramService) Get(ctx context.Context, id string) (*models.Program, error) {
	program, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	return program, nil
}

// Create adds a new program under a category.
func (s *ProgramService) Create(ctx context.Context, req ProgramRequest) (*models.Program, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	program := &models.Program{
		CategoryID:       req.CategoryID,
		Name:             req.Name,
		ShortDescription: req.ShortDescription,
		LongDescription:  req.LongDescription,
		MinAge:           req.MinAge,
		MaxAge:           req.MaxAge,
	}
	if err := s.repo.Create(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create program")
	}
	return program, nil
}

// Update modifies an existing program.
func (s *ProgramService) Update(ctx context.Context, id string, req ProgramRequest) (*models.Program, error) {
	if err := s.validateRequest(ctx, req); err != nil {
		return nil, err
	}

	program, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	program.CategoryID = req.CategoryID
	program.Name = req.Name
	program.ShortDescription = req.ShortDescription
	program.LongDescription = req.LongDescription
	program.MinAge = req.MinAge
	program.MaxAge = req.MaxAge

	if err := s.repo.Update(ctx, program); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update program")
	}
	return program, nil
}

// SetArchived archives or restores a program.
func (s *ProgramService) SetArchived(ctx context.Context, id string, archived bool) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.SetArchived(ctx, id, archived); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change program archive state")
	}
	s.logger.Info("program archive state changed", zap.String("program_id", id), zap.Bool("archived", archived))
	return nil
}

func (s *ProgramService) validateRequest(ctx context.Context, req ProgramRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid program payload")
	}
	if req.MinAge != nil && req.MaxAge != nil && *req.MaxAge < *req.MinAge {
		return appErrors.Clone(appErrors.ErrValidation, "max age must not be below min age")
	}
	if _, err := s.categories.FindByID(ctx, req.CategoryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "category not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load category")
	}
	return nil
}
