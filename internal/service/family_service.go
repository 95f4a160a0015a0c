package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tumblelab/gym-api/internal/models"
	"github.com/tumblelab/gym-api/pkg/dates"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

type familyRepository interface {
	List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, int, error)
	FindByID(ctx context.Context, id string) (*models.Family, error)
	Create(ctx context.Context, family *models.Family) error
	Update(ctx context.Context, family *models.Family) error
	ListAthletes(ctx context.Context, familyID string) ([]models.Athlete, error)
	FindAthleteByID(ctx context.Context, id string) (*models.Athlete, error)
	CreateAthlete(ctx context.Context, athlete *models.Athlete) error
	UpdateAthlete(ctx context.Context, athlete *models.Athlete) error
}

// FamilyRequest is the payload for creating or updating a family.
type FamilyRequest struct {
	GuardianName string `json:"guardian_name" validate:"required"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone"`
}

// AthleteRequest is the payload for creating or updating an athlete. The
// birth date is optional; a missing one means the athlete is treated as an
// adult.
type AthleteRequest struct {
	FullName  string  `json:"full_name" validate:"required"`
	BirthDate *string `json:"birth_date"`
}

// AthleteView is an athlete with the derived age fields.
type AthleteView struct {
	models.Athlete
	Age     *int `json:"age,omitempty"`
	IsAdult bool `json:"is_adult"`
}

// FamilyService manages households and their athletes.
type FamilyService struct {
	repo      familyRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewFamilyService constructs a FamilyService.
func NewFamilyService(repo familyRepository, validate *validator.Validate, logger *zap.Logger) *FamilyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &FamilyService{repo: repo, validator: validate, logger: logger}
}

// List returns families with pagination metadata.
func (s *FamilyService) List(ctx context.Context, filter models.FamilyFilter) ([]models.Family, *models.Pagination, error) {
	families, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list families")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return families, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a family by ID.
func (s *FamilyService) Get(ctx context.Context, id string) (*models.Family, error) {
	family, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "family not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load family")
	}
	return family, nil
}

// Create adds a new family.
func (s *FamilyService) Create(ctx context.Context, req FamilyRequest) (*models.Family, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid family payload")
	}

	family := &models.Family{
		GuardianName: req.GuardianName,
		Email:        req.Email,
		Phone:        req.Phone,
	}
	if err := s.repo.Create(ctx, family); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create family")
	}
	return family, nil
}

// Update modifies a family's contact details.
func (s *FamilyService) Update(ctx context.Context, id string, req FamilyRequest) (*models.Family, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid family payload")
	}

	family, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	family.GuardianName = req.GuardianName
	family.Email = req.Email
	family.Phone = req.Phone
	if err := s.repo.Update(ctx, family); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update family")
	}
	return family, nil
}

// ListAthletes returns a family's athletes with derived ages.
func (s *FamilyService) ListAthletes(ctx context.Context, familyID string) ([]AthleteView, error) {
	if _, err := s.Get(ctx, familyID); err != nil {
		return nil, err
	}

	athletes, err := s.repo.ListAthletes(ctx, familyID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list athletes")
	}

	today := dates.Today()
	views := make([]AthleteView, 0, len(athletes))
	for _, a := range athletes {
		views = append(views, AthleteView{
			Athlete: a,
			Age:     a.Age(today),
			IsAdult: a.IsAdult(today),
		})
	}
	return views, nil
}

// AddAthlete creates an athlete under a family.
func (s *FamilyService) AddAthlete(ctx context.Context, familyID string, req AthleteRequest) (*models.Athlete, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid athlete payload")
	}
	if _, err := s.Get(ctx, familyID); err != nil {
		return nil, err
	}

	athlete := &models.Athlete{
		FamilyID: familyID,
		FullName: req.FullName,
	}
	if err := applyBirthDate(athlete, req.BirthDate); err != nil {
		return nil, err
	}

	if err := s.repo.CreateAthlete(ctx, athlete); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create athlete")
	}
	return athlete, nil
}

// UpdateAthlete modifies an athlete's details.
func (s *FamilyService) UpdateAthlete(ctx context.Context, id string, req AthleteRequest) (*models.Athlete, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid athlete payload")
	}

	athlete, err := s.repo.FindAthleteByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "athlete not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load athlete")
	}

	athlete.FullName = req.FullName
	athlete.BirthDate = nil
	if err := applyBirthDate(athlete, req.BirthDate); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateAthlete(ctx, athlete); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update athlete")
	}
	return athlete, nil
}

func applyBirthDate(athlete *models.Athlete, raw *string) error {
	if raw == nil || *raw == "" {
		return nil
	}
	parsed, ok := dates.ParseDateOnly(*raw)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable birth date %q", *raw))
	}
	athlete.BirthDate = &parsed
	return nil
}
