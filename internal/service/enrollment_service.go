package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tumblelab/gym-api/internal/models"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsActive(ctx context.Context, athleteID, iterationID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, cancelledAt *time.Time) error
	ActiveMemberships(ctx context.Context, familyID string) ([]models.Membership, error)
}

type enrollmentIterationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Iteration, error)
}

type enrollmentAthleteRepository interface {
	FindAthleteByID(ctx context.Context, id string) (*models.Athlete, error)
}

// EnrollRequest is the payload for enrolling an athlete into an iteration.
type EnrollRequest struct {
	AthleteID    string   `json:"athlete_id" validate:"required"`
	IterationID  string   `json:"iteration_id" validate:"required"`
	DaysPerWeek  int      `json:"days_per_week" validate:"required,gte=1"`
	SelectedDays []string `json:"selected_days"`
}

// EnrollmentService manages athlete enrollments in class iterations.
type EnrollmentService struct {
	repo       enrollmentRepository
	iterations enrollmentIterationRepository
	athletes   enrollmentAthleteRepository
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewEnrollmentService constructs an EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, iterations enrollmentIterationRepository, athletes enrollmentAthleteRepository, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EnrollmentService{repo: repo, iterations: iterations, athletes: athletes, validator: validate, logger: logger}
}

// List returns enrollments with pagination metadata.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return enrollments, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns an enrollment with its context.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Enroll creates an active enrollment after checking the day selection
// against the iteration's offered days. Selection errors surface in a fixed
// order: empty selection, then count mismatch, then unoffered day.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	if _, err := s.athletes.FindAthleteByID(ctx, req.AthleteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "athlete not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load athlete")
	}

	iteration, err := s.iterations.FindByID(ctx, req.IterationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "iteration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load iteration")
	}

	if err := iteration.ValidateSelection(req.SelectedDays, req.DaysPerWeek); err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsActive(ctx, req.AthleteID, req.IterationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "athlete already enrolled in this iteration")
	}

	enrollment := &models.Enrollment{
		AthleteID:    req.AthleteID,
		IterationID:  req.IterationID,
		DaysPerWeek:  req.DaysPerWeek,
		SelectedDays: pq.StringArray(req.SelectedDays),
		Status:       models.EnrollmentStatusActive,
		JoinedAt:     time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("athlete enrolled",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("athlete_id", req.AthleteID),
		zap.String("iteration_id", req.IterationID))
	return enrollment, nil
}

// Cancel moves an active enrollment to CANCELLED. Cancelling twice is a
// conflict.
func (s *EnrollmentService) Cancel(ctx context.Context, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.Status == models.EnrollmentStatusCancelled {
		return appErrors.Clone(appErrors.ErrConflict, "enrollment is already cancelled")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, models.EnrollmentStatusCancelled, &now); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}
	return nil
}

// AudienceContextFor derives a family's event-visibility context from its
// active enrollments.
func (s *EnrollmentService) AudienceContextFor(ctx context.Context, familyID string) (models.AudienceContext, error) {
	memberships, err := s.repo.ActiveMemberships(ctx, familyID)
	if err != nil {
		return models.AudienceContext{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load memberships")
	}

	var audienceCtx models.AudienceContext
	seenPrograms := map[string]bool{}
	seenCategories := map[string]bool{}
	for _, m := range memberships {
		if m.ProgramID != "" && !seenPrograms[m.ProgramID] {
			seenPrograms[m.ProgramID] = true
			audienceCtx.ProgramIDs = append(audienceCtx.ProgramIDs, m.ProgramID)
		}
		if m.CategoryID != "" && !seenCategories[m.CategoryID] {
			seenCategories[m.CategoryID] = true
			audienceCtx.CategoryIDs = append(audienceCtx.CategoryIDs, m.CategoryID)
		}
	}
	return audienceCtx, nil
}
