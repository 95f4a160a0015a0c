package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tumblelab/gym-api/internal/models"
	"github.com/tumblelab/gym-api/pkg/dates"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

type iterationRepository interface {
	ListByProgram(ctx context.Context, programID string) ([]models.Iteration, error)
	FindByID(ctx context.Context, id string) (*models.Iteration, error)
	FindDetailByID(ctx context.Context, id string) (*models.IterationDetail, error)
	NextIterationNumber(ctx context.Context, programID string) (int, error)
	Create(ctx context.Context, iteration *models.Iteration) error
	Replace(ctx context.Context, iteration *models.Iteration) error
	Delete(ctx context.Context, id string) error
	TruncateSelections(ctx context.Context, updates map[string][]string) error
}

type iterationProgramRepository interface {
	FindByID(ctx context.Context, id string) (*models.Program, error)
}

type iterationEnrollmentRepository interface {
	ListActiveByIteration(ctx context.Context, iterationID string) ([]models.Enrollment, error)
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, cancelledAt *time.Time) error
}

// IterationRequest is the payload for creating or replacing an iteration.
// Dates arrive as date-only strings; unparseable values are rejected rather
// than guessed.
type IterationRequest struct {
	DaysOfWeek      []int64             `json:"days_of_week" validate:"required,min=1"`
	StartTime       *string             `json:"start_time"`
	EndTime         *string             `json:"end_time"`
	DurationType    models.DurationType `json:"duration_type" validate:"required,oneof=indefinite 3_month_block finite"`
	StartDate       *string             `json:"start_date"`
	EndDate         *string             `json:"end_date"`
	ConfirmTruncate bool                `json:"confirm_truncate"`
}

// IterationService manages the weekly recurring offerings of programs.
type IterationService struct {
	repo        iterationRepository
	programs    iterationProgramRepository
	enrollments iterationEnrollmentRepository
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewIterationService constructs an IterationService.
func NewIterationService(repo iterationRepository, programs iterationProgramRepository, enrollments iterationEnrollmentRepository, validate *validator.Validate, logger *zap.Logger) *IterationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &IterationService{repo: repo, programs: programs, enrollments: enrollments, validator: validate, logger: logger}
}

// ListByProgram returns a program's iterations.
func (s *IterationService) ListByProgram(ctx context.Context, programID string) ([]models.Iteration, error) {
	if _, err := s.programs.FindByID(ctx, programID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}
	iterations, err := s.repo.ListByProgram(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list iterations")
	}
	return iterations, nil
}

// Get returns an iteration with its program context.
func (s *IterationService) Get(ctx context.Context, id string) (*models.IterationDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "iteration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load iteration")
	}
	return detail, nil
}

// Create adds a new iteration to a program. Iteration numbers are sequential
// per program.
func (s *IterationService) Create(ctx context.Context, programID string, req IterationRequest) (*models.Iteration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid iteration payload")
	}
	if _, err := s.programs.FindByID(ctx, programID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "program not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load program")
	}

	iteration, err := s.buildIteration(programID, req)
	if err != nil {
		return nil, err
	}

	number, err := s.repo.NextIterationNumber(ctx, programID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign iteration number")
	}
	iteration.IterationNumber = number

	if err := s.repo.Create(ctx, iteration); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create iteration")
	}
	return iteration, nil
}

// Replace rewrites an iteration's schedule definition. When the edit removes
// days that active enrollments selected, the caller must confirm: without
// confirm_truncate the edit fails with PRECONDITION_FAILED, with it the
// affected selections are trimmed to the surviving days. An enrollment whose
// selected days are all removed is cancelled, never left active with an empty
// selection.
func (s *IterationService) Replace(ctx context.Context, id string, req IterationRequest) (*models.Iteration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid iteration payload")
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "iteration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load iteration")
	}

	updated, err := s.buildIteration(current.ProgramID, req)
	if err != nil {
		return nil, err
	}
	updated.ID = current.ID
	updated.IterationNumber = current.IterationNumber

	trims, cancels, err := s.planTruncations(ctx, id, *updated)
	if err != nil {
		return nil, err
	}
	if affected := len(trims) + len(cancels); affected > 0 && !req.ConfirmTruncate {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("%d active enrollments select days this edit removes; resubmit with confirm_truncate to trim or cancel them", affected))
	}

	if err := s.repo.Replace(ctx, updated); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace iteration")
	}
	if len(trims) > 0 {
		if err := s.repo.TruncateSelections(ctx, trims); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to trim enrollment selections")
		}
		s.logger.Info("enrollment selections trimmed after iteration edit",
			zap.String("iteration_id", id), zap.Int("enrollments", len(trims)))
	}
	if len(cancels) > 0 {
		now := time.Now().UTC()
		for _, enrollmentID := range cancels {
			if err := s.enrollments.UpdateStatus(ctx, enrollmentID, models.EnrollmentStatusCancelled, &now); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel emptied enrollment")
			}
		}
		s.logger.Info("enrollments cancelled after iteration edit removed all their days",
			zap.String("iteration_id", id), zap.Int("enrollments", len(cancels)))
	}
	return updated, nil
}

// Delete removes an iteration. Iterations with active enrollments cannot be
// deleted.
func (s *IterationService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "iteration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load iteration")
	}

	active, err := s.enrollments.ListActiveByIteration(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollments")
	}
	if len(active) > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "iteration has active enrollments")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete iteration")
	}
	return nil
}

// planTruncations finds active enrollments whose selected days the new
// definition no longer offers. Enrollments keeping at least one day get their
// trimmed selection; enrollments losing every day are listed for cancellation.
func (s *IterationService) planTruncations(ctx context.Context, iterationID string, updated models.Iteration) (map[string][]string, []string, error) {
	active, err := s.enrollments.ListActiveByIteration(ctx, iterationID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	trims := make(map[string][]string)
	var cancels []string
	for _, enrollment := range active {
		surviving := make([]string, 0, len(enrollment.SelectedDays))
		for _, day := range enrollment.SelectedDays {
			if updated.OffersDay(day) {
				surviving = append(surviving, day)
			}
		}
		switch {
		case len(surviving) == 0:
			cancels = append(cancels, enrollment.ID)
		case len(surviving) != len(enrollment.SelectedDays):
			trims[enrollment.ID] = surviving
		}
	}
	return trims, cancels, nil
}

func (s *IterationService) buildIteration(programID string, req IterationRequest) (*models.Iteration, error) {
	iteration := &models.Iteration{
		ProgramID:    programID,
		DaysOfWeek:   pq.Int64Array(req.DaysOfWeek),
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		DurationType: req.DurationType,
	}

	if req.StartDate != nil {
		parsed, ok := dates.ParseDateOnly(*req.StartDate)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable start date %q", *req.StartDate))
		}
		iteration.StartDate = &parsed
	}
	if req.EndDate != nil {
		parsed, ok := dates.ParseDateOnly(*req.EndDate)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable end date %q", *req.EndDate))
		}
		iteration.EndDate = &parsed
	}

	if err := iteration.Validate(); err != nil {
		return nil, err
	}
	return iteration, nil
}
