package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tumblelab/gym-api/internal/models"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

type mockIterationRepo struct {
	iterations  map[string]models.Iteration
	replaced    *models.Iteration
	truncations map[string][]string
	nextNumber  int
}

func (m *mockIterationRepo) ListByProgram(ctx context.Context, programID string) ([]models.Iteration, error) {
	var list []models.Iteration
	for _, it := range m.iterations {
		if it.ProgramID == programID {
			list = append(list, it)
		}
	}
	return list, nil
}

func (m *mockIterationRepo) FindByID(ctx context.Context, id string) (*models.Iteration, error) {
	if it, ok := m.iterations[id]; ok {
		return &it, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockIterationRepo) FindDetailByID(ctx context.Context, id string) (*models.IterationDetail, error) {
	if it, ok := m.iterations[id]; ok {
		return &models.IterationDetail{Iteration: it}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockIterationRepo) NextIterationNumber(ctx context.Context, programID string) (int, error) {
	if m.nextNumber == 0 {
		return 1, nil
	}
	return m.nextNumber, nil
}

func (m *mockIterationRepo) Create(ctx context.Context, iteration *models.Iteration) error {
	if m.iterations == nil {
		m.iterations = make(map[string]models.Iteration)
	}
	if iteration.ID == "" {
		iteration.ID = "new-iter"
	}
	m.iterations[iteration.ID] = *iteration
	return nil
}

func (m *mockIterationRepo) Replace(ctx context.Context, iteration *models.Iteration) error {
	m.replaced = iteration
	m.iterations[iteration.ID] = *iteration
	return nil
}

func (m *mockIterationRepo) Delete(ctx context.Context, id string) error {
	delete(m.iterations, id)
	return nil
}

func (m *mockIterationRepo) TruncateSelections(ctx context.Context, updates map[string][]string) error {
	m.truncations = updates
	return nil
}

type mockProgramReader struct {
	programs map[string]*models.Program
}

func (m *mockProgramReader) FindByID(ctx context.Context, id string) (*models.Program, error) {
	if p, ok := m.programs[id]; ok {
		return p, nil
	}
	return nil, sql.ErrNoRows
}

type mockIterationEnrollments struct {
	active    []models.Enrollment
	cancelled map[string]models.EnrollmentStatus
}

func (m *mockIterationEnrollments) ListActiveByIteration(ctx context.Context, iterationID string) ([]models.Enrollment, error) {
	return m.active, nil
}

func (m *mockIterationEnrollments) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, cancelledAt *time.Time) error {
	if m.cancelled == nil {
		m.cancelled = make(map[string]models.EnrollmentStatus)
	}
	m.cancelled[id] = status
	return nil
}

func newIterationFixture(active []models.Enrollment) (*IterationService, *mockIterationRepo) {
	repo := &mockIterationRepo{iterations: map[string]models.Iteration{
		"iter-1": {
			ID:              "iter-1",
			ProgramID:       "prog-1",
			IterationNumber: 1,
			DaysOfWeek:      pq.Int64Array{1, 3, 5},
			DurationType:    models.DurationIndefinite,
		},
	}}
	programs := &mockProgramReader{programs: map[string]*models.Program{
		"prog-1": {ID: "prog-1", Name: "Tornadoes"},
	}}
	enrollments := &mockIterationEnrollments{active: active}
	svc := NewIterationService(repo, programs, enrollments, nil, zap.NewNop())
	return svc, repo
}

func TestCreateIterationAssignsSequentialNumber(t *testing.T) {
	svc, repo := newIterationFixture(nil)
	repo.nextNumber = 4

	iteration, err := svc.Create(context.Background(), "prog-1", IterationRequest{
		DaysOfWeek:   []int64{2, 4},
		DurationType: models.DurationIndefinite,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, iteration.IterationNumber)
}

func TestCreateIterationRejectsBadDates(t *testing.T) {
	svc, _ := newIterationFixture(nil)

	bad := "not a date"
	_, err := svc.Create(context.Background(), "prog-1", IterationRequest{
		DaysOfWeek:   []int64{1},
		DurationType: models.DurationFinite,
		StartDate:    &bad,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReplaceWithoutImpactNeedsNoConfirm(t *testing.T) {
	active := []models.Enrollment{
		{ID: "enr-1", SelectedDays: pq.StringArray{"Monday"}},
	}
	svc, repo := newIterationFixture(active)

	// Monday survives, so no truncation and no confirmation needed.
	_, err := svc.Replace(context.Background(), "iter-1", IterationRequest{
		DaysOfWeek:   []int64{1, 2},
		DurationType: models.DurationIndefinite,
	})
	require.NoError(t, err)
	assert.Empty(t, repo.truncations)
}

func TestReplaceRemovingSelectedDaysRequiresConfirmation(t *testing.T) {
	active := []models.Enrollment{
		{ID: "enr-1", SelectedDays: pq.StringArray{"Monday", "Friday"}},
	}
	svc, repo := newIterationFixture(active)

	req := IterationRequest{
		DaysOfWeek:   []int64{1, 3},
		DurationType: models.DurationIndefinite,
	}
	_, err := svc.Replace(context.Background(), "iter-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Nil(t, repo.replaced)

	req.ConfirmTruncate = true
	_, err = svc.Replace(context.Background(), "iter-1", req)
	require.NoError(t, err)
	require.NotNil(t, repo.replaced)
	assert.Equal(t, []string{"Monday"}, repo.truncations["enr-1"])
}

func TestReplaceRemovingAllSelectedDaysCancelsEnrollment(t *testing.T) {
	repo := &mockIterationRepo{iterations: map[string]models.Iteration{
		"iter-1": {
			ID:              "iter-1",
			ProgramID:       "prog-1",
			IterationNumber: 1,
			DaysOfWeek:      pq.Int64Array{1, 3, 5},
			DurationType:    models.DurationIndefinite,
		},
	}}
	programs := &mockProgramReader{programs: map[string]*models.Program{
		"prog-1": {ID: "prog-1", Name: "Tornadoes"},
	}}
	enrollments := &mockIterationEnrollments{active: []models.Enrollment{
		{ID: "enr-mon", SelectedDays: pq.StringArray{"Monday"}},
		{ID: "enr-wed", SelectedDays: pq.StringArray{"Wednesday", "Friday"}},
	}}
	svc := NewIterationService(repo, programs, enrollments, nil, zap.NewNop())

	// Dropping Monday leaves enr-mon with nothing; the edit still needs
	// confirmation first.
	req := IterationRequest{
		DaysOfWeek:   []int64{3},
		DurationType: models.DurationIndefinite,
	}
	_, err := svc.Replace(context.Background(), "iter-1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, enrollments.cancelled)

	req.ConfirmTruncate = true
	_, err = svc.Replace(context.Background(), "iter-1", req)
	require.NoError(t, err)

	// enr-mon lost every day and is cancelled; enr-wed keeps Wednesday and is
	// only trimmed, never written with an empty selection.
	assert.Equal(t, models.EnrollmentStatusCancelled, enrollments.cancelled["enr-mon"])
	assert.NotContains(t, repo.truncations, "enr-mon")
	assert.Equal(t, []string{"Wednesday"}, repo.truncations["enr-wed"])
}

func TestDeleteIterationWithActiveEnrollments(t *testing.T) {
	active := []models.Enrollment{{ID: "enr-1"}}
	svc, _ := newIterationFixture(active)

	err := svc.Delete(context.Background(), "iter-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
