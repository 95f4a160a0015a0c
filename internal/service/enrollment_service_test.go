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

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	memberships []models.Membership
	created     *models.Enrollment
	activeKeys  map[string]bool
	status      map[string]models.EnrollmentStatus
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

func (m *mockEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) ExistsActive(ctx context.Context, athleteID, iterationID string) (bool, error) {
	if m.activeKeys == nil {
		return false, nil
	}
	return m.activeKeys[athleteID+iterationID], nil
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enroll"
	}
	m.enrollments[enrollment.ID] = *enrollment
	m.created = enrollment
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, cancelledAt *time.Time) error {
	if m.status == nil {
		m.status = make(map[string]models.EnrollmentStatus)
	}
	m.status[id] = status
	if e, ok := m.enrollments[id]; ok {
		e.Status = status
		e.CancelledAt = cancelledAt
		m.enrollments[id] = e
	}
	return nil
}

func (m *mockEnrollmentRepo) ActiveMemberships(ctx context.Context, familyID string) ([]models.Membership, error) {
	return m.memberships, nil
}

type mockIterationReader struct {
	iterations map[string]*models.Iteration
}

func (m *mockIterationReader) FindByID(ctx context.Context, id string) (*models.Iteration, error) {
	if it, ok := m.iterations[id]; ok {
		return it, nil
	}
	return nil, sql.ErrNoRows
}

type mockAthleteReader struct {
	athletes map[string]*models.Athlete
}

func (m *mockAthleteReader) FindAthleteByID(ctx context.Context, id string) (*models.Athlete, error) {
	if a, ok := m.athletes[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

func newEnrollmentFixture() (*EnrollmentService, *mockEnrollmentRepo) {
	repo := &mockEnrollmentRepo{}
	iterations := &mockIterationReader{iterations: map[string]*models.Iteration{
		"iter-1": {
			ID:           "iter-1",
			ProgramID:    "prog-1",
			DaysOfWeek:   pq.Int64Array{1, 3, 5},
			DurationType: models.DurationIndefinite,
		},
	}}
	athletes := &mockAthleteReader{athletes: map[string]*models.Athlete{
		"ath-1": {ID: "ath-1", FamilyID: "fam-1", FullName: "Riley Park"},
	}}
	svc := NewEnrollmentService(repo, iterations, athletes, nil, zap.NewNop())
	return svc, repo
}

func TestEnrollValidSelection(t *testing.T) {
	svc, repo := newEnrollmentFixture()

	enrollment, err := svc.Enroll(context.Background(), EnrollRequest{
		AthleteID:    "ath-1",
		IterationID:  "iter-1",
		DaysPerWeek:  2,
		SelectedDays: []string{"Monday", "Friday"},
	})
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.EnrollmentStatusActive, enrollment.Status)
	assert.Equal(t, []string{"Monday", "Friday"}, []string(enrollment.SelectedDays))
}

func TestEnrollSelectionErrors(t *testing.T) {
	svc, _ := newEnrollmentFixture()

	tests := []struct {
		name     string
		days     []string
		perWeek  int
		wantCode string
	}{
		{"empty selection", nil, 2, "EMPTY_SELECTION"},
		{"count mismatch", []string{"Monday"}, 2, "DAYS_COUNT_MISMATCH"},
		{"day not offered", []string{"Monday", "Sunday"}, 2, "DAY_NOT_OFFERED"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Enroll(context.Background(), EnrollRequest{
				AthleteID:    "ath-1",
				IterationID:  "iter-1",
				DaysPerWeek:  tc.perWeek,
				SelectedDays: tc.days,
			})
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, tc.wantCode, appErr.Code)
		})
	}
}

func TestEnrollDuplicateIsConflict(t *testing.T) {
	svc, repo := newEnrollmentFixture()
	repo.activeKeys = map[string]bool{"ath-1iter-1": true}

	_, err := svc.Enroll(context.Background(), EnrollRequest{
		AthleteID:    "ath-1",
		IterationID:  "iter-1",
		DaysPerWeek:  1,
		SelectedDays: []string{"Monday"},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestCancelEnrollment(t *testing.T) {
	svc, repo := newEnrollmentFixture()
	repo.enrollments = map[string]models.Enrollment{
		"enr-1": {ID: "enr-1", Status: models.EnrollmentStatusActive},
	}

	require.NoError(t, svc.Cancel(context.Background(), "enr-1"))
	assert.Equal(t, models.EnrollmentStatusCancelled, repo.status["enr-1"])

	err := svc.Cancel(context.Background(), "enr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestAudienceContextForDeduplicates(t *testing.T) {
	svc, repo := newEnrollmentFixture()
	repo.memberships = []models.Membership{
		{ProgramID: "prog-1", CategoryID: "cat-1"},
		{ProgramID: "prog-2", CategoryID: "cat-1"},
	}

	audienceCtx, err := svc.AudienceContextFor(context.Background(), "fam-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"prog-1", "prog-2"}, audienceCtx.ProgramIDs)
	assert.Equal(t, []string{"cat-1"}, audienceCtx.CategoryIDs)
}
