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
	"github.com/tumblelab/gym-api/pkg/config"
	"github.com/tumblelab/gym-api/pkg/dates"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

type mockEventRepo struct {
	events    map[string]models.Event
	editLog   []models.EditLogEntry
	created   *models.Event
	updated   *models.Event
	listOrder []string
}

func (m *mockEventRepo) List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error) {
	var list []models.Event
	for _, e := range m.events {
		list = append(list, e)
	}
	return list, len(list), nil
}

func (m *mockEventRepo) ListAll(ctx context.Context) ([]models.Event, error) {
	if m.listOrder != nil {
		list := make([]models.Event, 0, len(m.listOrder))
		for _, id := range m.listOrder {
			list = append(list, m.events[id])
		}
		return list, nil
	}
	var list []models.Event
	for _, e := range m.events {
		list = append(list, e)
	}
	return list, nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if e, ok := m.events[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	if m.events == nil {
		m.events = make(map[string]models.Event)
	}
	if event.ID == "" {
		event.ID = "new-event"
	}
	m.events[event.ID] = *event
	m.created = event
	return nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *models.Event, entries []models.EditLogEntry) error {
	m.events[event.ID] = *event
	m.updated = event
	m.editLog = append(m.editLog, entries...)
	return nil
}

func (m *mockEventRepo) SetArchived(ctx context.Context, id string, archived bool, entries []models.EditLogEntry) error {
	e := m.events[id]
	e.Archived = archived
	m.events[id] = e
	m.editLog = append(m.editLog, entries...)
	return nil
}

func (m *mockEventRepo) ListEditLog(ctx context.Context, eventID string) ([]models.EditLogEntry, error) {
	return m.editLog, nil
}

type mockBoardCache struct {
	store       map[string][]byte
	invalidated bool
	gets        int
	sets        int
}

func (m *mockBoardCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.gets++
	return appErrors.ErrCacheMiss
}

func (m *mockBoardCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.sets++
	return nil
}

func (m *mockBoardCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.invalidated = true
	return nil
}

func boardConfig() config.BoardConfig {
	return config.BoardConfig{CacheTTL: time.Minute, LookbackDays: 7, MaxSearchLen: 120}
}

func futureDate(days int) dates.CalendarDate {
	return dates.Today().AddDays(days)
}

func newEventFixture(events ...models.Event) (*EventService, *mockEventRepo, *mockBoardCache) {
	repo := &mockEventRepo{events: map[string]models.Event{}}
	for _, e := range events {
		repo.events[e.ID] = e
		repo.listOrder = append(repo.listOrder, e.ID)
	}
	cache := &mockBoardCache{}
	svc := NewEventService(repo, cache, nil, zap.NewNop(), boardConfig())
	return svc, repo, cache
}

func TestCreateEventInvalidatesBoardCache(t *testing.T) {
	svc, repo, cache := newEventFixture()

	event, err := svc.Create(context.Background(), EventRequest{
		Name:         "Open Gym Night",
		StartDate:    futureDate(10).Input(),
		AudienceType: models.AudienceAllParents,
	}, "usr-1")
	require.NoError(t, err)
	require.NotNil(t, repo.created)
	assert.Equal(t, "usr-1", event.CreatedBy)
	assert.True(t, cache.invalidated)
}

func TestCreateEventRejectsInvalidRange(t *testing.T) {
	svc, _, _ := newEventFixture()

	end := futureDate(5).Input()
	_, err := svc.Create(context.Background(), EventRequest{
		Name:         "Backwards",
		StartDate:    futureDate(10).Input(),
		EndDate:      &end,
		AudienceType: models.AudienceAllParents,
	}, "usr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidDateRange.Code, appErrors.FromError(err).Code)
}

func TestUpdateEventWritesEditLog(t *testing.T) {
	existing := models.Event{
		ID:        "evt-1",
		Name:      "Winter Showcase",
		StartDate: futureDate(20),
		AudienceRule:  models.AudienceRule{Type: models.AudienceAllParents},
		CreatedBy: "usr-1",
	}
	svc, repo, _ := newEventFixture(existing)

	_, err := svc.Update(context.Background(), "evt-1", EventRequest{
		Name:         "Winter Showcase (moved)",
		StartDate:    futureDate(27).Input(),
		AudienceType: models.AudienceAllParents,
	}, "usr-2", "Dana Admin")
	require.NoError(t, err)

	fields := make(map[string]bool)
	for _, entry := range repo.editLog {
		fields[entry.Field] = true
		assert.Equal(t, "usr-2", entry.AdminID)
		assert.Equal(t, "Dana Admin", entry.AdminName)
	}
	assert.True(t, fields["event_name"])
	assert.True(t, fields["start_date"])
	assert.False(t, fields["audience"])
}

func TestUpdateEventNoChangesWritesNoLog(t *testing.T) {
	existing := models.Event{
		ID:        "evt-1",
		Name:      "Winter Showcase",
		StartDate: futureDate(20),
		AudienceRule:  models.AudienceRule{Type: models.AudienceAllParents},
		CreatedBy: "usr-1",
	}
	svc, repo, _ := newEventFixture(existing)

	_, err := svc.Update(context.Background(), "evt-1", EventRequest{
		Name:         "Winter Showcase",
		StartDate:    futureDate(20).Input(),
		AudienceType: models.AudienceAllParents,
	}, "usr-2", "Dana Admin")
	require.NoError(t, err)
	assert.Empty(t, repo.editLog)
}

func TestBoardFiltersByAudienceAndSorts(t *testing.T) {
	events := []models.Event{
		{
			ID:        "evt-later",
			Name:      "Team Banquet",
			StartDate: futureDate(30),
			AudienceRule:  models.AudienceRule{Type: models.AudienceSpecificClasses, ProgramIDs: pq.StringArray{"prog-1"}},
		},
		{
			ID:        "evt-soon",
			Name:      "Picture Day",
			StartDate: futureDate(3),
			AudienceRule:  models.AudienceRule{Type: models.AudienceAllClassesAndParents},
		},
		{
			ID:        "evt-hidden",
			Name:      "Elite Travel Meet",
			StartDate: futureDate(14),
			AudienceRule:  models.AudienceRule{Type: models.AudienceSpecificClasses, ProgramIDs: pq.StringArray{"prog-9"}},
		},
		{
			ID:        "evt-stale",
			Name:      "Last Season Recap",
			StartDate: futureDate(-30),
			AudienceRule:  models.AudienceRule{Type: models.AudienceAllParents},
		},
		{
			ID:        "evt-boosters",
			Name:      "Booster Meeting",
			StartDate: futureDate(5),
			AudienceRule:  models.AudienceRule{Type: models.AudienceBoosters},
		},
	}
	svc, _, _ := newEventFixture(events...)

	viewer := models.AudienceContext{ProgramIDs: []string{"prog-1"}}
	board, err := svc.Board(context.Background(), viewer, "")
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, "evt-soon", board[0].ID)
	assert.Equal(t, "evt-later", board[1].ID)
}

func TestBoardSearchSkipsCache(t *testing.T) {
	events := []models.Event{
		{
			ID:        "evt-1",
			Name:      "Picture Day",
			StartDate: futureDate(3),
			AudienceRule:  models.AudienceRule{Type: models.AudienceAllParents},
		},
		{
			ID:        "evt-2",
			Name:      "Team Banquet",
			StartDate: futureDate(5),
			AudienceRule:  models.AudienceRule{Type: models.AudienceAllParents},
		},
	}
	svc, _, cache := newEventFixture(events...)

	board, err := svc.Board(context.Background(), models.AudienceContext{}, "banquet")
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "evt-2", board[0].ID)
	assert.Zero(t, cache.gets)
	assert.Zero(t, cache.sets)
}

func TestBoardCachesUnsearchedRequests(t *testing.T) {
	events := []models.Event{
		{
			ID:        "evt-1",
			Name:      "Picture Day",
			StartDate: futureDate(3),
			AudienceRule:  models.AudienceRule{Type: models.AudienceAllParents},
		},
	}
	svc, _, cache := newEventFixture(events...)

	_, err := svc.Board(context.Background(), models.AudienceContext{}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.gets)
	assert.Equal(t, 1, cache.sets)
}

func TestSetArchivedRecordsEditLog(t *testing.T) {
	existing := models.Event{
		ID:        "evt-1",
		Name:      "Winter Showcase",
		StartDate: futureDate(20),
		AudienceRule:  models.AudienceRule{Type: models.AudienceAllParents},
	}
	svc, repo, cache := newEventFixture(existing)

	require.NoError(t, svc.SetArchived(context.Background(), "evt-1", true, "usr-1", "Dana Admin"))
	require.Len(t, repo.editLog, 1)
	assert.Equal(t, "archived", repo.editLog[0].Field)
	assert.True(t, cache.invalidated)

	// Archiving an already archived event is a no-op.
	require.NoError(t, svc.SetArchived(context.Background(), "evt-1", true, "usr-1", "Dana Admin"))
	assert.Len(t, repo.editLog, 1)
}
