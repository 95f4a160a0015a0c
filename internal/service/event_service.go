package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/tumblelab/gym-api/internal/models"
	"github.com/tumblelab/gym-api/pkg/config"
	"github.com/tumblelab/gym-api/pkg/dates"
	appErrors "github.com/tumblelab/gym-api/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.Event, int, error)
	ListAll(ctx context.Context) ([]models.Event, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event, entries []models.EditLogEntry) error
	SetArchived(ctx context.Context, id string, archived bool, entries []models.EditLogEntry) error
	ListEditLog(ctx context.Context, eventID string) ([]models.EditLogEntry, error)
}

type eventCacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// EventOccurrenceInput is one dates-and-times entry in an event payload.
type EventOccurrenceInput struct {
	Date        string  `json:"date" validate:"required"`
	AllDay      bool    `json:"all_day"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Description *string `json:"description"`
}

// EventRequest is the payload for creating or updating an event.
type EventRequest struct {
	Name                string                 `json:"event_name" validate:"required"`
	ShortDescription    string                 `json:"short_description"`
	LongDescription     string                 `json:"long_description"`
	StartDate           string                 `json:"start_date" validate:"required"`
	EndDate             *string                `json:"end_date"`
	Occurrences         []EventOccurrenceInput `json:"dates_and_times"`
	KeyDetails          []string               `json:"key_details"`
	Address             *string                `json:"address"`
	AudienceType        models.AudienceType    `json:"audience_type" validate:"required"`
	AudienceProgramIDs  []string               `json:"audience_program_ids"`
	AudienceCategoryIDs []string               `json:"audience_category_ids"`
}

// BoardEvent is an event shaped for the family-facing read board.
type BoardEvent struct {
	ID               string   `json:"id"`
	Name             string   `json:"event_name"`
	ShortDescription string   `json:"short_description"`
	LongDescription  string   `json:"long_description"`
	StartDate        string   `json:"start_date"`
	EndDate          string   `json:"end_date,omitempty"`
	DatesAndTimes    []string `json:"dates_and_times"`
	KeyDetails       []string `json:"key_details"`
	Address          string   `json:"address,omitempty"`
}

const boardCacheKeyPrefix = "board:events"

// EventService manages events, their edit history, and the public board.
type EventService struct {
	repo      eventRepository
	cache     eventCacheRepository
	validator *validator.Validate
	logger    *zap.Logger
	board     config.BoardConfig
	metrics   *MetricsService
}

// NewEventService constructs an EventService.
func NewEventService(repo eventRepository, cache eventCacheRepository, validate *validator.Validate, logger *zap.Logger, board config.BoardConfig) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EventService{repo: repo, cache: cache, validator: validate, logger: logger, board: board}
}

// SetMetrics attaches the Prometheus recorder for board cache hit rates.
func (s *EventService) SetMetrics(m *MetricsService) {
	s.metrics = m
}

// List returns events for the admin listing.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.Event, *models.Pagination, error) {
	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return events, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns an event by ID.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create adds a new event and invalidates the board cache.
func (s *EventService) Create(ctx context.Context, req EventRequest, actorID string) (*models.Event, error) {
	event, err := s.buildEvent(req)
	if err != nil {
		return nil, err
	}
	event.CreatedBy = actorID

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}

	s.invalidateBoard(ctx)
	s.logger.Info("event created", zap.String("event_id", event.ID), zap.String("audience", string(event.AudienceRule.Type)))
	return event, nil
}

// Update rewrites an event and appends one edit-log entry per changed field.
// Edits that change nothing write no log entries.
func (s *EventService) Update(ctx context.Context, id string, req EventRequest, actorID, actorName string) (*models.Event, error) {
	before, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.buildEvent(req)
	if err != nil {
		return nil, err
	}
	updated.ID = before.ID
	updated.Archived = before.Archived
	updated.CreatedBy = before.CreatedBy
	updated.CreatedAt = before.CreatedAt

	entries := models.DiffEvents(*before, *updated, actorID, actorName, time.Now().UTC())
	if err := s.repo.Update(ctx, updated, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}

	s.invalidateBoard(ctx)
	s.logger.Info("event updated", zap.String("event_id", id), zap.Int("changed_fields", len(entries)))
	return updated, nil
}

// SetArchived archives or restores an event and records the change in the
// edit log.
func (s *EventService) SetArchived(ctx context.Context, id string, archived bool, actorID, actorName string) error {
	before, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if before.Archived == archived {
		return nil
	}

	after := *before
	after.Archived = archived
	entries := models.DiffEvents(*before, after, actorID, actorName, time.Now().UTC())

	if err := s.repo.SetArchived(ctx, id, archived, entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to change event archive state")
	}
	s.invalidateBoard(ctx)
	return nil
}

// EditLog returns an event's edit history, newest first.
func (s *EventService) EditLog(ctx context.Context, id string) ([]models.EditLogEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListEditLog(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load edit log")
	}
	return entries, nil
}

// Board returns the family-facing event board: visible, upcoming events
// sorted by start date and filtered by the optional search query. Results
// for unsearched requests are cached per audience context.
func (s *EventService) Board(ctx context.Context, viewer models.AudienceContext, search string) ([]BoardEvent, error) {
	if s.board.MaxSearchLen > 0 && len(search) > s.board.MaxSearchLen {
		search = search[:s.board.MaxSearchLen]
	}

	cacheKey := s.boardCacheKey(viewer)
	useCache := s.cache != nil && !s.board.CacheDisabled && strings.TrimSpace(search) == ""

	if useCache {
		var cached []BoardEvent
		if err := s.cache.Get(ctx, cacheKey, &cached); err == nil {
			s.metrics.RecordBoardCache(true)
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("board cache read failed", zap.Error(err))
		}
		s.metrics.RecordBoardCache(false)
	}

	events, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load events")
	}

	today := dates.Today()
	visible := make([]models.Event, 0, len(events))
	for _, e := range events {
		if !e.VisibleTo(viewer) {
			continue
		}
		if !e.MatchesSearch(search) {
			continue
		}
		visible = append(visible, e)
	}
	upcoming := models.UpcomingSorted(visible, today, s.board.LookbackDays)

	board := make([]BoardEvent, 0, len(upcoming))
	for _, e := range upcoming {
		board = append(board, toBoardEvent(e))
	}

	if useCache {
		if err := s.cache.Set(ctx, cacheKey, board, s.board.CacheTTL); err != nil {
			s.logger.Warn("board cache write failed", zap.Error(err))
		}
	}
	return board, nil
}

func (s *EventService) boardCacheKey(viewer models.AudienceContext) string {
	return fmt.Sprintf("%s:p=%s:c=%s", boardCacheKeyPrefix,
		strings.Join(viewer.ProgramIDs, ","), strings.Join(viewer.CategoryIDs, ","))
}

func (s *EventService) invalidateBoard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, boardCacheKeyPrefix+"*"); err != nil {
		s.logger.Warn("board cache invalidation failed", zap.Error(err))
	}
}

func (s *EventService) buildEvent(req EventRequest) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	startDate, ok := dates.ParseDateOnly(req.StartDate)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable start date %q", req.StartDate))
	}

	event := &models.Event{
		Name:             req.Name,
		ShortDescription: req.ShortDescription,
		LongDescription:  req.LongDescription,
		StartDate:        startDate,
		KeyDetails:       pq.StringArray(req.KeyDetails),
		Address:          req.Address,
		AudienceRule: models.AudienceRule{
			Type:        req.AudienceType,
			ProgramIDs:  pq.StringArray(req.AudienceProgramIDs),
			CategoryIDs: pq.StringArray(req.AudienceCategoryIDs),
		},
	}

	if req.EndDate != nil && strings.TrimSpace(*req.EndDate) != "" {
		endDate, ok := dates.ParseDateOnly(*req.EndDate)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable end date %q", *req.EndDate))
		}
		event.EndDate = &endDate
	}

	for i, occ := range req.Occurrences {
		date, ok := dates.ParseDateOnly(occ.Date)
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable occurrence date %q", occ.Date))
		}
		event.Occurrences = append(event.Occurrences, models.DateTimeEntry{
			Date:        date,
			AllDay:      occ.AllDay,
			StartTime:   occ.StartTime,
			EndTime:     occ.EndTime,
			Description: occ.Description,
			Position:    i,
		})
	}

	if err := event.Validate(); err != nil {
		return nil, err
	}
	return event, nil
}

func toBoardEvent(e models.Event) BoardEvent {
	rendered := make([]string, 0, len(e.Occurrences))
	for _, occ := range e.Occurrences {
		rendered = append(rendered, occ.Render())
	}

	board := BoardEvent{
		ID:               e.ID,
		Name:             e.Name,
		ShortDescription: e.ShortDescription,
		LongDescription:  e.LongDescription,
		StartDate:        e.StartDate.Display(),
		DatesAndTimes:    rendered,
		KeyDetails:       e.KeyDetails,
	}
	if e.EndDate != nil && !e.EndDate.IsZero() {
		board.EndDate = e.EndDate.Display()
	}
	if e.Address != nil {
		board.Address = *e.Address
	}
	return board
}
