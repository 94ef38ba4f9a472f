package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"seatflow/internal/shared/constants"
	"seatflow/pkg/cache"
	"seatflow/pkg/logger"

	"github.com/google/uuid"
)

type Service interface {
	SetCacheService(cacheService cache.Service)

	GetEventByID(ctx context.Context, id uuid.UUID) (*Event, error)
	GetEventByExternalID(ctx context.Context, externalID int64) (*Event, error)
	GetAllEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error)
	ListActive(ctx context.Context) ([]Event, error)

	// Catalog sync entry points; every write invalidates by both identifiers
	Upsert(ctx context.Context, event *Event) (bool, error)
	Deactivate(ctx context.Context, event *Event) error
	InvalidateListings(ctx context.Context) error
}

type service struct {
	repo         Repository
	cacheService cache.Service
	log          *logger.Logger
	now          func() time.Time
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		log:  logger.GetDefault(),
		now:  time.Now,
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

// Cache helper methods
func (s *service) setCache(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Set(ctx, key, value, ttl); err != nil {
		s.log.WarnContext(ctx, "event cache write failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (s *service) getCache(ctx context.Context, key string, dest interface{}) error {
	if s.cacheService == nil {
		return fmt.Errorf("cache service not available")
	}
	return s.cacheService.Get(ctx, key, dest)
}

func (s *service) invalidateEventCache(ctx context.Context, event *Event) error {
	if s.cacheService == nil {
		return nil
	}

	keys := []string{constants.BuildEventExternalKey(event.ExternalID)}
	if event.ID != uuid.Nil {
		keys = append(keys, constants.BuildEventDetailKey(event.ID.String()))
	}

	var errs []error
	if err := s.cacheService.Delete(ctx, keys...); err != nil {
		errs = append(errs, err)
	}
	if err := s.cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_EVENT_LIST); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *service) GetEventByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.loadEvent(ctx, constants.BuildEventDetailKey(id.String()), func() (*Event, error) {
		return s.repo.GetByID(ctx, id)
	})
}

func (s *service) GetEventByExternalID(ctx context.Context, externalID int64) (*Event, error) {
	return s.loadEvent(ctx, constants.BuildEventExternalKey(externalID), func() (*Event, error) {
		return s.repo.GetByExternalID(ctx, externalID)
	})
}

// loadEvent reads through the detail cache; repository errors are never cached
func (s *service) loadEvent(ctx context.Context, cacheKey string, fetch func() (*Event, error)) (*Event, error) {
	if s.cacheService == nil {
		return fetch()
	}

	var event Event
	err := s.cacheService.GetOrSet(ctx, cacheKey, constants.TTL_EVENT_DETAIL, func() (interface{}, error) {
		return fetch()
	}, &event)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (s *service) GetAllEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error) {
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = 10
	}

	// Searches bypass the cache
	cacheKey := ""
	if query.Search == "" {
		cacheKey = constants.BuildEventListKey(query.Page, query.Limit)
		var cached PaginatedEvents
		if err := s.getCache(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	events, totalCount, err := s.repo.GetAll(ctx, query)
	if err != nil {
		return nil, err
	}

	responses := make([]EventResponse, len(events))
	for i := range events {
		responses[i] = events[i].ToResponse()
	}

	result := &PaginatedEvents{
		Events:     responses,
		TotalCount: totalCount,
		Page:       query.Page,
		Limit:      query.Limit,
		TotalPages: int(math.Ceil(float64(totalCount) / float64(query.Limit))),
	}

	if cacheKey != "" {
		s.setCache(ctx, cacheKey, result, constants.TTL_EVENT_LIST)
	}
	return result, nil
}

func (s *service) ListActive(ctx context.Context) ([]Event, error) {
	return s.repo.ListActive(ctx)
}

func (s *service) Upsert(ctx context.Context, event *Event) (bool, error) {
	if event.Status == "" {
		event.Status = StatusActive
	}
	if event.Status == StatusActive {
		event.DeactivatedAt = nil
	}
	event.SyncedAt = s.now().UTC()

	created, err := s.repo.Upsert(ctx, event)
	if err != nil {
		return false, err
	}

	if err := s.invalidateEventCache(ctx, event); err != nil {
		s.log.WarnContext(ctx, "event cache invalidation failed",
			slog.Int64("external_event_id", event.ExternalID),
			slog.String("error", err.Error()))
	}
	return created, nil
}

func (s *service) Deactivate(ctx context.Context, event *Event) error {
	at := s.now().UTC()
	if err := s.repo.Deactivate(ctx, event.ID, at); err != nil {
		return err
	}
	event.Status = StatusInactive
	event.DeactivatedAt = &at

	if err := s.invalidateEventCache(ctx, event); err != nil {
		s.log.WarnContext(ctx, "event cache invalidation failed",
			slog.Int64("external_event_id", event.ExternalID),
			slog.String("error", err.Error()))
	}
	return nil
}

// InvalidateListings drops cached listing pages. Detail entries are left alone.
func (s *service) InvalidateListings(ctx context.Context) error {
	if s.cacheService == nil {
		return nil
	}
	return s.cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_EVENT_LIST)
}
