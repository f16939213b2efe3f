package events

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"ticketly/internal/seats"
	"ticketly/internal/shared/constants"
	"ticketly/pkg/cache"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

var ErrInvalidEventName = errors.New("event name must be a single word without spaces")

type Service interface {
	SetCacheService(cacheService cache.Service)
	CreateEvent(ctx context.Context, req CreateEventRequest) (*EventResponse, error)
	GetEventByID(ctx context.Context, id uuid.UUID) (*EventResponse, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (*EventResponse, error)
	GetAllEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error)
	// InvalidateEvent drops cached views of one event after its counters change
	InvalidateEvent(ctx context.Context, id uuid.UUID)
}

type service struct {
	repo         Repository
	cacheService cache.Service
	log          *logger.Logger

	// generation is bumped on every invalidation; a read that started before
	// the bump must not cache what it loaded
	generation atomic.Uint64
}

func NewService(repo Repository) Service {
	return &service{
		repo: repo,
		log:  logger.GetDefault().WithComponent("events"),
	}
}

// SetCacheService injects the cache service dependency
func (s *service) SetCacheService(cacheService cache.Service) {
	s.cacheService = cacheService
}

func (s *service) CreateEvent(ctx context.Context, req CreateEventRequest) (*EventResponse, error) {
	name := strings.TrimSpace(req.Name)
	// gateway requests address events by a single token
	if name == "" || strings.ContainsAny(name, " \t\r\n") {
		return nil, ErrInvalidEventName
	}

	// One seat row per nine seats, A1..Z9
	codes, err := seats.GenerateCodes(req.Capacity)
	if err != nil {
		return nil, err
	}

	event := &Event{
		Name:             name,
		Description:      strings.TrimSpace(req.Description),
		Date:             req.Date.UTC(),
		Capacity:         req.Capacity,
		AvailableTickets: req.Capacity,
	}

	// Create event and its seats in one transaction
	if err := s.repo.Create(ctx, event, codes); err != nil {
		return nil, err
	}

	// Invalidate event lists after creation
	s.invalidateLists(ctx)
	s.log.Info("event created", "event_id", event.ID.String(), "name", event.Name, "capacity", event.Capacity)

	resp := event.ToResponse()
	return &resp, nil
}

func (s *service) GetEventByID(ctx context.Context, id uuid.UUID) (*EventResponse, error) {
	key := constants.BuildEventDetailKey(id.String())

	var resp EventResponse
	if s.cacheService != nil {
		// Try to get from cache first
		if err := s.cacheService.Get(ctx, key, &resp); err == nil {
			return &resp, nil
		}
	}

	// Cache miss - get from database
	gen := s.generation.Load()
	event, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp = event.ToResponse()
	// Cache the result
	s.setCacheIfCurrent(ctx, gen, key, resp, constants.TTL_EVENT_DETAIL)
	return &resp, nil
}

func (s *service) UpdateEvent(ctx context.Context, id uuid.UUID, req UpdateEventRequest) (*EventResponse, error) {
	// Only the fields the caller set are written
	updates := make(map[string]interface{})
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" || strings.ContainsAny(name, " \t\r\n") {
			return nil, ErrInvalidEventName
		}
		updates["name"] = name
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Date != nil {
		updates["date"] = req.Date.UTC()
	}

	// Apply updates
	event, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, err
	}

	// Invalidate cached detail and lists
	s.InvalidateEvent(ctx, id)

	resp := event.ToResponse()
	return &resp, nil
}

func (s *service) GetAllEvents(ctx context.Context, query EventListQuery) (*PaginatedEvents, error) {
	page, limit := query.normalized()
	key := constants.BuildEventListKey(page, limit, strings.ToLower(query.Search))

	var result PaginatedEvents
	if s.cacheService != nil {
		// Try to get from cache first
		if err := s.cacheService.Get(ctx, key, &result); err == nil {
			return &result, nil
		}
	}

	// Cache miss - get from database
	gen := s.generation.Load()
	list, total, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	responses := make([]EventResponse, len(list))
	for i := range list {
		responses[i] = list[i].ToResponse()
	}

	result = PaginatedEvents{
		Events:     responses,
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}

	// Cache the result
	s.setCacheIfCurrent(ctx, gen, key, result, constants.TTL_EVENT_LIST)
	return &result, nil
}

func (s *service) InvalidateEvent(ctx context.Context, id uuid.UUID) {
	s.generation.Add(1)
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.Delete(ctx, constants.BuildEventDetailKey(id.String())); err != nil {
		s.log.Warn("failed to invalidate event cache", "event_id", id.String(), "error", err)
	}
	s.invalidateLists(ctx)
}

func (s *service) invalidateLists(ctx context.Context) {
	s.generation.Add(1)
	if s.cacheService == nil {
		return
	}
	if err := s.cacheService.DeletePattern(ctx, constants.PATTERN_INVALIDATE_EVENT_LIST); err != nil {
		s.log.Warn("failed to invalidate event list cache", "error", err)
	}
}

// setCacheIfCurrent stores value unless an invalidation ran since gen was read
func (s *service) setCacheIfCurrent(ctx context.Context, gen uint64, key string, value interface{}, ttl time.Duration) {
	if s.cacheService == nil || s.generation.Load() != gen {
		return
	}
	if err := s.cacheService.Set(ctx, key, value, ttl); err != nil {
		s.log.Warn("failed to cache", "key", key, "error", err)
		return
	}
	// an invalidation that raced the Set may have deleted before we wrote
	if s.generation.Load() != gen {
		_ = s.cacheService.Delete(ctx, key)
	}
}
