package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ticketly/internal/seats"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound  = errors.New("event not found")
	ErrDuplicateEvent = errors.New("an event with this name already exists")
)

// Repository persists the event catalog. Create writes the event and its
// seat rows together.
type Repository interface {
	Create(ctx context.Context, event *Event, seatCodes []string) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Event, error)
	List(ctx context.Context, query EventListQuery) ([]Event, int64, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, event *Event, seatCodes []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		// Event names are unique; gateway commands address events by name
		if err := tx.Model(&Event{}).Where("name = ?", event.Name).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check event name: %w", err)
		}
		if count > 0 {
			return ErrDuplicateEvent
		}

		// Create event
		if err := tx.Create(event).Error; err != nil {
			return fmt.Errorf("failed to create event: %w", err)
		}

		// Create one AVAILABLE seat row per code
		rows := make([]seats.Seat, 0, len(seatCodes))
		for _, code := range seatCodes {
			rows = append(rows, seats.Seat{
				EventID:    event.ID,
				SeatNumber: code,
				Status:     seats.StatusAvailable,
			})
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, 100).Error; err != nil {
				return fmt.Errorf("failed to create seats: %w", err)
			}
		}
		return nil
	})
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	var event Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return &event, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*Event, error) {
	var event Event
	db := r.db.WithContext(ctx)

	if err := db.Where("id = ?", id).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	// Apply updates
	if len(updates) > 0 {
		if err := db.Model(&event).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	if err := db.Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}

	return &event, nil
}

func (r *repository) List(ctx context.Context, query EventListQuery) ([]Event, int64, error) {
	var events []Event
	var totalCount int64

	db := r.db.WithContext(ctx).Model(&Event{})

	// Apply search filter
	if query.Search != "" {
		searchTerm := "%" + strings.ToLower(query.Search) + "%"
		db = db.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", searchTerm, searchTerm)
	}

	// Get total count
	if err := db.Count(&totalCount).Error; err != nil {
		return nil, 0, err
	}

	page, limit := query.normalized()
	// Calculate offset
	offset := (page - 1) * limit

	// Apply ordering and pagination
	err := db.Order("date ASC, name ASC").
		Offset(offset).
		Limit(limit).
		Find(&events).Error

	return events, totalCount, err
}

func (q EventListQuery) normalized() (page, limit int) {
	page, limit = q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	return page, limit
}

// Paginate applies the list query to an already sorted slice
func (q EventListQuery) Paginate(all []Event) []Event {
	page, limit := q.normalized()
	start := (page - 1) * limit
	if start >= len(all) {
		return []Event{}
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end]
}

// Matches reports whether an event satisfies the query's search filter
func (q EventListQuery) Matches(e *Event) bool {
	if q.Search == "" {
		return true
	}
	term := strings.ToLower(q.Search)
	return strings.Contains(strings.ToLower(e.Name), term) ||
		strings.Contains(strings.ToLower(e.Description), term)
}
