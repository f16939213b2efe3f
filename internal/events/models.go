package events

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Event struct {
	ID               uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name             string    `json:"name" gorm:"not null;size:255;uniqueIndex"`
	Description      string    `json:"description" gorm:"type:text"`
	Date             time.Time `json:"date" gorm:"not null"`
	Capacity         int       `json:"capacity" gorm:"not null;check:capacity > 0"`
	AvailableTickets int       `json:"available_tickets" gorm:"not null;check:available_tickets >= 0"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Event) TableName() string {
	return "events"
}

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Reserved is the number of active reservations implied by the counters
func (e *Event) Reserved() int {
	return e.Capacity - e.AvailableTickets
}

func (e *Event) IsSoldOut() bool {
	return e.AvailableTickets <= 0
}

type EventResponse struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Date             time.Time `json:"date"`
	Capacity         int       `json:"capacity"`
	AvailableTickets int       `json:"available_tickets"`
	ReservedCount    int       `json:"reserved_count"`
	Status           Status    `json:"status"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type CreateEventRequest struct {
	Name        string    `json:"name" binding:"required,min=1,max=255"`
	Description string    `json:"description" binding:"max=2000"`
	Date        time.Time `json:"date" binding:"required"`
	Capacity    int       `json:"capacity" binding:"required,min=1,max=234"`
}

// UpdateEventRequest leaves capacity out: the seat layout is fixed once generated
type UpdateEventRequest struct {
	Name        *string    `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description" binding:"omitempty,max=2000"`
	Date        *time.Time `json:"date"`
}

type EventListQuery struct {
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search string `form:"search"`
}

type PaginatedEvents struct {
	Events     []EventResponse `json:"events"`
	TotalCount int64           `json:"total_count"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

func (e *Event) ToResponse() EventResponse {
	return EventResponse{
		ID:               e.ID.String(),
		Name:             e.Name,
		Description:      e.Description,
		Date:             e.Date,
		Capacity:         e.Capacity,
		AvailableTickets: e.AvailableTickets,
		ReservedCount:    e.Reserved(),
		Status:           StatusOf(e, time.Now()),
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}
