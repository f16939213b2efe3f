package seats

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Status is the booking state of a single seat
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusReserved  Status = "RESERVED"
)

// IsValid reports whether the status is one of the known values
func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusReserved:
		return true
	default:
		return false
	}
}

// Seat is one addressable unit of inventory within an event
type Seat struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EventID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_event_seat" json:"event_id"`
	SeatNumber string    `gorm:"size:8;not null;uniqueIndex:idx_event_seat" json:"seat_number"`
	Status     Status    `gorm:"type:varchar(20);not null;default:'AVAILABLE';check:status IN ('AVAILABLE', 'RESERVED')" json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName sets the table name for Seat
func (Seat) TableName() string {
	return "seats"
}

// BeforeCreate assigns an id when the caller did not
func (s *Seat) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *Seat) IsAvailable() bool {
	return s.Status == StatusAvailable
}

func (s *Seat) IsReserved() bool {
	return s.Status == StatusReserved
}

// ToResponse converts a Seat to its API representation
func (s *Seat) ToResponse() SeatResponse {
	return SeatResponse{
		ID:         s.ID.String(),
		SeatNumber: s.SeatNumber,
		Status:     string(s.Status),
	}
}
