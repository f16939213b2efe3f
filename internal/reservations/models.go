package reservations

import (
	"time"

	"ticketly/internal/events"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reservation binds one user to one seat of one event. A user holds at most
// one reservation per event and a seat is held by at most one user.
type Reservation struct {
	ID         uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_reservation_user_event,priority:1"`
	EventID    uuid.UUID     `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_reservation_user_event,priority:2;uniqueIndex:idx_reservation_event_seat,priority:1"`
	SeatNumber string        `json:"seat_number" gorm:"size:8;not null;uniqueIndex:idx_reservation_event_seat,priority:2"`
	CreatedAt  time.Time     `json:"created_at" gorm:"not null"`
	Event      *events.Event `json:"event,omitempty" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
}

func (Reservation) TableName() string {
	return "reservations"
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	return nil
}

// EventName is the event's name when the association was loaded
func (r *Reservation) EventName() string {
	if r.Event == nil {
		return r.EventID.String()
	}
	return r.Event.Name
}
