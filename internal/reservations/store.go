package reservations

import (
	"context"
	"errors"

	"ticketly/internal/activity"
	"ticketly/internal/events"
	"ticketly/internal/seats"

	"github.com/google/uuid"
)

// ErrRecordNotFound is returned by stores for absent rows
var ErrRecordNotFound = errors.New("record not found")

// ErrCounterGuard is returned when a ticket counter update would leave
// the 0..capacity range
var ErrCounterGuard = errors.New("ticket counter out of range")

// Tx is the set of inventory operations available inside one atomic
// transaction. Either all of them take effect or none do.
type Tx interface {
	// GetEvent locks the event row for the rest of the transaction
	GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error)
	DecrementTickets(ctx context.Context, eventID uuid.UUID) error
	IncrementTickets(ctx context.Context, eventID uuid.UUID) error
	GetSeat(ctx context.Context, eventID uuid.UUID, seatNumber string) (*seats.Seat, error)
	SetSeatStatus(ctx context.Context, eventID uuid.UUID, seatNumber string, status seats.Status) error
	InsertReservation(ctx context.Context, r *Reservation) error
	DeleteReservation(ctx context.Context, userID, eventID uuid.UUID) error
	GetReservation(ctx context.Context, userID, eventID uuid.UUID) (*Reservation, error)
	AppendLog(ctx context.Context, entry *activity.Log) error
}

// Reader serves queries outside any transaction
type Reader interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error)
	ListEvents(ctx context.Context) ([]events.Event, error)
	ListSeats(ctx context.Context, eventID uuid.UUID) ([]seats.Seat, error)
	// ListReservations returns a user's reservations with their events loaded
	ListReservations(ctx context.Context, userID uuid.UUID) ([]Reservation, error)
	ListEventReservations(ctx context.Context, eventID uuid.UUID) ([]Reservation, error)
	GetReservation(ctx context.Context, userID, eventID uuid.UUID) (*Reservation, error)
	// ListLogs returns at most limit entries, newest first
	ListLogs(ctx context.Context, userID uuid.UUID, limit int) ([]activity.Log, error)
}

type Store interface {
	Reader
	// WithinTx runs fn in one transaction, rolling back if fn returns an error
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
