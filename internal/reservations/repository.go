package reservations

import (
	"context"
	"errors"
	"fmt"

	"ticketly/internal/activity"
	"ticketly/internal/events"
	"ticketly/internal/seats"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db *gorm.DB
}

// NewStore returns the PostgreSQL-backed Store
func NewStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// WithinTx commits when fn returns nil and rolls back otherwise
func (s *gormStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx, logs: activity.NewRepository(tx)})
	})
}

func (s *gormStore) GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error) {
	return getEvent(s.db.WithContext(ctx), eventID)
}

func (s *gormStore) ListEvents(ctx context.Context) ([]events.Event, error) {
	var list []events.Event
	if err := s.db.WithContext(ctx).Order("date ASC, name ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return list, nil
}

func (s *gormStore) ListSeats(ctx context.Context, eventID uuid.UUID) ([]seats.Seat, error) {
	var list []seats.Seat
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("seat_number ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list seats: %w", err)
	}
	return list, nil
}

func (s *gormStore) ListReservations(ctx context.Context, userID uuid.UUID) ([]Reservation, error) {
	var list []Reservation
	err := s.db.WithContext(ctx).
		// Load event names for the listing
		Preload("Event").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return list, nil
}

func (s *gormStore) ListEventReservations(ctx context.Context, eventID uuid.UUID) ([]Reservation, error) {
	var list []Reservation
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("seat_number ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list event reservations: %w", err)
	}
	return list, nil
}

func (s *gormStore) GetReservation(ctx context.Context, userID, eventID uuid.UUID) (*Reservation, error) {
	return getReservation(s.db.WithContext(ctx).Preload("Event"), userID, eventID)
}

func (s *gormStore) ListLogs(ctx context.Context, userID uuid.UUID, limit int) ([]activity.Log, error) {
	return activity.NewRepository(s.db).ListByUser(ctx, userID, limit)
}

func getEvent(db *gorm.DB, eventID uuid.UUID) (*events.Event, error) {
	var event events.Event
	if err := db.Where("id = ?", eventID).First(&event).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return &event, nil
}

func getReservation(db *gorm.DB, userID, eventID uuid.UUID) (*Reservation, error) {
	var r Reservation
	err := db.Where("user_id = ? AND event_id = ?", userID, eventID).First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	return &r, nil
}

type gormTx struct {
	db   *gorm.DB
	logs activity.Repository
}

// GetEvent takes a row lock so concurrent instances serialize on the event
func (t *gormTx) GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error) {
	return getEvent(t.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), eventID)
}

// DecrementTickets refuses to take the counter below zero
func (t *gormTx) DecrementTickets(ctx context.Context, eventID uuid.UUID) error {
	res := t.db.WithContext(ctx).
		Model(&events.Event{}).
		// Guarded update; zero rows means the counter was already at zero
		Where("id = ? AND available_tickets > 0", eventID).
		Update("available_tickets", gorm.Expr("available_tickets - 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to decrement tickets: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCounterGuard
	}
	return nil
}

// IncrementTickets refuses to take the counter above capacity
func (t *gormTx) IncrementTickets(ctx context.Context, eventID uuid.UUID) error {
	res := t.db.WithContext(ctx).
		Model(&events.Event{}).
		// Guarded update; zero rows means the counter was already full
		Where("id = ? AND available_tickets < capacity", eventID).
		Update("available_tickets", gorm.Expr("available_tickets + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to increment tickets: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrCounterGuard
	}
	return nil
}

func (t *gormTx) GetSeat(ctx context.Context, eventID uuid.UUID, seatNumber string) (*seats.Seat, error) {
	var seat seats.Seat
	err := t.db.WithContext(ctx).
		Where("event_id = ? AND seat_number = ?", eventID, seatNumber).
		First(&seat).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to load seat: %w", err)
	}
	return &seat, nil
}

func (t *gormTx) SetSeatStatus(ctx context.Context, eventID uuid.UUID, seatNumber string, status seats.Status) error {
	res := t.db.WithContext(ctx).
		Model(&seats.Seat{}).
		Where("event_id = ? AND seat_number = ?", eventID, seatNumber).
		Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update seat status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (t *gormTx) InsertReservation(ctx context.Context, r *Reservation) error {
	// The event row is already locked; do not upsert it through the association
	if err := t.db.WithContext(ctx).Omit("Event").Create(r).Error; err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (t *gormTx) DeleteReservation(ctx context.Context, userID, eventID uuid.UUID) error {
	res := t.db.WithContext(ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		Delete(&Reservation{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete reservation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (t *gormTx) GetReservation(ctx context.Context, userID, eventID uuid.UUID) (*Reservation, error) {
	return getReservation(t.db.WithContext(ctx), userID, eventID)
}

func (t *gormTx) AppendLog(ctx context.Context, entry *activity.Log) error {
	return t.logs.Append(ctx, entry)
}
