package reservations

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ticketly/internal/activity"
	"ticketly/internal/events"
	"ticketly/internal/seats"

	"github.com/google/uuid"
)

// ErrInjected is returned by a MemoryStore operation armed with FailOn
var ErrInjected = errors.New("injected storage failure")

// ErrDuplicateSeatReservation mirrors the (event_id, seat_number) unique index
var ErrDuplicateSeatReservation = errors.New("seat already held by a reservation")

type seatKey struct {
	eventID uuid.UUID
	number  string
}

type holderKey struct {
	userID  uuid.UUID
	eventID uuid.UUID
}

type memoryState struct {
	events       map[uuid.UUID]events.Event
	seats        map[seatKey]seats.Seat
	reservations map[holderKey]Reservation
}

func newMemoryState() *memoryState {
	return &memoryState{
		events:       make(map[uuid.UUID]events.Event),
		seats:        make(map[seatKey]seats.Seat),
		reservations: make(map[holderKey]Reservation),
	}
}

func (s *memoryState) clone() *memoryState {
	cp := &memoryState{
		events:       make(map[uuid.UUID]events.Event, len(s.events)),
		seats:        make(map[seatKey]seats.Seat, len(s.seats)),
		reservations: make(map[holderKey]Reservation, len(s.reservations)),
	}
	for k, v := range s.events {
		cp.events[k] = v
	}
	for k, v := range s.seats {
		cp.seats[k] = v
	}
	for k, v := range s.reservations {
		cp.reservations[k] = v
	}
	return cp
}

// MemoryStore is a process-local Store. Transactions work on a copy of the
// state that replaces the live state only on commit. It also serves as the
// event catalog repository for the memory backend.
type MemoryStore struct {
	mu     sync.RWMutex
	state  *memoryState
	logs   []activity.Log
	failOn string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemoryState()}
}

// FailOn makes the named Tx operation fail with ErrInjected; "" disarms
func (m *MemoryStore) FailOn(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOn = op
}

// WithinTx holds the store-wide write lock for the whole transaction, so
// transactions on different events run one at a time. Pair it with the
// memory waitlist only; server wiring rejects other combinations.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Work on a copy; the live state is untouched until fn succeeds
	tx := &memoryTx{state: m.state.clone(), failOn: m.failOn}
	if err := fn(tx); err != nil {
		return err
	}
	// Commit
	m.state = tx.state
	m.logs = append(m.logs, tx.logs...)
	return nil
}

func (m *MemoryStore) GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.state.events[eventID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &e, nil
}

func (m *MemoryStore) ListEvents(ctx context.Context) ([]events.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedEvents(), nil
}

func (m *MemoryStore) sortedEvents() []events.Event {
	list := make([]events.Event, 0, len(m.state.events))
	for _, e := range m.state.events {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].Date.Equal(list[j].Date) {
			return list[i].Date.Before(list[j].Date)
		}
		return list[i].Name < list[j].Name
	})
	return list
}

func (m *MemoryStore) ListSeats(ctx context.Context, eventID uuid.UUID) ([]seats.Seat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []seats.Seat
	for k, s := range m.state.seats {
		if k.eventID == eventID {
			list = append(list, s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SeatNumber < list[j].SeatNumber })
	return list, nil
}

func (m *MemoryStore) ListReservations(ctx context.Context, userID uuid.UUID) ([]Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []Reservation
	for k, r := range m.state.reservations {
		if k.userID == userID {
			list = append(list, m.withEvent(r))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	return list, nil
}

func (m *MemoryStore) ListEventReservations(ctx context.Context, eventID uuid.UUID) ([]Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []Reservation
	for k, r := range m.state.reservations {
		if k.eventID == eventID {
			list = append(list, r)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SeatNumber < list[j].SeatNumber })
	return list, nil
}

func (m *MemoryStore) GetReservation(ctx context.Context, userID, eventID uuid.UUID) (*Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.state.reservations[holderKey{userID, eventID}]
	if !ok {
		return nil, ErrRecordNotFound
	}
	r = m.withEvent(r)
	return &r, nil
}

func (m *MemoryStore) withEvent(r Reservation) Reservation {
	if e, ok := m.state.events[r.EventID]; ok {
		r.Event = &e
	}
	return r
}

func (m *MemoryStore) ListLogs(ctx context.Context, userID uuid.UUID, limit int) ([]activity.Log, error) {
	if limit <= 0 {
		limit = activity.DefaultHistoryLimit
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []activity.Log
	for i := len(m.logs) - 1; i >= 0 && len(list) < limit; i-- {
		if m.logs[i].UserID == userID {
			list = append(list, m.logs[i])
		}
	}
	return list, nil
}

// Catalog operations, satisfying events.Repository

func (m *MemoryStore) Create(ctx context.Context, event *events.Event, seatCodes []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Event names are unique
	for _, e := range m.state.events {
		if e.Name == event.Name {
			return events.ErrDuplicateEvent
		}
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	now := time.Now().UTC()
	event.CreatedAt, event.UpdatedAt = now, now
	m.state.events[event.ID] = *event

	// Create one AVAILABLE seat per code
	for _, code := range seatCodes {
		m.state.seats[seatKey{event.ID, code}] = seats.Seat{
			ID:         uuid.New(),
			EventID:    event.ID,
			SeatNumber: code,
			Status:     seats.StatusAvailable,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	e, err := m.GetEvent(ctx, id)
	if errors.Is(err, ErrRecordNotFound) {
		return nil, events.ErrEventNotFound
	}
	return e, err
}

func (m *MemoryStore) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) (*events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.state.events[id]
	if !ok {
		return nil, events.ErrEventNotFound
	}

	for field, value := range updates {
		switch field {
		case "name":
			name, _ := value.(string)
			for otherID, other := range m.state.events {
				if otherID != id && other.Name == name {
					return nil, events.ErrDuplicateEvent
				}
			}
			e.Name = name
		case "description":
			e.Description, _ = value.(string)
		case "date":
			e.Date, _ = value.(time.Time)
		default:
			return nil, fmt.Errorf("unsupported event field %q", field)
		}
	}
	e.UpdatedAt = time.Now().UTC()
	m.state.events[id] = e
	return &e, nil
}

func (m *MemoryStore) List(ctx context.Context, query events.EventListQuery) ([]events.Event, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []events.Event
	for _, e := range m.sortedEvents() {
		if query.Matches(&e) {
			matched = append(matched, e)
		}
	}
	return query.Paginate(matched), int64(len(matched)), nil
}

type memoryTx struct {
	state  *memoryState
	logs   []activity.Log
	failOn string
}

func (t *memoryTx) fault(op string) error {
	if t.failOn == op {
		return fmt.Errorf("%s: %w", op, ErrInjected)
	}
	return nil
}

func (t *memoryTx) GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error) {
	if err := t.fault("GetEvent"); err != nil {
		return nil, err
	}
	e, ok := t.state.events[eventID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &e, nil
}

func (t *memoryTx) adjustTickets(eventID uuid.UUID, delta int) error {
	e, ok := t.state.events[eventID]
	if !ok {
		return ErrRecordNotFound
	}
	// Counter stays within 0..capacity
	next := e.AvailableTickets + delta
	if next < 0 || next > e.Capacity {
		return ErrCounterGuard
	}
	e.AvailableTickets = next
	t.state.events[eventID] = e
	return nil
}

func (t *memoryTx) DecrementTickets(ctx context.Context, eventID uuid.UUID) error {
	if err := t.fault("DecrementTickets"); err != nil {
		return err
	}
	return t.adjustTickets(eventID, -1)
}

func (t *memoryTx) IncrementTickets(ctx context.Context, eventID uuid.UUID) error {
	if err := t.fault("IncrementTickets"); err != nil {
		return err
	}
	return t.adjustTickets(eventID, 1)
}

func (t *memoryTx) GetSeat(ctx context.Context, eventID uuid.UUID, seatNumber string) (*seats.Seat, error) {
	if err := t.fault("GetSeat"); err != nil {
		return nil, err
	}
	s, ok := t.state.seats[seatKey{eventID, seatNumber}]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &s, nil
}

func (t *memoryTx) SetSeatStatus(ctx context.Context, eventID uuid.UUID, seatNumber string, status seats.Status) error {
	if err := t.fault("SetSeatStatus"); err != nil {
		return err
	}
	key := seatKey{eventID, seatNumber}
	s, ok := t.state.seats[key]
	if !ok {
		return ErrRecordNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now().UTC()
	t.state.seats[key] = s
	return nil
}

func (t *memoryTx) InsertReservation(ctx context.Context, r *Reservation) error {
	if err := t.fault("InsertReservation"); err != nil {
		return err
	}
	key := holderKey{r.UserID, r.EventID}
	if _, exists := t.state.reservations[key]; exists {
		return fmt.Errorf("user %s already holds a reservation for event %s", r.UserID, r.EventID)
	}
	// Mirrors the (event_id, seat_number) unique index
	for k, other := range t.state.reservations {
		if k.eventID == r.EventID && other.SeatNumber == r.SeatNumber {
			return ErrDuplicateSeatReservation
		}
	}
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	stored := *r
	// Readers attach the live event on the way out
	stored.Event = nil
	t.state.reservations[key] = stored
	return nil
}

func (t *memoryTx) DeleteReservation(ctx context.Context, userID, eventID uuid.UUID) error {
	if err := t.fault("DeleteReservation"); err != nil {
		return err
	}
	key := holderKey{userID, eventID}
	if _, ok := t.state.reservations[key]; !ok {
		return ErrRecordNotFound
	}
	delete(t.state.reservations, key)
	return nil
}

func (t *memoryTx) GetReservation(ctx context.Context, userID, eventID uuid.UUID) (*Reservation, error) {
	if err := t.fault("GetReservation"); err != nil {
		return nil, err
	}
	r, ok := t.state.reservations[holderKey{userID, eventID}]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return &r, nil
}

func (t *memoryTx) AppendLog(ctx context.Context, entry *activity.Log) error {
	if err := t.fault("AppendLog"); err != nil {
		return err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	t.logs = append(t.logs, *entry)
	return nil
}
