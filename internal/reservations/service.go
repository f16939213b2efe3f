package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ticketly/internal/activity"
	"ticketly/internal/events"
	"ticketly/internal/locks"
	"ticketly/internal/seats"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

const (
	DefaultOperationTimeout = 5 * time.Second
	DefaultNotifyTimeout    = 3 * time.Second
)

// Waitlist is the per-event FIFO of users waiting for a ticket
type Waitlist interface {
	Enqueue(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	Peek(ctx context.Context, eventID uuid.UUID) (uuid.UUID, bool, error)
	DequeueHead(ctx context.Context, eventID uuid.UUID) (uuid.UUID, bool, error)
	Remove(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	Position(ctx context.Context, eventID, userID uuid.UUID) (int, bool, error)
}

// Notifier delivers a message to a user's live sessions. It reports whether
// a session received it, or for broker-backed sinks whether the broker
// accepted it for fan-out.
type Notifier interface {
	Push(ctx context.Context, userID uuid.UUID, message string) bool
}

type SeatMapCache interface {
	Get(ctx context.Context, eventID uuid.UUID) (*seats.Grid, bool)
	Set(ctx context.Context, g *seats.Grid) error
	Invalidate(ctx context.Context, eventID uuid.UUID) error
}

type EventCache interface {
	InvalidateEvent(ctx context.Context, id uuid.UUID)
}

type Options struct {
	OperationTimeout time.Duration
	NotifyTimeout    time.Duration
	LogHistoryLimit  int
	SeatMaps         SeatMapCache
	Events           EventCache
	Logger           *logger.Logger
}

// Engine applies reserve, cancel and waitlist transitions. Every mutation of
// an event runs under that event's lock and commits in one store transaction.
type Engine struct {
	store    Store
	locks    locks.Locker
	waitlist Waitlist
	notifier Notifier

	seatMaps      SeatMapCache
	events        EventCache
	timeout       time.Duration
	notifyTimeout time.Duration
	logLimit      int
	log           *logger.Logger

	pending sync.WaitGroup
}

func NewEngine(store Store, locker locks.Locker, queue Waitlist, notifier Notifier, opts Options) *Engine {
	e := &Engine{
		store:         store,
		locks:         locker,
		waitlist:      queue,
		notifier:      notifier,
		seatMaps:      opts.SeatMaps,
		events:        opts.Events,
		timeout:       opts.OperationTimeout,
		notifyTimeout: opts.NotifyTimeout,
		logLimit:      opts.LogHistoryLimit,
		log:           opts.Logger,
	}
	if e.timeout <= 0 {
		e.timeout = DefaultOperationTimeout
	}
	if e.notifyTimeout <= 0 {
		e.notifyTimeout = DefaultNotifyTimeout
	}
	if e.logLimit <= 0 {
		e.logLimit = activity.DefaultHistoryLimit
	}
	if e.log == nil {
		e.log = logger.GetDefault()
	}
	e.log = e.log.WithComponent("reservations")
	return e
}

// Drain waits for in-flight promotion notifications
func (e *Engine) Drain() {
	e.pending.Wait()
}

func (e *Engine) lock(ctx context.Context, eventID uuid.UUID) (locks.Handle, error) {
	return e.locks.Acquire(ctx, eventID)
}

func (e *Engine) failure(ctx context.Context, op string, eventID uuid.UUID, err error) Result {
	if locks.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		e.log.WarnContext(ctx, "event operation timed out", "op", op, "event_id", eventID.String(), "error", err)
		return Result{Kind: KindTimeout, Message: "the event is busy, please try again", Err: err}
	}
	e.log.ErrorWithContext(ctx, "event operation failed", err, map[string]interface{}{
		"op":       op,
		"event_id": eventID.String(),
	})
	return Result{Kind: KindStorageFailure, Message: "storage failure, nothing was changed", Err: err}
}

// Reserve books seatNumber for userID, or queues the user when the event
// has no tickets left.
func (e *Engine) Reserve(ctx context.Context, userID, eventID uuid.UUID, seatNumber string) Result {
	if strings.TrimSpace(seatNumber) == "" {
		return result(KindValidation, "seat number is required")
	}
	seat := seats.NormalizeCode(seatNumber)

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	h, err := e.lock(ctx, eventID)
	if err != nil {
		return e.failure(ctx, "reserve", eventID, err)
	}
	defer h.Release()

	var (
		res     Result
		event   *events.Event
		soldOut bool
	)
	err = e.store.WithinTx(ctx, func(tx Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if errors.Is(err, ErrRecordNotFound) {
			res = result(KindEventNotFound, "event %s does not exist", eventID)
			return nil
		}
		if err != nil {
			return err
		}
		event = ev

		// One seat per user per event
		held, err := tx.GetReservation(ctx, userID, eventID)
		if err == nil {
			res = result(KindAlreadyReserved, "you already hold seat %s for event %s", held.SeatNumber, ev.Name)
			return nil
		}
		if !errors.Is(err, ErrRecordNotFound) {
			return err
		}

		// Sold out: queue the user once the transaction ends
		if ev.AvailableTickets <= 0 {
			soldOut = true
			return nil
		}

		// Check the requested seat
		s, err := tx.GetSeat(ctx, eventID, seat)
		if errors.Is(err, ErrRecordNotFound) {
			res = result(KindSeatNotFound, "seat %s does not exist for event %s", seat, ev.Name)
			return nil
		}
		if err != nil {
			return err
		}
		if s.IsReserved() {
			res = result(KindSeatConflict, "seat %s for event %s is already reserved", seat, ev.Name)
			return nil
		}

		// Reservation row, seat status, counter and history move together
		r := &Reservation{ID: uuid.New(), UserID: userID, EventID: eventID, SeatNumber: seat, CreatedAt: time.Now().UTC()}
		if err := tx.InsertReservation(ctx, r); err != nil {
			return err
		}
		if err := tx.SetSeatStatus(ctx, eventID, seat, seats.StatusReserved); err != nil {
			return err
		}
		if err := tx.DecrementTickets(ctx, eventID); err != nil {
			return err
		}
		message := fmt.Sprintf("Reserved seat %s for event %s", seat, ev.Name)
		if err := tx.AppendLog(ctx, activity.New(userID, &eventID, activity.ActionReserved, message)); err != nil {
			return err
		}

		r.Event = ev
		res = Result{Kind: KindSuccess, Message: message, Reservation: r}
		return nil
	})
	if err != nil {
		return e.failure(ctx, "reserve", eventID, err)
	}

	if soldOut {
		return e.joinWaitlist(ctx, userID, event)
	}
	if res.OK() {
		// a successful booking supersedes any queued request
		if _, err := e.waitlist.Remove(ctx, eventID, userID); err != nil {
			e.log.WarnContext(ctx, "failed to drop reserved user from waitlist", "event_id", eventID.String(), "user_id", userID.String(), "error", err)
		}
		e.invalidate(ctx, eventID)
		e.log.LogReservationCreated(ctx, res.Reservation.ID.String(), eventID.String(), userID.String(), seat)
	}
	return res
}

func (e *Engine) joinWaitlist(ctx context.Context, userID uuid.UUID, event *events.Event) Result {
	// Enqueue is idempotent; a repeat request keeps the original place
	added, err := e.waitlist.Enqueue(ctx, event.ID, userID)
	if err != nil {
		return e.failure(ctx, "waitlist", event.ID, err)
	}
	position, _, err := e.waitlist.Position(ctx, event.ID, userID)
	if err != nil {
		return e.failure(ctx, "waitlist", event.ID, err)
	}

	if !added {
		res := result(KindWaitlisted, "event %s is sold out; you are already number %d on the waitlist", event.Name, position)
		res.Position = position
		return res
	}

	message := fmt.Sprintf("Joined waitlist for event %s at position %d", event.Name, position)
	eventID := event.ID
	err = e.store.WithinTx(ctx, func(tx Tx) error {
		return tx.AppendLog(ctx, activity.New(userID, &eventID, activity.ActionWaitlisted, message))
	})
	if err != nil {
		e.log.WarnContext(ctx, "failed to record waitlist activity", "event_id", eventID.String(), "error", err)
	}
	e.log.LogWaitlisted(ctx, eventID.String(), userID.String(), position)

	res := result(KindWaitlisted, "event %s is sold out; you are number %d on the waitlist", event.Name, position)
	res.Position = position
	return res
}

// Cancel releases the user's reservation. The freed seat goes to the head
// of the waitlist within the same transaction, if anyone is waiting.
func (e *Engine) Cancel(ctx context.Context, userID, eventID uuid.UUID) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	h, err := e.lock(ctx, eventID)
	if err != nil {
		return e.failure(ctx, "cancel", eventID, err)
	}
	defer h.Release()

	var (
		res       Result
		promotion *Promotion
		eventName string
	)
	err = e.store.WithinTx(ctx, func(tx Tx) error {
		ev, err := tx.GetEvent(ctx, eventID)
		if errors.Is(err, ErrRecordNotFound) {
			res = result(KindEventNotFound, "event %s does not exist", eventID)
			return nil
		}
		if err != nil {
			return err
		}
		eventName = ev.Name

		r, err := tx.GetReservation(ctx, userID, eventID)
		if errors.Is(err, ErrRecordNotFound) {
			res = result(KindReservationNotFound, "you have no reservation for event %s", ev.Name)
			return nil
		}
		if err != nil {
			return err
		}

		// Release the seat
		if err := tx.DeleteReservation(ctx, userID, eventID); err != nil {
			return err
		}
		if err := tx.SetSeatStatus(ctx, eventID, r.SeatNumber, seats.StatusAvailable); err != nil {
			return err
		}
		if err := tx.IncrementTickets(ctx, eventID); err != nil {
			return err
		}
		message := fmt.Sprintf("Canceled reservation for seat %s of event %s", r.SeatNumber, ev.Name)
		if err := tx.AppendLog(ctx, activity.New(userID, &eventID, activity.ActionCancelled, message)); err != nil {
			return err
		}

		// Hand the freed seat to the waitlist head in the same transaction
		promotion, err = e.promote(ctx, tx, ev, userID, r.SeatNumber)
		if err != nil {
			return err
		}

		res = Result{Kind: KindSuccess, Message: message, Reservation: r, Promotion: promotion}
		return nil
	})
	if err != nil {
		return e.failure(ctx, "cancel", eventID, err)
	}
	if !res.OK() {
		return res
	}

	e.log.LogReservationCancelled(ctx, eventID.String(), userID.String(), res.Reservation.SeatNumber)
	if promotion != nil {
		// The queue entry goes only after the promotion committed
		if _, err := e.waitlist.Remove(ctx, eventID, promotion.UserID); err != nil {
			e.log.WarnContext(ctx, "failed to remove promoted user from waitlist", "event_id", eventID.String(), "user_id", promotion.UserID.String(), "error", err)
		}
		e.log.LogWaitlistPromotion(ctx, eventID.String(), promotion.UserID.String(), promotion.SeatNumber)
		e.notify(promotion.UserID, fmt.Sprintf("seat %s for event %s was freed and is now reserved for you", promotion.SeatNumber, eventName))
	}
	e.invalidate(ctx, eventID)
	return res
}

// promote hands the freed seat to the first waiting user who does not
// already hold a reservation. Stale heads are dropped from the queue.
func (e *Engine) promote(ctx context.Context, tx Tx, ev *events.Event, canceller uuid.UUID, seat string) (*Promotion, error) {
	for {
		head, ok, err := e.waitlist.Peek(ctx, ev.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}

		// The canceller and users who already hold a seat cannot take this one
		stale := head == canceller
		if !stale {
			_, err = tx.GetReservation(ctx, head, ev.ID)
			switch {
			case err == nil:
				stale = true
			case !errors.Is(err, ErrRecordNotFound):
				return nil, err
			}
		}
		if stale {
			// Drop the stale head and look at the next user
			if _, _, err := e.waitlist.DequeueHead(ctx, ev.ID); err != nil {
				return nil, err
			}
			continue
		}

		eventID := ev.ID
		if err := tx.SetSeatStatus(ctx, eventID, seat, seats.StatusReserved); err != nil {
			return nil, err
		}
		// Reassign the exact seat the canceller freed
		r := &Reservation{ID: uuid.New(), UserID: head, EventID: eventID, SeatNumber: seat, CreatedAt: time.Now().UTC()}
		if err := tx.InsertReservation(ctx, r); err != nil {
			return nil, err
		}
		if err := tx.DecrementTickets(ctx, eventID); err != nil {
			return nil, err
		}
		message := fmt.Sprintf("Auto-reserved seat %s for event %s from waitlist", seat, ev.Name)
		if err := tx.AppendLog(ctx, activity.New(head, &eventID, activity.ActionAutoReserved, message)); err != nil {
			return nil, err
		}
		return &Promotion{UserID: head, SeatNumber: seat}, nil
	}
}

// notify pushes in the background; failures never affect the committed state
func (e *Engine) notify(userID uuid.UUID, message string) {
	if e.notifier == nil {
		return
	}
	e.pending.Add(1)
	go func() {
		defer e.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				e.log.ErrorContext(ctx, "notifier panicked", "user_id", userID.String(), "panic", fmt.Sprint(r))
			}
		}()

		if !e.notifier.Push(ctx, userID, message) {
			e.log.LogNotificationUndelivered(ctx, userID.String(), "no live session received the message")
		}
	}()
}

func (e *Engine) invalidate(ctx context.Context, eventID uuid.UUID) {
	ctx = context.WithoutCancel(ctx)
	if e.seatMaps != nil {
		if err := e.seatMaps.Invalidate(ctx, eventID); err != nil {
			e.log.WarnContext(ctx, "failed to invalidate seat map", "event_id", eventID.String(), "error", err)
		}
	}
	if e.events != nil {
		e.events.InvalidateEvent(ctx, eventID)
	}
}

// LeaveWaitlist withdraws a queued request
func (e *Engine) LeaveWaitlist(ctx context.Context, userID, eventID uuid.UUID) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	h, err := e.lock(ctx, eventID)
	if err != nil {
		return e.failure(ctx, "leave_waitlist", eventID, err)
	}
	defer h.Release()

	event, err := e.store.GetEvent(ctx, eventID)
	if errors.Is(err, ErrRecordNotFound) {
		return result(KindEventNotFound, "event %s does not exist", eventID)
	}
	if err != nil {
		return e.failure(ctx, "leave_waitlist", eventID, err)
	}

	removed, err := e.waitlist.Remove(ctx, eventID, userID)
	if err != nil {
		return e.failure(ctx, "leave_waitlist", eventID, err)
	}
	if !removed {
		return result(KindNotWaitlisted, "you are not on the waitlist for event %s", event.Name)
	}

	message := fmt.Sprintf("Left waitlist for event %s", event.Name)
	err = e.store.WithinTx(ctx, func(tx Tx) error {
		return tx.AppendLog(ctx, activity.New(userID, &eventID, activity.ActionLeftWaitlist, message))
	})
	if err != nil {
		e.log.WarnContext(ctx, "failed to record waitlist activity", "event_id", eventID.String(), "error", err)
	}
	return result(KindSuccess, "%s", message)
}

// WaitlistPosition reports the user's 1-based place in the event's queue
func (e *Engine) WaitlistPosition(ctx context.Context, userID, eventID uuid.UUID) Result {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	h, err := e.lock(ctx, eventID)
	if err != nil {
		return e.failure(ctx, "waitlist_position", eventID, err)
	}
	defer h.Release()

	event, err := e.store.GetEvent(ctx, eventID)
	if errors.Is(err, ErrRecordNotFound) {
		return result(KindEventNotFound, "event %s does not exist", eventID)
	}
	if err != nil {
		return e.failure(ctx, "waitlist_position", eventID, err)
	}

	position, ok, err := e.waitlist.Position(ctx, eventID, userID)
	if err != nil {
		return e.failure(ctx, "waitlist_position", eventID, err)
	}
	if !ok {
		return result(KindNotWaitlisted, "you are not on the waitlist for event %s", event.Name)
	}
	res := result(KindSuccess, "you are number %d on the waitlist for event %s", position, event.Name)
	res.Position = position
	return res
}

func (e *Engine) readError(what string, err error) error {
	if errors.Is(err, ErrRecordNotFound) {
		kind := KindEventNotFound
		if what == "reservation" {
			kind = KindReservationNotFound
		}
		return readError(kind, what+" not found", nil)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return readError(KindTimeout, "timed out reading "+what, err)
	}
	return readError(KindStorageFailure, "failed to read "+what, err)
}

// GetSeatAvailability returns the event's seat grid, served from the seat
// map cache when possible
func (e *Engine) GetSeatAvailability(ctx context.Context, eventID uuid.UUID) (*seats.Grid, error) {
	if e.seatMaps != nil {
		if g, ok := e.seatMaps.Get(ctx, eventID); ok {
			return g, nil
		}
	}

	// Unknown events never reach the lock registry
	if _, err := e.store.GetEvent(ctx, eventID); err != nil {
		return nil, e.readError("event", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// Build and cache the grid under the event lock so a commit cannot land
	// between the read and the Set and leave a stale map cached.
	h, err := e.lock(ctx, eventID)
	if err != nil {
		if locks.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
			return nil, readError(KindTimeout, "timed out waiting for event", err)
		}
		return nil, readError(KindStorageFailure, "failed to lock event", err)
	}
	defer h.Release()

	// another reader may have filled it while we waited
	if e.seatMaps != nil {
		if g, ok := e.seatMaps.Get(ctx, eventID); ok {
			return g, nil
		}
	}

	list, err := e.store.ListSeats(ctx, eventID)
	if err != nil {
		return nil, e.readError("seats", err)
	}

	grid := seats.BuildGrid(eventID, list)
	if e.seatMaps != nil {
		if err := e.seatMaps.Set(ctx, grid); err != nil {
			e.log.WarnContext(ctx, "failed to cache seat map", "event_id", eventID.String(), "error", err)
		}
	}
	return grid, nil
}

func (e *Engine) ListEvents(ctx context.Context) ([]events.Event, error) {
	list, err := e.store.ListEvents(ctx)
	if err != nil {
		return nil, e.readError("events", err)
	}
	return list, nil
}

func (e *Engine) GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error) {
	ev, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return nil, e.readError("event", err)
	}
	return ev, nil
}

func (e *Engine) ListUserReservations(ctx context.Context, userID uuid.UUID) ([]Reservation, error) {
	list, err := e.store.ListReservations(ctx, userID)
	if err != nil {
		return nil, e.readError("reservations", err)
	}
	return list, nil
}

// ListUserLogs returns the newest entries first; limit <= 0 uses the default
func (e *Engine) ListUserLogs(ctx context.Context, userID uuid.UUID, limit int) ([]activity.Log, error) {
	if limit <= 0 {
		limit = e.logLimit
	}
	list, err := e.store.ListLogs(ctx, userID, limit)
	if err != nil {
		return nil, e.readError("activity log", err)
	}
	return list, nil
}

func (e *Engine) GetReservation(ctx context.Context, userID, eventID uuid.UUID) (*Reservation, error) {
	if _, err := e.store.GetEvent(ctx, eventID); err != nil {
		return nil, e.readError("event", err)
	}
	r, err := e.store.GetReservation(ctx, userID, eventID)
	if err != nil {
		return nil, e.readError("reservation", err)
	}
	return r, nil
}

func (e *Engine) ListEventReservations(ctx context.Context, eventID uuid.UUID) ([]Reservation, error) {
	if _, err := e.store.GetEvent(ctx, eventID); err != nil {
		return nil, e.readError("event", err)
	}
	list, err := e.store.ListEventReservations(ctx, eventID)
	if err != nil {
		return nil, e.readError("reservations", err)
	}
	return list, nil
}
