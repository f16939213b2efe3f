package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ticketly/internal/activity"
	"ticketly/internal/events"
	"ticketly/internal/locks"
	"ticketly/internal/seats"
	"ticketly/internal/waitlist"
	"ticketly/pkg/cache"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

type recordingNotifier struct {
	mu      sync.Mutex
	pushes  map[uuid.UUID][]string
	refuse  bool
	explode bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{pushes: make(map[uuid.UUID][]string)}
}

func (n *recordingNotifier) Push(ctx context.Context, userID uuid.UUID, message string) bool {
	if n.explode {
		panic("sink unavailable")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes[userID] = append(n.pushes[userID], message)
	return !n.refuse
}

func (n *recordingNotifier) received(userID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.pushes[userID]...)
}

type EngineSuite struct {
	suite.Suite
	ctx      context.Context
	store    *MemoryStore
	queue    *waitlist.MemoryQueue
	registry *locks.Registry
	notifier *recordingNotifier
	engine   *Engine
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
	s.queue = waitlist.NewMemoryQueue()
	s.registry = locks.NewRegistry()
	s.notifier = newRecordingNotifier()
	s.engine = s.newEngine(Options{})
}

func (s *EngineSuite) newEngine(opts Options) *Engine {
	opts.Logger = logger.Discard()
	if opts.SeatMaps == nil {
		opts.SeatMaps = seats.NewMapCache(cache.NewMemoryService(), time.Minute)
	}
	return NewEngine(s.store, s.registry, s.queue, s.notifier, opts)
}

func (s *EngineSuite) seedEvent(name string, capacity int) uuid.UUID {
	codes, err := seats.GenerateCodes(capacity)
	s.Require().NoError(err)
	ev := &events.Event{
		Name:             name,
		Date:             time.Now().Add(24 * time.Hour),
		Capacity:         capacity,
		AvailableTickets: capacity,
	}
	s.Require().NoError(s.store.Create(s.ctx, ev, codes))
	return ev.ID
}

func (s *EngineSuite) available(eventID uuid.UUID) int {
	ev, err := s.store.GetEvent(s.ctx, eventID)
	s.Require().NoError(err)
	return ev.AvailableTickets
}

func (s *EngineSuite) seatStatus(eventID uuid.UUID, number string) seats.Status {
	list, err := s.store.ListSeats(s.ctx, eventID)
	s.Require().NoError(err)
	for _, seat := range list {
		if seat.SeatNumber == number {
			return seat.Status
		}
	}
	s.FailNow("seat not found", number)
	return ""
}

// assertConsistent checks the counter, seat and reservation invariants
func (s *EngineSuite) assertConsistent(eventID uuid.UUID) {
	ev, err := s.store.GetEvent(s.ctx, eventID)
	s.Require().NoError(err)
	held, err := s.store.ListEventReservations(s.ctx, eventID)
	s.Require().NoError(err)
	list, err := s.store.ListSeats(s.ctx, eventID)
	s.Require().NoError(err)

	s.GreaterOrEqual(ev.AvailableTickets, 0)
	s.LessOrEqual(ev.AvailableTickets, ev.Capacity)
	s.Equal(ev.Capacity-ev.AvailableTickets, len(held))

	reservedSeats := make(map[string]bool)
	for _, seat := range list {
		if seat.IsReserved() {
			reservedSeats[seat.SeatNumber] = true
		}
	}
	users := make(map[uuid.UUID]bool)
	for _, r := range held {
		s.True(reservedSeats[r.SeatNumber], "reservation on seat %s not marked reserved", r.SeatNumber)
		s.False(users[r.UserID], "user %s holds two reservations", r.UserID)
		users[r.UserID] = true
	}
	s.Len(reservedSeats, len(held))
}

func (s *EngineSuite) TestReserveSuccess() {
	eventID := s.seedEvent("Hamlet", 5)
	user := uuid.New()

	res := s.engine.Reserve(s.ctx, user, eventID, " a1 ")
	s.Require().Equal(KindSuccess, res.Kind, res.Message)
	s.Equal("A1", res.Reservation.SeatNumber)
	s.Equal("Reserved seat A1 for event Hamlet", res.Message)

	s.Equal(4, s.available(eventID))
	s.Equal(seats.StatusReserved, s.seatStatus(eventID, "A1"))

	logs, err := s.engine.ListUserLogs(s.ctx, user, 0)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(activity.ActionReserved, logs[0].Action)
	s.Equal("Reserved seat A1 for event Hamlet", logs[0].Message)
	s.assertConsistent(eventID)
}

func (s *EngineSuite) TestBlankSeatIsRejectedBeforeTouchingStore() {
	eventID := s.seedEvent("Hamlet", 5)
	s.store.FailOn("GetEvent")

	res := s.engine.Reserve(s.ctx, uuid.New(), eventID, "   ")
	s.Equal(KindValidation, res.Kind)
	s.Equal(CategoryValidation, res.Kind.Category())
	s.Equal(0, s.registry.Len())
	s.Equal(5, s.available(eventID))
}

func (s *EngineSuite) TestReserveUnknownEvent() {
	res := s.engine.Reserve(s.ctx, uuid.New(), uuid.New(), "A1")
	s.Equal(KindEventNotFound, res.Kind)
	s.Equal(CategoryNotFound, res.Kind.Category())
}

func (s *EngineSuite) TestReserveMissingAndTakenSeats() {
	eventID := s.seedEvent("Hamlet", 5)

	res := s.engine.Reserve(s.ctx, uuid.New(), eventID, "Z9")
	s.Equal(KindSeatNotFound, res.Kind)

	res = s.engine.Reserve(s.ctx, uuid.New(), eventID, "A2")
	s.Require().True(res.OK())

	res = s.engine.Reserve(s.ctx, uuid.New(), eventID, "A2")
	s.Equal(KindSeatConflict, res.Kind)
	s.Equal(CategoryConflict, res.Kind.Category())
	s.Equal(4, s.available(eventID))
	s.assertConsistent(eventID)
}

func (s *EngineSuite) TestSecondReservationBySameUserConflicts() {
	eventID := s.seedEvent("Hamlet", 5)
	user := uuid.New()

	s.Require().True(s.engine.Reserve(s.ctx, user, eventID, "A1").OK())
	res := s.engine.Reserve(s.ctx, user, eventID, "A2")
	s.Equal(KindAlreadyReserved, res.Kind)
	s.Equal(seats.StatusAvailable, s.seatStatus(eventID, "A2"))
	s.assertConsistent(eventID)
}

func (s *EngineSuite) TestConcurrentReservesNeverOversell() {
	const capacity, clients = 3, 40
	eventID := s.seedEvent("Hamlet", capacity)

	results := make([]Result, clients)
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			seat := fmt.Sprintf("A%d", i%capacity+1)
			results[i] = s.engine.Reserve(s.ctx, uuid.New(), eventID, seat)
		}(i)
	}
	wg.Wait()

	counts := make(map[Kind]int)
	for _, r := range results {
		counts[r.Kind]++
	}
	s.Equal(capacity, counts[KindSuccess])
	s.Equal(clients, counts[KindSuccess]+counts[KindSeatConflict]+counts[KindWaitlisted])
	s.Equal(0, s.available(eventID))
	s.assertConsistent(eventID)
}

func (s *EngineSuite) TestSoldOutQueuesEachUserOnce() {
	eventID := s.seedEvent("Hamlet", 1)
	s.Require().True(s.engine.Reserve(s.ctx, uuid.New(), eventID, "A1").OK())

	second, third := uuid.New(), uuid.New()
	res := s.engine.Reserve(s.ctx, second, eventID, "A1")
	s.Equal(KindWaitlisted, res.Kind)
	s.Equal(CategoryExhausted, res.Kind.Category())
	s.Equal(1, res.Position)

	res = s.engine.Reserve(s.ctx, second, eventID, "A1")
	s.Equal(KindWaitlisted, res.Kind)
	s.Equal(1, res.Position)

	res = s.engine.Reserve(s.ctx, third, eventID, "B5")
	s.Equal(KindWaitlisted, res.Kind)
	s.Equal(2, res.Position)

	n, err := s.queue.Len(s.ctx, eventID)
	s.Require().NoError(err)
	s.Equal(2, n)

	logs, err := s.engine.ListUserLogs(s.ctx, second, 0)
	s.Require().NoError(err)
	s.Require().Len(logs, 1)
	s.Equal(activity.ActionWaitlisted, logs[0].Action)
}

func (s *EngineSuite) TestCancelPromotesWaitlistHead() {
	eventID := s.seedEvent("Hamlet", 1)
	holder, first, second := uuid.New(), uuid.New(), uuid.New()

	s.Require().True(s.engine.Reserve(s.ctx, holder, eventID, "A1").OK())
	s.Require().Equal(KindWaitlisted, s.engine.Reserve(s.ctx, first, eventID, "A1").Kind)
	s.Require().Equal(KindWaitlisted, s.engine.Reserve(s.ctx, second, eventID, "A1").Kind)

	res := s.engine.Cancel(s.ctx, holder, eventID)
	s.Require().Equal(KindSuccess, res.Kind, res.Message)
	s.Require().NotNil(res.Promotion)
	s.Equal(first, res.Promotion.UserID)
	s.Equal("A1", res.Promotion.SeatNumber)

	promoted, err := s.engine.GetReservation(s.ctx, first, eventID)
	s.Require().NoError(err)
	s.Equal("A1", promoted.SeatNumber)
	s.Equal(0, s.available(eventID))
	s.Equal(seats.StatusReserved, s.seatStatus(eventID, "A1"))

	head, ok, err := s.queue.Peek(s.ctx, eventID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(second, head)

	logs, err := s.engine.ListUserLogs(s.ctx, first, 0)
	s.Require().NoError(err)
	s.Equal(activity.ActionAutoReserved, logs[0].Action)
	s.Equal("Auto-reserved seat A1 for event Hamlet from waitlist", logs[0].Message)

	s.engine.Drain()
	pushes := s.notifier.received(first)
	s.Require().Len(pushes, 1)
	s.Contains(pushes[0], "A1")
	s.assertConsistent(eventID)
}

func (s *EngineSuite) TestCancelSkipsStaleWaitlistHead() {
	eventID := s.seedEvent("Hamlet", 2)
	leaving, stale, waiting := uuid.New(), uuid.New(), uuid.New()

	s.Require().True(s.engine.Reserve(s.ctx, leaving, eventID, "A1").OK())
	s.Require().True(s.engine.Reserve(s.ctx, stale, eventID, "A2").OK())
	_, err := s.queue.Enqueue(s.ctx, eventID, stale)
	s.Require().NoError(err)
	s.Require().Equal(KindWaitlisted, s.engine.Reserve(s.ctx, waiting, eventID, "A1").Kind)

	res := s.engine.Cancel(s.ctx, leaving, eventID)
	s.Require().True(res.OK())
	s.Require().NotNil(res.Promotion)
	s.Equal(waiting, res.Promotion.UserID)

	n, err := s.queue.Len(s.ctx, eventID)
	s.Require().NoError(err)
	s.Equal(0, n)
	s.assertConsistent(eventID)
}

func (s *EngineSuite) TestCancelWithEmptyWaitlistFreesSeat() {
	eventID := s.seedEvent("Hamlet", 2)
	user := uuid.New()
	s.Require().True(s.engine.Reserve(s.ctx, user, eventID, "A2").OK())
	res := s.engine.Cancel(s.ctx, user, eventID)
	s.Require().True(res.OK())
	s.Nil(res.Promotion)
	s.Equal(2, s.available(eventID))
	s.Equal(seats.StatusAvailable, s.seatStatus(eventID, "A2"))

	_, err := s.engine.GetReservation(s.ctx, user, eventID)
	s.Equal(KindReservationNotFound, KindOf(err))
}

func (s *EngineSuite) TestCancelWithoutReservationChangesNothing() {
	eventID := s.seedEvent("Hamlet", 3)
	s.Require().True(s.engine.Reserve(s.ctx, uuid.New(), eventID, "A1").OK())

	res := s.engine.Cancel(s.ctx, uuid.New(), eventID)
	s.Equal(KindReservationNotFound, res.Kind)
	s.Equal(CategoryNotFound, res.Kind.Category())
	s.Equal(2, s.available(eventID))
	s.assertConsistent(eventID)
}

func (s *EngineSuite) TestStorageFailureLeavesNoPartialState() {
	eventID := s.seedEvent("Hamlet", 1)
	holder, waiting := uuid.New(), uuid.New()

	s.store.FailOn("AppendLog")
	res := s.engine.Reserve(s.ctx, holder, eventID, "A1")
	s.Equal(KindStorageFailure, res.Kind)
	s.Error(res.Err)
	s.Equal(1, s.available(eventID))
	s.Equal(seats.StatusAvailable, s.seatStatus(eventID, "A1"))

	s.store.FailOn("")
	s.Require().True(s.engine.Reserve(s.ctx, holder, eventID, "A1").OK())
	s.Require().Equal(KindWaitlisted, s.engine.Reserve(s.ctx, waiting, eventID, "A1").Kind)

	s.store.FailOn("DecrementTickets")
	res = s.engine.Cancel(s.ctx, holder, eventID)
	s.Equal(KindStorageFailure, res.Kind)

	kept, err := s.engine.GetReservation(s.ctx, holder, eventID)
	s.Require().NoError(err)
	s.Equal("A1", kept.SeatNumber)
	pos, ok, err := s.queue.Position(s.ctx, eventID, waiting)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(1, pos)
	s.assertConsistent(eventID)
}

func (s *EngineSuite) TestTimeoutWhileLockHeld() {
	eventID := s.seedEvent("Hamlet", 2)
	engine := s.newEngine(Options{OperationTimeout: 20 * time.Millisecond})

	h, err := s.registry.Acquire(s.ctx, eventID)
	s.Require().NoError(err)
	defer h.Release()

	res := engine.Reserve(s.ctx, uuid.New(), eventID, "A1")
	s.Equal(KindTimeout, res.Kind)
	s.Equal(CategoryStorageFailure, res.Kind.Category())
	s.Equal(2, s.available(eventID))
}

func (s *EngineSuite) TestNotifierFailureKeepsPromotion() {
	eventID := s.seedEvent("Hamlet", 1)
	holder, waiting := uuid.New(), uuid.New()
	s.notifier.explode = true

	s.Require().True(s.engine.Reserve(s.ctx, holder, eventID, "A1").OK())
	s.Require().Equal(KindWaitlisted, s.engine.Reserve(s.ctx, waiting, eventID, "A1").Kind)

	res := s.engine.Cancel(s.ctx, holder, eventID)
	s.Require().True(res.OK())
	s.engine.Drain()

	r, err := s.engine.GetReservation(s.ctx, waiting, eventID)
	s.Require().NoError(err)
	s.Equal("A1", r.SeatNumber)
	s.assertConsistent(eventID)
}

func (s *EngineSuite) TestLeaveWaitlistAndPosition() {
	eventID := s.seedEvent("Hamlet", 1)
	s.Require().True(s.engine.Reserve(s.ctx, uuid.New(), eventID, "A1").OK())

	first, second := uuid.New(), uuid.New()
	s.engine.Reserve(s.ctx, first, eventID, "A1")
	s.engine.Reserve(s.ctx, second, eventID, "A1")

	res := s.engine.WaitlistPosition(s.ctx, second, eventID)
	s.Require().True(res.OK())
	s.Equal(2, res.Position)

	res = s.engine.LeaveWaitlist(s.ctx, first, eventID)
	s.Require().True(res.OK())

	res = s.engine.WaitlistPosition(s.ctx, second, eventID)
	s.Equal(1, res.Position)

	s.Equal(KindNotWaitlisted, s.engine.LeaveWaitlist(s.ctx, first, eventID).Kind)
	s.Equal(KindNotWaitlisted, s.engine.WaitlistPosition(s.ctx, first, eventID).Kind)
	s.Equal(KindEventNotFound, s.engine.LeaveWaitlist(s.ctx, first, uuid.New()).Kind)
}

func (s *EngineSuite) TestActivityHistoryIsNewestFirstAndCapped() {
	eventID := s.seedEvent("Hamlet", 1)
	user := uuid.New()
	for i := 0; i < 6; i++ {
		s.Require().True(s.engine.Reserve(s.ctx, user, eventID, "A1").OK())
		s.Require().True(s.engine.Cancel(s.ctx, user, eventID).OK())
	}

	logs, err := s.engine.ListUserLogs(s.ctx, user, 0)
	s.Require().NoError(err)
	s.Len(logs, activity.DefaultHistoryLimit)
	s.Equal(activity.ActionCancelled, logs[0].Action)
	s.Equal(activity.ActionReserved, logs[1].Action)

	logs, err = s.engine.ListUserLogs(s.ctx, user, 3)
	s.Require().NoError(err)
	s.Len(logs, 3)
}

func (s *EngineSuite) TestSeatAvailabilityReflectsCommittedReservations() {
	eventID := s.seedEvent("Hamlet", 4)

	grid, err := s.engine.GetSeatAvailability(s.ctx, eventID)
	s.Require().NoError(err)
	s.Equal(4, grid.Available)

	s.Require().True(s.engine.Reserve(s.ctx, uuid.New(), eventID, "A3").OK())

	grid, err = s.engine.GetSeatAvailability(s.ctx, eventID)
	s.Require().NoError(err)
	s.Equal(3, grid.Available)
	s.Equal(1, grid.Reserved)
	s.True(strings.Contains(grid.Render(), "[X]"))

	_, err = s.engine.GetSeatAvailability(s.ctx, uuid.New())
	s.Equal(KindEventNotFound, KindOf(err))
	s.True(errors.Is(err, seats.ErrEventNotFound))
	s.True(errors.Is(err, events.ErrEventNotFound))
}

// pausedSeatReads blocks the first ListSeats call until resume is closed
type pausedSeatReads struct {
	*MemoryStore
	once    sync.Once
	entered chan struct{}
	resume  chan struct{}
}

func (p *pausedSeatReads) ListSeats(ctx context.Context, eventID uuid.UUID) ([]seats.Seat, error) {
	list, err := p.MemoryStore.ListSeats(ctx, eventID)
	p.once.Do(func() {
		close(p.entered)
		<-p.resume
	})
	return list, err
}

func (s *EngineSuite) TestSeatMapFillCannotOverwriteLaterCommit() {
	eventID := s.seedEvent("Hamlet", 2)
	store := &pausedSeatReads{
		MemoryStore: s.store,
		entered:     make(chan struct{}),
		resume:      make(chan struct{}),
	}
	engine := NewEngine(store, s.registry, s.queue, s.notifier, Options{
		Logger:   logger.Discard(),
		SeatMaps: seats.NewMapCache(cache.NewMemoryService(), time.Minute),
	})

	readDone := make(chan error, 1)
	go func() {
		_, err := engine.GetSeatAvailability(s.ctx, eventID)
		readDone <- err
	}()
	<-store.entered

	reserved := make(chan Result, 1)
	go func() {
		reserved <- engine.Reserve(s.ctx, uuid.New(), eventID, "A1")
	}()

	// give the reserve a chance to commit while the seat read is paused
	time.Sleep(50 * time.Millisecond)
	close(store.resume)

	s.Require().NoError(<-readDone)
	s.Require().True((<-reserved).OK())

	grid, err := engine.GetSeatAvailability(s.ctx, eventID)
	s.Require().NoError(err)
	s.Equal(1, grid.Reserved)
	s.Equal(1, grid.Available)
}

func (s *EngineSuite) TestSeatMapFillWaitsForEventLock() {
	eventID := s.seedEvent("Hamlet", 2)
	engine := s.newEngine(Options{OperationTimeout: 20 * time.Millisecond})
	locksBefore := s.registry.Len()

	_, err := engine.GetSeatAvailability(s.ctx, uuid.New())
	s.Equal(KindEventNotFound, KindOf(err))
	s.Equal(locksBefore, s.registry.Len())

	h, err := s.registry.Acquire(s.ctx, eventID)
	s.Require().NoError(err)
	defer h.Release()

	_, err = engine.GetSeatAvailability(s.ctx, eventID)
	s.Equal(KindTimeout, KindOf(err))
	s.ErrorIs(err, seats.ErrBusy)
}

func (s *EngineSuite) TestListUserReservationsCarriesEventNames() {
	first := s.seedEvent("Hamlet", 2)
	second := s.seedEvent("Macbeth", 2)
	user := uuid.New()

	s.Require().True(s.engine.Reserve(s.ctx, user, first, "A1").OK())
	s.Require().True(s.engine.Reserve(s.ctx, user, second, "A2").OK())

	list, err := s.engine.ListUserReservations(s.ctx, user)
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	names := []string{list[0].EventName(), list[1].EventName()}
	s.ElementsMatch([]string{"Hamlet", "Macbeth"}, names)

	report, err := s.engine.ListEventReservations(s.ctx, first)
	s.Require().NoError(err)
	s.Len(report, 1)

	_, err = s.engine.ListEventReservations(s.ctx, uuid.New())
	s.Equal(KindEventNotFound, KindOf(err))
}
