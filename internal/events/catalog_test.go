package events_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"ticketly/internal/events"
	"ticketly/internal/reservations"
	"ticketly/pkg/cache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalog(t *testing.T) (events.Service, *reservations.MemoryStore) {
	t.Helper()
	store := reservations.NewMemoryStore()
	svc := events.NewService(store)
	svc.SetCacheService(cache.NewMemoryService())
	return svc, store
}

func TestSeedCatalogSkipsExistingNames(t *testing.T) {
	svc, store := newCatalog(t)
	ctx := context.Background()

	n, err := events.SeedCatalog(ctx, svc, events.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = events.SeedCatalog(ctx, svc, events.DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	list, err := store.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for _, e := range list {
		assert.Equal(t, e.Capacity, e.AvailableTickets)
		seatRows, err := store.ListSeats(ctx, e.ID)
		require.NoError(t, err)
		assert.Len(t, seatRows, e.Capacity)
	}
}

func TestCreateEventRejectsMultiWordNames(t *testing.T) {
	svc, _ := newCatalog(t)

	_, err := svc.CreateEvent(context.Background(), events.CreateEventRequest{
		Name:     "two words",
		Date:     time.Now().Add(time.Hour),
		Capacity: 5,
	})
	assert.ErrorIs(t, err, events.ErrInvalidEventName)
}

func TestUpdateEventRefreshesCachedDetail(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	created, err := svc.CreateEvent(ctx, events.CreateEventRequest{
		Name:     "Gala",
		Date:     time.Now().Add(24 * time.Hour),
		Capacity: 4,
	})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	// prime the detail cache
	_, err = svc.GetEventByID(ctx, id)
	require.NoError(t, err)

	name := "Encore"
	_, err = svc.UpdateEvent(ctx, id, events.UpdateEventRequest{Name: &name})
	require.NoError(t, err)

	got, err := svc.GetEventByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Encore", got.Name)

	_, err = svc.GetEventByID(ctx, uuid.New())
	assert.ErrorIs(t, err, events.ErrEventNotFound)
}

func TestGetAllEventsSearchesNameAndDescription(t *testing.T) {
	svc, _ := newCatalog(t)
	ctx := context.Background()

	_, err := events.SeedCatalog(ctx, svc, events.DefaultCatalog())
	require.NoError(t, err)

	page, err := svc.GetAllEvents(ctx, events.EventListQuery{Search: "킹키"})
	require.NoError(t, err)
	require.Len(t, page.Events, 1)
	assert.Equal(t, "킹키부츠", page.Events[0].Name)
	assert.EqualValues(t, 1, page.TotalCount)

	page, err = svc.GetAllEvents(ctx, events.EventListQuery{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Events, 2)
	assert.Equal(t, 2, page.TotalPages)
}

// pausedEventReads blocks the first GetByID call until resume is closed
type pausedEventReads struct {
	*reservations.MemoryStore
	once    sync.Once
	entered chan struct{}
	resume  chan struct{}
}

func (p *pausedEventReads) GetByID(ctx context.Context, id uuid.UUID) (*events.Event, error) {
	ev, err := p.MemoryStore.GetByID(ctx, id)
	p.once.Do(func() {
		close(p.entered)
		<-p.resume
	})
	return ev, err
}

func TestDetailReadCannotCacheOverLaterUpdate(t *testing.T) {
	ctx := context.Background()
	store := &pausedEventReads{
		MemoryStore: reservations.NewMemoryStore(),
		entered:     make(chan struct{}),
		resume:      make(chan struct{}),
	}
	svc := events.NewService(store)
	svc.SetCacheService(cache.NewMemoryService())

	created, err := svc.CreateEvent(ctx, events.CreateEventRequest{
		Name:     "Gala",
		Date:     time.Now().Add(24 * time.Hour),
		Capacity: 4,
	})
	require.NoError(t, err)
	id := uuid.MustParse(created.ID)

	readDone := make(chan error, 1)
	go func() {
		_, err := svc.GetEventByID(ctx, id)
		readDone <- err
	}()
	<-store.entered

	name := "Encore"
	_, err = svc.UpdateEvent(ctx, id, events.UpdateEventRequest{Name: &name})
	require.NoError(t, err)

	close(store.resume)
	require.NoError(t, <-readDone)

	got, err := svc.GetEventByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Encore", got.Name)
}
