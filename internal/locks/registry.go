// Package locks serializes every mutation of one event behind a per-event
// lock. Locks for different events never contend.
package locks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// ErrAcquireTimeout is returned when the caller's context ends before the
// event lock could be taken.
var ErrAcquireTimeout = errors.New("timed out waiting for event lock")

// Handle releases a held event lock. Release is safe to call more than once.
type Handle interface {
	Release()
}

// Locker hands out exclusive per-event locks
type Locker interface {
	Acquire(ctx context.Context, eventID uuid.UUID) (Handle, error)
}

// Registry is the in-process Locker. Entries are created on first use and
// never evicted, so memory grows with the number of distinct events seen.
type Registry struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*semaphore.Weighted
}

func NewRegistry() *Registry {
	return &Registry{locks: make(map[uuid.UUID]*semaphore.Weighted)}
}

func (r *Registry) lockFor(eventID uuid.UUID) *semaphore.Weighted {
	r.mu.Lock()
	defer r.mu.Unlock()

	sem, ok := r.locks[eventID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		r.locks[eventID] = sem
	}
	return sem
}

// Acquire blocks until the event lock is free or ctx is done
func (r *Registry) Acquire(ctx context.Context, eventID uuid.UUID) (Handle, error) {
	sem := r.lockFor(eventID)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: event %s: %v", ErrAcquireTimeout, eventID, err)
	}
	return newHandle(func() { sem.Release(1) }), nil
}

// Len reports how many events have a lock allocated
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.locks)
}

type handle struct {
	once    sync.Once
	release func()
}

func newHandle(release func()) *handle {
	return &handle{release: release}
}

func (h *handle) Release() {
	h.once.Do(h.release)
}
