package waitlist

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryQueue keeps each event's queue as an ordered slice
type MemoryQueue struct {
	mu     sync.Mutex
	queues map[uuid.UUID][]uuid.UUID
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{queues: make(map[uuid.UUID][]uuid.UUID)}
}

func (m *MemoryQueue) Enqueue(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Already queued: keep the original place
	if indexOf(m.queues[eventID], userID) >= 0 {
		return false, nil
	}
	m.queues[eventID] = append(m.queues[eventID], userID)
	return true, nil
}

func (m *MemoryQueue) Peek(ctx context.Context, eventID uuid.UUID) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queues[eventID]
	if len(q) == 0 {
		return uuid.Nil, false, nil
	}
	return q[0], true, nil
}

func (m *MemoryQueue) DequeueHead(ctx context.Context, eventID uuid.UUID) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queues[eventID]
	if len(q) == 0 {
		return uuid.Nil, false, nil
	}
	head := q[0]
	m.queues[eventID] = q[1:]
	return head, true, nil
}

func (m *MemoryQueue) Remove(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queues[eventID]
	i := indexOf(q, userID)
	if i < 0 {
		return false, nil
	}
	m.queues[eventID] = append(q[:i:i], q[i+1:]...)
	return true, nil
}

func (m *MemoryQueue) Position(ctx context.Context, eventID, userID uuid.UUID) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := indexOf(m.queues[eventID], userID)
	if i < 0 {
		return 0, false, nil
	}
	return i + 1, true, nil
}

func (m *MemoryQueue) Len(ctx context.Context, eventID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[eventID]), nil
}

func indexOf(q []uuid.UUID, userID uuid.UUID) int {
	for i, id := range q {
		if id == userID {
			return i
		}
	}
	return -1
}
