package waitlist

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

// QueueSuite checks any Queue implementation against the FIFO contract
type QueueSuite struct {
	suite.Suite
	newQueue func() Queue
	queue    Queue
	ctx      context.Context
	eventID  uuid.UUID
}

func (s *QueueSuite) SetupTest() {
	s.queue = s.newQueue()
	s.ctx = context.Background()
	s.eventID = uuid.New()
}

func (s *QueueSuite) TestFIFOOrder() {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	for _, u := range []uuid.UUID{a, b, c} {
		added, err := s.queue.Enqueue(s.ctx, s.eventID, u)
		s.Require().NoError(err)
		s.True(added)
	}

	n, err := s.queue.Len(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Equal(3, n)

	head, ok, err := s.queue.Peek(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(a, head)

	for _, want := range []uuid.UUID{a, b, c} {
		got, ok, err := s.queue.DequeueHead(s.ctx, s.eventID)
		s.Require().NoError(err)
		s.True(ok)
		s.Equal(want, got)
	}

	_, ok, err = s.queue.DequeueHead(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *QueueSuite) TestEnqueueIsIdempotent() {
	u := uuid.New()

	added, err := s.queue.Enqueue(s.ctx, s.eventID, u)
	s.Require().NoError(err)
	s.True(added)

	added, err = s.queue.Enqueue(s.ctx, s.eventID, u)
	s.Require().NoError(err)
	s.False(added)

	n, err := s.queue.Len(s.ctx, s.eventID)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *QueueSuite) TestPositionAndRemove() {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	for _, u := range []uuid.UUID{a, b, c} {
		_, err := s.queue.Enqueue(s.ctx, s.eventID, u)
		s.Require().NoError(err)
	}

	pos, ok, err := s.queue.Position(s.ctx, s.eventID, c)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(3, pos)

	removed, err := s.queue.Remove(s.ctx, s.eventID, b)
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.queue.Remove(s.ctx, s.eventID, b)
	s.Require().NoError(err)
	s.False(removed)

	pos, ok, err = s.queue.Position(s.ctx, s.eventID, c)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(2, pos)

	_, ok, err = s.queue.Position(s.ctx, s.eventID, b)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *QueueSuite) TestEventsAreIndependent() {
	other := uuid.New()
	u := uuid.New()

	_, err := s.queue.Enqueue(s.ctx, s.eventID, u)
	s.Require().NoError(err)

	n, err := s.queue.Len(s.ctx, other)
	s.Require().NoError(err)
	s.Equal(0, n)

	_, ok, err := s.queue.Peek(s.ctx, other)
	s.Require().NoError(err)
	s.False(ok)
}

func TestMemoryQueue(t *testing.T) {
	suite.Run(t, &QueueSuite{newQueue: func() Queue { return NewMemoryQueue() }})
}

func TestRedisQueue(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	suite.Run(t, &QueueSuite{newQueue: func() Queue { return NewRedisQueue(client) }})
}
