package locks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireSerializesSameEvent(t *testing.T) {
	reg := NewRegistry()
	eventID := uuid.New()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := reg.Acquire(context.Background(), eventID)
			if !assert.NoError(t, err) {
				return
			}
			defer h.Release()

			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 1, reg.Len())
}

func TestDifferentEventsDoNotContend(t *testing.T) {
	reg := NewRegistry()

	first, err := reg.Acquire(context.Background(), uuid.New())
	require.NoError(t, err)
	defer first.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	second, err := reg.Acquire(ctx, uuid.New())
	require.NoError(t, err)
	second.Release()

	assert.Equal(t, 2, reg.Len())
}

func TestAcquireTimesOutWhileHeld(t *testing.T) {
	reg := NewRegistry()
	eventID := uuid.New()

	held, err := reg.Acquire(context.Background(), eventID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = reg.Acquire(ctx, eventID)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))

	held.Release()

	again, err := reg.Acquire(context.Background(), eventID)
	require.NoError(t, err)
	again.Release()
}

func TestReleaseIsIdempotent(t *testing.T) {
	reg := NewRegistry()
	eventID := uuid.New()

	h, err := reg.Acquire(context.Background(), eventID)
	require.NoError(t, err)
	h.Release()
	h.Release()

	// a double release on a weight-1 semaphore would panic, and a second
	// holder must still be excluded
	h2, err := reg.Acquire(context.Background(), eventID)
	require.NoError(t, err)
	defer h2.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = reg.Acquire(ctx, eventID)
	assert.True(t, IsTimeout(err))
}
