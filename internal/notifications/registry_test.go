package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu    sync.Mutex
	lines []string
	fail  bool
}

func (c *fakeConn) Notify(message string) error {
	if c.fail {
		return errors.New("broken pipe")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, message)
	return nil
}

func (c *fakeConn) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}

func TestRegistryPushReachesCurrentSession(t *testing.T) {
	ctx := context.Background()
	reg := NewConnectionRegistry()
	user := uuid.New()

	assert.False(t, reg.Push(ctx, user, "nobody home"))

	old, current := &fakeConn{}, &fakeConn{}
	reg.Register(user, old)
	reg.Register(user, current)
	assert.Equal(t, 1, reg.Len())

	assert.True(t, reg.Push(ctx, user, "seat A1 is yours"))
	assert.Empty(t, old.received())
	assert.Equal(t, []string{"seat A1 is yours"}, current.received())
}

func TestRegistryUnregisterKeepsNewerSession(t *testing.T) {
	reg := NewConnectionRegistry()
	user := uuid.New()
	old, current := &fakeConn{}, &fakeConn{}

	reg.Register(user, old)
	reg.Register(user, current)

	assert.False(t, reg.Unregister(user, old))
	assert.Equal(t, 1, reg.Len())
	assert.True(t, reg.Unregister(user, current))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryPushReportsWriteFailure(t *testing.T) {
	reg := NewConnectionRegistry()
	user := uuid.New()
	reg.Register(user, &fakeConn{fail: true})

	assert.False(t, reg.Push(context.Background(), user, "hello"))
}

func TestRegistryConcurrentUse(t *testing.T) {
	ctx := context.Background()
	reg := NewConnectionRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user, conn := uuid.New(), &fakeConn{}
			reg.Register(user, conn)
			reg.Push(ctx, user, "ping")
			reg.Unregister(user, conn)
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, reg.Len())
}

func TestDeliverDecodesBrokerPayload(t *testing.T) {
	ctx := context.Background()
	reg := NewConnectionRegistry()
	user := uuid.New()
	conn := &fakeConn{}
	reg.Register(user, conn)

	body, err := NewPromotionMessage(user, "seat B2 is yours").ToJSON()
	require.NoError(t, err)
	require.NoError(t, deliver(ctx, reg.Deliver, body))
	assert.Equal(t, []string{"seat B2 is yours"}, conn.received())

	assert.Error(t, deliver(ctx, reg.Deliver, []byte(`{"user_id":"`+user.String()+`"}`)))
	assert.Error(t, deliver(ctx, reg.Deliver, []byte("not json")))
}
