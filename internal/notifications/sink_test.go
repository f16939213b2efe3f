package notifications

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

type stubPublisher struct {
	published []*PromotionMessage
	err       error
}

func (p *stubPublisher) Publish(ctx context.Context, msg *PromotionMessage) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, msg)
	return nil
}

func (p *stubPublisher) Close() error { return nil }

func TestBrokerSinkPublishes(t *testing.T) {
	pub := &stubPublisher{}
	local := NewConnectionRegistry()
	user := uuid.New()
	conn := &fakeConn{}
	local.Register(user, conn)

	sink := NewBrokerSink(pub, local)
	assert.True(t, sink.Push(context.Background(), user, "seat C3 is yours"))

	if assert.Len(t, pub.published, 1) {
		assert.Equal(t, user, pub.published[0].UserID)
		assert.Equal(t, user.String(), pub.published[0].PartitionKey())
	}
	// delivery happens when the consumer reads the message back
	assert.Empty(t, conn.received())
}

func TestBrokerSinkFallsBackToLocalSessions(t *testing.T) {
	pub := &stubPublisher{err: errors.New("broker down")}
	local := NewConnectionRegistry()
	user := uuid.New()
	conn := &fakeConn{}
	local.Register(user, conn)

	sink := NewBrokerSink(pub, local)
	assert.True(t, sink.Push(context.Background(), user, "seat C3 is yours"))
	assert.Equal(t, []string{"seat C3 is yours"}, conn.received())

	assert.False(t, sink.Push(context.Background(), uuid.New(), "offline user"))
}

func TestBrokerSinkReportsAcceptedForOfflineUser(t *testing.T) {
	pub := &stubPublisher{}
	sink := NewBrokerSink(pub, NewConnectionRegistry())

	// no session anywhere: the broker still accepted it
	assert.True(t, sink.Push(context.Background(), uuid.New(), "seat D4 is yours"))
	assert.Len(t, pub.published, 1)
}
