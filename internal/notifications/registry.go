// Package notifications delivers promotion notices to users' live
// sessions, locally through the connection registry and across instances
// through a message broker.
package notifications

import (
	"context"
	"sync"

	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

// Conn is a live client session that accepts pushed lines
type Conn interface {
	Notify(message string) error
}

// ConnectionRegistry maps each logged-in user to their current session.
// A newer login replaces the older session.
type ConnectionRegistry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]Conn
	log   *logger.Logger
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns: make(map[uuid.UUID]Conn),
		log:   logger.GetDefault().WithComponent("notifications"),
	}
}

func (r *ConnectionRegistry) Register(userID uuid.UUID, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = conn
}

// Unregister removes the user's entry only if it still points at conn, so a
// closing old session cannot evict a newer one
func (r *ConnectionRegistry) Unregister(userID uuid.UUID, conn Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.conns[userID]; ok && current == conn {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *ConnectionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Push writes message to the user's session; it reports false when the user
// has no session here or the write failed
func (r *ConnectionRegistry) Push(ctx context.Context, userID uuid.UUID, message string) bool {
	r.mu.RLock()
	conn, ok := r.conns[userID]
	r.mu.RUnlock()
	if !ok {
		return false
	}

	if err := conn.Notify(message); err != nil {
		r.log.WarnContext(ctx, "failed to push notification", "user_id", userID.String(), "error", err)
		return false
	}
	return true
}

// Deliver is the broker consumers' handler
func (r *ConnectionRegistry) Deliver(ctx context.Context, msg *PromotionMessage) error {
	if !r.Push(ctx, msg.UserID, msg.Message) {
		r.log.DebugContext(ctx, "promotion for user without a local session", "user_id", msg.UserID.String(), "message_id", msg.ID.String())
	}
	return nil
}
