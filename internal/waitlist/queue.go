// Package waitlist keeps, per event, the FIFO queue of users waiting for a
// ticket to free up. A user appears at most once per event and entries never
// expire. Callers hold the event lock around every call.
package waitlist

import (
	"context"

	"github.com/google/uuid"
)

type Queue interface {
	// Enqueue appends userID unless already queued; added reports which
	Enqueue(ctx context.Context, eventID, userID uuid.UUID) (added bool, err error)
	Peek(ctx context.Context, eventID uuid.UUID) (userID uuid.UUID, ok bool, err error)
	DequeueHead(ctx context.Context, eventID uuid.UUID) (userID uuid.UUID, ok bool, err error)
	Remove(ctx context.Context, eventID, userID uuid.UUID) (removed bool, err error)
	// Position is 1-based; ok is false when the user is not queued
	Position(ctx context.Context, eventID, userID uuid.UUID) (position int, ok bool, err error)
	Len(ctx context.Context, eventID uuid.UUID) (int, error)
}
