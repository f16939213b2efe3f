package notifications

import (
	"context"

	"ticketly/pkg/logger"

	"github.com/google/uuid"
)

// Publisher hands promotion messages to a broker
type Publisher interface {
	Publish(ctx context.Context, msg *PromotionMessage) error
	Close() error
}

// Handler consumes one promotion message
type Handler func(ctx context.Context, msg *PromotionMessage) error

// BrokerSink publishes pushes so that whichever instance holds the user's
// session delivers them. When the broker is unreachable it falls back to the
// local registry.
type BrokerSink struct {
	publisher Publisher
	local     *ConnectionRegistry
	log       *logger.Logger
}

func NewBrokerSink(publisher Publisher, local *ConnectionRegistry) *BrokerSink {
	return &BrokerSink{
		publisher: publisher,
		local:     local,
		log:       logger.GetDefault().WithComponent("notifications"),
	}
}

// Push reports true once the broker accepts the message. Delivery to a live
// session then happens on the consuming instances, which log a user with no
// session at debug level. False means the publish failed and no local
// session took the message either.
func (s *BrokerSink) Push(ctx context.Context, userID uuid.UUID, message string) bool {
	msg := NewPromotionMessage(userID, message)
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.log.WarnContext(ctx, "broker publish failed, delivering locally", "user_id", userID.String(), "error", err)
		return s.local.Push(ctx, userID, message)
	}
	return true
}
