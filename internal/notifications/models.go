package notifications

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PromotionMessage is the broker payload telling every gateway instance to
// push a line to one user's live sessions.
type PromotionMessage struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Message     string    `json:"message"`
	PublishedAt time.Time `json:"published_at"`
}

func NewPromotionMessage(userID uuid.UUID, message string) *PromotionMessage {
	return &PromotionMessage{
		ID:          uuid.New(),
		UserID:      userID,
		Message:     message,
		PublishedAt: time.Now().UTC(),
	}
}

// ToJSON encodes the message for the broker
func (m *PromotionMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// PartitionKey keeps one user's messages ordered on a single partition
func (m *PromotionMessage) PartitionKey() string {
	return m.UserID.String()
}

// ParsePromotionMessage decodes and checks a broker payload
func ParsePromotionMessage(data []byte) (*PromotionMessage, error) {
	var m PromotionMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal promotion message: %w", err)
	}
	// A message without a recipient or text cannot be delivered
	if m.UserID == uuid.Nil || m.Message == "" {
		return nil, fmt.Errorf("promotion message %s is missing user or text", m.ID)
	}
	return &m, nil
}
