package activity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Action string

const (
	ActionReserved     Action = "RESERVED"
	ActionCancelled    Action = "CANCELLED"
	ActionWaitlisted   Action = "WAITLISTED"
	ActionAutoReserved Action = "AUTO_RESERVED"
	ActionLeftWaitlist Action = "LEFT_WAITLIST"
)

// Log is one entry of a user's activity history
type Log struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;index:idx_activity_user_created,priority:1"`
	EventID   *uuid.UUID `json:"event_id,omitempty" gorm:"type:uuid"`
	Action    Action     `json:"action" gorm:"type:varchar(20);not null"`
	Message   string     `json:"message" gorm:"type:text;not null"`
	CreatedAt time.Time  `json:"created_at" gorm:"not null;index:idx_activity_user_created,priority:2,sort:desc"`
}

func (Log) TableName() string {
	return "activity_logs"
}

func (l *Log) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return nil
}

// New builds an entry stamped with the current time
func New(userID uuid.UUID, eventID *uuid.UUID, action Action, message string) *Log {
	return &Log{
		ID:        uuid.New(),
		UserID:    userID,
		EventID:   eventID,
		Action:    action,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

type LogResponse struct {
	Action    Action    `json:"action"`
	Message   string    `json:"message"`
	EventID   string    `json:"event_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (l *Log) ToResponse() LogResponse {
	resp := LogResponse{
		Action:    l.Action,
		Message:   l.Message,
		CreatedAt: l.CreatedAt,
	}
	if l.EventID != nil {
		resp.EventID = l.EventID.String()
	}
	return resp
}

// String renders the entry as one line of check_log output
func (l *Log) String() string {
	return l.CreatedAt.Format("2006-01-02 15:04:05") + ": " + l.Message
}
