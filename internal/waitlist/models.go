package waitlist

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entry is one queued user in the postgres-backed queue. Sequence is filled
// by the database and orders the queue.
type Entry struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	EventID  uuid.UUID `json:"event_id" gorm:"type:uuid;not null;uniqueIndex:idx_waitlist_event_user,priority:1;index:idx_waitlist_event_seq,priority:1"`
	UserID   uuid.UUID `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_waitlist_event_user,priority:2"`
	Sequence int64     `json:"sequence" gorm:"type:bigserial;not null;<-:false;index:idx_waitlist_event_seq,priority:2"`
	JoinedAt time.Time `json:"joined_at" gorm:"not null"`
}

func (Entry) TableName() string {
	return "waitlist_entries"
}

func (e *Entry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.JoinedAt.IsZero() {
		e.JoinedAt = time.Now().UTC()
	}
	return nil
}
