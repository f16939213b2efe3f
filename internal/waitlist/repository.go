package waitlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormQueue persists queues in the waitlist_entries table
type GormQueue struct {
	db *gorm.DB
}

func NewGormQueue(db *gorm.DB) *GormQueue {
	return &GormQueue{db: db}
}

func (g *GormQueue) Enqueue(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	entry := &Entry{EventID: eventID, UserID: userID}
	result := g.db.WithContext(ctx).
		// A user already queued for the event keeps their place
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(entry)
	if result.Error != nil {
		return false, fmt.Errorf("failed to enqueue on waitlist: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (g *GormQueue) head(db *gorm.DB, eventID uuid.UUID) (*Entry, error) {
	var entry Entry
	// Lowest sequence is the head
	err := db.Where("event_id = ?", eventID).Order("sequence ASC").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (g *GormQueue) Peek(ctx context.Context, eventID uuid.UUID) (uuid.UUID, bool, error) {
	entry, err := g.head(g.db.WithContext(ctx), eventID)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to peek waitlist: %w", err)
	}
	if entry == nil {
		return uuid.Nil, false, nil
	}
	return entry.UserID, true, nil
}

func (g *GormQueue) DequeueHead(ctx context.Context, eventID uuid.UUID) (uuid.UUID, bool, error) {
	var head *Entry
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the head row so concurrent dequeues cannot hand it out twice
		entry, err := g.head(tx.Clauses(clause.Locking{Strength: "UPDATE"}), eventID)
		if err != nil || entry == nil {
			return err
		}
		// Remove head
		if err := tx.Delete(&Entry{}, "id = ?", entry.ID).Error; err != nil {
			return err
		}
		head = entry
		return nil
	})
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to dequeue waitlist head: %w", err)
	}
	if head == nil {
		return uuid.Nil, false, nil
	}
	return head.UserID, true, nil
}

func (g *GormQueue) Remove(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	result := g.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		Delete(&Entry{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove from waitlist: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (g *GormQueue) Position(ctx context.Context, eventID, userID uuid.UUID) (int, bool, error) {
	db := g.db.WithContext(ctx)

	var entry Entry
	// Find the user's entry
	err := db.Where("event_id = ? AND user_id = ?", eventID, userID).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read waitlist position: %w", err)
	}

	// Count entries queued before it
	var ahead int64
	err = db.Model(&Entry{}).
		Where("event_id = ? AND sequence < ?", eventID, entry.Sequence).
		Count(&ahead).Error
	if err != nil {
		return 0, false, fmt.Errorf("failed to read waitlist position: %w", err)
	}
	return int(ahead) + 1, true, nil
}

func (g *GormQueue) Len(ctx context.Context, eventID uuid.UUID) (int, error) {
	var n int64
	if err := g.db.WithContext(ctx).Model(&Entry{}).Where("event_id = ?", eventID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to read waitlist length: %w", err)
	}
	return int(n), nil
}
