package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultHistoryLimit caps check_log output when the caller passes no limit
const DefaultHistoryLimit = 10

type Repository interface {
	Append(ctx context.Context, entry *Log) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Log, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds to db, which may be a transaction handle
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Append(ctx context.Context, entry *Log) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append activity log: %w", err)
	}
	return nil
}

// ListByUser returns the newest entries first
func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Log, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var logs []Log
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity logs: %w", err)
	}
	return logs, nil
}
