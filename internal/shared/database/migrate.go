package database

import (
	"ticketly/internal/activity"
	"ticketly/internal/events"
	"ticketly/internal/reservations"
	"ticketly/internal/seats"
	"ticketly/internal/users"
	"ticketly/internal/waitlist"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&users.User{},
		&events.Event{},
		&seats.Seat{},
		&reservations.Reservation{},
		&waitlist.Entry{},
		&activity.Log{},
	)
	if err != nil {
		return err
	}
	return MigrateConstraints(db)
}
