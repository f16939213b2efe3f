package database

import (
	"fmt"

	"gorm.io/gorm"
)

type constraint struct {
	table string
	name  string
	def   string
}

// constraints the struct tags cannot express
var constraints = []constraint{
	{"events", "chk_events_available_within_capacity", "CHECK (available_tickets >= 0 AND available_tickets <= capacity)"},
	{"seats", "chk_seats_status", "CHECK (status IN ('AVAILABLE', 'RESERVED'))"},
}

// MigrateConstraints adds the inventory invariants as database constraints
func MigrateConstraints(db *gorm.DB) error {
	for _, c := range constraints {
		err := db.Exec(fmt.Sprintf(`
			DO $$
			BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					ALTER TABLE %s ADD CONSTRAINT %s %s;
				END IF;
			END $$;`, c.name, c.table, c.name, c.def)).Error
		if err != nil {
			return fmt.Errorf("failed to add constraint %s: %w", c.name, err)
		}
	}

	// waitlist heads are read by (event_id, sequence)
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_waitlist_event_sequence
		ON waitlist_entries (event_id, sequence);
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create waitlist index: %w", err)
	}

	return nil
}
