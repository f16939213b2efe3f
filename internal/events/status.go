package events

import "time"

type Status string

const (
	StatusOnSale  Status = "ON_SALE"
	StatusSoldOut Status = "SOLD_OUT"
	StatusEnded   Status = "ENDED"
)

// StatusOf derives the display status; it is not stored
func StatusOf(e *Event, now time.Time) Status {
	switch {
	case !e.Date.IsZero() && now.After(e.Date.Add(24*time.Hour)):
		return StatusEnded
	case e.IsSoldOut():
		return StatusSoldOut
	default:
		return StatusOnSale
	}
}
