package seats

type SeatResponse struct {
	ID         string `json:"id"`
	SeatNumber string `json:"seat_number"`
	Status     string `json:"status"`
}

// SeatAvailabilityResponse is the HTTP shape of a seat map
type SeatAvailabilityResponse struct {
	EventID   string      `json:"event_id"`
	Rows      []string    `json:"rows"`
	Columns   []int       `json:"columns"`
	Cells     [][]*Cell   `json:"cells"`
	Invalid   []SeatError `json:"invalid,omitempty"`
	Available int         `json:"available"`
	Reserved  int         `json:"reserved"`
	Rendered  string      `json:"rendered"`
}

// ToResponse converts a Grid to its API representation
func (g *Grid) ToResponse() SeatAvailabilityResponse {
	return SeatAvailabilityResponse{
		EventID:   g.EventID.String(),
		Rows:      g.Rows,
		Columns:   g.Columns,
		Cells:     g.Cells,
		Invalid:   g.Invalid,
		Available: g.Available,
		Reserved:  g.Reserved,
		Rendered:  g.Render(),
	}
}
