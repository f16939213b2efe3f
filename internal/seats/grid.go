package seats

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

const (
	// SeatsPerRow is the number of columns generated per row letter
	SeatsPerRow = 9
	// MaxCapacity is the largest seat count the A1..Z9 code space can address
	MaxCapacity = 26 * SeatsPerRow
)

var (
	ErrMalformedSeatCode  = errors.New("seat code must be a row letter followed by a column digit")
	ErrDuplicateSeatCode  = errors.New("duplicate seat code")
	ErrCapacityOutOfRange = fmt.Errorf("capacity must be between 1 and %d", MaxCapacity)
)

// Code is a parsed seat identifier such as "B7"
type Code struct {
	Row    string
	Column int
}

func (c Code) String() string {
	return fmt.Sprintf("%s%d", c.Row, c.Column)
}

// ParseCode parses a seat code of the form <Letter><Digit>.
// Lower-case row letters are accepted and normalized.
func ParseCode(raw string) (Code, error) {
	s := strings.TrimSpace(raw)
	if len(s) != 2 {
		return Code{}, ErrMalformedSeatCode
	}
	row := s[0]
	if row >= 'a' && row <= 'z' {
		row -= 'a' - 'A'
	}
	col := s[1]
	if row < 'A' || row > 'Z' || col < '0' || col > '9' {
		return Code{}, ErrMalformedSeatCode
	}
	return Code{Row: string(row), Column: int(col - '0')}, nil
}

// NormalizeCode returns the canonical form of a seat code, or the trimmed
// input unchanged when it does not parse.
func NormalizeCode(raw string) string {
	code, err := ParseCode(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return code.String()
}

// GenerateCodes lays out capacity seats row by row: A1..A9, B1..B9, ...
func GenerateCodes(capacity int) ([]string, error) {
	if capacity < 1 || capacity > MaxCapacity {
		return nil, ErrCapacityOutOfRange
	}
	codes := make([]string, 0, capacity)
	for i := 0; i < capacity; i++ {
		row := byte('A' + i/SeatsPerRow)
		col := i%SeatsPerRow + 1
		codes = append(codes, fmt.Sprintf("%c%d", row, col))
	}
	return codes, nil
}

// Cell is one occupied position in the grid
type Cell struct {
	SeatNumber string `json:"seat_number"`
	Status     Status `json:"status"`
}

// SeatError reports a seat that could not be placed on the grid
type SeatError struct {
	SeatNumber string `json:"seat_number"`
	Reason     string `json:"reason"`
}

// Grid is a rectangular projection of an event's seats. Rows and Columns
// span the full range between the smallest and largest parsed code, so
// positions without a seat hold a nil cell.
type Grid struct {
	EventID   uuid.UUID
	Rows      []string
	Columns   []int
	Cells     [][]*Cell
	Invalid   []SeatError
	Available int
	Reserved  int
}

// BuildGrid groups seats by parsed row and column. Malformed or duplicate
// codes are reported in Invalid and left off the grid.
func BuildGrid(eventID uuid.UUID, seats []Seat) *Grid {
	g := &Grid{EventID: eventID}

	type placed struct {
		code   Code
		status Status
	}
	var valid []placed
	seen := make(map[Code]bool, len(seats))

	for _, s := range seats {
		code, err := ParseCode(s.SeatNumber)
		if err != nil {
			g.Invalid = append(g.Invalid, SeatError{SeatNumber: s.SeatNumber, Reason: err.Error()})
			continue
		}
		if seen[code] {
			g.Invalid = append(g.Invalid, SeatError{SeatNumber: s.SeatNumber, Reason: ErrDuplicateSeatCode.Error()})
			continue
		}
		seen[code] = true
		valid = append(valid, placed{code: code, status: s.Status})

		if s.Status == StatusReserved {
			g.Reserved++
		} else {
			g.Available++
		}
	}

	if len(valid) == 0 {
		return g
	}

	minRow, maxRow := valid[0].code.Row[0], valid[0].code.Row[0]
	minCol, maxCol := valid[0].code.Column, valid[0].code.Column
	for _, p := range valid[1:] {
		r := p.code.Row[0]
		if r < minRow {
			minRow = r
		}
		if r > maxRow {
			maxRow = r
		}
		if p.code.Column < minCol {
			minCol = p.code.Column
		}
		if p.code.Column > maxCol {
			maxCol = p.code.Column
		}
	}

	for r := minRow; r <= maxRow; r++ {
		g.Rows = append(g.Rows, string(r))
	}
	for c := minCol; c <= maxCol; c++ {
		g.Columns = append(g.Columns, c)
	}

	g.Cells = make([][]*Cell, len(g.Rows))
	for i := range g.Cells {
		g.Cells[i] = make([]*Cell, len(g.Columns))
	}
	for _, p := range valid {
		ri := int(p.code.Row[0] - minRow)
		ci := p.code.Column - minCol
		g.Cells[ri][ci] = &Cell{SeatNumber: p.code.String(), Status: p.status}
	}

	sort.Slice(g.Invalid, func(i, j int) bool {
		return g.Invalid[i].SeatNumber < g.Invalid[j].SeatNumber
	})

	return g
}

// Total is the number of seats placed on the grid
func (g *Grid) Total() int {
	return g.Available + g.Reserved
}

// Render draws the grid as text: a header of column numbers, then one line
// per row with "[ ]" for a free seat, "[X]" for a reserved one and blanks
// where no seat exists.
func (g *Grid) Render() string {
	var b strings.Builder

	if len(g.Rows) == 0 {
		b.WriteString("no seats")
	} else {
		b.WriteString("  ")
		for _, c := range g.Columns {
			fmt.Fprintf(&b, " %d ", c)
		}
		for i, row := range g.Rows {
			b.WriteString("\n")
			b.WriteString(row)
			b.WriteString(" ")
			for _, cell := range g.Cells[i] {
				switch {
				case cell == nil:
					b.WriteString("   ")
				case cell.Status == StatusReserved:
					b.WriteString("[X]")
				default:
					b.WriteString("[ ]")
				}
			}
		}
	}

	fmt.Fprintf(&b, "\navailable: %d, reserved: %d", g.Available, g.Reserved)
	for _, e := range g.Invalid {
		fmt.Fprintf(&b, "\ninvalid seat %q: %s", e.SeatNumber, e.Reason)
	}
	return b.String()
}
