package seats

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCode(t *testing.T) {
	code, err := ParseCode("b7")
	require.NoError(t, err)
	assert.Equal(t, Code{Row: "B", Column: 7}, code)
	assert.Equal(t, "B7", code.String())

	for _, bad := range []string{"", "A", "A10", "1A", "AA", "?1", "Ä1"} {
		_, err := ParseCode(bad)
		assert.ErrorIs(t, err, ErrMalformedSeatCode, bad)
	}
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "C3", NormalizeCode(" c3 "))
	assert.Equal(t, "VIP", NormalizeCode(" VIP"))
}

func TestGenerateCodes(t *testing.T) {
	codes, err := GenerateCodes(11)
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "B1", "B2"}, codes)

	codes, err = GenerateCodes(MaxCapacity)
	require.NoError(t, err)
	assert.Equal(t, "Z9", codes[len(codes)-1])

	_, err = GenerateCodes(0)
	assert.ErrorIs(t, err, ErrCapacityOutOfRange)
	_, err = GenerateCodes(MaxCapacity + 1)
	assert.ErrorIs(t, err, ErrCapacityOutOfRange)
}

func TestBuildGridFillsGaps(t *testing.T) {
	eventID := uuid.New()
	grid := BuildGrid(eventID, []Seat{
		{SeatNumber: "A1", Status: StatusAvailable},
		{SeatNumber: "A3", Status: StatusReserved},
		{SeatNumber: "C2", Status: StatusAvailable},
	})

	assert.Equal(t, eventID, grid.EventID)
	assert.Equal(t, []string{"A", "B", "C"}, grid.Rows)
	assert.Equal(t, []int{1, 2, 3}, grid.Columns)
	require.Len(t, grid.Cells, 3)

	assert.Equal(t, "A1", grid.Cells[0][0].SeatNumber)
	assert.Nil(t, grid.Cells[0][1])
	assert.Equal(t, StatusReserved, grid.Cells[0][2].Status)
	for _, cell := range grid.Cells[1] {
		assert.Nil(t, cell)
	}
	assert.Equal(t, "C2", grid.Cells[2][1].SeatNumber)

	assert.Equal(t, 2, grid.Available)
	assert.Equal(t, 1, grid.Reserved)
	assert.Equal(t, 3, grid.Total())
	assert.Empty(t, grid.Invalid)
}

func TestBuildGridReportsMalformedSeats(t *testing.T) {
	grid := BuildGrid(uuid.New(), []Seat{
		{SeatNumber: "A1", Status: StatusAvailable},
		{SeatNumber: "VIP-1", Status: StatusAvailable},
		{SeatNumber: "a1", Status: StatusReserved},
	})

	assert.Equal(t, 1, grid.Total())
	require.Len(t, grid.Invalid, 2)
	assert.Equal(t, "VIP-1", grid.Invalid[0].SeatNumber)
	assert.Equal(t, ErrMalformedSeatCode.Error(), grid.Invalid[0].Reason)
	assert.Equal(t, "a1", grid.Invalid[1].SeatNumber)
	assert.Equal(t, ErrDuplicateSeatCode.Error(), grid.Invalid[1].Reason)
}

func TestRender(t *testing.T) {
	grid := BuildGrid(uuid.New(), []Seat{
		{SeatNumber: "A1", Status: StatusAvailable},
		{SeatNumber: "A2", Status: StatusReserved},
		{SeatNumber: "B1", Status: StatusAvailable},
	})

	want := "   1  2 \n" +
		"A [ ][X]\n" +
		"B [ ]   \n" +
		"available: 2, reserved: 1"
	assert.Equal(t, want, grid.Render())
}

func TestRenderEmpty(t *testing.T) {
	grid := BuildGrid(uuid.New(), []Seat{{SeatNumber: "bad"}})
	assert.Equal(t, "no seats\navailable: 0, reserved: 0\ninvalid seat \"bad\": "+ErrMalformedSeatCode.Error(), grid.Render())
}
