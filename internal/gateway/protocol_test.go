package gateway

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequests(t *testing.T) {
	cases := []struct {
		line string
		want Request
	}{
		{"register alice secret", Request{Kind: KindRegister, Username: "alice", Password: "secret"}},
		{"LOGIN alice secret", Request{Kind: KindLogin, Username: "alice", Password: "secret"}},
		{"logout", Request{Kind: KindLogout}},
		{"  view_events  ", Request{Kind: KindViewEvents}},
		{"view_seat Hamlet", Request{Kind: KindViewSeat, Event: "Hamlet"}},
		{"reserve_ticket Hamlet a1", Request{Kind: KindReserve, Event: "Hamlet", Seat: "a1"}},
		{"cancel Hamlet", Request{Kind: KindCancel, Event: "Hamlet"}},
		{"leave_waitlist Hamlet", Request{Kind: KindLeaveWaitlist, Event: "Hamlet"}},
		{"waitlist_position Hamlet", Request{Kind: KindWaitlistPosition, Event: "Hamlet"}},
		{"check_log", Request{Kind: KindCheckLog}},
		{"check_reservation_status", Request{Kind: KindCheckReservationStatus}},
		{"help", Request{Kind: KindHelp}},
		{"quit", Request{Kind: KindQuit}},
	}
	for _, tc := range cases {
		t.Run(tc.line, func(t *testing.T) {
			got, err := Parse(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseRejectsMalformedRequests(t *testing.T) {
	_, err := Parse("   ")
	assert.ErrorIs(t, err, ErrEmptyRequest)

	_, err = Parse("book Hamlet A1")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = Parse("reserve_ticket Hamlet")
	var usageErr *UsageError
	require.True(t, errors.As(err, &usageErr))
	assert.Equal(t, "usage: reserve_ticket <event> <seat>", err.Error())

	_, err = Parse("logout now")
	assert.True(t, errors.As(err, &usageErr))
}

func TestHelpListsEveryCommand(t *testing.T) {
	help := HelpText()
	for _, c := range commands {
		assert.True(t, strings.Contains(help, c.name), c.name)
	}
}
