// Package gateway serves the line protocol: one space-separated request per
// line, answered by "response:" lines, with "notify:" lines pushed whenever
// the server has news for the logged-in user.
package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is the closed set of request kinds
type Kind int

const (
	KindRegister Kind = iota
	KindLogin
	KindLogout
	KindViewEvents
	KindViewSeat
	KindReserve
	KindCancel
	KindLeaveWaitlist
	KindWaitlistPosition
	KindCheckLog
	KindCheckReservationStatus
	KindHelp
	KindQuit
)

type command struct {
	name  string
	kind  Kind
	args  []string
	about string
}

var commands = []command{
	{"register", KindRegister, []string{"user", "password"}, "create an account"},
	{"login", KindLogin, []string{"user", "password"}, "log in and receive notifications"},
	{"logout", KindLogout, nil, "log out"},
	{"view_events", KindViewEvents, nil, "list events with remaining tickets"},
	{"view_seat", KindViewSeat, []string{"event"}, "show the seat map of an event"},
	{"reserve_ticket", KindReserve, []string{"event", "seat"}, "reserve a seat, or join the waitlist when sold out"},
	{"cancel", KindCancel, []string{"event"}, "cancel your reservation"},
	{"leave_waitlist", KindLeaveWaitlist, []string{"event"}, "leave an event's waitlist"},
	{"waitlist_position", KindWaitlistPosition, []string{"event"}, "show your place on an event's waitlist"},
	{"check_log", KindCheckLog, nil, "show your recent activity"},
	{"check_reservation_status", KindCheckReservationStatus, nil, "list your reservations"},
	{"help", KindHelp, nil, "show this help"},
	{"quit", KindQuit, nil, "close the connection"},
}

var byName = func() map[string]command {
	m := make(map[string]command, len(commands))
	for _, c := range commands {
		m[c.name] = c
	}
	return m
}()

func (k Kind) String() string {
	for _, c := range commands {
		if c.kind == k {
			return c.name
		}
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	ErrEmptyRequest   = errors.New("empty request")
	ErrUnknownCommand = errors.New("unknown command, try help")
)

// UsageError reports a known command called with the wrong arguments
type UsageError struct {
	Command string
	Args    []string
}

func (e *UsageError) Error() string {
	return "usage: " + usage(byName[e.Command])
}

func usage(c command) string {
	if len(c.args) == 0 {
		return c.name
	}
	return c.name + " <" + strings.Join(c.args, "> <") + ">"
}

// Request is one parsed protocol line
type Request struct {
	Kind     Kind
	Username string
	Password string
	Event    string
	Seat     string
}

// Parse splits a request line on whitespace. Command names are case-insensitive.
func Parse(line string) (Request, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Request{}, ErrEmptyRequest
	}

	c, ok := byName[strings.ToLower(fields[0])]
	if !ok {
		return Request{}, ErrUnknownCommand
	}
	args := fields[1:]
	if len(args) != len(c.args) {
		return Request{}, &UsageError{Command: c.name, Args: args}
	}

	req := Request{Kind: c.kind}
	switch c.kind {
	case KindRegister, KindLogin:
		req.Username, req.Password = args[0], args[1]
	case KindViewSeat, KindCancel, KindLeaveWaitlist, KindWaitlistPosition:
		req.Event = args[0]
	case KindReserve:
		req.Event, req.Seat = args[0], args[1]
	}
	return req, nil
}

// HelpText lists every command with its arguments
func HelpText() string {
	var b strings.Builder
	b.WriteString("commands:")
	for _, c := range commands {
		fmt.Fprintf(&b, "\n  %-40s %s", usage(c), c.about)
	}
	return b.String()
}
