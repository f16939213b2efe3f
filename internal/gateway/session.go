package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"ticketly/internal/auth"
	"ticketly/internal/events"
	"ticketly/internal/reservations"

	"github.com/google/uuid"
)

const (
	responsePrefix = "response"
	notifyPrefix   = "notify"
)

// formatBlock renders text as protocol lines. All lines but the last use
// "<prefix>-" so clients know more lines follow; the last uses "<prefix>:".
func formatBlock(prefix, text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	var b strings.Builder
	for i, line := range lines {
		sep := ": "
		if i < len(lines)-1 {
			sep = "- "
		}
		b.WriteString(prefix)
		b.WriteString(sep)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

type session struct {
	server *Server
	conn   net.Conn

	writeMu sync.Mutex

	// owned by the serving goroutine
	userID   uuid.UUID
	username string
}

func newSession(s *Server, conn net.Conn) *session {
	return &session{server: s, conn: conn}
}

func (s *session) write(block string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	_, err := s.conn.Write([]byte(block))
	return err
}

func (s *session) respond(text string) error {
	return s.write(formatBlock(responsePrefix, text))
}

// Notify pushes one line to the client; it implements notifications.Conn
func (s *session) Notify(message string) error {
	return s.write(formatBlock(notifyPrefix, strings.ReplaceAll(message, "\n", " ")))
}

func (s *session) loggedIn() bool {
	return s.userID != uuid.Nil
}

func (s *session) serve(ctx context.Context) {
	log := s.server.log.With("remote", s.conn.RemoteAddr().String())
	log.Debug("session opened")
	defer func() {
		s.logout()
		_ = s.conn.Close()
		log.Debug("session closed")
	}()

	// One request per line, capped at MaxLineBytes
	scanner := bufio.NewScanner(s.conn)
	scanner.Buffer(make([]byte, 0, 256), s.server.cfg.MaxLineBytes)

	for {
		// Idle sessions are dropped
		if err := s.conn.SetReadDeadline(time.Now().Add(s.server.cfg.IdleTimeout)); err != nil {
			return
		}
		if !scanner.Scan() {
			break
		}

		req, err := Parse(scanner.Text())
		// Blank lines get no reply
		if errors.Is(err, ErrEmptyRequest) {
			continue
		}
		if err != nil {
			if s.respond(err.Error()) != nil {
				return
			}
			continue
		}

		reply, quit := s.dispatch(ctx, req)
		if err := s.respond(reply); err != nil || quit {
			return
		}
	}

	err := scanner.Err()
	var netErr net.Error
	switch {
	// Tell the client why the connection is closing
	case errors.Is(err, bufio.ErrTooLong):
		_ = s.respond(fmt.Sprintf("request longer than %d bytes, closing", s.server.cfg.MaxLineBytes))
	case errors.As(err, &netErr) && netErr.Timeout():
		_ = s.respond("idle timeout, closing")
	}
}

func (s *session) logout() {
	if !s.loggedIn() {
		return
	}
	s.server.registry.Unregister(s.userID, s)
	s.userID, s.username = uuid.Nil, ""
}

// dispatch executes one request and returns the reply text; quit ends the session
func (s *session) dispatch(ctx context.Context, req Request) (reply string, quit bool) {
	switch req.Kind {
	case KindRegister:
		return s.register(ctx, req), false
	case KindLogin:
		return s.login(ctx, req), false
	case KindLogout:
		if !s.loggedIn() {
			return "not logged in", false
		}
		name := s.username
		s.logout()
		return name + " logged out", false
	case KindViewEvents:
		return s.viewEvents(ctx), false
	case KindViewSeat:
		return s.viewSeat(ctx, req.Event), false
	case KindReserve:
		return s.withEvent(ctx, req.Event, func(userID, eventID uuid.UUID) reservations.Result {
			return s.server.engine.Reserve(ctx, userID, eventID, req.Seat)
		}), false
	case KindCancel:
		return s.withEvent(ctx, req.Event, func(userID, eventID uuid.UUID) reservations.Result {
			return s.server.engine.Cancel(ctx, userID, eventID)
		}), false
	case KindLeaveWaitlist:
		return s.withEvent(ctx, req.Event, func(userID, eventID uuid.UUID) reservations.Result {
			return s.server.engine.LeaveWaitlist(ctx, userID, eventID)
		}), false
	case KindWaitlistPosition:
		return s.withEvent(ctx, req.Event, func(userID, eventID uuid.UUID) reservations.Result {
			return s.server.engine.WaitlistPosition(ctx, userID, eventID)
		}), false
	case KindCheckLog:
		return s.checkLog(ctx), false
	case KindCheckReservationStatus:
		return s.reservationStatus(ctx), false
	case KindHelp:
		return HelpText(), false
	case KindQuit:
		return "bye", true
	default:
		return ErrUnknownCommand.Error(), false
	}
}

func (s *session) register(ctx context.Context, req Request) string {
	_, err := s.server.accounts.Register(ctx, &auth.RegisterRequest{Username: req.Username, Password: req.Password})
	switch {
	case err == nil:
		return "user " + req.Username + " registered"
	case errors.Is(err, auth.ErrUserAlreadyExists):
		return "user " + req.Username + " already exists"
	case errors.Is(err, auth.ErrValidation):
		return "invalid username or password: usernames are 3-32 letters or digits, passwords 4-72 characters"
	default:
		s.server.log.ErrorContext(ctx, "register failed", "error", err)
		return "registration failed, try again later"
	}
}

func (s *session) login(ctx context.Context, req Request) string {
	user, err := s.server.accounts.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		return "login failed"
	}

	s.logout()
	// Logging in again switches the session to the new account
	s.userID, s.username = user.ID, user.Username
	s.server.registry.Register(user.ID, s)
	return "logged in as " + user.Username
}

func (s *session) viewEvents(ctx context.Context) string {
	list, err := s.server.engine.ListEvents(ctx)
	if err != nil {
		return errorReply(err)
	}
	if len(list) == 0 {
		return "no events"
	}

	lines := make([]string, 0, len(list))
	for _, e := range list {
		// name | date | available/capacity | id
		lines = append(lines, fmt.Sprintf("%s | %s | %d/%d tickets left | %s",
			e.Name, e.Date.Format("2006-01-02 15:04"), e.AvailableTickets, e.Capacity, e.ID))
	}
	return strings.Join(lines, "\n")
}

func (s *session) viewSeat(ctx context.Context, ref string) string {
	event, err := s.resolveEvent(ctx, ref)
	if err != nil {
		return errorReply(err)
	}
	grid, err := s.server.engine.GetSeatAvailability(ctx, event.ID)
	if err != nil {
		return errorReply(err)
	}
	return event.Name + "\n" + grid.Render()
}

func (s *session) withEvent(ctx context.Context, ref string, op func(userID, eventID uuid.UUID) reservations.Result) string {
	if !s.loggedIn() {
		return "please log in first"
	}
	event, err := s.resolveEvent(ctx, ref)
	if err != nil {
		return errorReply(err)
	}
	return resultReply(op(s.userID, event.ID))
}

func (s *session) checkLog(ctx context.Context) string {
	if !s.loggedIn() {
		return "please log in first"
	}
	logs, err := s.server.engine.ListUserLogs(ctx, s.userID, 0)
	if err != nil {
		return errorReply(err)
	}
	if len(logs) == 0 {
		return "no activity yet"
	}

	lines := make([]string, len(logs))
	for i := range logs {
		lines[i] = logs[i].String()
	}
	return strings.Join(lines, "\n")
}

func (s *session) reservationStatus(ctx context.Context) string {
	if !s.loggedIn() {
		return "please log in first"
	}
	list, err := s.server.engine.ListUserReservations(ctx, s.userID)
	if err != nil {
		return errorReply(err)
	}
	if len(list) == 0 {
		return "no reservations"
	}

	lines := make([]string, len(list))
	for i := range list {
		lines[i] = fmt.Sprintf("%s: seat %s", list[i].EventName(), list[i].SeatNumber)
	}
	return strings.Join(lines, "\n")
}

// resolveEvent accepts an event id or an exact event name
func (s *session) resolveEvent(ctx context.Context, ref string) (*events.Event, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.server.engine.GetEvent(ctx, id)
	}

	list, err := s.server.engine.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	for i := range list {
		if list[i].Name == ref {
			return &list[i], nil
		}
	}
	return nil, &reservations.Error{Kind: reservations.KindEventNotFound, Message: "event " + ref + " not found"}
}

func resultReply(res reservations.Result) string {
	switch res.Kind.Category() {
	// Waitlisting is not an error
	case reservations.CategoryOK, reservations.CategoryExhausted:
		return res.Message
	default:
		return "error[" + res.Kind.String() + "]: " + res.Message
	}
}

func errorReply(err error) string {
	kind := reservations.KindOf(err)
	var e *reservations.Error
	// Storage errors stay in the server log
	if errors.As(err, &e) && kind != reservations.KindStorageFailure {
		return "error[" + kind.String() + "]: " + e.Message
	}
	return "error[" + kind.String() + "]: try again later"
}
