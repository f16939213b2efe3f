package gateway

import (
	"bufio"
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"ticketly/internal/auth"
	"ticketly/internal/events"
	"ticketly/internal/locks"
	"ticketly/internal/notifications"
	"ticketly/internal/reservations"
	"ticketly/internal/seats"
	"ticketly/internal/shared/config"
	"ticketly/internal/users"
	"ticketly/internal/waitlist"
	"ticketly/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type client struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
	pushes []string
}

func (c *client) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

func (c *client) readLine() string {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	line, err := c.reader.ReadString('\n')
	require.NoError(c.t, err)
	return strings.TrimRight(line, "\r\n")
}

// response collects one response block, setting aside pushed notices
func (c *client) response() string {
	c.t.Helper()
	var lines []string
	for {
		line := c.readLine()
		switch {
		case strings.HasPrefix(line, "notify: "):
			c.pushes = append(c.pushes, strings.TrimPrefix(line, "notify: "))
		case strings.HasPrefix(line, "response- "):
			lines = append(lines, strings.TrimPrefix(line, "response- "))
		case strings.HasPrefix(line, "response: "):
			return strings.Join(append(lines, strings.TrimPrefix(line, "response: ")), "\n")
		default:
			c.t.Fatalf("unexpected line %q", line)
		}
	}
}

func (c *client) do(line string) string {
	c.t.Helper()
	c.send(line)
	return c.response()
}

type GatewaySuite struct {
	suite.Suite
	ctx      context.Context
	cancel   context.CancelFunc
	server   *Server
	engine   *reservations.Engine
	registry *notifications.ConnectionRegistry
	done     chan error
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) SetupTest() {
	s.ctx, s.cancel = context.WithCancel(context.Background())

	store := reservations.NewMemoryStore()
	codes, err := seats.GenerateCodes(1)
	s.Require().NoError(err)
	s.Require().NoError(store.Create(s.ctx, &events.Event{
		Name: "Hamlet", Date: time.Now().Add(time.Hour), Capacity: 1, AvailableTickets: 1,
	}, codes))

	s.registry = notifications.NewConnectionRegistry()
	s.engine = reservations.NewEngine(store, locks.NewRegistry(), waitlist.NewMemoryQueue(), s.registry,
		reservations.Options{Logger: logger.Discard()})
	accounts := auth.NewService(users.NewMemoryRepository(), &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", JWTExpiresIn: time.Minute, RefreshExpiresIn: time.Hour},
	})

	s.server = NewServer(Config{MaxConnections: 2, IdleTimeout: time.Minute}, s.engine, accounts, s.registry)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	s.Require().NoError(err)

	s.done = make(chan error, 1)
	go func() { s.done <- s.server.Serve(s.ctx, ln) }()
}

func (s *GatewaySuite) TearDownTest() {
	s.cancel()
	select {
	case err := <-s.done:
		s.NoError(err)
	case <-time.After(5 * time.Second):
		s.Fail("gateway did not stop")
	}
	s.engine.Drain()
}

func (s *GatewaySuite) dial() *client {
	var addr net.Addr
	s.Require().Eventually(func() bool {
		addr = s.server.Addr()
		return addr != nil
	}, time.Second, 10*time.Millisecond)

	conn, err := net.Dial("tcp", addr.String())
	s.Require().NoError(err)
	return &client{t: s.T(), conn: conn, reader: bufio.NewReader(conn)}
}

func (s *GatewaySuite) loggedIn(name string) *client {
	c := s.dial()
	s.Equal("user "+name+" registered", c.do("register "+name+" secret1"))
	s.Equal("logged in as "+name, c.do("login "+name+" secret1"))
	return c
}

func (s *GatewaySuite) TestReserveCancelAndPromotionNotice() {
	alice := s.loggedIn("alice")
	bob := s.loggedIn("bob")

	s.Contains(alice.do("view_events"), "Hamlet | ")
	s.Equal("Reserved seat A1 for event Hamlet", alice.do("reserve_ticket Hamlet a1"))
	s.Contains(bob.do("reserve_ticket Hamlet A1"), "number 1 on the waitlist")
	s.Equal("you are number 1 on the waitlist for event Hamlet", bob.do("waitlist_position Hamlet"))

	s.Contains(alice.do("cancel Hamlet"), "Canceled reservation for seat A1 of event Hamlet")

	notice := bob.readLine()
	s.True(strings.HasPrefix(notice, "notify: "), notice)
	s.Contains(notice, "A1")

	s.Equal("Hamlet: seat A1", bob.do("check_reservation_status"))
	s.Contains(bob.do("check_log"), "Auto-reserved seat A1 for event Hamlet from waitlist")
	s.Equal("no reservations", alice.do("check_reservation_status"))
}

func (s *GatewaySuite) TestSeatMapAndErrors() {
	c := s.dial()

	seatMap := c.do("view_seat Hamlet")
	s.Contains(seatMap, "Hamlet\n")
	s.Contains(seatMap, "[ ]")

	s.Equal("please log in first", c.do("reserve_ticket Hamlet A1"))
	s.Equal("usage: reserve_ticket <event> <seat>", c.do("reserve_ticket Hamlet"))
	s.Equal(ErrUnknownCommand.Error(), c.do("dance"))
	s.Contains(c.do("view_seat Othello"), "error[event_not_found]")
	s.Equal("login failed", c.do("login ghost nope1"))
	s.Contains(c.do("help"), "reserve_ticket <event> <seat>")

	c.send("register carol secret1")
	s.Equal("user carol registered", c.response())
	s.Equal("user carol already exists", c.do("register carol secret1"))
	s.Equal("logged in as carol", c.do("login carol secret1"))
	s.Equal("error[seat_not_found]: seat Z9 does not exist for event Hamlet", c.do("reserve_ticket Hamlet Z9"))
	s.Equal("carol logged out", c.do("logout"))
	s.Equal("bye", c.do("quit"))
}

func (s *GatewaySuite) TestLogoutStopsNotices() {
	c := s.loggedIn("dave")
	s.Eventually(func() bool { return s.registry.Len() == 1 }, time.Second, 10*time.Millisecond)

	c.do("logout")
	s.Equal(0, s.registry.Len())

	c.do("quit")
}

func (s *GatewaySuite) TestConnectionLimit() {
	first := s.dial()
	second := s.dial()
	first.do("help")
	second.do("help")

	third := s.dial()
	s.Equal("server is busy, try again later", third.response())
}

func TestFormatBlock(t *testing.T) {
	assert.Equal(t, "response: ok\n", formatBlock(responsePrefix, "ok"))
	assert.Equal(t, "response- a\nresponse- b\nresponse: c\n", formatBlock(responsePrefix, "a\nb\nc\n"))
}
