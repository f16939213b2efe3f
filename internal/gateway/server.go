package gateway

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"ticketly/internal/activity"
	"ticketly/internal/auth"
	"ticketly/internal/events"
	"ticketly/internal/notifications"
	"ticketly/internal/reservations"
	"ticketly/internal/seats"
	"ticketly/internal/users"
	"ticketly/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const writeTimeout = 5 * time.Second

// Engine is the reservation surface the gateway drives
type Engine interface {
	Reserve(ctx context.Context, userID, eventID uuid.UUID, seatNumber string) reservations.Result
	Cancel(ctx context.Context, userID, eventID uuid.UUID) reservations.Result
	LeaveWaitlist(ctx context.Context, userID, eventID uuid.UUID) reservations.Result
	WaitlistPosition(ctx context.Context, userID, eventID uuid.UUID) reservations.Result
	GetSeatAvailability(ctx context.Context, eventID uuid.UUID) (*seats.Grid, error)
	GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Event, error)
	ListEvents(ctx context.Context) ([]events.Event, error)
	ListUserReservations(ctx context.Context, userID uuid.UUID) ([]reservations.Reservation, error)
	ListUserLogs(ctx context.Context, userID uuid.UUID, limit int) ([]activity.Log, error)
}

// Accounts registers and authenticates gateway users
type Accounts interface {
	Register(ctx context.Context, req *auth.RegisterRequest) (*auth.AuthResponse, error)
	Authenticate(ctx context.Context, username, password string) (*users.User, error)
}

type Config struct {
	Addr           string
	MaxConnections int
	IdleTimeout    time.Duration
	MaxLineBytes   int
}

func (c *Config) applyDefaults() {
	if c.MaxConnections <= 0 {
		c.MaxConnections = 256
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 10 * time.Minute
	}
	if c.MaxLineBytes <= 0 {
		c.MaxLineBytes = 1024
	}
}

// Server accepts line-protocol sessions. Each connection is served by its
// own goroutine; the number of live connections is capped.
type Server struct {
	cfg      Config
	engine   Engine
	accounts Accounts
	registry *notifications.ConnectionRegistry
	slots    *semaphore.Weighted
	log      *logger.Logger

	mu       sync.Mutex
	listener net.Listener
	sessions map[*session]struct{}
	wg       sync.WaitGroup
}

func NewServer(cfg Config, engine Engine, accounts Accounts, registry *notifications.ConnectionRegistry) *Server {
	cfg.applyDefaults()
	return &Server{
		cfg:      cfg,
		engine:   engine,
		accounts: accounts,
		registry: registry,
		slots:    semaphore.NewWeighted(int64(cfg.MaxConnections)),
		log:      logger.GetDefault().WithComponent("gateway"),
		sessions: make(map[*session]struct{}),
	}
}

func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Addr is the bound listener address, nil before Serve
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Serve accepts connections until ctx is done, then closes every session
// and waits for their goroutines
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("gateway listening", "addr", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
		s.closeSessions()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				s.log.Info("gateway stopped")
				return nil
			}
			s.log.Warn("accept failed", "error", err)
			time.Sleep(50 * time.Millisecond)
			continue
		}

		if !s.slots.TryAcquire(1) {
			s.reject(conn)
			continue
		}

		sess := newSession(s, conn)
		s.track(sess)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.slots.Release(1)
			defer s.untrack(sess)
			sess.serve(ctx)
		}()
	}
}

func (s *Server) reject(conn net.Conn) {
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	_, _ = conn.Write([]byte(formatBlock(responsePrefix, "server is busy, try again later")))
	_ = conn.Close()
	s.log.Warn("connection rejected, limit reached", "remote", conn.RemoteAddr().String(), "max", s.cfg.MaxConnections)
}

func (s *Server) track(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess] = struct{}{}
}

func (s *Server) untrack(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sess)
}

func (s *Server) closeSessions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sess := range s.sessions {
		_ = sess.conn.Close()
	}
}
