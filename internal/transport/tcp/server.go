package tcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rozmowa/relay-server/internal/config"
	"github.com/rozmowa/relay-server/internal/core"
	"github.com/rozmowa/relay-server/internal/proto"
)

// Server accepts relay connections and supervises a session per socket.
type Server struct {
	cfg config.Config
	hub *core.Hub
	log *zerolog.Logger

	ln net.Listener

	mu       sync.Mutex
	sessions map[*session]struct{}
	closed   bool
	wg       sync.WaitGroup
}

// NewServer builds a server; call Listen before Serve.
func NewServer(cfg config.Config, hub *core.Hub, logger *zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		hub:      hub,
		log:      logger,
		sessions: make(map[*session]struct{}),
	}
}

// Listen binds the TCP listener. A bind failure here is fatal to the
// process; the caller exits non-zero.
func (s *Server) Listen() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("bind %s: %w", s.cfg.ListenAddr(), err)
	}
	s.ln = ln
	return nil
}

// Addr returns the bound address; valid after Listen.
func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// Serve accepts connections until ctx is cancelled or the listener
// closes. Each accepted connection gets its own goroutine; connections
// beyond the session cap are rejected with an error frame.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.ln.Close()
	}()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		if !s.admit() {
			s.log.Warn().Str("remote", conn.RemoteAddr().String()).Msg("session cap reached, rejecting connection")
			s.reject(conn)
			continue
		}

		sess := newSession(conn, s.hub, s.cfg, s.log)
		s.track(sess)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(sess)
			sess.run()
		}()
	}
}

// Shutdown closes the listener and every live session, then waits for
// their goroutines, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.ln != nil {
		s.ln.Close()
	}

	s.mu.Lock()
	s.closed = true
	for sess := range s.sessions {
		sess.close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session shutdown: %w", ctx.Err())
	}
}

func (s *Server) admit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.cfg.MaxSessions <= 0 || len(s.sessions) < s.cfg.MaxSessions
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

// reject sends a single error frame and closes the socket. No session is
// created, so the frame is written directly.
func (s *Server) reject(conn net.Conn) {
	defer conn.Close()

	payload, err := json.Marshal(proto.StatusFrame{Type: proto.TypeError, Message: "Server is full."})
	if err != nil {
		return
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := proto.NewFrameWriter(conn, s.cfg.MaxFrameBytes).WriteFrame(payload); err != nil {
		s.log.Debug().Err(err).Msg("write reject frame")
	}
}
