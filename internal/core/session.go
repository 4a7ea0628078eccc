package core

import (
	"sync"

	"github.com/google/uuid"
)

// Session is the server-side representation of one live connection. The
// transport layer owns the socket and drains Outbound; the hub owns the
// room pointer and mutates it only under its lock.
//
// Name is empty until Hub.Register succeeds and immutable afterwards.
type Session struct {
	ID   string
	Name string

	room string // guarded by the hub lock

	mu     sync.Mutex
	out    chan *Event
	closed bool
}

// NewSession builds a session with a bounded outbound queue.
func NewSession(queueSize int) *Session {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Session{
		ID:  uuid.NewString(),
		out: make(chan *Event, queueSize),
	}
}

// Outbound returns the queue the transport writer drains. The channel is
// closed when the session is deregistered; the writer should close the
// socket once it is drained.
func (s *Session) Outbound() <-chan *Event {
	return s.out
}

// Enqueue offers an event without blocking. It returns false when the
// queue is full or already closed; the caller decides whether that
// schedules the session for closure.
func (s *Session) Enqueue(ev *Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.out <- ev:
		return true
	default:
		return false
	}
}

// CloseQueue closes the outbound queue exactly once. Safe to call
// concurrently with Enqueue.
func (s *Session) CloseQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.out)
}
