package core

import (
	"testing"
	"time"
)

// mustEvent drains a session's queue until an event of the wanted kind
// appears or the deadline passes.
func mustEvent(t *testing.T, s *Session, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-s.Outbound():
			if !ok {
				t.Fatalf("session queue closed while waiting for event kind %v", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
		}
	}
}

// mustMessageFrom drains until a chat message from sender arrives.
func mustMessageFrom(t *testing.T, s *Session, sender string) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-s.Outbound():
			if !ok {
				t.Fatalf("session queue closed while waiting for message from %s", sender)
			}
			if ev.Kind == EventMessage && ev.Message.Sender == sender {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected message from %s not received", sender)
		}
	}
}

// registered builds a session and registers it under name.
func registered(t *testing.T, h *Hub, name string) *Session {
	t.Helper()

	s := NewSession(64)
	if relayErr := h.Register(s, name); relayErr != nil {
		t.Fatalf("register %s: %v", name, relayErr)
	}
	return s
}

// recorder captures journal records for assertions.
type recorder struct {
	ch chan Message
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan Message, 16)}
}

func (r *recorder) Append(msg Message) {
	select {
	case r.ch <- msg:
	default:
	}
}

func (r *recorder) next(t *testing.T) Message {
	t.Helper()
	select {
	case msg := <-r.ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("expected journal record not received")
		return Message{}
	}
}
