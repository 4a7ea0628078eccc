package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServerSender is the sender name on join/leave notices.
const ServerSender = "Server"

// Appender receives every delivered message for the persistence log.
// Implementations must not block; a failure to persist never affects
// delivery.
type Appender interface {
	Append(Message)
}

// Hub is the broadcast engine. Its mutex is the single synchronization
// domain for the room registry, the client directory, and every session's
// current-room pointer, so the two structures can never disagree.
//
// Broadcast enqueues onto bounded session queues while holding the lock,
// which gives every room a global delivery order: a session cannot
// receive a message for a room it already left, nor miss one for a room
// it joined before the send.
type Hub struct {
	mu        sync.Mutex
	registry  *Registry
	directory *Directory
	journal   Appender
	log       *zerolog.Logger
}

// NewHub builds a hub. journal may be nil (no persistence); logger may be
// nil for tests.
func NewHub(journal Appender, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{
		registry:  NewRegistry(),
		directory: NewDirectory(),
		journal:   journal,
		log:       logger,
	}
}

// Register claims username for s and pushes a presence snapshot to every
// connected session, the newcomer included. On failure the session stays
// unregistered and the caller is expected to close it.
func (h *Hub) Register(s *Session, username string) *RelayError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if username == "" {
		return relayError(ErrCodeNameTaken, "Username is empty or already taken.")
	}
	if err := h.directory.Register(username, s); err != nil {
		return relayError(ErrCodeNameTaken, "Username is empty or already taken.")
	}
	s.Name = username

	h.log.Info().Str("session_id", s.ID).Str("user", username).Msg("session registered")
	h.pushRoomsLocked()
	return nil
}

// Unregister tears a session down: directory entry removed, room
// membership cleared, remaining members notified, queue closed.
// Idempotent and safe for concurrent callers.
func (h *Hub) Unregister(s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(s)
}

// CreateRoom creates the room and joins the creator to it.
func (h *Hub) CreateRoom(s *Session, room string) *RelayError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.room != "" {
		return relayError(ErrCodeBadRequest, "Leave the current room first.")
	}
	if err := h.registry.Create(room); err != nil {
		return relayError(ErrCodeRoomExists, "Room already exists.")
	}
	if err := h.registry.Join(room, s.Name); err != nil {
		return relayError(ErrCodeRoomNotFound, "Room does not exist.")
	}
	s.room = room

	s.Enqueue(&Event{Kind: EventSuccess, Info: fmt.Sprintf("Room %s has been created.", room)})
	h.pushUsersLocked(room)
	h.pushRoomsLocked()
	return nil
}

// JoinRoom adds the session to an existing room and notifies its members.
func (h *Hub) JoinRoom(s *Session, room string) *RelayError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.room != "" {
		return relayError(ErrCodeBadRequest, "Leave the current room first.")
	}
	if err := h.registry.Join(room, s.Name); err != nil {
		return relayError(ErrCodeRoomNotFound, "Room does not exist.")
	}
	s.room = room

	s.Enqueue(&Event{Kind: EventSuccess, Info: fmt.Sprintf("Joined room %s.", room)})
	h.deliverLocked(room, noticeEvent(room, fmt.Sprintf("%s joined the room.", s.Name)))
	h.pushUsersLocked(room)
	h.pushRoomsLocked()
	return nil
}

// LeaveRoom handles exit_room: the named room must be the session's
// current one. Remaining members are notified.
func (h *Hub) LeaveRoom(s *Session, room string) *RelayError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.room == "" || s.room != room {
		return relayError(ErrCodeNotInRoom, "You are not in that room.")
	}
	h.registry.Leave(room, s.Name)
	s.room = ""

	h.deliverLocked(room, noticeEvent(room, fmt.Sprintf("%s left the room.", s.Name)))
	h.pushUsersLocked(room)
	h.pushRoomsLocked()
	return nil
}

// SendText broadcasts a chat message to every member of room, sender
// included, and hands a record to the journal.
func (h *Hub) SendText(s *Session, room, text string) *RelayError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.room == "" || s.room != room {
		return relayError(ErrCodeNotInRoom, "You are not in that room.")
	}

	msg := Message{Room: room, Sender: s.Name, Text: text, CreatedAt: time.Now()}
	h.deliverLocked(room, &Event{Kind: EventMessage, Message: msg})
	if h.journal != nil {
		h.journal.Append(msg)
	}
	return nil
}

// SendFile broadcasts an attachment to the session's current room. The
// journal records the display body without the payload.
func (h *Hub) SendFile(s *Session, fileName, fileData string) *RelayError {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s.room == "" {
		return relayError(ErrCodeNotInRoom, "You are not in a room.")
	}

	msg := Message{
		Room:      s.room,
		Sender:    s.Name,
		Text:      fmt.Sprintf("[File] %s", fileName),
		FileName:  fileName,
		FileData:  fileData,
		CreatedAt: time.Now(),
	}
	h.deliverLocked(s.room, &Event{Kind: EventMessage, Message: msg})
	if h.journal != nil {
		h.journal.Append(Message{
			Room:      msg.Room,
			Sender:    msg.Sender,
			Text:      msg.Text,
			FileName:  msg.FileName,
			CreatedAt: msg.CreatedAt,
		})
	}
	return nil
}

// Snapshot returns the current presence state.
func (h *Hub) Snapshot() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.registry.Snapshot()
}

// SessionCount reports registered sessions.
func (h *Hub) SessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.directory.Len()
}

// CloseAll closes every registered session's queue; used on shutdown.
// No notices are sent, the writers just drain and close their sockets.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.directory.Each(func(s *Session) {
		h.registryLeaveLocked(s)
		s.CloseQueue()
	})
	h.directory = NewDirectory()
}

func (h *Hub) registryLeaveLocked(s *Session) {
	if s.room != "" {
		h.registry.Leave(s.room, s.Name)
		s.room = ""
	}
}

// dropLocked removes a session from both shared structures and closes its
// queue. The queue is closed first so nested deliveries cannot requeue the
// session while its departure is announced.
func (h *Hub) dropLocked(s *Session) {
	s.CloseQueue()

	if s.Name == "" {
		return
	}
	if current, ok := h.directory.Lookup(s.Name); !ok || current != s {
		return
	}
	h.directory.Unregister(s.Name)

	if s.room != "" {
		room := s.room
		h.registry.Leave(room, s.Name)
		s.room = ""

		h.log.Info().Str("user", s.Name).Str("room", room).Msg("session left room on disconnect")
		h.deliverLocked(room, noticeEvent(room, fmt.Sprintf("%s left the room.", s.Name)))
		h.pushUsersLocked(room)
		h.pushRoomsLocked()
	} else {
		h.log.Info().Str("user", s.Name).Msg("session deregistered")
	}
}

// deliverLocked fans one event out to every member of room. A member whose
// queue is full or closed is dropped; delivery to the rest continues.
func (h *Hub) deliverLocked(room string, ev *Event) {
	var dead []*Session
	for name := range h.registry.memberSet(room) {
		sess, ok := h.directory.Lookup(name)
		if !ok {
			continue
		}
		if !sess.Enqueue(ev) {
			dead = append(dead, sess)
		}
	}
	for _, sess := range dead {
		h.log.Warn().Str("user", sess.Name).Str("room", room).Msg("send queue stalled, dropping session")
		h.dropLocked(sess)
	}
}

// pushRoomsLocked sends a full presence snapshot to every connected
// session, not only room members. Clients rely on it for their sidebar.
func (h *Hub) pushRoomsLocked() {
	snapshot := h.registry.Snapshot()
	ev := &Event{Kind: EventRooms, Rooms: snapshot}

	var dead []*Session
	h.directory.Each(func(sess *Session) {
		if !sess.Enqueue(ev) {
			dead = append(dead, sess)
		}
	})
	for _, sess := range dead {
		h.log.Warn().Str("user", sess.Name).Msg("send queue stalled on snapshot, dropping session")
		h.dropLocked(sess)
	}
}

// pushUsersLocked sends the occupant list of room to its members.
func (h *Hub) pushUsersLocked(room string) {
	h.deliverLocked(room, &Event{
		Kind:  EventUsers,
		Room:  room,
		Users: h.registry.Members(room),
	})
}

func noticeEvent(room, text string) *Event {
	return &Event{Kind: EventMessage, Message: Message{
		Room:      room,
		Sender:    ServerSender,
		Text:      text,
		CreatedAt: time.Now(),
	}}
}
