package core

import (
	"testing"
)

func TestHubRejectsDuplicateName(t *testing.T) {
	hub := NewHub(nil, nil)

	registered(t, hub, "alice")

	second := NewSession(8)
	relayErr := hub.Register(second, "alice")
	if relayErr == nil || relayErr.Code != ErrCodeNameTaken {
		t.Fatalf("expected name_taken, got %+v", relayErr)
	}
	if hub.SessionCount() != 1 {
		t.Fatalf("expected one registered session, got %d", hub.SessionCount())
	}
}

func TestHubRejectsEmptyName(t *testing.T) {
	hub := NewHub(nil, nil)

	relayErr := hub.Register(NewSession(8), "")
	if relayErr == nil || relayErr.Code != ErrCodeNameTaken {
		t.Fatalf("expected name_taken for empty name, got %+v", relayErr)
	}
}

func TestHubCreateAutoJoins(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}

	mustEvent(t, alice, EventSuccess)
	users := mustEvent(t, alice, EventUsers)
	if users.Room != "lobby" || len(users.Users) != 1 || users.Users[0] != "alice" {
		t.Fatalf("unexpected users event: %+v", users)
	}

	snap := hub.Snapshot()
	if len(snap) != 1 || snap[0].Name != "lobby" || len(snap[0].Users) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestHubCreateExistingRoomFails(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")
	bob := registered(t, hub, "bob")

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}
	relayErr := hub.CreateRoom(bob, "lobby")
	if relayErr == nil || relayErr.Code != ErrCodeRoomExists {
		t.Fatalf("expected room_exists, got %+v", relayErr)
	}

	// Existing membership is untouched by the failed create.
	snap := hub.Snapshot()
	if len(snap) != 1 || len(snap[0].Users) != 1 || snap[0].Users[0] != "alice" {
		t.Fatalf("membership altered by failed create: %+v", snap)
	}
}

func TestHubJoinUnknownRoomFails(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")

	relayErr := hub.JoinRoom(alice, "ghost")
	if relayErr == nil || relayErr.Code != ErrCodeRoomNotFound {
		t.Fatalf("expected room_not_found, got %+v", relayErr)
	}
	if len(hub.Snapshot()) != 0 {
		t.Fatalf("registry changed by failed join: %+v", hub.Snapshot())
	}
}

func TestHubJoinWhileInRoomFails(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}
	if relayErr := hub.CreateRoom(alice, "attic"); relayErr == nil || relayErr.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request creating second room, got %+v", relayErr)
	}

	bob := registered(t, hub, "bob")
	if relayErr := hub.JoinRoom(bob, "lobby"); relayErr != nil {
		t.Fatalf("join lobby: %v", relayErr)
	}
	if relayErr := hub.JoinRoom(bob, "lobby"); relayErr == nil || relayErr.Code != ErrCodeBadRequest {
		t.Fatalf("expected bad_request on second join, got %+v", relayErr)
	}
}

func TestHubJoinNotifiesMembersAndPushesPresence(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")
	bob := registered(t, hub, "bob")

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}
	if relayErr := hub.JoinRoom(bob, "lobby"); relayErr != nil {
		t.Fatalf("join lobby: %v", relayErr)
	}

	notice := mustMessageFrom(t, alice, ServerSender)
	if notice.Message.Room != "lobby" || notice.Message.Text != "bob joined the room." {
		t.Fatalf("unexpected join notice: %+v", notice.Message)
	}

	// Presence snapshot reaches everyone, not only room members.
	rooms := mustEvent(t, alice, EventRooms)
	if len(rooms.Rooms) != 1 || len(rooms.Rooms[0].Users) != 2 {
		t.Fatalf("unexpected rooms snapshot: %+v", rooms.Rooms)
	}
	if rooms.Rooms[0].Users[0] != "alice" || rooms.Rooms[0].Users[1] != "bob" {
		t.Fatalf("unexpected members: %+v", rooms.Rooms[0].Users)
	}
}

func TestHubBroadcastOrdering(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")
	bob := registered(t, hub, "bob")

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}
	if relayErr := hub.JoinRoom(bob, "lobby"); relayErr != nil {
		t.Fatalf("join lobby: %v", relayErr)
	}

	for _, text := range []string{"m1", "m2", "m3"} {
		if relayErr := hub.SendText(alice, "lobby", text); relayErr != nil {
			t.Fatalf("send %s: %v", text, relayErr)
		}
	}

	// Both members, sender included, see messages in accept order.
	for _, member := range []*Session{alice, bob} {
		for _, want := range []string{"m1", "m2", "m3"} {
			ev := mustMessageFrom(t, member, "alice")
			if ev.Message.Text != want {
				t.Fatalf("out of order: got %q want %q", ev.Message.Text, want)
			}
		}
	}
}

func TestHubSendOutsideRoomFails(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")
	bob := registered(t, hub, "bob")

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}

	if relayErr := hub.SendText(bob, "lobby", "hi"); relayErr == nil || relayErr.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room, got %+v", relayErr)
	}
	if relayErr := hub.SendFile(bob, "a.png", "aGk="); relayErr == nil || relayErr.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room for file, got %+v", relayErr)
	}
}

func TestHubLeaveRoomNotifiesRemaining(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")
	bob := registered(t, hub, "bob")

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}
	if relayErr := hub.JoinRoom(bob, "lobby"); relayErr != nil {
		t.Fatalf("join lobby: %v", relayErr)
	}
	if relayErr := hub.LeaveRoom(bob, "lobby"); relayErr != nil {
		t.Fatalf("leave lobby: %v", relayErr)
	}

	notice := mustMessageFrom(t, alice, ServerSender)
	for notice.Message.Text != "bob left the room." {
		notice = mustMessageFrom(t, alice, ServerSender)
	}

	snap := hub.Snapshot()
	if len(snap) != 1 || len(snap[0].Users) != 1 || snap[0].Users[0] != "alice" {
		t.Fatalf("unexpected snapshot after leave: %+v", snap)
	}

	// The room is still joinable; leaving never deletes it.
	if relayErr := hub.JoinRoom(bob, "lobby"); relayErr != nil {
		t.Fatalf("rejoin lobby: %v", relayErr)
	}
}

func TestHubLeaveWrongRoomFails(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")

	if relayErr := hub.LeaveRoom(alice, "lobby"); relayErr == nil || relayErr.Code != ErrCodeNotInRoom {
		t.Fatalf("expected not_in_room, got %+v", relayErr)
	}
}

func TestHubUnregisterCleansUp(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")
	bob := registered(t, hub, "bob")

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}
	if relayErr := hub.JoinRoom(bob, "lobby"); relayErr != nil {
		t.Fatalf("join lobby: %v", relayErr)
	}

	hub.Unregister(bob)
	hub.Unregister(bob) // idempotent

	if hub.SessionCount() != 1 {
		t.Fatalf("expected one session after unregister, got %d", hub.SessionCount())
	}
	snap := hub.Snapshot()
	if len(snap) != 1 || len(snap[0].Users) != 1 || snap[0].Users[0] != "alice" {
		t.Fatalf("membership not cleaned: %+v", snap)
	}

	// Remaining members learn about the departure.
	notice := mustMessageFrom(t, alice, ServerSender)
	for notice.Message.Text != "bob left the room." {
		notice = mustMessageFrom(t, alice, ServerSender)
	}
	rooms := mustEvent(t, alice, EventRooms)
	if len(rooms.Rooms) != 1 || len(rooms.Rooms[0].Users) != 1 {
		t.Fatalf("snapshot push missing departure: %+v", rooms.Rooms)
	}

	// The name is free again.
	again := NewSession(8)
	if relayErr := hub.Register(again, "bob"); relayErr != nil {
		t.Fatalf("re-register bob: %v", relayErr)
	}
}

func TestHubJournalReceivesRecords(t *testing.T) {
	rec := newRecorder()
	hub := NewHub(rec, nil)
	alice := registered(t, hub, "alice")

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}
	if relayErr := hub.SendText(alice, "lobby", "hi"); relayErr != nil {
		t.Fatalf("send: %v", relayErr)
	}

	msg := rec.next(t)
	if msg.Room != "lobby" || msg.Sender != "alice" || msg.Text != "hi" {
		t.Fatalf("unexpected record: %+v", msg)
	}

	if relayErr := hub.SendFile(alice, "cat.png", "aGk="); relayErr != nil {
		t.Fatalf("send file: %v", relayErr)
	}
	msg = rec.next(t)
	if msg.Text != "[File] cat.png" || msg.FileName != "cat.png" {
		t.Fatalf("unexpected file record: %+v", msg)
	}
	if msg.FileData != "" {
		t.Fatalf("file payload must stay out of the journal, got %d bytes", len(msg.FileData))
	}
}

func TestHubDropsStalledSession(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")

	// Queue of one: the registration snapshot fills it, everything after
	// overflows.
	stuck := NewSession(1)
	if relayErr := hub.Register(stuck, "stuck"); relayErr != nil {
		t.Fatalf("register stuck: %v", relayErr)
	}

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}

	// The presence push to a full queue drops the session; delivery to
	// alice is unaffected.
	if hub.SessionCount() != 1 {
		t.Fatalf("expected stalled session dropped, have %d sessions", hub.SessionCount())
	}
	mustEvent(t, alice, EventSuccess)

	select {
	case _, ok := <-stuck.Outbound():
		if !ok {
			break
		}
		// One buffered event is fine; the channel must be closed after it.
		if _, ok := <-stuck.Outbound(); ok {
			t.Fatal("expected stalled session queue to be closed")
		}
	default:
		t.Fatal("expected buffered event or closed queue")
	}
}

func TestHubRegistryMatchesSessions(t *testing.T) {
	hub := NewHub(nil, nil)
	alice := registered(t, hub, "alice")
	bob := registered(t, hub, "bob")
	carol := registered(t, hub, "carol")

	if relayErr := hub.CreateRoom(alice, "lobby"); relayErr != nil {
		t.Fatalf("create lobby: %v", relayErr)
	}
	if relayErr := hub.CreateRoom(bob, "attic"); relayErr != nil {
		t.Fatalf("create attic: %v", relayErr)
	}
	if relayErr := hub.JoinRoom(carol, "lobby"); relayErr != nil {
		t.Fatalf("join lobby: %v", relayErr)
	}
	if relayErr := hub.LeaveRoom(carol, "lobby"); relayErr != nil {
		t.Fatalf("leave lobby: %v", relayErr)
	}
	hub.Unregister(bob)

	// Quiescent point: registry membership must equal the set of sessions
	// whose current room points at each room.
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for _, info := range hub.registry.Snapshot() {
		for _, user := range info.Users {
			sess, ok := hub.directory.Lookup(user)
			if !ok {
				t.Fatalf("registry lists %s but directory has no session", user)
			}
			if sess.room != info.Name {
				t.Fatalf("session %s room %q disagrees with registry %q", user, sess.room, info.Name)
			}
		}
	}
	h := hub
	h.directory.Each(func(s *Session) {
		if s.room == "" {
			return
		}
		found := false
		for _, user := range h.registry.Members(s.room) {
			if user == s.Name {
				found = true
			}
		}
		if !found {
			t.Fatalf("session %s claims room %q but registry disagrees", s.Name, s.room)
		}
	})
}
