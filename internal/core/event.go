package core

// EventKind is a notification the core emits to sessions.
type EventKind int

const (
	// EventMessage delivers a chat message or attachment to room members.
	EventMessage EventKind = iota
	// EventRooms pushes a full presence snapshot to a session.
	EventRooms
	// EventUsers delivers the occupant list of one room.
	EventUsers
	// EventSuccess acknowledges a command.
	EventSuccess
	// EventError reports a command failure.
	EventError
)

// Event is queued on a session for its transport writer to deliver.
type Event struct {
	Kind    EventKind
	Message Message    // EventMessage
	Rooms   []RoomInfo // EventRooms
	Room    string     // EventUsers
	Users   []string   // EventUsers
	Info    string     // EventSuccess / EventError text
}

// RoomInfo is a point-in-time copy of one room's membership.
type RoomInfo struct {
	Name  string
	Users []string
}
