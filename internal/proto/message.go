package proto

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client commands.
const (
	CommandIdentify = "identify"
	CommandMessage  = "message"
	CommandCreate   = "create"
	CommandJoin     = "join"
	CommandSendFile = "send_file"
	CommandExitRoom = "exit_room"
)

// Server frame types.
const (
	TypeMessage = "message"
	TypeRooms   = "rooms"
	TypeUsers   = "users"
	TypeSuccess = "success"
	TypeError   = "error"
)

// ErrProtocol marks a structurally invalid payload. A session that
// produces one is terminated; the server keeps running.
var ErrProtocol = errors.New("protocol error")

// Inbound is a decoded client frame.
type Inbound struct {
	Command  string `json:"command"`
	Username string `json:"username,omitempty"`
	Room     string `json:"room,omitempty"`
	Message  string `json:"message,omitempty"`
	FileName string `json:"file_name,omitempty"`
	FileData string `json:"file_data,omitempty"`
}

// ParseIdentify decodes the first frame of a connection and returns the
// requested username. The original client sends a bare {"username": ...}
// object, so the command field is optional here and ignored.
func ParseIdentify(payload []byte) (string, error) {
	var in Inbound
	if err := json.Unmarshal(payload, &in); err != nil {
		return "", fmt.Errorf("%w: decode identify: %v", ErrProtocol, err)
	}
	if in.Command != "" && in.Command != CommandIdentify {
		return "", fmt.Errorf("%w: expected identify, got %q", ErrProtocol, in.Command)
	}
	if in.Username == "" {
		return "", fmt.Errorf("%w: identify missing username", ErrProtocol)
	}
	return in.Username, nil
}

// ParseCommand decodes a post-identify frame and validates that the
// fields its command requires are present.
func ParseCommand(payload []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(payload, &in); err != nil {
		return nil, fmt.Errorf("%w: decode command: %v", ErrProtocol, err)
	}

	switch in.Command {
	case CommandMessage:
		if in.Room == "" || in.Message == "" {
			return nil, fmt.Errorf("%w: message requires room and message", ErrProtocol)
		}
	case CommandCreate, CommandJoin, CommandExitRoom:
		if in.Room == "" {
			return nil, fmt.Errorf("%w: %s requires room", ErrProtocol, in.Command)
		}
	case CommandSendFile:
		if in.FileName == "" || in.FileData == "" {
			return nil, fmt.Errorf("%w: send_file requires file_name and file_data", ErrProtocol)
		}
	case CommandIdentify:
		if in.Username == "" {
			return nil, fmt.Errorf("%w: identify missing username", ErrProtocol)
		}
	case "":
		return nil, fmt.Errorf("%w: missing command", ErrProtocol)
	default:
		return nil, fmt.Errorf("%w: unknown command %q", ErrProtocol, in.Command)
	}

	return &in, nil
}

// Server frames. Each type has its own shape so that list-valued fields
// are always present in the JSON, even when empty; the GUI client indexes
// them unconditionally.

// MessageFrame delivers chat text or an attachment.
type MessageFrame struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	Sender   string `json:"sender"`
	Message  string `json:"message"`
	FileName string `json:"file_name,omitempty"`
	FileData string `json:"file_data,omitempty"`
}

// RoomsFrame is the full presence snapshot.
type RoomsFrame struct {
	Type  string     `json:"type"`
	Rooms []RoomInfo `json:"rooms"`
}

// UsersFrame lists the occupants of one room.
type UsersFrame struct {
	Type  string   `json:"type"`
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// StatusFrame carries success and error acknowledgments.
type StatusFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// RoomInfo is one entry of a presence snapshot.
type RoomInfo struct {
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

// ServerFrame is the union of every server frame shape; clients and tests
// decode into it regardless of type.
type ServerFrame struct {
	Type     string     `json:"type"`
	Room     string     `json:"room,omitempty"`
	Sender   string     `json:"sender,omitempty"`
	Message  string     `json:"message,omitempty"`
	FileName string     `json:"file_name,omitempty"`
	FileData string     `json:"file_data,omitempty"`
	Rooms    []RoomInfo `json:"rooms,omitempty"`
	Users    []string   `json:"users,omitempty"`
}
