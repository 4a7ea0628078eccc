package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeNameTaken    = "name_taken"
	ErrCodeRoomNotFound = "room_not_found"
	ErrCodeRoomExists   = "room_exists"
	ErrCodeNotInRoom    = "not_in_room"
	ErrCodeBadRequest   = "bad_request"
)

var (
	ErrNameTaken    = errors.New("username is empty or already taken")
	ErrRoomNotFound = errors.New("room does not exist")
	ErrRoomExists   = errors.New("room already exists")
	ErrNotInRoom    = errors.New("not in room")
)

// RelayError wraps a code and human-readable message. The message is what
// clients see inside an error frame.
type RelayError struct {
	Code    string
	Message string
}

func (e *RelayError) Error() string {
	return e.Message
}

func relayError(code, msg string) *RelayError {
	return &RelayError{Code: code, Message: msg}
}
