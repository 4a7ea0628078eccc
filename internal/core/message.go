package core

import "time"

// Message is the domain model for one broadcast payload. Text carries the
// chat body; FileName/FileData are set only for attachments (FileData is
// the base64 string as received, passed through untouched).
type Message struct {
	Room      string
	Sender    string
	Text      string
	FileName  string
	FileData  string
	CreatedAt time.Time
}
