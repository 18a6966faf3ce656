package models

import "time"

// Message kinds. Media kinds carry a stored-file handle in Content;
// KindDeleted carries the deletion placeholder text.
const (
	KindText    = "text"
	KindImage   = "image"
	KindVideo   = "video"
	KindAudio   = "audio"
	KindFile    = "file"
	KindDeleted = "deleted"
)

// DeletedPlaceholder replaces the content of a soft-deleted message.
const DeletedPlaceholder = "This message was deleted"

// Message represents a chat message. IDs are assigned by the store and are
// strictly increasing per store, never reused.
type Message struct {
	ID           int64     `db:"id" json:"id"`
	Room         string    `db:"room" json:"room"`
	Username     string    `db:"username" json:"username"`
	Kind         string    `db:"type" json:"type"`
	Content      string    `db:"content" json:"content"`
	OriginalName *string   `db:"original_name" json:"original_name,omitempty"`
	ReplyTo      *int64    `db:"reply_to" json:"reply_to,omitempty"`
	Delivered    bool      `db:"delivered" json:"delivered"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// IsMedia reports whether the message references a stored file.
func (m Message) IsMedia() bool {
	switch m.Kind {
	case KindImage, KindVideo, KindAudio, KindFile:
		return true
	}
	return false
}
