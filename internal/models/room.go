package models

import "time"

// Room is a named chat room. An empty password means the room is open and
// any supplied password is accepted on join.
type Room struct {
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
