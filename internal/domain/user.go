// Package domain contains entities without logic, just meta-data
// and the projections that cross the wire.
package domain

import "time"

type (
	SubjectID string
	RoomID    string
)

// User is one connected subject. The duplex is exclusively owned and
// replaced wholesale on reconnect; every other field survives a rebind.
type User struct {
	ID     SubjectID
	Duplex Duplex

	Nickname string
	Room     RoomID
	FileName string
	FileSize int64
	Time     int64

	Joined time.Time
}

// UserInfo is the public projection of a User.
type UserInfo struct {
	ID       SubjectID `json:"id"`
	Nickname string    `json:"nickname,omitempty"`
	Room     RoomID    `json:"room,omitempty"`
	FileName string    `json:"file_name,omitempty"`
	FileSize int64     `json:"file_size,omitempty"`
	Time     int64     `json:"time"`
}

// MemberInfo is a room member list entry. Same as UserInfo minus the
// room reference, which is implied by the list itself.
type MemberInfo struct {
	ID       SubjectID `json:"id"`
	Nickname string    `json:"nickname,omitempty"`
	FileName string    `json:"file_name,omitempty"`
	FileSize int64     `json:"file_size,omitempty"`
	Time     int64     `json:"time"`
}
