package app

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dvesely/syncroom/internal/domain"
)

// closeNormal is websocket close code 1000, the default for destroy.
const closeNormal = 1000

// ErrNotConnected reports an operation against a subject that is not
// (or no longer) registered.
var ErrNotConnected = errors.New("client not connected")

// Connection is a subject-keyed handle into the engine. Handles are
// cheap and never go stale: every call re-resolves the subject.
type Connection struct {
	engine *Engine
	id     domain.SubjectID
}

func (c *Connection) Subject() domain.SubjectID { return c.id }

// User returns the public projection of the subject.
func (c *Connection) User() (domain.UserInfo, bool) {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	u, ok := c.engine.users[c.id]
	if !ok {
		return domain.UserInfo{}, false
	}
	return userInfoLocked(u), true
}

// Room returns the snapshot of the subject's current room, if any.
func (c *Connection) Room() (domain.RoomInfo, bool) {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	u, ok := c.engine.users[c.id]
	if !ok || u.Room == "" {
		return domain.RoomInfo{}, false
	}
	rm, ok := c.engine.rooms[u.Room]
	if !ok {
		return domain.RoomInfo{}, false
	}
	return roomInfoLocked(rm), true
}

func (c *Connection) Duplex() domain.Duplex {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	u, ok := c.engine.users[c.id]
	if !ok {
		return nil
	}
	return u.Duplex
}

// Joined returns the time of the last bind or rebind.
func (c *Connection) Joined() (time.Time, bool) {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	u, ok := c.engine.users[c.id]
	if !ok {
		return time.Time{}, false
	}
	return u.Joined, true
}

// Destroy leaves the subject's room, closes its transport with code
// and removes the User. Returns false if the subject was not
// registered.
func (c *Connection) Destroy(code int) bool {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	u, ok := c.engine.users[c.id]
	if !ok {
		return false
	}
	c.engine.destroyLocked(u, code)
	return true
}

// SetNickname is a compare-and-set against the nickname field.
func (c *Connection) SetNickname(nickname string) error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	u, ok := c.engine.users[c.id]
	if !ok {
		return ErrNotConnected
	}
	if u.Nickname == nickname {
		return nil
	}
	u.Nickname = nickname
	log.Info().Str("module", "app.engine").Str("subject", string(c.id)).Str("nickname", nickname).Msg("user updated nickname")
	c.engine.notifyUserLocked(u)
	c.engine.notifyRoomUsersLocked(u.Room)
	return nil
}

// SetFile replaces the loaded media descriptor; a descriptor equal to
// the stored one is a no-op.
func (c *Connection) SetFile(name string, size int64) error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	u, ok := c.engine.users[c.id]
	if !ok {
		return ErrNotConnected
	}
	if u.FileName == name && u.FileSize == size {
		return nil
	}
	u.FileName = name
	u.FileSize = size
	log.Info().Str("module", "app.engine").Str("subject", string(c.id)).Str("file", name).Int64("size", size).Msg("user updated file")
	c.engine.notifyUserLocked(u)
	c.engine.notifyRoomUsersLocked(u.Room)
	return nil
}

// SetTime is a compare-and-set against the playback position.
func (c *Connection) SetTime(t int64) error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	u, ok := c.engine.users[c.id]
	if !ok {
		return ErrNotConnected
	}
	if u.Time == t {
		return nil
	}
	u.Time = t
	c.engine.notifyUserLocked(u)
	c.engine.notifyRoomUsersLocked(u.Room)
	return nil
}

// JoinRoom moves the subject into room, leaving the current room first
// (with its full leave side effects) and lazily creating the target.
// Joining the room the subject is already in is a no-op.
func (c *Connection) JoinRoom(room domain.RoomID) error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	u, ok := c.engine.users[c.id]
	if !ok {
		return ErrNotConnected
	}
	c.engine.joinRoomLocked(u, room)
	return nil
}

// LeaveRoom clears the subject's room; no-op when roomless. An emptied
// room is destroyed on the spot.
func (c *Connection) LeaveRoom() error {
	c.engine.mu.Lock()
	defer c.engine.mu.Unlock()

	u, ok := c.engine.users[c.id]
	if !ok {
		return ErrNotConnected
	}
	c.engine.leaveRoomLocked(u)
	return nil
}

// --- lifecycle, lock held ---

func (e *Engine) joinRoomLocked(u *domain.User, room domain.RoomID) {
	if u.Room == room {
		return
	}
	if u.Room != "" {
		e.leaveRoomLocked(u)
	}
	if _, ok := e.rooms[room]; !ok {
		e.createRoomLocked(room)
	}
	u.Room = room
	log.Info().Str("module", "app.engine").Str("subject", string(u.ID)).Str("room", string(room)).Msg("user joined room")
	e.notifyUserLocked(u)
	e.notifyRoomUsersLocked(room)
}

func (e *Engine) leaveRoomLocked(u *domain.User) {
	prev := u.Room
	if prev == "" {
		return
	}
	u.Room = ""
	log.Info().Str("module", "app.engine").Str("subject", string(u.ID)).Str("room", string(prev)).Msg("user left room")
	e.notifyUserLocked(u)
	e.notifyRoomUsersLocked(prev)
	if e.roomEmptyLocked(prev) {
		e.destroyRoomLocked(prev)
	}
}

func (e *Engine) destroyLocked(u *domain.User, code int) {
	e.leaveRoomLocked(u)
	if u.Duplex != nil {
		u.Duplex.Close(code)
	}
	delete(e.users, u.ID)
	log.Info().Str("module", "app.engine").Str("subject", string(u.ID)).Msg("user left")
}
