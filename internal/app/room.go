package app

import (
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/dvesely/syncroom/internal/domain"
)

// Room is a room-keyed handle into the engine. Field mutators on a
// room that does not exist are no-ops, mirroring the handle never
// going stale rather than erroring.
type Room struct {
	engine *Engine
	id     domain.RoomID
}

func (r *Room) ID() domain.RoomID { return r.id }

// Create makes the room with default field values; idempotent.
func (r *Room) Create() {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	if _, ok := r.engine.rooms[r.id]; ok {
		return
	}
	r.engine.createRoomLocked(r.id)
}

// Destroy bulk-detaches every member (without their individual leave
// broadcasts) and removes the room. Returns false if it did not exist.
func (r *Room) Destroy() bool {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	if _, ok := r.engine.rooms[r.id]; !ok {
		return false
	}
	r.engine.destroyRoomLocked(r.id)
	return true
}

// Snapshot returns the public projection, defaults applied and
// attribution excluded.
func (r *Room) Snapshot() (domain.RoomInfo, bool) {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	rm, ok := r.engine.rooms[r.id]
	if !ok {
		return domain.RoomInfo{}, false
	}
	return roomInfoLocked(rm), true
}

// Users returns the member list sorted ascending by nickname.
func (r *Room) Users() []domain.MemberInfo {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	return r.engine.membersLocked(r.id)
}

func (r *Room) IsEmpty() bool {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	return r.engine.roomEmptyLocked(r.id)
}

// SetLastUpdatedBy records attribution for the next field mutation.
// Pure metadata: never broadcasts.
func (r *Room) SetLastUpdatedBy(subject domain.SubjectID) {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	if rm, ok := r.engine.rooms[r.id]; ok {
		rm.LastUpdatedBy = subject
	}
}

func (r *Room) LastUpdatedBy() domain.SubjectID {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	rm, ok := r.engine.rooms[r.id]
	if !ok {
		return ""
	}
	return rm.LastUpdatedBy
}

// SetTime is a compare-and-set against the shared playback position.
func (r *Room) SetTime(t int64) {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	rm, ok := r.engine.rooms[r.id]
	if !ok || rm.Time == t {
		return
	}
	rm.Time = t
	log.Info().Str("module", "app.engine").Str("room", string(r.id)).Int64("time", t).Msg("room updated time")
	r.engine.notifyRoomUpdateLocked(rm, "time", t)
}

func (r *Room) SetPlaying(playing bool) {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	rm, ok := r.engine.rooms[r.id]
	if !ok || rm.Playing == playing {
		return
	}
	rm.Playing = playing
	log.Info().Str("module", "app.engine").Str("room", string(r.id)).Bool("playing", playing).Msg("room updated playing")
	r.engine.notifyRoomUpdateLocked(rm, "playing", playing)
}

// SetPlaylist replaces the playlist wholesale; equality is element-wise.
func (r *Room) SetPlaylist(playlist []domain.PlaylistItem) {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	rm, ok := r.engine.rooms[r.id]
	if !ok || slices.Equal(rm.Playlist, playlist) {
		return
	}
	rm.Playlist = slices.Clone(playlist)
	log.Info().Str("module", "app.engine").Str("room", string(r.id)).Int("items", len(playlist)).Msg("room updated playlist")
	r.engine.notifyRoomUpdateLocked(rm, "playlist", playlistOrEmpty(rm.Playlist))
}

func (r *Room) SetPlaylistIndex(index int) {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	rm, ok := r.engine.rooms[r.id]
	if !ok || rm.PlaylistIndex == index {
		return
	}
	rm.PlaylistIndex = index
	log.Info().Str("module", "app.engine").Str("room", string(r.id)).Int("playlist_index", index).Msg("room updated playlist index")
	r.engine.notifyRoomUpdateLocked(rm, "playlist_index", index)
}

// Join is the room-side half of Connection.JoinRoom.
func (r *Room) Join(subject domain.SubjectID) error {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	u, ok := r.engine.users[subject]
	if !ok {
		return ErrNotConnected
	}
	r.engine.joinRoomLocked(u, r.id)
	return nil
}

// Leave is the room-side half of Connection.LeaveRoom: it only acts if
// subject is actually a member of this room.
func (r *Room) Leave(subject domain.SubjectID) error {
	r.engine.mu.Lock()
	defer r.engine.mu.Unlock()

	u, ok := r.engine.users[subject]
	if !ok {
		return ErrNotConnected
	}
	if u.Room == r.id {
		r.engine.leaveRoomLocked(u)
	}
	return nil
}

// --- room internals, lock held ---

func roomInfoLocked(rm *domain.Room) domain.RoomInfo {
	return domain.RoomInfo{
		ID:            rm.ID,
		Time:          rm.Time,
		Playing:       rm.Playing,
		Playlist:      playlistOrEmpty(slices.Clone(rm.Playlist)),
		PlaylistIndex: rm.PlaylistIndex,
	}
}

func playlistOrEmpty(p []domain.PlaylistItem) []domain.PlaylistItem {
	if p == nil {
		return []domain.PlaylistItem{}
	}
	return p
}

func (e *Engine) createRoomLocked(id domain.RoomID) {
	e.rooms[id] = &domain.Room{ID: id}
	log.Info().Str("module", "app.engine").Str("room", string(id)).Msg("room created")
}

// destroyRoomLocked clears the room reference on every member without
// recursing into the per-user leave contract, then drops the room.
func (e *Engine) destroyRoomLocked(id domain.RoomID) {
	for _, u := range e.users {
		if u.Room == id {
			u.Room = ""
		}
	}
	delete(e.rooms, id)
	log.Info().Str("module", "app.engine").Str("room", string(id)).Msg("room deleted")
}

func (e *Engine) roomEmptyLocked(id domain.RoomID) bool {
	for _, u := range e.users {
		if u.Room == id {
			return false
		}
	}
	return true
}
