// Package app is the in-memory session engine: the subject-keyed
// connection registry, the room registry, and their compare-and-set
// mutation + broadcast discipline. All state lives here and dies with
// the process.
package app

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/dvesely/syncroom/internal/domain"
)

// Engine owns every User and Room. One mutex guards both maps so a
// mutation and its notification fan-out are atomic relative to every
// other connection, and so the "room exists iff it has members"
// invariant can never be observed mid-transition.
type Engine struct {
	mu    sync.Mutex
	users map[domain.SubjectID]*domain.User
	rooms map[domain.RoomID]*domain.Room
	coll  *collate.Collator
}

func New() *Engine {
	return &Engine{
		users: make(map[domain.SubjectID]*domain.User),
		rooms: make(map[domain.RoomID]*domain.Room),
		coll:  collate.New(language.Und),
	}
}

// Create registers a new User bound to duplex and stamps its join time.
// An existing entry for the same subject is replaced outright.
func (e *Engine) Create(id domain.SubjectID, duplex domain.Duplex) *Connection {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.users[id] = &domain.User{ID: id, Duplex: duplex, Joined: time.Now()}
	log.Info().Str("module", "app.engine").Str("subject", string(id)).Msg("user joined")

	return &Connection{engine: e, id: id}
}

// Select returns a handle for an already registered subject, or nil.
func (e *Engine) Select(id domain.SubjectID) *Connection {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.users[id]; !ok {
		return nil
	}
	return &Connection{engine: e, id: id}
}

// Resume rebinds an existing subject to a new duplex: the stored
// transport is replaced wholesale (the old one is closed), the join
// time refreshed, and every other field kept. Returns nil if the
// subject is not registered.
func (e *Engine) Resume(id domain.SubjectID, duplex domain.Duplex) *Connection {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.users[id]
	if !ok {
		return nil
	}
	if old := u.Duplex; old != nil && old != duplex {
		old.Close(closeNormal)
	}
	u.Duplex = duplex
	u.Joined = time.Now()
	log.Info().Str("module", "app.engine").Str("subject", string(id)).Msg("user resumed")

	return &Connection{engine: e, id: id}
}

// Drop destroys the subject only if duplex is still its current
// transport. A close racing a reconnect must not tear down the fresh
// binding.
func (e *Engine) Drop(id domain.SubjectID, duplex domain.Duplex, code int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	u, ok := e.users[id]
	if !ok || u.Duplex != duplex {
		return false
	}
	e.destroyLocked(u, code)
	return true
}

// Room returns a handle for the given room id; the room itself may or
// may not exist yet.
func (e *Engine) Room(id domain.RoomID) *Room {
	return &Room{engine: e, id: id}
}

// --- projections, lock held ---

func userInfoLocked(u *domain.User) domain.UserInfo {
	return domain.UserInfo{
		ID:       u.ID,
		Nickname: u.Nickname,
		Room:     u.Room,
		FileName: u.FileName,
		FileSize: u.FileSize,
		Time:     u.Time,
	}
}

func (e *Engine) membersLocked(room domain.RoomID) []domain.MemberInfo {
	members := lo.FilterMap(lo.Values(e.users), func(u *domain.User, _ int) (domain.MemberInfo, bool) {
		if u.Room != room {
			return domain.MemberInfo{}, false
		}
		return domain.MemberInfo{
			ID:       u.ID,
			Nickname: u.Nickname,
			FileName: u.FileName,
			FileSize: u.FileSize,
			Time:     u.Time,
		}, true
	})
	// Locale-aware, absent nicknames compare as "".
	e.coll.Sort(memberSort(members))
	return members
}

type memberSort []domain.MemberInfo

func (m memberSort) Len() int           { return len(m) }
func (m memberSort) Swap(i, j int)      { m[i], m[j] = m[j], m[i] }
func (m memberSort) Bytes(i int) []byte { return []byte(m[i].Nickname) }

// --- notification fan-out, lock held ---

func send(duplex domain.Duplex, ev domain.Event) {
	if duplex == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("module", "app.engine").Str("event", ev.Event).Msg("marshal event")
		return
	}
	// Fire and forget: a dead peer must never abort the mutation.
	_ = duplex.Send(data)
}

func (e *Engine) notifyUserLocked(u *domain.User) {
	send(u.Duplex, domain.Event{Event: domain.EventUserUpdate, Data: userInfoLocked(u)})
}

// notifyRoomUsersLocked recomputes the member list of each given room
// and pushes it to every current member.
func (e *Engine) notifyRoomUsersLocked(rooms ...domain.RoomID) {
	for _, id := range rooms {
		if id == "" {
			continue
		}
		list := e.membersLocked(id)
		for _, u := range e.users {
			if u.Room == id {
				send(u.Duplex, domain.Event{Event: domain.EventRoomUsers, Data: list})
			}
		}
	}
}

func (e *Engine) notifyRoomUpdateLocked(rm *domain.Room, field string, value any) {
	ev := domain.Event{
		Event:   domain.EventRoomUpdate,
		Data:    map[string]any{field: value},
		Subject: rm.LastUpdatedBy,
	}
	for _, u := range e.users {
		if u.Room == rm.ID {
			send(u.Duplex, ev)
		}
	}
}
