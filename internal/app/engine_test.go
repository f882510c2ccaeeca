package app

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dvesely/syncroom/internal/domain"
)

// fakeDuplex records every frame pushed to it.
type fakeDuplex struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	code   int
}

func (f *fakeDuplex) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	f.frames = append(f.frames, buf)
	return nil
}

func (f *fakeDuplex) Close(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.code = code
}

func (f *fakeDuplex) events(t *testing.T) []domain.Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Event, 0, len(f.frames))
	for _, frame := range f.frames {
		var ev domain.Event
		require.NoError(t, json.Unmarshal(frame, &ev))
		out = append(out, ev)
	}
	return out
}

func (f *fakeDuplex) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frames = nil
}

func (f *fakeDuplex) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

func names(events []domain.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.Event
	}
	return out
}

func TestMutationIsCompareAndSet(t *testing.T) {
	req := require.New(t)
	e := New()
	d := &fakeDuplex{}
	conn := e.Create("alice", d)

	req.NoError(conn.SetNickname("al"))
	req.Equal([]string{domain.EventUserUpdate}, names(d.events(t)))

	// Writing the current value again produces no notification.
	d.reset()
	req.NoError(conn.SetNickname("al"))
	req.NoError(conn.SetTime(0))
	req.NoError(conn.SetFile("", 0))
	req.Zero(d.count())
}

func TestRoomExistsIffMembers(t *testing.T) {
	req := require.New(t)
	e := New()
	conn := e.Create("alice", &fakeDuplex{})

	_, ok := e.Room("movie").Snapshot()
	req.False(ok)

	req.NoError(conn.JoinRoom("movie"))
	snap, ok := e.Room("movie").Snapshot()
	req.True(ok)
	req.Equal(domain.RoomInfo{
		ID:            "movie",
		Time:          0,
		Playing:       false,
		Playlist:      []domain.PlaylistItem{},
		PlaylistIndex: 0,
	}, snap)

	req.NoError(conn.LeaveRoom())
	_, ok = e.Room("movie").Snapshot()
	req.False(ok)
	req.True(e.Room("movie").IsEmpty())
}

func TestDestroyLastMemberDestroysRoom(t *testing.T) {
	req := require.New(t)
	e := New()
	a := e.Create("alice", &fakeDuplex{})
	b := e.Create("bob", &fakeDuplex{})
	req.NoError(a.JoinRoom("movie"))
	req.NoError(b.JoinRoom("movie"))

	req.True(a.Destroy(1000))
	_, ok := e.Room("movie").Snapshot()
	req.True(ok, "room must survive while a member remains")

	req.True(b.Destroy(1000))
	_, ok = e.Room("movie").Snapshot()
	req.False(ok)
	req.False(b.Destroy(1000), "second destroy reports unknown subject")
}

func TestResumePreservesEverythingButTransport(t *testing.T) {
	req := require.New(t)
	e := New()
	old := &fakeDuplex{}
	conn := e.Create("alice", old)
	req.NoError(conn.SetNickname("al"))
	req.NoError(conn.SetFile("movie.mkv", 700))
	req.NoError(conn.SetTime(42))
	req.NoError(conn.JoinRoom("movie"))
	joined, ok := conn.Joined()
	req.True(ok)

	fresh := &fakeDuplex{}
	resumed := e.Resume("alice", fresh)
	req.NotNil(resumed)

	user, ok := resumed.User()
	req.True(ok)
	req.Equal(domain.UserInfo{
		ID:       "alice",
		Nickname: "al",
		Room:     "movie",
		FileName: "movie.mkv",
		FileSize: 700,
		Time:     42,
	}, user)

	rejoined, ok := resumed.Joined()
	req.True(ok)
	req.False(rejoined.Before(joined))

	req.True(old.closed, "replaced transport is closed")
	req.Equal(1000, old.code)

	// Notifications now go to the new transport.
	req.NoError(resumed.SetTime(43))
	req.NotZero(fresh.count())

	req.Nil(e.Resume("nobody", &fakeDuplex{}))
}

func TestDropIgnoresStaleTransport(t *testing.T) {
	req := require.New(t)
	e := New()
	old := &fakeDuplex{}
	e.Create("alice", old)
	fresh := &fakeDuplex{}
	e.Resume("alice", fresh)

	req.False(e.Drop("alice", old, 1000), "stale close must not destroy the user")
	req.NotNil(e.Select("alice"))

	req.True(e.Drop("alice", fresh, 1001))
	req.Nil(e.Select("alice"))
	req.True(fresh.closed)
	req.Equal(1001, fresh.code)
}

func TestMembersSortedByNickname(t *testing.T) {
	req := require.New(t)
	e := New()
	for _, u := range []struct{ id, nick string }{
		{"u1", "zoe"},
		{"u2", ""},
		{"u3", "ana"},
		{"u4", "bob"},
	} {
		conn := e.Create(domain.SubjectID(u.id), &fakeDuplex{})
		req.NoError(conn.SetNickname(u.nick))
		req.NoError(conn.JoinRoom("movie"))
	}

	members := e.Room("movie").Users()
	nicks := make([]string, len(members))
	for i, m := range members {
		nicks[i] = m.Nickname
	}
	req.Equal([]string{"", "ana", "bob", "zoe"}, nicks)
}

func TestUserMutationBroadcastContract(t *testing.T) {
	req := require.New(t)
	e := New()
	da, db := &fakeDuplex{}, &fakeDuplex{}
	a := e.Create("alice", da)
	b := e.Create("bob", db)
	req.NoError(a.JoinRoom("movie"))
	req.NoError(b.JoinRoom("movie"))
	da.reset()
	db.reset()

	req.NoError(a.SetNickname("al"))

	// The mutated user gets its own projection plus the member list.
	evA := da.events(t)
	req.Equal([]string{domain.EventUserUpdate, domain.EventRoomUsers}, names(evA))

	// Other members only see the recomputed member list.
	evB := db.events(t)
	req.Equal([]string{domain.EventRoomUsers}, names(evB))

	var list []domain.MemberInfo
	raw, err := json.Marshal(evB[0].Data)
	req.NoError(err)
	req.NoError(json.Unmarshal(raw, &list))
	req.Len(list, 2)
	// bob's absent nickname sorts as "" and comes first.
	req.Equal(domain.SubjectID("bob"), list[0].ID)
	req.Equal(domain.SubjectID("alice"), list[1].ID)
	req.Equal("al", list[1].Nickname)
}

func TestRoomSwitchNotifiesBothRooms(t *testing.T) {
	req := require.New(t)
	e := New()
	da, db := &fakeDuplex{}, &fakeDuplex{}
	a := e.Create("alice", da)
	b := e.Create("bob", db)
	req.NoError(a.JoinRoom("red"))
	req.NoError(b.JoinRoom("blue"))
	da.reset()
	db.reset()

	req.NoError(a.JoinRoom("blue"))

	// Mover: User/update for the leave (it no longer belongs to the
	// vacated room, so no member list for it), then User/update plus
	// the new room's member list for the join.
	req.Equal([]string{
		domain.EventUserUpdate,
		domain.EventUserUpdate, domain.EventRoomUsers,
	}, names(da.events(t)))

	// Member of the target room sees the new member list.
	req.Equal([]string{domain.EventRoomUsers}, names(db.events(t)))

	// The vacated room is gone.
	_, ok := e.Room("red").Snapshot()
	req.False(ok)
}

func TestRoomUpdateBroadcastWithAttribution(t *testing.T) {
	req := require.New(t)
	e := New()
	da, db := &fakeDuplex{}, &fakeDuplex{}
	a := e.Create("alice", da)
	b := e.Create("bob", db)
	req.NoError(a.JoinRoom("movie"))
	req.NoError(b.JoinRoom("movie"))
	da.reset()
	db.reset()

	room := e.Room("movie")
	room.SetLastUpdatedBy(a.Subject())
	req.Zero(da.count(), "attribution alone must not broadcast")

	room.SetTime(42)

	for _, d := range []*fakeDuplex{da, db} {
		events := d.events(t)
		req.Len(events, 1)
		req.Equal(domain.EventRoomUpdate, events[0].Event)
		req.Equal(domain.SubjectID("alice"), events[0].Subject)
		req.Equal(map[string]any{"time": float64(42)}, events[0].Data)
	}

	// Same value again: no notification.
	da.reset()
	db.reset()
	room.SetTime(42)
	room.SetPlaying(false)
	room.SetPlaylistIndex(0)
	req.Zero(da.count())
	req.Zero(db.count())
}

func TestPlaylistCompareAndSetIsElementWise(t *testing.T) {
	req := require.New(t)
	e := New()
	d := &fakeDuplex{}
	a := e.Create("alice", d)
	req.NoError(a.JoinRoom("movie"))
	d.reset()

	room := e.Room("movie")
	playlist := []domain.PlaylistItem{{FileName: "one.mkv", FileSize: 1}, {FileName: "two.mkv", FileSize: 2}}
	room.SetPlaylist(playlist)
	req.Equal(1, d.count())

	// An equal playlist in a different backing array is still a no-op.
	room.SetPlaylist([]domain.PlaylistItem{{FileName: "one.mkv", FileSize: 1}, {FileName: "two.mkv", FileSize: 2}})
	req.Equal(1, d.count())

	room.SetPlaylist(playlist[:1])
	req.Equal(2, d.count())
}

func TestRoomDestroyBulkDetaches(t *testing.T) {
	req := require.New(t)
	e := New()
	da, db := &fakeDuplex{}, &fakeDuplex{}
	a := e.Create("alice", da)
	b := e.Create("bob", db)
	req.NoError(a.JoinRoom("movie"))
	req.NoError(b.JoinRoom("movie"))
	da.reset()
	db.reset()

	req.True(e.Room("movie").Destroy())
	req.False(e.Room("movie").Destroy())

	// Bulk detach: no per-user leave broadcasts.
	req.Zero(da.count())
	req.Zero(db.count())

	userA, ok := a.User()
	req.True(ok)
	req.Empty(userA.Room)
	userB, ok := b.User()
	req.True(ok)
	req.Empty(userB.Room)
}

func TestOperationsOnUnknownSubject(t *testing.T) {
	req := require.New(t)
	e := New()

	req.Nil(e.Select("ghost"))
	req.ErrorIs(e.Room("movie").Join("ghost"), ErrNotConnected)

	conn := e.Create("alice", &fakeDuplex{})
	req.True(conn.Destroy(1000))
	req.ErrorIs(conn.SetNickname("al"), ErrNotConnected)
	req.ErrorIs(conn.SetTime(1), ErrNotConnected)
	req.ErrorIs(conn.JoinRoom("movie"), ErrNotConnected)
	req.ErrorIs(conn.LeaveRoom(), ErrNotConnected)
	_, ok := conn.User()
	req.False(ok)
}

func TestRoomSideJoinLeave(t *testing.T) {
	req := require.New(t)
	e := New()
	a := e.Create("alice", &fakeDuplex{})
	e.Create("bob", &fakeDuplex{})

	room := e.Room("movie")
	req.NoError(room.Join("alice"))
	req.NoError(room.Join("bob"))
	req.Len(room.Users(), 2)

	// Leave on a non-member is a no-op.
	req.NoError(e.Room("other").Leave("alice"))
	userA, _ := a.User()
	req.Equal(domain.RoomID("movie"), userA.Room)

	req.NoError(room.Leave("alice"))
	req.NoError(room.Leave("bob"))
	req.True(room.IsEmpty())
	_, ok := room.Snapshot()
	req.False(ok)
}
