package domain

// PlaylistItem describes one entry of a room playlist.
type PlaylistItem struct {
	FileName string `json:"file_name" binding:"required"`
	FileSize int64  `json:"file_size"`
}

// Room exists only while at least one User references it.
// LastUpdatedBy is write-only attribution metadata: it never triggers a
// notification by itself and is excluded from the public snapshot.
type Room struct {
	ID            RoomID
	Time          int64
	Playing       bool
	Playlist      []PlaylistItem
	PlaylistIndex int
	LastUpdatedBy SubjectID
}

// RoomInfo is the public snapshot of a Room.
type RoomInfo struct {
	ID            RoomID         `json:"id"`
	Time          int64          `json:"time"`
	Playing       bool           `json:"playing"`
	Playlist      []PlaylistItem `json:"playlist"`
	PlaylistIndex int            `json:"playlist_index"`
}
