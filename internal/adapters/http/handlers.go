package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dvesely/syncroom/internal/adapters/ws"
	"github.com/dvesely/syncroom/internal/app"
	"github.com/dvesely/syncroom/internal/auth"
	"github.com/dvesely/syncroom/internal/domain"
)

// Conflict bodies for requests against missing state.
const (
	bodyNotConnected = "client_not_connected"
	bodyLonely       = "client_is_lonely"
)

type Handlers struct {
	Engine *app.Engine
	Auth   *auth.Service
	WS     *ws.Controller
}

// connection resolves the bearer caller to a registered connection, or
// writes the appropriate failure.
func (h *Handlers) connection(c *gin.Context) *app.Connection {
	if !requireBearer(c) {
		return nil
	}
	conn := h.Engine.Select(domain.SubjectID(subjectOf(c)))
	if conn == nil {
		c.String(http.StatusConflict, bodyNotConnected)
		return nil
	}
	return conn
}

// GetAuthorization exchanges basic credentials for a bearer token.
func (h *Handlers) GetAuthorization(c *gin.Context) {
	if !requireBasic(c) {
		return
	}
	c.Header("authorization", h.Auth.IssueToken(subjectOf(c)))
	c.Status(http.StatusOK)
}

func (h *Handlers) PostRoomJoin(c *gin.Context) {
	conn := h.connection(c)
	if conn == nil {
		return
	}
	if err := conn.JoinRoom(domain.RoomID(c.Param("room"))); err != nil {
		c.String(http.StatusConflict, bodyNotConnected)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handlers) GetRoom(c *gin.Context) {
	conn := h.connection(c)
	if conn == nil {
		return
	}
	room, ok := conn.Room()
	if !ok {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, room)
}

type roomUpdate struct {
	Time          *int64                `json:"time"`
	Playing       *bool                 `json:"playing"`
	Playlist      []domain.PlaylistItem `json:"playlist" binding:"omitempty,dive"`
	PlaylistIndex *int                  `json:"playlist_index"`
}

func (h *Handlers) PutRoom(c *gin.Context) {
	conn := h.connection(c)
	if conn == nil {
		return
	}
	info, ok := conn.Room()
	if !ok {
		c.String(http.StatusConflict, bodyLonely)
		return
	}
	var body roomUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, "bad_request")
		return
	}

	room := h.Engine.Room(info.ID)
	room.SetLastUpdatedBy(conn.Subject())
	if body.Time != nil {
		room.SetTime(*body.Time)
	}
	if body.Playing != nil {
		room.SetPlaying(*body.Playing)
	}
	if body.Playlist != nil {
		room.SetPlaylist(body.Playlist)
	}
	if body.PlaylistIndex != nil {
		room.SetPlaylistIndex(*body.PlaylistIndex)
	}
	c.Status(http.StatusOK)
}

func (h *Handlers) DeleteRoom(c *gin.Context) {
	conn := h.connection(c)
	if conn == nil {
		return
	}
	if err := conn.LeaveRoom(); err != nil {
		c.String(http.StatusConflict, bodyNotConnected)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handlers) GetUsers(c *gin.Context) {
	conn := h.connection(c)
	if conn == nil {
		return
	}
	room, ok := conn.Room()
	if !ok {
		c.String(http.StatusConflict, bodyLonely)
		return
	}
	c.JSON(http.StatusOK, h.Engine.Room(room.ID).Users())
}

func (h *Handlers) PutNickname(c *gin.Context) {
	conn := h.connection(c)
	if conn == nil {
		return
	}
	var nickname string
	if err := c.ShouldBindJSON(&nickname); err != nil {
		c.String(http.StatusBadRequest, "bad_request")
		return
	}
	if err := conn.SetNickname(nickname); err != nil {
		c.String(http.StatusConflict, bodyNotConnected)
		return
	}
	c.Status(http.StatusOK)
}

func (h *Handlers) GetUser(c *gin.Context) {
	conn := h.connection(c)
	if conn == nil {
		return
	}
	user, ok := conn.User()
	if !ok {
		c.String(http.StatusConflict, bodyNotConnected)
		return
	}
	c.JSON(http.StatusOK, user)
}

type fileUpdate struct {
	Name string `json:"name" binding:"required"`
	Size int64  `json:"size"`
}

func (h *Handlers) PutFile(c *gin.Context) {
	conn := h.connection(c)
	if conn == nil {
		return
	}
	var body fileUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		c.String(http.StatusBadRequest, "bad_request")
		return
	}
	if err := conn.SetFile(body.Name, body.Size); err != nil {
		c.String(http.StatusConflict, bodyNotConnected)
		return
	}
	c.Status(http.StatusOK)
}

// GetWebsocket upgrades the request and binds the duplex to the
// caller's subject.
func (h *Handlers) GetWebsocket(c *gin.Context) {
	if !requireBearer(c) {
		return
	}
	h.WS.Handle(c, domain.SubjectID(subjectOf(c)))
}
