package ws

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dvesely/syncroom/internal/app"
	"github.com/dvesely/syncroom/internal/domain"
)

var (
	ErrClosed       = errors.New("connection closed")
	ErrBackpressure = errors.New("backpressure")
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Controller upgrades requests and runs the per-connection loops.
type Controller struct {
	Engine *app.Engine
}

// Handle binds the upgraded connection to subject. A known subject is
// resumed (transport replaced, everything else kept), an unknown one
// is created.
func (ctl *Controller) Handle(c *gin.Context, subject domain.SubjectID) {
	sock, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.ws").Msg("ws upgrade")
		return
	}

	duplex := NewDuplexConn(sock)
	conn := ctl.Engine.Resume(subject, duplex)
	if conn == nil {
		conn = ctl.Engine.Create(subject, duplex)
	}

	go duplex.writePump()
	go ctl.readLoop(conn, duplex)
}

func (ctl *Controller) readLoop(conn *app.Connection, duplex *DuplexConn) {
	defer func() {
		// Only destroys the user if this duplex is still its current
		// transport; a reconnect's stale socket must not tear it down.
		ctl.Engine.Drop(conn.Subject(), duplex, websocket.CloseNormalClosure)
		duplex.Close(websocket.CloseNormalClosure)
	}()

	for {
		_, data, err := duplex.conn.ReadMessage()
		if err != nil {
			return
		}
		ctl.handleMessage(conn, data)
	}
}

// handleMessage dispatches one inbound frame. Frames that are not a
// JSON object, or that fail to parse, are dropped silently; unknown
// events are a forward-compatible no-op.
func (ctl *Controller) handleMessage(conn *app.Connection, data []byte) {
	var msg struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	switch msg.Event {
	case domain.EventTimeSet:
		var t float64
		if err := json.Unmarshal(msg.Data, &t); err != nil {
			return
		}
		if err := conn.SetTime(int64(math.Floor(t))); err != nil {
			log.Warn().Err(err).Str("module", "adapters.ws").Str("subject", string(conn.Subject())).Msg("time set")
		}
	}
}
