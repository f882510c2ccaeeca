// Package http is the transport gateway: it maps requests onto engine
// operations and engine state onto response payloads.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/dvesely/syncroom/internal/adapters/ws"
	"github.com/dvesely/syncroom/internal/app"
	"github.com/dvesely/syncroom/internal/auth"
)

// SetupRouter wires every endpoint under the versioned prefix. The
// version gate and credential resolution run in the middleware; scheme
// partitioning (basic-only vs bearer-only) is per handler.
func SetupRouter(authSvc *auth.Service, engine *app.Engine) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	h := &Handlers{
		Engine: engine,
		Auth:   authSvc,
		WS:     &ws.Controller{Engine: engine},
	}

	api := r.Group("/:version")
	api.Use(Authorization(authSvc))

	api.GET("/authorization", h.GetAuthorization)

	api.POST("/room/:room/join", h.PostRoomJoin)
	api.GET("/room", h.GetRoom)
	api.PUT("/room", h.PutRoom)
	api.DELETE("/room", h.DeleteRoom)
	api.GET("/users", h.GetUsers)

	api.PUT("/nickname", h.PutNickname)
	api.GET("/user", h.GetUser)
	api.PUT("/file", h.PutFile)

	api.GET("/websocket", h.GetWebsocket)

	return r
}
