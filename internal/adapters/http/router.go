// Package http exposes the REST surface: account management, history,
// group lifecycle and uploads. Real-time traffic goes over /ws.
package http

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Lovsan/chatterbox/internal/adapters/ws"
	"github.com/Lovsan/chatterbox/internal/app"
	"github.com/Lovsan/chatterbox/internal/auth"
	"github.com/Lovsan/chatterbox/internal/config"
	"github.com/Lovsan/chatterbox/internal/storage"
)

type Deps struct {
	Auth        *auth.Service
	Coord       *app.Coordinator
	Users       storage.UserStore
	Messages    storage.MessageStore
	Groups      storage.GroupStore
	Attachments storage.AttachmentStore
	WS          *ws.Controller
}

func SetupRouter(ctx context.Context, cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	h := &handlers{deps: deps, cfg: cfg}

	r.Static("/static", cfg.StaticPath)
	r.Static("/uploads", cfg.UploadsDir)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	r.POST("/register", h.register)
	r.POST("/login", h.login)

	api := r.Group("/api")
	api.Use(auth.Middleware(deps.Auth))

	api.GET("/users/search", h.searchUsers)
	api.GET("/messages", h.directHistory)

	api.POST("/groups", h.createGroup)
	api.POST("/groups/join", h.joinGroup)
	api.GET("/groups", h.listGroups)
	api.POST("/groups/:id/leave", h.leaveGroup)
	api.GET("/groups/:id/messages", h.groupHistory)

	api.POST("/uploads", h.upload)

	api.GET("/ws", func(c *gin.Context) {
		deps.WS.Handle(ctx, c)
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	return r
}
