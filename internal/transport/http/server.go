package http

import (
	stdhttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tableside/community-server/internal/auth"
	"github.com/tableside/community-server/internal/config"
	"github.com/tableside/community-server/internal/core"
	"github.com/tableside/community-server/internal/store"
)

// NewServer builds the HTTP server: REST API under /api, realtime under /ws.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthHandler)

	api := NewAPIHandlers(authService, logger)
	community := NewCommunityHandlers(st, logger)

	router.POST("/api/register", api.Register)
	router.POST("/api/login", api.Login)

	authed := router.Group("/api")
	authed.Use(AuthMiddleware(authService, logger))
	{
		authed.GET("/users/search", community.SearchUsers)
		authed.GET("/listings", community.SearchListings)
		authed.POST("/listings", community.CreateListing)
		authed.GET("/menu-items", community.ListMenuItems)
		authed.POST("/menu-items", community.CreateMenuItem)
		authed.GET("/messages", community.ListMessages)
	}

	router.GET("/ws", gin.WrapH(NewWSHandler(hub, authService, st, cfg, logger)))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
