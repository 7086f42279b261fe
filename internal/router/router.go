package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/eduportal-backend/internal/config"
	"github.com/stemsi/eduportal-backend/internal/handler"
	"github.com/stemsi/eduportal-backend/internal/middleware"
	"github.com/stemsi/eduportal-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Account *handler.AccountHandler
	Health  *handler.HealthHandler
}

// SetupRouter configures the Gin engine. Access control runs globally so it
// also covers /api paths that have no Gin route.
func SetupRouter(
	cfg *config.Config,
	log zerolog.Logger,
	access middleware.AccessConfig,
	handlers *Handlers,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.HeaderPreviewRole,
	}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.AccessControl(access))

	router.GET("/health", handlers.Health.Health)

	api := router.Group("/api")
	{
		api.GET("/me", handlers.Account.Me)
		api.GET("/roles", handlers.Account.ListRoles)
		api.GET("/permissions", handlers.Account.ListPermissions)
	}

	router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	})

	return router
}
