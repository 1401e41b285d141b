package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/alimgiray/ghmirror/internal/middleware"
)

// Handlers groups the route handlers served by the API
type Handlers struct {
	Health   *HealthHandler
	User     *UserHandler
	Target   *TargetHandler
	NotFound *NotFoundHandler
}

// SetupRouter registers every route. apiToken guards the write endpoints under /targets.
func SetupRouter(h *Handlers, apiToken string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())

	router.GET("/health", h.Health.Health)

	users := router.Group("/users/:user")
	{
		users.GET("", h.User.GetUser)
		users.GET("/contributions", h.User.GetContributions)
		users.GET("/repos/:owner/:repo", h.User.GetAggregate)
		users.GET("/repos/:owner/:repo/summary", h.User.GetSummary)
		users.GET("/repos/:owner/:repo/export.xlsx", h.User.ExportAggregate)
	}

	targets := router.Group("/targets")
	{
		targets.GET("", h.Target.ListTargets)
		targets.GET("/:owner/:repo/runs", h.Target.ListRuns)

		admin := targets.Group("", middleware.TokenRequired(apiToken))
		admin.POST("", h.Target.TrackTarget)
		admin.POST("/:owner/:repo/sync", h.Target.SyncTarget)
		admin.POST("/:owner/:repo/seed", h.Target.SeedContributors)
	}

	router.NoRoute(h.NotFound.NotFound)
	return router
}
