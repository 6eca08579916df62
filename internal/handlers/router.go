package handlers

import (
	"github.com/gin-gonic/gin"
)

// Router handles HTTP routing setup
type Router struct {
	dropletHandler *DropletHandler
	healthHandler  *HealthHandler
}

// NewRouter creates a new Router instance with all handlers
func NewRouter(dropletHandler *DropletHandler, healthHandler *HealthHandler) *Router {
	return &Router{
		dropletHandler: dropletHandler,
		healthHandler:  healthHandler,
	}
}

// GetDropletHandler returns the droplet handler for external access
func (r *Router) GetDropletHandler() *DropletHandler {
	return r.dropletHandler
}

// SetupRoutes configures all API routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	// API v1 routes
	api := engine.Group("/api")
	{
		// Droplet endpoints
		api.GET("/droplet/:id", r.dropletHandler.GetDroplet)
		api.POST("/droplet/build-create", r.dropletHandler.BuildCreate)
		api.POST("/droplet/build-claim", r.dropletHandler.BuildClaim)
		api.POST("/droplet/created", r.dropletHandler.ParseCreated)
		api.POST("/droplet/rejection", r.dropletHandler.TranslateRejection)

		// Account endpoints
		api.GET("/history/:address", r.dropletHandler.GetHistory)

		// Platform endpoints
		api.GET("/stats", r.dropletHandler.GetStats)
	}
}

// SetupHealthRoutes configures health check routes
func (r *Router) SetupHealthRoutes(engine *gin.Engine) {
	// Health check endpoints
	health := engine.Group("/health")
	{
		health.GET("", r.healthHandler.GetHealth)            // Overall health
		health.GET("/live", r.healthHandler.GetLiveness)     // Liveness probe
		health.GET("/ready", r.healthHandler.GetReadiness)   // Readiness probe
		health.GET("/db", r.healthHandler.GetDatabaseHealth) // Database health
	}
}
