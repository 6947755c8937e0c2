package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wingsum93/dropit-fetcher/internal/api/handler"
	"github.com/wingsum93/dropit-fetcher/internal/api/middleware"
	"github.com/wingsum93/dropit-fetcher/internal/config"
	"github.com/wingsum93/dropit-fetcher/internal/logger"
	"github.com/wingsum93/dropit-fetcher/internal/storage"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(store storage.Storage, log *logger.Logger, cfg *config.ServerConfig) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	syncHandler := handler.NewSyncHandler(store)
	snapshotHandler := handler.NewSnapshotHandler(store)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Sync ledger
		v1.GET("/syncs", syncHandler.ListSyncs)
		v1.GET("/syncs/:id", syncHandler.GetSync)
		v1.GET("/syncs/:id/jobs", syncHandler.ListJobs)

		// Snapshots
		v1.GET("/products/:id/snapshot", snapshotHandler.GetProductSnapshot)

		// Stats
		v1.GET("/stats", snapshotHandler.GetStats)
	}

	return r
}
