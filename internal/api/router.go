package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ayase/picvault/internal/api/handler"
	"github.com/ayase/picvault/internal/api/middleware"
	"github.com/ayase/picvault/internal/config"
	"github.com/ayase/picvault/internal/logger"
	"github.com/ayase/picvault/internal/repository"
	"github.com/ayase/picvault/internal/service"
)

// Deps bundles everything the router's handlers need. Qdrant and Backup
// may be nil when the corresponding backends are not configured.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      *gorm.DB
	Query   *service.QueryService
	Sync    *service.SyncService
	Backup  *service.BackupService
	Assets  *repository.AssetRepository
	Tags    *repository.TagRepository
	Vectors *repository.VectorRepository
	Qdrant  *repository.QdrantRepository
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps) *gin.Engine {
	switch deps.Config.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  deps.Config.Server.CORS.AllowedOrigins,
		AllowAllOrigins: deps.Config.Server.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler(deps.DB)
	assetHandler := handler.NewAssetHandler(deps.Query, deps.Assets, deps.Vectors, deps.Qdrant, deps.Sync)
	imageHandler := handler.NewImageHandler(&deps.Config.Library)
	tagHandler := handler.NewTagHandler(deps.Tags)
	commandHandler := handler.NewCommandHandler(deps.Sync, deps.Backup)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Pipeline commands
		v1.POST("/sync", commandHandler.TriggerSync)
		v1.GET("/cmd/status", commandHandler.Status)
		v1.POST("/cmd/autotag", commandHandler.TriggerAutoTag)
		v1.POST("/cmd/autoscore", commandHandler.TriggerAutoScore)
		v1.POST("/cmd/reindex", commandHandler.TriggerReindex)
		v1.POST("/cmd/backup", commandHandler.TriggerBackup)

		// Assets
		v1.POST("/assets/search", assetHandler.Search)
		v1.POST("/assets/count", assetHandler.Count)
		v1.POST("/assets/count/:column", assetHandler.CountBy)
		v1.GET("/assets/:id", assetHandler.Get)
		v1.GET("/assets/:id/similar", assetHandler.Similar)
		v1.PUT("/assets/:id/score", assetHandler.UpdateScore)
		v1.PUT("/assets/:id/rating", assetHandler.UpdateRating)
		v1.PUT("/assets/:id/caption", assetHandler.UpdateCaption)
		v1.PUT("/assets/:id/source", assetHandler.UpdateSource)
		v1.DELETE("/assets", assetHandler.Delete)

		// Asset tag assignments
		v1.POST("/assets/:id/tags/:name", tagHandler.Attach)
		v1.DELETE("/assets/:id/tags/:name", tagHandler.Detach)

		// Images
		v1.GET("/images/original/*path", imageHandler.Original)
		v1.GET("/images/thumbnail/*path", imageHandler.Thumbnail)

		// Tag taxonomy
		v1.GET("/tags", tagHandler.ListTags)
		v1.POST("/tags", tagHandler.CreateTag)
		v1.GET("/tags/:name", tagHandler.GetTag)
		v1.PUT("/tags/:name", tagHandler.UpdateTag)
		v1.DELETE("/tags", tagHandler.DeleteTags)
		v1.GET("/tag-groups", tagHandler.ListGroups)
		v1.POST("/tag-groups", tagHandler.CreateGroup)
		v1.PUT("/tag-groups/:id", tagHandler.UpdateGroup)
		v1.DELETE("/tag-groups/:id", tagHandler.DeleteGroup)

		// Library structure and statistics
		v1.GET("/folders", assetHandler.Folders)
		v1.GET("/stats", assetHandler.Stats)
	}

	return r
}
