package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "epdparser/docs"
	"epdparser/internal/handler"
	"epdparser/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Health   *handler.HealthHandler
	Document *handler.DocumentHandler
	Parse    *handler.ParseHandler
	Stats    *handler.StatsHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(h Handlers, allowedOrigins []string, maxUploadBytes int64, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	// Multipart parts above this size spill to temp files.
	r.MaxMultipartMemory = maxUploadBytes

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")

	v1.POST("/parse", h.Parse.Parse)
	v1.GET("/stats", h.Stats.GetStats)

	docs := v1.Group("/documents")
	docs.POST("", h.Document.Upload)
	docs.GET("", h.Document.List)
	docs.GET("/export", h.Document.Export)
	docs.GET("/:id", h.Document.GetByID)
	docs.PATCH("/:id", h.Document.Edit)
	docs.GET("/:id/source", h.Document.Source)
	docs.POST("/:id/reparse", h.Document.Reparse)
	docs.DELETE("/:id", h.Document.Delete)

	return r
}
