package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kbrose/deertracker/internal/api/handlers"
	"github.com/kbrose/deertracker/internal/api/ws"
	"github.com/kbrose/deertracker/internal/auth"
	"github.com/kbrose/deertracker/internal/queue"
	"github.com/kbrose/deertracker/internal/storage"
)

type RouterConfig struct {
	APIKey   string
	DB       *storage.PostgresStore
	Crops    *storage.MinIOStore
	Producer *queue.Producer
	Hub      *ws.Hub
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.Crops, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// Live detections
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Cameras
	cameraH := handlers.NewCameraHandler(cfg.DB)
	v1.POST("/cameras", cameraH.Register)
	v1.GET("/cameras", cameraH.List)

	// Review
	reviewH := handlers.NewReviewHandler(cfg.DB, cfg.Crops)
	v1.GET("/review", reviewH.Pending)
	v1.POST("/review/commit", reviewH.Commit)
	v1.GET("/review/:id/crop", reviewH.Crop)

	return r
}
