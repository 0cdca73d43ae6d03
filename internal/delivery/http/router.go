package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Harsh-BH/certqueue/internal/delivery/http/middleware"
)

// RouterConfig holds the router's limits.
type RouterConfig struct {
	RateLimitPerMin int
	MaxUploadBytes  int64
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(
	jobs *JobHandler,
	refs *ReferenceHandler,
	health *HealthHandler,
	cfg RouterConfig,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger(logger))

	// Unauthenticated and not rate limited
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", health.Health)
	router.GET("/mock-igi-api/verify/:cert", refs.Verify)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.RequireOwner())
	v1.Use(middleware.RateLimiter(cfg.RateLimitPerMin))
	{
		v1.GET("/references/verify/:cert", refs.Verify)

		k := v1.Group("/:kind")
		k.POST("/upload", middleware.BodySizeLimit(cfg.MaxUploadBytes), jobs.Upload)
		k.GET("/jobs", jobs.List)
		k.GET("/status/:id", jobs.Status)
		k.GET("/download/:id", jobs.Download)
		k.DELETE("/jobs/:id", jobs.Delete)
	}

	return router
}
