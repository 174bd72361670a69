package handlers

import (
	"tower_monitoring/internal/logger"
	"tower_monitoring/internal/metrics"
	"tower_monitoring/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "tower_monitoring/docs"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	metrics  *metrics.Metrics
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies. m and log may be nil.
func NewHandler(services *service.Service, m *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{services: services, metrics: m, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	// Auth endpoints
	h.registerAuthRoutes(router)

	// Versioned API endpoints (protected)
	h.registerAPIRoutes(router)

	// Alert relay (HTTP upgrade) on the same port
	router.GET("/ws/alerts", h.wsAlerts)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.operatorIdentity)
	{
		api.POST("/readings/:kind", h.saveReading)
		api.POST("/sync/:table", h.syncTable)
		h.registerTowerRoutes(api)
		h.registerSchedulerRoutes(api)
	}
}

func (h *Handler) registerTowerRoutes(api *gin.RouterGroup) {
	towers := api.Group("/towers")
	{
		towers.GET("", h.listTowers)
		towers.POST("", h.createTower)
		towers.GET("/:id", h.getTower)
		// Body example: {"estado":"Activa"}
		towers.PATCH("/:id/state", h.updateTowerState)
		towers.GET("/:id/latest", h.latestReading)
	}
}

func (h *Handler) registerSchedulerRoutes(api *gin.RouterGroup) {
	sched := api.Group("/scheduler")
	{
		sched.POST("/start", h.startScheduler)
		sched.POST("/stop", h.stopScheduler)
		sched.POST("/towers/:id", h.startTowerWorker)
		sched.GET("/workers", h.listWorkers)
	}
}
