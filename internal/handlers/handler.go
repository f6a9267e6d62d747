package handlers

import (
	"smoke_controller/internal/logger"
	"smoke_controller/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	origins  []string
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	router.GET("/ws", h.requireOperator, h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.requireOperator)
	{
		api.GET("/telemetry", h.getTelemetry)
		// Body example: {"temp_c":110}
		api.PUT("/target", h.setTarget)
		h.registerControlRoutes(api)
		h.registerProbeRoutes(api)
		api.GET("/events", h.getEvents)
		h.registerSimRoutes(api)
	}
}

func (h *Handler) registerControlRoutes(api *gin.RouterGroup) {
	control := api.Group("/control")
	{
		control.POST("/enable", h.enableControl)
		control.POST("/disable", h.disableControl)
	}
}

func (h *Handler) registerProbeRoutes(api *gin.RouterGroup) {
	probes := api.Group("/probes/:id")
	{
		probes.POST("/enable", h.enableProbe)
		probes.POST("/disable", h.disableProbe)
		probes.GET("/history", h.getProbeHistory)
	}
}
