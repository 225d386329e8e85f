package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Маршруты, требующие API-ключ
	protected := api.Group("")
	protected.Use(APIKeyAuthMiddleware(h.cfg, h.logger))
	{
		protected.POST("/analyze", h.analyze)
		protected.GET("/incidents", h.listIncidents)
		protected.GET("/incidents/:id", h.getIncident)
	}

	// Маршрут Health-check без аутентификации
	api.GET("/system/health", h.healthCheck)
}
