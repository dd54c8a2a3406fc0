package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	// Прием отчетов
	api.POST("/reports", h.withAPIKey(h.createReport)...)

	// Инциденты
	incidents := api.Group("/incidents")
	{
		incidents.GET("", h.listIncidents)
		incidents.GET("/:id", h.getIncident)
		incidents.DELETE("/:id", h.withAPIKey(h.dismissIncident)...)
	}

	// Тревоги с прогнозом риска
	api.GET("/alerts", h.listAlerts)

	// Поток обновлений инцидентов (SSE)
	api.GET("/realtime", h.streamIncidents)

	// Маршрут Health-check
	api.GET("/system/health", h.healthCheck)
}

// withAPIKey добавляет проверку API-ключа, если ключи заданы в конфигурации
func (h *Handler) withAPIKey(handler gin.HandlerFunc) []gin.HandlerFunc {
	if len(h.cfg.APIKeys) == 0 {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{APIKeyAuthMiddleware(h.cfg.APIKeys, h.logger), handler}
}
