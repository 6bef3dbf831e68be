package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sosrelay/internal/handlers"
)

func registerAlertRoutes(api *gin.RouterGroup, handler *handlers.AlertHandler) {
	group := api.Group("/alerts")
	{
		group.POST("", handler.Submit)
		group.GET("", handler.List)
		group.GET("/active", handler.ListActive)
		group.GET("/:id", handler.Get)
		group.POST("/:id/resolve", handler.Resolve)
		group.GET("/:id/notifications", handler.Notifications)
	}
}
