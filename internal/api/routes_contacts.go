package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sosrelay/internal/handlers"
)

func registerContactRoutes(api *gin.RouterGroup, handler *handlers.ContactHandler) {
	group := api.Group("/contacts")
	{
		group.GET("", handler.List)
		group.POST("", handler.Create)
		group.DELETE("/:id", handler.Delete)
	}
}
