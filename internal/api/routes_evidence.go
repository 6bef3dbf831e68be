package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sosrelay/internal/handlers"
)

func registerEvidenceRoutes(api *gin.RouterGroup, handler *handlers.EvidenceHandler) {
	api.POST("/evidence", handler.Upload)
	api.DELETE("/evidence", handler.Delete)
}
