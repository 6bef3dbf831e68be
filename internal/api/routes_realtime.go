package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sosrelay/internal/handlers"
)

// registerRealtimeRoutes mounts the websocket entry point. Browsers cannot set headers on
// websocket upgrades, so authentication happens inside the handler via the token query.
func registerRealtimeRoutes(api *gin.RouterGroup, handler *handlers.RealtimeHandler) {
	api.GET("/realtime", handler.Stream)
}
