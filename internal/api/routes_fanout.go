package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sosrelay/internal/handlers"
	"github.com/charlesng35/sosrelay/internal/middleware"
)

// registerFanoutRoutes mounts the browser-callable fan-out function. Service tokens are accepted.
func registerFanoutRoutes(r *gin.Engine, handler *handlers.FanoutHandler, requireAuth gin.HandlerFunc) {
	functions := r.Group("/functions/v1", middleware.CORS())
	functions.OPTIONS("/send-emergency-email", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	functions.POST("/send-emergency-email", requireAuth, handler.Send)
}
