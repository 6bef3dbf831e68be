package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/sosrelay/internal/database"
	"github.com/charlesng35/sosrelay/pkg/errors"
	"github.com/charlesng35/sosrelay/pkg/logger"
	"github.com/charlesng35/sosrelay/pkg/response"
)

// Health reports readiness, including database reachability when db is set.
func Health(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := database.Ping(db); err != nil {
				logger.WithModule("health").Warn("database ping failed", zap.Error(err))
				response.Error(c, errors.ErrUnavailable.WithMessage("database unavailable"))
				return
			}
		}
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	}
}
