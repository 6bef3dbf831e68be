package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/sosrelay/internal/app"
	iauth "github.com/charlesng35/sosrelay/internal/auth"
	"github.com/charlesng35/sosrelay/internal/evidence"
	"github.com/charlesng35/sosrelay/internal/handlers"
	"github.com/charlesng35/sosrelay/internal/middleware"
	"github.com/charlesng35/sosrelay/internal/realtime"
	"github.com/charlesng35/sosrelay/internal/services"
)

// Dependencies are the long-lived services the HTTP layer routes to.
type Dependencies struct {
	DB        *gorm.DB
	JWT       *iauth.JWTService
	Hub       *realtime.Hub
	Notifier  services.Notifier
	Alerts    *services.AlertService
	Contacts  *services.ContactService
	Evidence  *evidence.Store
	RateStore middleware.RateStore
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(cfg *app.Config, deps Dependencies) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Notifier == nil || deps.Alerts == nil || deps.Contacts == nil {
		return nil, fmt.Errorf("notifier, alert and contact services must be provided")
	}
	if deps.RateStore == nil {
		deps.RateStore = middleware.NewMemoryRateStore()
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	if limit := cfg.Server.RateLimit; limit.Requests > 0 && limit.Window > 0 {
		r.Use(middleware.RateLimit(deps.RateStore, limit.Requests, limit.Window))
	}

	r.GET("/health", handlers.Health(deps.DB))
	if cfg.Monitoring.Prometheus.Enabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	requireAuth := middleware.Auth(deps.JWT)

	registerFanoutRoutes(r, handlers.NewFanoutHandler(deps.Notifier, deps.Alerts), requireAuth)

	api := r.Group("/api")
	registerRealtimeRoutes(api, handlers.NewRealtimeHandler(deps.Hub, deps.JWT, realtime.StreamEmergencyAlerts))

	protected := api.Group("", requireAuth, middleware.RequireUser())
	registerAlertRoutes(protected, handlers.NewAlertHandler(deps.Alerts))
	registerContactRoutes(protected, handlers.NewContactHandler(deps.Contacts))
	registerEvidenceRoutes(protected, handlers.NewEvidenceHandler(deps.Evidence, cfg.Storage.MaxUploadBytes))

	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
