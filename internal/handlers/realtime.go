package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/charlesng35/sosrelay/internal/auth"
	"github.com/charlesng35/sosrelay/internal/middleware"
	"github.com/charlesng35/sosrelay/internal/realtime"
	"github.com/charlesng35/sosrelay/pkg/errors"
	"github.com/charlesng35/sosrelay/pkg/response"
)

// RealtimeHandler upgrades authenticated requests into alert stream subscriptions.
type RealtimeHandler struct {
	hub     *realtime.Hub
	jwt     *iauth.JWTService
	allowed map[string]struct{}
}

// NewRealtimeHandler constructs a RealtimeHandler. When streams is empty any stream may be joined.
func NewRealtimeHandler(hub *realtime.Hub, jwt *iauth.JWTService, streams ...string) *RealtimeHandler {
	allowed := make(map[string]struct{}, len(streams))
	for _, stream := range realtime.ParseStreams(streams...) {
		allowed[stream] = struct{}{}
	}
	return &RealtimeHandler{hub: hub, jwt: jwt, allowed: allowed}
}

// GET /api/realtime?token=...&streams=emergency_alerts
//
// Browsers cannot attach headers to websocket upgrades, so the token query parameter is
// preferred over the Authorization header.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	if h.jwt == nil || h.hub == nil {
		response.Error(c, errors.ErrNotFound)
		return
	}

	token := firstNonEmpty(c.Query("token"), c.Query("access_token"))
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		response.Error(c, errors.ErrUnauthorized)
		return
	}

	claims, err := h.jwt.ValidateAccessToken(token)
	if err != nil {
		response.Error(c, errors.ErrUnauthorized)
		return
	}
	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		response.Error(c, errors.ErrForbidden)
		return
	}

	streams := requestedStreams(c)
	if len(streams) == 0 {
		streams = []string{realtime.StreamEmergencyAlerts}
	}

	var allowed map[string]struct{}
	if len(h.allowed) > 0 {
		for _, stream := range streams {
			if _, ok := h.allowed[stream]; !ok {
				response.Error(c, errors.ErrNotFound)
				return
			}
		}
		allowed = h.allowed
	}

	h.hub.Serve(userID, streams, allowed, c.Writer, c.Request)
}

// requestedStreams merges repeated stream parameters and the comma separated streams list.
func requestedStreams(c *gin.Context) []string {
	streams := c.QueryArray("stream")
	if raw := c.Query("streams"); raw != "" {
		streams = append(streams, strings.Split(raw, ",")...)
	}
	return realtime.ParseStreams(streams...)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}
