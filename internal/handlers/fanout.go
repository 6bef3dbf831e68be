package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/charlesng35/sosrelay/internal/fanout"
	"github.com/charlesng35/sosrelay/internal/services"
	apperrors "github.com/charlesng35/sosrelay/pkg/errors"
	"github.com/charlesng35/sosrelay/pkg/logger"
)

// FanoutSchemaVersion identifies the shape of the fan-out response body.
const FanoutSchemaVersion = 2

// FanoutHandler exposes the notification fan-out entry point used by clients after an alert
// has been stored.
type FanoutHandler struct {
	notifier services.Notifier
	alerts   AlertOwnership
}

// AlertOwnership confirms that an end user may notify contacts about an alert.
type AlertOwnership interface {
	CheckOwner(ctx context.Context, userID, alertID string) error
}

type fanoutPayload struct {
	AlertID       string                `json:"alertId"`
	Contacts      *[]fanout.Contact     `json:"contacts"`
	EmergencyType string                `json:"emergencyType"`
	Situation     string                `json:"situation"`
	Location      *fanout.Location      `json:"location"`
	EvidenceFiles []fanout.EvidenceFile `json:"evidenceFiles"`
}

type fanoutResponse struct {
	SchemaVersion int `json:"schemaVersion"`
	fanout.Result
}

// NewFanoutHandler constructs a FanoutHandler. When alerts is set, end-user callers may only
// fan out alerts they own; service tokens are not checked.
func NewFanoutHandler(notifier services.Notifier, alerts AlertOwnership) *FanoutHandler {
	return &FanoutHandler{notifier: notifier, alerts: alerts}
}

// Send notifies every contact in the payload. Malformed payloads yield 500 {error}; a missing
// alert id or an empty contact list is a valid no-op.
func (h *FanoutHandler) Send(c *gin.Context) {
	var payload fanoutPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logger.WithModule("fanout").Warn("rejected fan-out payload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid request body"})
		return
	}
	if payload.Contacts == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "contacts are required"})
		return
	}
	if payload.Location == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "location is required"})
		return
	}

	if !h.authorize(c, payload.AlertID, len(*payload.Contacts)) {
		return
	}

	result := h.notifier.Notify(requestContext(c), fanout.Request{
		AlertID:       payload.AlertID,
		Contacts:      *payload.Contacts,
		EmergencyType: payload.EmergencyType,
		Situation:     payload.Situation,
		Location:      *payload.Location,
		EvidenceFiles: payload.EvidenceFiles,
	})

	c.JSON(http.StatusOK, fanoutResponse{
		SchemaVersion: FanoutSchemaVersion,
		Result:        result,
	})
}

func (h *FanoutHandler) authorize(c *gin.Context, alertID string, contacts int) bool {
	userID := currentUserID(c)
	alertID = strings.TrimSpace(alertID)
	if h.alerts == nil || userID == "" || alertID == "" || contacts == 0 {
		return true
	}

	err := h.alerts.CheckOwner(requestContext(c), userID, alertID)
	switch {
	case err == nil:
		return true
	case errors.Is(err, apperrors.ErrNotFound):
		logger.WithModule("fanout").Warn("fan-out refused for unowned alert",
			zap.String("user_id", userID),
			zap.String("alert_id", alertID),
		)
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
	default:
		logger.WithModule("fanout").Error("fan-out ownership check failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to verify alert"})
	}
	return false
}
