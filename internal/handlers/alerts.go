package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sosrelay/internal/services"
	"github.com/charlesng35/sosrelay/pkg/errors"
	"github.com/charlesng35/sosrelay/pkg/response"
)

// AlertHandler exposes alert submission, listing and resolution.
type AlertHandler struct {
	svc *services.AlertService
}

// NewAlertHandler constructs an AlertHandler.
func NewAlertHandler(svc *services.AlertService) *AlertHandler {
	return &AlertHandler{svc: svc}
}

// POST /api/alerts
func (h *AlertHandler) Submit(c *gin.Context) {
	var input services.SubmitAlertInput
	if err := c.ShouldBindJSON(&input); err != nil {
		response.Error(c, errors.NewBadRequest("invalid JSON payload"))
		return
	}

	result, err := h.svc.Submit(requestContext(c), currentUserID(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// GET /api/alerts/active
func (h *AlertHandler) ListActive(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 0)
	alerts, err := h.svc.ListActive(requestContext(c), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, alerts, &response.Meta{Limit: limit, Count: len(alerts)})
}

// GET /api/alerts
func (h *AlertHandler) List(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 0)
	offset := parseIntQuery(c, "offset", 0)
	alerts, err := h.svc.ListForUser(requestContext(c), currentUserID(c), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, alerts, &response.Meta{Limit: limit, Offset: offset, Count: len(alerts)})
}

// GET /api/alerts/:id
func (h *AlertHandler) Get(c *gin.Context) {
	alert, err := h.svc.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, alert)
}

// POST /api/alerts/:id/resolve
func (h *AlertHandler) Resolve(c *gin.Context) {
	alert, err := h.svc.Resolve(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, alert)
}

// GET /api/alerts/:id/notifications
func (h *AlertHandler) Notifications(c *gin.Context) {
	records, err := h.svc.Notifications(requestContext(c), currentUserID(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, records, &response.Meta{Count: len(records)})
}
