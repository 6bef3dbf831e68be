package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sosrelay/internal/services"
	"github.com/charlesng35/sosrelay/pkg/response"
)

// ContactHandler manages the caller's personal contacts.
type ContactHandler struct {
	svc *services.ContactService
}

// NewContactHandler constructs a ContactHandler.
func NewContactHandler(svc *services.ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// GET /api/contacts
func (h *ContactHandler) List(c *gin.Context) {
	contacts, err := h.svc.List(requestContext(c), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, contacts, &response.Meta{Count: len(contacts)})
}

// POST /api/contacts
func (h *ContactHandler) Create(c *gin.Context) {
	var input services.CreateContactInput
	if !bindAndValidate(c, &input) {
		return
	}

	contact, err := h.svc.Create(requestContext(c), currentUserID(c), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, contact)
}

// DELETE /api/contacts/:id
func (h *ContactHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(requestContext(c), currentUserID(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
