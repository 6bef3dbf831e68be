package handlers

import (
	stdErrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/sosrelay/internal/evidence"
	"github.com/charlesng35/sosrelay/pkg/errors"
	"github.com/charlesng35/sosrelay/pkg/response"
)

const (
	// DefaultMaxEvidenceBytes caps a single evidence upload.
	DefaultMaxEvidenceBytes int64 = 50 << 20

	multipartOverhead int64 = 1 << 20
	multipartMemory   int64 = 8 << 20
)

var errPayloadTooLarge = errors.ErrPayloadTooLarge.WithMessage("file exceeds the upload limit")

// EvidenceHandler uploads and removes alert evidence media.
type EvidenceHandler struct {
	store    *evidence.Store
	maxBytes int64
}

type deleteEvidenceRequest struct {
	Type string `json:"type" validate:"required,oneof=photo video audio"`
	Path string `json:"path" validate:"required,max=512"`
}

// NewEvidenceHandler constructs an EvidenceHandler. maxBytes <= 0 selects the default limit.
func NewEvidenceHandler(store *evidence.Store, maxBytes int64) *EvidenceHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxEvidenceBytes
	}
	return &EvidenceHandler{store: store, maxBytes: maxBytes}
}

// POST /api/evidence (multipart: type, file)
func (h *EvidenceHandler) Upload(c *gin.Context) {
	if !h.store.Enabled() {
		response.Error(c, errors.ErrFeatureDisabled)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartOverhead)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if stdErrors.As(err, &tooLarge) {
			response.Error(c, errPayloadTooLarge)
			return
		}
		response.Error(c, errors.NewBadRequest("multipart form is required"))
		return
	}

	kind, err := evidence.ParseKind(c.PostForm("type"))
	if err != nil {
		response.Error(c, err)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errors.NewBadRequest("file is required"))
		return
	}
	if header.Size > h.maxBytes {
		response.Error(c, errPayloadTooLarge)
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, errors.NewBadRequest("file could not be read"))
		return
	}
	defer file.Close()

	stored, err := h.store.Upload(requestContext(c), currentUserID(c), kind, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, stored)
}

// DELETE /api/evidence
func (h *EvidenceHandler) Delete(c *gin.Context) {
	if !h.store.Enabled() {
		response.Error(c, errors.ErrFeatureDisabled)
		return
	}

	var req deleteEvidenceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	if !evidence.Owns(currentUserID(c), req.Path) {
		response.Error(c, errors.ErrNotFound)
		return
	}

	kind, err := evidence.ParseKind(req.Type)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.store.Delete(requestContext(c), kind, strings.TrimSpace(req.Path)); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
