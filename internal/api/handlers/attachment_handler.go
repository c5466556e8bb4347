package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/services"
)

// AttachmentHandler hands out upload slots and confirms uploads. File bodies
// go straight to object storage and never pass through the API.
type AttachmentHandler struct {
	attachments services.IAttachmentService
}

func NewAttachmentHandler(attachments services.IAttachmentService) *AttachmentHandler {
	return &AttachmentHandler{attachments: attachments}
}

type uploadURLRequest struct {
	Filename string `json:"filename" binding:"required"`
	MimeType string `json:"mimeType" binding:"required"`
	Size     int64  `json:"size" binding:"required,gt=0"`
}

type uploadURLResponse struct {
	Attachment *models.Attachment `json:"attachment"`
	UploadURL  string             `json:"uploadUrl"`
}

// CreateUploadURL handles POST /api/attachments/upload-url
func (h *AttachmentHandler) CreateUploadURL(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req uploadURLRequest
	if !bindJSON(c, &req) {
		return
	}
	att, uploadURL, err := h.attachments.CreateUploadURL(c.Request.Context(), userID, strings.TrimSpace(req.Filename), req.MimeType, req.Size)
	if err != nil {
		handleError(c, err, "Attachment not found")
		return
	}
	respond(c, http.StatusCreated, uploadURLResponse{Attachment: att, UploadURL: uploadURL})
}

// Confirm handles POST /api/attachments/:id/confirm
func (h *AttachmentHandler) Confirm(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "attachment")
	if !ok {
		return
	}
	att, err := h.attachments.Confirm(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, err, "Attachment not found")
		return
	}
	respond(c, http.StatusOK, att)
}

// Delete handles DELETE /api/attachments/:id
func (h *AttachmentHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "attachment")
	if !ok {
		return
	}
	if err := h.attachments.Delete(c.Request.Context(), userID, id); err != nil {
		handleError(c, err, "Attachment not found")
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id.Hex()})
}
