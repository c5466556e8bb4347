package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/metrics"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/services"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// ProfileHandler serves the business profile used by the template editor.
type ProfileHandler struct {
	profiles services.IProfileService
}

func NewProfileHandler(profiles services.IProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetTemplateData handles GET /api/users/email-template-data
func (h *ProfileHandler) GetTemplateData(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	profile, err := h.profiles.GetProfile(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err, "User not found")
		return
	}
	respond(c, http.StatusOK, profile)
}

// UpdateProfile handles PUT /api/users/profile
func (h *ProfileHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var p templating.Profile
	if !bindJSON(c, &p) {
		return
	}
	if p.Email != "" && !intake.ValidEmail(p.Email) {
		failFields(c, "Please fix the highlighted fields", map[string]string{"email": "Please enter a valid email address"})
		return
	}
	updated, err := h.profiles.UpdateProfile(c.Request.Context(), userID, p)
	if err != nil {
		handleError(c, err, "User not found")
		return
	}
	respond(c, http.StatusOK, updated)
}

// TemplateHandler handles the email template endpoints.
type TemplateHandler struct {
	templates services.IEmailTemplateService
	queue     services.IJobQueue
}

func NewTemplateHandler(templates services.IEmailTemplateService, queue services.IJobQueue) *TemplateHandler {
	return &TemplateHandler{templates: templates, queue: queue}
}

// List handles GET /api/email-templates?type=
func (h *TemplateHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var t templating.TemplateType
	if raw := c.Query("type"); raw != "" {
		parsed, err := templating.ParseType(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		t = parsed
	}
	templates, err := h.templates.List(c.Request.Context(), userID, t)
	if err != nil {
		handleError(c, err, "Templates not found")
		return
	}
	respond(c, http.StatusOK, templates)
}

// Get handles GET /api/email-templates/:id
func (h *TemplateHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "template")
	if !ok {
		return
	}
	template, err := h.templates.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, err, "Template not found")
		return
	}
	respond(c, http.StatusOK, template)
}

// Create handles POST /api/email-templates
func (h *TemplateHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.TemplateInput
	if !bindJSON(c, &in) {
		return
	}
	template, err := h.templates.Create(c.Request.Context(), userID, in)
	metrics.TemplateSaves.WithLabelValues(string(in.Type), metrics.Outcome(err)).Inc()
	if err != nil {
		handleError(c, err, "Template not found")
		return
	}
	respond(c, http.StatusCreated, template)
}

// Update handles PUT /api/email-templates/:id
func (h *TemplateHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "template")
	if !ok {
		return
	}
	var in services.TemplateInput
	if !bindJSON(c, &in) {
		return
	}
	template, err := h.templates.Update(c.Request.Context(), userID, id, in)
	metrics.TemplateSaves.WithLabelValues(string(in.Type), metrics.Outcome(err)).Inc()
	if err != nil {
		handleError(c, err, "Template not found")
		return
	}
	respond(c, http.StatusOK, template)
}

// Delete handles DELETE /api/email-templates/:id
func (h *TemplateHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "template")
	if !ok {
		return
	}
	if err := h.templates.Delete(c.Request.Context(), userID, id); err != nil {
		handleError(c, err, "Template not found")
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id.Hex()})
}

// Preview handles POST /api/email-templates/preview. Clients asking for
// text/html get the document itself, everyone else the rendered parts.
func (h *TemplateHandler) Preview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.TemplateInput
	if !bindJSON(c, &in) {
		return
	}
	rendered, err := h.templates.Preview(c.Request.Context(), userID, in)
	if err != nil {
		handleError(c, err, "Template not found")
		return
	}
	if strings.Contains(c.GetHeader("Accept"), "text/html") {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(rendered.HTML))
		return
	}
	respond(c, http.StatusOK, rendered)
}

type sendRequest struct {
	To string `json:"to" binding:"required"`
}

// Send handles POST /api/email-templates/:id/send
func (h *TemplateHandler) Send(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "template")
	if !ok {
		return
	}
	var req sendRequest
	if !bindJSON(c, &req) {
		return
	}
	to := strings.TrimSpace(req.To)
	if !intake.ValidEmail(to) {
		failFields(c, "Please fix the highlighted fields", map[string]string{"to": "Please enter a valid email address"})
		return
	}

	template, err := h.templates.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, err, "Template not found")
		return
	}
	if !template.IsActive {
		fail(c, http.StatusConflict, "Template is not active")
		return
	}
	job := services.EmailJob{UserID: userID, Type: template.Type, To: to, Reference: template.ID.Hex()}
	if err := h.queue.EnqueueEmail(c.Request.Context(), job); err != nil {
		log.Printf("Failed to enqueue %s email for user %s: %v", template.Type, userID.Hex(), err)
		handleError(c, err, "")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "Email queued for delivery"})
}
