package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/services"
)

// CRMHandler handles clients, projects and bookings.
type CRMHandler struct {
	clients  services.IClientService
	projects services.IProjectService
	bookings services.IBookingService
}

func NewCRMHandler(clients services.IClientService, projects services.IProjectService, bookings services.IBookingService) *CRMHandler {
	return &CRMHandler{clients: clients, projects: projects, bookings: bookings}
}

// ListClients handles GET /api/clients?status=
func (h *CRMHandler) ListClients(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	status := models.ClientStatus(c.Query("status"))
	switch status {
	case "", models.ClientStatusLead, models.ClientStatusActive, models.ClientStatusInactive:
	default:
		fail(c, http.StatusBadRequest, "Invalid status parameter")
		return
	}
	clients, err := h.clients.List(c.Request.Context(), userID, status)
	if err != nil {
		handleError(c, err, "Clients not found")
		return
	}
	respond(c, http.StatusOK, clients)
}

// GetClient handles GET /api/clients/:id
func (h *CRMHandler) GetClient(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "client")
	if !ok {
		return
	}
	client, err := h.clients.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, err, "Client not found")
		return
	}
	respond(c, http.StatusOK, client)
}

// CreateClient handles POST /api/clients
func (h *CRMHandler) CreateClient(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var form intake.ClientForm
	if !bindJSON(c, &form) {
		return
	}
	client, err := h.clients.Create(c.Request.Context(), userID, form)
	if err != nil {
		handleError(c, err, "Attachment not found")
		return
	}
	respond(c, http.StatusCreated, client)
}

// DeleteClient handles DELETE /api/clients/:id
func (h *CRMHandler) DeleteClient(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "client")
	if !ok {
		return
	}
	if err := h.clients.Delete(c.Request.Context(), userID, id); err != nil {
		handleError(c, err, "Client not found")
		return
	}
	respond(c, http.StatusOK, gin.H{"id": id.Hex()})
}

// ListProjects handles GET /api/projects?clientId=
func (h *CRMHandler) ListProjects(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var clientID *primitive.ObjectID
	if raw := c.Query("clientId"); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			fail(c, http.StatusBadRequest, "Invalid client ID format")
			return
		}
		clientID = &id
	}
	projects, err := h.projects.List(c.Request.Context(), userID, clientID)
	if err != nil {
		handleError(c, err, "Projects not found")
		return
	}
	respond(c, http.StatusOK, projects)
}

// GetProject handles GET /api/projects/:id
func (h *CRMHandler) GetProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "project")
	if !ok {
		return
	}
	project, err := h.projects.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, err, "Project not found")
		return
	}
	respond(c, http.StatusOK, project)
}

// CreateProject handles POST /api/projects
func (h *CRMHandler) CreateProject(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var form intake.ProjectForm
	if !bindJSON(c, &form) {
		return
	}
	project, err := h.projects.Create(c.Request.Context(), userID, form)
	if err != nil {
		handleError(c, err, "Attachment not found")
		return
	}
	respond(c, http.StatusCreated, project)
}

// ListBookings handles GET /api/bookings?upcoming=true
func (h *CRMHandler) ListBookings(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	bookings, err := h.bookings.List(c.Request.Context(), userID, c.Query("upcoming") == "true")
	if err != nil {
		handleError(c, err, "Bookings not found")
		return
	}
	respond(c, http.StatusOK, bookings)
}

// CreateBooking handles POST /api/bookings
func (h *CRMHandler) CreateBooking(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.BookingInput
	if !bindJSON(c, &in) {
		return
	}
	booking, err := h.bookings.Create(c.Request.Context(), userID, in)
	if err != nil {
		handleError(c, err, "Client not found")
		return
	}
	respond(c, http.StatusCreated, booking)
}
