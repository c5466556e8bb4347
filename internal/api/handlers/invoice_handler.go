package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/services"
)

// InvoiceHandler handles invoices and the dashboard figures derived from them.
type InvoiceHandler struct {
	invoices  services.IInvoiceService
	analytics services.IAnalyticsService
}

func NewInvoiceHandler(invoices services.IInvoiceService, analytics services.IAnalyticsService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, analytics: analytics}
}

// List handles GET /api/invoices?status=
func (h *InvoiceHandler) List(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	status := models.InvoiceStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		fail(c, http.StatusBadRequest, "Invalid status parameter")
		return
	}
	invoices, err := h.invoices.List(c.Request.Context(), userID, status)
	if err != nil {
		handleError(c, err, "Invoices not found")
		return
	}
	respond(c, http.StatusOK, invoices)
}

// Get handles GET /api/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "invoice")
	if !ok {
		return
	}
	invoice, err := h.invoices.Get(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, err, "Invoice not found")
		return
	}
	respond(c, http.StatusOK, invoice)
}

// Create handles POST /api/invoices
func (h *InvoiceHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var in services.InvoiceInput
	if !bindJSON(c, &in) {
		return
	}
	invoice, err := h.invoices.Create(c.Request.Context(), userID, in)
	if err != nil {
		handleError(c, err, "Client not found")
		return
	}
	respond(c, http.StatusCreated, invoice)
}

// MarkPaid handles POST /api/invoices/:id/paid
func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "invoice")
	if !ok {
		return
	}
	invoice, err := h.invoices.MarkPaid(c.Request.Context(), userID, id)
	if err != nil {
		handleError(c, err, "Invoice not found")
		return
	}
	respond(c, http.StatusOK, invoice)
}

// Overview handles GET /api/invoices/overview
func (h *InvoiceHandler) Overview(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	overview, err := h.invoices.Overview(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err, "Invoices not found")
		return
	}
	respond(c, http.StatusOK, overview)
}

// Dashboard handles GET /api/dashboard/summary
func (h *InvoiceHandler) Dashboard(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	summary, err := h.analytics.Dashboard(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err, "User not found")
		return
	}
	respond(c, http.StatusOK, summary)
}

// Revenue handles GET /api/analytics/revenue?months=
func (h *InvoiceHandler) Revenue(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	months, ok := queryInt(c, "months", 6)
	if !ok {
		return
	}
	points, err := h.analytics.RevenueByMonth(c.Request.Context(), userID, months)
	if err != nil {
		handleError(c, err, "User not found")
		return
	}
	respond(c, http.StatusOK, points)
}
