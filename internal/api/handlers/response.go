package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/api/middleware"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/services"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// Responses share one envelope: {"success": true, "data": ...} on success and
// {"success": false, "error": "..."} on failure. Validation failures add a
// "fields" map.

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"success": false, "error": msg})
}

func failFields(c *gin.Context, msg string, fields map[string]string) {
	c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": msg, "fields": fields})
}

var (
	badRequestErrors = []error{
		services.ErrAttachmentTooLarge,
		services.ErrAttachmentType,
		services.ErrAttachmentNotUploaded,
		services.ErrAttachmentID,
		services.ErrClientID,
		services.ErrInvoiceNoItems,
		services.ErrBookingTimes,
		services.ErrBookingTitle,
	}
	conflictErrors = []error{
		services.ErrTemplateExists,
		services.ErrAttachmentNotStaged,
		services.ErrInvoiceAlreadyPaid,
		services.ErrInvoiceCancelled,
	}
)

// handleError maps a service error to a response. notFound is the message
// used for mongo.ErrNoDocuments.
func handleError(c *gin.Context, err error, notFound string) {
	var templateErr *templating.ValidationError
	var intakeErr *intake.ValidationError
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		fail(c, http.StatusNotFound, notFound)
		return
	case errors.As(err, &templateErr):
		failFields(c, templateErr.Error(), templateErr.Fields)
		return
	case errors.As(err, &intakeErr):
		failFields(c, intakeErr.Error(), intakeErr.Fields)
		return
	}
	for _, known := range badRequestErrors {
		if errors.Is(err, known) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
	}
	for _, known := range conflictErrors {
		if errors.Is(err, known) {
			fail(c, http.StatusConflict, err.Error())
			return
		}
	}
	_ = c.Error(err)
	fail(c, http.StatusInternalServerError, "Internal server error")
}

// currentUser returns the authenticated user or aborts with 401.
func currentUser(c *gin.Context) (primitive.ObjectID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Authentication required"})
	}
	return id, ok
}

// pathID parses the :id parameter or responds 400.
func pathID(c *gin.Context, what string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid "+what+" ID format")
		return primitive.NilObjectID, false
	}
	return id, true
}

// bindJSON decodes the body into v or responds 400.
var registerOnce sync.Once

// RegisterValidation installs the intake rules on gin's binding validator so
// binding tags report JSON field names and may use client_email.
func RegisterValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			log.Println("WARNING: gin binding engine is not validator/v10, intake rules not registered")
			return
		}
		if err := intake.RegisterRules(v); err != nil {
			log.Printf("WARNING: failed to register intake rules: %v", err)
		}
	})
}

func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		if fields := intake.FieldErrors(err); fields != nil {
			failFields(c, "Please fix the highlighted fields", fields)
			return false
		}
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid "+key+" parameter")
		return 0, false
	}
	return n, true
}
