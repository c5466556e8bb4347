package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/api/handlers"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/api/middleware"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/email"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/metrics"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/services"
)

// SetupRouter configures and returns the main Gin engine. The rate limiter
// forgets idle clients until ctx is done.
func SetupRouter(ctx context.Context, cfg *config.Config, svc *services.Services, queue services.IJobQueue) *gin.Engine {
	profileHandler := handlers.NewProfileHandler(svc.Profiles)
	templateHandler := handlers.NewTemplateHandler(svc.Templates, queue)
	crmHandler := handlers.NewCRMHandler(svc.Clients, svc.Projects, svc.Bookings)
	attachmentHandler := handlers.NewAttachmentHandler(svc.Attachments)
	invoiceHandler := handlers.NewInvoiceHandler(svc.Invoices, svc.Analytics)

	handlers.RegisterValidation()
	r := gin.Default()

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigin))
	r.Use(metrics.Middleware())

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg)

	api := r.Group("/api")
	{
		api.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Authenticated routes. The limiter runs after auth so that buckets
		// are per user rather than per IP.
		authRequired := api.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), rateLimiter.Limit())
		{
			authRequired.GET("/users/email-template-data", profileHandler.GetTemplateData)
			authRequired.PUT("/users/profile", profileHandler.UpdateProfile)

			authRequired.GET("/email-templates", templateHandler.List)
			authRequired.POST("/email-templates", templateHandler.Create)
			authRequired.POST("/email-templates/preview", templateHandler.Preview)
			authRequired.GET("/email-templates/:id", templateHandler.Get)
			authRequired.PUT("/email-templates/:id", templateHandler.Update)
			authRequired.DELETE("/email-templates/:id", templateHandler.Delete)
			authRequired.POST("/email-templates/:id/send", templateHandler.Send)

			authRequired.GET("/invoices", invoiceHandler.List)
			authRequired.POST("/invoices", invoiceHandler.Create)
			authRequired.GET("/invoices/overview", invoiceHandler.Overview)
			authRequired.GET("/invoices/:id", invoiceHandler.Get)
			authRequired.POST("/invoices/:id/paid", invoiceHandler.MarkPaid)

			authRequired.GET("/clients", crmHandler.ListClients)
			authRequired.POST("/clients", crmHandler.CreateClient)
			authRequired.GET("/clients/:id", crmHandler.GetClient)
			authRequired.DELETE("/clients/:id", crmHandler.DeleteClient)

			authRequired.GET("/projects", crmHandler.ListProjects)
			authRequired.POST("/projects", crmHandler.CreateProject)
			authRequired.GET("/projects/:id", crmHandler.GetProject)

			authRequired.POST("/attachments/upload-url", attachmentHandler.CreateUploadURL)
			authRequired.POST("/attachments/:id/confirm", attachmentHandler.Confirm)
			authRequired.DELETE("/attachments/:id", attachmentHandler.Delete)

			authRequired.GET("/bookings", crmHandler.ListBookings)
			authRequired.POST("/bookings", crmHandler.CreateBooking)

			authRequired.GET("/dashboard/summary", invoiceHandler.Dashboard)
			authRequired.GET("/analytics/revenue", invoiceHandler.Revenue)
		}
	}

	return r
}

// SetupServiceRouter configures and returns the service Gin engine. It is
// bound to the internal port only: shutdown, test email lookup and metrics.
func SetupServiceRouter(cfg *config.Config, rdb *redis.Client, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			log.Println("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
				log.Println("Shutdown signal sent successfully.")
			default:
				log.Println("Shutdown channel already signaled or blocked.")
			}
		case "getTestEmail":
			getTestEmail(c, rdb, req.Arguments)
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail returns (and removes) the mock email stored for a recipient
// and template type. Arguments are ["templateType", "email"].
func getTestEmail(c *gin.Context, rdb *redis.Client, raw json.RawMessage) {
	var args []string
	if err := json.Unmarshal(raw, &args); err != nil || len(args) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateType, email]"})
		return
	}
	if rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Redis is not configured"})
		return
	}
	redisKey := email.MockEmailKey(args[1], args[0])

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	// The worker may still be rendering, so poll briefly.
	var stored string
	found := false
	for i := 0; i < 10; i++ {
		val, err := rdb.GetDel(ctx, redisKey).Result()
		if err == nil {
			stored, found = val, true
			break
		}
		if !errors.Is(err, redis.Nil) {
			log.Printf("Service API: Error getting key %s from Redis: %v", redisKey, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		time.Sleep(200 * time.Millisecond)
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
		return
	}

	var emailData map[string]interface{}
	if err := json.Unmarshal([]byte(stored), &emailData); err != nil {
		log.Printf("Service API: Error unmarshalling email data from key %s: %v", redisKey, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})
}
