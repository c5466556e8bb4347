package services

import (
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/storage"
)

// Services bundles every service so the API and the workers are wired the
// same way.
type Services struct {
	Profiles    IProfileService
	Templates   IEmailTemplateService
	Attachments IAttachmentService
	Clients     IClientService
	Projects    IProjectService
	Bookings    IBookingService
	Invoices    IInvoiceService
	Analytics   IAnalyticsService
}

// New builds the services in dependency order. rdb may be nil.
func New(db *mongo.Database, cfg *config.Config, rdb *redis.Client, store storage.IAttachmentStorage, queue IJobQueue) *Services {
	s := &Services{}
	s.Profiles = NewProfileService(db, cfg, rdb)
	s.Templates = NewEmailTemplateService(db, s.Profiles)
	s.Attachments = NewAttachmentService(db, cfg, store, queue)
	s.Clients = NewClientService(db, s.Attachments, queue)
	s.Projects = NewProjectService(db, s.Clients, s.Attachments)
	s.Bookings = NewBookingService(db, s.Clients)
	s.Invoices = NewInvoiceService(db, cfg, s.Clients, s.Profiles, queue)
	s.Analytics = NewAnalyticsService(db, s.Clients, s.Projects, s.Bookings, s.Invoices)
	return s
}
