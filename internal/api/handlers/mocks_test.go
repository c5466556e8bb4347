package handlers_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/services"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// --- Mock Profile Service ---

type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockProfileService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockProfileService) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	args := m.Called(ctx, name, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockProfileService) GetProfile(ctx context.Context, userID primitive.ObjectID) (templating.Profile, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(templating.Profile), args.Error(1)
}

func (m *MockProfileService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, p templating.Profile) (templating.Profile, error) {
	args := m.Called(ctx, userID, p)
	return args.Get(0).(templating.Profile), args.Error(1)
}

func (m *MockProfileService) SubscribeToChanges(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// --- Mock Email Template Service ---

type MockEmailTemplateService struct {
	mock.Mock
}

func (m *MockEmailTemplateService) List(ctx context.Context, userID primitive.ObjectID, t templating.TemplateType) ([]models.EmailTemplate, error) {
	args := m.Called(ctx, userID, t)
	return args.Get(0).([]models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.EmailTemplate, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateService) GetForType(ctx context.Context, userID primitive.ObjectID, t templating.TemplateType) (*models.EmailTemplate, error) {
	args := m.Called(ctx, userID, t)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateService) Create(ctx context.Context, userID primitive.ObjectID, in services.TemplateInput) (*models.EmailTemplate, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateService) Update(ctx context.Context, userID, id primitive.ObjectID, in services.TemplateInput) (*models.EmailTemplate, error) {
	args := m.Called(ctx, userID, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.EmailTemplate), args.Error(1)
}

func (m *MockEmailTemplateService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockEmailTemplateService) Preview(ctx context.Context, userID primitive.ObjectID, in services.TemplateInput) (templating.Rendered, error) {
	args := m.Called(ctx, userID, in)
	return args.Get(0).(templating.Rendered), args.Error(1)
}

// --- Mock Client Service ---

type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) List(ctx context.Context, userID primitive.ObjectID, status models.ClientStatus) ([]models.Client, error) {
	args := m.Called(ctx, userID, status)
	return args.Get(0).([]models.Client), args.Error(1)
}

func (m *MockClientService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Client, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) Create(ctx context.Context, userID primitive.ObjectID, form intake.ClientForm) (*models.Client, error) {
	args := m.Called(ctx, userID, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockClientService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockClientService) Count(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Project Service ---

type MockProjectService struct {
	mock.Mock
}

func (m *MockProjectService) List(ctx context.Context, userID primitive.ObjectID, clientID *primitive.ObjectID) ([]models.Project, error) {
	args := m.Called(ctx, userID, clientID)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *MockProjectService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Project, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) Create(ctx context.Context, userID primitive.ObjectID, form intake.ProjectForm) (*models.Project, error) {
	args := m.Called(ctx, userID, form)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectService) CountActive(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Booking Service ---

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) List(ctx context.Context, userID primitive.ObjectID, upcomingOnly bool) ([]models.Booking, error) {
	args := m.Called(ctx, userID, upcomingOnly)
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockBookingService) Create(ctx context.Context, userID primitive.ObjectID, in services.BookingInput) (*models.Booking, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *MockBookingService) CountUpcoming(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Attachment Service ---

type MockAttachmentService struct {
	mock.Mock
}

func (m *MockAttachmentService) CreateUploadURL(ctx context.Context, userID primitive.ObjectID, filename, mimeType string, size int64) (*models.Attachment, string, error) {
	args := m.Called(ctx, userID, filename, mimeType, size)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).(*models.Attachment), args.String(1), args.Error(2)
}

func (m *MockAttachmentService) Confirm(ctx context.Context, userID, id primitive.ObjectID) (*models.Attachment, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attachment), args.Error(1)
}

func (m *MockAttachmentService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockAttachmentService) Attach(ctx context.Context, userID primitive.ObjectID, ids []string) ([]models.Attachment, error) {
	args := m.Called(ctx, userID, ids)
	return args.Get(0).([]models.Attachment), args.Error(1)
}

func (m *MockAttachmentService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Attachment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Attachment), args.Error(1)
}

func (m *MockAttachmentService) SetPreview(ctx context.Context, id primitive.ObjectID, previewKey string) error {
	return m.Called(ctx, id, previewKey).Error(0)
}

func (m *MockAttachmentService) FindOrphans(ctx context.Context, olderThan time.Time) ([]models.Attachment, error) {
	args := m.Called(ctx, olderThan)
	return args.Get(0).([]models.Attachment), args.Error(1)
}

func (m *MockAttachmentService) Remove(ctx context.Context, a *models.Attachment) error {
	return m.Called(ctx, a).Error(0)
}

// --- Mock Invoice Service ---

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) List(ctx context.Context, userID primitive.ObjectID, status models.InvoiceStatus) ([]models.Invoice, error) {
	args := m.Called(ctx, userID, status)
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Invoice, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Create(ctx context.Context, userID primitive.ObjectID, in services.InvoiceInput) (*models.Invoice, error) {
	args := m.Called(ctx, userID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) MarkPaid(ctx context.Context, userID, id primitive.ObjectID) (*models.Invoice, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) Overview(ctx context.Context, userID primitive.ObjectID) (*services.InvoiceOverview, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.InvoiceOverview), args.Error(1)
}

func (m *MockInvoiceService) FindOverdueInvoices(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	args := m.Called(ctx, now)
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *MockInvoiceService) MarkInvoiceOverdueNotified(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

// --- Mock Analytics Service ---

type MockAnalyticsService struct {
	mock.Mock
}

func (m *MockAnalyticsService) Dashboard(ctx context.Context, userID primitive.ObjectID) (*services.DashboardSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.DashboardSummary), args.Error(1)
}

func (m *MockAnalyticsService) RevenueByMonth(ctx context.Context, userID primitive.ObjectID, months int) ([]services.RevenuePoint, error) {
	args := m.Called(ctx, userID, months)
	return args.Get(0).([]services.RevenuePoint), args.Error(1)
}

// --- Mock Job Queue ---

type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) EnqueueEmail(ctx context.Context, job services.EmailJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockJobQueue) EnqueueThumbnail(ctx context.Context, attachmentID primitive.ObjectID) error {
	return m.Called(ctx, attachmentID).Error(0)
}
