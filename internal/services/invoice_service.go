package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

var (
	ErrInvoiceNoItems     = errors.New("an invoice needs at least one item")
	ErrInvoiceAlreadyPaid = errors.New("invoice is already paid")
	ErrInvoiceCancelled   = errors.New("invoice is cancelled")
)

// InvoiceInput is the body of an invoice create request.
type InvoiceInput struct {
	ClientID string                `json:"clientId" binding:"required"`
	Items    []templating.LineItem `json:"items"`
	Currency string                `json:"currency"`
	TaxRate  float64               `json:"taxRate" binding:"gte=0,lte=100"`
	Notes    string                `json:"notes"`
	DueAt    *time.Time            `json:"dueAt"`
	Send     bool                  `json:"send"` // Issue as sent instead of draft
}

// InvoiceOverview sums the user's invoices by state.
type InvoiceOverview struct {
	Currency    string         `json:"currency"`
	Outstanding float64        `json:"outstanding"`
	Overdue     float64        `json:"overdue"`
	PaidTotal   float64        `json:"paidTotal"`
	Counts      map[string]int `json:"counts"`
}

// IInvoiceService defines the interface for invoice operations.
type IInvoiceService interface {
	List(ctx context.Context, userID primitive.ObjectID, status models.InvoiceStatus) ([]models.Invoice, error)
	Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Invoice, error)
	Create(ctx context.Context, userID primitive.ObjectID, in InvoiceInput) (*models.Invoice, error)
	MarkPaid(ctx context.Context, userID, id primitive.ObjectID) (*models.Invoice, error)
	Overview(ctx context.Context, userID primitive.ObjectID) (*InvoiceOverview, error)
	FindOverdueInvoices(ctx context.Context, now time.Time) ([]models.Invoice, error)
	MarkInvoiceOverdueNotified(ctx context.Context, invoiceID primitive.ObjectID) error
}

type invoiceService struct {
	db       *mongo.Database
	cfg      *config.Config
	clients  IClientService
	profiles IProfileService
	queue    IJobQueue
}

// NewInvoiceService creates a new InvoiceService.
func NewInvoiceService(db *mongo.Database, cfg *config.Config, clients IClientService, profiles IProfileService, queue IJobQueue) IInvoiceService {
	return &invoiceService{db: db, cfg: cfg, clients: clients, profiles: profiles, queue: queue}
}

func (s *invoiceService) collection() *mongo.Collection {
	return s.db.Collection(db.InvoicesCollection)
}

func (s *invoiceService) List(ctx context.Context, userID primitive.ObjectID, status models.InvoiceStatus) ([]models.Invoice, error) {
	filter := bson.M{"user_id": userID, "deleted": false}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "issued_at", Value: -1}})
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer cursor.Close(ctx)

	invoices := []models.Invoice{}
	if err := cursor.All(ctx, &invoices); err != nil {
		return nil, fmt.Errorf("failed to decode invoices: %w", err)
	}
	return invoices, nil
}

func (s *invoiceService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.collection().FindOne(ctx, bson.M{"_id": id, "user_id": userID, "deleted": false}).Decode(&invoice)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding invoice %s: %w", id.Hex(), err)
	}
	return &invoice, nil
}

// nextInvoiceNumber returns INV-<year>-<seq>, one past the highest number the
// user has for that year. Concurrent creates may pick the same number; the
// unique (user_id, invoice_number) index rejects the loser, which retries.
func (s *invoiceService) nextInvoiceNumber(ctx context.Context, userID primitive.ObjectID, now time.Time) (string, error) {
	prefix := fmt.Sprintf("INV-%d-", now.Year())
	filter := bson.M{"user_id": userID, "invoice_number": bson.M{"$regex": "^" + prefix}}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "invoice_number", Value: -1}}).
		SetProjection(bson.M{"invoice_number": 1})

	var last struct {
		InvoiceNumber string `bson:"invoice_number"`
	}
	seq := 0
	err := s.collection().FindOne(ctx, filter, opts).Decode(&last)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return "", fmt.Errorf("failed to find last invoice number: %w", err)
	default:
		n, convErr := strconv.Atoi(strings.TrimPrefix(last.InvoiceNumber, prefix))
		if convErr != nil {
			return "", fmt.Errorf("unexpected invoice number %q: %w", last.InvoiceNumber, convErr)
		}
		seq = n
	}
	return fmt.Sprintf("%s%04d", prefix, seq+1), nil
}

// Create issues a new invoice for one of the user's clients. Amounts are
// recomputed from quantities and unit prices.
func (s *invoiceService) Create(ctx context.Context, userID primitive.ObjectID, in InvoiceInput) (*models.Invoice, error) {
	if len(in.Items) == 0 {
		return nil, ErrInvoiceNoItems
	}
	for i, item := range in.Items {
		if strings.TrimSpace(item.Description) == "" || item.Quantity <= 0 || item.UnitPrice < 0 {
			return nil, fmt.Errorf("invalid item %d: %w", i+1, ErrInvoiceNoItems)
		}
	}
	clientID, err := primitive.ObjectIDFromHex(in.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w %q", ErrClientID, in.ClientID)
	}
	client, err := s.clients.Get(ctx, userID, clientID)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		if p, err := s.profiles.GetProfile(ctx, userID); err == nil {
			currency = p.PreferredCurrency
		}
	}
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}

	now := time.Now().UTC()
	dueAt := now.AddDate(0, 0, s.cfg.InvoicePaymentWaitTimeDays)
	if in.DueAt != nil && !in.DueAt.IsZero() {
		dueAt = in.DueAt.UTC()
	}
	status := models.InvoiceStatusDraft
	var sentAt *time.Time
	if in.Send {
		status = models.InvoiceStatusSent
		sentAt = &now
	}

	invoice := &models.Invoice{
		UserID:       userID,
		ClientID:     clientID,
		Items:        append([]templating.LineItem(nil), in.Items...),
		CurrencyCode: currency,
		TaxRate:      in.TaxRate,
		Status:       status,
		Notes:        strings.TrimSpace(in.Notes),
		IssuedAt:     now,
		DueAt:        dueAt,
		SentAt:       sentAt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	invoice.Recalculate()

	operation := func() error {
		number, err := s.nextInvoiceNumber(ctx, userID, now)
		if err != nil {
			return err
		}
		invoice.InvoiceNumber = number
		invoice.GenID()
		_, err = s.collection().InsertOne(ctx, invoice)
		return err
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("error inserting invoice (last attempted number: %s) after multiple retries: %w", invoice.InvoiceNumber, err)
	}
	log.Printf("Created invoice %s (%s) for user %s", invoice.InvoiceNumber, invoice.ID.Hex(), userID.Hex())

	if in.Send && s.queue != nil {
		job := EmailJob{UserID: userID, Type: templating.TypeInvoice, To: client.Email, Reference: invoice.ID.Hex()}
		if err := s.queue.EnqueueEmail(ctx, job); err != nil {
			log.Printf("ERROR: failed to enqueue invoice email for %s: %v", invoice.InvoiceNumber, err)
		}
	}
	return invoice, nil
}

// MarkPaid records the payment and queues the payment confirmation email
// to the client.
func (s *invoiceService) MarkPaid(ctx context.Context, userID, id primitive.ObjectID) (*models.Invoice, error) {
	invoice, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	switch invoice.Status {
	case models.InvoiceStatusPaid:
		return nil, ErrInvoiceAlreadyPaid
	case models.InvoiceStatusCancelled:
		return nil, ErrInvoiceCancelled
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": id, "user_id": userID, "status": invoice.Status}
	update := bson.M{"$set": bson.M{"status": models.InvoiceStatusPaid, "paid_at": now, "updated_at": now}}
	result, err := s.collection().UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("db error marking invoice %s paid: %w", id.Hex(), err)
	}
	if result.MatchedCount == 0 {
		// Someone else changed the status first.
		return nil, ErrInvoiceAlreadyPaid
	}
	invoice.Status = models.InvoiceStatusPaid
	invoice.PaidAt = &now
	invoice.UpdatedAt = now

	if s.queue != nil {
		client, err := s.clients.Get(ctx, userID, invoice.ClientID)
		switch {
		case err != nil:
			log.Printf("Invoice %s paid but client %s could not be loaded, no confirmation sent: %v", invoice.InvoiceNumber, invoice.ClientID.Hex(), err)
		default:
			job := EmailJob{UserID: userID, Type: templating.TypePaymentConfirmation, To: client.Email, Reference: invoice.ID.Hex()}
			if err := s.queue.EnqueueEmail(ctx, job); err != nil {
				log.Printf("ERROR: failed to enqueue payment confirmation for invoice %s: %v", invoice.InvoiceNumber, err)
			}
		}
	}
	return invoice, nil
}

// Overview sums totals per status with an aggregation over the user's invoices.
func (s *invoiceService) Overview(ctx context.Context, userID primitive.ObjectID) (*InvoiceOverview, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID, "deleted": false}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"total": bson.M{"$sum": "$total"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := s.collection().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var groups []struct {
		Status models.InvoiceStatus `bson:"_id"`
		Total  float64              `bson:"total"`
		Count  int                  `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode invoice totals: %w", err)
	}

	overview := &InvoiceOverview{Currency: s.cfg.DefaultCurrency, Counts: map[string]int{}}
	if p, err := s.profiles.GetProfile(ctx, userID); err == nil && p.PreferredCurrency != "" {
		overview.Currency = p.PreferredCurrency
	}
	for _, g := range groups {
		overview.Counts[string(g.Status)] = g.Count
		switch g.Status {
		case models.InvoiceStatusSent:
			overview.Outstanding += g.Total
		case models.InvoiceStatusOverdue:
			overview.Outstanding += g.Total
			overview.Overdue += g.Total
		case models.InvoiceStatusPaid:
			overview.PaidTotal += g.Total
		}
	}
	return overview, nil
}

// FindOverdueInvoices retrieves sent invoices whose due date plus the grace
// period has passed and whose client has not been reminded yet.
func (s *invoiceService) FindOverdueInvoices(ctx context.Context, now time.Time) ([]models.Invoice, error) {
	cutoff := now.AddDate(0, 0, -s.cfg.InvoiceOverdueGraceDays)
	filter := bson.M{
		"status":           bson.M{"$in": []models.InvoiceStatus{models.InvoiceStatusSent, models.InvoiceStatusOverdue}},
		"due":              bson.M{"$lt": cutoff},
		"paid_at":          nil,
		"overdue_notified": false,
		"deleted":          false,
	}
	cursor, err := s.collection().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue invoices: %w", err)
	}
	defer cursor.Close(ctx)

	var invoices []models.Invoice
	if err = cursor.All(ctx, &invoices); err != nil {
		return nil, fmt.Errorf("failed to decode overdue invoices: %w", err)
	}
	return invoices, nil
}

// MarkInvoiceOverdueNotified moves the invoice to overdue and sets the
// OverdueNotified flag so the reminder goes out once.
func (s *invoiceService) MarkInvoiceOverdueNotified(ctx context.Context, invoiceID primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{
		"status":           models.InvoiceStatusOverdue,
		"overdue_notified": true,
		"updated_at":       time.Now().UTC(),
	}}
	result, err := s.collection().UpdateOne(ctx, bson.M{"_id": invoiceID}, update)
	if err != nil {
		return fmt.Errorf("db error marking invoice %s overdue notified: %w", invoiceID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}
