package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

type invoiceFixture struct {
	*crmFixture
	cfg      *config.Config
	invoices IInvoiceService
	userID   primitive.ObjectID
	client   *models.Client
}

func newInvoiceFixture(t *testing.T, dbName string) *invoiceFixture {
	f := &invoiceFixture{crmFixture: newCRMFixture(t, dbName)}
	require.NoError(t, db.EnsureIndexes(context.Background(), f.db))
	f.cfg = &config.Config{DefaultCurrency: "USD", InvoicePaymentWaitTimeDays: 14, InvoiceOverdueGraceDays: 3}
	profiles := &stubProfiles{profile: templating.Profile{BusinessName: "Studio Nine", PreferredCurrency: "EUR"}}
	f.invoices = NewInvoiceService(f.db, f.cfg, f.clients, profiles, f.queue)
	f.userID = primitive.NewObjectID()
	f.queue.On("EnqueueEmail", mock.Anything, mock.MatchedBy(func(job EmailJob) bool {
		return job.Type == templating.TypeInvoice
	})).Return(nil).Maybe()

	var err error
	f.client, err = f.clients.Create(context.Background(), f.userID, intake.ClientForm{Name: "Ada Lovelace", Email: "ada@example.com"})
	require.NoError(t, err)
	return f
}

func (f *invoiceFixture) input(send bool) InvoiceInput {
	return InvoiceInput{
		ClientID: f.client.ID.Hex(),
		Items: []templating.LineItem{
			{Description: "Design", Quantity: 10, UnitPrice: 80},
			{Description: "Hosting", Quantity: 1, UnitPrice: 19.99},
		},
		TaxRate: 10,
		Send:    send,
	}
}

func TestInvoiceService_Create(t *testing.T) {
	f := newInvoiceFixture(t, "testdb_invoice_create")
	ctx := context.Background()

	first, err := f.invoices.Create(ctx, f.userID, f.input(false))
	require.NoError(t, err)
	year := time.Now().UTC().Year()
	assert.Equal(t, fmt.Sprintf("INV-%d-0001", year), first.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusDraft, first.Status)
	assert.Equal(t, "EUR", first.CurrencyCode, "currency comes from the profile")
	assert.InDelta(t, 819.99, first.Subtotal, 0.001)
	assert.InDelta(t, 82.0, first.Tax, 0.001)
	assert.InDelta(t, 901.99, first.Total, 0.001)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 14), first.DueAt, time.Minute)

	second, err := f.invoices.Create(ctx, f.userID, f.input(true))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%d-0002", year), second.InvoiceNumber)
	assert.Equal(t, models.InvoiceStatusSent, second.Status)
	require.NotNil(t, second.SentAt)

	sent, err := f.invoices.List(ctx, f.userID, models.InvoiceStatusSent)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, second.ID, sent[0].ID)
}

func TestInvoiceService_CreateContinuesAfterHighestNumber(t *testing.T) {
	f := newInvoiceFixture(t, "testdb_invoice_numbering")
	ctx := context.Background()
	year := time.Now().UTC().Year()

	// A gap in the numbering, e.g. left by an imported invoice.
	_, err := f.db.Collection(db.InvoicesCollection).InsertOne(ctx, bson.M{
		"_id":            primitive.NewObjectID(),
		"user_id":        f.userID,
		"invoice_number": fmt.Sprintf("INV-%d-0007", year),
		"deleted":        true,
	})
	require.NoError(t, err)

	inv, err := f.invoices.Create(ctx, f.userID, f.input(false))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%d-0008", year), inv.InvoiceNumber)

	// Numbers are per user.
	other := primitive.NewObjectID()
	client, err := f.clients.Create(ctx, other, intake.ClientForm{Name: "Grace Hopper", Email: "grace@example.com"})
	require.NoError(t, err)
	in := f.input(false)
	in.ClientID = client.ID.Hex()
	inv, err = f.invoices.Create(ctx, other, in)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("INV-%d-0001", year), inv.InvoiceNumber)
}

func TestInvoiceService_CreateRejectsBadInput(t *testing.T) {
	f := newInvoiceFixture(t, "testdb_invoice_bad_input")
	ctx := context.Background()

	in := f.input(false)
	in.Items = nil
	_, err := f.invoices.Create(ctx, f.userID, in)
	assert.ErrorIs(t, err, ErrInvoiceNoItems)

	in = f.input(false)
	in.Items[0].Quantity = 0
	_, err = f.invoices.Create(ctx, f.userID, in)
	assert.ErrorIs(t, err, ErrInvoiceNoItems)

	in = f.input(false)
	in.ClientID = primitive.NewObjectID().Hex()
	_, err = f.invoices.Create(ctx, f.userID, in)
	assert.Error(t, err)
}

func TestInvoiceService_MarkPaid(t *testing.T) {
	f := newInvoiceFixture(t, "testdb_invoice_paid")
	ctx := context.Background()

	inv, err := f.invoices.Create(ctx, f.userID, f.input(true))
	require.NoError(t, err)

	f.queue.On("EnqueueEmail", mock.Anything, EmailJob{
		UserID:    f.userID,
		Type:      templating.TypePaymentConfirmation,
		To:        "ada@example.com",
		Reference: inv.ID.Hex(),
	}).Return(nil).Once()

	paid, err := f.invoices.MarkPaid(ctx, f.userID, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)
	f.queue.AssertExpectations(t)

	_, err = f.invoices.MarkPaid(ctx, f.userID, inv.ID)
	assert.ErrorIs(t, err, ErrInvoiceAlreadyPaid)

	overview, err := f.invoices.Overview(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, "EUR", overview.Currency)
	assert.InDelta(t, inv.Total, overview.PaidTotal, 0.001)
	assert.Zero(t, overview.Outstanding)
	assert.Equal(t, 1, overview.Counts["paid"])
}

func TestInvoiceService_Overdue(t *testing.T) {
	f := newInvoiceFixture(t, "testdb_invoice_overdue")
	ctx := context.Background()

	past := time.Now().AddDate(0, 0, -10)
	in := f.input(true)
	in.DueAt = &past
	late, err := f.invoices.Create(ctx, f.userID, in)
	require.NoError(t, err)

	recent := time.Now().AddDate(0, 0, -1) // Still inside the grace period
	in.DueAt = &recent
	_, err = f.invoices.Create(ctx, f.userID, in)
	require.NoError(t, err)

	draft := f.input(false)
	draft.DueAt = &past
	_, err = f.invoices.Create(ctx, f.userID, draft)
	require.NoError(t, err)

	overdue, err := f.invoices.FindOverdueInvoices(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.ID, overdue[0].ID)

	require.NoError(t, f.invoices.MarkInvoiceOverdueNotified(ctx, late.ID))
	overdue, err = f.invoices.FindOverdueInvoices(ctx, time.Now())
	require.NoError(t, err)
	assert.Empty(t, overdue)

	got, err := f.invoices.Get(ctx, f.userID, late.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvoiceStatusOverdue, got.Status)
	assert.True(t, got.OverdueNotified)

	overview, err := f.invoices.Overview(ctx, f.userID)
	require.NoError(t, err)
	assert.InDelta(t, late.Total, overview.Overdue, 0.001)
	assert.InDelta(t, late.Total*2, overview.Outstanding, 0.001)

	assert.ErrorIs(t, f.invoices.MarkInvoiceOverdueNotified(ctx, primitive.NewObjectID()), mongo.ErrNoDocuments)
}
