package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
)

func TestAnalyticsService_Dashboard(t *testing.T) {
	f := newInvoiceFixture(t, "testdb_analytics_dashboard")
	ctx := context.Background()
	bookings := NewBookingService(f.db, f.clients)
	analytics := NewAnalyticsService(f.db, f.clients, f.projects, bookings, f.invoices)
	f.queue.On("EnqueueEmail", mock.Anything, mock.Anything).Return(nil)

	_, err := f.projects.Create(ctx, f.userID, intake.ProjectForm{ClientID: f.client.ID.Hex(), Name: "Rebrand", StartDate: time.Now()})
	require.NoError(t, err)

	start := time.Now().Add(24 * time.Hour)
	_, err = bookings.Create(ctx, f.userID, BookingInput{ClientID: f.client.ID.Hex(), Title: "Kickoff", Start: start, End: start.Add(time.Hour)})
	require.NoError(t, err)

	paid, err := f.invoices.Create(ctx, f.userID, f.input(true))
	require.NoError(t, err)
	_, err = f.invoices.MarkPaid(ctx, f.userID, paid.ID)
	require.NoError(t, err)
	open, err := f.invoices.Create(ctx, f.userID, f.input(true))
	require.NoError(t, err)

	summary, err := analytics.Dashboard(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.Clients)
	assert.Equal(t, int64(1), summary.ActiveProjects)
	assert.Equal(t, int64(1), summary.UpcomingBookings)
	assert.InDelta(t, open.Total, summary.Outstanding, 0.001)
	assert.InDelta(t, paid.Total, summary.RevenueThisMonth, 0.001)
	assert.Equal(t, "EUR", summary.Currency)
}

func TestAnalyticsService_RevenueByMonthFillsGaps(t *testing.T) {
	f := newInvoiceFixture(t, "testdb_analytics_revenue")
	ctx := context.Background()
	analytics := NewAnalyticsService(f.db, f.clients, f.projects, NewBookingService(f.db, f.clients), f.invoices)
	f.queue.On("EnqueueEmail", mock.Anything, mock.Anything).Return(nil)

	inv, err := f.invoices.Create(ctx, f.userID, f.input(true))
	require.NoError(t, err)
	_, err = f.invoices.MarkPaid(ctx, f.userID, inv.ID)
	require.NoError(t, err)

	// Move the payment two months back.
	now := time.Now().UTC()
	paidAt := time.Date(now.Year(), now.Month(), 1, 12, 0, 0, 0, time.UTC).AddDate(0, -2, 0)
	_, err = f.db.Collection(db.InvoicesCollection).UpdateByID(ctx, inv.ID, bson.M{"$set": bson.M{"paid_at": paidAt}})
	require.NoError(t, err)

	points, err := analytics.RevenueByMonth(ctx, f.userID, 4)
	require.NoError(t, err)
	require.Len(t, points, 4)
	assert.Equal(t, now.Format("2006-01"), points[3].Month)
	assert.Equal(t, paidAt.Format("2006-01"), points[1].Month)
	assert.InDelta(t, inv.Total, points[1].Total, 0.001)
	assert.Equal(t, 1, points[1].Count)
	assert.Zero(t, points[0].Total)
	assert.Zero(t, points[3].Total)

	points, err = analytics.RevenueByMonth(ctx, f.userID, 100)
	require.NoError(t, err)
	assert.Len(t, points, maxRevenueMonths)
}

func TestBookingService_Create(t *testing.T) {
	f := newCRMFixture(t, "testdb_booking_create")
	ctx := context.Background()
	bookings := NewBookingService(f.db, f.clients)
	userID := primitive.NewObjectID()

	start := time.Now().Add(time.Hour)
	_, err := bookings.Create(ctx, userID, BookingInput{Title: "Call", Start: start, End: start})
	assert.ErrorIs(t, err, ErrBookingTimes)

	_, err = bookings.Create(ctx, userID, BookingInput{Title: "  ", Start: start, End: start.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrBookingTitle)

	past := time.Now().Add(-48 * time.Hour)
	_, err = bookings.Create(ctx, userID, BookingInput{Title: "Retro", Start: past, End: past.Add(30 * time.Minute)})
	require.NoError(t, err)
	b, err := bookings.Create(ctx, userID, BookingInput{Title: "Call", Start: start, End: start.Add(45 * time.Minute)})
	require.NoError(t, err)
	assert.Equal(t, 45, b.DurationMinutes())

	upcoming, err := bookings.List(ctx, userID, true)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, b.ID, upcoming[0].ID)

	all, err := bookings.List(ctx, userID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
