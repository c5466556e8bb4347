package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
)

const maxRevenueMonths = 24

// RevenuePoint is the paid revenue of one calendar month (YYYY-MM).
type RevenuePoint struct {
	Month string  `json:"month" bson:"_id"`
	Total float64 `json:"total" bson:"total"`
	Count int     `json:"count" bson:"count"`
}

// DashboardSummary is the set of numbers shown on the dashboard.
type DashboardSummary struct {
	Clients          int64   `json:"clients"`
	ActiveProjects   int64   `json:"activeProjects"`
	UpcomingBookings int64   `json:"upcomingBookings"`
	Outstanding      float64 `json:"outstanding"`
	Overdue          float64 `json:"overdue"`
	RevenueThisMonth float64 `json:"revenueThisMonth"`
	Currency         string  `json:"currency"`
}

type IAnalyticsService interface {
	Dashboard(ctx context.Context, userID primitive.ObjectID) (*DashboardSummary, error)
	RevenueByMonth(ctx context.Context, userID primitive.ObjectID, months int) ([]RevenuePoint, error)
}

type analyticsService struct {
	db       *mongo.Database
	clients  IClientService
	projects IProjectService
	bookings IBookingService
	invoices IInvoiceService
}

func NewAnalyticsService(db *mongo.Database, clients IClientService, projects IProjectService, bookings IBookingService, invoices IInvoiceService) IAnalyticsService {
	return &analyticsService{db: db, clients: clients, projects: projects, bookings: bookings, invoices: invoices}
}

// Dashboard gathers the counters concurrently; any failing query fails the summary.
func (s *analyticsService) Dashboard(ctx context.Context, userID primitive.ObjectID) (*DashboardSummary, error) {
	var summary DashboardSummary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary.Clients, err = s.clients.Count(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		summary.ActiveProjects, err = s.projects.CountActive(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		summary.UpcomingBookings, err = s.bookings.CountUpcoming(gctx, userID)
		return err
	})
	g.Go(func() error {
		overview, err := s.invoices.Overview(gctx, userID)
		if err != nil {
			return err
		}
		summary.Outstanding = overview.Outstanding
		summary.Overdue = overview.Overdue
		summary.Currency = overview.Currency
		return nil
	})
	g.Go(func() error {
		points, err := s.RevenueByMonth(gctx, userID, 1)
		if err != nil {
			return err
		}
		if len(points) > 0 {
			summary.RevenueThisMonth = points[len(points)-1].Total
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to build dashboard: %w", err)
	}
	return &summary, nil
}

// RevenueByMonth sums paid invoices per month for the last months months,
// including the current one. Months without payments are returned as zero,
// oldest first.
func (s *analyticsService) RevenueByMonth(ctx context.Context, userID primitive.ObjectID, months int) ([]RevenuePoint, error) {
	if months <= 0 {
		months = 1
	}
	if months > maxRevenueMonths {
		months = maxRevenueMonths
	}
	now := time.Now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id": userID,
			"deleted": false,
			"status":  models.InvoiceStatusPaid,
			"paid_at": bson.M{"$gte": first},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"$dateToString": bson.M{"format": "%Y-%m", "date": "$paid_at"}},
			"total": bson.M{"$sum": "$total"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := s.db.Collection(db.InvoicesCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate revenue: %w", err)
	}
	defer cursor.Close(ctx)

	var found []RevenuePoint
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("failed to decode revenue: %w", err)
	}
	byMonth := make(map[string]RevenuePoint, len(found))
	for _, p := range found {
		byMonth[p.Month] = p
	}

	points := make([]RevenuePoint, 0, months)
	for i := 0; i < months; i++ {
		month := first.AddDate(0, i, 0).Format("2006-01")
		p, ok := byMonth[month]
		if !ok {
			p = RevenuePoint{Month: month}
		}
		points = append(points, p)
	}
	return points, nil
}
