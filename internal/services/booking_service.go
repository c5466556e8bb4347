package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
)

var (
	ErrBookingTimes = errors.New("booking must end after it starts")
	ErrBookingTitle = errors.New("booking title is required")
)

// BookingInput is the body of a booking create request.
type BookingInput struct {
	ClientID string    `json:"clientId"`
	Title    string    `json:"title" binding:"required"`
	Notes    string    `json:"notes"`
	Location string    `json:"location"`
	Start    time.Time `json:"start" binding:"required"`
	End      time.Time `json:"end" binding:"required"`
}

type IBookingService interface {
	List(ctx context.Context, userID primitive.ObjectID, upcomingOnly bool) ([]models.Booking, error)
	Create(ctx context.Context, userID primitive.ObjectID, in BookingInput) (*models.Booking, error)
	CountUpcoming(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type bookingService struct {
	db      *mongo.Database
	clients IClientService
}

func NewBookingService(db *mongo.Database, clients IClientService) IBookingService {
	return &bookingService{db: db, clients: clients}
}

func (s *bookingService) collection() *mongo.Collection {
	return s.db.Collection(db.BookingsCollection)
}

func upcomingFilter(userID primitive.ObjectID, now time.Time) bson.M {
	return bson.M{"user_id": userID, "status": models.BookingStatusScheduled, "start": bson.M{"$gt": now}}
}

// List returns bookings by start time. Upcoming bookings are listed soonest
// first, all bookings latest first.
func (s *bookingService) List(ctx context.Context, userID primitive.ObjectID, upcomingOnly bool) ([]models.Booking, error) {
	filter := bson.M{"user_id": userID}
	sort := -1
	if upcomingOnly {
		filter = upcomingFilter(userID, time.Now().UTC())
		sort = 1
	}
	cursor, err := s.collection().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "start", Value: sort}}))
	if err != nil {
		return nil, fmt.Errorf("error listing bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []models.Booking{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, nil
}

func (s *bookingService) Create(ctx context.Context, userID primitive.ObjectID, in BookingInput) (*models.Booking, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrBookingTitle
	}
	if !in.End.After(in.Start) {
		return nil, ErrBookingTimes
	}

	var clientID *primitive.ObjectID
	if in.ClientID != "" {
		oid, err := primitive.ObjectIDFromHex(in.ClientID)
		if err != nil {
			return nil, fmt.Errorf("%w %q", ErrClientID, in.ClientID)
		}
		if _, err := s.clients.Get(ctx, userID, oid); err != nil {
			return nil, err
		}
		clientID = &oid
	}

	return db.InsertOne(ctx, s.collection(), &models.Booking{
		UserID:    userID,
		ClientID:  clientID,
		Title:     title,
		Notes:     strings.TrimSpace(in.Notes),
		Location:  strings.TrimSpace(in.Location),
		Start:     in.Start.UTC(),
		End:       in.End.UTC(),
		Status:    models.BookingStatusScheduled,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *bookingService) CountUpcoming(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.collection().CountDocuments(ctx, upcomingFilter(userID, time.Now().UTC()))
	if err != nil {
		return 0, fmt.Errorf("error counting bookings: %w", err)
	}
	return n, nil
}
