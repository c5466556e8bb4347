package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "scheduled"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a meeting slot with a client.
type Booking struct {
	Base      `bson:",inline"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"userId"`
	ClientID  *primitive.ObjectID `bson:"client_id,omitempty" json:"clientId,omitempty"`
	Title     string              `bson:"title" json:"title"`
	Notes     string              `bson:"notes,omitempty" json:"notes,omitempty"`
	Location  string              `bson:"location,omitempty" json:"location,omitempty"`
	Start     time.Time           `bson:"start" json:"start"`
	End       time.Time           `bson:"end" json:"end"`
	Status    BookingStatus       `bson:"status" json:"status"`
	CreatedAt time.Time           `bson:"created_at" json:"createdAt"`
}

func (b *Booking) Duration() time.Duration {
	if b.End.Before(b.Start) {
		return 0
	}
	return b.End.Sub(b.Start)
}

func (b *Booking) DurationMinutes() int {
	return int(b.Duration() / time.Minute)
}

// IsUpcoming reports whether a scheduled booking has not started yet.
func (b *Booking) IsUpcoming(now time.Time) bool {
	return b.Status == BookingStatusScheduled && b.Start.After(now)
}
