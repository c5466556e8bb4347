package models

import (
	"time"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// User is the account of a freelancer. Profile holds the business identity
// used when rendering email templates.
type User struct {
	Base      `bson:",inline"`
	Name      string             `bson:"name" json:"name"`
	Email     string             `bson:"email" json:"email"`
	Profile   templating.Profile `bson:"profile" json:"profile"`
	Suspended bool               `bson:"suspended" json:"suspended"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
	Deleted   bool               `bson:"deleted" json:"-"` // Soft delete flag
}
