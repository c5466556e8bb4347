package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// EmailTemplate is a user's saved template of one type. There is at most one
// per (user_id, type); later saves overwrite it in place.
type EmailTemplate struct {
	Base              `bson:",inline"`
	UserID            primitive.ObjectID      `bson:"user_id" json:"userId"`
	Type              templating.TemplateType `bson:"type" json:"type"`
	Name              string                  `bson:"name" json:"name"`
	Subject           string                  `bson:"subject" json:"subject"`
	HTML              string                  `bson:"html" json:"html"`
	Text              string                  `bson:"text" json:"text"`
	IsDefault         bool                    `bson:"is_default" json:"isDefault"`
	IsActive          bool                    `bson:"is_active" json:"isActive"`
	templating.Fields `bson:",inline"`
	CreatedAt         time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updatedAt"`
}

// State rebuilds the typed editing state from the stored fields.
func (t *EmailTemplate) State() (templating.State, error) {
	return templating.FromFields(t.Type, t.Subject, t.Fields)
}
