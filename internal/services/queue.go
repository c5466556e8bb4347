package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// EmailJob asks the background worker to render the user's template of Type
// and send it to To. Reference points at the document the email is about
// (an invoice, a client) when there is one.
type EmailJob struct {
	UserID    primitive.ObjectID      `json:"user_id"`
	Type      templating.TemplateType `json:"type"`
	To        string                  `json:"to"`
	Reference string                  `json:"reference,omitempty"`
}

// IJobQueue hands work to the background workers. It is implemented by the
// tasks package; services only depend on this interface.
type IJobQueue interface {
	EnqueueEmail(ctx context.Context, job EmailJob) error
	EnqueueThumbnail(ctx context.Context, attachmentID primitive.ObjectID) error
}
