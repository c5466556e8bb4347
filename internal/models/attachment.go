package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attachment is an uploaded file. It starts staged (Attached=false) and is
// attached once a client or project referencing it is created. Staged
// attachments older than the orphan TTL are removed by the cleanup task.
type Attachment struct {
	Base         `bson:",inline"`
	OwnerID      primitive.ObjectID `bson:"owner_id" json:"-"`
	Filename     string             `bson:"filename" json:"filename"`
	OriginalName string             `bson:"original_name" json:"originalName"`
	MimeType     string             `bson:"mime_type" json:"mimeType"`
	Size         int64              `bson:"size" json:"size"`
	URL          string             `bson:"url" json:"url"`
	PreviewURL   string             `bson:"preview_url,omitempty" json:"previewUrl,omitempty"`
	Key          string             `bson:"key" json:"-"`
	PreviewKey   string             `bson:"preview_key,omitempty" json:"-"`
	Uploaded     bool               `bson:"uploaded" json:"uploaded"` // Set on confirm
	Attached     bool               `bson:"attached" json:"attached"`
	UploadedAt   time.Time          `bson:"uploaded_at" json:"uploadedAt"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
}

// IsImage reports whether a thumbnail can be generated for the attachment.
func (a *Attachment) IsImage() bool {
	switch a.MimeType {
	case "image/jpeg", "image/png", "image/gif":
		return true
	}
	return false
}
