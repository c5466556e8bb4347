package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/storage"
)

var (
	ErrAttachmentTooLarge    = errors.New("attachment exceeds the maximum size")
	ErrAttachmentType        = errors.New("attachment type is not allowed")
	ErrAttachmentNotStaged   = errors.New("attachment is already attached")
	ErrAttachmentNotUploaded = errors.New("attachment upload was not completed")
	ErrAttachmentID          = errors.New("invalid attachment id")
)

// IAttachmentService manages the upload lifecycle of attachments: a slot is
// created with a presigned URL, the upload is confirmed, and the attachment
// is finally attached to a client or project. Staged attachments that are
// never attached are removed by the cleanup task.
type IAttachmentService interface {
	CreateUploadURL(ctx context.Context, userID primitive.ObjectID, filename, mimeType string, size int64) (*models.Attachment, string, error)
	Confirm(ctx context.Context, userID, id primitive.ObjectID) (*models.Attachment, error)
	Delete(ctx context.Context, userID, id primitive.ObjectID) error
	Attach(ctx context.Context, userID primitive.ObjectID, ids []string) ([]models.Attachment, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Attachment, error)
	SetPreview(ctx context.Context, id primitive.ObjectID, previewKey string) error
	FindOrphans(ctx context.Context, olderThan time.Time) ([]models.Attachment, error)
	Remove(ctx context.Context, a *models.Attachment) error
}

type attachmentService struct {
	db      *mongo.Database
	cfg     *config.Config
	storage storage.IAttachmentStorage
	queue   IJobQueue
}

func NewAttachmentService(db *mongo.Database, cfg *config.Config, store storage.IAttachmentStorage, queue IJobQueue) IAttachmentService {
	return &attachmentService{db: db, cfg: cfg, storage: store, queue: queue}
}

func (s *attachmentService) collection() *mongo.Collection {
	return s.db.Collection(db.AttachmentsCollection)
}

func (s *attachmentService) maxSize() int64 {
	return int64(s.cfg.AttachmentMaxSizeMB) * 1024 * 1024
}

// CreateUploadURL records a staged attachment and returns it with the URL the
// file must be PUT to.
func (s *attachmentService) CreateUploadURL(ctx context.Context, userID primitive.ObjectID, filename, mimeType string, size int64) (*models.Attachment, string, error) {
	if size <= 0 || size > s.maxSize() {
		return nil, "", ErrAttachmentTooLarge
	}
	if len(s.cfg.AllowedAttachmentMimes) > 0 && !slices.Contains(s.cfg.AllowedAttachmentMimes, mimeType) {
		return nil, "", ErrAttachmentType
	}

	uploadURL, key, err := s.storage.PresignPut(ctx, userID.Hex(), filename, mimeType)
	if err != nil {
		return nil, "", fmt.Errorf("failed to presign upload for %s: %w", filename, err)
	}

	now := time.Now().UTC()
	att, err := db.InsertOne(ctx, s.collection(), &models.Attachment{
		OwnerID:      userID,
		Filename:     storage.SanitizeFilename(filename),
		OriginalName: filename,
		MimeType:     mimeType,
		Size:         size,
		Key:          key,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, "", err
	}
	return att, uploadURL, nil
}

func (s *attachmentService) findOwned(ctx context.Context, userID, id primitive.ObjectID) (*models.Attachment, error) {
	var att models.Attachment
	err := s.collection().FindOne(ctx, bson.M{"_id": id, "owner_id": userID}).Decode(&att)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding attachment %s: %w", id.Hex(), err)
	}
	return &att, nil
}

func (s *attachmentService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Attachment, error) {
	var att models.Attachment
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&att)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding attachment %s: %w", id.Hex(), err)
	}
	return &att, nil
}

// Confirm checks that the object exists in storage, records its real size
// and URL, and queues thumbnail generation for images.
func (s *attachmentService) Confirm(ctx context.Context, userID, id primitive.ObjectID) (*models.Attachment, error) {
	att, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if att.Uploaded {
		return att, nil
	}

	size, err := s.storage.Head(ctx, att.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, ErrAttachmentNotUploaded
		}
		return nil, err
	}
	if size > s.maxSize() {
		if delErr := s.storage.Delete(ctx, att.Key); delErr != nil {
			log.Printf("Failed to delete oversized upload %s: %v", att.Key, delErr)
		}
		return nil, ErrAttachmentTooLarge
	}

	url := s.storage.PublicURL(att.Key)
	if url == "" {
		if url, err = s.storage.PresignGet(ctx, att.Key); err != nil {
			return nil, err
		}
	}
	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"uploaded": true, "size": size, "url": url, "uploaded_at": now}}
	if _, err := s.collection().UpdateByID(ctx, id, update); err != nil {
		return nil, fmt.Errorf("error confirming attachment %s: %w", id.Hex(), err)
	}
	att.Uploaded, att.Size, att.URL, att.UploadedAt = true, size, url, now

	if att.IsImage() && s.queue != nil {
		if err := s.queue.EnqueueThumbnail(ctx, att.ID); err != nil {
			// The attachment stays usable without a preview.
			log.Printf("ERROR: failed to enqueue thumbnail for attachment %s: %v", att.ID.Hex(), err)
		}
	}
	return att, nil
}

// Delete removes a staged attachment the user decided not to submit.
func (s *attachmentService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	att, err := s.findOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	if att.Attached {
		return ErrAttachmentNotStaged
	}
	return s.Remove(ctx, att)
}

// Attach marks the given uploaded attachments as attached and returns them in
// the order of ids. Unknown, foreign or unconfirmed ids fail the whole call.
func (s *attachmentService) Attach(ctx context.Context, userID primitive.ObjectID, ids []string) ([]models.Attachment, error) {
	if len(ids) == 0 {
		return []models.Attachment{}, nil
	}
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, raw := range ids {
		oid, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %q", ErrAttachmentID, raw)
		}
		oids = append(oids, oid)
	}

	filter := bson.M{"_id": bson.M{"$in": oids}, "owner_id": userID, "uploaded": true}
	cursor, err := s.collection().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("error loading attachments: %w", err)
	}
	var found []models.Attachment
	if err := cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("error decoding attachments: %w", err)
	}
	byID := make(map[primitive.ObjectID]models.Attachment, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	out := make([]models.Attachment, 0, len(oids))
	for _, oid := range oids {
		a, ok := byID[oid]
		if !ok {
			return nil, fmt.Errorf("attachment %s: %w", oid.Hex(), ErrAttachmentNotUploaded)
		}
		a.Attached = true
		out = append(out, a)
	}

	if _, err := s.collection().UpdateMany(ctx, bson.M{"_id": bson.M{"$in": oids}}, bson.M{"$set": bson.M{"attached": true}}); err != nil {
		return nil, fmt.Errorf("error attaching attachments: %w", err)
	}
	return out, nil
}

func (s *attachmentService) SetPreview(ctx context.Context, id primitive.ObjectID, previewKey string) error {
	previewURL := s.storage.PublicURL(previewKey)
	if previewURL == "" {
		var err error
		if previewURL, err = s.storage.PresignGet(ctx, previewKey); err != nil {
			return err
		}
	}
	update := bson.M{"$set": bson.M{"preview_key": previewKey, "preview_url": previewURL}}
	result, err := s.collection().UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("error setting preview of attachment %s: %w", id.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// FindOrphans returns staged attachments created before olderThan.
func (s *attachmentService) FindOrphans(ctx context.Context, olderThan time.Time) ([]models.Attachment, error) {
	filter := bson.M{"attached": false, "created_at": bson.M{"$lt": olderThan}}
	cursor, err := s.collection().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query orphan attachments: %w", err)
	}
	defer cursor.Close(ctx)

	var orphans []models.Attachment
	if err := cursor.All(ctx, &orphans); err != nil {
		return nil, fmt.Errorf("failed to decode orphan attachments: %w", err)
	}
	return orphans, nil
}

// Remove deletes the stored objects of a and then its record. Missing objects
// are not an error, so a partly removed attachment can be removed again.
func (s *attachmentService) Remove(ctx context.Context, a *models.Attachment) error {
	for _, key := range []string{a.Key, a.PreviewKey} {
		if key == "" {
			continue
		}
		if err := s.storage.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("failed to delete object %s: %w", key, err)
		}
	}
	if _, err := s.collection().DeleteOne(ctx, bson.M{"_id": a.ID}); err != nil {
		return fmt.Errorf("error deleting attachment %s: %w", a.ID.Hex(), err)
	}
	return nil
}
