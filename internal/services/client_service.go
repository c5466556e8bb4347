package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// ErrClientID is returned when a referenced client id is not an ObjectID.
var ErrClientID = errors.New("invalid client id")

// IClientService manages the freelancer's clients.
type IClientService interface {
	List(ctx context.Context, userID primitive.ObjectID, status models.ClientStatus) ([]models.Client, error)
	Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Client, error)
	Create(ctx context.Context, userID primitive.ObjectID, form intake.ClientForm) (*models.Client, error)
	Delete(ctx context.Context, userID, id primitive.ObjectID) error
	Count(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type clientService struct {
	db          *mongo.Database
	attachments IAttachmentService
	queue       IJobQueue
}

func NewClientService(db *mongo.Database, attachments IAttachmentService, queue IJobQueue) IClientService {
	return &clientService{db: db, attachments: attachments, queue: queue}
}

func (s *clientService) collection() *mongo.Collection {
	return s.db.Collection(db.ClientsCollection)
}

func (s *clientService) List(ctx context.Context, userID primitive.ObjectID, status models.ClientStatus) ([]models.Client, error) {
	filter := bson.M{"user_id": userID, "deleted": false}
	if status != "" {
		filter["status"] = status
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing clients: %w", err)
	}
	defer cursor.Close(ctx)

	clients := []models.Client{}
	if err := cursor.All(ctx, &clients); err != nil {
		return nil, fmt.Errorf("error decoding clients: %w", err)
	}
	return clients, nil
}

// Get returns a non-deleted client of the user, or mongo.ErrNoDocuments.
func (s *clientService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Client, error) {
	var client models.Client
	err := s.collection().FindOne(ctx, bson.M{"_id": id, "user_id": userID, "deleted": false}).Decode(&client)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding client %s: %w", id.Hex(), err)
	}
	return &client, nil
}

// Create validates the form, attaches its uploaded files and stores the
// client. When the form asks for it, a welcome email is queued.
func (s *clientService) Create(ctx context.Context, userID primitive.ObjectID, form intake.ClientForm) (*models.Client, error) {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}

	atts, err := s.attachments.Attach(ctx, userID, attachmentIDs(form.Attachments))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	client, err := db.InsertOne(ctx, s.collection(), &models.Client{
		UserID:      userID,
		Name:        form.Name,
		Email:       strings.ToLower(form.Email),
		Phone:       form.Phone,
		IsCompany:   form.IsCompany,
		CompanyName: form.CompanyName,
		Notes:       form.Notes,
		Status:      models.ClientStatus(form.Status),
		Attachments: atts,
		Links:       toModelLinks(form.Links),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Created client %s for user %s", client.ID.Hex(), userID.Hex())

	if form.SendWelcome && s.queue != nil {
		job := EmailJob{UserID: userID, Type: templating.TypeWelcome, To: client.Email, Reference: client.ID.Hex()}
		if err := s.queue.EnqueueEmail(ctx, job); err != nil {
			// The client exists; the welcome email can be sent manually.
			log.Printf("ERROR: failed to enqueue welcome email for client %s: %v", client.ID.Hex(), err)
		}
	}
	return client, nil
}

// Delete soft-deletes the client.
func (s *clientService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now().UTC()}}
	result, err := s.collection().UpdateOne(ctx, bson.M{"_id": id, "user_id": userID, "deleted": false}, update)
	if err != nil {
		return fmt.Errorf("error deleting client %s: %w", id.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (s *clientService) Count(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	n, err := s.collection().CountDocuments(ctx, bson.M{"user_id": userID, "deleted": false})
	if err != nil {
		return 0, fmt.Errorf("error counting clients: %w", err)
	}
	return n, nil
}

func attachmentIDs(atts []intake.Attachment) []string {
	ids := make([]string, 0, len(atts))
	for _, a := range atts {
		if a.ID != "" {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func toModelLinks(links []intake.Link) []models.Link {
	out := make([]models.Link, 0, len(links))
	for _, l := range links {
		out = append(out, models.Link{Title: l.Title, URL: l.URL})
	}
	return out
}
