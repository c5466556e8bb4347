package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
)

// IProjectService manages projects and their tasks.
type IProjectService interface {
	List(ctx context.Context, userID primitive.ObjectID, clientID *primitive.ObjectID) ([]models.Project, error)
	Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Project, error)
	Create(ctx context.Context, userID primitive.ObjectID, form intake.ProjectForm) (*models.Project, error)
	CountActive(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

type projectService struct {
	db          *mongo.Database
	clients     IClientService
	attachments IAttachmentService
}

func NewProjectService(db *mongo.Database, clients IClientService, attachments IAttachmentService) IProjectService {
	return &projectService{db: db, clients: clients, attachments: attachments}
}

func (s *projectService) collection() *mongo.Collection {
	return s.db.Collection(db.ProjectsCollection)
}

func (s *projectService) List(ctx context.Context, userID primitive.ObjectID, clientID *primitive.ObjectID) ([]models.Project, error) {
	filter := bson.M{"user_id": userID, "deleted": false}
	if clientID != nil {
		filter["client_id"] = *clientID
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_date", Value: -1}})
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing projects: %w", err)
	}
	defer cursor.Close(ctx)

	projects := []models.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("error decoding projects: %w", err)
	}
	return projects, nil
}

func (s *projectService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.Project, error) {
	var project models.Project
	err := s.collection().FindOne(ctx, bson.M{"_id": id, "user_id": userID, "deleted": false}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding project %s: %w", id.Hex(), err)
	}
	return &project, nil
}

// Create validates the form, checks that the client belongs to the user and
// stores the project. Quick tasks get real ids in place of their temporary ones.
func (s *projectService) Create(ctx context.Context, userID primitive.ObjectID, form intake.ProjectForm) (*models.Project, error) {
	form = form.Normalize()
	if err := form.Validate(); err != nil {
		return nil, err
	}
	clientID, err := primitive.ObjectIDFromHex(form.ClientID)
	if err != nil {
		return nil, &intake.ValidationError{Fields: map[string]string{"clientId": "Please select a valid client"}}
	}
	if _, err := s.clients.Get(ctx, userID, clientID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, &intake.ValidationError{Fields: map[string]string{"clientId": "Client not found"}}
		}
		return nil, err
	}

	atts, err := s.attachments.Attach(ctx, userID, attachmentIDs(form.Attachments))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	project, err := db.InsertOne(ctx, s.collection(), &models.Project{
		UserID:      userID,
		ClientID:    clientID,
		Name:        form.Name,
		Description: form.Description,
		StartDate:   form.StartDate,
		EndDate:     form.EndDate,
		DueDate:     form.DueDate,
		Status:      models.ProjectStatus(form.Status),
		Budget:      form.Budget,
		Tasks:       toModelTasks(form.Tasks, now),
		Attachments: atts,
		Links:       toModelLinks(form.Links),
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}
	log.Printf("Created project %s for client %s", project.ID.Hex(), clientID.Hex())
	return project, nil
}

func (s *projectService) CountActive(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	filter := bson.M{
		"user_id": userID,
		"deleted": false,
		"status":  bson.M{"$in": []models.ProjectStatus{models.ProjectStatusPlanning, models.ProjectStatusInProgress}},
	}
	n, err := s.collection().CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("error counting projects: %w", err)
	}
	return n, nil
}

// toModelTasks drops the temporary ids of quick tasks and assigns real ones.
func toModelTasks(tasks []intake.Task, now time.Time) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		created := t.CreatedAt
		if created.IsZero() {
			created = now
		}
		out = append(out, models.Task{
			ID:        primitive.NewObjectID(),
			Name:      t.Name,
			DueDate:   t.DueDate,
			Completed: t.Completed,
			CreatedAt: created,
		})
	}
	return out
}
