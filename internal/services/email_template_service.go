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
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// ErrTemplateExists is returned when the user already has a template of the type.
var ErrTemplateExists = errors.New("a template of this type already exists")

// TemplateInput is the editable part of an email template. HTML and text
// sent by callers are ignored; both are rendered from the fields.
type TemplateInput struct {
	Type      templating.TemplateType `json:"type" binding:"required"`
	Name      string                  `json:"name"`
	Subject   string                  `json:"subject"`
	IsDefault bool                    `json:"isDefault"`
	IsActive  *bool                   `json:"isActive"`
	templating.Fields
}

// State validates the input and returns its typed state.
func (in TemplateInput) State() (templating.State, error) {
	if !in.Type.Valid() {
		return nil, &templating.ValidationError{Fields: map[string]string{"type": fmt.Sprintf("Unknown template type %q", in.Type)}}
	}
	s, err := templating.FromFields(in.Type, strings.TrimSpace(in.Subject), in.Fields)
	if err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// IEmailTemplateService defines the interface for email template operations.
type IEmailTemplateService interface {
	List(ctx context.Context, userID primitive.ObjectID, t templating.TemplateType) ([]models.EmailTemplate, error)
	Get(ctx context.Context, userID, id primitive.ObjectID) (*models.EmailTemplate, error)
	GetForType(ctx context.Context, userID primitive.ObjectID, t templating.TemplateType) (*models.EmailTemplate, error)
	Create(ctx context.Context, userID primitive.ObjectID, in TemplateInput) (*models.EmailTemplate, error)
	Update(ctx context.Context, userID, id primitive.ObjectID, in TemplateInput) (*models.EmailTemplate, error)
	Delete(ctx context.Context, userID, id primitive.ObjectID) error
	Preview(ctx context.Context, userID primitive.ObjectID, in TemplateInput) (templating.Rendered, error)
}

type emailTemplateService struct {
	db       *mongo.Database
	profiles IProfileService
}

// NewEmailTemplateService creates a new EmailTemplateService.
func NewEmailTemplateService(db *mongo.Database, profiles IProfileService) IEmailTemplateService {
	return &emailTemplateService{db: db, profiles: profiles}
}

func (s *emailTemplateService) collection() *mongo.Collection {
	return s.db.Collection(db.EmailTemplatesCollection)
}

// List returns the user's templates, newest first. An empty t lists all types.
func (s *emailTemplateService) List(ctx context.Context, userID primitive.ObjectID, t templating.TemplateType) ([]models.EmailTemplate, error) {
	filter := bson.M{"user_id": userID}
	if t != "" {
		filter["type"] = t
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cursor, err := s.collection().Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing templates: %w", err)
	}
	defer cursor.Close(ctx)

	templates := []models.EmailTemplate{}
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("error decoding templates: %w", err)
	}
	return templates, nil
}

// Get retrieves one of the user's templates. Returns mongo.ErrNoDocuments if
// it does not exist or belongs to someone else.
func (s *emailTemplateService) Get(ctx context.Context, userID, id primitive.ObjectID) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	err := s.collection().FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&template)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error retrieving template %s: %w", id.Hex(), err)
	}
	return &template, nil
}

// GetForType returns the user's template of type t. When none has been saved
// the default content is rendered for the user's profile and returned
// unsaved, with IsDefault set.
func (s *emailTemplateService) GetForType(ctx context.Context, userID primitive.ObjectID, t templating.TemplateType) (*models.EmailTemplate, error) {
	var template models.EmailTemplate
	err := s.collection().FindOne(ctx, bson.M{"user_id": userID, "type": t}).Decode(&template)
	if err == nil {
		return &template, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("error retrieving %s template: %w", t, err)
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for default %s template: %w", t, err)
	}
	state, err := templating.Defaults(t, profile)
	if err != nil {
		return nil, err
	}
	rendered, err := templating.Render(state, profile)
	if err != nil {
		return nil, err
	}
	return &models.EmailTemplate{
		UserID:    userID,
		Type:      t,
		Name:      t.DisplayName(),
		Subject:   rendered.Subject,
		HTML:      rendered.HTML,
		Text:      rendered.Text,
		IsDefault: true,
		IsActive:  true,
		Fields:    state.Fields(),
	}, nil
}

// render validates in and renders it with the user's current profile.
func (s *emailTemplateService) render(ctx context.Context, userID primitive.ObjectID, in TemplateInput) (templating.State, templating.Rendered, error) {
	state, err := in.State()
	if err != nil {
		return nil, templating.Rendered{}, err
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, templating.Rendered{}, fmt.Errorf("failed to load profile: %w", err)
	}
	rendered, err := templating.Render(state, profile)
	if err != nil {
		return nil, templating.Rendered{}, err
	}
	return state, rendered, nil
}

// Create stores a new template. A user has at most one template per type;
// a second one returns ErrTemplateExists.
func (s *emailTemplateService) Create(ctx context.Context, userID primitive.ObjectID, in TemplateInput) (*models.EmailTemplate, error) {
	state, rendered, err := s.render(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &models.EmailTemplate{
		UserID:    userID,
		Type:      state.Kind(),
		Name:      nameOrDefault(in.Name, state.Kind()),
		Subject:   rendered.Subject,
		HTML:      rendered.HTML,
		Text:      rendered.Text,
		IsDefault: in.IsDefault,
		IsActive:  in.IsActive == nil || *in.IsActive,
		Fields:    state.Fields(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	// The (user_id, type) index makes a duplicate fail on every retry.
	doc, err = db.InsertOne(ctx, s.collection(), doc)
	if err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			return nil, ErrTemplateExists
		}
		return nil, err
	}
	log.Printf("Created %s template %s for user %s", doc.Type, doc.ID.Hex(), userID.Hex())
	return doc, nil
}

// Update overwrites the template in place. The type of a template never changes.
func (s *emailTemplateService) Update(ctx context.Context, userID, id primitive.ObjectID, in TemplateInput) (*models.EmailTemplate, error) {
	existing, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if in.Type != existing.Type {
		return nil, &templating.ValidationError{Fields: map[string]string{"type": "Template type cannot be changed"}}
	}
	state, rendered, err := s.render(ctx, userID, in)
	if err != nil {
		return nil, err
	}

	existing.Name = nameOrDefault(in.Name, existing.Type)
	existing.Subject = rendered.Subject
	existing.HTML = rendered.HTML
	existing.Text = rendered.Text
	existing.IsDefault = in.IsDefault
	if in.IsActive != nil {
		existing.IsActive = *in.IsActive
	}
	existing.Fields = state.Fields()
	existing.UpdatedAt = time.Now().UTC()

	// Replace rather than $set so fields of the old content do not linger.
	result, err := s.collection().ReplaceOne(ctx, bson.M{"_id": id, "user_id": userID}, existing)
	if err != nil {
		return nil, fmt.Errorf("error saving template %s: %w", id.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return nil, mongo.ErrNoDocuments
	}
	return existing, nil
}

func (s *emailTemplateService) Delete(ctx context.Context, userID, id primitive.ObjectID) error {
	result, err := s.collection().DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return fmt.Errorf("error deleting template %s: %w", id.Hex(), err)
	}
	if result.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// Preview renders in without saving it.
func (s *emailTemplateService) Preview(ctx context.Context, userID primitive.ObjectID, in TemplateInput) (templating.Rendered, error) {
	_, rendered, err := s.render(ctx, userID, in)
	return rendered, err
}

func nameOrDefault(name string, t templating.TemplateType) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return t.DisplayName()
}
