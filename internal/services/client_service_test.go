package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/intake"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/utils"
)

type crmFixture struct {
	db          *mongo.Database
	store       *memStorage
	queue       *mockJobQueue
	attachments IAttachmentService
	clients     IClientService
	projects    IProjectService
}

func newCRMFixture(t *testing.T, dbName string) *crmFixture {
	database := utils.SetupTestDB(t, dbName,
		db.ClientsCollection, db.ProjectsCollection, db.AttachmentsCollection, db.InvoicesCollection, db.BookingsCollection)
	cfg := &config.Config{AttachmentMaxSizeMB: 1}
	f := &crmFixture{db: database, store: newMemStorage(), queue: &mockJobQueue{}}
	f.attachments = NewAttachmentService(database, cfg, f.store, f.queue)
	f.clients = NewClientService(database, f.attachments, f.queue)
	f.projects = NewProjectService(database, f.clients, f.attachments)
	return f
}

// uploaded stages and confirms a pdf attachment for userID.
func (f *crmFixture) uploaded(t *testing.T, userID primitive.ObjectID, name string) *models.Attachment {
	ctx := context.Background()
	att, _, err := f.attachments.CreateUploadURL(ctx, userID, name, "application/pdf", 3)
	require.NoError(t, err)
	require.NoError(t, f.store.Put(ctx, att.Key, "application/pdf", []byte("pdf")))
	att, err = f.attachments.Confirm(ctx, userID, att.ID)
	require.NoError(t, err)
	return att
}

func TestClientService_Create(t *testing.T) {
	f := newCRMFixture(t, "testdb_client_create")
	ctx := context.Background()
	userID := primitive.NewObjectID()
	att := f.uploaded(t, userID, "brief.pdf")

	f.queue.On("EnqueueEmail", mock.Anything, mock.MatchedBy(func(job EmailJob) bool {
		return job.Type == templating.TypeWelcome && job.To == "ada@example.com" && job.UserID == userID
	})).Return(nil).Once()

	client, err := f.clients.Create(ctx, userID, intake.ClientForm{
		Name:        "  Ada Lovelace ",
		Email:       "Ada@Example.com",
		SendWelcome: true,
		Attachments: []intake.Attachment{{ID: att.ID.Hex()}},
		Links:       []intake.Link{{Title: "Site", URL: "https://ada.example.com"}},
	})
	require.NoError(t, err)
	f.queue.AssertExpectations(t)

	assert.Equal(t, "Ada Lovelace", client.Name)
	assert.Equal(t, "ada@example.com", client.Email)
	assert.Equal(t, models.ClientStatusActive, client.Status)
	require.Len(t, client.Attachments, 1)
	assert.Equal(t, att.ID, client.Attachments[0].ID)
	require.Len(t, client.Links, 1)

	stored, err := f.clients.Get(ctx, userID, client.ID)
	require.NoError(t, err)
	assert.Equal(t, client.Email, stored.Email)

	// The attachment is no longer staged.
	orphans, err := f.attachments.FindOrphans(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, orphans)

	n, err := f.clients.Count(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestClientService_CreateInvalid(t *testing.T) {
	f := newCRMFixture(t, "testdb_client_invalid")
	_, err := f.clients.Create(context.Background(), primitive.NewObjectID(), intake.ClientForm{Name: "A", Email: "nope"})

	var verr *intake.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "email")
	f.queue.AssertNotCalled(t, "EnqueueEmail", mock.Anything, mock.Anything)
}

func TestClientService_WelcomeFailureKeepsClient(t *testing.T) {
	f := newCRMFixture(t, "testdb_client_welcome_failure")
	ctx := context.Background()
	userID := primitive.NewObjectID()
	f.queue.On("EnqueueEmail", mock.Anything, mock.Anything).Return(errors.New("redis down")).Once()

	client, err := f.clients.Create(ctx, userID, intake.ClientForm{Name: "Grace Hopper", Email: "grace@example.com", SendWelcome: true})
	require.NoError(t, err)
	_, err = f.clients.Get(ctx, userID, client.ID)
	assert.NoError(t, err)
}

func TestClientService_ScopedToUserAndSoftDelete(t *testing.T) {
	f := newCRMFixture(t, "testdb_client_delete")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	client, err := f.clients.Create(ctx, userID, intake.ClientForm{Name: "Linus", Email: "linus@example.com"})
	require.NoError(t, err)

	_, err = f.clients.Get(ctx, primitive.NewObjectID(), client.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	require.NoError(t, f.clients.Delete(ctx, userID, client.ID))
	assert.ErrorIs(t, f.clients.Delete(ctx, userID, client.ID), mongo.ErrNoDocuments)

	list, err := f.clients.List(ctx, userID, "")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestProjectService_Create(t *testing.T) {
	f := newCRMFixture(t, "testdb_project_create")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	client, err := f.clients.Create(ctx, userID, intake.ClientForm{Name: "Studio Nine", Email: "hi@studio9.test"})
	require.NoError(t, err)

	form := intake.ProjectForm{ClientID: client.ID.Hex(), Name: "Rebrand", StartDate: time.Now()}
	_, err = form.AddTask("Moodboard", nil)
	require.NoError(t, err)
	_, err = form.AddTask("Logo drafts", nil)
	require.NoError(t, err)

	project, err := f.projects.Create(ctx, userID, form)
	require.NoError(t, err)
	assert.Equal(t, models.ProjectStatusPlanning, project.Status)
	require.Len(t, project.Tasks, 2)
	assert.False(t, project.Tasks[0].ID.IsZero())
	assert.NotEqual(t, project.Tasks[0].ID, project.Tasks[1].ID)
	assert.Equal(t, "Moodboard", project.Tasks[0].Name)

	byClient, err := f.projects.List(ctx, userID, &client.ID)
	require.NoError(t, err)
	require.Len(t, byClient, 1)

	active, err := f.projects.CountActive(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), active)
}

func TestProjectService_CreateUnknownClient(t *testing.T) {
	f := newCRMFixture(t, "testdb_project_unknown_client")
	ctx := context.Background()
	form := intake.ProjectForm{ClientID: primitive.NewObjectID().Hex(), Name: "Ghost", StartDate: time.Now()}

	_, err := f.projects.Create(ctx, primitive.NewObjectID(), form)
	var verr *intake.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "clientId")

	form.ClientID = "bogus"
	_, err = f.projects.Create(ctx, primitive.NewObjectID(), form)
	require.True(t, errors.As(err, &verr))
}
