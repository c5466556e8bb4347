package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/utils"
)

var studioNine = templating.Profile{
	BusinessName:      "Studio Nine",
	Email:             "hello@studio9.test",
	PreferredCurrency: "EUR",
}

func newTemplateTestService(t *testing.T, dbName string) IEmailTemplateService {
	database := utils.SetupTestDB(t, dbName, db.EmailTemplatesCollection)
	require.NoError(t, db.EnsureIndexes(context.Background(), database))
	return NewEmailTemplateService(database, &stubProfiles{profile: studioNine})
}

func welcomeInput(t *testing.T) TemplateInput {
	state, err := templating.Defaults(templating.TypeWelcome, studioNine)
	require.NoError(t, err)
	return TemplateInput{Type: templating.TypeWelcome, Subject: state.SubjectLine(), Fields: state.Fields()}
}

func TestEmailTemplateService_GetForTypeFallsBackToDefault(t *testing.T) {
	svc := newTemplateTestService(t, "testdb_template_default")
	userID := primitive.NewObjectID()

	tpl, err := svc.GetForType(context.Background(), userID, templating.TypeFollowUp)
	require.NoError(t, err)
	assert.True(t, tpl.ID.IsZero(), "defaults are not saved")
	assert.True(t, tpl.IsDefault)
	assert.Equal(t, "Follow-up Email", tpl.Name)
	assert.Contains(t, tpl.HTML, "Studio Nine")
	assert.NotEmpty(t, tpl.Text)
}

func TestEmailTemplateService_CreateUpdate(t *testing.T) {
	svc := newTemplateTestService(t, "testdb_template_create")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	in := welcomeInput(t)
	in.Intro = "<script>alert(1)</script>"
	created, err := svc.Create(ctx, userID, in)
	require.NoError(t, err)
	assert.Equal(t, "Welcome Email", created.Name)
	assert.True(t, created.IsActive)
	assert.NotContains(t, created.HTML, "<script>")

	_, err = svc.Create(ctx, userID, welcomeInput(t))
	assert.ErrorIs(t, err, ErrTemplateExists)

	saved, err := svc.GetForType(ctx, userID, templating.TypeWelcome)
	require.NoError(t, err)
	assert.Equal(t, created.ID, saved.ID)

	in = welcomeInput(t)
	in.Name = "My Welcome"
	in.Subject = "Hi there"
	in.NextSteps = []string{"Book a call"}
	inactive := false
	in.IsActive = &inactive
	updated, err := svc.Update(ctx, userID, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "My Welcome", updated.Name)
	assert.Equal(t, "Hi there", updated.Subject)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{"Book a call"}, updated.NextSteps)

	got, err := svc.Get(ctx, userID, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", got.Subject)
	state, err := got.State()
	require.NoError(t, err)
	assert.Equal(t, templating.TypeWelcome, state.Kind())

	// Another user cannot see it.
	_, err = svc.Get(ctx, primitive.NewObjectID(), created.ID)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	require.NoError(t, svc.Delete(ctx, userID, created.ID))
	assert.ErrorIs(t, svc.Delete(ctx, userID, created.ID), mongo.ErrNoDocuments)
}

func TestEmailTemplateService_UpdateRejectsTypeChange(t *testing.T) {
	svc := newTemplateTestService(t, "testdb_template_type_change")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	created, err := svc.Create(ctx, userID, welcomeInput(t))
	require.NoError(t, err)

	state, err := templating.Defaults(templating.TypeFollowUp, studioNine)
	require.NoError(t, err)
	_, err = svc.Update(ctx, userID, created.ID, TemplateInput{Type: templating.TypeFollowUp, Subject: state.SubjectLine(), Fields: state.Fields()})

	var verr *templating.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "type")
}

func TestEmailTemplateService_PreviewValidates(t *testing.T) {
	svc := newTemplateTestService(t, "testdb_template_preview")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	rendered, err := svc.Preview(ctx, userID, welcomeInput(t))
	require.NoError(t, err)
	assert.Contains(t, rendered.HTML, "Studio Nine")

	in := welcomeInput(t)
	in.Services = nil
	_, err = svc.Preview(ctx, userID, in)
	var verr *templating.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "services")

	_, err = svc.Preview(ctx, userID, TemplateInput{Type: "newsletter"})
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "type")
}

func TestTemplateInput_InvoiceAmountsFromQuantityAndPrice(t *testing.T) {
	in := TemplateInput{
		Type:    templating.TypeInvoice,
		Subject: "Invoice from Studio Nine",
		Fields: templating.Fields{
			Header:         &templating.Header{Title: "INVOICE"},
			Items:          []templating.LineItem{{Description: "Design", Quantity: 2, UnitPrice: 50}},
			PaymentMethods: []string{"Bank transfer"},
		},
	}
	state, err := in.State()
	require.NoError(t, err)

	rendered, err := templating.Render(state, studioNine)
	require.NoError(t, err)
	assert.Contains(t, rendered.HTML, "Total</td><td>€100.00</td>")
	assert.NotContains(t, rendered.HTML, "€0.00")
}
