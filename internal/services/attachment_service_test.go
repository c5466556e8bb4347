package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/utils"
)

func newAttachmentTestService(t *testing.T, dbName string) (IAttachmentService, *memStorage, *mockJobQueue) {
	database := utils.SetupTestDB(t, dbName, db.AttachmentsCollection)
	cfg := &config.Config{
		AttachmentMaxSizeMB:    1,
		AllowedAttachmentMimes: []string{"image/png", "application/pdf"},
	}
	store := newMemStorage()
	queue := &mockJobQueue{}
	return NewAttachmentService(database, cfg, store, queue), store, queue
}

func TestAttachmentService_CreateUploadURL_Rejects(t *testing.T) {
	svc, _, _ := newAttachmentTestService(t, "testdb_attachment_reject")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	_, _, err := svc.CreateUploadURL(ctx, userID, "big.pdf", "application/pdf", 2*1024*1024)
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)

	_, _, err = svc.CreateUploadURL(ctx, userID, "empty.pdf", "application/pdf", 0)
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)

	_, _, err = svc.CreateUploadURL(ctx, userID, "run.exe", "application/x-msdownload", 10)
	assert.ErrorIs(t, err, ErrAttachmentType)
}

func TestAttachmentService_Lifecycle(t *testing.T) {
	svc, store, queue := newAttachmentTestService(t, "testdb_attachment_lifecycle")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	att, uploadURL, err := svc.CreateUploadURL(ctx, userID, "logo sketch.png", "image/png", 4)
	require.NoError(t, err)
	assert.Contains(t, uploadURL, att.Key)
	assert.False(t, att.Uploaded)
	assert.Equal(t, "logo sketch.png", att.OriginalName)

	// Confirming before the upload happened fails.
	_, err = svc.Confirm(ctx, userID, att.ID)
	assert.ErrorIs(t, err, ErrAttachmentNotUploaded)

	require.NoError(t, store.Put(ctx, att.Key, "image/png", []byte("\x89PNG")))
	queue.On("EnqueueThumbnail", mock.Anything, att.ID).Return(nil).Once()

	confirmed, err := svc.Confirm(ctx, userID, att.ID)
	require.NoError(t, err)
	assert.True(t, confirmed.Uploaded)
	assert.Equal(t, int64(4), confirmed.Size)
	assert.Contains(t, confirmed.URL, "?signed")
	queue.AssertExpectations(t)

	// Somebody else cannot attach it.
	_, err = svc.Attach(ctx, primitive.NewObjectID(), []string{att.ID.Hex()})
	assert.ErrorIs(t, err, ErrAttachmentNotUploaded)

	attached, err := svc.Attach(ctx, userID, []string{att.ID.Hex()})
	require.NoError(t, err)
	require.Len(t, attached, 1)
	assert.True(t, attached[0].Attached)

	err = svc.Delete(ctx, userID, att.ID)
	assert.ErrorIs(t, err, ErrAttachmentNotStaged)
	assert.True(t, store.has(att.Key))
}

func TestAttachmentService_ConfirmOversized(t *testing.T) {
	svc, store, _ := newAttachmentTestService(t, "testdb_attachment_oversized")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	att, _, err := svc.CreateUploadURL(ctx, userID, "report.pdf", "application/pdf", 100)
	require.NoError(t, err)
	// The client declared a small file but uploaded a large one.
	require.NoError(t, store.Put(ctx, att.Key, "application/pdf", make([]byte, 2*1024*1024)))

	_, err = svc.Confirm(ctx, userID, att.ID)
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)
	assert.False(t, store.has(att.Key))
}

func TestAttachmentService_OrphansAreRemoved(t *testing.T) {
	svc, store, _ := newAttachmentTestService(t, "testdb_attachment_orphans")
	ctx := context.Background()
	userID := primitive.NewObjectID()

	att, _, err := svc.CreateUploadURL(ctx, userID, "draft.pdf", "application/pdf", 3)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, att.Key, "application/pdf", []byte("pdf")))

	orphans, err := svc.FindOrphans(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, orphans, "fresh uploads are not orphans yet")

	orphans, err = svc.FindOrphans(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, orphans, 1)

	require.NoError(t, svc.Remove(ctx, &orphans[0]))
	assert.False(t, store.has(att.Key))
	// Removing again is harmless.
	require.NoError(t, svc.Remove(ctx, &orphans[0]))

	_, err = svc.FindByID(ctx, att.ID)
	assert.Error(t, err)
}

func TestAttachmentService_AttachInvalidID(t *testing.T) {
	svc, _, _ := newAttachmentTestService(t, "testdb_attachment_invalid")
	_, err := svc.Attach(context.Background(), primitive.NewObjectID(), []string{"not-an-id"})
	assert.Error(t, err)

	atts, err := svc.Attach(context.Background(), primitive.NewObjectID(), nil)
	require.NoError(t, err)
	assert.Empty(t, atts)
}
