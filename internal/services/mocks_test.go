package services

import (
	"context"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/storage"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

type mockJobQueue struct {
	mock.Mock
}

func (m *mockJobQueue) EnqueueEmail(ctx context.Context, job EmailJob) error {
	return m.Called(ctx, job).Error(0)
}

func (m *mockJobQueue) EnqueueThumbnail(ctx context.Context, attachmentID primitive.ObjectID) error {
	return m.Called(ctx, attachmentID).Error(0)
}

// stubProfiles serves a fixed profile and leaves the user methods unused.
type stubProfiles struct {
	profile templating.Profile
	err     error
}

func (s *stubProfiles) FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	return nil, nil
}
func (s *stubProfiles) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}
func (s *stubProfiles) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	return nil, nil
}
func (s *stubProfiles) GetProfile(ctx context.Context, userID primitive.ObjectID) (templating.Profile, error) {
	return s.profile, s.err
}
func (s *stubProfiles) UpdateProfile(ctx context.Context, userID primitive.ObjectID, p templating.Profile) (templating.Profile, error) {
	s.profile = p
	return p, nil
}
func (s *stubProfiles) SubscribeToChanges(ctx context.Context) error { return nil }

// memStorage keeps objects in memory.
type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

var _ storage.IAttachmentStorage = (*memStorage)(nil)

func newMemStorage() *memStorage {
	return &memStorage{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *memStorage) PresignPut(ctx context.Context, ownerID, filename, contentType string) (string, string, error) {
	key := storage.ObjectKey(ownerID, filename)
	return "https://upload.test/" + key, key, nil
}

func (s *memStorage) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://download.test/" + key + "?signed", nil
}

func (s *memStorage) Head(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[key]
	if !ok {
		return 0, storage.ErrObjectNotFound
	}
	return int64(len(body)), nil
}

func (s *memStorage) Get(ctx context.Context, key string) ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, ok := s.objects[key]
	if !ok {
		return nil, "", storage.ErrObjectNotFound
	}
	return body, s.types[key], nil
}

func (s *memStorage) Put(ctx context.Context, key, contentType string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	s.types[key] = contentType
	return nil
}

func (s *memStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return storage.ErrObjectNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *memStorage) PublicURL(key string) string {
	if strings.HasPrefix(key, "public/") {
		return "https://cdn.test/" + key
	}
	return ""
}

func (s *memStorage) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}
