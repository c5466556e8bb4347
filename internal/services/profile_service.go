package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/cache"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
)

// ErrEmailExists is returned when an attempt is made to use an email that already exists.
var ErrEmailExists = errors.New("email already in use by another account")

// ProfileUpdateChannel carries the cache key of every updated profile.
const ProfileUpdateChannel = "profile_updates"

// IProfileService reads users and the business profile used to render
// email templates.
type IProfileService interface {
	FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, name, email string) (*models.User, error)
	GetProfile(ctx context.Context, userID primitive.ObjectID) (templating.Profile, error)
	UpdateProfile(ctx context.Context, userID primitive.ObjectID, p templating.Profile) (templating.Profile, error)
	SubscribeToChanges(ctx context.Context) error
}

// profileService caches profiles in process and in redis. Updates delete the
// redis entry and announce the key on ProfileUpdateChannel so that every
// process drops its in-process copy.
type profileService struct {
	db    *mongo.Database
	cfg   *config.Config
	rdb   *redis.Client
	cache map[string]templating.Profile
	mutex sync.RWMutex
}

// NewProfileService creates a ProfileService. rdb may be nil, in which case
// only the in-process cache is used.
func NewProfileService(db *mongo.Database, cfg *config.Config, rdb *redis.Client) IProfileService {
	return &profileService{
		db:    db,
		cfg:   cfg,
		rdb:   rdb,
		cache: make(map[string]templating.Profile),
	}
}

func profileCacheKey(userID primitive.ObjectID) string {
	return "profile:" + userID.Hex()
}

// FindUserByID finds a non-deleted user by their ID.
// Returns nil and mongo.ErrNoDocuments if not found.
func (s *profileService) FindUserByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	filter := bson.M{"_id": userID, "deleted": false}
	err := s.db.Collection(db.UsersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by ID %s: %w", userID.Hex(), err)
	}
	return &user, nil
}

// FindUserByEmail finds a non-deleted user by their email address.
func (s *profileService) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email)), "deleted": false}
	err := s.db.Collection(db.UsersCollection).FindOne(ctx, filter).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, mongo.ErrNoDocuments
		}
		return nil, fmt.Errorf("error finding user by email %s: %w", email, err)
	}
	return &user, nil
}

// CreateUser creates an account with an empty profile. Signup itself lives
// outside this service; this is used to provision accounts.
func (s *profileService) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	collection := s.db.Collection(db.UsersCollection)

	count, err := collection.CountDocuments(ctx, bson.M{"email": email, "deleted": false})
	if err != nil {
		return nil, fmt.Errorf("error checking email uniqueness for %s: %w", email, err)
	}
	if count > 0 {
		return nil, ErrEmailExists
	}

	now := time.Now().UTC()
	user, err := db.InsertOne(ctx, collection, &models.User{
		Name:  name,
		Email: email,
		Profile: templating.Profile{
			BusinessName:      name,
			Email:             email,
			PreferredCurrency: s.cfg.DefaultCurrency,
		},
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("error inserting user %s: %w", email, err)
	}
	return user, nil
}

// GetProfile returns the user's business profile. Lookups go through the
// in-process cache, then redis, then MongoDB.
func (s *profileService) GetProfile(ctx context.Context, userID primitive.ObjectID) (templating.Profile, error) {
	key := profileCacheKey(userID)

	s.mutex.RLock()
	p, ok := s.cache[key]
	s.mutex.RUnlock()
	if ok {
		return p, nil
	}

	if s.rdb != nil {
		err := cache.GetJSON(ctx, s.rdb, key, &p)
		if err == nil {
			s.store(key, p)
			return p, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			log.Printf("Warning: profile cache read failed for %s: %v", userID.Hex(), err)
		}
	}

	user, err := s.FindUserByID(ctx, userID)
	if err != nil {
		return templating.Profile{}, err
	}
	p = user.Profile
	if p.PreferredCurrency == "" {
		p.PreferredCurrency = s.cfg.DefaultCurrency
	}

	if s.rdb != nil {
		if err := cache.SetJSON(ctx, s.rdb, key, p, s.cfg.ProfileCacheTTL); err != nil {
			log.Printf("Warning: profile cache write failed for %s: %v", userID.Hex(), err)
		}
	}
	s.store(key, p)
	return p, nil
}

func (s *profileService) store(key string, p templating.Profile) {
	s.mutex.Lock()
	s.cache[key] = p
	s.mutex.Unlock()
}

func (s *profileService) drop(key string) {
	s.mutex.Lock()
	delete(s.cache, key)
	s.mutex.Unlock()
}

// UpdateProfile writes the profile to MongoDB and invalidates every cached copy.
func (s *profileService) UpdateProfile(ctx context.Context, userID primitive.ObjectID, p templating.Profile) (templating.Profile, error) {
	p.BusinessName = strings.TrimSpace(p.BusinessName)
	p.Email = strings.TrimSpace(p.Email)
	p.Website = strings.TrimSpace(p.Website)
	p.PreferredCurrency = strings.ToUpper(strings.TrimSpace(p.PreferredCurrency))
	if p.PreferredCurrency == "" {
		p.PreferredCurrency = s.cfg.DefaultCurrency
	}

	update := bson.M{"$set": bson.M{"profile": p, "updated_at": time.Now().UTC()}}
	result, err := s.db.Collection(db.UsersCollection).UpdateOne(ctx, bson.M{"_id": userID, "deleted": false}, update)
	if err != nil {
		return templating.Profile{}, fmt.Errorf("error updating profile of user %s: %w", userID.Hex(), err)
	}
	if result.MatchedCount == 0 {
		return templating.Profile{}, mongo.ErrNoDocuments
	}

	key := profileCacheKey(userID)
	s.drop(key)
	if s.rdb != nil {
		if err := cache.Invalidate(ctx, s.rdb, ProfileUpdateChannel, key); err != nil {
			// Entries still expire after ProfileCacheTTL.
			log.Printf("ERROR: failed to invalidate cached profile %s: %v", userID.Hex(), err)
		}
	}
	log.Printf("Profile updated for user %s", userID.Hex())
	return p, nil
}

// SubscribeToChanges drops in-process entries announced on
// ProfileUpdateChannel. It blocks until ctx is done or the subscription fails.
func (s *profileService) SubscribeToChanges(ctx context.Context) error {
	if s.rdb == nil {
		log.Println("Redis client not configured, cannot subscribe to profile changes.")
		return nil
	}

	pubsub := s.rdb.Subscribe(ctx, ProfileUpdateChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", ProfileUpdateChannel, err)
	}
	log.Printf("Subscribed to Redis channel: %s", ProfileUpdateChannel)

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return errors.New("profile pub/sub channel closed")
			}
			s.drop(msg.Payload)
		case <-ctx.Done():
			log.Println("Profile pub/sub listener stopped.")
			return ctx.Err()
		}
	}
}
