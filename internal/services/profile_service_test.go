package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/config"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/db"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/templating"
	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/utils"
)

func profileTestConfig() *config.Config {
	return &config.Config{DefaultCurrency: "USD", ProfileCacheTTL: time.Minute}
}

func TestProfileService_CreateAndUpdate(t *testing.T) {
	database := utils.SetupTestDB(t, "testdb_profile_service", db.UsersCollection)
	svc := NewProfileService(database, profileTestConfig(), nil)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "Ada Lovelace", " Ada@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)

	_, err = svc.CreateUser(ctx, "Ada Again", "ada@example.com")
	assert.ErrorIs(t, err, ErrEmailExists)

	p, err := svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.BusinessName)
	assert.Equal(t, "USD", p.PreferredCurrency)

	p.BusinessName = "  Analytical Engines  "
	p.PreferredCurrency = "eur"
	updated, err := svc.UpdateProfile(ctx, user.ID, p)
	require.NoError(t, err)
	assert.Equal(t, "Analytical Engines", updated.BusinessName)
	assert.Equal(t, "EUR", updated.PreferredCurrency)

	// The cached copy was dropped by the update.
	p, err = svc.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Analytical Engines", p.BusinessName)

	_, err = svc.UpdateProfile(ctx, primitive.NewObjectID(), p)
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	_, err = svc.GetProfile(ctx, primitive.NewObjectID())
	assert.ErrorIs(t, err, mongo.ErrNoDocuments)

	// Without redis there is nothing to subscribe to.
	assert.NoError(t, svc.SubscribeToChanges(ctx))
}

func TestProfileService_InvalidatesAcrossProcesses(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR_TEST")
	if addr == "" {
		t.Skip("REDIS_ADDR_TEST not set, skipping redis test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(context.Background()).Err())

	database := utils.SetupTestDB(t, "testdb_profile_service_redis", db.UsersCollection)
	cfg := profileTestConfig()
	writer := NewProfileService(database, cfg, rdb)
	reader := NewProfileService(database, cfg, rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = reader.SubscribeToChanges(ctx) }()

	user, err := writer.CreateUser(ctx, "Grace Hopper", "grace@example.com")
	require.NoError(t, err)
	t.Cleanup(func() { rdb.Del(context.Background(), profileCacheKey(user.ID)) })

	p, err := reader.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", p.BusinessName)

	// Give the subscription time to be established.
	time.Sleep(200 * time.Millisecond)

	_, err = writer.UpdateProfile(ctx, user.ID, templating.Profile{BusinessName: "COBOL Consulting"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		p, err := reader.GetProfile(ctx, user.ID)
		return err == nil && p.BusinessName == "COBOL Consulting"
	}, 2*time.Second, 50*time.Millisecond)

	// A write behind the service's back is not seen until invalidated.
	_, err = database.Collection(db.UsersCollection).UpdateByID(ctx, user.ID, bson.M{"$set": bson.M{"profile.business_name": "Direct"}})
	require.NoError(t, err)
	p, err = reader.GetProfile(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "COBOL Consulting", p.BusinessName)
}
