package db

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names shared by services and tasks.
const (
	UsersCollection          = "users"
	EmailTemplatesCollection = "email_templates"
	ClientsCollection        = "clients"
	ProjectsCollection       = "projects"
	InvoicesCollection       = "invoices"
	AttachmentsCollection    = "attachments"
	BookingsCollection       = "bookings"
)

var indexes = map[string][]mongo.IndexModel{
	EmailTemplatesCollection: {
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "type", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	ClientsCollection: {
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	},
	ProjectsCollection: {
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "client_id", Value: 1}}},
	},
	InvoicesCollection: {
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "invoice_number", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "due", Value: 1}}},
	},
	AttachmentsCollection: {
		{Keys: bson.D{{Key: "attached", Value: 1}, {Key: "created_at", Value: 1}}},
	},
	BookingsCollection: {
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "start", Value: 1}}},
	},
}

// EnsureIndexes creates the indexes the services rely on. Existing indexes
// are left untouched.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	for coll, specs := range indexes {
		names, err := database.Collection(coll).Indexes().CreateMany(ctx, specs)
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
		log.Printf("Indexes ready on %s: %v", coll, names)
	}
	return nil
}
