package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hareeshagunasekara/SoloDesk-sub000/internal/models"
)

// InsertOne inserts doc into coll, generating a fresh ID for every attempt.
// An _id collision is retried through Try; other unique index violations are
// returned to the caller after the retries run out.
func InsertOne[T models.IBase](ctx context.Context, coll *mongo.Collection, doc T) (T, error) {
	operation := func() error {
		doc.GenID()
		_, err := coll.InsertOne(ctx, doc)
		return err
	}
	if err := Try(operation); err != nil {
		return doc, fmt.Errorf("insert into %s: %w", coll.Name(), err)
	}
	return doc, nil
}
