package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the unique slug indexes the lookup paths depend on.
// CreateOne is a no-op when the index already exists, so this is safe to run
// on every startup.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, coll := range []string{"comics", "chapters"} {
		_, err := db.Collection(coll).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("create slug index on %s: %w", coll, err)
		}
	}
	return nil
}
