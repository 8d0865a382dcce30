package database

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	URI      string
	Database string
}

func DefaultConfig() Config {
	cfg := Config{
		URI:      "mongodb://localhost:27017",
		Database: "comixie",
	}
	if uri := os.Getenv("COMIXIE_MONGO_URI"); uri != "" {
		cfg.URI = uri
	}
	if name := os.Getenv("COMIXIE_MONGO_DB"); name != "" {
		cfg.Database = name
	}
	return cfg
}

func Connect(ctx context.Context, cfg Config) (*mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client.Database(cfg.Database), nil
}

func MustConnect(ctx context.Context, cfg Config) *mongo.Database {
	db, err := Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	return db
}

func Disconnect(ctx context.Context, db *mongo.Database) {
	if err := db.Client().Disconnect(ctx); err != nil {
		log.Printf("mongo disconnect error: %v", err)
	}
}
