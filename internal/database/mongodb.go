package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tourcraft/tourcraft/internal/entity"
	"github.com/tourcraft/tourcraft/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoWithRetry retries ConnectMongo with exponential backoff to
// tolerate startup races with the database container.
func ConnectMongoWithRetry(ctx context.Context, uri string, timeout time.Duration, attempts int) (*mongo.Client, error) {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		client, err := ConnectMongo(ctx, uri, timeout)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, attempts, err)
		if attempt < attempts {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}
	return nil, lastErr
}

// EnsureIndexes creates a unique index on the id field of every registered
// collection, plus one index per reference path queried before deletes.
func EnsureIndexes(ctx context.Context, db *mongo.Database, reg *entity.Registry, refPaths map[string][]string) error {
	for _, s := range reg.All() {
		models := []mongo.IndexModel{{
			Keys:    bson.D{{Key: s.IDKey(), Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_" + s.IDKey()),
		}}
		for _, p := range refPaths[s.Collection] {
			models = append(models, mongo.IndexModel{
				Keys:    bson.D{{Key: p, Value: 1}},
				Options: options.Index().SetName("ref_" + p),
			})
		}
		if _, err := db.Collection(s.Collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("indexes on %s: %w", s.Collection, err)
		}
		logger.Debugf("ensured %d index(es) on %s", len(models), s.Collection)
	}
	return nil
}
