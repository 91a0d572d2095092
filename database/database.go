package database

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection    = "users"
	CarsCollection     = "cars"
	PostsCollection    = "posts"
	CommentsCollection = "comments"
)

// Connect dials MongoDB, retrying a few times before giving up, and pings it.
func Connect(ctx context.Context, uri string, attempts int) (*mongo.Client, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		client, err := connectOnce(ctx, uri)
		if err == nil {
			logrus.Info("✅ MongoDB connected successfully")
			return client, nil
		}
		lastErr = err
		logrus.WithError(err).Warnf("❌ MongoDB connection attempt %d failed", i)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("connect to mongodb: %w", lastErr)
}

func connectOnce(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

// EnsureIndexes creates the indexes the repositories rely on. Email uniqueness is
// enforced here as well as in the auth service, so concurrent registrations
// surface as duplicate-key conflicts.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := db.Collection(UsersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("users email index: %w", err)
	}

	if _, err := db.Collection(PostsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "car", Value: 1}},
	}); err != nil {
		return fmt.Errorf("posts car index: %w", err)
	}

	if _, err := db.Collection(CarsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "make", Value: 1}, {Key: "year", Value: 1}}},
		{Keys: bson.D{{Key: "owner", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("cars indexes: %w", err)
	}
	return nil
}

func Disconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return err
	}

	logrus.Info("Disconnected from MongoDB")
	return nil
}
