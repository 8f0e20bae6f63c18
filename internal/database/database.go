// internal/database/database.go
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrVersionConflict is returned by ReplacePost when the stored document was
// saved by someone else since it was read.
var ErrVersionConflict = errors.New("post was modified concurrently")

type MongoDB struct {
	Client *mongo.Client
	Users  *mongo.Collection
	Posts  *mongo.Collection
	logger *slog.Logger
}

func NewMongoDB(ctx context.Context, uri, dbName string, logger *slog.Logger) (*MongoDB, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", "database", dbName)

	db := client.Database(dbName)
	return &MongoDB{
		Client: client,
		Users:  db.Collection("users"),
		Posts:  db.Collection("posts"),
		logger: logger,
	}, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// EnsureIndexes creates the unique email index and the listing index on posts.
func (m *MongoDB) EnsureIndexes(ctx context.Context) error {
	_, err := m.Users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = m.Posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("created_desc"),
		},
		{
			Keys:    bson.D{{Key: "active", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("active_created_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}
	return nil
}

// IndexNames lists index names per collection, used by the migrate command.
func (m *MongoDB) IndexNames(ctx context.Context) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, coll := range []*mongo.Collection{m.Users, m.Posts} {
		cursor, err := coll.Indexes().List(ctx)
		if err != nil {
			return nil, err
		}
		var specs []bson.M
		if err := cursor.All(ctx, &specs); err != nil {
			return nil, err
		}
		for _, spec := range specs {
			if name, ok := spec["name"].(string); ok {
				out[coll.Name()] = append(out[coll.Name()], name)
			}
		}
	}
	return out, nil
}
