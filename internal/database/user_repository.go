// internal/database/user_repository.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gator-forum/internal/models"
	"gator-forum/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserDocument represents the MongoDB schema for a user
type UserDocument struct {
	ID             string    `bson:"_id"`
	Username       string    `bson:"username"`
	Email          string    `bson:"email"`
	HashedPassword string    `bson:"hashedPassword"`
	IsAdmin        bool      `bson:"isAdmin"`
	CreatedAt      time.Time `bson:"createdAt"`
}

func userToDocument(user *models.User) *UserDocument {
	return &UserDocument{
		ID:             user.ID.String(),
		Username:       user.Username,
		Email:          user.Email,
		HashedPassword: user.HashedPassword,
		IsAdmin:        user.IsAdmin,
		CreatedAt:      user.CreatedAt,
	}
}

func documentToUser(doc *UserDocument) (*models.User, error) {
	userID, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in database: %w", err)
	}
	return &models.User{
		ID:             userID,
		Username:       doc.Username,
		Email:          doc.Email,
		HashedPassword: doc.HashedPassword,
		IsAdmin:        doc.IsAdmin,
		CreatedAt:      doc.CreatedAt,
	}, nil
}

// InsertUser stores a new user. The unique email index turns a racing second
// registration into DUPLICATE_EMAIL.
func (m *MongoDB) InsertUser(ctx context.Context, user *models.User) error {
	_, err := m.Users.InsertOne(ctx, userToDocument(user))
	if mongo.IsDuplicateKeyError(err) {
		return utils.NewAppError(utils.ErrDuplicateEmail, "User with this email already exists", err)
	}
	return err
}

// GetUser retrieves a user from MongoDB by their ID
func (m *MongoDB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return m.findUser(ctx, bson.M{"_id": id.String()}, id.String())
}

// GetUserByEmail retrieves a user from MongoDB by their email address
func (m *MongoDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return m.findUser(ctx, bson.M{"email": email}, email)
}

func (m *MongoDB) findUser(ctx context.Context, filter bson.M, ref string) (*models.User, error) {
	var doc UserDocument
	err := m.Users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewUserNotFoundError(ref)
	}
	if err != nil {
		return nil, err
	}
	return documentToUser(&doc)
}

// GetUsersByIDs resolves many authors in one query. Unknown ids are absent
// from the result.
func (m *MongoDB) GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	cursor, err := m.Users.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	defer cursor.Close(ctx)

	out := make(map[uuid.UUID]*models.User, len(ids))
	for cursor.Next(ctx) {
		var doc UserDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		user, err := documentToUser(&doc)
		if err != nil {
			return nil, err
		}
		out[user.ID] = user
	}
	return out, cursor.Err()
}

func (m *MongoDB) ListUsers(ctx context.Context) ([]*models.User, error) {
	cursor, err := m.Users.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []UserDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]*models.User, 0, len(docs))
	for i := range docs {
		user, err := documentToUser(&docs[i])
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
