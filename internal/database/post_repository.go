// internal/database/post_repository.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gator-forum/internal/ledger"
	"gator-forum/internal/models"
	"gator-forum/internal/utils"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PostDocument represents the MongoDB schema for a post. Comments are
// embedded so that a vote on either is a single-document write.
type PostDocument struct {
	ID        string            `bson:"_id"`
	Title     string            `bson:"title"`
	Message   string            `bson:"message"`
	Category  string            `bson:"category"`
	Tags      []string          `bson:"tags"`
	AuthorID  string            `bson:"author"`
	Active    bool              `bson:"active"`
	Upvotes   int               `bson:"upvotes"`
	Downvotes int               `bson:"downvotes"`
	Voters    []VoterDocument   `bson:"voters"`
	Comments  []CommentDocument `bson:"comments"`
	CreatedAt time.Time         `bson:"createdAt"`
	UpdatedAt time.Time         `bson:"updatedAt"`
	Version   int64             `bson:"version"`
}

// ModelToDocument converts a Post model to a MongoDB document.
func ModelToDocument(post *models.Post) *PostDocument {
	doc := &PostDocument{
		ID:        post.ID.String(),
		Title:     post.Title,
		Message:   post.Message,
		Category:  string(post.Category),
		Tags:      post.Tags,
		AuthorID:  post.AuthorID.String(),
		Active:    post.Active,
		Upvotes:   post.Upvotes,
		Downvotes: post.Downvotes,
		Voters:    votersToDocuments(post.Voters),
		Comments:  make([]CommentDocument, len(post.Comments)),
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
		Version:   post.Version,
	}
	for i := range post.Comments {
		doc.Comments[i] = commentToDocument(&post.Comments[i])
	}
	return doc
}

// DocumentToModel converts a MongoDB document to a Post model.
func DocumentToModel(doc *PostDocument) (*models.Post, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid post ID: %w", err)
	}
	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return nil, fmt.Errorf("invalid author ID: %w", err)
	}
	voters, err := documentsToVoters(doc.Voters)
	if err != nil {
		return nil, err
	}

	comments := make([]models.Comment, 0, len(doc.Comments))
	for i := range doc.Comments {
		c, err := documentToComment(&doc.Comments[i])
		if err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}

	return &models.Post{
		ID:       id,
		Title:    doc.Title,
		Message:  doc.Message,
		Category: models.Category(doc.Category),
		Tags:     doc.Tags,
		AuthorID: authorID,
		Active:   doc.Active,
		Ledger: ledger.Ledger{
			Upvotes:   doc.Upvotes,
			Downvotes: doc.Downvotes,
			Voters:    voters,
		},
		Comments:  comments,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
		Version:   doc.Version,
	}, nil
}

// InsertPost stores a brand new post at version 1.
func (m *MongoDB) InsertPost(ctx context.Context, post *models.Post) error {
	post.Version = 1
	if _, err := m.Posts.InsertOne(ctx, ModelToDocument(post)); err != nil {
		post.Version = 0
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// GetPost retrieves a post by its ID.
func (m *MongoDB) GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var doc PostDocument
	err := m.Posts.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.NewNotFoundError("Post")
	}
	if err != nil {
		return nil, err
	}
	return DocumentToModel(&doc)
}

// ReplacePost writes post only if the stored version still equals
// post.Version, then bumps post.Version. A lost race yields
// ErrVersionConflict; a vanished post yields NOT_FOUND.
func (m *MongoDB) ReplacePost(ctx context.Context, post *models.Post) error {
	expected := post.Version
	doc := ModelToDocument(post)
	doc.Version = expected + 1

	filter := bson.M{"_id": doc.ID, "version": expected}
	result, err := m.Posts.ReplaceOne(ctx, filter, doc)
	if err != nil {
		return fmt.Errorf("failed to replace post: %w", err)
	}
	if result.MatchedCount == 0 {
		n, err := m.Posts.CountDocuments(ctx, bson.M{"_id": doc.ID})
		if err != nil {
			return fmt.Errorf("failed to check post existence: %w", err)
		}
		if n == 0 {
			return utils.NewNotFoundError("Post")
		}
		m.logger.Debug("post version conflict", "post", post.ID, "expected", expected)
		return ErrVersionConflict
	}

	post.Version = doc.Version
	return nil
}

// ListPosts returns posts newest first.
func (m *MongoDB) ListPosts(ctx context.Context, activeOnly bool) ([]*models.Post, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := m.Posts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("database query failed: %w", err)
	}
	defer cursor.Close(ctx)

	var posts []*models.Post
	for cursor.Next(ctx) {
		var doc PostDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode post: %w", err)
		}
		post, err := DocumentToModel(&doc)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration failed: %w", err)
	}
	return posts, nil
}
