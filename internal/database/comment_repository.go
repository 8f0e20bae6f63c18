package database

import (
	"fmt"
	"time"

	"gator-forum/internal/ledger"
	"gator-forum/internal/models"

	"github.com/google/uuid"
)

// CommentDocument is a comment embedded in its post document
type CommentDocument struct {
	ID        string          `bson:"_id"`
	Message   string          `bson:"message"`
	Rating    *int            `bson:"rating,omitempty"`
	AuthorID  string          `bson:"author"`
	Active    bool            `bson:"active"`
	Upvotes   int             `bson:"upvotes"`
	Downvotes int             `bson:"downvotes"`
	Voters    []VoterDocument `bson:"voters"`
	CreatedAt time.Time       `bson:"createdAt"`
	UpdatedAt time.Time       `bson:"updatedAt"`
}

// VoterDocument is one vote record inside a post or comment
type VoterDocument struct {
	UserID string `bson:"user"`
	Vote   string `bson:"vote"`
}

func votersToDocuments(voters []ledger.Voter) []VoterDocument {
	docs := make([]VoterDocument, len(voters))
	for i, v := range voters {
		docs[i] = VoterDocument{UserID: v.UserID.String(), Vote: string(v.Vote)}
	}
	return docs
}

func documentsToVoters(docs []VoterDocument) ([]ledger.Voter, error) {
	voters := make([]ledger.Voter, 0, len(docs))
	for _, d := range docs {
		userID, err := uuid.Parse(d.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid voter ID: %w", err)
		}
		dir, err := ledger.ParseDirection(d.Vote)
		if err != nil {
			return nil, err
		}
		voters = append(voters, ledger.Voter{UserID: userID, Vote: dir})
	}
	return voters, nil
}

func commentToDocument(c *models.Comment) CommentDocument {
	return CommentDocument{
		ID:        c.ID.String(),
		Message:   c.Message,
		Rating:    c.Rating,
		AuthorID:  c.AuthorID.String(),
		Active:    c.Active,
		Upvotes:   c.Upvotes,
		Downvotes: c.Downvotes,
		Voters:    votersToDocuments(c.Voters),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func documentToComment(doc *CommentDocument) (models.Comment, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return models.Comment{}, fmt.Errorf("invalid comment ID: %w", err)
	}
	authorID, err := uuid.Parse(doc.AuthorID)
	if err != nil {
		return models.Comment{}, fmt.Errorf("invalid author ID: %w", err)
	}
	voters, err := documentsToVoters(doc.Voters)
	if err != nil {
		return models.Comment{}, err
	}
	return models.Comment{
		ID:       id,
		Message:  doc.Message,
		Rating:   doc.Rating,
		AuthorID: authorID,
		Active:   doc.Active,
		Ledger: ledger.Ledger{
			Upvotes:   doc.Upvotes,
			Downvotes: doc.Downvotes,
			Voters:    voters,
		},
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}
