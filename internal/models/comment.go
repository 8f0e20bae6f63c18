package models

import (
	"time"

	"gator-forum/internal/ledger"

	"github.com/google/uuid"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Comment lives inside its post's document and has no lifecycle of its own.
type Comment struct {
	ID       uuid.UUID `json:"id"`
	Message  string    `json:"message"`
	Rating   *int      `json:"rating,omitempty"`
	AuthorID uuid.UUID `json:"author"`
	Active   bool      `json:"active"`
	ledger.Ledger
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CommentView struct {
	ID        uuid.UUID      `json:"id"`
	Message   string         `json:"message"`
	Rating    *int           `json:"rating,omitempty"`
	Author    AuthorView     `json:"author"`
	Active    bool           `json:"active"`
	Upvotes   int            `json:"upvotes"`
	Downvotes int            `json:"downvotes"`
	Voters    []ledger.Voter `json:"voters"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
