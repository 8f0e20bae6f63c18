package models

import (
	"strings"
	"time"

	"gator-forum/internal/ledger"

	"github.com/google/uuid"
)

const MaxTitleLength = 150

// Category is the fixed set of topics a post can be filed under.
type Category string

const (
	CategoryTechnology    Category = "Technology"
	CategoryHealth        Category = "Health"
	CategoryFinance       Category = "Finance"
	CategoryEducation     Category = "Education"
	CategoryEntertainment Category = "Entertainment"
	CategoryOther         Category = "Other"
)

var Categories = []Category{
	CategoryTechnology,
	CategoryHealth,
	CategoryFinance,
	CategoryEducation,
	CategoryEntertainment,
	CategoryOther,
}

// ParseCategory maps a raw value onto a Category. Empty input falls back to
// CategoryOther.
func ParseCategory(raw string) (Category, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return CategoryOther, true
	}
	for _, c := range Categories {
		if string(c) == raw {
			return c, true
		}
	}
	return "", false
}

type Post struct {
	ID       uuid.UUID `json:"id"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Category Category  `json:"category"`
	Tags     []string  `json:"tags"`
	AuthorID uuid.UUID `json:"author"`
	Active   bool      `json:"active"`
	ledger.Ledger
	Comments  []Comment `json:"comments"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Version is bumped on every successful save and compared on replace.
	Version int64 `json:"-"`
}

// FindComment returns the index of the comment with the given id, or -1.
func (p *Post) FindComment(id uuid.UUID) int {
	for i := range p.Comments {
		if p.Comments[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy so that a failed mutation never leaks into a
// caller's view of the post.
func (p *Post) Clone() *Post {
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	cp.Voters = append([]ledger.Voter(nil), p.Voters...)
	cp.Comments = make([]Comment, len(p.Comments))
	for i, c := range p.Comments {
		c.Voters = append([]ledger.Voter(nil), c.Voters...)
		if c.Rating != nil {
			r := *c.Rating
			c.Rating = &r
		}
		cp.Comments[i] = c
	}
	return &cp
}

// PostView is a post with its author (and its comments' authors) resolved.
type PostView struct {
	ID        uuid.UUID      `json:"id"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Category  Category       `json:"category"`
	Tags      []string       `json:"tags"`
	Author    AuthorView     `json:"author"`
	Active    bool           `json:"active"`
	Upvotes   int            `json:"upvotes"`
	Downvotes int            `json:"downvotes"`
	Voters    []ledger.Voter `json:"voters"`
	Comments  []CommentView  `json:"comments"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}
