package forum

import (
	"context"

	"gator-forum/internal/models"
	"gator-forum/internal/utils"

	"github.com/google/uuid"
)

// ListPosts returns posts newest first, with authors of the posts and of
// their comments resolved.
func (s *Service) ListPosts(ctx context.Context, activeOnly bool) ([]models.PostView, error) {
	posts, err := s.posts.ListPosts(ctx, activeOnly)
	if err != nil {
		return nil, storeError("failed to list posts", err)
	}

	authors, err := s.resolveAuthors(ctx, posts...)
	if err != nil {
		return nil, err
	}

	views := make([]models.PostView, 0, len(posts))
	for _, p := range posts {
		views = append(views, postView(p, authors))
	}
	return views, nil
}

func (s *Service) GetPost(ctx context.Context, postID uuid.UUID) (*models.PostView, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	authors, err := s.resolveAuthors(ctx, post)
	if err != nil {
		return nil, err
	}
	view := postView(post, authors)
	return &view, nil
}

// ListComments returns a post's comments in the order they were added.
func (s *Service) ListComments(ctx context.Context, postID uuid.UUID, activeOnly bool) ([]models.CommentView, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	authors, err := s.resolveAuthors(ctx, post)
	if err != nil {
		return nil, err
	}

	views := make([]models.CommentView, 0, len(post.Comments))
	for i := range post.Comments {
		if activeOnly && !post.Comments[i].Active {
			continue
		}
		views = append(views, commentView(&post.Comments[i], authors))
	}
	return views, nil
}

func (s *Service) resolveAuthors(ctx context.Context, posts ...*models.Post) (map[uuid.UUID]*models.User, error) {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	add := func(id uuid.UUID) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	for _, p := range posts {
		add(p.AuthorID)
		for i := range p.Comments {
			add(p.Comments[i].AuthorID)
		}
	}
	if len(ids) == 0 {
		return map[uuid.UUID]*models.User{}, nil
	}

	users, err := s.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, utils.NewUnexpectedError("failed to resolve authors", err)
	}
	return users, nil
}

func authorOf(id uuid.UUID, authors map[uuid.UUID]*models.User) models.AuthorView {
	if u, ok := authors[id]; ok {
		return u.Author()
	}
	return models.AuthorView{ID: id}
}

func postView(p *models.Post, authors map[uuid.UUID]*models.User) models.PostView {
	comments := make([]models.CommentView, 0, len(p.Comments))
	for i := range p.Comments {
		comments = append(comments, commentView(&p.Comments[i], authors))
	}
	return models.PostView{
		ID:        p.ID,
		Title:     p.Title,
		Message:   p.Message,
		Category:  p.Category,
		Tags:      p.Tags,
		Author:    authorOf(p.AuthorID, authors),
		Active:    p.Active,
		Upvotes:   p.Upvotes,
		Downvotes: p.Downvotes,
		Voters:    p.Voters,
		Comments:  comments,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func commentView(c *models.Comment, authors map[uuid.UUID]*models.User) models.CommentView {
	return models.CommentView{
		ID:        c.ID,
		Message:   c.Message,
		Rating:    c.Rating,
		Author:    authorOf(c.AuthorID, authors),
		Active:    c.Active,
		Upvotes:   c.Upvotes,
		Downvotes: c.Downvotes,
		Voters:    c.Voters,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}
