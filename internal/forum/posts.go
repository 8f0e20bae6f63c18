package forum

import (
	"context"
	"time"

	"gator-forum/internal/events"
	"gator-forum/internal/ledger"
	"gator-forum/internal/models"
	"gator-forum/internal/utils"

	"github.com/google/uuid"
)

type PostInput struct {
	Title    string   `json:"title"`
	Message  string   `json:"message"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// PostPatch lists the only fields an edit may change. Nil means untouched.
type PostPatch struct {
	Title    *string   `json:"title"`
	Message  *string   `json:"message"`
	Category *string   `json:"category"`
	Tags     *[]string `json:"tags"`
}

func (s *Service) CreatePost(ctx context.Context, actor Actor, in PostInput) (*models.Post, error) {
	defer s.observe("create_post", time.Now())

	title, err := cleanTitle(in.Title)
	if err != nil {
		return nil, err
	}
	message, err := cleanMessage(in.Message)
	if err != nil {
		return nil, err
	}
	category, err := cleanCategory(in.Category)
	if err != nil {
		return nil, err
	}
	tags, err := cleanTags(in.Tags)
	if err != nil {
		return nil, err
	}

	now := s.now()
	post := &models.Post{
		ID:        uuid.New(),
		Title:     title,
		Message:   message,
		Category:  category,
		Tags:      tags,
		AuthorID:  actor.ID,
		Active:    true,
		Ledger:    ledger.Ledger{Voters: []ledger.Voter{}},
		Comments:  []models.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.posts.InsertPost(ctx, post); err != nil {
		return nil, storeError("failed to create post", err)
	}

	s.logger.Debug("post created", "post", post.ID, "author", actor.ID)
	s.emit(ctx, events.New(events.PostCreated, post.ID, actor.ID).WithOwner(post.AuthorID))
	return post, nil
}

func (s *Service) EditPost(ctx context.Context, actor Actor, postID uuid.UUID, patch PostPatch) (*models.Post, error) {
	defer s.observe("edit_post", time.Now())

	post, err := s.mutate(ctx, postID, func(post *models.Post) error {
		if !actor.owns(post.AuthorID) {
			return utils.NewForbiddenError("only the author can edit this post")
		}
		if patch.Title != nil {
			title, err := cleanTitle(*patch.Title)
			if err != nil {
				return err
			}
			post.Title = title
		}
		if patch.Message != nil {
			message, err := cleanMessage(*patch.Message)
			if err != nil {
				return err
			}
			post.Message = message
		}
		if patch.Category != nil {
			category, err := cleanCategory(*patch.Category)
			if err != nil {
				return err
			}
			post.Category = category
		}
		if patch.Tags != nil {
			tags, err := cleanTags(*patch.Tags)
			if err != nil {
				return err
			}
			post.Tags = tags
		}
		post.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.New(events.PostEdited, post.ID, actor.ID).WithOwner(post.AuthorID))
	return post, nil
}

func (s *Service) ArchivePost(ctx context.Context, actor Actor, postID uuid.UUID) (*models.Post, error) {
	defer s.observe("archive_post", time.Now())

	post, err := s.mutate(ctx, postID, func(post *models.Post) error {
		if !actor.owns(post.AuthorID) {
			return utils.NewForbiddenError("only the author can archive this post")
		}
		if !post.Active {
			return utils.NewAppError(utils.ErrAlreadyArchived, "Post is already archived", nil)
		}
		post.Active = false
		post.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("post archived", "post", post.ID, "by", actor.ID)
	s.emit(ctx, events.New(events.PostArchived, post.ID, actor.ID).WithOwner(post.AuthorID))
	return post, nil
}

// VotePost applies the caller's vote to the post's ledger.
func (s *Service) VotePost(ctx context.Context, actor Actor, postID uuid.UUID, dir ledger.Direction) (ledger.Tally, error) {
	defer s.observe("vote_post", time.Now())

	var tally ledger.Tally
	post, err := s.mutate(ctx, postID, func(post *models.Post) error {
		t, err := post.Apply(actor.ID, dir)
		if err != nil {
			return err
		}
		tally = t
		return nil
	})
	if err != nil {
		return ledger.Tally{}, err
	}

	if s.metrics != nil {
		s.metrics.IncrementVotes("post", string(dir))
	}
	s.emit(ctx, events.New(events.PostVoted, postID, actor.ID).WithOwner(post.AuthorID).WithTally(tally))
	return tally, nil
}
