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

type CommentInput struct {
	Message string `json:"message"`
	Rating  *int   `json:"rating"`
}

type CommentPatch struct {
	Message *string `json:"message"`
	Rating  *int    `json:"rating"`
}

// AddComment appends a comment to the post and returns it.
func (s *Service) AddComment(ctx context.Context, actor Actor, postID uuid.UUID, in CommentInput) (*models.Comment, error) {
	defer s.observe("add_comment", time.Now())

	message, err := cleanMessage(in.Message)
	if err != nil {
		return nil, err
	}
	if err := checkRating(in.Rating); err != nil {
		return nil, err
	}

	commentID := uuid.New()
	post, err := s.mutate(ctx, postID, func(post *models.Post) error {
		now := s.now()
		post.Comments = append(post.Comments, models.Comment{
			ID:        commentID,
			Message:   message,
			Rating:    in.Rating,
			AuthorID:  actor.ID,
			Active:    true,
			Ledger:    ledger.Ledger{Voters: []ledger.Voter{}},
			CreatedAt: now,
			UpdatedAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	comment := post.Comments[post.FindComment(commentID)]
	s.emit(ctx, events.New(events.CommentAdded, postID, actor.ID).WithComment(commentID).WithOwner(post.AuthorID))
	return &comment, nil
}

func (s *Service) EditComment(ctx context.Context, actor Actor, postID, commentID uuid.UUID, patch CommentPatch) (*models.Comment, error) {
	defer s.observe("edit_comment", time.Now())

	comment, err := s.mutateComment(ctx, postID, commentID, func(c *models.Comment) error {
		if !actor.owns(c.AuthorID) {
			return utils.NewForbiddenError("only the author can edit this comment")
		}
		if patch.Message != nil {
			message, err := cleanMessage(*patch.Message)
			if err != nil {
				return err
			}
			c.Message = message
		}
		if patch.Rating != nil {
			if err := checkRating(patch.Rating); err != nil {
				return err
			}
			rating := *patch.Rating
			c.Rating = &rating
		}
		c.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.New(events.CommentEdited, postID, actor.ID).WithComment(commentID).WithOwner(comment.AuthorID))
	return comment, nil
}

func (s *Service) ArchiveComment(ctx context.Context, actor Actor, postID, commentID uuid.UUID) (*models.Comment, error) {
	defer s.observe("archive_comment", time.Now())

	comment, err := s.mutateComment(ctx, postID, commentID, func(c *models.Comment) error {
		if !actor.owns(c.AuthorID) {
			return utils.NewForbiddenError("only the author can archive this comment")
		}
		if !c.Active {
			return utils.NewAppError(utils.ErrAlreadyArchived, "Comment is already archived", nil)
		}
		c.Active = false
		c.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.New(events.CommentArchived, postID, actor.ID).WithComment(commentID).WithOwner(comment.AuthorID))
	return comment, nil
}

func (s *Service) VoteComment(ctx context.Context, actor Actor, postID, commentID uuid.UUID, dir ledger.Direction) (ledger.Tally, error) {
	defer s.observe("vote_comment", time.Now())

	var tally ledger.Tally
	comment, err := s.mutateComment(ctx, postID, commentID, func(c *models.Comment) error {
		t, err := c.Apply(actor.ID, dir)
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
		s.metrics.IncrementVotes("comment", string(dir))
	}
	s.emit(ctx, events.New(events.CommentVoted, postID, actor.ID).WithComment(commentID).WithOwner(comment.AuthorID).WithTally(tally))
	return tally, nil
}

// mutateComment locates the comment inside a fresh copy of its post, applies
// fn to it and saves the post.
func (s *Service) mutateComment(ctx context.Context, postID, commentID uuid.UUID, fn func(c *models.Comment) error) (*models.Comment, error) {
	post, err := s.mutate(ctx, postID, func(post *models.Post) error {
		i := post.FindComment(commentID)
		if i < 0 {
			return utils.NewNotFoundError("Comment")
		}
		return fn(&post.Comments[i])
	})
	if err != nil {
		return nil, err
	}
	comment := post.Comments[post.FindComment(commentID)]
	return &comment, nil
}
