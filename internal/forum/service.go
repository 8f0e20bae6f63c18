// Package forum implements the post and comment lifecycle and the read-side
// queries. Every write is a read-modify-write of one post document, retried
// when another writer saved the same post first.
package forum

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gator-forum/internal/database"
	"gator-forum/internal/events"
	"gator-forum/internal/models"
	"gator-forum/internal/utils"

	"github.com/google/uuid"
)

// PostStore persists whole post documents. ReplacePost must fail with
// database.ErrVersionConflict when post.Version is stale.
type PostStore interface {
	InsertPost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ReplacePost(ctx context.Context, post *models.Post) error
	ListPosts(ctx context.Context, activeOnly bool) ([]*models.Post, error)
}

// UserDirectory resolves author ids.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.User, error)
}

// Actor is the authenticated caller of a mutation.
type Actor struct {
	ID      uuid.UUID
	IsAdmin bool
}

func (a Actor) owns(authorID uuid.UUID) bool {
	return a.IsAdmin || a.ID == authorID
}

type Service struct {
	posts     PostStore
	users     UserDirectory
	publisher events.Publisher
	metrics   *utils.MetricsCollector
	retries   int
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(posts PostStore, users UserDirectory, publisher events.Publisher, metrics *utils.MetricsCollector, retries int, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Discard{}
	}
	if retries < 1 {
		retries = 1
	}
	return &Service{
		posts:     posts,
		users:     users,
		publisher: publisher,
		metrics:   metrics,
		retries:   retries,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// load fetches a post and reports counter drift without repairing it.
func (s *Service) load(ctx context.Context, postID uuid.UUID) (*models.Post, error) {
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, storeError("failed to load post", err)
	}
	if !post.Consistent() {
		s.logger.Warn("post counters drifted from voters", "post", post.ID,
			"stored", post.Tally(), "derived", post.Recount())
	}
	for i := range post.Comments {
		if !post.Comments[i].Consistent() {
			s.logger.Warn("comment counters drifted from voters", "post", post.ID,
				"comment", post.Comments[i].ID)
		}
	}
	return post, nil
}

// mutate runs apply against a fresh copy of the post and saves it. apply may
// be run more than once, so it must only touch the post it is given.
func (s *Service) mutate(ctx context.Context, postID uuid.UUID, apply func(post *models.Post) error) (*models.Post, error) {
	for attempt := 1; ; attempt++ {
		post, err := s.load(ctx, postID)
		if err != nil {
			return nil, err
		}
		if err := apply(post); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, utils.NewUnexpectedError("request expired before the post was saved", err)
		}

		err = s.posts.ReplacePost(ctx, post)
		if err == nil {
			return post, nil
		}
		if !errors.Is(err, database.ErrVersionConflict) {
			return nil, storeError("failed to save post", err)
		}
		if attempt >= s.retries {
			s.logger.Error("giving up on contended post", "post", postID, "attempts", attempt)
			return nil, utils.NewUnexpectedError("post is being modified concurrently", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, utils.NewUnexpectedError("request cancelled", err)
		}
		s.logger.Debug("version conflict, retrying", "post", postID, "attempt", attempt)
	}
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("failed to publish event", "kind", event.Kind, "post", event.PostID, "err", err)
	}
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.AddOperationLatency(op, time.Since(start))
	}
}

// storeError passes domain errors through and hides everything else.
func storeError(msg string, err error) error {
	if _, ok := utils.AsAppError(err); ok {
		return err
	}
	return utils.NewUnexpectedError(msg, err)
}
