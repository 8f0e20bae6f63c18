// Package engine routes forum writes through protoactor actors: one user
// supervisor for registrations and a fixed pool of post shards.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"gator-forum/internal/auth"
	"gator-forum/internal/config"
	"gator-forum/internal/engine/actors"
	"gator-forum/internal/forum"
	"gator-forum/internal/ledger"
	"gator-forum/internal/models"
	"gator-forum/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
	"github.com/twmb/murmur3"
)

// NewActorSystem builds an actor system that logs through logger.
func NewActorSystem(logger *slog.Logger) *actor.ActorSystem {
	return actor.NewActorSystemWithConfig(actor.Configure(
		actor.WithLoggerFactory(func(*actor.ActorSystem) *slog.Logger {
			return logger.With("component", "actor")
		}),
	))
}

// Engine coordinates communication between actors
type Engine struct {
	root           *actor.RootContext
	userSupervisor *actor.PID
	postShards     []*actor.PID
	forum          *forum.Service
	auth           *auth.Service
	timeout        time.Duration
	logger         *slog.Logger
}

func NewEngine(system *actor.ActorSystem, forumService *forum.Service, authService *auth.Service, cfg *config.EngineConfig, metrics *utils.MetricsCollector, logger *slog.Logger) *Engine {
	context := system.Root

	userProps := actor.PropsFromProducer(func() actor.Actor {
		return actors.NewUserSupervisor(authService, metrics, logger)
	})
	userPID := context.Spawn(userProps)

	shards := make([]*actor.PID, cfg.PostShards)
	for i := range shards {
		shard := i
		props := actor.PropsFromProducer(func() actor.Actor {
			return actors.NewPostShardActor(shard, forumService, metrics, logger)
		})
		shards[i] = context.Spawn(props)
	}

	logger.Info("engine started", "post_shards", len(shards))
	return &Engine{
		root:           context,
		userSupervisor: userPID,
		postShards:     shards,
		forum:          forumService,
		auth:           authService,
		timeout:        cfg.AskTimeout,
		logger:         logger,
	}
}

// Stop stops every actor the engine spawned.
func (e *Engine) Stop() {
	for _, pid := range e.postShards {
		e.root.Stop(pid)
	}
	e.root.Stop(e.userSupervisor)
}

// ShardIndex maps a post id onto one of n shards.
func ShardIndex(postID uuid.UUID, n int) int {
	return int(murmur3.Sum32(postID[:]) % uint32(n))
}

func (e *Engine) shardFor(postID uuid.UUID) *actor.PID {
	return e.postShards[ShardIndex(postID, len(e.postShards))]
}

// askGrace is how long ask keeps waiting past the request deadline. Actors
// check the deadline before they persist anything, so a write that started in
// time still gets its reply to the caller.
const askGrace = 2 * time.Second

// withDeadline bounds ctx by the engine's ask timeout. The returned context
// travels inside the message so the actor can tell when the caller is gone.
func (e *Engine) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.timeout)
}

// ask sends msg and waits for the reply, which is either a value or an error.
// It waits until ctx's deadline plus askGrace rather than giving up at the
// deadline itself, so a failure reported here is never a write that landed.
func ask[T any](ctx context.Context, e *Engine, pid *actor.PID, msg interface{}) (T, error) {
	var zero T
	wait := e.timeout
	if deadline, ok := ctx.Deadline(); ok {
		wait = time.Until(deadline)
	}
	if wait < 0 {
		wait = 0
	}
	result, err := e.root.RequestFuture(pid, msg, wait+askGrace).Result()
	if err != nil {
		e.logger.Error("actor request failed", "err", err)
		return zero, utils.NewUnexpectedError("engine did not answer in time", err)
	}
	if replyErr, ok := result.(error); ok {
		return zero, replyErr
	}
	value, ok := result.(T)
	if !ok {
		return zero, utils.NewUnexpectedError("engine returned an unexpected reply", errors.New("reply type mismatch"))
	}
	return value, nil
}

// Credentials

func (e *Engine) Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error) {
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()
	return ask[*auth.Session](ctx, e, e.userSupervisor, &actors.RegisterUserMsg{Ctx: ctx, Input: in})
}

func (e *Engine) Login(ctx context.Context, in auth.LoginInput) (*auth.Session, error) {
	return e.auth.Login(ctx, in)
}

func (e *Engine) Profile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return e.auth.Profile(ctx, userID)
}

func (e *Engine) ListUsers(ctx context.Context) ([]models.Profile, error) {
	return e.auth.ListUsers(ctx)
}

// Posts

// CreatePost skips the shards: a new post has no concurrent writers yet.
func (e *Engine) CreatePost(ctx context.Context, a forum.Actor, in forum.PostInput) (*models.Post, error) {
	return e.forum.CreatePost(ctx, a, in)
}

func (e *Engine) EditPost(ctx context.Context, a forum.Actor, postID uuid.UUID, patch forum.PostPatch) (*models.Post, error) {
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()
	return ask[*models.Post](ctx, e, e.shardFor(postID), &actors.EditPostMsg{Ctx: ctx, Actor: a, PostID: postID, Patch: patch})
}

func (e *Engine) ArchivePost(ctx context.Context, a forum.Actor, postID uuid.UUID) (*models.Post, error) {
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()
	return ask[*models.Post](ctx, e, e.shardFor(postID), &actors.ArchivePostMsg{Ctx: ctx, Actor: a, PostID: postID})
}

func (e *Engine) VotePost(ctx context.Context, a forum.Actor, postID uuid.UUID, dir ledger.Direction) (ledger.Tally, error) {
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()
	return ask[ledger.Tally](ctx, e, e.shardFor(postID), &actors.VotePostMsg{Ctx: ctx, Actor: a, PostID: postID, Direction: dir})
}

// Comments

func (e *Engine) AddComment(ctx context.Context, a forum.Actor, postID uuid.UUID, in forum.CommentInput) (*models.Comment, error) {
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()
	return ask[*models.Comment](ctx, e, e.shardFor(postID), &actors.AddCommentMsg{Ctx: ctx, Actor: a, PostID: postID, Input: in})
}

func (e *Engine) EditComment(ctx context.Context, a forum.Actor, postID, commentID uuid.UUID, patch forum.CommentPatch) (*models.Comment, error) {
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()
	return ask[*models.Comment](ctx, e, e.shardFor(postID), &actors.EditCommentMsg{Ctx: ctx, Actor: a, PostID: postID, CommentID: commentID, Patch: patch})
}

func (e *Engine) ArchiveComment(ctx context.Context, a forum.Actor, postID, commentID uuid.UUID) (*models.Comment, error) {
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()
	return ask[*models.Comment](ctx, e, e.shardFor(postID), &actors.ArchiveCommentMsg{Ctx: ctx, Actor: a, PostID: postID, CommentID: commentID})
}

func (e *Engine) VoteComment(ctx context.Context, a forum.Actor, postID, commentID uuid.UUID, dir ledger.Direction) (ledger.Tally, error) {
	ctx, cancel := e.withDeadline(ctx)
	defer cancel()
	return ask[ledger.Tally](ctx, e, e.shardFor(postID), &actors.VoteCommentMsg{Ctx: ctx, Actor: a, PostID: postID, CommentID: commentID, Direction: dir})
}

// Reads go straight to the forum service.

func (e *Engine) ListPosts(ctx context.Context, activeOnly bool) ([]models.PostView, error) {
	return e.forum.ListPosts(ctx, activeOnly)
}

func (e *Engine) GetPost(ctx context.Context, postID uuid.UUID) (*models.PostView, error) {
	return e.forum.GetPost(ctx, postID)
}

func (e *Engine) ListComments(ctx context.Context, postID uuid.UUID, activeOnly bool) ([]models.CommentView, error) {
	return e.forum.ListComments(ctx, postID, activeOnly)
}

// Stats reports how many writes each shard handled and how many users the
// supervisor registered since start.
type Stats struct {
	Registrations int   `json:"registrations"`
	ShardWrites   []int `json:"shardWrites"`
}

func (e *Engine) Stats() (*Stats, error) {
	ctx, cancel := e.withDeadline(context.Background())
	defer cancel()
	registered, err := ask[int](ctx, e, e.userSupervisor, &actors.GetUserCountMsg{})
	if err != nil {
		return nil, err
	}
	stats := &Stats{Registrations: registered, ShardWrites: make([]int, len(e.postShards))}
	for i, pid := range e.postShards {
		n, err := ask[int](ctx, e, pid, &actors.GetCountsMsg{})
		if err != nil {
			return nil, err
		}
		stats.ShardWrites[i] = n
	}
	return stats, nil
}
