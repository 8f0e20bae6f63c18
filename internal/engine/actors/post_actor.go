package actors

import (
	stdctx "context"
	"fmt"
	"log/slog"
	"time"

	"gator-forum/internal/forum"
	"gator-forum/internal/ledger"
	"gator-forum/internal/utils"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Message types for Post operations. Ctx is the caller's request context
// and bounds the storage calls made on its behalf.
type (
	EditPostMsg struct {
		Ctx    stdctx.Context
		Actor  forum.Actor
		PostID uuid.UUID
		Patch  forum.PostPatch
	}

	ArchivePostMsg struct {
		Ctx    stdctx.Context
		Actor  forum.Actor
		PostID uuid.UUID
	}

	VotePostMsg struct {
		Ctx       stdctx.Context
		Actor     forum.Actor
		PostID    uuid.UUID
		Direction ledger.Direction
	}

	// GetCountsMsg asks a shard how many mutations it has processed
	GetCountsMsg struct{}
)

// PostShardActor owns every write to the posts that hash onto it, so writes
// to one post document never interleave inside this process.
type PostShardActor struct {
	shard   int
	forum   *forum.Service
	metrics *utils.MetricsCollector
	logger  *slog.Logger
	handled int
}

func NewPostShardActor(shard int, forumService *forum.Service, metrics *utils.MetricsCollector, logger *slog.Logger) actor.Actor {
	return &PostShardActor{
		shard:   shard,
		forum:   forumService,
		metrics: metrics,
		logger:  logger.With("shard", shard),
	}
}

// Receive handles incoming messages
func (a *PostShardActor) Receive(context actor.Context) {
	switch msg := context.Message().(type) {
	case *actor.Started:
		a.logger.Debug("post shard started")
	case *actor.Stopping:
		a.logger.Debug("post shard stopping")
	case *actor.Restarting:
		a.logger.Warn("post shard restarting")

	case *EditPostMsg:
		if abandoned(context, msg.Ctx) {
			return
		}
		a.handled++
		post, err := a.forum.EditPost(msg.Ctx, msg.Actor, msg.PostID, msg.Patch)
		respond(context, post, err)
	case *ArchivePostMsg:
		if abandoned(context, msg.Ctx) {
			return
		}
		a.handled++
		post, err := a.forum.ArchivePost(msg.Ctx, msg.Actor, msg.PostID)
		respond(context, post, err)
	case *VotePostMsg:
		if abandoned(context, msg.Ctx) {
			return
		}
		a.handled++
		a.handleVotePost(context, msg)

	case *AddCommentMsg:
		if abandoned(context, msg.Ctx) {
			return
		}
		a.handled++
		comment, err := a.forum.AddComment(msg.Ctx, msg.Actor, msg.PostID, msg.Input)
		respond(context, comment, err)
	case *EditCommentMsg:
		if abandoned(context, msg.Ctx) {
			return
		}
		a.handled++
		comment, err := a.forum.EditComment(msg.Ctx, msg.Actor, msg.PostID, msg.CommentID, msg.Patch)
		respond(context, comment, err)
	case *ArchiveCommentMsg:
		if abandoned(context, msg.Ctx) {
			return
		}
		a.handled++
		comment, err := a.forum.ArchiveComment(msg.Ctx, msg.Actor, msg.PostID, msg.CommentID)
		respond(context, comment, err)
	case *VoteCommentMsg:
		if abandoned(context, msg.Ctx) {
			return
		}
		a.handled++
		a.handleVoteComment(context, msg)

	case *GetCountsMsg:
		context.Respond(a.handled)
	default:
		a.logger.Debug("post shard: unknown message", "type", fmt.Sprintf("%T", msg))
	}
}

func (a *PostShardActor) handleVotePost(context actor.Context, msg *VotePostMsg) {
	startTime := time.Now()
	tally, err := a.forum.VotePost(msg.Ctx, msg.Actor, msg.PostID, msg.Direction)
	if a.metrics != nil {
		a.metrics.AddOperationLatency("shard_vote", time.Since(startTime))
	}
	respond(context, tally, err)
}

// abandoned answers msg with an error, without running it, when the asker's
// context is already done. Nothing is written on behalf of a caller who has
// been told the request failed.
func abandoned(context actor.Context, ctx stdctx.Context) bool {
	if ctx == nil || ctx.Err() == nil {
		return false
	}
	context.Respond(utils.NewUnexpectedError("request expired before it was processed", ctx.Err()))
	return true
}

// respond sends either the result or the error back to the asker.
func respond[T any](context actor.Context, result T, err error) {
	if err != nil {
		context.Respond(err)
		return
	}
	context.Respond(result)
}
