package actors

import (
	stdctx "context"
	"time"

	"gator-forum/internal/forum"
	"gator-forum/internal/ledger"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/google/uuid"
)

// Comment messages go to the shard that owns the parent post, since comments
// live inside the post document.
type (
	AddCommentMsg struct {
		Ctx    stdctx.Context
		Actor  forum.Actor
		PostID uuid.UUID
		Input  forum.CommentInput
	}

	EditCommentMsg struct {
		Ctx       stdctx.Context
		Actor     forum.Actor
		PostID    uuid.UUID
		CommentID uuid.UUID
		Patch     forum.CommentPatch
	}

	ArchiveCommentMsg struct {
		Ctx       stdctx.Context
		Actor     forum.Actor
		PostID    uuid.UUID
		CommentID uuid.UUID
	}

	VoteCommentMsg struct {
		Ctx       stdctx.Context
		Actor     forum.Actor
		PostID    uuid.UUID
		CommentID uuid.UUID
		Direction ledger.Direction
	}
)

func (a *PostShardActor) handleVoteComment(context actor.Context, msg *VoteCommentMsg) {
	startTime := time.Now()
	tally, err := a.forum.VoteComment(msg.Ctx, msg.Actor, msg.PostID, msg.CommentID, msg.Direction)
	if a.metrics != nil {
		a.metrics.AddOperationLatency("shard_vote", time.Since(startTime))
	}
	respond(context, tally, err)
}
