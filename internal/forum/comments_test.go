package forum

import (
	"context"
	"testing"

	"gator-forum/internal/events"
	"gator-forum/internal/ledger"
	"gator-forum/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.post(t)

	comment, err := f.svc.AddComment(ctx, f.other, post.ID, CommentInput{Message: " nice ", Rating: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, "nice", comment.Message)
	assert.Equal(t, 5, *comment.Rating)
	assert.True(t, comment.Active)
	assert.Equal(t, f.other.ID, comment.AuthorID)

	stored, err := f.store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, stored.Comments, 1)
	assert.Equal(t, comment.ID, stored.Comments[0].ID)

	kinds := []events.Kind{}
	for _, e := range f.events.Drain() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []events.Kind{events.PostCreated, events.CommentAdded}, kinds)
}

func TestAddCommentValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.post(t)

	_, err := f.svc.AddComment(ctx, f.other, post.ID, CommentInput{Message: ""})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
	_, err = f.svc.AddComment(ctx, f.other, post.ID, CommentInput{Message: "ok", Rating: intPtr(6)})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
	_, err = f.svc.AddComment(ctx, f.other, post.ID, CommentInput{Message: "ok", Rating: intPtr(0)})
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
	_, err = f.svc.AddComment(ctx, f.other, uuid.New(), CommentInput{Message: "ok"})
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestEditComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.post(t)
	comment, err := f.svc.AddComment(ctx, f.other, post.ID, CommentInput{Message: "first"})
	require.NoError(t, err)

	msg := "second"
	edited, err := f.svc.EditComment(ctx, f.other, post.ID, comment.ID, CommentPatch{Message: &msg, Rating: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, "second", edited.Message)
	assert.Equal(t, 3, *edited.Rating)

	_, err = f.svc.EditComment(ctx, f.author, post.ID, comment.ID, CommentPatch{Message: &msg})
	assert.True(t, utils.IsErrorCode(err, utils.ErrForbidden))

	_, err = f.svc.EditComment(ctx, f.other, post.ID, uuid.New(), CommentPatch{Message: &msg})
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))

	_, err = f.svc.EditComment(ctx, f.other, uuid.New(), comment.ID, CommentPatch{Message: &msg})
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}

func TestArchiveCommentTwice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.post(t)
	keep, err := f.svc.AddComment(ctx, f.other, post.ID, CommentInput{Message: "keep"})
	require.NoError(t, err)
	drop, err := f.svc.AddComment(ctx, f.other, post.ID, CommentInput{Message: "drop"})
	require.NoError(t, err)

	archived, err := f.svc.ArchiveComment(ctx, f.other, post.ID, drop.ID)
	require.NoError(t, err)
	assert.False(t, archived.Active)

	_, err = f.svc.ArchiveComment(ctx, f.other, post.ID, drop.ID)
	assert.True(t, utils.IsErrorCode(err, utils.ErrAlreadyArchived))

	active, err := f.svc.ListComments(ctx, post.ID, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, keep.ID, active[0].ID)

	all, err := f.svc.ListComments(ctx, post.ID, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, keep.ID, all[0].ID)
	assert.Equal(t, drop.ID, all[1].ID)
}

func TestVoteComment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.post(t)
	comment, err := f.svc.AddComment(ctx, f.other, post.ID, CommentInput{Message: "vote me"})
	require.NoError(t, err)

	tally, err := f.svc.VoteComment(ctx, f.author, post.ID, comment.ID, ledger.Downvote)
	require.NoError(t, err)
	assert.Equal(t, ledger.Tally{Downvotes: 1}, tally)

	_, err = f.svc.VoteComment(ctx, f.author, post.ID, comment.ID, ledger.Downvote)
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicateVote))

	tally, err = f.svc.VoteComment(ctx, f.author, post.ID, comment.ID, ledger.Upvote)
	require.NoError(t, err)
	assert.Equal(t, ledger.Tally{Upvotes: 1}, tally)

	stored, err := f.store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Upvotes, "post ledger untouched by comment votes")
	assert.True(t, stored.Comments[0].Consistent())

	_, err = f.svc.VoteComment(ctx, f.author, post.ID, uuid.New(), ledger.Upvote)
	assert.True(t, utils.IsErrorCode(err, utils.ErrNotFound))
}
