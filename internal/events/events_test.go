package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gator-forum/internal/ledger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failing struct{}

func (failing) Publish(context.Context, Event) error { return errors.New("broker down") }

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	rec := NewRecorder(4)
	m := Multi{rec, failing{}, Discard{}}

	err := m.Publish(context.Background(), New(PostCreated, uuid.New(), uuid.New()))
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, rec.Drain(), 1)
}

func TestEventJSONShape(t *testing.T) {
	commentID := uuid.New()
	e := New(CommentVoted, uuid.New(), uuid.New()).
		WithComment(commentID).
		WithTally(ledger.Tally{Upvotes: 2, Downvotes: 1})

	body, err := json.Marshal(e)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "comment.voted", decoded["kind"])
	assert.Equal(t, commentID.String(), decoded["commentId"])
	assert.Equal(t, map[string]any{"upvotes": 2.0, "downvotes": 1.0}, decoded["tally"])
}

func TestToPublishing(t *testing.T) {
	e := New(PostArchived, uuid.New(), uuid.New())
	msg, err := toPublishing(e)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, "post.archived", msg.Type)
	assert.Equal(t, e.ID.String(), msg.MessageId)
	assert.Equal(t, e.PostID.String(), msg.Headers["post_id"])
}

func TestNewAMQPPublisherValidatesArgs(t *testing.T) {
	_, err := NewAMQPPublisher("", "q")
	assert.Error(t, err)
	_, err = NewAMQPPublisher("amqp://localhost", " ")
	assert.Error(t, err)
}
