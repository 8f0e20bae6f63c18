// Package events carries forum mutations to interested listeners.
package events

import (
	"context"
	"errors"
	"time"

	"gator-forum/internal/ledger"

	"github.com/google/uuid"
)

type Kind string

const (
	PostCreated     Kind = "post.created"
	PostEdited      Kind = "post.edited"
	PostArchived    Kind = "post.archived"
	PostVoted       Kind = "post.voted"
	CommentAdded    Kind = "comment.added"
	CommentEdited   Kind = "comment.edited"
	CommentArchived Kind = "comment.archived"
	CommentVoted    Kind = "comment.voted"
)

// Event describes a committed mutation. It is only emitted after the write
// has been persisted.
type Event struct {
	ID        uuid.UUID     `json:"id"`
	Kind      Kind          `json:"kind"`
	PostID    uuid.UUID     `json:"postId"`
	CommentID *uuid.UUID    `json:"commentId,omitempty"`
	ActorID   uuid.UUID     `json:"actorId"`
	OwnerID   uuid.UUID     `json:"ownerId"`
	Tally     *ledger.Tally `json:"tally,omitempty"`
	At        time.Time     `json:"at"`
}

func New(kind Kind, postID, actorID uuid.UUID) Event {
	return Event{
		ID:      uuid.New(),
		Kind:    kind,
		PostID:  postID,
		ActorID: actorID,
		At:      time.Now().UTC(),
	}
}

func (e Event) WithComment(id uuid.UUID) Event {
	e.CommentID = &id
	return e
}

// WithOwner records the author of the content the event is about.
func (e Event) WithOwner(id uuid.UUID) Event {
	e.OwnerID = id
	return e
}

func (e Event) WithTally(t ledger.Tally) Event {
	e.Tally = &t
	return e
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// Recorder keeps events in memory; tests use it to assert on emissions.
type Recorder struct {
	ch chan Event
}

func NewRecorder(size int) *Recorder {
	return &Recorder{ch: make(chan Event, size)}
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	select {
	case r.ch <- event:
		return nil
	default:
		return errors.New("recorder full")
	}
}

// Drain returns everything recorded so far.
func (r *Recorder) Drain() []Event {
	var out []Event
	for {
		select {
		case e := <-r.ch:
			out = append(out, e)
		default:
			return out
		}
	}
}
