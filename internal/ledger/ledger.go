// Package ledger tracks per-entity votes: one record per voter plus the
// aggregate upvote and downvote counters derived from those records.
package ledger

import (
	"fmt"

	"gator-forum/internal/utils"

	"github.com/google/uuid"
)

// Direction represents the direction of a vote.
type Direction string

const (
	Upvote   Direction = "upvote"
	Downvote Direction = "downvote"
)

// ParseDirection validates a direction coming from outside the process.
func ParseDirection(s string) (Direction, error) {
	switch Direction(s) {
	case Upvote, Downvote:
		return Direction(s), nil
	}
	return "", utils.NewValidationError(fmt.Sprintf("invalid vote direction %q", s))
}

// State is a single voter's position on an entity.
type State int

const (
	NoVote State = iota
	Upvoted
	Downvoted
)

func (s State) String() string {
	switch s {
	case Upvoted:
		return "upvoted"
	case Downvoted:
		return "downvoted"
	default:
		return "none"
	}
}

// Upvote is the transition taken when the voter upvotes.
func (s State) Upvote() (State, error) {
	if s == Upvoted {
		return s, errDuplicate(Upvote)
	}
	return Upvoted, nil
}

// Downvote is the transition taken when the voter downvotes.
func (s State) Downvote() (State, error) {
	if s == Downvoted {
		return s, errDuplicate(Downvote)
	}
	return Downvoted, nil
}

func (s State) apply(dir Direction) (State, error) {
	if dir == Upvote {
		return s.Upvote()
	}
	return s.Downvote()
}

func errDuplicate(dir Direction) error {
	return utils.NewAppError(utils.ErrDuplicateVote, fmt.Sprintf("You have already %sd this", dir), nil)
}

// Voter is one user's vote record.
type Voter struct {
	UserID uuid.UUID `json:"user"`
	Vote   Direction `json:"vote"`
}

// Tally is the counter pair returned to callers after a vote.
type Tally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// Ledger is embedded in every votable entity.
type Ledger struct {
	Upvotes   int     `json:"upvotes"`
	Downvotes int     `json:"downvotes"`
	Voters    []Voter `json:"voters"`
}

// StateOf reports where userID currently stands.
func (l *Ledger) StateOf(userID uuid.UUID) State {
	if i := l.find(userID); i >= 0 {
		if l.Voters[i].Vote == Upvote {
			return Upvoted
		}
		return Downvoted
	}
	return NoVote
}

// Apply records userID's vote. A repeated vote in the same direction fails
// with DUPLICATE_VOTE and leaves the ledger untouched; an opposite vote flips
// the existing record and moves one count across.
func (l *Ledger) Apply(userID uuid.UUID, dir Direction) (Tally, error) {
	if _, err := ParseDirection(string(dir)); err != nil {
		return l.Tally(), err
	}

	prev := l.StateOf(userID)
	next, err := prev.apply(dir)
	if err != nil {
		return l.Tally(), err
	}

	switch prev {
	case NoVote:
		l.Voters = append(l.Voters, Voter{UserID: userID, Vote: dir})
	case Upvoted:
		l.Upvotes--
		l.Voters[l.find(userID)].Vote = dir
	case Downvoted:
		l.Downvotes--
		l.Voters[l.find(userID)].Vote = dir
	}

	if next == Upvoted {
		l.Upvotes++
	} else {
		l.Downvotes++
	}
	return l.Tally(), nil
}

// Tally returns the current counters.
func (l *Ledger) Tally() Tally {
	return Tally{Upvotes: l.Upvotes, Downvotes: l.Downvotes}
}

// Recount derives the counters from the voter records.
func (l *Ledger) Recount() Tally {
	var t Tally
	for _, v := range l.Voters {
		switch v.Vote {
		case Upvote:
			t.Upvotes++
		case Downvote:
			t.Downvotes++
		}
	}
	return t
}

// Consistent reports whether the stored counters match the voter records and
// no user appears twice.
func (l *Ledger) Consistent() bool {
	if l.Recount() != l.Tally() {
		return false
	}
	seen := make(map[uuid.UUID]struct{}, len(l.Voters))
	for _, v := range l.Voters {
		if _, dup := seen[v.UserID]; dup {
			return false
		}
		seen[v.UserID] = struct{}{}
	}
	return true
}

func (l *Ledger) find(userID uuid.UUID) int {
	for i, v := range l.Voters {
		if v.UserID == userID {
			return i
		}
	}
	return -1
}
