package ledger

import (
	"math/rand"
	"testing"

	"gator-forum/internal/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuplicateUpvoteLeavesCountersUnchanged(t *testing.T) {
	var l Ledger
	user := uuid.New()

	tally, err := l.Apply(user, Upvote)
	require.NoError(t, err)
	assert.Equal(t, Tally{Upvotes: 1}, tally)

	tally, err = l.Apply(user, Upvote)
	assert.True(t, utils.IsErrorCode(err, utils.ErrDuplicateVote))
	assert.Equal(t, Tally{Upvotes: 1}, tally)
	assert.Len(t, l.Voters, 1)
}

func TestFlipUpvoteToDownvote(t *testing.T) {
	var l Ledger
	user := uuid.New()

	_, err := l.Apply(user, Upvote)
	require.NoError(t, err)
	tally, err := l.Apply(user, Downvote)
	require.NoError(t, err)

	assert.Equal(t, Tally{Upvotes: 0, Downvotes: 1}, tally)
	require.Len(t, l.Voters, 1)
	assert.Equal(t, Voter{UserID: user, Vote: Downvote}, l.Voters[0])
	assert.Equal(t, Downvoted, l.StateOf(user))
}

func TestFlipDownvoteToUpvote(t *testing.T) {
	var l Ledger
	user := uuid.New()

	_, err := l.Apply(user, Downvote)
	require.NoError(t, err)
	tally, err := l.Apply(user, Upvote)
	require.NoError(t, err)

	assert.Equal(t, Tally{Upvotes: 1, Downvotes: 0}, tally)
	assert.Equal(t, Upvoted, l.StateOf(user))
}

func TestStateTransitions(t *testing.T) {
	next, err := NoVote.Upvote()
	require.NoError(t, err)
	assert.Equal(t, Upvoted, next)

	next, err = NoVote.Downvote()
	require.NoError(t, err)
	assert.Equal(t, Downvoted, next)

	next, err = Upvoted.Downvote()
	require.NoError(t, err)
	assert.Equal(t, Downvoted, next)

	_, err = Upvoted.Upvote()
	assert.Error(t, err)
	_, err = Downvoted.Downvote()
	assert.Error(t, err)
}

func TestInvalidDirectionRejected(t *testing.T) {
	var l Ledger
	_, err := l.Apply(uuid.New(), Direction("sideways"))
	assert.True(t, utils.IsErrorCode(err, utils.ErrInvalidInput))
	assert.Empty(t, l.Voters)
}

func TestCountersMatchVotersAfterRandomSequence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	users := make([]uuid.UUID, 12)
	for i := range users {
		users[i] = uuid.New()
	}

	var l Ledger
	for i := 0; i < 500; i++ {
		dir := Upvote
		if rng.Intn(2) == 0 {
			dir = Downvote
		}
		_, _ = l.Apply(users[rng.Intn(len(users))], dir)

		require.True(t, l.Consistent(), "step %d", i)
		require.GreaterOrEqual(t, l.Upvotes, 0)
		require.GreaterOrEqual(t, l.Downvotes, 0)
	}
	assert.LessOrEqual(t, len(l.Voters), len(users))
}

func TestConsistentDetectsDrift(t *testing.T) {
	l := Ledger{
		Upvotes: 2,
		Voters:  []Voter{{UserID: uuid.New(), Vote: Upvote}},
	}
	assert.False(t, l.Consistent())
	assert.Equal(t, Tally{Upvotes: 1}, l.Recount())
}

func TestParseDirection(t *testing.T) {
	dir, err := ParseDirection("downvote")
	require.NoError(t, err)
	assert.Equal(t, Downvote, dir)

	_, err = ParseDirection("down")
	assert.Error(t, err)
}
