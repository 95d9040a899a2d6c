package services

import (
	"context"
	"testing"
	"time"

	apperrors "pinboard/internal/errors"
	"pinboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestSubmitVoteChangeOfMind(t *testing.T) {
	svc, gdb := setupServices(t)
	ctx := context.Background()
	author := createUser(t, gdb, "alice", "Alice")
	u := createUser(t, gdb, "ulysses", "U")
	v := createUser(t, gdb, "victor", "V")
	thread := createThread(t, gdb, author, "Hello", "", time.Now())

	agg, err := svc.Scores.SubmitVote(ctx, u.ID, thread, 1)
	require.NoError(t, err)
	assert.Equal(t, Aggregate{Upvotes: 1, Downvotes: 0, ViewerVote: 1}, agg)

	agg, err = svc.Scores.SubmitVote(ctx, u.ID, thread, -1)
	require.NoError(t, err)
	assert.Equal(t, Aggregate{Upvotes: 0, Downvotes: 1, ViewerVote: -1}, agg)

	_, err = svc.Scores.SubmitVote(ctx, v.ID, thread, 1)
	require.NoError(t, err)

	agg, err = svc.Scores.Aggregate(ctx, thread, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, agg.Upvotes)
	assert.EqualValues(t, 1, agg.Downvotes)
	assert.Equal(t, -1, agg.ViewerVote)
	assert.EqualValues(t, 0, agg.Score())
}

func TestSubmitVoteSameValueIsIdempotent(t *testing.T) {
	svc, gdb := setupServices(t)
	ctx := context.Background()
	author := createUser(t, gdb, "alice", "Alice")
	thread := createThread(t, gdb, author, "Hello", "", time.Now())
	resp := createResponse(t, gdb, author, thread, "first", time.Now())

	first, err := svc.Scores.SubmitVote(ctx, author.ID, resp, 1)
	require.NoError(t, err)
	second, err := svc.Scores.SubmitVote(ctx, author.ID, resp, 1)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	var rows int64
	gdb.Model(&models.Vote{}).Count(&rows)
	assert.EqualValues(t, 1, rows)
}

func TestSubmitVoteRejectsBadInput(t *testing.T) {
	svc, gdb := setupServices(t)
	ctx := context.Background()
	author := createUser(t, gdb, "alice", "Alice")
	thread := createThread(t, gdb, author, "Hello", "", time.Now())

	for _, value := range []int{0, 2, -2} {
		_, err := svc.Scores.SubmitVote(ctx, author.ID, thread, value)
		assert.True(t, apperrors.IsCode(err, apperrors.ErrInvalidVote), "value %d", value)
	}

	_, err := svc.Scores.SubmitVote(ctx, author.ID, EntityRef{Type: models.EntityThread, ID: 999}, 1)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrEntityNotFound))

	_, err = svc.Scores.SubmitVote(ctx, author.ID, EntityRef{Type: models.EntityUser, ID: author.ID}, 1)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrEntityNotFound))

	var rows int64
	gdb.Model(&models.Vote{}).Count(&rows)
	assert.Zero(t, rows)
}

func TestAggregateMatchesLedger(t *testing.T) {
	svc, gdb := setupServices(t)
	ctx := context.Background()
	author := createUser(t, gdb, "alice", "Alice")
	thread := createThread(t, gdb, author, "Hello", "", time.Now())

	values := []int{1, 1, -1, 1, -1, -1, 1}
	for i, value := range values {
		voter := createUser(t, gdb, "voter"+string(rune('a'+i)), "Voter")
		_, err := svc.Scores.SubmitVote(ctx, voter.ID, thread, value)
		require.NoError(t, err)
	}

	var ledger []models.Vote
	require.NoError(t, gdb.Where("entity_type = ? AND entity_id = ?", models.EntityThread, thread.ID).Find(&ledger).Error)
	var up, down int64
	for _, v := range ledger {
		if v.Value == 1 {
			up++
		} else {
			down++
		}
	}

	agg, err := svc.Scores.Aggregate(ctx, thread, 0)
	require.NoError(t, err)
	assert.Equal(t, up, agg.Upvotes)
	assert.Equal(t, down, agg.Downvotes)
	assert.Zero(t, agg.ViewerVote, "anonymous viewer has no vote")
}

func TestSelfVoteAllowed(t *testing.T) {
	svc, gdb := setupServices(t)
	author := createUser(t, gdb, "alice", "Alice")
	thread := createThread(t, gdb, author, "Mine", "", time.Now())

	agg, err := svc.Scores.SubmitVote(context.Background(), author.ID, thread, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, agg.Upvotes)
	assert.Empty(t, allNotifications(t, gdb), "votes never notify")
}

func TestAggregateManyFillsMissing(t *testing.T) {
	svc, gdb := setupServices(t)
	ctx := context.Background()
	author := createUser(t, gdb, "alice", "Alice")
	bob := createUser(t, gdb, "bob", "Bob")
	t1 := createThread(t, gdb, author, "one", "", time.Now())
	t2 := createThread(t, gdb, author, "two", "", time.Now())

	_, err := svc.Scores.SubmitVote(ctx, bob.ID, t1, -1)
	require.NoError(t, err)
	_, err = svc.Scores.SubmitVote(ctx, author.ID, t1, 1)
	require.NoError(t, err)

	aggs, err := svc.Scores.AggregateMany(ctx, models.EntityThread, []uint{t1.ID, t2.ID}, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, Aggregate{Upvotes: 1, Downvotes: 1, ViewerVote: -1}, aggs[t1.ID])
	assert.Equal(t, Aggregate{}, aggs[t2.ID])

	empty, err := svc.Scores.AggregateMany(ctx, models.EntityThread, nil, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCustomEntityChecker(t *testing.T) {
	gdb := setupTestDB(t)
	var checked []Votable
	scores := NewScoreService(gdb).WithEntityChecker(func(ctx context.Context, tx *gorm.DB, target Votable) (bool, error) {
		checked = append(checked, target)
		return true, nil
	})

	ref := EntityRef{Type: models.EntityResponse, ID: 77}
	agg, err := scores.SubmitVote(context.Background(), 5, ref, 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, agg.Upvotes)
	assert.Equal(t, []Votable{ref}, checked)
}

func TestParseVotableType(t *testing.T) {
	typ, ok := ParseVotableType("post")
	assert.True(t, ok)
	assert.Equal(t, models.EntityThread, typ)
	typ, ok = ParseVotableType("response")
	assert.True(t, ok)
	assert.Equal(t, models.EntityResponse, typ)
	_, ok = ParseVotableType("user")
	assert.False(t, ok)
}
