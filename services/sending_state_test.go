package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/frcomments/models"
	"github.com/cppla/frcomments/repository"
)

func seedPending(t *testing.T, f fixture, n int) []int64 {
	t.Helper()
	ids := make([]int64, 0, n)
	for i := 0; i < n; i++ {
		at := baseTime.Add(time.Duration(i) * time.Second)
		c, err := f.svc.Create(context.Background(), newComment(func(in *models.NewCommentInput) { in.CreatedAt = at }))
		require.NoError(t, err)
		ids = append(ids, mustID(t, c))
	}
	return ids
}

func TestClaimPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := seedPending(t, f, 3)

	claimed, err := f.svc.ClaimPending(ctx, "CS101", "Session 1", 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
	assert.Equal(t, ids[0], mustID(t, claimed[0]))
	assert.Equal(t, ids[1], mustID(t, claimed[1]))
	for _, c := range claimed {
		assert.Equal(t, models.SendingStateSending, c.SendingState)
		assert.False(t, f.cache.has(cacheKey(mustID(t, c))))
	}

	again, err := f.svc.ClaimPending(ctx, "CS101", "Session 1", 5)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, ids[2], mustID(t, again[0]))

	none, err := f.svc.ClaimPending(ctx, "CS101", "Session 1", 5)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestMarkSentAndRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := seedPending(t, f, 3)

	_, err := f.svc.MarkSent(ctx, ids[:1])
	assert.ErrorIs(t, err, ErrInvalidTransition, "pending comments cannot jump to sent")

	claimed, err := f.svc.ClaimPending(ctx, "CS101", "Session 1", 0)
	require.NoError(t, err)
	require.Len(t, claimed, 3)

	n, err := f.svc.MarkSent(ctx, []int64{ids[0], ids[1], ids[0]})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = f.svc.ReleaseSending(ctx, ids[2:])
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.svc.ReleaseSending(ctx, ids[:1])
	assert.ErrorIs(t, err, ErrInvalidTransition, "sent is final")

	_, err = f.svc.MarkSent(ctx, []int64{ids[2], 9999})
	assert.ErrorIs(t, err, ErrCommentNotFound)

	n, err = f.svc.MarkSent(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	counts, err := f.svc.CountBySendingState(ctx, "CS101", "Session 1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.SendingStatePending])
	assert.Equal(t, int64(0), counts[models.SendingStateSending])
	assert.Equal(t, int64(2), counts[models.SendingStateSent])

	got, err := f.svc.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.SendingStateSent, got.SendingState)
}

func TestTransition_LeavesBatchUntouchedOnError(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := seedPending(t, f, 2)

	sending := models.SendingStateSending
	_, err := f.svc.Patch(ctx, ids[0], models.CommentPatch{SendingState: &sending})
	require.NoError(t, err)

	_, err = f.svc.MarkSent(ctx, ids)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := f.svc.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, models.SendingStateSending, got.SendingState)
}

// racingRepository lets a competing worker move selected comments just before our own
// guarded update runs.
type racingRepository struct {
	repository.CommentRepository
	stolen map[int64]bool
}

func (r *racingRepository) SetSendingState(ctx context.Context, ids []int64, from, to models.SendingState) (int64, error) {
	for _, id := range ids {
		if r.stolen[id] {
			if _, err := r.CommentRepository.SetSendingState(ctx, []int64{id}, from, to); err != nil {
				return 0, err
			}
		}
	}
	return r.CommentRepository.SetSendingState(ctx, ids, from, to)
}

func (r *racingRepository) Transaction(ctx context.Context, fn func(repo repository.CommentRepository) error) error {
	return r.CommentRepository.Transaction(ctx, func(tx repository.CommentRepository) error {
		return fn(&racingRepository{CommentRepository: tx, stolen: r.stolen})
	})
}

func TestClaimPending_SkipsCommentsClaimedElsewhere(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := seedPending(t, f, 3)

	racing := &racingRepository{CommentRepository: f.repo, stolen: map[int64]bool{ids[0]: true, ids[2]: true}}
	svc := NewCommentService(racing, f.cache, time.Minute, nil)

	claimed, err := svc.ClaimPending(ctx, "CS101", "Session 1", 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, ids[1], mustID(t, claimed[0]))
	assert.Equal(t, models.SendingStateSending, claimed[0].SendingState)

	counts, err := svc.CountBySendingState(ctx, "CS101", "Session 1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[models.SendingStateSending])
}

func TestClaimPending_NothingWhenAllTaken(t *testing.T) {
	f := newFixture(t)
	ids := seedPending(t, f, 2)

	racing := &racingRepository{CommentRepository: f.repo, stolen: map[int64]bool{ids[0]: true, ids[1]: true}}
	svc := NewCommentService(racing, nil, time.Minute, nil)

	claimed, err := svc.ClaimPending(context.Background(), "CS101", "Session 1", 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}
