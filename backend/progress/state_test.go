package progress

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_Lifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, topics := f.course(t)
	st := NewState(f.svc)

	_, err := st.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = st.Init(ctx, uuid.Nil)
	assert.ErrorIs(t, err, ErrNoUser)

	userID := uuid.New()
	snap, err := st.Init(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, snap.UserID)
	require.NotNil(t, snap.UserStats)

	snap, out, err := st.CompleteTopic(ctx, CompleteInput{TopicID: topics[0].ID, Score: 92})
	require.NoError(t, err)
	assert.Equal(t, 150, out.XPGained)
	assert.Equal(t, 150, snap.UserStats.TotalXP)

	cached, err := st.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, cached)

	st.Dispose()
	_, err = st.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = st.Refresh(ctx)
	assert.ErrorIs(t, err, ErrDisposed)
	_, _, err = st.CompleteTopic(ctx, CompleteInput{TopicID: topics[1].ID})
	assert.ErrorIs(t, err, ErrDisposed)
	_, err = st.Init(ctx, userID)
	assert.ErrorIs(t, err, ErrDisposed)
}

func TestState_FailedCompletionKeepsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, topics := f.course(t)
	st := NewState(f.svc)
	_, err := st.Init(ctx, uuid.New())
	require.NoError(t, err)

	before, _, err := st.CompleteTopic(ctx, CompleteInput{TopicID: topics[0].ID})
	require.NoError(t, err)

	after, _, err := st.CompleteTopic(ctx, CompleteInput{TopicID: 4242})
	assert.Error(t, err)
	assert.Equal(t, before, after)
}

func TestState_RefreshSeesOutsideWrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, topics := f.course(t)
	userID := uuid.New()
	st := NewState(f.svc)
	_, err := st.Init(ctx, userID)
	require.NoError(t, err)

	_, err = f.svc.CompleteTopic(ctx, userID, CompleteInput{TopicID: topics[0].ID})
	require.NoError(t, err)

	cached, err := st.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, cached.CourseProgress.Done(topics[0].ID))

	fresh, err := st.Refresh(ctx)
	require.NoError(t, err)
	assert.True(t, fresh.CourseProgress.Done(topics[0].ID))
}

func TestRegistry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := NewRegistry(f.svc)
	a, b := uuid.New(), uuid.New()

	_, err := reg.Get(ctx, uuid.Nil)
	assert.ErrorIs(t, err, ErrNoUser)

	sa, err := reg.Get(ctx, a)
	require.NoError(t, err)
	again, err := reg.Get(ctx, a)
	require.NoError(t, err)
	assert.Same(t, sa, again)

	_, err = reg.Get(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	reg.Dispose(a)
	assert.Equal(t, 1, reg.Len())
	_, err = sa.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrDisposed)

	fresh, err := reg.Get(ctx, a)
	require.NoError(t, err)
	assert.NotSame(t, sa, fresh)

	reg.Close()
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_EvictIdle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	reg := NewRegistry(f.svc)
	idle, active := uuid.New(), uuid.New()

	_, err := reg.Get(ctx, idle)
	require.NoError(t, err)
	f.clock.Set(wed.Add(45 * time.Minute))
	_, err = reg.Get(ctx, active)
	require.NoError(t, err)

	f.clock.Set(wed.Add(time.Hour))
	assert.Equal(t, 1, reg.EvictIdle(30*time.Minute))
	assert.Equal(t, 1, reg.Len())

	st, err := reg.Get(ctx, active)
	require.NoError(t, err)
	snap, err := st.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, active, snap.UserID)
}

func TestState_ReloadsOnNewDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, topics := f.course(t)
	reg := NewRegistry(f.svc)
	userID := uuid.New()

	sunday := time.Date(2026, 3, 8, 20, 0, 0, 0, time.UTC)
	f.clock.Set(sunday)
	st, err := reg.Get(ctx, userID)
	require.NoError(t, err)
	snap, _, err := st.CompleteTopic(ctx, CompleteInput{TopicID: topics[0].ID})
	require.NoError(t, err)
	assert.Equal(t, [7]bool{6: true}, snap.WeeklyActivity)

	f.clock.Set(sunday.Add(2 * time.Hour))
	st, err = reg.Get(ctx, userID)
	require.NoError(t, err)
	snap, err = st.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, [7]bool{}, snap.WeeklyActivity)
	assert.Equal(t, "2026-03-09", DateKey(snap.LoadedAt))
	assert.Equal(t, 1, snap.UserStats.CurrentStreak)

	// Streak expiry written behind the cache shows up after the next rollover.
	_, err = f.repos.Stats.ExpireStreaks(ctx, nil, "2026-03-10")
	require.NoError(t, err)
	f.clock.Set(sunday.Add(50 * time.Hour))
	snap, err = st.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.UserStats.CurrentStreak)
}

func TestRegistry_EvictIdleSparesFreshStates(t *testing.T) {
	f := newFixture(t)
	reg := NewRegistry(f.svc)
	pending := NewState(f.svc)
	reg.states[uuid.New()] = pending

	assert.Equal(t, 0, reg.EvictIdle(time.Minute))
	_, err := pending.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}
