package scheduler

import (
	"context"
	"testing"
	"time"

	"learnhub/backend/models"
	"learnhub/backend/progress"
	"learnhub/backend/store"
	"learnhub/backend/store/storetest"
	"learnhub/backend/utils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpireStreaks(t *testing.T) {
	ctx := context.Background()
	db := storetest.DB(t)
	repos := store.New(db, utils.NopLogger())
	now := func() time.Time { return time.Date(2026, 3, 4, 0, 5, 0, 0, time.UTC) }

	broken := storetest.SeedStats(t, ctx, db, &models.UserStats{UserID: uuid.New(), CurrentStreak: 6, MaxStreak: 6, LastActivityDate: storetest.StrPtr("2026-03-02")})
	alive := storetest.SeedStats(t, ctx, db, &models.UserStats{UserID: uuid.New(), CurrentStreak: 2, MaxStreak: 2, LastActivityDate: storetest.StrPtr("2026-03-03")})

	s := New(repos.Stats, nil, nil, Options{Location: time.UTC, Now: now})
	n, err := s.ExpireStreaks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repos.Stats.Get(ctx, nil, broken.UserID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentStreak)
	assert.Equal(t, 6, got.MaxStreak)

	got, err = repos.Stats.Get(ctx, nil, alive.UserID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentStreak)

	// An expired streak restarts at one on the next completion.
	assert.Equal(t, 1, progress.NextStreak(models.UserStats{CurrentStreak: 0, LastActivityDate: storetest.StrPtr("2026-03-02")}, now()))
}

func TestStart(t *testing.T) {
	db := storetest.DB(t)
	repos := store.New(db, utils.NopLogger())
	svc := progress.NewService(repos, nil, nil, progress.Options{Location: time.UTC})
	s := New(repos.Stats, progress.NewRegistry(svc), nil, Options{Location: time.UTC, IdleAfter: time.Hour})

	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Len(t, s.cron.Jobs(), 2)
}

func TestStart_RejectsBadCron(t *testing.T) {
	db := storetest.DB(t)
	repos := store.New(db, utils.NopLogger())
	s := New(repos.Stats, nil, nil, Options{ExpiryCron: "not a cron"})
	assert.Error(t, s.Start())
}
