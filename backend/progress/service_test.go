package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"learnhub/backend/events"
	"learnhub/backend/models"
	"learnhub/backend/store"
	"learnhub/backend/store/storetest"
	"learnhub/backend/subjectstyle"
	"learnhub/backend/utils"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type fixture struct {
	db    *gorm.DB
	repos *store.Repos
	svc   *Service
	clock *fakeClock
	pub   *events.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := storetest.DB(t)
	repos := store.New(db, utils.NopLogger())
	clock := &fakeClock{t: wed}
	pub := &events.Recorder{}
	svc := NewService(repos, pub, utils.NopLogger(), Options{Location: time.UTC, Now: clock.Now})
	return &fixture{db: db, repos: repos, svc: svc, clock: clock, pub: pub}
}

// course seeds "Further Maths" with three topics; the first two have two lessons, the last one.
func (f *fixture) course(t *testing.T) (models.Subject, []models.Topic) {
	t.Helper()
	ctx := context.Background()
	subject := storetest.SeedSubject(t, ctx, f.db, "Further Maths")
	var topics []models.Topic
	for i, title := range []string{"Vectors", "Matrices", "Complex Numbers"} {
		topic := storetest.SeedTopic(t, ctx, f.db, subject.ID, title, i)
		storetest.SeedLesson(t, ctx, f.db, topic.ID, title+" intro", 0)
		if i < 2 {
			storetest.SeedLesson(t, ctx, f.db, topic.ID, title+" practice", 1)
		}
		topics = append(topics, *topic)
	}
	return *subject, topics
}

func TestLoad_NoUserReturnsEmptySnapshot(t *testing.T) {
	f := newFixture(t)
	snap := f.svc.Load(context.Background(), uuid.Nil)
	assert.Equal(t, uuid.Nil, snap.UserID)
	assert.NotNil(t, snap.CourseProgress)
	assert.Empty(t, snap.RecentLessons)
	assert.Empty(t, snap.ContinueLearning)
	assert.Nil(t, snap.UserStats)
}

func TestLoad_CreatesStatsRowLazily(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	_, err := f.repos.Stats.Get(ctx, nil, userID)
	require.ErrorIs(t, err, store.ErrNotFound)

	snap := f.svc.Load(ctx, userID)
	require.NotNil(t, snap.UserStats)
	assert.Equal(t, userID, snap.UserStats.UserID)
	assert.Equal(t, 0, snap.UserStats.CurrentStreak)
	assert.Nil(t, snap.UserStats.LastActivityDate)

	f.svc.Load(ctx, userID)
	var n int64
	require.NoError(t, f.db.Model(&models.UserStats{}).Where("user_id = ?", userID).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestCompleteTopic_IsIdempotentOnProgressRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_, topics := f.course(t)

	_, err := f.svc.CompleteTopic(ctx, userID, CompleteInput{TopicID: topics[0].ID, Score: 40})
	require.NoError(t, err)
	f.clock.Set(wed.Add(time.Hour))
	snap, err := f.svc.CompleteTopic(ctx, userID, CompleteInput{TopicID: topics[0].ID, Score: 95})
	require.NoError(t, err)

	rows, err := f.repos.Progress.ListByUser(ctx, nil, userID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 95, rows[0].Score)
	assert.True(t, rows[0].CompletedAt.Equal(wed.Add(time.Hour)))

	assert.Equal(t, Completion{Completed: true, Score: 95}, snap.CourseProgress[topics[0].ID])
	assert.Equal(t, 200, snap.UserStats.TotalXP)
	assert.Equal(t, 2, snap.UserStats.TotalLessonsCompleted)
	assert.Len(t, snap.Sessions, 2)
}

func TestCompleteTopic_StreakTransitions(t *testing.T) {
	tests := []struct {
		name        string
		last        *string
		current     int
		max         int
		wantCurrent int
		wantMax     int
	}{
		{"yesterday", strPtr("2026-03-03"), 3, 3, 4, 4},
		{"today", strPtr("2026-03-04"), 3, 7, 3, 7},
		{"two days ago", strPtr("2026-03-02"), 6, 6, 1, 6},
		{"never", nil, 0, 0, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			userID := uuid.New()
			_, topics := f.course(t)
			storetest.SeedStats(t, ctx, f.db, &models.UserStats{
				UserID:           userID,
				CurrentStreak:    tt.current,
				MaxStreak:        tt.max,
				TotalXP:          10,
				LastActivityDate: tt.last,
			})

			snap, err := f.svc.CompleteTopic(ctx, userID, CompleteInput{TopicID: topics[0].ID, Score: 75})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCurrent, snap.UserStats.CurrentStreak)
			assert.Equal(t, tt.wantMax, snap.UserStats.MaxStreak)
			assert.GreaterOrEqual(t, snap.UserStats.MaxStreak, snap.UserStats.CurrentStreak)
			assert.Equal(t, 110, snap.UserStats.TotalXP)
			assert.Equal(t, "2026-03-04", *snap.UserStats.LastActivityDate)
		})
	}
}

func TestCompleteTopic_DerivedLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	subject, topics := f.course(t)

	snap, err := f.svc.CompleteTopic(ctx, userID, CompleteInput{SubjectID: subject.ID, TopicID: topics[0].ID, Score: 90})
	require.NoError(t, err)

	require.Len(t, snap.RecentLessons, 1)
	recent := snap.RecentLessons[0]
	assert.Equal(t, "Vectors intro", recent.Title)
	assert.Equal(t, topics[0].ID, recent.TopicID)
	assert.Equal(t, subject.ID, recent.SubjectID)
	assert.Equal(t, 100, recent.Progress)
	assert.Equal(t, subjectstyle.Resolve("Mathematics").Color, recent.Style.Color)

	require.Len(t, snap.ContinueLearning, 1)
	item := snap.ContinueLearning[0]
	assert.Equal(t, subject.ID, item.SubjectID)
	assert.Equal(t, topics[1].ID, item.TopicID)
	assert.Equal(t, 1, item.CompletedTopics)
	assert.Equal(t, 3, item.TotalTopics)
	assert.Equal(t, 2, item.CompletedLessons)
	assert.Equal(t, 5, item.TotalLessons)
	assert.Equal(t, 40, item.Progress)

	assert.Equal(t, [7]bool{false, false, true, false, false, false, false}, snap.WeeklyActivity)

	for _, topic := range topics[1:] {
		snap, err = f.svc.CompleteTopic(ctx, userID, CompleteInput{TopicID: topic.ID})
		require.NoError(t, err)
	}
	assert.Empty(t, snap.ContinueLearning, "finished subjects leave continue learning")
	require.Len(t, snap.RecentLessons, 3)
	assert.Equal(t, topics[2].ID, snap.RecentLessons[0].TopicID)
}

func TestCompleteTopic_PublishesEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	subject, topics := f.course(t)

	_, err := f.svc.CompleteTopic(ctx, userID, CompleteInput{TopicID: topics[0].ID, Score: 70, DurationMinutes: 25})
	require.NoError(t, err)

	evs := f.pub.Events()
	require.Len(t, evs, 1)
	assert.Equal(t, userID, evs[0].UserID)
	assert.Equal(t, subject.ID, evs[0].SubjectID)
	assert.Equal(t, 100, evs[0].XPGained)
	assert.Equal(t, 1, evs[0].CurrentStreak)

	sessions, err := f.repos.Sessions.ListByUser(ctx, nil, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 25, sessions[0].DurationMinutes)
}

func TestCompleteTopic_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.pub.Err = errors.New("broker down")
	_, topics := f.course(t)

	snap, err := f.svc.CompleteTopic(context.Background(), uuid.New(), CompleteInput{TopicID: topics[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 50, snap.UserStats.TotalXP)
	assert.Equal(t, 15, snap.Sessions[0].DurationMinutes)
}

func TestCompleteTopic_Rejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, topics := f.course(t)
	other := storetest.SeedSubject(t, ctx, f.db, "History")

	_, err := f.svc.CompleteTopic(ctx, uuid.Nil, CompleteInput{TopicID: topics[0].ID})
	assert.ErrorIs(t, err, ErrNoUser)

	_, err = f.svc.CompleteTopic(ctx, uuid.New(), CompleteInput{})
	assert.ErrorIs(t, err, ErrMissingTopic)

	_, err = f.svc.CompleteTopic(ctx, uuid.New(), CompleteInput{TopicID: 9999})
	assert.ErrorIs(t, err, store.ErrNotFound)

	userID := uuid.New()
	_, err = f.svc.CompleteTopic(ctx, userID, CompleteInput{SubjectID: other.ID, TopicID: topics[0].ID})
	assert.ErrorIs(t, err, ErrTopicNotInSubject)

	rows, err := f.repos.Progress.ListByUser(ctx, nil, userID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

// staleOnce makes the first CompareAndSwap lose against a simulated concurrent completion.
type staleOnce struct {
	store.StatsRepo
	db   *gorm.DB
	once sync.Once
}

func (s *staleOnce) CompareAndSwap(ctx context.Context, tx *gorm.DB, next *models.UserStats) error {
	var raced bool
	s.once.Do(func() {
		raced = true
		_ = s.db.Model(&models.UserStats{}).Where("user_id = ?", next.UserID).
			Updates(map[string]interface{}{"total_xp": gorm.Expr("total_xp + 100"), "version": gorm.Expr("version + 1")}).Error
	})
	if err := s.StatsRepo.CompareAndSwap(ctx, tx, next); err != nil {
		return err
	}
	if raced {
		return errors.New("expected a stale write")
	}
	return nil
}

func TestCompleteTopic_RetriesStaleStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_, topics := f.course(t)
	f.repos.Stats = &staleOnce{StatsRepo: f.repos.Stats, db: f.db}

	snap, err := f.svc.CompleteTopic(ctx, userID, CompleteInput{TopicID: topics[0].ID, Score: 95})
	require.NoError(t, err)
	assert.Equal(t, 250, snap.UserStats.TotalXP, "both writes survive")
	assert.Equal(t, 2, snap.UserStats.Version)
}

type alwaysStale struct{ store.StatsRepo }

func (alwaysStale) CompareAndSwap(context.Context, *gorm.DB, *models.UserStats) error {
	return store.ErrStaleStats
}

func TestCompleteTopic_GivesUpAfterRepeatedConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_, topics := f.course(t)
	f.repos.Stats = alwaysStale{f.repos.Stats}

	_, err := f.svc.CompleteTopic(ctx, userID, CompleteInput{TopicID: topics[0].ID})
	assert.ErrorIs(t, err, store.ErrStaleStats)

	sessions, err := f.repos.Sessions.ListByUser(ctx, nil, userID)
	require.NoError(t, err)
	assert.Empty(t, sessions, "later steps are skipped")
	assert.Empty(t, f.pub.Events())
}

type brokenLessons struct{ store.LessonRepo }

func (brokenLessons) ListDetailsByTopicIDs(context.Context, *gorm.DB, []uint) ([]store.LessonDetail, error) {
	return nil, errors.New("join failed")
}

func TestLoadFrom_KeepsPreviousListsWhenJoinFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	_, topics := f.course(t)

	prev, err := f.svc.CompleteTopic(ctx, userID, CompleteInput{TopicID: topics[0].ID})
	require.NoError(t, err)
	require.Len(t, prev.RecentLessons, 1)

	f.repos.Lessons = brokenLessons{f.repos.Lessons}
	_, err = f.svc.complete(ctx, userID, CompleteInput{TopicID: topics[1].ID})
	require.NoError(t, err)

	snap := f.svc.LoadFrom(ctx, userID, prev)
	assert.Equal(t, prev.RecentLessons, snap.RecentLessons)
	assert.Equal(t, prev.ContinueLearning, snap.ContinueLearning)
	assert.True(t, snap.CourseProgress.Done(topics[1].ID), "completion map still refreshes")
	assert.Equal(t, 100, snap.UserStats.TotalXP)

	fresh := f.svc.Load(ctx, userID)
	assert.Empty(t, fresh.RecentLessons)
}

func TestLoad_RecentTopicsLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := uuid.New()
	subject := storetest.SeedSubject(t, ctx, f.db, "Chemistry")
	svc := NewService(f.repos, nil, nil, Options{Location: time.UTC, Now: f.clock.Now, RecentLimit: 2})

	for i := 0; i < 4; i++ {
		topic := storetest.SeedTopic(t, ctx, f.db, subject.ID, "topic", i)
		storetest.SeedLesson(t, ctx, f.db, topic.ID, "lesson", 0)
		storetest.SeedCompletion(t, ctx, f.db, userID, topic.ID, 80, wed.Add(time.Duration(i)*time.Minute))
	}

	snap := svc.Load(ctx, userID)
	assert.Len(t, snap.CourseProgress, 4)
	assert.Len(t, snap.RecentLessons, 2)
}
