// Package progress derives a learner's dashboard state from completion, stats and session rows,
// and records topic completions.
package progress

import (
	"context"
	"time"

	"learnhub/backend/curriculum"
	"learnhub/backend/events"
	"learnhub/backend/models"
	"learnhub/backend/store"
	"learnhub/backend/subjectstyle"
	"learnhub/backend/utils"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

const (
	maxRecentTopics  = 10
	maxStatsAttempts = 3
)

var (
	ErrNoUser            = errors.New("progress: no user")
	ErrMissingTopic      = errors.New("progress: missing topic id")
	ErrTopicNotInSubject = errors.New("progress: topic does not belong to subject")
)

type (
	Completion    = curriculum.Completion
	CompletionMap = curriculum.CompletionMap
)

// RecentLesson is the entry point lesson of a recently completed topic.
type RecentLesson struct {
	LessonID        uint               `json:"lesson_id"`
	Title           string             `json:"title"`
	DurationMinutes int                `json:"duration_minutes"`
	TopicID         uint               `json:"topic_id"`
	TopicTitle      string             `json:"topic_title"`
	SubjectID       uint               `json:"subject_id"`
	SubjectName     string             `json:"subject_name"`
	Style           subjectstyle.Style `json:"style"`
	Progress        int                `json:"progress"`
}

// ContinueItem is a partially completed subject together with the next topic to study.
type ContinueItem struct {
	SubjectID        uint               `json:"subject_id"`
	SubjectName      string             `json:"subject_name"`
	Style            subjectstyle.Style `json:"style"`
	TopicID          uint               `json:"topic_id"`
	TopicTitle       string             `json:"topic_title"`
	CompletedTopics  int                `json:"completed_topics"`
	TotalTopics      int                `json:"total_topics"`
	CompletedLessons int                `json:"completed_lessons"`
	TotalLessons     int                `json:"total_lessons"`
	Progress         int                `json:"progress"`
}

type Snapshot struct {
	UserID           uuid.UUID                `json:"user_id"`
	CourseProgress   CompletionMap            `json:"course_progress"`
	UserStats        *models.UserStats        `json:"user_stats"`
	Sessions         []models.LearningSession `json:"sessions"`
	WeeklyActivity   [7]bool                  `json:"weekly_activity"`
	RecentLessons    []RecentLesson           `json:"recent_lessons"`
	ContinueLearning []ContinueItem           `json:"continue_learning"`
	LoadedAt         time.Time                `json:"loaded_at"`
}

// CompleteInput describes one topic completion. Zero SubjectID means "the topic's own subject";
// zero DurationMinutes means DefaultDurationMinutes.
type CompleteInput struct {
	SubjectID       uint
	TopicID         uint
	Score           int
	DurationMinutes int
}

// Outcome is what a single completion changed.
type Outcome struct {
	XPGained int
	Stats    models.UserStats
	Session  models.LearningSession
}

type Options struct {
	Location    *time.Location
	Now         func() time.Time
	RecentLimit int
}

type Service struct {
	repos       *store.Repos
	pub         events.Publisher
	log         *utils.Logger
	loc         *time.Location
	now         func() time.Time
	recentLimit int
}

func NewService(repos *store.Repos, pub events.Publisher, log *utils.Logger, opts Options) *Service {
	if log == nil {
		log = utils.NopLogger()
	}
	if pub == nil {
		pub = events.Nop{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RecentLimit <= 0 || opts.RecentLimit > maxRecentTopics {
		opts.RecentLimit = maxRecentTopics
	}
	return &Service{
		repos:       repos,
		pub:         pub,
		log:         log.With("service", "ProgressService"),
		loc:         opts.Location,
		now:         opts.Now,
		recentLimit: opts.RecentLimit,
	}
}

func (s *Service) clock() time.Time {
	return s.now().In(s.loc)
}

// Load builds a fresh snapshot. Parts that fail to load are left empty.
func (s *Service) Load(ctx context.Context, userID uuid.UUID) Snapshot {
	return s.LoadFrom(ctx, userID, Snapshot{})
}

// LoadFrom rebuilds the snapshot for userID. Every part that fails to load keeps its value from prev;
// failures are logged and never returned.
func (s *Service) LoadFrom(ctx context.Context, userID uuid.UUID, prev Snapshot) Snapshot {
	if userID == uuid.Nil {
		s.log.Warn("progress load without a user")
		return emptySnapshot(uuid.Nil, time.Time{})
	}
	log := s.log.With("user_id", userID)

	snap := prev
	if prev.UserID != userID {
		snap = emptySnapshot(userID, time.Time{})
	}
	snap.UserID = userID
	normalize(&snap)

	// 1. completions, newest first
	records, err := s.repos.Progress.ListByUser(ctx, nil, userID)
	if err != nil {
		log.Error("load completions failed", "step", "completions", "error", err)
	} else {
		snap.CourseProgress = completionMap(records)
		// 2 + 3. recent lessons and continue learning, read from one snapshot
		recentTopics := distinctTopics(records, s.recentLimit)
		var recent []RecentLesson
		var cont []ContinueItem
		err = store.ReadSnapshot(ctx, s.repos.DB, func(tx *gorm.DB) error {
			var err error
			recent, cont, err = s.derive(ctx, tx, recentTopics, snap.CourseProgress)
			return err
		})
		if err != nil {
			log.Error("derive recent lessons failed", "step", "recent", "error", err)
		} else {
			snap.RecentLessons = recent
			snap.ContinueLearning = cont
		}
	}

	// 4. stats, created on first load
	if stats, err := s.ensureStats(ctx, userID); err != nil {
		log.Error("load stats failed", "step", "stats", "error", err)
	} else {
		snap.UserStats = stats
	}

	// 5. sessions and this week's activity
	now := s.clock()
	if sessions, err := s.repos.Sessions.ListByUser(ctx, nil, userID); err != nil {
		log.Error("load sessions failed", "step", "sessions", "error", err)
	} else {
		snap.Sessions = sessions
		snap.WeeklyActivity = WeeklyActivity(sessions, now)
	}

	snap.LoadedAt = now
	normalize(&snap)
	return snap
}

func (s *Service) derive(ctx context.Context, tx *gorm.DB, topicIDs []uint, completion CompletionMap) ([]RecentLesson, []ContinueItem, error) {
	recent := []RecentLesson{}
	cont := []ContinueItem{}
	if len(topicIDs) == 0 {
		return recent, cont, nil
	}

	details, err := s.repos.Lessons.ListDetailsByTopicIDs(ctx, tx, topicIDs)
	if err != nil {
		return nil, nil, err
	}
	firstLesson := make(map[uint]store.LessonDetail, len(topicIDs))
	for _, d := range details {
		if _, ok := firstLesson[d.TopicID]; !ok {
			firstLesson[d.TopicID] = d
		}
	}
	for _, id := range topicIDs {
		d, ok := firstLesson[id]
		if !ok {
			continue
		}
		recent = append(recent, RecentLesson{
			LessonID:        d.LessonID,
			Title:           d.LessonTitle,
			DurationMinutes: d.DurationMinutes,
			TopicID:         d.TopicID,
			TopicTitle:      d.TopicTitle,
			SubjectID:       d.SubjectID,
			SubjectName:     d.SubjectName,
			Style:           subjectstyle.ResolveSubject(d.Subject()),
			Progress:        topicProgress(completion[d.TopicID]),
		})
	}

	touched, err := s.repos.Topics.GetByIDs(ctx, tx, topicIDs)
	if err != nil {
		return nil, nil, err
	}
	subjectOf := make(map[uint]uint, len(touched))
	for _, t := range touched {
		subjectOf[t.ID] = t.SubjectID
	}
	var subjectIDs []uint
	seen := make(map[uint]bool)
	for _, id := range topicIDs {
		sid, ok := subjectOf[id]
		if !ok || seen[sid] {
			continue
		}
		seen[sid] = true
		subjectIDs = append(subjectIDs, sid)
	}

	subjects, err := s.repos.Subjects.GetByIDs(ctx, tx, subjectIDs)
	if err != nil {
		return nil, nil, err
	}
	siblings, err := s.repos.Topics.ListBySubjectIDs(ctx, tx, subjectIDs)
	if err != nil {
		return nil, nil, err
	}
	siblingIDs := make([]uint, len(siblings))
	for i, t := range siblings {
		siblingIDs[i] = t.ID
	}
	lessonCounts, err := s.repos.Lessons.CountByTopicIDs(ctx, tx, siblingIDs)
	if err != nil {
		return nil, nil, err
	}

	bySubject := make(map[uint]models.Subject, len(subjects))
	for _, sub := range subjects {
		bySubject[sub.ID] = sub
	}
	topicsBySubject := make(map[uint][]models.Topic, len(subjectIDs))
	for _, t := range siblings {
		topicsBySubject[t.SubjectID] = append(topicsBySubject[t.SubjectID], t)
	}

	for _, sid := range subjectIDs {
		sub, ok := bySubject[sid]
		if !ok {
			continue
		}
		item, ok := continueItem(sub, topicsBySubject[sid], lessonCounts, completion)
		if ok {
			cont = append(cont, item)
		}
	}
	return recent, cont, nil
}

// continueItem reports false for subjects that are not started or already finished.
func continueItem(sub models.Subject, topics []models.Topic, lessonCounts map[uint]int, completion CompletionMap) (ContinueItem, bool) {
	curriculum.SortTopics(topics)
	completedTopics, totalTopics, pct := curriculum.SubjectCompletion(topics, completion)

	var completedLessons, totalLessons int
	var next *models.Topic
	for i := range topics {
		n := lessonCounts[topics[i].ID]
		totalLessons += n
		if completion.Done(topics[i].ID) {
			completedLessons += n
		} else if next == nil {
			next = &topics[i]
		}
	}
	if totalLessons > 0 {
		pct = curriculum.Percent(completedLessons, totalLessons)
	}
	if next == nil || pct <= 0 || pct >= 100 {
		return ContinueItem{}, false
	}

	return ContinueItem{
		SubjectID:        sub.ID,
		SubjectName:      sub.Name,
		Style:            subjectstyle.ResolveSubject(sub),
		TopicID:          next.ID,
		TopicTitle:       next.Title,
		CompletedTopics:  completedTopics,
		TotalTopics:      totalTopics,
		CompletedLessons: completedLessons,
		TotalLessons:     totalLessons,
		Progress:         pct,
	}, true
}

func (s *Service) ensureStats(ctx context.Context, userID uuid.UUID) (*models.UserStats, error) {
	stats, err := s.repos.Stats.Get(ctx, nil, userID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	s.log.Debug("creating stats row", "user_id", userID)
	if err := s.repos.Stats.Create(ctx, nil, &models.UserStats{UserID: userID}); err != nil {
		return nil, err
	}
	return s.repos.Stats.Get(ctx, nil, userID)
}

// CompleteTopic records a completion and returns a fully reloaded snapshot.
func (s *Service) CompleteTopic(ctx context.Context, userID uuid.UUID, in CompleteInput) (Snapshot, error) {
	if _, err := s.complete(ctx, userID, in); err != nil {
		return Snapshot{}, err
	}
	return s.Load(ctx, userID), nil
}

// complete runs the write steps in order and stops at the first failure.
func (s *Service) complete(ctx context.Context, userID uuid.UUID, in CompleteInput) (Outcome, error) {
	if userID == uuid.Nil {
		return Outcome{}, ErrNoUser
	}
	if in.TopicID == 0 {
		return Outcome{}, ErrMissingTopic
	}
	if in.DurationMinutes <= 0 {
		in.DurationMinutes = DefaultDurationMinutes
	}
	log := s.log.With("user_id", userID, "topic_id", in.TopicID)

	topic, err := s.repos.Topics.Get(ctx, nil, in.TopicID)
	if err != nil {
		return Outcome{}, err
	}
	if in.SubjectID == 0 {
		in.SubjectID = topic.SubjectID
	} else if in.SubjectID != topic.SubjectID {
		return Outcome{}, ErrTopicNotInSubject
	}

	now := s.clock()
	rec := &models.UserProgressRecord{UserID: userID, TopicID: in.TopicID, Score: in.Score, CompletedAt: now}
	if err := s.repos.Progress.Upsert(ctx, nil, rec); err != nil {
		log.Error("upsert completion failed", "error", err)
		return Outcome{}, err
	}

	xp := XPForScore(in.Score)
	stats, err := s.bumpStats(ctx, userID, xp, now)
	if err != nil {
		log.Error("update stats failed", "error", err)
		return Outcome{}, err
	}

	session := models.LearningSession{UserID: userID, SubjectID: in.SubjectID, DurationMinutes: in.DurationMinutes, StartedAt: now}
	if err := s.repos.Sessions.Create(ctx, nil, &session); err != nil {
		log.Error("append session failed", "error", err)
		return Outcome{}, err
	}

	ev := events.TopicCompleted{
		UserID:        userID,
		SubjectID:     in.SubjectID,
		TopicID:       in.TopicID,
		Score:         in.Score,
		XPGained:      xp,
		CurrentStreak: stats.CurrentStreak,
		At:            now,
	}
	if err := s.pub.PublishTopicCompleted(ctx, ev); err != nil {
		log.Warn("publish progress event failed", "error", err)
	}

	log.Info("topic completed", "score", in.Score, "xp", xp, "streak", stats.CurrentStreak)
	return Outcome{XPGained: xp, Stats: stats, Session: session}, nil
}

// bumpStats applies one completion to the stats row with a version-guarded update, re-reading
// and recomputing when a concurrent writer moved the row first.
func (s *Service) bumpStats(ctx context.Context, userID uuid.UUID, xp int, now time.Time) (models.UserStats, error) {
	for attempt := 1; ; attempt++ {
		cur, err := s.ensureStats(ctx, userID)
		if err != nil {
			return models.UserStats{}, err
		}
		next := applyCompletion(*cur, xp, now)
		err = s.repos.Stats.CompareAndSwap(ctx, nil, &next)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, store.ErrStaleStats) || attempt >= maxStatsAttempts {
			return models.UserStats{}, err
		}
		s.log.Debug("stats changed concurrently, retrying", "user_id", userID, "attempt", attempt)
	}
}

func completionMap(records []models.UserProgressRecord) CompletionMap {
	m := make(CompletionMap, len(records))
	for _, r := range records {
		m[r.TopicID] = Completion{Completed: true, Score: r.Score}
	}
	return m
}

// distinctTopics keeps the first limit distinct topic ids, preserving record order.
func distinctTopics(records []models.UserProgressRecord, limit int) []uint {
	var ids []uint
	seen := make(map[uint]bool, limit)
	for _, r := range records {
		if len(ids) == limit {
			break
		}
		if seen[r.TopicID] {
			continue
		}
		seen[r.TopicID] = true
		ids = append(ids, r.TopicID)
	}
	return ids
}

func topicProgress(c Completion) int {
	if c.Completed {
		return 100
	}
	return c.Score
}

func emptySnapshot(userID uuid.UUID, at time.Time) Snapshot {
	snap := Snapshot{UserID: userID, LoadedAt: at}
	normalize(&snap)
	return snap
}

// normalize replaces nil collections so the snapshot always encodes as objects and arrays.
func normalize(snap *Snapshot) {
	if snap.CourseProgress == nil {
		snap.CourseProgress = CompletionMap{}
	}
	if snap.Sessions == nil {
		snap.Sessions = []models.LearningSession{}
	}
	if snap.RecentLessons == nil {
		snap.RecentLessons = []RecentLesson{}
	}
	if snap.ContinueLearning == nil {
		snap.ContinueLearning = []ContinueItem{}
	}
}
