package store

import (
	"context"
	"time"

	"learnhub/backend/models"
	"learnhub/backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepo interface {
	// ListByUser returns the user's completion rows, newest completed_at first.
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.UserProgressRecord, error)
	// Upsert inserts the row or, on (user_id, topic_id) conflict, overwrites score and completed_at.
	Upsert(ctx context.Context, tx *gorm.DB, rec *models.UserProgressRecord) error
}

type progressRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewProgressRepo(db *gorm.DB, baseLog *utils.Logger) ProgressRepo {
	return &progressRepo{db: db, log: baseLog.With("repo", "ProgressRepo")}
}

func (r *progressRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.UserProgressRecord, error) {
	var rows []models.UserProgressRecord
	err := pick(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("completed_at DESC, id DESC").
		Find(&rows).Error
	return rows, wrap(err, "progress.ListByUser")
}

func (r *progressRepo) Upsert(ctx context.Context, tx *gorm.DB, rec *models.UserProgressRecord) error {
	err := pick(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "topic_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"score", "completed_at"}),
		}).
		Create(rec).Error
	return wrap(err, "progress.Upsert")
}

type StatsRepo interface {
	// Get returns ErrNotFound when the user has no stats row yet.
	Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.UserStats, error)
	// Create inserts a default row; an existing row is left untouched.
	Create(ctx context.Context, tx *gorm.DB, stats *models.UserStats) error
	// CompareAndSwap writes next only if the stored version still equals next.Version, and bumps the
	// version. It returns ErrStaleStats when another writer got there first.
	CompareAndSwap(ctx context.Context, tx *gorm.DB, next *models.UserStats) error
	// ExpireStreaks zeroes current_streak for users whose last activity is before the given date.
	ExpireStreaks(ctx context.Context, tx *gorm.DB, before string) (int64, error)
}

type statsRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewStatsRepo(db *gorm.DB, baseLog *utils.Logger) StatsRepo {
	return &statsRepo{db: db, log: baseLog.With("repo", "StatsRepo")}
}

func (r *statsRepo) Get(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.UserStats, error) {
	var stats models.UserStats
	if err := pick(r.db, tx).WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error; err != nil {
		return nil, wrap(err, "stats.Get")
	}
	return &stats, nil
}

func (r *statsRepo) Create(ctx context.Context, tx *gorm.DB, stats *models.UserStats) error {
	err := pick(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(stats).Error
	return wrap(err, "stats.Create")
}

func (r *statsRepo) CompareAndSwap(ctx context.Context, tx *gorm.DB, next *models.UserStats) error {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&models.UserStats{}).
		Where("user_id = ? AND version = ?", next.UserID, next.Version).
		Updates(map[string]interface{}{
			"current_streak":          next.CurrentStreak,
			"max_streak":              next.MaxStreak,
			"total_xp":                next.TotalXP,
			"total_lessons_completed": next.TotalLessonsCompleted,
			"last_activity_date":      next.LastActivityDate,
			"version":                 gorm.Expr("version + 1"),
			"updated_at":              time.Now(),
		})
	if res.Error != nil {
		return wrap(res.Error, "stats.CompareAndSwap")
	}
	if res.RowsAffected == 0 {
		return ErrStaleStats
	}
	next.Version++
	return nil
}

func (r *statsRepo) ExpireStreaks(ctx context.Context, tx *gorm.DB, before string) (int64, error) {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&models.UserStats{}).
		Where("current_streak > 0 AND (last_activity_date IS NULL OR last_activity_date < ?)", before).
		Updates(map[string]interface{}{
			"current_streak": 0,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return 0, wrap(res.Error, "stats.ExpireStreaks")
	}
	return res.RowsAffected, nil
}

type SessionRepo interface {
	ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.LearningSession, error)
	Create(ctx context.Context, tx *gorm.DB, session *models.LearningSession) error
}

type sessionRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewSessionRepo(db *gorm.DB, baseLog *utils.Logger) SessionRepo {
	return &sessionRepo{db: db, log: baseLog.With("repo", "SessionRepo")}
}

func (r *sessionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]models.LearningSession, error) {
	var sessions []models.LearningSession
	err := pick(r.db, tx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&sessions).Error
	return sessions, wrap(err, "sessions.ListByUser")
}

func (r *sessionRepo) Create(ctx context.Context, tx *gorm.DB, session *models.LearningSession) error {
	return wrap(pick(r.db, tx).WithContext(ctx).Create(session).Error, "sessions.Create")
}
