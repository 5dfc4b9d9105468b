// Package store is the row-level data accessor over the learnhub tables.
package store

import (
	"context"
	"database/sql"

	"learnhub/backend/models"
	"learnhub/backend/utils"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is the expected-absence error; callers treat it as "no row yet".
	ErrNotFound = errors.New("store: record not found")
	// ErrStaleStats means a conditional stats update lost against a concurrent writer.
	ErrStaleStats = errors.New("store: user stats changed concurrently")
)

// Repos bundles every repository over one connection.
type Repos struct {
	DB            *gorm.DB
	Subjects      SubjectRepo
	Topics        TopicRepo
	Lessons       LessonRepo
	Quizzes       QuizRepo
	Progress      ProgressRepo
	Stats         StatsRepo
	Sessions      SessionRepo
	Profiles      ProfileRepo
	Plans         PlanRepo
	Subscriptions SubscriptionRepo
	Counts        CountRepo
}

func New(db *gorm.DB, log *utils.Logger) *Repos {
	if log == nil {
		log = utils.NopLogger()
	}
	return &Repos{
		DB:            db,
		Subjects:      NewSubjectRepo(db, log),
		Topics:        NewTopicRepo(db, log),
		Lessons:       NewLessonRepo(db, log),
		Quizzes:       NewQuizRepo(db, log),
		Progress:      NewProgressRepo(db, log),
		Stats:         NewStatsRepo(db, log),
		Sessions:      NewSessionRepo(db, log),
		Profiles:      NewProfileRepo(db, log),
		Plans:         NewPlanRepo(db, log),
		Subscriptions: NewSubscriptionRepo(db, log),
		Counts:        NewCountRepo(db, log),
	}
}

// AutoMigrate creates or updates every table.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Subject{},
		&models.Topic{},
		&models.Lesson{},
		&models.Quiz{},
		&models.UserProgressRecord{},
		&models.UserStats{},
		&models.LearningSession{},
		&models.Profile{},
		&models.SubscriptionPlan{},
		&models.UserSubscription{},
	)
}

// ReadSnapshot runs fn inside a read-only transaction so that every query in fn sees the same data.
// On Postgres the transaction is REPEATABLE READ.
func ReadSnapshot(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var opts []*sql.TxOptions
	if db.Dialector != nil && db.Dialector.Name() == "postgres" {
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	}
	return db.WithContext(ctx).Transaction(fn, opts...)
}

func pick(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}

func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrap(err, op)
}
