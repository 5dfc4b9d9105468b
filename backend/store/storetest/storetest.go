// Package storetest opens throwaway SQLite databases and seeds rows for tests.
package storetest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"learnhub/backend/models"
	"learnhub/backend/store"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// DB returns a migrated in-memory database private to the calling test.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := store.AutoMigrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

func SeedSubject(tb testing.TB, ctx context.Context, tx *gorm.DB, name string) *models.Subject {
	tb.Helper()
	s := &models.Subject{Name: name}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed subject: %v", err)
	}
	return s
}

func SeedTopic(tb testing.TB, ctx context.Context, tx *gorm.DB, subjectID uint, title string, seq int) *models.Topic {
	tb.Helper()
	t := &models.Topic{SubjectID: subjectID, Title: title, SequenceIndex: seq}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed topic: %v", err)
	}
	return t
}

func SeedLesson(tb testing.TB, ctx context.Context, tx *gorm.DB, topicID uint, title string, seq int) *models.Lesson {
	tb.Helper()
	l := &models.Lesson{TopicID: topicID, Title: title, DurationMinutes: 15, Content: "content", SequenceIndex: seq}
	if err := tx.WithContext(ctx).Create(l).Error; err != nil {
		tb.Fatalf("seed lesson: %v", err)
	}
	return l
}

func SeedQuiz(tb testing.TB, ctx context.Context, tx *gorm.DB, topicID uint, question string, options []string, correct int) *models.Quiz {
	tb.Helper()
	q := &models.Quiz{TopicID: topicID, Question: question, Options: options, CorrectOption: correct}
	if err := tx.WithContext(ctx).Create(q).Error; err != nil {
		tb.Fatalf("seed quiz: %v", err)
	}
	return q
}

func SeedProfile(tb testing.TB, ctx context.Context, tx *gorm.DB, email string) *models.Profile {
	tb.Helper()
	p := &models.Profile{
		ID:           uuid.New(),
		Username:     "learner",
		Email:        email,
		PasswordHash: "pw",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed profile: %v", err)
	}
	return p
}

func SeedCompletion(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, topicID uint, score int, at time.Time) *models.UserProgressRecord {
	tb.Helper()
	rec := &models.UserProgressRecord{UserID: userID, TopicID: topicID, Score: score, CompletedAt: at}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		tb.Fatalf("seed completion: %v", err)
	}
	return rec
}

func SeedSession(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, subjectID uint, at time.Time) *models.LearningSession {
	tb.Helper()
	s := &models.LearningSession{UserID: userID, SubjectID: subjectID, DurationMinutes: 15, StartedAt: at}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed session: %v", err)
	}
	return s
}

func SeedStats(tb testing.TB, ctx context.Context, tx *gorm.DB, stats *models.UserStats) *models.UserStats {
	tb.Helper()
	if err := tx.WithContext(ctx).Create(stats).Error; err != nil {
		tb.Fatalf("seed stats: %v", err)
	}
	return stats
}

func SeedPlan(tb testing.TB, ctx context.Context, tx *gorm.DB, name string, priceCents int, active bool) *models.SubscriptionPlan {
	tb.Helper()
	p := &models.SubscriptionPlan{Name: name, PriceCents: priceCents, Interval: "month", Active: active}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed plan: %v", err)
	}
	return p
}

func StrPtr(s string) *string { return &s }
