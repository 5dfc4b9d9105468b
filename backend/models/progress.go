package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DateLayout is the YYYY-MM-DD form used for UserStats.LastActivityDate.
const DateLayout = "2006-01-02"

// UserProgressRecord marks a topic as completed by a user. One row per (user, topic).
type UserProgressRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_progress_user_topic" json:"user_id"`
	TopicID     uint      `gorm:"not null;uniqueIndex:idx_user_progress_user_topic" json:"topic_id"`
	Score       int       `gorm:"default:0" json:"score"`
	CompletedAt time.Time `gorm:"index" json:"completed_at"`
}

func (UserProgressRecord) TableName() string { return "user_progress" }

type UserStats struct {
	UserID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	CurrentStreak         int       `gorm:"default:0" json:"current_streak"`
	MaxStreak             int       `gorm:"default:0" json:"max_streak"`
	TotalXP               int       `gorm:"column:total_xp;default:0" json:"total_xp"`
	TotalLessonsCompleted int       `gorm:"default:0" json:"total_lessons_completed"`
	LastActivityDate      *string   `gorm:"type:varchar(10)" json:"last_activity_date"`
	Version               int       `gorm:"default:0" json:"-"`
	UpdatedAt             time.Time `json:"updated_at"`
}

func (UserStats) TableName() string { return "user_stats" }

type LearningSession struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	SubjectID       uint      `gorm:"index" json:"subject_id"`
	DurationMinutes int       `json:"duration_minutes"`
	StartedAt       time.Time `gorm:"index" json:"started_at"`
}

func (LearningSession) TableName() string { return "learning_sessions" }

func (s *LearningSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
