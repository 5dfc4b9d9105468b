package models

import "time"

type Subject struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Color       *string   `json:"color,omitempty"`
	Icon        *string   `json:"icon,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Subject) TableName() string { return "subjects" }

// Topic is ordered inside its subject by (SequenceIndex, ID).
type Topic struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	SubjectID     uint      `gorm:"index;not null" json:"subject_id"`
	Title         string    `gorm:"not null" json:"title"`
	SequenceIndex int       `gorm:"default:0" json:"sequence_index"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Topic) TableName() string { return "topics" }

type Lesson struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	TopicID         uint      `gorm:"index;not null" json:"topic_id"`
	Title           string    `gorm:"not null" json:"title"`
	DurationMinutes int       `gorm:"default:15" json:"duration_minutes"`
	Content         string    `json:"content"`
	SequenceIndex   int       `gorm:"default:0" json:"sequence_index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Lesson) TableName() string { return "lessons" }

type Quiz struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TopicID       uint      `gorm:"index;not null" json:"topic_id"`
	Question      string    `gorm:"not null" json:"question"`
	Options       []string  `gorm:"serializer:json;type:text" json:"options"`
	CorrectOption int       `json:"-"`
	Explanation   string    `json:"explanation,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (Quiz) TableName() string { return "quizzes" }
