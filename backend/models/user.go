package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleLearner = "learner"
	RoleAdmin   = "admin"
)

type Profile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"not null" json:"username"`
	Email        string    `gorm:"unique;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	FullName     string    `json:"full_name,omitempty"`
	Role         string    `gorm:"default:learner" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Role == "" {
		p.Role = RoleLearner
	}
	return nil
}

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

type SubscriptionPlan struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"not null" json:"name"`
	PriceCents int    `json:"price_cents"`
	Interval   string `gorm:"default:month" json:"interval"` // month, year
	Active     bool   `json:"active"`
}

func (SubscriptionPlan) TableName() string { return "subscription_plans" }

type UserSubscription struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	PlanID    uint      `gorm:"not null" json:"plan_id"`
	Status    string    `gorm:"default:active" json:"status"`
	StartedAt time.Time `json:"started_at"`
}

func (UserSubscription) TableName() string { return "user_subscriptions" }
