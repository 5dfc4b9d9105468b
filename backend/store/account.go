package store

import (
	"context"
	"strings"
	"time"

	"learnhub/backend/models"
	"learnhub/backend/utils"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProfileRepo interface {
	Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Profile, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Profile, error)
	Create(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
	// Upsert writes the editable profile columns, inserting the row when it is missing.
	Upsert(ctx context.Context, tx *gorm.DB, profile *models.Profile) error
	UpdatePassword(ctx context.Context, tx *gorm.DB, id uuid.UUID, hash string) error
	// Delete removes the profile together with the learner's progress, stats, sessions and subscriptions.
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type profileRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewProfileRepo(db *gorm.DB, baseLog *utils.Logger) ProfileRepo {
	return &profileRepo{db: db, log: baseLog.With("repo", "ProfileRepo")}
}

func (r *profileRepo) Get(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*models.Profile, error) {
	var p models.Profile
	if err := pick(r.db, tx).WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, wrap(err, "profiles.Get")
	}
	return &p, nil
}

func (r *profileRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.Profile, error) {
	var p models.Profile
	err := pick(r.db, tx).WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&p).Error
	if err != nil {
		return nil, wrap(err, "profiles.GetByEmail")
	}
	return &p, nil
}

func (r *profileRepo) Create(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	return wrap(pick(r.db, tx).WithContext(ctx).Create(profile).Error, "profiles.Create")
}

func (r *profileRepo) Upsert(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	profile.UpdatedAt = time.Now()
	err := pick(r.db, tx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"username", "full_name", "updated_at"}),
		}).
		Create(profile).Error
	return wrap(err, "profiles.Upsert")
}

func (r *profileRepo) UpdatePassword(ctx context.Context, tx *gorm.DB, id uuid.UUID, hash string) error {
	res := pick(r.db, tx).WithContext(ctx).
		Model(&models.Profile{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"password_hash": hash, "updated_at": time.Now()})
	if res.Error != nil {
		return wrap(res.Error, "profiles.UpdatePassword")
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *profileRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return pick(r.db, tx).WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owned := []interface{ TableName() string }{
			&models.UserProgressRecord{},
			&models.UserStats{},
			&models.LearningSession{},
			&models.UserSubscription{},
		}
		for _, m := range owned {
			if err := tx.Where("user_id = ?", id).Delete(m).Error; err != nil {
				return wrap(err, "profiles.Delete "+m.TableName())
			}
		}

		res := tx.Where("id = ?", id).Delete(&models.Profile{})
		if res.Error != nil {
			return wrap(res.Error, "profiles.Delete")
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

type PlanRepo interface {
	ListActive(ctx context.Context, tx *gorm.DB) ([]models.SubscriptionPlan, error)
	Get(ctx context.Context, tx *gorm.DB, id uint) (*models.SubscriptionPlan, error)
}

type planRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *utils.Logger) PlanRepo {
	return &planRepo{db: db, log: baseLog.With("repo", "PlanRepo")}
}

func (r *planRepo) ListActive(ctx context.Context, tx *gorm.DB) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	err := pick(r.db, tx).WithContext(ctx).
		Where("active = ?", true).
		Order("price_cents ASC, id ASC").
		Find(&plans).Error
	return plans, wrap(err, "plans.ListActive")
}

func (r *planRepo) Get(ctx context.Context, tx *gorm.DB, id uint) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := pick(r.db, tx).WithContext(ctx).First(&plan, id).Error; err != nil {
		return nil, wrap(err, "plans.Get")
	}
	return &plan, nil
}

type SubscriptionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sub *models.UserSubscription) error
}

type subscriptionRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewSubscriptionRepo(db *gorm.DB, baseLog *utils.Logger) SubscriptionRepo {
	return &subscriptionRepo{db: db, log: baseLog.With("repo", "SubscriptionRepo")}
}

func (r *subscriptionRepo) Create(ctx context.Context, tx *gorm.DB, sub *models.UserSubscription) error {
	if sub.StartedAt.IsZero() {
		sub.StartedAt = time.Now()
	}
	return wrap(pick(r.db, tx).WithContext(ctx).Create(sub).Error, "subscriptions.Create")
}

// CountRepo answers the row-count queries behind the moderator overview.
type CountRepo interface {
	Tables(ctx context.Context, tx *gorm.DB) (map[string]int64, error)
}

type countRepo struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewCountRepo(db *gorm.DB, baseLog *utils.Logger) CountRepo {
	return &countRepo{db: db, log: baseLog.With("repo", "CountRepo")}
}

func (r *countRepo) Tables(ctx context.Context, tx *gorm.DB) (map[string]int64, error) {
	targets := []interface{ TableName() string }{
		models.Subject{},
		models.Topic{},
		models.Lesson{},
		models.Quiz{},
		models.Profile{},
		models.UserProgressRecord{},
		models.LearningSession{},
		models.UserSubscription{},
	}

	counts := make(map[string]int64, len(targets))
	for _, target := range targets {
		var n int64
		if err := pick(r.db, tx).WithContext(ctx).Model(target).Count(&n).Error; err != nil {
			return nil, wrap(err, "counts."+target.TableName())
		}
		counts[target.TableName()] = n
	}
	return counts, nil
}
