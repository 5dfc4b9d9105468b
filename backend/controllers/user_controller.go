package controllers

import (
	"learnhub/backend/config"
	"learnhub/backend/middleware"
	"learnhub/backend/models"
	"learnhub/backend/progress"
	"learnhub/backend/store"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type UserController struct {
	Repos    *store.Repos
	Registry *progress.Registry
	Cfg      *config.Config
	Log      *utils.Logger
}

func NewUserController(repos *store.Repos, reg *progress.Registry, cfg *config.Config, log *utils.Logger) *UserController {
	return &UserController{Repos: repos, Registry: reg, Cfg: cfg, Log: log.With("controller", "user")}
}

type UpdateProfileRequest struct {
	Username    string `json:"username" validate:"omitempty,min=3,max=32"`
	FullName    string `json:"full_name" validate:"max=100"`
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password" validate:"omitempty,min=8,max=72"`
}

type SubscribeRequest struct {
	PlanID uint `json:"plan_id" validate:"required"`
}

// GetProfile godoc
// @Summary Get the caller's profile with streak and XP totals
// @Tags users
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := middleware.UserID(c)

	profile, err := uc.Repos.Profiles.Get(ctx, nil, userID)
	if err != nil {
		return fail(c, uc.Log, err, "Profile")
	}

	_, snap, err := learnerState(ctx, uc.Repos, uc.Registry, userID)
	if err != nil {
		return fail(c, uc.Log, err, "Profile")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"profile": profile,
		"stats":   snap.UserStats,
	})
}

// UpdateProfile changes the display fields and, when both passwords are given, the password.
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	var input UpdateProfileRequest
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	ctx := c.UserContext()
	userID := middleware.UserID(c)
	profile, err := uc.Repos.Profiles.Get(ctx, nil, userID)
	if err != nil {
		return fail(c, uc.Log, err, "Profile")
	}

	if input.NewPassword != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(input.OldPassword)); err != nil {
			return utils.ValidationError(c, map[string]string{"old_password": "does not match the current password"})
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		if err := uc.Repos.Profiles.UpdatePassword(ctx, nil, userID, string(hash)); err != nil {
			return fail(c, uc.Log, err, "Profile")
		}
	}

	if input.Username != "" {
		profile.Username = input.Username
	}
	if input.FullName != "" {
		profile.FullName = input.FullName
	}
	if err := uc.Repos.Profiles.Upsert(ctx, nil, profile); err != nil {
		return fail(c, uc.Log, err, "Profile")
	}
	return utils.Success(c, fiber.StatusOK, profile)
}

// DeleteProfile removes the account and drops the cached learner state.
func (uc *UserController) DeleteProfile(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	if err := uc.Repos.Profiles.Delete(c.UserContext(), nil, userID); err != nil {
		return fail(c, uc.Log, err, "Profile")
	}
	uc.Registry.Dispose(userID)
	uc.Log.Info("profile deleted", "user_id", userID)
	return utils.NoContent(c)
}

func (uc *UserController) ListPlans(c *fiber.Ctx) error {
	plans, err := uc.Repos.Plans.ListActive(c.UserContext(), nil)
	if err != nil {
		return fail(c, uc.Log, err, "Plan")
	}
	if plans == nil {
		plans = []models.SubscriptionPlan{}
	}
	return utils.Success(c, fiber.StatusOK, plans)
}

// Subscribe records a subscription to an active plan. Payment is handled elsewhere.
func (uc *UserController) Subscribe(c *fiber.Ctx) error {
	var input SubscribeRequest
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	ctx := c.UserContext()
	plan, err := uc.Repos.Plans.Get(ctx, nil, input.PlanID)
	if err != nil {
		return fail(c, uc.Log, err, "Plan")
	}
	if !plan.Active {
		return utils.NotFound(c, "Plan not found")
	}

	sub := models.UserSubscription{UserID: middleware.UserID(c), PlanID: plan.ID, Status: "active"}
	if err := uc.Repos.Subscriptions.Create(ctx, nil, &sub); err != nil {
		return fail(c, uc.Log, err, "Subscription")
	}
	return utils.Created(c, sub)
}
