package controllers

import (
	"learnhub/backend/config"
	"learnhub/backend/models"
	"learnhub/backend/store"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

type AuthController struct {
	Repos *store.Repos
	Cfg   *config.Config
	Log   *utils.Logger
}

func NewAuthController(repos *store.Repos, cfg *config.Config, log *utils.Logger) *AuthController {
	return &AuthController{Repos: repos, Cfg: cfg, Log: log.With("controller", "auth")}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=32"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	FullName string `json:"full_name" validate:"max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Register godoc
// @Summary Register a new learner
// @Tags auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration data"
// @Success 201 {object} utils.SuccessResponse
// @Failure 409 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input RegisterRequest
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	ctx := c.UserContext()
	if _, err := ac.Repos.Profiles.GetByEmail(ctx, nil, input.Email); err == nil {
		return utils.Conflict(c, "Email is already registered")
	} else if !errors.Is(err, store.ErrNotFound) {
		return fail(c, ac.Log, err, "Profile")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	profile := models.Profile{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		FullName:     input.FullName,
		Role:         models.RoleLearner,
	}
	if ac.Cfg.IsAdminEmail(input.Email) {
		profile.Role = models.RoleAdmin
	}
	if err := ac.Repos.Profiles.Create(ctx, nil, &profile); err != nil {
		return fail(c, ac.Log, err, "Profile")
	}

	token, err := utils.GenerateJWTToken(profile.ID, profile.Role, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	ac.Log.Info("profile registered", "user_id", profile.ID, "role", profile.Role)
	return utils.Created(c, fiber.Map{
		"token": token,
		"user":  profile,
	})
}

// Login godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input LoginRequest
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	profile, err := ac.Repos.Profiles.GetByEmail(c.UserContext(), nil, input.Email)
	if errors.Is(err, store.ErrNotFound) {
		return utils.Unauthorized(c, "Invalid credentials")
	}
	if err != nil {
		return fail(c, ac.Log, err, "Profile")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(profile.ID, profile.Role, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user":  profile,
	})
}
