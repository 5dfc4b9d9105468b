package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"learnhub/backend/config"
	"learnhub/backend/models"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/me", AuthMiddleware(cfg), func(c *fiber.Ctx) error {
		return c.SendString(UserID(c).String() + " " + Role(c))
	})
	app.Get("/admin", AuthMiddleware(cfg), AdminMiddleware(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func call(t *testing.T, app *fiber.App, path, token string) int {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret", JWTTTL: time.Hour}
	app := newApp(cfg)
	userID := uuid.New()

	learner, err := utils.GenerateJWTToken(userID, models.RoleLearner, cfg)
	require.NoError(t, err)
	admin, err := utils.GenerateJWTToken(uuid.New(), models.RoleAdmin, cfg)
	require.NoError(t, err)
	forged, err := utils.GenerateJWTToken(userID, models.RoleAdmin, &config.Config{JWTSecret: "other"})
	require.NoError(t, err)
	defaultTTL, err := utils.GenerateJWTToken(userID, models.RoleLearner, &config.Config{JWTSecret: "testsecret", JWTTTL: -time.Minute})
	require.NoError(t, err)

	tests := []struct {
		name  string
		path  string
		token string
		want  int
	}{
		{"missing token", "/me", "", fiber.StatusUnauthorized},
		{"garbage token", "/me", "abc", fiber.StatusUnauthorized},
		{"wrong secret", "/me", forged, fiber.StatusUnauthorized},
		{"learner", "/me", learner, fiber.StatusOK},
		{"learner on admin route", "/admin", learner, fiber.StatusForbidden},
		{"admin", "/admin", admin, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, call(t, app, tt.path, tt.token))
		})
	}

	// A negative TTL falls back to the default, so the token is still valid.
	assert.Equal(t, fiber.StatusOK, call(t, app, "/me", defaultTTL))
}

func TestParseJWTTokenClaims(t *testing.T) {
	cfg := &config.Config{JWTSecret: "testsecret"}
	userID := uuid.New()
	token, err := utils.GenerateJWTToken(userID, models.RoleAdmin, cfg)
	require.NoError(t, err)

	claims, err := utils.ParseJWTToken("Bearer "+token, cfg)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}
