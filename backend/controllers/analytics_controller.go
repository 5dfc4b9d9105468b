package controllers

import (
	"learnhub/backend/config"
	"learnhub/backend/store"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// AnalyticsController backs the content moderator dashboard.
type AnalyticsController struct {
	Repos *store.Repos
	Cfg   *config.Config
	Log   *utils.Logger
}

func NewAnalyticsController(repos *store.Repos, cfg *config.Config, log *utils.Logger) *AnalyticsController {
	return &AnalyticsController{Repos: repos, Cfg: cfg, Log: log.With("controller", "analytics")}
}

// Overview godoc
// @Summary Row counts per table
// @Tags admin
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/overview [get]
func (ac *AnalyticsController) Overview(c *fiber.Ctx) error {
	counts, err := ac.Repos.Counts.Tables(c.UserContext(), nil)
	if err != nil {
		return fail(c, ac.Log, err, "Counts")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"counts": counts})
}
