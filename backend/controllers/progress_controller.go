package controllers

import (
	"learnhub/backend/config"
	"learnhub/backend/middleware"
	"learnhub/backend/progress"
	"learnhub/backend/store"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type ProgressController struct {
	Repos    *store.Repos
	Registry *progress.Registry
	Cfg      *config.Config
	Log      *utils.Logger
}

func NewProgressController(repos *store.Repos, reg *progress.Registry, cfg *config.Config, log *utils.Logger) *ProgressController {
	return &ProgressController{Repos: repos, Registry: reg, Cfg: cfg, Log: log.With("controller", "progress")}
}

type CompleteTopicRequest struct {
	SubjectID       uint `json:"subject_id"`
	Score           int  `json:"score" validate:"gte=0,lte=100"`
	DurationMinutes int  `json:"duration_minutes" validate:"omitempty,gte=1,lte=600"`
}

// GetProgress godoc
// @Summary Get the caller's progress snapshot
// @Description Completion map, stats, sessions, weekly activity, recent lessons and continue learning
// @Tags progress
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress [get]
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	_, snap, err := learnerState(c.UserContext(), pc.Repos, pc.Registry, middleware.UserID(c))
	if err != nil {
		return fail(c, pc.Log, err, "Progress")
	}
	return utils.Success(c, fiber.StatusOK, snap)
}

// Refresh reloads the snapshot from the database.
func (pc *ProgressController) Refresh(c *fiber.Ctx) error {
	ctx := c.UserContext()
	st, _, err := learnerState(ctx, pc.Repos, pc.Registry, middleware.UserID(c))
	if err != nil {
		return fail(c, pc.Log, err, "Progress")
	}
	snap, err := st.Refresh(ctx)
	if err != nil {
		return fail(c, pc.Log, err, "Progress")
	}
	return utils.Success(c, fiber.StatusOK, snap)
}

// CompleteTopic godoc
// @Summary Mark a topic completed
// @Tags progress
// @Accept json
// @Produce json
// @Param id path int true "Topic ID"
// @Param input body CompleteTopicRequest false "Score and duration"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /topics/{id}/complete [post]
func (pc *ProgressController) CompleteTopic(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid topic ID")
	}
	var input CompleteTopicRequest
	if len(c.Body()) > 0 {
		if ok, err := parseBody(c, &input); !ok {
			return err
		}
	}

	ctx := c.UserContext()
	st, snap, err := learnerState(ctx, pc.Repos, pc.Registry, middleware.UserID(c))
	if err != nil {
		return fail(c, pc.Log, err, "Progress")
	}
	if _, err := openTopic(ctx, pc.Repos, id, snap.CourseProgress); err != nil {
		return fail(c, pc.Log, err, "Topic")
	}

	snap, out, err := st.CompleteTopic(ctx, progress.CompleteInput{
		SubjectID:       input.SubjectID,
		TopicID:         id,
		Score:           input.Score,
		DurationMinutes: input.DurationMinutes,
	})
	if err != nil {
		return fail(c, pc.Log, err, "Topic")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"xp_gained": out.XPGained,
		"progress":  snap,
	})
}
