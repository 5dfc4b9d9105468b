package controllers

import (
	"strings"

	"learnhub/backend/config"
	"learnhub/backend/curriculum"
	"learnhub/backend/middleware"
	"learnhub/backend/models"
	"learnhub/backend/progress"
	"learnhub/backend/store"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// TestsController serves topic quizzes and turns a submitted quiz into a topic completion.
type TestsController struct {
	Repos    *store.Repos
	Registry *progress.Registry
	Cfg      *config.Config
	Log      *utils.Logger
}

func NewTestsController(repos *store.Repos, reg *progress.Registry, cfg *config.Config, log *utils.Logger) *TestsController {
	return &TestsController{Repos: repos, Registry: reg, Cfg: cfg, Log: log.With("controller", "tests")}
}

type Answer struct {
	QuizID uint `json:"quiz_id" validate:"required"`
	Option int  `json:"option" validate:"gte=0"`
}

type SubmitQuizRequest struct {
	Answers         []Answer `json:"answers" validate:"required,min=1,dive"`
	DurationMinutes int      `json:"duration_minutes" validate:"omitempty,gte=1,lte=600"`
}

type QuizResult struct {
	QuizID        uint   `json:"quiz_id"`
	Correct       bool   `json:"correct"`
	CorrectOption int    `json:"correct_option"`
	Explanation   string `json:"explanation,omitempty"`
}

type CreateQuizRequest struct {
	TopicID       uint     `json:"topic_id" validate:"required"`
	Question      string   `json:"question" validate:"required,max=1000"`
	Options       []string `json:"options" validate:"required,min=2,max=6,dive,required"`
	CorrectOption int      `json:"correct_option" validate:"gte=0"`
	Explanation   string   `json:"explanation" validate:"max=2000"`
}

// ListQuizzes godoc
// @Summary List a topic's quiz questions without answers
// @Tags tests
// @Produce json
// @Param id path int true "Topic ID"
// @Success 200 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /topics/{id}/quizzes [get]
func (tc *TestsController) ListQuizzes(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid topic ID")
	}

	ctx := c.UserContext()
	_, snap, err := learnerState(ctx, tc.Repos, tc.Registry, middleware.UserID(c))
	if err != nil {
		return fail(c, tc.Log, err, "Progress")
	}
	topic, err := openTopic(ctx, tc.Repos, id, snap.CourseProgress)
	if err != nil {
		return fail(c, tc.Log, err, "Topic")
	}
	quizzes, err := tc.Repos.Quizzes.ListByTopic(ctx, nil, topic.ID)
	if err != nil {
		return fail(c, tc.Log, err, "Quiz")
	}
	if quizzes == nil {
		quizzes = []models.Quiz{}
	}
	return utils.Success(c, fiber.StatusOK, quizzes)
}

// SubmitQuiz godoc
// @Summary Grade a quiz and complete the topic with the resulting score
// @Tags tests
// @Accept json
// @Produce json
// @Param id path int true "Topic ID"
// @Param input body SubmitQuizRequest true "Answers"
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /topics/{id}/quizzes/submit [post]
func (tc *TestsController) SubmitQuiz(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid topic ID")
	}
	var input SubmitQuizRequest
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	ctx := c.UserContext()
	st, snap, err := learnerState(ctx, tc.Repos, tc.Registry, middleware.UserID(c))
	if err != nil {
		return fail(c, tc.Log, err, "Progress")
	}
	topic, err := openTopic(ctx, tc.Repos, id, snap.CourseProgress)
	if err != nil {
		return fail(c, tc.Log, err, "Topic")
	}
	quizzes, err := tc.Repos.Quizzes.ListByTopic(ctx, nil, topic.ID)
	if err != nil {
		return fail(c, tc.Log, err, "Quiz")
	}
	if len(quizzes) == 0 {
		return utils.BadRequest(c, "Topic has no quiz")
	}

	results, correct := grade(quizzes, input.Answers)
	score := curriculum.Percent(correct, len(quizzes))

	snap, out, err := st.CompleteTopic(ctx, progress.CompleteInput{
		SubjectID:       topic.SubjectID,
		TopicID:         topic.ID,
		Score:           score,
		DurationMinutes: input.DurationMinutes,
	})
	if err != nil {
		return fail(c, tc.Log, err, "Topic")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"score":     score,
		"correct":   correct,
		"total":     len(quizzes),
		"xp_gained": out.XPGained,
		"results":   results,
		"progress":  snap,
	})
}

// grade scores answers against the topic's quizzes. Unanswered and unknown quizzes count as wrong.
func grade(quizzes []models.Quiz, answers []Answer) ([]QuizResult, int) {
	chosen := make(map[uint]int, len(answers))
	for _, a := range answers {
		chosen[a.QuizID] = a.Option
	}

	results := make([]QuizResult, len(quizzes))
	correct := 0
	for i, q := range quizzes {
		option, answered := chosen[q.ID]
		ok := answered && option == q.CorrectOption
		if ok {
			correct++
		}
		results[i] = QuizResult{
			QuizID:        q.ID,
			Correct:       ok,
			CorrectOption: q.CorrectOption,
			Explanation:   q.Explanation,
		}
	}
	return results, correct
}

func (tc *TestsController) CreateQuiz(c *fiber.Ctx) error {
	var input CreateQuizRequest
	if ok, err := parseBody(c, &input); !ok {
		return err
	}
	if input.CorrectOption >= len(input.Options) {
		return utils.ValidationError(c, map[string]string{"correct_option": "must point at one of the options"})
	}

	ctx := c.UserContext()
	if _, err := tc.Repos.Topics.Get(ctx, nil, input.TopicID); err != nil {
		return fail(c, tc.Log, err, "Topic")
	}

	options := make([]string, len(input.Options))
	for i, o := range input.Options {
		options[i] = strings.TrimSpace(o)
	}
	quiz := models.Quiz{
		TopicID:       input.TopicID,
		Question:      strings.TrimSpace(input.Question),
		Options:       options,
		CorrectOption: input.CorrectOption,
		Explanation:   input.Explanation,
	}
	if err := tc.Repos.Quizzes.Create(ctx, nil, &quiz); err != nil {
		return fail(c, tc.Log, err, "Quiz")
	}
	return utils.Created(c, fiber.Map{
		"quiz":           quiz,
		"correct_option": quiz.CorrectOption,
	})
}
