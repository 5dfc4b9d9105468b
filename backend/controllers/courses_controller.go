package controllers

import (
	"strings"

	"learnhub/backend/config"
	"learnhub/backend/curriculum"
	"learnhub/backend/middleware"
	"learnhub/backend/models"
	"learnhub/backend/progress"
	"learnhub/backend/store"
	"learnhub/backend/subjectstyle"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
)

// CoursesController serves the subject → topic → lesson catalogue.
type CoursesController struct {
	Repos    *store.Repos
	Registry *progress.Registry
	Cfg      *config.Config
	Log      *utils.Logger
}

func NewCoursesController(repos *store.Repos, reg *progress.Registry, cfg *config.Config, log *utils.Logger) *CoursesController {
	return &CoursesController{Repos: repos, Registry: reg, Cfg: cfg, Log: log.With("controller", "courses")}
}

type SubjectCard struct {
	models.Subject
	Style           subjectstyle.Style `json:"style"`
	CompletedTopics int                `json:"completed_topics"`
	TotalTopics     int                `json:"total_topics"`
	Progress        int                `json:"progress"`
}

type CreateSubjectRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Color       string `json:"color" validate:"omitempty,hexcolor"`
	Icon        string `json:"icon" validate:"max=64"`
	Description string `json:"description" validate:"max=2000"`
}

type CreateTopicRequest struct {
	SubjectID     uint   `json:"subject_id" validate:"required"`
	Title         string `json:"title" validate:"required,max=200"`
	SequenceIndex *int   `json:"sequence_index" validate:"omitempty,gte=0"`
}

type CreateLessonRequest struct {
	TopicID         uint   `json:"topic_id" validate:"required"`
	Title           string `json:"title" validate:"required,max=200"`
	DurationMinutes int    `json:"duration_minutes" validate:"omitempty,gte=1,lte=600"`
	Content         string `json:"content" validate:"required"`
	SequenceIndex   *int   `json:"sequence_index" validate:"omitempty,gte=0"`
}

func subjectCard(s models.Subject, topics []models.Topic, completion curriculum.CompletionMap) SubjectCard {
	completed, total, pct := curriculum.SubjectCompletion(topics, completion)
	return SubjectCard{
		Subject:         s,
		Style:           subjectstyle.ResolveSubject(s),
		CompletedTopics: completed,
		TotalTopics:     total,
		Progress:        pct,
	}
}

// ListSubjects godoc
// @Summary List subjects with style and the caller's completion
// @Tags courses
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /subjects [get]
func (cc *CoursesController) ListSubjects(c *fiber.Ctx) error {
	ctx := c.UserContext()
	_, snap, err := learnerState(ctx, cc.Repos, cc.Registry, middleware.UserID(c))
	if err != nil {
		return fail(c, cc.Log, err, "Progress")
	}

	subjects, err := cc.Repos.Subjects.List(ctx, nil)
	if err != nil {
		return fail(c, cc.Log, err, "Subject")
	}
	ids := make([]uint, len(subjects))
	for i, s := range subjects {
		ids[i] = s.ID
	}
	topics, err := cc.Repos.Topics.ListBySubjectIDs(ctx, nil, ids)
	if err != nil {
		return fail(c, cc.Log, err, "Topic")
	}
	bySubject := make(map[uint][]models.Topic, len(subjects))
	for _, t := range topics {
		bySubject[t.SubjectID] = append(bySubject[t.SubjectID], t)
	}

	cards := make([]SubjectCard, len(subjects))
	for i, s := range subjects {
		cards[i] = subjectCard(s, bySubject[s.ID], snap.CourseProgress)
	}
	return utils.Success(c, fiber.StatusOK, cards)
}

// GetSubject returns one subject card with its topics in curriculum order.
func (cc *CoursesController) GetSubject(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid subject ID")
	}

	ctx := c.UserContext()
	_, snap, err := learnerState(ctx, cc.Repos, cc.Registry, middleware.UserID(c))
	if err != nil {
		return fail(c, cc.Log, err, "Progress")
	}
	subject, err := cc.Repos.Subjects.Get(ctx, nil, id)
	if err != nil {
		return fail(c, cc.Log, err, "Subject")
	}
	topics, err := cc.Repos.Topics.ListBySubject(ctx, nil, id)
	if err != nil {
		return fail(c, cc.Log, err, "Topic")
	}
	curriculum.SortTopics(topics)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"subject": subjectCard(*subject, topics, snap.CourseProgress),
		"topics":  curriculum.Annotate(topics, snap.CourseProgress),
	})
}

// ListTopics returns the subject's topics with lock and completion state.
func (cc *CoursesController) ListTopics(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid subject ID")
	}

	ctx := c.UserContext()
	_, snap, err := learnerState(ctx, cc.Repos, cc.Registry, middleware.UserID(c))
	if err != nil {
		return fail(c, cc.Log, err, "Progress")
	}
	if _, err := cc.Repos.Subjects.Get(ctx, nil, id); err != nil {
		return fail(c, cc.Log, err, "Subject")
	}
	topics, err := cc.Repos.Topics.ListBySubject(ctx, nil, id)
	if err != nil {
		return fail(c, cc.Log, err, "Topic")
	}
	curriculum.SortTopics(topics)
	return utils.Success(c, fiber.StatusOK, curriculum.Annotate(topics, snap.CourseProgress))
}

// ListLessons returns a topic's lessons. Locked topics are refused.
func (cc *CoursesController) ListLessons(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return utils.BadRequest(c, "Invalid topic ID")
	}

	ctx := c.UserContext()
	_, snap, err := learnerState(ctx, cc.Repos, cc.Registry, middleware.UserID(c))
	if err != nil {
		return fail(c, cc.Log, err, "Progress")
	}
	topic, err := openTopic(ctx, cc.Repos, id, snap.CourseProgress)
	if err != nil {
		return fail(c, cc.Log, err, "Topic")
	}
	lessons, err := cc.Repos.Lessons.ListByTopic(ctx, nil, topic.ID)
	if err != nil {
		return fail(c, cc.Log, err, "Lesson")
	}
	if lessons == nil {
		lessons = []models.Lesson{}
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"topic":   topic,
		"lessons": lessons,
	})
}

// CreateSubject godoc
// @Summary Create a subject
// @Tags admin
// @Accept json
// @Produce json
// @Param input body CreateSubjectRequest true "Subject"
// @Success 201 {object} utils.SuccessResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /admin/subjects [post]
func (cc *CoursesController) CreateSubject(c *fiber.Ctx) error {
	var input CreateSubjectRequest
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	subject := models.Subject{
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
	}
	if input.Color != "" {
		color := strings.ToUpper(input.Color)
		subject.Color = &color
	}
	if input.Icon != "" {
		icon := input.Icon
		subject.Icon = &icon
	}
	if err := cc.Repos.Subjects.Create(c.UserContext(), nil, &subject); err != nil {
		return fail(c, cc.Log, err, "Subject")
	}
	cc.Log.Info("subject created", "subject_id", subject.ID, "by", middleware.UserID(c))
	return utils.Created(c, subjectCard(subject, nil, nil))
}

// CreateTopic appends to the end of the subject unless sequence_index is given.
func (cc *CoursesController) CreateTopic(c *fiber.Ctx) error {
	var input CreateTopicRequest
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	ctx := c.UserContext()
	if _, err := cc.Repos.Subjects.Get(ctx, nil, input.SubjectID); err != nil {
		return fail(c, cc.Log, err, "Subject")
	}

	topic := models.Topic{SubjectID: input.SubjectID, Title: strings.TrimSpace(input.Title)}
	if input.SequenceIndex != nil {
		topic.SequenceIndex = *input.SequenceIndex
	} else {
		siblings, err := cc.Repos.Topics.ListBySubject(ctx, nil, input.SubjectID)
		if err != nil {
			return fail(c, cc.Log, err, "Topic")
		}
		topic.SequenceIndex = nextSequence(len(siblings), lastTopicSequence(siblings))
	}
	if err := cc.Repos.Topics.Create(ctx, nil, &topic); err != nil {
		return fail(c, cc.Log, err, "Topic")
	}
	return utils.Created(c, topic)
}

func (cc *CoursesController) CreateLesson(c *fiber.Ctx) error {
	var input CreateLessonRequest
	if ok, err := parseBody(c, &input); !ok {
		return err
	}

	ctx := c.UserContext()
	if _, err := cc.Repos.Topics.Get(ctx, nil, input.TopicID); err != nil {
		return fail(c, cc.Log, err, "Topic")
	}

	lesson := models.Lesson{
		TopicID:         input.TopicID,
		Title:           strings.TrimSpace(input.Title),
		DurationMinutes: input.DurationMinutes,
		Content:         input.Content,
	}
	if lesson.DurationMinutes == 0 {
		lesson.DurationMinutes = progress.DefaultDurationMinutes
	}
	if input.SequenceIndex != nil {
		lesson.SequenceIndex = *input.SequenceIndex
	} else {
		siblings, err := cc.Repos.Lessons.ListByTopic(ctx, nil, input.TopicID)
		if err != nil {
			return fail(c, cc.Log, err, "Lesson")
		}
		last := -1
		if n := len(siblings); n > 0 {
			last = siblings[n-1].SequenceIndex
		}
		lesson.SequenceIndex = nextSequence(len(siblings), last)
	}
	if err := cc.Repos.Lessons.Create(ctx, nil, &lesson); err != nil {
		return fail(c, cc.Log, err, "Lesson")
	}
	return utils.Created(c, lesson)
}

func lastTopicSequence(topics []models.Topic) int {
	if len(topics) == 0 {
		return -1
	}
	return topics[len(topics)-1].SequenceIndex
}

func nextSequence(count, last int) int {
	if last+1 > count {
		return last + 1
	}
	return count
}
