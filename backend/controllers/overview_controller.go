package controllers

import (
	"strings"
	"unicode/utf8"

	"learnhub/backend/config"
	"learnhub/backend/models"
	"learnhub/backend/store"
	"learnhub/backend/subjectstyle"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

const minSearchLength = 2

// OverviewController answers the catalogue search box.
type OverviewController struct {
	Repos *store.Repos
	Cfg   *config.Config
	Log   *utils.Logger
}

func NewOverviewController(repos *store.Repos, cfg *config.Config, log *utils.Logger) *OverviewController {
	return &OverviewController{Repos: repos, Cfg: cfg, Log: log.With("controller", "overview")}
}

type SubjectHit struct {
	models.Subject
	Style subjectstyle.Style `json:"style"`
}

// Search runs the subject, topic and lesson searches in parallel.
func (oc *OverviewController) Search(c *fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if utf8.RuneCountInString(q) < minSearchLength {
		return utils.ValidationError(c, map[string]string{"q": "must be at least 2 characters"})
	}

	var (
		subjects []models.Subject
		topics   []models.Topic
		lessons  []models.Lesson
	)
	g, ctx := errgroup.WithContext(c.UserContext())
	g.Go(func() error {
		var err error
		subjects, err = oc.Repos.Subjects.Search(ctx, nil, q)
		return err
	})
	g.Go(func() error {
		var err error
		topics, err = oc.Repos.Topics.Search(ctx, nil, q)
		return err
	})
	g.Go(func() error {
		var err error
		lessons, err = oc.Repos.Lessons.Search(ctx, nil, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return fail(c, oc.Log, err, "Search")
	}

	hits := make([]SubjectHit, len(subjects))
	for i, s := range subjects {
		hits[i] = SubjectHit{Subject: s, Style: subjectstyle.ResolveSubject(s)}
	}
	if topics == nil {
		topics = []models.Topic{}
	}
	if lessons == nil {
		lessons = []models.Lesson{}
	}
	return utils.SuccessWithMeta(c, fiber.StatusOK, fiber.Map{
		"subjects": hits,
		"topics":   topics,
		"lessons":  lessons,
	}, fiber.Map{
		"query": q,
		"total": len(hits) + len(topics) + len(lessons),
	})
}
