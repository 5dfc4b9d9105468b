package controllers

import (
	"context"
	"strconv"

	"learnhub/backend/curriculum"
	"learnhub/backend/models"
	"learnhub/backend/progress"
	"learnhub/backend/store"
	"learnhub/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var errTopicLocked = errors.New("topic is locked")

func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Errorf("invalid %s", name)
	}
	return uint(id), nil
}

// parseBody decodes and validates the request body. It writes the error response itself and
// reports false when the handler should stop.
func parseBody(c *fiber.Ctx, out interface{}) (bool, error) {
	if err := c.BodyParser(out); err != nil {
		return false, utils.BadRequest(c, "Cannot parse JSON")
	}
	if errs := utils.ValidateStruct(out); errs != nil {
		return false, utils.ValidationError(c, errs)
	}
	return true, nil
}

// fail maps domain errors to responses; anything unexpected is logged and reported as a 500.
func fail(c *fiber.Ctx, log *utils.Logger, err error, what string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return utils.NotFound(c, what+" not found")
	case errors.Is(err, errTopicLocked):
		return utils.Forbidden(c, "Complete the previous topic first")
	case errors.Is(err, progress.ErrTopicNotInSubject):
		return utils.BadRequest(c, "Topic does not belong to subject")
	case errors.Is(err, progress.ErrNoUser):
		return utils.Unauthorized(c, "Unauthorized")
	case errors.Is(err, store.ErrStaleStats):
		return utils.Conflict(c, "Progress changed concurrently, try again")
	default:
		log.Error("request failed", "path", c.Path(), "error", err)
		return utils.InternalServerError(c, "Something went wrong")
	}
}

// learnerState returns the caller's progress state. Callers whose profile no longer exists get
// ErrNoUser. A state disposed between lookup and use is replaced once.
func learnerState(ctx context.Context, repos *store.Repos, reg *progress.Registry, userID uuid.UUID) (*progress.State, progress.Snapshot, error) {
	if _, err := repos.Profiles.Get(ctx, nil, userID); errors.Is(err, store.ErrNotFound) {
		return nil, progress.Snapshot{}, progress.ErrNoUser
	} else if err != nil {
		return nil, progress.Snapshot{}, err
	}
	for attempt := 0; attempt < 2; attempt++ {
		st, err := reg.Get(ctx, userID)
		if err != nil {
			return nil, progress.Snapshot{}, err
		}
		snap, err := st.Snapshot(ctx)
		if errors.Is(err, progress.ErrDisposed) {
			continue
		}
		return st, snap, err
	}
	return nil, progress.Snapshot{}, progress.ErrDisposed
}

// topicLocked evaluates the lock policy against the subject's topics in display order.
func topicLocked(ctx context.Context, repos *store.Repos, topic *models.Topic, completion curriculum.CompletionMap) (bool, error) {
	topics, err := repos.Topics.ListBySubject(ctx, nil, topic.SubjectID)
	if err != nil {
		return false, err
	}
	curriculum.SortTopics(topics)
	for i, t := range topics {
		if t.ID == topic.ID {
			return curriculum.IsLocked(i, topics, completion), nil
		}
	}
	return true, nil
}

// openTopic loads the topic and fails with errTopicLocked when the caller may not study it yet.
func openTopic(ctx context.Context, repos *store.Repos, topicID uint, completion curriculum.CompletionMap) (*models.Topic, error) {
	topic, err := repos.Topics.Get(ctx, nil, topicID)
	if err != nil {
		return nil, err
	}
	locked, err := topicLocked(ctx, repos, topic, completion)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, errTopicLocked
	}
	return topic, nil
}
