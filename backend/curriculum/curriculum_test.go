package curriculum

import (
	"testing"

	"learnhub/backend/models"

	"github.com/stretchr/testify/assert"
)

func topics(ids ...uint) []models.Topic {
	out := make([]models.Topic, len(ids))
	for i, id := range ids {
		out[i] = models.Topic{ID: id, Title: "t", SequenceIndex: i}
	}
	return out
}

func TestIsLocked_FirstTopicAlwaysOpen(t *testing.T) {
	maps := []CompletionMap{nil, {}, {1: {Completed: true}}, {7: {Completed: false}}}
	lists := [][]models.Topic{nil, topics(1), topics(3, 2, 1)}
	for _, m := range maps {
		for _, l := range lists {
			assert.False(t, IsLocked(0, l, m))
		}
	}
}

func TestIsLocked_FollowsPredecessor(t *testing.T) {
	list := topics(10, 20, 30, 40)
	completion := CompletionMap{
		10: {Completed: true, Score: 80},
		30: {Completed: true},
		40: {Completed: false},
	}
	for i := 1; i < len(list); i++ {
		want := !completion[list[i-1].ID].Completed
		assert.Equal(t, want, IsLocked(i, list, completion), "index %d", i)
	}
	assert.False(t, IsLocked(1, list, completion))
	assert.True(t, IsLocked(2, list, completion))
	assert.False(t, IsLocked(3, list, completion))
}

func TestIsLocked_DependsOnDisplayedOrder(t *testing.T) {
	completion := CompletionMap{1: {Completed: true}}
	assert.False(t, IsLocked(1, topics(1, 2), completion))
	assert.True(t, IsLocked(1, topics(2, 1), completion))
}

func TestIsLocked_OutOfRange(t *testing.T) {
	assert.True(t, IsLocked(5, topics(1, 2), CompletionMap{1: {Completed: true}, 2: {Completed: true}}))
	assert.True(t, IsLocked(-1, topics(1), nil))
}

func TestIsLocked_SlotAfterLastTopic(t *testing.T) {
	list := topics(1, 2)
	assert.False(t, IsLocked(2, list, CompletionMap{2: {Completed: true}}))
	assert.True(t, IsLocked(2, list, CompletionMap{1: {Completed: true}}))
	assert.True(t, IsLocked(3, list, CompletionMap{1: {Completed: true}, 2: {Completed: true}}))
}

func TestSortTopics(t *testing.T) {
	list := []models.Topic{
		{ID: 5, SequenceIndex: 2},
		{ID: 9, SequenceIndex: 1},
		{ID: 3, SequenceIndex: 1},
		{ID: 1, SequenceIndex: 0},
	}
	SortTopics(list)
	var ids []uint
	for _, tp := range list {
		ids = append(ids, tp.ID)
	}
	assert.Equal(t, []uint{1, 3, 9, 5}, ids)
}

func TestAnnotate(t *testing.T) {
	list := topics(1, 2, 3)
	views := Annotate(list, CompletionMap{1: {Completed: true, Score: 95}})
	assert.Len(t, views, 3)
	assert.Equal(t, 0, views[0].Index)
	assert.False(t, views[0].Locked)
	assert.True(t, views[0].Completed)
	assert.Equal(t, 95, views[0].Score)
	assert.False(t, views[1].Locked)
	assert.False(t, views[1].Completed)
	assert.True(t, views[2].Locked)
}

func TestSubjectCompletion(t *testing.T) {
	completed, total, pct := SubjectCompletion(topics(1, 2, 3), CompletionMap{1: {Completed: true}, 99: {Completed: true}})
	assert.Equal(t, 1, completed)
	assert.Equal(t, 3, total)
	assert.Equal(t, 33, pct)

	_, _, pct = SubjectCompletion(nil, nil)
	assert.Equal(t, 0, pct)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 67, Percent(2, 3))
	assert.Equal(t, 50, Percent(1, 2))
	assert.Equal(t, 100, Percent(4, 4))
}
