// Package curriculum orders topics and decides which ones are open to a learner.
package curriculum

import (
	"math"
	"sort"

	"learnhub/backend/models"
)

// Completion is one entry of a learner's completion map.
type Completion struct {
	Completed bool `json:"completed"`
	Score     int  `json:"score"`
}

// CompletionMap is keyed by topic id.
type CompletionMap map[uint]Completion

// Done reports whether topicID is marked completed.
func (m CompletionMap) Done(topicID uint) bool {
	return m[topicID].Completed
}

// SortTopics orders topics in place by (SequenceIndex, ID).
func SortTopics(topics []models.Topic) {
	sort.SliceStable(topics, func(i, j int) bool {
		if topics[i].SequenceIndex != topics[j].SequenceIndex {
			return topics[i].SequenceIndex < topics[j].SequenceIndex
		}
		return topics[i].ID < topics[j].ID
	})
}

// IsLocked reports whether the topic at index is locked. The first topic is always open; any other
// topic opens once its predecessor in the same slice is completed. Callers must pass the exact
// sequence being displayed. index == len(topics) is the slot after the last topic and follows the
// same rule; indexes beyond that are treated as locked.
func IsLocked(index int, topics []models.Topic, completion CompletionMap) bool {
	if index == 0 {
		return false
	}
	if index < 0 || index > len(topics) {
		return true
	}
	return !completion.Done(topics[index-1].ID)
}

type TopicView struct {
	models.Topic
	Index     int  `json:"index"`
	Locked    bool `json:"locked"`
	Completed bool `json:"completed"`
	Score     int  `json:"score"`
}

// Annotate decorates topics, in the given order, with their lock and completion state.
func Annotate(topics []models.Topic, completion CompletionMap) []TopicView {
	views := make([]TopicView, len(topics))
	for i, t := range topics {
		c := completion[t.ID]
		views[i] = TopicView{
			Topic:     t,
			Index:     i,
			Locked:    IsLocked(i, topics, completion),
			Completed: c.Completed,
			Score:     c.Score,
		}
	}
	return views
}

// SubjectCompletion counts completed topics over one snapshot of a subject's topic list.
func SubjectCompletion(topics []models.Topic, completion CompletionMap) (completed, total, percent int) {
	total = len(topics)
	for _, t := range topics {
		if completion.Done(t.ID) {
			completed++
		}
	}
	return completed, total, Percent(completed, total)
}

// Percent is round(part / whole * 100); 0 when whole is 0.
func Percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
