// Package events publishes learner progress events to other processes.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"learnhub/backend/utils"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const TypeTopicCompleted = "topic.completed"

// TopicCompleted is emitted once per successful topic completion.
type TopicCompleted struct {
	Type          string    `json:"type"`
	UserID        uuid.UUID `json:"user_id"`
	SubjectID     uint      `json:"subject_id"`
	TopicID       uint      `json:"topic_id"`
	Score         int       `json:"score"`
	XPGained      int       `json:"xp_gained"`
	CurrentStreak int       `json:"current_streak"`
	At            time.Time `json:"at"`
}

type Publisher interface {
	PublishTopicCompleted(ctx context.Context, ev TopicCompleted) error
	Close() error
}

type redisPublisher struct {
	log     *utils.Logger
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher connects to addr and checks the connection before returning.
func NewRedisPublisher(addr, channel string, log *utils.Logger) (Publisher, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("missing redis address")
	}
	if strings.TrimSpace(channel) == "" {
		channel = "progress"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "redis ping")
	}

	return &redisPublisher{
		log:     log.With("service", "RedisPublisher"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (p *redisPublisher) PublishTopicCompleted(ctx context.Context, ev TopicCompleted) error {
	raw, err := encode(ev)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, raw).Err(); err != nil {
		return errors.Wrap(err, "redis publish")
	}
	p.log.Debug("published progress event", "channel", p.channel, "user_id", ev.UserID, "topic_id", ev.TopicID)
	return nil
}

func (p *redisPublisher) Close() error {
	if p == nil || p.rdb == nil {
		return nil
	}
	return p.rdb.Close()
}

func encode(ev TopicCompleted) ([]byte, error) {
	if ev.Type == "" {
		ev.Type = TypeTopicCompleted
	}
	raw, err := json.Marshal(ev)
	return raw, errors.Wrap(err, "encode event")
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishTopicCompleted(context.Context, TopicCompleted) error { return nil }
func (Nop) Close() error                                                { return nil }

// Recorder keeps events in memory, in publish order.
type Recorder struct {
	mu     sync.Mutex
	events []TopicCompleted
	Err    error
}

func (r *Recorder) PublishTopicCompleted(_ context.Context, ev TopicCompleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	if ev.Type == "" {
		ev.Type = TypeTopicCompleted
	}
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Events() []TopicCompleted {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TopicCompleted, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) Close() error { return nil }
