package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exam-paper/internal/config"
)

// Type names a change to exams or questions.
type Type string

const (
	ExamCreated     Type = "exam.created"
	ExamDeleted     Type = "exam.deleted"
	QuestionCreated Type = "question.created"
	QuestionDeleted Type = "question.deleted"
)

// Event is a single change notification. QuestionID is zero for exam events.
type Event struct {
	Type       Type      `json:"type"`
	ExamID     int       `json:"examId"`
	QuestionID int       `json:"questionId,omitempty"`
	At         time.Time `json:"at"`
}

// New stamps an event with the current UTC time.
func New(t Type, examID, questionID int) Event {
	return Event{Type: t, ExamID: examID, QuestionID: questionID, At: time.Now().UTC()}
}

// Decode parses a published message payload.
func Decode(payload string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(payload), &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

// Publisher broadcasts change events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// NewPublisher returns a Redis-backed publisher, or a NopPublisher when rdb is nil.
func NewPublisher(rdb *redis.Client) Publisher {
	if rdb == nil {
		return NopPublisher{}
	}
	return NewRedisPublisher(rdb)
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// RedisPublisher publishes events as JSON on the Redis Pub/Sub events channel.
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

// NewRedisPublisher creates a RedisPublisher on config.CacheKey.EventsChannel().
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: config.CacheKey.EventsChannel()}
}

func (p *RedisPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

// Subscribe opens a subscription on the events channel. The caller must
// close the returned PubSub.
func Subscribe(ctx context.Context, rdb *redis.Client) (*redis.PubSub, error) {
	sub := rdb.Subscribe(ctx, config.CacheKey.EventsChannel())
	// Receive waits for the subscription confirmation so a dead Redis is
	// reported here rather than as a silent empty feed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return sub, nil
}
