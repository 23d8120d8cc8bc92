// Package notify is the boundary to the push-notification collaborator.
//
// The engine only emits: homework creation publishes an event on a Redis
// pub/sub channel and moves on. Delivery, retry, and formatting belong to
// the collaborator on the other side of the channel. A publish failure is
// logged and swallowed — it must never fail the homework write.
package notify

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel is the pub/sub channel homework events are published on.
const Channel = "rosterhub.homework"

// Event carries what the collaborator needs to notify guardians about new
// homework.
type Event struct {
	EventID       string   `json:"event_id"`
	StudentName   string   `json:"student_name"`
	HomeworkTitle string   `json:"homework_title"`
	AccountIDs    []string `json:"account_ids"`
}

// NewEvent builds an Event with a fresh event id.
func NewEvent(studentName, homeworkTitle string, accountIDs []string) Event {
	return Event{
		EventID:       uuid.NewString(),
		StudentName:   studentName,
		HomeworkTitle: homeworkTitle,
		AccountIDs:    accountIDs,
	}
}

// Notifier is the fire-and-forget interface the engine emits on.
type Notifier interface {
	HomeworkCreated(ctx context.Context, ev Event)
}

// Redis publishes events on a pub/sub channel.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedis builds a Redis notifier. The client must be non-nil; callers with
// no Redis configured should use Nop instead.
func NewRedis(client *redis.Client, logger *zap.Logger) *Redis {
	return &Redis{client: client, log: logger}
}

func (n *Redis) HomeworkCreated(ctx context.Context, ev Event) {
	if len(ev.AccountIDs) == 0 {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		n.log.Warn("homework event marshal failed", zap.Error(err))
		return
	}
	if err := n.client.Publish(ctx, Channel, payload).Err(); err != nil {
		n.log.Warn("homework event publish failed",
			zap.String("event_id", ev.EventID),
			zap.Error(err))
	}
}

// Nop discards events. Used when no Redis address is configured and in tests.
type Nop struct{}

func (Nop) HomeworkCreated(context.Context, Event) {}
