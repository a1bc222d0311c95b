// Package notify distributes user change events over Redis pub/sub.
//
// Delivery is at-most-once: a publish with no connected subscriber, or with
// the transport down, is dropped. Order is preserved per topic for a single
// publisher; nothing is guaranteed across topics or publishers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/userhub/userhub/internal/metrics"
	"github.com/userhub/userhub/internal/model"
)

// Topic identifies one category of user change event.
type Topic string

// Fixed topic names. TopicUserChanged receives a copy of every
// create/update/delete event so one subscription can track all changes.
const (
	TopicUserCreated Topic = "user-created"
	TopicUserUpdated Topic = "user-updated"
	TopicUserDeleted Topic = "user-deleted"
	TopicUserChanged Topic = "user-changed"
)

// channelPrefix namespaces the Redis pub/sub channels.
const channelPrefix = "users:"

// Topics returns all fixed topics.
func Topics() []Topic {
	return []Topic{TopicUserCreated, TopicUserUpdated, TopicUserDeleted, TopicUserChanged}
}

// ParseTopic maps a topic name to a Topic.
func ParseTopic(s string) (Topic, bool) {
	switch Topic(s) {
	case TopicUserCreated, TopicUserUpdated, TopicUserDeleted, TopicUserChanged:
		return Topic(s), true
	}
	return "", false
}

func (t Topic) channel() string {
	return channelPrefix + string(t)
}

func topicForChannel(channel string) (Topic, bool) {
	return ParseTopic(strings.TrimPrefix(channel, channelPrefix))
}

// Notifier publishes user snapshots to topic channels.
type Notifier struct {
	client  *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewNotifier creates a Notifier over a Redis client.
func NewNotifier(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Notifier {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Notifier{
		client:  client,
		logger:  logger.With("component", "notify.notifier"),
		metrics: recorder,
	}
}

// Publish sends a user snapshot on a topic. At-most-once: no retry, no
// persistence; an error means the event is gone.
func (n *Notifier) Publish(ctx context.Context, topic Topic, user *model.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		n.metrics.IncEventPublished("dropped")
		return fmt.Errorf("marshal user event: %w", err)
	}

	if err := n.client.Publish(ctx, topic.channel(), data).Err(); err != nil {
		n.metrics.IncEventPublished("dropped")
		return fmt.Errorf("publish %s: %w", topic, err)
	}

	n.metrics.IncEventPublished("success")
	n.logger.Debug("event published", "topic", string(topic), "user_id", user.ID)
	return nil
}
