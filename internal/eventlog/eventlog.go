// Package eventlog provides a durable, append-only change log on Redis
// Streams. It is the secondary message-log integration: the mutation
// pipeline mirrors user changes into it best-effort, and callers may append
// to arbitrary topics.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/userhub/userhub/internal/metrics"
)

const (
	// streamPrefix namespaces the Redis streams backing topics.
	streamPrefix = "eventlog:"

	// UserEventsTopic is the topic mirroring every user mutation.
	UserEventsTopic = "user-events"

	// maxStreamLen is the approximate max length of each stream.
	maxStreamLen = 100000

	// defaultReadLimit bounds Read when the caller passes no limit.
	defaultReadLimit = 10
)

// Entry is one logged event.
type Entry struct {
	ID      string          `json:"id"`
	Key     string          `json:"key"`
	Payload json.RawMessage `json:"payload"`
}

// Log appends and reads topic streams.
type Log struct {
	client  *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// New creates a Log over a Redis client.
func New(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Log {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Log{
		client:  client,
		logger:  logger.With("component", "eventlog"),
		metrics: recorder,
	}
}

func streamKey(topic string) string {
	return streamPrefix + topic
}

// Append adds an event to a topic and returns the assigned stream id.
func (l *Log) Append(ctx context.Context, topic, key string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		l.metrics.IncEventLogAppend("dropped")
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	id, err := l.client.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(topic),
		MaxLen: maxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"key":     key,
			"payload": string(data),
		},
	}).Result()

	if err != nil {
		l.metrics.IncEventLogAppend("dropped")
		return "", fmt.Errorf("xadd %s: %w", topic, err)
	}

	l.metrics.IncEventLogAppend("success")
	return id, nil
}

// Read returns up to limit entries from a topic, newest first.
func (l *Log) Read(ctx context.Context, topic string, limit int64) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultReadLimit
	}

	messages, err := l.client.XRevRangeN(ctx, streamKey(topic), "+", "-", limit).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange %s: %w", topic, err)
	}

	entries := make([]Entry, 0, len(messages))
	for _, msg := range messages {
		entry := Entry{ID: msg.ID}
		if key, ok := msg.Values["key"].(string); ok {
			entry.Key = key
		}
		if payload, ok := msg.Values["payload"].(string); ok {
			entry.Payload = json.RawMessage(payload)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Topics lists every topic with at least one logged event.
func (l *Log) Topics(ctx context.Context) ([]string, error) {
	var (
		topics []string
		cursor uint64
	)

	for {
		keys, next, err := l.client.Scan(ctx, cursor, streamPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan streams: %w", err)
		}

		for _, key := range keys {
			topics = append(topics, strings.TrimPrefix(key, streamPrefix))
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return topics, nil
}

// Ping checks transport connectivity.
func (l *Log) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}
