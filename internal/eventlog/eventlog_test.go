package eventlog

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()

	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, slog.Default(), nil)
}

func TestAppendAndRead_NewestFirst(t *testing.T) {
	t.Parallel()

	log := newTestLog(t)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third"} {
		if _, err := log.Append(ctx, "audit", "k", map[string]string{"msg": msg}); err != nil {
			t.Fatalf("Append %q: %v", msg, err)
		}
	}

	entries, err := log.Read(ctx, "audit", 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(entries))
	}

	var payload struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(entries[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Msg != "third" {
		t.Errorf("newest entry = %q, want third", payload.Msg)
	}
	if entries[0].Key != "k" {
		t.Errorf("Key = %q, want k", entries[0].Key)
	}
}

func TestRead_EmptyTopic(t *testing.T) {
	t.Parallel()

	log := newTestLog(t)

	entries, err := log.Read(context.Background(), "nothing-here", 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("len(entries) = %d, want 0", len(entries))
	}
}

func TestTopics(t *testing.T) {
	t.Parallel()

	log := newTestLog(t)
	ctx := context.Background()

	if _, err := log.Append(ctx, "audit", "a", "x"); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if _, err := log.Append(ctx, UserEventsTopic, "1", "y"); err != nil {
		t.Fatalf("Append: %v", err)
	}

	topics, err := log.Topics(ctx)
	if err != nil {
		t.Fatalf("Topics: %v", err)
	}

	found := make(map[string]bool, len(topics))
	for _, topic := range topics {
		found[topic] = true
	}
	if !found["audit"] || !found[UserEventsTopic] {
		t.Errorf("Topics = %v, want audit and %s", topics, UserEventsTopic)
	}
}
