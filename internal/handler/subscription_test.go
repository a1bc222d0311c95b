package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/userhub/userhub/internal/model"
	"github.com/userhub/userhub/internal/notify"
)

func newStreamFixture(t *testing.T) (*notify.Notifier, chi.Router) {
	t.Helper()

	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)

	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.Default()
	notifier := notify.NewNotifier(client, logger, nil)
	broker := notify.NewBroker(client, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		broker.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Poll until the broker's Redis subscription covers every topic
	// channel, so publishes in the test body cannot race the attach.
	deadline := time.Now().Add(2 * time.Second)
	for {
		channels, err := client.PubSubChannels(context.Background(), "*").Result()
		if err == nil && len(channels) >= len(notify.Topics()) {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("broker subscription did not attach: channels=%v err=%v", channels, err)
		}
		time.Sleep(5 * time.Millisecond)
	}

	h := NewSubscriptionHandler(broker, logger)
	router := chi.NewRouter()
	router.Get("/api/v1/subscriptions/{topic}", h.Stream)
	return notifier, router
}

func TestStream_UnknownTopic(t *testing.T) {
	t.Parallel()

	_, router := newStreamFixture(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/user-exploded", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestStream_DeliversEvent(t *testing.T) {
	t.Parallel()

	notifier, router := newStreamFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/user-created", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		router.ServeHTTP(rec, req)
		close(done)
	}()

	// Let the in-process subscription attach before publishing.
	time.Sleep(100 * time.Millisecond)
	user := &model.User{ID: 1, Name: "Ada", Email: "ada@x.com", CreatedAt: time.Now().UTC()}
	if err := notifier.Publish(context.Background(), notify.TopicUserCreated, user); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	time.Sleep(200 * time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not stop after context cancel")
	}

	if got := rec.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", got)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "event: user-created") {
		t.Errorf("body missing event line: %q", body)
	}
	if !strings.Contains(body, `"name":"Ada"`) {
		t.Errorf("body missing user payload: %q", body)
	}
}
