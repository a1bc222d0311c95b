package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/userhub/userhub/internal/model"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber
// that falls this far behind starts losing events instead of blocking
// delivery to everyone else.
const subscriberBuffer = 16

// Broker bridges the Redis topic channels to in-process subscriber streams.
// One Run loop reads every topic channel, so a single publisher's per-topic
// order survives the hop to subscribers.
type Broker struct {
	client *redis.Client
	logger *slog.Logger

	mu   sync.Mutex
	subs map[Topic]map[chan model.User]struct{}
}

// NewBroker creates a Broker over a Redis client.
func NewBroker(client *redis.Client, logger *slog.Logger) *Broker {
	return &Broker{
		client: client,
		logger: logger.With("component", "notify.broker"),
		subs:   make(map[Topic]map[chan model.User]struct{}),
	}
}

// Subscribe registers a live stream for one topic. The stream is infinite
// and non-restartable; the returned cancel function ends it. Events that
// arrive while the subscriber's buffer is full are dropped for that
// subscriber only.
func (b *Broker) Subscribe(topic Topic) (<-chan model.User, func()) {
	ch := make(chan model.User, subscriberBuffer)

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan model.User]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			// Close under the lock so deliver can never send on a
			// closed channel.
			b.mu.Lock()
			delete(b.subs[topic], ch)
			close(ch)
			b.mu.Unlock()
		})
	}

	return ch, cancel
}

// SubscriberCount reports the number of live subscribers on a topic.
func (b *Broker) SubscriberCount(topic Topic) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[topic])
}

// Run consumes the Redis subscription until ctx is cancelled, reconnecting
// with a short backoff if the channel closes.
func (b *Broker) Run(ctx context.Context) {
	channels := make([]string, 0, len(Topics()))
	for _, t := range Topics() {
		channels = append(channels, t.channel())
	}

	for {
		sub := b.client.Subscribe(ctx, channels...)
		ch := sub.Channel()

	recv:
		for {
			select {
			case <-ctx.Done():
				sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break recv
				}
				b.deliver(msg)
			}
		}

		sub.Close()
		if ctx.Err() != nil {
			return
		}
		b.logger.Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}

func (b *Broker) deliver(msg *redis.Message) {
	topic, ok := topicForChannel(msg.Channel)
	if !ok {
		return
	}

	var user model.User
	if err := json.Unmarshal([]byte(msg.Payload), &user); err != nil {
		b.logger.Warn("dropping malformed event", "topic", string(topic), "error", err)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs[topic] {
		select {
		case ch <- user:
		default:
			// Slow subscriber: drop rather than block the loop.
		}
	}
}
