package realtime

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"

	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

// channelPrefix namespaces every realtime channel in Redis.
const channelPrefix = "topic:"

// Notifier publishes topic payloads into Redis channels so every process
// in the deployment sees them.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis backend is attached.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishTopic sends an event payload to a topic's channel.
func (n *Notifier) PublishTopic(ctx context.Context, topic string, payload []byte) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, channelPrefix+topic, payload).Err()
}

// TopicFromChannel strips the channel namespace, returning the topic name.
func TopicFromChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, channelPrefix) {
		return "", false
	}
	topic := strings.TrimPrefix(channel, channelPrefix)
	if topic == "" {
		return "", false
	}
	return topic, true
}

// StartPatternSubscriber subscribes to the `topic:*` pattern and calls
// onMessage for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, channelPrefix+"*")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.Logger.Error("panic in pattern subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
