// Package realtime provides topic-scoped websocket fan-out for engagement
// events: comment changes, like counters, and notification delivery.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"inkwell/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// Broadcaster is the fan-out surface handed to services. Emit delivers the
// event to every current subscriber of the topic, best-effort at-most-once.
type Broadcaster interface {
	Emit(ctx context.Context, topic string, event Event)
}

// UserTopic is the per-user topic every authenticated connection is bound to.
func UserTopic(userID uint) string {
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}

// PostTopic is the per-post topic clients join while viewing a post.
func PostTopic(postID uint) string {
	return "post:" + strconv.FormatUint(uint64(postID), 10)
}

// Hub is a websocket hub that maps topic -> subscribed Clients. It implements
// Broadcaster; services never touch clients directly.
type Hub struct {
	mu           sync.RWMutex
	topics       map[string]map[*Client]struct{}
	clientTopics map[*Client]map[string]struct{}
	userConns    map[uint]int
	totalConns   int
	notifier     *Notifier
	shutdown     chan struct{}
	done         chan struct{}
}

// NewHub creates a new Hub. The notifier may be nil, in which case events
// fan out in-process only.
func NewHub(notifier *Notifier) *Hub {
	return &Hub{
		topics:       make(map[string]map[*Client]struct{}),
		clientTopics: make(map[*Client]map[string]struct{}),
		userConns:    make(map[uint]int),
		notifier:     notifier,
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
	}
}

// Name returns a human-readable identifier for this hub.
func (h *Hub) Name() string { return "engagement hub" }

// Register binds a connection for a given userID to its personal topic.
// Returns the Client or an error if connection limits are exceeded.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.totalConns >= maxTotalConns {
		return nil, errors.New("server connection limit reached")
	}
	if h.userConns[userID] >= maxConnsPerUser {
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	client.IncomingHandler = h.handleFrame

	h.clientTopics[client] = make(map[string]struct{})
	h.subscribeLocked(client, UserTopic(userID))
	h.userConns[userID]++
	h.totalConns++
	observability.ActiveWebSockets.Inc()

	return client, nil
}

// UnregisterClient removes the client from every topic it subscribed to.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	topics, ok := h.clientTopics[client]
	if !ok {
		return
	}
	for topic := range topics {
		h.unsubscribeLocked(client, topic)
	}
	delete(h.clientTopics, client)

	h.userConns[client.UserID]--
	if h.userConns[client.UserID] <= 0 {
		delete(h.userConns, client.UserID)
	}
	h.totalConns--
	observability.ActiveWebSockets.Dec()
}

// Join subscribes the client to a post topic. Only post topics are joinable;
// personal topics are assigned at registration and never by request.
func (h *Hub) Join(client *Client, topic string) error {
	if !strings.HasPrefix(topic, "post:") {
		return fmt.Errorf("topic %q is not joinable", topic)
	}
	if _, err := strconv.ParseUint(strings.TrimPrefix(topic, "post:"), 10, 64); err != nil {
		return fmt.Errorf("topic %q is not joinable", topic)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clientTopics[client]; !ok {
		return errors.New("client is not registered")
	}
	h.subscribeLocked(client, topic)
	return nil
}

// Leave unsubscribes the client from a post topic. Leaving the personal
// topic is refused.
func (h *Hub) Leave(client *Client, topic string) error {
	if topic == UserTopic(client.UserID) {
		return errors.New("cannot leave personal topic")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clientTopics[client]; !ok {
		return errors.New("client is not registered")
	}
	h.unsubscribeLocked(client, topic)
	return nil
}

// Emit implements Broadcaster. With a notifier attached the event goes
// through Redis so every process fans it out; otherwise delivery is
// in-process only. A failed publish falls back to local delivery.
func (h *Hub) Emit(ctx context.Context, topic string, event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		observability.Logger.Error("failed to marshal realtime event",
			slog.String("topic", topic), slog.String("event", event.Type), slog.String("error", err.Error()))
		return
	}
	observability.EventsEmitted.WithLabelValues(event.Type).Inc()

	if h.notifier != nil && h.notifier.Enabled() {
		if err := h.notifier.PublishTopic(ctx, topic, data); err == nil {
			return
		} else {
			observability.Logger.Warn("redis publish failed, delivering locally",
				slog.String("topic", topic), slog.String("error", err.Error()))
		}
	}
	h.BroadcastTopic(topic, data)
}

// BroadcastTopic sends raw payload to every local subscriber of the topic.
func (h *Hub) BroadcastTopic(topic string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.topics[topic] {
		c.TrySend(data)
	}
}

// SubscriberCount returns the number of local subscribers of a topic.
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// StartWiring connects the Notifier to this hub: it subscribes to the Redis
// topic pattern and forwards payloads to local topic subscribers.
func (h *Hub) StartWiring(ctx context.Context) error {
	if h.notifier == nil {
		return nil
	}
	return h.notifier.StartPatternSubscriber(ctx, func(channel, payload string) {
		topic, ok := TopicFromChannel(channel)
		if !ok {
			observability.Logger.Warn("invalid realtime channel", slog.String("channel", channel))
			return
		}
		h.BroadcastTopic(topic, []byte(payload))
	})
}

// Shutdown gracefully closes all websocket connections.
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)

	h.mu.Lock()
	for client := range h.clientTopics {
		if client.Conn == nil {
			continue
		}
		if err := client.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
			observability.Logger.Warn("failed to write close message",
				slog.Any("user_id", client.UserID), slog.String("error", err.Error()))
		}
		if err := client.Conn.Close(); err != nil {
			observability.Logger.Warn("failed to close websocket",
				slog.Any("user_id", client.UserID), slog.String("error", err.Error()))
		}
	}
	h.topics = make(map[string]map[*Client]struct{})
	h.clientTopics = make(map[*Client]map[string]struct{})
	h.userConns = make(map[uint]int)
	h.totalConns = 0
	h.mu.Unlock()

	close(h.done)
	return nil
}

// clientFrame is the inbound control message shape.
type clientFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// handleFrame processes join_topic and leave_topic control frames. Anything
// else is answered with an error frame; clients never push content.
func (h *Hub) handleFrame(c *Client, message []byte) {
	var frame clientFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		c.TrySend(errorFrame("malformed frame"))
		return
	}

	switch frame.Type {
	case "join_topic":
		if err := h.Join(c, frame.Topic); err != nil {
			c.TrySend(errorFrame(err.Error()))
			return
		}
		c.TrySend(ackFrame("joined", frame.Topic))
	case "leave_topic":
		if err := h.Leave(c, frame.Topic); err != nil {
			c.TrySend(errorFrame(err.Error()))
			return
		}
		c.TrySend(ackFrame("left", frame.Topic))
	default:
		c.TrySend(errorFrame("unknown frame type"))
	}
}

func errorFrame(msg string) []byte {
	data, _ := json.Marshal(Event{Type: "error", Payload: map[string]string{"message": msg}})
	return data
}

func ackFrame(action, topic string) []byte {
	data, _ := json.Marshal(Event{Type: action, Payload: map[string]string{"topic": topic}})
	return data
}

func (h *Hub) subscribeLocked(client *Client, topic string) {
	m, ok := h.topics[topic]
	if !ok {
		m = make(map[*Client]struct{})
		h.topics[topic] = m
	}
	if _, exists := m[client]; !exists {
		m[client] = struct{}{}
		h.clientTopics[client][topic] = struct{}{}
		observability.TopicSubscriptions.Inc()
	}
}

func (h *Hub) unsubscribeLocked(client *Client, topic string) {
	m, ok := h.topics[topic]
	if !ok {
		return
	}
	if _, exists := m[client]; exists {
		delete(m, client)
		delete(h.clientTopics[client], topic)
		observability.TopicSubscriptions.Dec()
	}
	if len(m) == 0 {
		delete(h.topics, topic)
	}
}
