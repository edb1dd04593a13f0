package stream

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	channelPrefix  = "walk:"
	channelSuffix  = ":stats"
	channelPattern = channelPrefix + "*" + channelSuffix
)

// Hub fans walk updates out to websocket clients. With redis configured every broadcast
// goes through the pub/sub pattern so all API instances see it; without redis delivery
// stays in process.
type Hub struct {
	redis   *redis.Client
	pubsub  *redis.PubSub
	logger  *slog.Logger
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	WalkID string
	Send   chan []byte
}

func NewHub(redisClient *redis.Client, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		logger:  logger,
		clients: map[string]map[*Client]struct{}{},
	}

	if redisClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		pubsub := redisClient.PSubscribe(ctx, channelPattern)
		if _, err := pubsub.Receive(ctx); err != nil {
			logger.Warn("redis subscribe failed, streaming in process only", "error", err)
			_ = pubsub.Close()
		} else {
			h.redis = redisClient
			h.pubsub = pubsub
			go h.relay(pubsub)
		}
	}
	return h
}

func (h *Hub) Register(walkID string) *Client {
	client := &Client{
		WalkID: walkID,
		Send:   make(chan []byte, 64),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[walkID] == nil {
		h.clients[walkID] = map[*Client]struct{}{}
	}
	h.clients[walkID][client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	walkClients, ok := h.clients[client.WalkID]
	if !ok {
		return
	}
	if _, ok := walkClients[client]; !ok {
		return
	}
	delete(walkClients, client)
	if len(walkClients) == 0 {
		delete(h.clients, client.WalkID)
	}
	close(client.Send)
}

func (h *Hub) Subscribers(walkID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[walkID])
}

func (h *Hub) Broadcast(walkID string, payload []byte) {
	if h.redis != nil {
		err := h.redis.Publish(context.Background(), redisChannel(walkID), payload).Err()
		if err == nil {
			return
		}
		h.logger.Warn("redis publish failed, delivering locally", "walk_id", walkID, "error", err)
	}
	h.deliver(walkID, payload)
}

// Close stops the redis relay. Local clients stay registered.
func (h *Hub) Close() error {
	if h.pubsub == nil {
		return nil
	}
	return h.pubsub.Close()
}

// deliver never blocks; a client whose buffer is full misses the update.
func (h *Hub) deliver(walkID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients[walkID] {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) relay(pubsub *redis.PubSub) {
	for msg := range pubsub.Channel() {
		walkID := walkIDFromChannel(msg.Channel)
		if walkID == "" {
			continue
		}
		h.deliver(walkID, []byte(msg.Payload))
	}
}

func redisChannel(walkID string) string {
	return channelPrefix + walkID + channelSuffix
}

func walkIDFromChannel(ch string) string {
	if len(ch) <= len(channelPrefix)+len(channelSuffix) ||
		!strings.HasPrefix(ch, channelPrefix) || !strings.HasSuffix(ch, channelSuffix) {
		return ""
	}
	return ch[len(channelPrefix) : len(ch)-len(channelSuffix)]
}
