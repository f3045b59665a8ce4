package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Hub maintains chat_id -> set of connections for live message tailing.
// Uses Redis pub/sub for horizontal scaling: events are published once and
// every instance (this one included) delivers them to its local clients.
type Hub struct {
	// chatID -> map[clientID]*Client
	chats  map[uuid.UUID]map[string]*Client
	subs   map[uuid.UUID]func() // cancel Redis subscription per chat
	mu     sync.RWMutex
	logger *zap.Logger
	pub    RedisPublisher
	sub    RedisSubscriber
}

// RedisPublisher publishes chat events for cross-instance broadcast.
type RedisPublisher interface {
	PublishChatEvent(chatID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to chat channels and invokes handler for incoming events.
type RedisSubscriber interface {
	SubscribeChat(chatID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub.
func NewHub(logger *zap.Logger, pub RedisPublisher, sub RedisSubscriber) *Hub {
	return &Hub{
		chats:  make(map[uuid.UUID]map[string]*Client),
		subs:   make(map[uuid.UUID]func()),
		logger: logger,
		pub:    pub,
		sub:    sub,
	}
}

// Register adds a client to a chat room. Starts the Redis subscription for
// this chat when the first client joins.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.chats[c.ChatID] == nil {
		h.chats[c.ChatID] = make(map[string]*Client)
		if h.sub != nil {
			cancel, err := h.sub.SubscribeChat(c.ChatID, func(event string, payload []byte) {
				h.broadcastLocal(c.ChatID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.ChatID] = cancel
			}
		}
	}
	h.chats[c.ChatID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined chat stream", zap.String("client_id", c.ID), zap.String("chat_id", c.ChatID.String()))
}

// Unregister removes a client from a chat room. Cancels the Redis
// subscription when the last client leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.chats[c.ChatID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.chats, c.ChatID)
			if cancel, ok := h.subs[c.ChatID]; ok {
				cancel()
				delete(h.subs, c.ChatID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left chat stream", zap.String("client_id", c.ID), zap.String("chat_id", c.ChatID.String()))
}

// BroadcastToChat delivers an event to every live subscriber of a chat.
// With Redis wired it publishes only; the subscription callback performs
// the local broadcast once for all instances, avoiding duplicate delivery.
func (h *Hub) BroadcastToChat(chatID uuid.UUID, event string, payload interface{}) {
	if h.pub != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		_ = h.pub.PublishChatEvent(chatID, event, data)
		return
	}
	h.broadcastLocal(chatID, event, payload)
}

func (h *Hub) broadcastLocal(chatID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.chats[chatID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// SubscriberCount returns the number of connected clients for a chat.
func (h *Hub) SubscriberCount(chatID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.chats[chatID])
}
