package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/arcade-catalog/internal/domain"
)

// Message types
const (
	MessageTypeEvent       = "event"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeError       = "error"
)

// ErrHubBusy is returned when the broadcast queue is full
var ErrHubBusy = errors.New("broadcast queue full")

var knownTopics = map[string]bool{
	domain.TopicGames:     true,
	domain.TopicGenres:    true,
	domain.TopicRedirects: true,
	domain.TopicSettings:  true,
}

// IsTopic reports whether clients may subscribe to topic
func IsTopic(topic string) bool {
	return knownTopics[topic]
}

// Message represents a WebSocket message
type Message struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Hub tracks connected admin clients and fans catalog events out to the
// clients subscribed to each event's topic
type Hub struct {
	// Subscribers by topic
	topics map[string]map[*Client]bool

	// All connected clients
	allClients map[*Client]bool

	register    chan *Client
	unregister  chan *Client
	broadcast   chan *Message
	subscribe   chan *subscriptionRequest
	unsubscribe chan *subscriptionRequest

	mu     sync.RWMutex
	logger *slog.Logger

	// Context for shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

type subscriptionRequest struct {
	client *Client
	topic  string
}

// NewHub creates a new Hub
func NewHub(logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		topics:      make(map[string]map[*Client]bool),
		allClients:  make(map[*Client]bool),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		subscribe:   make(chan *subscriptionRequest, 64),
		unsubscribe: make(chan *subscriptionRequest, 64),
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	h.logger.Info("WebSocket hub started")
	for {
		select {
		case <-h.ctx.Done():
			h.logger.Info("WebSocket hub stopping")
			return

		case client := <-h.register:
			h.mu.Lock()
			h.allClients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", "client_id", client.id)

		case client := <-h.unregister:
			h.removeClient(client)

		case req := <-h.subscribe:
			h.mu.Lock()
			if _, ok := h.allClients[req.client]; ok {
				if _, ok := h.topics[req.topic]; !ok {
					h.topics[req.topic] = make(map[*Client]bool)
				}
				h.topics[req.topic][req.client] = true
			}
			h.mu.Unlock()
			h.logger.Debug("client subscribed", "client_id", req.client.id, "topic", req.topic)

		case req := <-h.unsubscribe:
			h.mu.Lock()
			h.dropSubscription(req.client, req.topic)
			h.mu.Unlock()
			h.logger.Debug("client unsubscribed", "client_id", req.client.id, "topic", req.topic)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// Stop stops the hub
func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.allClients[client]; !ok {
		return
	}
	delete(h.allClients, client)
	for topic := range h.topics {
		h.dropSubscription(client, topic)
	}
	close(client.send)
	h.logger.Debug("client unregistered", "client_id", client.id)
}

// dropSubscription must be called with mu held
func (h *Hub) dropSubscription(client *Client, topic string) {
	clients, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.topics, topic)
	}
}

// broadcastMessage sends a message to the topic's subscribers, or to every
// client when the message has no topic
func (h *Hub) broadcastMessage(message *Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal message", "error", err)
		return
	}

	targets := h.allClients
	if message.Topic != "" {
		targets = h.topics[message.Topic]
	}
	for client := range targets {
		select {
		case client.send <- data:
		default:
			h.logger.Warn("client buffer full, skipping", "client_id", client.id)
		}
	}
}

// Publish queues a catalog event for delivery to subscribers of its topic
func (h *Hub) Publish(ctx context.Context, event domain.CatalogEvent) error {
	message := &Message{
		Type:      MessageTypeEvent,
		Topic:     event.Topic,
		Data:      event,
		Timestamp: event.Timestamp,
	}

	select {
	case h.broadcast <- message:
		return nil
	default:
		h.logger.Warn("broadcast channel full, dropping event", "type", event.Type)
		return ErrHubBusy
	}
}

// Register adds a client to the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribe adds a client to a topic
func (h *Hub) Subscribe(client *Client, topic string) {
	h.subscribe <- &subscriptionRequest{client: client, topic: topic}
}

// Unsubscribe removes a client from a topic
func (h *Hub) Unsubscribe(client *Client, topic string) {
	h.unsubscribe <- &subscriptionRequest{client: client, topic: topic}
}

// SubscriberCount returns the number of subscribers for a topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// TotalConnections returns the total number of connected clients
func (h *Hub) TotalConnections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.allClients)
}
